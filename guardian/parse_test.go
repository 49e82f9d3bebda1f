package guardian_test

import (
	"testing"

	"github.com/defiguardian/guardian/guardian"
)

const defiLlamaPage = `
DefiLlama - Yields

Project       Pool        TVL        APY
Uniswap V3    ETH-USDC    $120.5M    34.2%
Curve         3pool       $1,204,300    4.1%
Aave V3       USDC        $2.1B    3.25%

footer text that should not match
`

func TestParseDefiLlamaYields(t *testing.T) {
	pools := guardian.ParseDefiLlamaYields(defiLlamaPage)
	if len(pools) != 3 {
		t.Fatalf("got %d pools, want 3: %v", len(pools), pools)
	}

	first := pools[0]
	if first.Platform != "Uniswap V3" {
		t.Errorf("platform: got %q", first.Platform)
	}
	if first.Pair != "ETH-USDC" {
		t.Errorf("pair: got %q", first.Pair)
	}
	if !approxEqual(first.APR, 0.342) {
		t.Errorf("apr: got %v, want 0.342", first.APR)
	}
	if !approxEqual(first.TVL, 120.5e6) {
		t.Errorf("tvl: got %v, want 120.5M", first.TVL)
	}
	// $120.5M sits in the 100M+ band.
	if first.Risk != 1 {
		t.Errorf("risk: got %d, want 1", first.Risk)
	}

	if !approxEqual(pools[1].TVL, 1204300) {
		t.Errorf("comma tvl: got %v", pools[1].TVL)
	}
	if pools[1].Risk != 3 {
		t.Errorf("1.2M tvl risk: got %d, want 3", pools[1].Risk)
	}
	if !approxEqual(pools[2].TVL, 2.1e9) {
		t.Errorf("billion tvl: got %v", pools[2].TVL)
	}
}

const uniswapPage = `
Top pools

ETH/USDC    0.05%    $210.3M TVL    18.2% APR
WBTC/ETH    0.3%    $95.7M    22.5%
garbage line
DAI/USDC    0.01%    $450K TVL    2.1% APR
`

func TestParseUniswapPools(t *testing.T) {
	pools := guardian.ParseUniswapPools(uniswapPage)
	if len(pools) != 3 {
		t.Fatalf("got %d pools, want 3: %v", len(pools), pools)
	}

	for _, p := range pools {
		if p.Platform != "Uniswap" {
			t.Errorf("platform: got %q, want Uniswap", p.Platform)
		}
	}
	if pools[0].Pair != "ETH/USDC" || !approxEqual(pools[0].APR, 0.182) {
		t.Errorf("first pool: %+v", pools[0])
	}
	if !approxEqual(pools[2].TVL, 450e3) {
		t.Errorf("K suffix tvl: got %v", pools[2].TVL)
	}
	if pools[2].Risk != 4 {
		t.Errorf("450K tvl risk: got %d, want 4", pools[2].Risk)
	}
}

func TestParseIgnoresMalformedRows(t *testing.T) {
	if pools := guardian.ParseDefiLlamaYields("nothing here\nno table at all\n"); len(pools) != 0 {
		t.Errorf("got %v from noise", pools)
	}
	if pools := guardian.ParseUniswapPools(""); len(pools) != 0 {
		t.Errorf("got %v from empty page", pools)
	}
}
