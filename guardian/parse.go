package guardian

import (
	"regexp"
	"strconv"
	"strings"
)

// Source-specific extraction rules. Both listings pages come back from the
// scraping service as rendered text with table columns separated by runs of
// whitespace; each parser matches its source's column layout and skips
// everything else (headers, navigation, ads).

// defiLlamaRow matches a DefiLlama yields row: project, pair, TVL, APY.
//
//	Uniswap V3    ETH-USDC    $120.5M    34.2%
var defiLlamaRow = regexp.MustCompile(
	`(?m)^\s*(\S[\w .\-]*?)\s{2,}([A-Za-z0-9.+/\-]+)\s{2,}\$([0-9][0-9,.]*[KkMmBb]?)\s{2,}([0-9.]+)%\s*$`)

// ParseDefiLlamaYields extracts pool records from the DefiLlama yields page.
func ParseDefiLlamaYields(content string) []PoolRecord {
	var pools []PoolRecord
	for _, m := range defiLlamaRow.FindAllStringSubmatch(content, -1) {
		apr, ok := parsePercent(m[4])
		if !ok {
			continue
		}
		tvl, ok := parseAbbrevAmount(m[3])
		if !ok {
			continue
		}
		pools = append(pools, PoolRecord{
			Platform: strings.TrimSpace(m[1]),
			Pair:     m[2],
			APR:      apr,
			TVL:      tvl,
			Risk:     riskFromTVL(tvl),
		})
	}
	return pools
}

// uniswapRow matches a Uniswap pools row: pair, fee tier, TVL, APR.
//
//	ETH/USDC    0.05%    $210.3M TVL    18.2% APR
var uniswapRow = regexp.MustCompile(
	`(?m)^\s*([A-Za-z0-9.]+/[A-Za-z0-9.]+)\s{2,}[0-9.]+%\s{2,}\$([0-9][0-9,.]*[KkMmBb]?)(?:\s+TVL)?\s{2,}([0-9.]+)%(?:\s+APR)?\s*$`)

// ParseUniswapPools extracts pool records from the Uniswap pools page.
func ParseUniswapPools(content string) []PoolRecord {
	var pools []PoolRecord
	for _, m := range uniswapRow.FindAllStringSubmatch(content, -1) {
		apr, ok := parsePercent(m[3])
		if !ok {
			continue
		}
		tvl, ok := parseAbbrevAmount(m[2])
		if !ok {
			continue
		}
		pools = append(pools, PoolRecord{
			Platform: "Uniswap",
			Pair:     m[1],
			APR:      apr,
			TVL:      tvl,
			Risk:     riskFromTVL(tvl),
		})
	}
	return pools
}

// parsePercent converts a displayed percentage ("34.2") to a fraction.
func parsePercent(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v / 100, true
}

// parseAbbrevAmount converts a display amount like "120.5M" or "1,204,300"
// to its numeric value.
func parseAbbrevAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "K"), strings.HasSuffix(s, "k"):
		multiplier = 1e3
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "M"), strings.HasSuffix(s, "m"):
		multiplier = 1e6
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "B"), strings.HasSuffix(s, "b"):
		multiplier = 1e9
		s = s[:len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v * multiplier, true
}

// riskFromTVL maps pool size to a 1 (deep liquidity) to 5 (tiny) band.
func riskFromTVL(tvl float64) int {
	switch {
	case tvl >= 100e6:
		return 1
	case tvl >= 10e6:
		return 2
	case tvl >= 1e6:
		return 3
	case tvl >= 100e3:
		return 4
	default:
		return 5
	}
}
