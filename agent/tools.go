package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/defiguardian/guardian/core"
	"github.com/defiguardian/guardian/guardian"
	"github.com/defiguardian/guardian/tools"
)

// defaultMinAPR filters pools when the caller gives no threshold.
const defaultMinAPR = 0.2

type riskAssessor interface {
	AssessPortfolioRisk(ctx context.Context, portfolio guardian.Portfolio) (*guardian.RiskResult, error)
}

type poolFinder interface {
	FindLiquidityPools(ctx context.Context, minAPR float64) ([]guardian.PoolRecord, error)
}

// Deps holds shared dependencies for the guardian tools.
type Deps struct {
	Metrics guardian.MetricsProvider
	Risk    riskAssessor
	Pools   poolFinder
}

// CreateTools returns the guardian tool set.
func CreateTools(deps *Deps) []core.Tool {
	return []core.Tool{
		createGetTokenMetricsTool(deps),
		createAssessPortfolioRiskTool(deps),
		createFindLiquidityPoolsTool(deps),
	}
}

// ────────────────────────────────────────────────────────────────────────────
// get_token_metrics
// ────────────────────────────────────────────────────────────────────────────

func createGetTokenMetricsTool(deps *Deps) core.Tool {
	return tools.New("get_token_metrics").
		Description("Get current price, social sentiment and 24h volume for a token. Use the CoinGecko id as the symbol, e.g. 'bitcoin' or 'ethereum'.").
		Schema(tools.ObjectSchema(map[string]interface{}{
			"symbol": tools.StringProperty("Token symbol (CoinGecko id, e.g. 'bitcoin')"),
		}, "symbol")).
		Handler(func(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error) {
			var input struct {
				Symbol  string `json:"symbol"`
				Thought string `json:"thought"`
			}
			if err := guardian.DecodeStrict(params.Input, &input); err != nil {
				return &core.ToolResult{Success: false, Error: fmt.Sprintf("invalid input: %v", err)}, nil
			}
			symbol := strings.TrimSpace(strings.ToLower(input.Symbol))
			if symbol == "" {
				return &core.ToolResult{Success: false, Error: "invalid input: symbol is required"}, nil
			}

			metrics, err := deps.Metrics.TokenMetrics(ctx, symbol)
			if err != nil {
				return &core.ToolResult{Success: false, Error: err.Error()}, nil
			}
			return &core.ToolResult{Success: true, Data: metrics}, nil
		}).
		Build()
}

// ────────────────────────────────────────────────────────────────────────────
// assess_portfolio_risk
// ────────────────────────────────────────────────────────────────────────────

func createAssessPortfolioRiskTool(deps *Deps) core.Tool {
	return tools.New("assess_portfolio_risk").
		Description("Assess a token portfolio: sentiment-weighted risk score, diversification count, and a correlation proxy. Needs at least two priced holdings.").
		Schema(tools.ObjectSchema(map[string]interface{}{
			"portfolio": tools.MapProperty("Portfolio mapping token symbol to holding",
				tools.ObjectSchema(map[string]interface{}{
					"amount": tools.NumberProperty("Held amount, must be >= 0"),
				}, "amount")),
		}, "portfolio")).
		Handler(func(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error) {
			var input struct {
				Portfolio guardian.Portfolio `json:"portfolio"`
				Thought   string             `json:"thought"`
			}
			if err := guardian.DecodeStrict(params.Input, &input); err != nil {
				return &core.ToolResult{Success: false, Error: fmt.Sprintf("invalid input: %v", err)}, nil
			}
			if len(input.Portfolio) == 0 {
				return &core.ToolResult{Success: false, Error: "invalid input: portfolio is empty"}, nil
			}

			result, err := deps.Risk.AssessPortfolioRisk(ctx, input.Portfolio)
			if err != nil {
				return &core.ToolResult{Success: false, Error: err.Error()}, nil
			}
			return &core.ToolResult{Success: true, Data: result}, nil
		}).
		Build()
}

// ────────────────────────────────────────────────────────────────────────────
// find_liquidity_pools
// ────────────────────────────────────────────────────────────────────────────

func createFindLiquidityPoolsTool(deps *Deps) core.Tool {
	return tools.New("find_liquidity_pools").
		Description("Find liquidity pools with APR above a threshold across DefiLlama and Uniswap listings. min_apr is a fraction: 0.2 means 20%.").
		Schema(tools.ObjectSchema(map[string]interface{}{
			"min_apr": tools.NumberProperty("Minimum APR as a fraction (default 0.2 = 20%)"),
		})).
		Handler(func(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error) {
			var input struct {
				MinAPR  *float64 `json:"min_apr"`
				Thought string   `json:"thought"`
			}
			if err := guardian.DecodeStrict(params.Input, &input); err != nil {
				return &core.ToolResult{Success: false, Error: fmt.Sprintf("invalid input: %v", err)}, nil
			}
			minAPR := defaultMinAPR
			if input.MinAPR != nil {
				minAPR = *input.MinAPR
			}
			if minAPR < 0 {
				return &core.ToolResult{Success: false, Error: "invalid input: min_apr must be >= 0"}, nil
			}

			pools, err := deps.Pools.FindLiquidityPools(ctx, minAPR)
			if err != nil {
				return &core.ToolResult{Success: false, Error: err.Error()}, nil
			}
			if pools == nil {
				pools = []guardian.PoolRecord{}
			}
			return &core.ToolResult{Success: true, Data: map[string]interface{}{
				"min_apr":    minAPR,
				"pools":      pools,
				"scanned_at": time.Now().Format(time.RFC3339),
			}}, nil
		}).
		Build()
}
