// Package guardian implements the portfolio analytics behind the DeFi
// Portfolio Guardian tools: per-token metrics aggregation, portfolio risk
// assessment, and liquidity-pool discovery. All entities are ephemeral —
// produced fresh per request, returned once, never persisted.
package guardian

import "fmt"

// Holding is one portfolio position. Amounts must be non-negative; zero
// amounts are kept in the input but excluded from analysis.
type Holding struct {
	Amount float64 `json:"amount"`
}

// Portfolio maps token symbol to holding.
type Portfolio map[string]Holding

// Validate rejects portfolios with negative amounts.
func (p Portfolio) Validate() error {
	for symbol, h := range p {
		if h.Amount < 0 {
			return fmt.Errorf("invalid input: negative amount for %s", symbol)
		}
	}
	return nil
}

// TokenMetrics is the aggregated market and social snapshot for one token.
type TokenMetrics struct {
	Symbol string `json:"symbol"`

	// Price in USD. 0 when the symbol is unknown to the price source —
	// a documented leniency, not an error.
	Price float64 `json:"price"`

	// Sentiment is the social polarity score in [-1, 1].
	Sentiment float64 `json:"sentiment"`

	// Volume is the 24h trade volume in USD.
	Volume float64 `json:"volume"`
}

// RiskResult is the outcome of a portfolio risk assessment.
type RiskResult struct {
	// RiskScore is the value-weighted average of (1 - sentiment), so it
	// ranges from 0 (fully positive sentiment) to 2 (fully negative).
	RiskScore float64 `json:"risk_score"`

	// Diversification counts distinct symbols with amount > 0.
	Diversification int `json:"diversification"`

	// Correlation is the mean absolute period-over-period return across
	// the ordered per-symbol price list. A placeholder proxy, not a real
	// covariance measure.
	Correlation float64 `json:"correlation"`
}

// PoolRecord is one liquidity pool parsed from a scraped listings page.
type PoolRecord struct {
	Platform string  `json:"platform"`
	Pair     string  `json:"pair"`
	APR      float64 `json:"apr"`
	TVL      float64 `json:"tvl"`
	Risk     int     `json:"risk"` // 1 (safest) to 5
}
