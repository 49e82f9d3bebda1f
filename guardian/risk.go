package guardian

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
)

// defaultFanOutLimit caps concurrent metric fetches during an assessment.
const defaultFanOutLimit = 8

// RiskEvaluator computes a portfolio's risk score from per-token metrics.
type RiskEvaluator struct {
	metrics MetricsProvider
	limit   int
}

// NewRiskEvaluator creates an evaluator over the given metrics provider.
// concurrency caps the metric-fetch fan-out; values < 1 use the default.
func NewRiskEvaluator(metrics MetricsProvider, concurrency int) *RiskEvaluator {
	if concurrency < 1 {
		concurrency = defaultFanOutLimit
	}
	return &RiskEvaluator{metrics: metrics, limit: concurrency}
}

// AssessPortfolioRisk fetches metrics for every holding with amount > 0
// concurrently and combines them into a RiskResult.
//
// Join policy: fail-fast. The first failed fetch cancels the remaining
// fan-out tasks and fails the assessment — a partial risk score would be
// meaningless. Symbols are processed in lexical order so results are
// deterministic regardless of map iteration.
func (e *RiskEvaluator) AssessPortfolioRisk(ctx context.Context, portfolio Portfolio) (*RiskResult, error) {
	if err := portfolio.Validate(); err != nil {
		return nil, err
	}

	symbols := activeSymbols(portfolio)
	if len(symbols) == 0 {
		return nil, ErrNoPricedHoldings
	}

	metrics := make([]*TokenMetrics, len(symbols))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			m, err := e.metrics.TokenMetrics(ctx, symbol)
			if err != nil {
				return err
			}
			metrics[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bySymbol := make(map[string]*TokenMetrics, len(symbols))
	prices := make([]float64, 0, len(symbols))
	for i, symbol := range symbols {
		bySymbol[symbol] = metrics[i]
		if metrics[i].Price > 0 {
			prices = append(prices, metrics[i].Price)
		}
	}

	score, err := WeightedRiskScore(portfolio, bySymbol)
	if err != nil {
		return nil, err
	}
	correlation, err := CorrelationProxy(prices)
	if err != nil {
		return nil, err
	}

	return &RiskResult{
		RiskScore:       score,
		Diversification: len(symbols),
		Correlation:     correlation,
	}, nil
}

// WeightedRiskScore computes the value-weighted average of (1 - sentiment)
// across holdings with amount > 0. Fails with ErrNoPricedHoldings when the
// portfolio's total priced value is zero, since the weights would divide
// by zero.
func WeightedRiskScore(portfolio Portfolio, metrics map[string]*TokenMetrics) (float64, error) {
	symbols := activeSymbols(portfolio)

	var totalValue float64
	for _, symbol := range symbols {
		if m, ok := metrics[symbol]; ok {
			totalValue += portfolio[symbol].Amount * m.Price
		}
	}
	if totalValue == 0 {
		return 0, ErrNoPricedHoldings
	}

	var score float64
	for _, symbol := range symbols {
		m, ok := metrics[symbol]
		if !ok {
			continue
		}
		weight := portfolio[symbol].Amount * m.Price / totalValue
		score += weight * (1 - m.Sentiment)
	}
	return score, nil
}

// CorrelationProxy computes the mean absolute period-over-period return
// across the ordered price list, treating the cross-sectional prices as if
// they were a time series. Fails with ErrInsufficientPrices for fewer than
// two prices, where the measure is undefined.
func CorrelationProxy(prices []float64) (float64, error) {
	if len(prices) < 2 {
		return 0, ErrInsufficientPrices
	}
	var sum float64
	for i := 0; i < len(prices)-1; i++ {
		sum += math.Abs((prices[i+1] - prices[i]) / prices[i])
	}
	return sum / float64(len(prices)-1), nil
}

// activeSymbols returns the portfolio's symbols with amount > 0, sorted.
func activeSymbols(portfolio Portfolio) []string {
	symbols := make([]string, 0, len(portfolio))
	for symbol, h := range portfolio {
		if h.Amount > 0 {
			symbols = append(symbols, symbol)
		}
	}
	sort.Strings(symbols)
	return symbols
}
