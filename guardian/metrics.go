package guardian

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/defiguardian/guardian/masa"
)

const (
	coinGeckoPriceURL = "https://api.coingecko.com/api/v3/simple/price?ids=%s&vs_currencies=usd&include_24hr_vol=true"

	sentimentPrompt = "Calculate sentiment score between -1 (negative) and 1 (positive)"
	tweetBatchSize  = 50

	defaultMetricsTTL = 30 * time.Second
)

// MetricsProvider yields fresh metrics for one token. The risk evaluator
// depends on this interface so it can be tested without network access.
type MetricsProvider interface {
	TokenMetrics(ctx context.Context, symbol string) (*TokenMetrics, error)
}

// DataClient is the slice of the Masa API the aggregator uses.
type DataClient interface {
	ScrapeJSON(ctx context.Context, pageURL string) (json.RawMessage, error)
	SubmitTweetSearch(ctx context.Context, query string, maxResults int) (string, error)
	TweetSearchResult(ctx context.Context, jobID string) ([]masa.Tweet, error)
	AnalyzeScore(ctx context.Context, text, prompt string) (float64, error)
}

// Aggregator fetches price, volume, and social sentiment for a token.
// Results are cached briefly so a portfolio fan-out does not issue the same
// upstream calls once per holding.
type Aggregator struct {
	client DataClient
	cache  *ristretto.Cache
	ttl    time.Duration
}

// NewAggregator creates a metrics aggregator over the given data client.
func NewAggregator(client DataClient) (*Aggregator, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create metrics cache: %w", err)
	}
	return &Aggregator{client: client, cache: cache, ttl: defaultMetricsTTL}, nil
}

// TokenMetrics fetches a token's metrics: a price quote from CoinGecko via
// the scraping endpoint, then a social search and a derived sentiment score
// for the concatenated results. The three upstream calls are sequential —
// the result retrieval needs the job id from the submission.
//
// An unknown symbol yields price 0 rather than an error; a malformed or
// out-of-range sentiment score fails with masa.ErrBadResponse since it
// feeds directly into risk arithmetic.
func (a *Aggregator) TokenMetrics(ctx context.Context, symbol string) (*TokenMetrics, error) {
	key := strings.ToLower(symbol)
	if cached, ok := a.cache.Get(key); ok {
		m := cached.(TokenMetrics)
		return &m, nil
	}

	price, volume, err := a.fetchPrice(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("price for %s: %w", symbol, err)
	}

	sentiment, err := a.fetchSentiment(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("sentiment for %s: %w", symbol, err)
	}

	m := TokenMetrics{Symbol: symbol, Price: price, Sentiment: sentiment, Volume: volume}
	a.cache.SetWithTTL(key, m, 1, a.ttl)
	return &m, nil
}

// fetchPrice scrapes the CoinGecko simple-price endpoint. A symbol absent
// from the response maps to price 0.
func (a *Aggregator) fetchPrice(ctx context.Context, id string) (price, volume float64, err error) {
	pageURL := fmt.Sprintf(coinGeckoPriceURL, url.QueryEscape(id))
	raw, err := a.client.ScrapeJSON(ctx, pageURL)
	if err != nil {
		return 0, 0, err
	}

	var quotes map[string]struct {
		USD    *float64 `json:"usd"`
		Volume *float64 `json:"usd_24h_vol"`
	}
	if err := json.Unmarshal(raw, &quotes); err != nil {
		return 0, 0, fmt.Errorf("%w: price payload: %v", masa.ErrBadResponse, err)
	}

	quote, ok := quotes[id]
	if !ok {
		log.Printf("[METRICS] unknown symbol %q, defaulting price to 0", id)
		return 0, 0, nil
	}
	if quote.USD != nil {
		price = *quote.USD
	}
	if quote.Volume != nil {
		volume = *quote.Volume
	}
	if price < 0 || volume < 0 {
		return 0, 0, fmt.Errorf("%w: negative price or volume for %s", masa.ErrBadResponse, id)
	}
	return price, volume, nil
}

// fetchSentiment runs the hashtag search for the symbol and asks the
// analysis endpoint to score the concatenated tweet text.
func (a *Aggregator) fetchSentiment(ctx context.Context, symbol string) (float64, error) {
	jobID, err := a.client.SubmitTweetSearch(ctx, "#"+symbol, tweetBatchSize)
	if err != nil {
		return 0, err
	}

	tweets, err := a.client.TweetSearchResult(ctx, jobID)
	if err != nil {
		return 0, err
	}

	texts := make([]string, 0, len(tweets))
	for _, t := range tweets {
		texts = append(texts, t.Text)
	}

	score, err := a.client.AnalyzeScore(ctx, strings.Join(texts, "\n"), sentimentPrompt)
	if err != nil {
		return 0, err
	}
	if score < -1 || score > 1 {
		return 0, fmt.Errorf("%w: sentiment %v outside [-1, 1]", masa.ErrBadResponse, score)
	}
	return score, nil
}
