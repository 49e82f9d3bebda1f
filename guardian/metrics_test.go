package guardian_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/defiguardian/guardian/guardian"
	"github.com/defiguardian/guardian/masa"
)

// fakeDataClient serves canned responses for the Masa calls the aggregator
// makes and counts scrapes so caching can be verified.
type fakeDataClient struct {
	priceDoc    string
	sentiment   float64
	tweets      []masa.Tweet
	scrapeCalls int64
	scrapeErr   error

	lastScrapeURL string
	lastQuery     string
	lastAnalyzed  string
}

func (f *fakeDataClient) ScrapeJSON(ctx context.Context, pageURL string) (json.RawMessage, error) {
	atomic.AddInt64(&f.scrapeCalls, 1)
	f.lastScrapeURL = pageURL
	if f.scrapeErr != nil {
		return nil, f.scrapeErr
	}
	return json.RawMessage(f.priceDoc), nil
}

func (f *fakeDataClient) SubmitTweetSearch(ctx context.Context, query string, maxResults int) (string, error) {
	f.lastQuery = query
	if maxResults != 50 {
		return "", fmt.Errorf("unexpected max_results %d", maxResults)
	}
	return "job-1", nil
}

func (f *fakeDataClient) TweetSearchResult(ctx context.Context, jobID string) ([]masa.Tweet, error) {
	if jobID != "job-1" {
		return nil, fmt.Errorf("unexpected job id %s", jobID)
	}
	return f.tweets, nil
}

func (f *fakeDataClient) AnalyzeScore(ctx context.Context, text, prompt string) (float64, error) {
	f.lastAnalyzed = text
	return f.sentiment, nil
}

func newAggregator(t *testing.T, client guardian.DataClient) *guardian.Aggregator {
	t.Helper()
	agg, err := guardian.NewAggregator(client)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	return agg
}

func TestTokenMetricsHappyPath(t *testing.T) {
	fake := &fakeDataClient{
		priceDoc:  `{"bitcoin": {"usd": 50000, "usd_24h_vol": 31000000000}}`,
		sentiment: 0.6,
		tweets:    []masa.Tweet{{Text: "to the moon"}, {Text: "buying more"}},
	}
	agg := newAggregator(t, fake)

	m, err := agg.TokenMetrics(context.Background(), "bitcoin")
	if err != nil {
		t.Fatalf("TokenMetrics: %v", err)
	}

	if m.Symbol != "bitcoin" {
		t.Errorf("symbol: got %q", m.Symbol)
	}
	if !approxEqual(m.Price, 50000) {
		t.Errorf("price: got %v", m.Price)
	}
	if !approxEqual(m.Sentiment, 0.6) {
		t.Errorf("sentiment: got %v", m.Sentiment)
	}
	if !approxEqual(m.Volume, 31000000000) {
		t.Errorf("volume: got %v", m.Volume)
	}

	if !strings.Contains(fake.lastScrapeURL, "ids=bitcoin") {
		t.Errorf("price url missing symbol: %s", fake.lastScrapeURL)
	}
	if fake.lastQuery != "#bitcoin" {
		t.Errorf("search query: got %q, want #bitcoin", fake.lastQuery)
	}
	if !strings.Contains(fake.lastAnalyzed, "to the moon") || !strings.Contains(fake.lastAnalyzed, "buying more") {
		t.Errorf("analyzed text missing tweets: %q", fake.lastAnalyzed)
	}
}

func TestTokenMetricsUnknownSymbolDefaultsToZeroPrice(t *testing.T) {
	fake := &fakeDataClient{priceDoc: `{}`, sentiment: 0.1}
	agg := newAggregator(t, fake)

	m, err := agg.TokenMetrics(context.Background(), "obscurecoin")
	if err != nil {
		t.Fatalf("unknown symbol must not error: %v", err)
	}
	if m.Price != 0 || m.Volume != 0 {
		t.Errorf("got price %v volume %v, want zeros", m.Price, m.Volume)
	}
}

func TestTokenMetricsPropagatesUpstreamFailure(t *testing.T) {
	fake := &fakeDataClient{scrapeErr: fmt.Errorf("%w: post timeout", masa.ErrUnavailable)}
	agg := newAggregator(t, fake)

	_, err := agg.TokenMetrics(context.Background(), "bitcoin")
	if !errors.Is(err, masa.ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}
}

func TestTokenMetricsRejectsMalformedPricePayload(t *testing.T) {
	fake := &fakeDataClient{priceDoc: `"just a string"`}
	agg := newAggregator(t, fake)

	_, err := agg.TokenMetrics(context.Background(), "bitcoin")
	if !errors.Is(err, masa.ErrBadResponse) {
		t.Fatalf("got %v, want ErrBadResponse", err)
	}
}

func TestTokenMetricsRejectsOutOfRangeSentiment(t *testing.T) {
	fake := &fakeDataClient{
		priceDoc:  `{"bitcoin": {"usd": 100}}`,
		sentiment: 3.5,
	}
	agg := newAggregator(t, fake)

	_, err := agg.TokenMetrics(context.Background(), "bitcoin")
	if !errors.Is(err, masa.ErrBadResponse) {
		t.Fatalf("got %v, want ErrBadResponse", err)
	}
}

func TestTokenMetricsCachesResults(t *testing.T) {
	fake := &fakeDataClient{
		priceDoc:  `{"bitcoin": {"usd": 100, "usd_24h_vol": 5}}`,
		sentiment: 0.2,
	}
	agg := newAggregator(t, fake)

	if _, err := agg.TokenMetrics(context.Background(), "bitcoin"); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	// Cache writes are buffered; give them a beat to land.
	time.Sleep(50 * time.Millisecond)
	if _, err := agg.TokenMetrics(context.Background(), "BITCOIN"); err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	if got := atomic.LoadInt64(&fake.scrapeCalls); got != 1 {
		t.Errorf("scrape calls: got %d, want 1 (second lookup should hit the cache)", got)
	}
}
