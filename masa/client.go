// Package masa is a client for the Masa data-aggregation API. It exposes
// the four endpoints the guardian needs: generic web-page scraping (JSON or
// text), social-search job submission, job result retrieval, and free-text
// analysis that returns a derived numeric score.
package masa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	// DefaultBaseURL is the Masa developer API endpoint.
	DefaultBaseURL = "https://data.dev.masalabs.ai"

	endpointScrape        = "/api/v1/search/live/web/scrape"
	endpointTweetSearch   = "/api/v1/search/live/twitter"
	endpointTweetResult   = "/api/v1/search/live/twitter/result/"
	endpointAnalysis      = "/api/v1/search/analysis"
	defaultRequestTimeout = 15 * time.Second
)

// ErrUnavailable marks external-call failures: the upstream could not be
// reached or answered with a non-2xx status.
var ErrUnavailable = errors.New("masa: upstream unavailable")

// ErrBadResponse marks upstream contract violations: a 2xx answer whose
// body is missing required fields or cannot be parsed.
var ErrBadResponse = errors.New("masa: upstream contract violation")

// Config carries the credentials and connection settings for the client.
// It is constructed once at startup and passed in explicitly; the package
// never reads the environment itself.
type Config struct {
	// BaseURL overrides DefaultBaseURL (useful for tests).
	BaseURL string

	// APIKey is the bearer token for the Authorization header.
	APIKey string

	// Timeout bounds each request. Defaults to 15s.
	Timeout time.Duration
}

// Client calls the Masa API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Masa API client from the given config.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ScrapeJSON fetches a page that serves JSON and returns the raw document.
func (c *Client) ScrapeJSON(ctx context.Context, pageURL string) (json.RawMessage, error) {
	payload := map[string]interface{}{"url": pageURL, "format": "json"}
	var raw json.RawMessage
	if err := c.post(ctx, endpointScrape, payload, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ScrapeText fetches a page as rendered text and returns its content.
func (c *Client) ScrapeText(ctx context.Context, pageURL string) (string, error) {
	payload := map[string]interface{}{"url": pageURL, "format": "text"}
	var resp struct {
		Content *string `json:"content"`
	}
	if err := c.post(ctx, endpointScrape, payload, &resp); err != nil {
		return "", err
	}
	if resp.Content == nil {
		return "", fmt.Errorf("%w: scrape response missing content field", ErrBadResponse)
	}
	return *resp.Content, nil
}

// Tweet is a single social-search result.
type Tweet struct {
	Text string `json:"text"`
}

// SubmitTweetSearch starts a social search for the given query and returns
// the job id to poll with TweetSearchResult.
func (c *Client) SubmitTweetSearch(ctx context.Context, query string, maxResults int) (string, error) {
	payload := map[string]interface{}{"query": query, "max_results": maxResults}
	var resp struct {
		UUID string `json:"uuid"`
	}
	if err := c.post(ctx, endpointTweetSearch, payload, &resp); err != nil {
		return "", err
	}
	if resp.UUID == "" {
		return "", fmt.Errorf("%w: search submission missing job uuid", ErrBadResponse)
	}
	return resp.UUID, nil
}

// TweetSearchResult retrieves the results of a submitted social search.
func (c *Client) TweetSearchResult(ctx context.Context, jobID string) ([]Tweet, error) {
	var resp struct {
		Results []Tweet `json:"results"`
	}
	if err := c.post(ctx, endpointTweetResult+jobID, map[string]interface{}{}, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// AnalyzeScore submits free text with an analysis prompt and returns the
// provider's derived score. The result field may arrive as a JSON string or
// number; anything else is a contract violation.
func (c *Client) AnalyzeScore(ctx context.Context, text, prompt string) (float64, error) {
	payload := map[string]interface{}{"tweets": text, "prompt": prompt}
	var resp struct {
		Result json.RawMessage `json:"result"`
	}
	if err := c.post(ctx, endpointAnalysis, payload, &resp); err != nil {
		return 0, err
	}
	if len(resp.Result) == 0 {
		return 0, fmt.Errorf("%w: analysis response missing result field", ErrBadResponse)
	}

	var asNumber float64
	if err := json.Unmarshal(resp.Result, &asNumber); err == nil {
		return asNumber, nil
	}
	var asString string
	if err := json.Unmarshal(resp.Result, &asString); err == nil {
		score, err := strconv.ParseFloat(asString, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: analysis result %q is not numeric", ErrBadResponse, asString)
		}
		return score, nil
	}
	return 0, fmt.Errorf("%w: analysis result has unexpected type", ErrBadResponse)
}

// post sends an authenticated JSON POST and decodes the response into out.
func (c *Client) post(ctx context.Context, endpoint string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: post %s: %v", ErrUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s response: %v", ErrUnavailable, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s returned status %d", ErrUnavailable, endpoint, resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: unmarshal %s response: %v", ErrBadResponse, endpoint, err)
	}
	return nil
}
