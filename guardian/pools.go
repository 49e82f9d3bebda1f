package guardian

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// maxPoolResults caps the records returned from one scan.
const maxPoolResults = 10

// PageScraper fetches a page's rendered text. Satisfied by *masa.Client.
type PageScraper interface {
	ScrapeText(ctx context.Context, pageURL string) (string, error)
}

// ParseFunc extracts pool records from one source's scraped text. Parsers
// are best-effort: lines that don't match the source's layout are skipped,
// never errors.
type ParseFunc func(content string) []PoolRecord

// PoolSource is one listings page and its extraction rules.
type PoolSource struct {
	Name  string
	URL   string
	Parse ParseFunc
}

// DefaultPoolSources returns the fixed set of pages the scanner visits.
func DefaultPoolSources() []PoolSource {
	return []PoolSource{
		{Name: "defillama", URL: "https://defillama.com/yields", Parse: ParseDefiLlamaYields},
		{Name: "uniswap", URL: "https://app.uniswap.org/pools", Parse: ParseUniswapPools},
	}
}

// PoolScanner discovers liquidity pools by re-scraping its sources on every
// call. Nothing is cached or persisted between scans.
type PoolScanner struct {
	scraper PageScraper
	sources []PoolSource
}

// NewPoolScanner creates a scanner over the given sources, or the default
// set when none are given.
func NewPoolScanner(scraper PageScraper, sources ...PoolSource) *PoolScanner {
	if len(sources) == 0 {
		sources = DefaultPoolSources()
	}
	return &PoolScanner{scraper: scraper, sources: sources}
}

// FindLiquidityPools scrapes every source, concatenates the parsed records
// in source order, filters to apr >= minAPR, and truncates to the first 10.
// Records keep parse order; no ranking is applied.
//
// Source isolation: best-effort. A failed source is logged and skipped so
// one unreachable page doesn't blank the whole scan; the call fails only
// when every source fails.
func (s *PoolScanner) FindLiquidityPools(ctx context.Context, minAPR float64) ([]PoolRecord, error) {
	var pools []PoolRecord
	var failures []error

	for _, source := range s.sources {
		content, err := s.scraper.ScrapeText(ctx, source.URL)
		if err != nil {
			log.Printf("[SCANNER] source %s failed: %v", source.Name, err)
			failures = append(failures, fmt.Errorf("%s: %w", source.Name, err))
			continue
		}
		records := source.Parse(content)
		log.Printf("[SCANNER] source %s yielded %d pools", source.Name, len(records))
		pools = append(pools, records...)
	}

	if len(failures) == len(s.sources) {
		return nil, fmt.Errorf("all pool sources failed: %w", errors.Join(failures...))
	}

	filtered := pools[:0]
	for _, p := range pools {
		if p.APR >= minAPR {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) > maxPoolResults {
		filtered = filtered[:maxPoolResults]
	}
	return filtered, nil
}
