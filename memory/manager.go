package memory

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/defiguardian/guardian/core"
)

// SimpleManager is the built-in Manager. It embeds memories with the
// configured embedder, stores them in the configured store, and retrieves
// by vector similarity. Good enough for a single guardian instance; a
// production deployment can swap in its own Manager.
type SimpleManager struct {
	store    Store
	embedder Embedder
	config   *Config
}

// NewSimpleManager creates a SimpleManager. A nil config gets defaults.
func NewSimpleManager(store Store, embedder Embedder, config *Config) *SimpleManager {
	if config == nil {
		config = DefaultConfig
	}
	return &SimpleManager{
		store:    store,
		embedder: embedder,
		config:   config,
	}
}

// Retrieve finds relevant memories and returns a formatted prompt block.
func (m *SimpleManager) Retrieve(ctx context.Context, userID string, userMessage string) (string, error) {
	if !m.config.Enabled {
		return "", nil
	}

	embedding, err := m.embedder.Embed(ctx, userMessage)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}

	memories, err := m.store.Query(ctx, userID, embedding, m.config.RetrievalLimit)
	if err != nil {
		return "", fmt.Errorf("query store: %w", err)
	}

	log.Printf("[MEMORY] Retrieved %d memories for query: %q", len(memories), truncateLog(userMessage, 50))
	if len(memories) == 0 {
		return "", nil
	}

	return m.formatMemories(memories, userID, userMessage), nil
}

// RecordTraces stores the traces worth keeping from one run.
func (m *SimpleManager) RecordTraces(ctx context.Context, userID string, traces []*core.Trace) error {
	if !m.config.Enabled {
		return nil
	}

	storable := m.filterStorableTraces(traces)
	if len(storable) == 0 {
		return nil
	}

	log.Printf("[MEMORY] Recording %d traces (filtered from %d)", len(storable), len(traces))

	for i, trace := range storable {
		mem := NewTraceMemory(userID, trace.SessionID, trace)

		embedding, err := m.embedder.Embed(ctx, mem.FormatForEmbedding())
		if err != nil {
			log.Printf("[MEMORY] Failed to embed trace #%d: %v", i+1, err)
			continue
		}
		mem.SetEmbedding(embedding)

		if err := m.store.Store(ctx, mem); err != nil {
			log.Printf("[MEMORY] Failed to store trace #%d: %v", i+1, err)
			continue
		}
	}
	return nil
}

// RecordConversation stores a user/assistant exchange.
func (m *SimpleManager) RecordConversation(ctx context.Context, userID string, userMessage string, assistantResponse string) error {
	if !m.config.Enabled {
		return nil
	}
	// Skip trivial exchanges; short answers carry no reusable context.
	if len(assistantResponse) < 80 {
		return nil
	}

	mem := NewExchangeMemory(userID, userMessage, assistantResponse)
	embedding, err := m.embedder.Embed(ctx, mem.FormatForEmbedding())
	if err != nil {
		return fmt.Errorf("embed exchange: %w", err)
	}
	mem.SetEmbedding(embedding)

	if err := m.store.Store(ctx, mem); err != nil {
		return fmt.Errorf("store exchange: %w", err)
	}
	return nil
}

// formatMemories builds the prompt block from retrieved memories.
func (m *SimpleManager) formatMemories(memories []Memory, userID string, query string) string {
	var parts []string
	parts = append(parts, "=== RELEVANT PAST ANALYSES ===\n")

	maxLengthPerMemory := 2000 / len(memories)
	if maxLengthPerMemory < 100 {
		maxLengthPerMemory = 100
	}

	for i, mem := range memories {
		formatted := mem.Format(FormatContext{
			UserID:    userID,
			Query:     query,
			MaxLength: maxLengthPerMemory,
		})
		parts = append(parts, fmt.Sprintf("%d. %s\n", i+1, formatted))
	}

	return strings.Join(parts, "\n")
}

// filterStorableTraces selects traces worth keeping. All guardian tools are
// analyses, so successful runs are stored; so are failures, since the agent
// should remember that a source was down or an input was rejected.
func (m *SimpleManager) filterStorableTraces(traces []*core.Trace) []*core.Trace {
	if len(traces) > 1 {
		return traces
	}

	if len(traces) == 1 {
		trace := traces[0]

		if !trace.Success {
			return traces
		}

		analysisActions := []string{
			"assess_portfolio_risk",
			"find_liquidity_pools",
		}
		for _, action := range analysisActions {
			if trace.Action == action {
				return traces
			}
		}

		// A substantive thought means the model reasoned about the lookup.
		if len(trace.Thought) > 30 {
			return traces
		}

		// Skip bare metric lookups; they go stale in minutes.
	}

	return nil
}

func truncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Config holds SimpleManager settings.
type Config struct {
	// Enabled toggles the memory system. Default off.
	Enabled bool

	// RetrievalLimit caps memories returned per query.
	RetrievalLimit int

	// MaxMemoriesPerUser caps stored memories per user.
	MaxMemoriesPerUser int
}

// DefaultConfig is used when no config is given.
var DefaultConfig = &Config{
	Enabled:            false,
	RetrievalLimit:     10,
	MaxMemoriesPerUser: 1000,
}
