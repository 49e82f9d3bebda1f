package memory

import (
	"context"
	"time"

	"github.com/defiguardian/guardian/core"
)

// Memory is one stored item. Implementations control their own content
// structure and how they render into the prompt.
type Memory interface {
	ID() string
	OwnerID() string        // user id; empty means global
	ConversationID() string // empty when not conversation-specific
	Type() string           // e.g. "trace", "exchange"

	Content() interface{}
	Metadata() map[string]interface{}

	CreatedAt() time.Time

	// Format renders this memory for prompt injection.
	Format(ctx FormatContext) string
	Embedding() []float32
	SetEmbedding([]float32)
}

// FormatContext tells a memory how much room it has and for whom.
type FormatContext struct {
	UserID    string
	Query     string
	MaxLength int
}

// Manager orchestrates memory operations for the engine. The engine decides
// WHEN (retrieve before the run, record after), the manager decides HOW:
// what to keep, how to rank it, how to format it.
type Manager interface {
	// Retrieve finds memories relevant to the user's message and returns
	// a formatted block ready for prompt injection, or "" when nothing
	// useful is stored.
	Retrieve(ctx context.Context, userID string, userMessage string) (string, error)

	// RecordTraces stores the run's tool traces worth remembering.
	RecordTraces(ctx context.Context, userID string, traces []*core.Trace) error

	// RecordConversation stores a user/assistant exchange, so advice given
	// without tool calls is still recallable later.
	RecordConversation(ctx context.Context, userID string, userMessage string, assistantResponse string) error
}

// Store is the vector storage backend.
type Store interface {
	// Store saves a memory. The embedding must be set before calling.
	Store(ctx context.Context, mem Memory) error

	// Query returns memories by vector similarity, most similar first.
	Query(ctx context.Context, userID string, embedding []float32, limit int) ([]Memory, error)

	// Close releases resources.
	Close() error
}

// Embedder converts text to vectors. It is an implementation detail of the
// manager; the engine never sees it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}
