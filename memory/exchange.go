package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ExchangeMemory stores one user/assistant exchange. It captures advice the
// agent gave without calling tools, e.g. general guidance on a portfolio.
type ExchangeMemory struct {
	id        string
	ownerID   string
	createdAt time.Time
	embedding []float32

	UserMessage string
	Response    string
}

// NewExchangeMemory creates an ExchangeMemory.
func NewExchangeMemory(ownerID, userMessage, response string) *ExchangeMemory {
	return &ExchangeMemory{
		id:          uuid.New().String(),
		ownerID:     ownerID,
		createdAt:   time.Now(),
		UserMessage: userMessage,
		Response:    response,
	}
}

// NewExchangeMemoryFromStorage rebuilds an ExchangeMemory from stored fields.
func NewExchangeMemoryFromStorage(id, ownerID string, createdAt time.Time, embedding []float32, userMessage, response string) *ExchangeMemory {
	return &ExchangeMemory{
		id:          id,
		ownerID:     ownerID,
		createdAt:   createdAt,
		embedding:   embedding,
		UserMessage: userMessage,
		Response:    response,
	}
}

func (e *ExchangeMemory) ID() string             { return e.id }
func (e *ExchangeMemory) OwnerID() string        { return e.ownerID }
func (e *ExchangeMemory) ConversationID() string { return "" }
func (e *ExchangeMemory) Type() string           { return "exchange" }

func (e *ExchangeMemory) Content() interface{} {
	return map[string]interface{}{
		"user_message": e.UserMessage,
		"response":     e.Response,
	}
}

func (e *ExchangeMemory) Metadata() map[string]interface{} { return nil }
func (e *ExchangeMemory) CreatedAt() time.Time             { return e.createdAt }
func (e *ExchangeMemory) Embedding() []float32             { return e.embedding }
func (e *ExchangeMemory) SetEmbedding(emb []float32)       { e.embedding = emb }

// Format renders this exchange for prompt injection.
func (e *ExchangeMemory) Format(ctx FormatContext) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[Exchange] %s", e.createdAt.Format("2006-01-02")))
	parts = append(parts, fmt.Sprintf("  User: %q", truncate(e.UserMessage, ctx.MaxLength/3)))
	parts = append(parts, fmt.Sprintf("  Response: %q", truncate(e.Response, ctx.MaxLength/2)))
	return strings.Join(parts, "\n")
}

// FormatForEmbedding returns the text representation used for embedding.
func (e *ExchangeMemory) FormatForEmbedding() string {
	return fmt.Sprintf("User: %s\nAssistant: %s", e.UserMessage, e.Response)
}
