package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/defiguardian/guardian/core"
)

// TraceMemory stores one tool trace (thought, action, observation) so the
// agent can recall what it concluded about a portfolio or token before.
type TraceMemory struct {
	id             string
	ownerID        string
	conversationID string
	createdAt      time.Time
	embedding      []float32
	metadata       map[string]interface{}

	Thought     string
	Action      string
	Observation string
	Success     bool
}

// NewTraceMemory creates a TraceMemory from a core.Trace.
func NewTraceMemory(ownerID string, conversationID string, trace *core.Trace) *TraceMemory {
	metadata := map[string]interface{}{
		"action":  trace.Action,
		"success": trace.Success,
	}
	for k, v := range trace.Metadata {
		metadata[k] = v
	}

	return &TraceMemory{
		id:             uuid.New().String(),
		ownerID:        ownerID,
		conversationID: conversationID,
		createdAt:      time.Now(),
		metadata:       metadata,
		Thought:        trace.Thought,
		Action:         trace.Action,
		Observation:    trace.Observation,
		Success:        trace.Success,
	}
}

// NewTraceMemoryFromStorage rebuilds a TraceMemory from stored fields.
// Store implementations use this when deserializing.
func NewTraceMemoryFromStorage(
	id string,
	ownerID string,
	conversationID string,
	createdAt time.Time,
	embedding []float32,
	thought string,
	action string,
	observation string,
	success bool,
	metadata map[string]interface{},
) *TraceMemory {
	return &TraceMemory{
		id:             id,
		ownerID:        ownerID,
		conversationID: conversationID,
		createdAt:      createdAt,
		embedding:      embedding,
		metadata:       metadata,
		Thought:        thought,
		Action:         action,
		Observation:    observation,
		Success:        success,
	}
}

func (t *TraceMemory) ID() string             { return t.id }
func (t *TraceMemory) OwnerID() string        { return t.ownerID }
func (t *TraceMemory) ConversationID() string { return t.conversationID }
func (t *TraceMemory) Type() string           { return "trace" }

func (t *TraceMemory) Content() interface{} {
	return map[string]interface{}{
		"thought":     t.Thought,
		"action":      t.Action,
		"observation": t.Observation,
		"success":     t.Success,
	}
}

func (t *TraceMemory) Metadata() map[string]interface{} { return t.metadata }
func (t *TraceMemory) CreatedAt() time.Time             { return t.createdAt }
func (t *TraceMemory) Embedding() []float32             { return t.embedding }
func (t *TraceMemory) SetEmbedding(emb []float32)       { t.embedding = emb }

// Format renders this trace for prompt injection.
func (t *TraceMemory) Format(ctx FormatContext) string {
	var parts []string

	status := "Success"
	if !t.Success {
		status = "Failed"
	}
	parts = append(parts, fmt.Sprintf("[%s] %s (%s)", status, t.Action, t.createdAt.Format("2006-01-02")))

	if len(t.Thought) > 0 {
		parts = append(parts, fmt.Sprintf("  Thought: %q", truncate(t.Thought, ctx.MaxLength/4)))
	}
	if len(t.Observation) > 0 {
		parts = append(parts, fmt.Sprintf("  Result: %q", truncate(t.Observation, ctx.MaxLength/2)))
	}
	if !t.Success {
		if errType, ok := t.metadata["error_type"]; ok {
			parts = append(parts, fmt.Sprintf("  Failure: %v", errType))
		}
	}

	return strings.Join(parts, "\n")
}

// FormatForEmbedding returns the text representation used for embedding.
func (t *TraceMemory) FormatForEmbedding() string {
	return fmt.Sprintf("Thought: %s\nAction: %s\nObservation: %s",
		t.Thought, t.Action, t.Observation)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
