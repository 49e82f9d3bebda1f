package core

import (
	"encoding/json"
	"time"
)

// Context carries user identity and execution limits through an agent run.
type Context struct {
	// UserID identifies the requesting user.
	UserID string

	// ConversationID groups runs belonging to one dashboard session.
	ConversationID string

	// Limits bounds the run. Nil means engine defaults.
	Limits *ExecutionLimits
}

// ExecutionLimits bounds a single agent run.
type ExecutionLimits struct {
	// MaxTurns caps model round-trips within one run.
	MaxTurns int

	// Timeout bounds the whole run, including all outbound calls.
	Timeout time.Duration
}

// Message is a persisted conversation message.
type Message struct {
	Role   string // "user" or "assistant"
	Blocks []ContentBlock
}

// ContentBlock is one block of a persisted message.
type ContentBlock struct {
	Type string // "text", "tool_use" or "tool_result"

	// Text is set for text blocks.
	Text string

	// ID and Name are set for tool_use blocks; Input holds the tool input.
	ID    string
	Name  string
	Input json.RawMessage

	// ToolUseID and IsError are set for tool_result blocks; the result
	// content is carried in Text.
	ToolUseID string
	IsError   bool
}

// NewTextBlock builds a text content block.
func NewTextBlock(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// NewToolUseBlock builds a tool_use content block.
func NewToolUseBlock(id, name string, input json.RawMessage) ContentBlock {
	return ContentBlock{Type: "tool_use", ID: id, Name: name, Input: input}
}

// TokenUsage tracks model token consumption for a run.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// ToolExecution records one tool invocation for the run output.
type ToolExecution struct {
	Tool       string
	Input      interface{}
	Result     interface{}
	Error      string
	DurationMs int64
}
