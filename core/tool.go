package core

import (
	"context"
	"encoding/json"
)

// Tool is a capability the agent can invoke. All guardian tools are
// read-only analytics; there is no write/confirmation path.
type Tool interface {
	// Name returns the tool's unique identifier (e.g. "assess_portfolio_risk").
	Name() string

	// Description returns the tool description shown to the model.
	Description() string

	// InputSchema returns the JSON Schema for the tool's input object.
	InputSchema() map[string]interface{}

	// Execute runs the tool. A non-nil error is an infrastructure failure;
	// domain failures are reported via ToolResult.Error with Success=false.
	Execute(ctx context.Context, params *ToolParams) (*ToolResult, error)
}

// ToolParams carries the input of a single tool invocation.
type ToolParams struct {
	// UserID identifies the requesting user for namespacing and audit.
	UserID string

	// Input is the raw JSON input object produced by the model or the
	// dashboard's direct command dispatch.
	Input json.RawMessage

	// RequestID correlates the invocation with its session.
	RequestID string
}

// ToolResult is the outcome of a tool invocation.
type ToolResult struct {
	Success bool
	Data    interface{}
	Error   string
}
