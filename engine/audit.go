package engine

import (
	"context"
	"encoding/json"
	"log"
)

// AuditEntry records one tool invocation for compliance review.
type AuditEntry struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	SessionID  string          `json:"session_id"`
	RequestID  string          `json:"request_id"`
	AgentName  string          `json:"agent_name"`
	ToolName   string          `json:"tool_name"`
	ToolInput  json.RawMessage `json:"tool_input,omitempty"`
	ToolOutput json.RawMessage `json:"tool_output,omitempty"`
	Error      *string         `json:"error,omitempty"`
	DurationMs int64           `json:"duration_ms"`
	Timestamp  int64           `json:"timestamp"`
}

// AuditLogger receives an entry for every tool invocation.
type AuditLogger interface {
	Log(ctx context.Context, entry *AuditEntry)
}

// LogAuditLogger writes audit entries to the process log.
type LogAuditLogger struct{}

// Log implements AuditLogger.
func (LogAuditLogger) Log(ctx context.Context, entry *AuditEntry) {
	status := "ok"
	if entry.Error != nil {
		status = "error=" + *entry.Error
	}
	log.Printf("[AUDIT] user=%s session=%s tool=%s duration=%dms %s",
		entry.UserID, entry.SessionID, entry.ToolName, entry.DurationMs, status)
}
