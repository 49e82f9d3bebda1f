package core

import (
	"encoding/json"
	"fmt"
)

// Trace records one Thought-Action-Observation cycle of the agent loop.
// Traces feed the audit log and, when memory is enabled, are stored so the
// agent can recall which tokens and pools a user has analyzed before.
type Trace struct {
	ID          string
	SessionID   string
	TurnNumber  int
	Thought     string
	Action      string
	ActionInput json.RawMessage
	Observation string
	Success     bool
	Timestamp   int64
	Metadata    map[string]string
}

func (t *Trace) String() string {
	status := "ok"
	if !t.Success {
		status = "failed"
	}
	return fmt.Sprintf("turn=%d action=%s status=%s thought=%q observation=%q",
		t.TurnNumber, t.Action, status, t.Thought, t.Observation)
}
