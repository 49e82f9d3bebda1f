package core

// BaseInput provides the common field shared by all tool inputs.
// Tools embed this struct to accept the agent's ReAct thought alongside
// their own parameters. All guardian tools are read-only, so the thought
// is always optional.
type BaseInput struct {
	// Thought contains the agent's reasoning about why it's using this tool.
	Thought string `json:"thought,omitempty"`
}
