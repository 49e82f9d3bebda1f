package engine

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"

	"github.com/defiguardian/guardian/core"
)

// Session accumulates the message history and traces of one agent run.
type Session struct {
	ID             string
	UserID         string
	ConversationID string
	TurnCount      int
	Traces         []*core.Trace

	messages []anthropic.MessageParam
}

// NewSession creates a session with a fresh id.
func NewSession(userID, conversationID string) *Session {
	return &Session{
		ID:             uuid.New().String(),
		UserID:         userID,
		ConversationID: conversationID,
	}
}

// Messages returns the accumulated API message history.
func (s *Session) Messages() []anthropic.MessageParam {
	return s.messages
}

// IncrementTurnCount advances the turn counter.
func (s *Session) IncrementTurnCount() {
	s.TurnCount++
}

// AddTrace appends a completed trace.
func (s *Session) AddTrace(trace *core.Trace) {
	s.Traces = append(s.Traces, trace)
}

// AddUserMessage appends a plain-text user message.
func (s *Session) AddUserMessage(text string) {
	s.messages = append(s.messages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
}

// AddAssistantMessage appends a plain-text assistant message.
func (s *Session) AddAssistantMessage(text string) {
	s.messages = append(s.messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)))
}

// AddAssistantResponse appends a full model response, including tool_use
// blocks, so the next turn can carry the matching tool results.
func (s *Session) AddAssistantResponse(resp *anthropic.Message) {
	s.messages = append(s.messages, resp.ToParam())
}

// AddToolResults appends tool result blocks as a user message.
func (s *Session) AddToolResults(results []anthropic.ContentBlockParamUnion) {
	s.messages = append(s.messages, anthropic.NewUserMessage(results...))
}

// RestoreHistory rebuilds the message list from persisted messages.
func (s *Session) RestoreHistory(history []core.Message) {
	for _, msg := range history {
		var blocks []anthropic.ContentBlockParamUnion
		for _, b := range msg.Blocks {
			switch b.Type {
			case "text":
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			case "tool_use":
				blocks = append(blocks, anthropic.NewToolUseBlock(b.ID, json.RawMessage(b.Input), b.Name))
			case "tool_result":
				blocks = append(blocks, anthropic.NewToolResultBlock(b.ToolUseID, b.Text, b.IsError))
			}
		}
		if len(blocks) == 0 {
			continue
		}
		switch msg.Role {
		case "assistant":
			s.messages = append(s.messages, anthropic.NewAssistantMessage(blocks...))
		default:
			s.messages = append(s.messages, anthropic.NewUserMessage(blocks...))
		}
	}
}
