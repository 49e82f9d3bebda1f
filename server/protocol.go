package server

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/defiguardian/guardian/guardian"
)

// Command names accepted over the wire, both as structured messages and as
// tagged command strings embedded in chat text.
const (
	CommandAssessRisk = "assess_portfolio_risk"
	CommandFindPools  = "find_liquidity_pools"
	CommandGetMetrics = "get_token_metrics"
)

// ClientMessage is one inbound dashboard message.
//
// Type "chat" runs the agent over Text. Type "command" dispatches one of the
// three operations directly, skipping the model round-trip, so the dashboard
// can render widgets cheaply.
type ClientMessage struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Command string `json:"command,omitempty"`

	Portfolio guardian.Portfolio `json:"portfolio,omitempty"`
	MinAPR    *float64           `json:"min_apr,omitempty"`
	Symbol    string             `json:"symbol,omitempty"`
}

// ServerMessage is one outbound message. "chunk" carries streamed agent
// text, "result" a final answer (Text for chat, Data for commands), and
// "error" a failure the UI should display.
type ServerMessage struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// ParseTaggedCommand recognizes legacy tagged command strings:
//
//	ASSESS_PORTFOLIO_RISK {"bitcoin": {"amount": 2}}
//	FIND_LIQUIDITY_POOLS 0.25
//	GET_TOKEN_METRICS bitcoin
//
// It returns the equivalent structured message, or ok=false when the text is
// ordinary chat.
func ParseTaggedCommand(text string) (*ClientMessage, bool) {
	trimmed := strings.TrimSpace(text)

	switch {
	case strings.HasPrefix(trimmed, "ASSESS_PORTFOLIO_RISK"):
		arg := strings.TrimSpace(strings.TrimPrefix(trimmed, "ASSESS_PORTFOLIO_RISK"))
		portfolio, err := guardian.DecodePortfolio([]byte(arg))
		if err != nil {
			return nil, false
		}
		return &ClientMessage{Type: "command", Command: CommandAssessRisk, Portfolio: portfolio}, true

	case strings.HasPrefix(trimmed, "FIND_LIQUIDITY_POOLS"):
		arg := strings.TrimSpace(strings.TrimPrefix(trimmed, "FIND_LIQUIDITY_POOLS"))
		msg := &ClientMessage{Type: "command", Command: CommandFindPools}
		if arg != "" {
			minAPR, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				return nil, false
			}
			msg.MinAPR = &minAPR
		}
		return msg, true

	case strings.HasPrefix(trimmed, "GET_TOKEN_METRICS"):
		arg := strings.TrimSpace(strings.TrimPrefix(trimmed, "GET_TOKEN_METRICS"))
		if arg == "" || strings.ContainsAny(arg, " \t") {
			return nil, false
		}
		return &ClientMessage{Type: "command", Command: CommandGetMetrics, Symbol: arg}, true
	}

	return nil, false
}

// resultMessage wraps a payload as a result message.
func resultMessage(payload interface{}) (*ServerMessage, error) {
	data, err := guardian.EncodeJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &ServerMessage{Type: "result", Data: data}, nil
}

// errorMessage wraps an error as an error message.
func errorMessage(err error) *ServerMessage {
	return &ServerMessage{Type: "error", Error: err.Error()}
}
