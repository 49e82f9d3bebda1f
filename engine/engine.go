// Package engine runs the guardian's agent loop: it sends the conversation
// to Claude, executes the tool calls the model makes, and feeds the results
// back until the model answers in plain text.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"

	"github.com/defiguardian/guardian/core"
	"github.com/defiguardian/guardian/memory"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 4096
	defaultMaxTurns  = 10
)

// Engine executes agent runs against a tool registry.
type Engine struct {
	client     *anthropic.Client
	registry   *ToolRegistry
	guardrails Guardrails     // optional per-user rate limiting
	audit      AuditLogger    // optional audit logging
	memory     memory.Manager // optional memory for past analyses
}

// Option configures the engine.
type Option func(*Engine)

// WithGuardrails sets the guardrails implementation.
func WithGuardrails(g Guardrails) Option {
	return func(e *Engine) { e.guardrails = g }
}

// WithAudit sets the audit logger.
func WithAudit(a AuditLogger) Option {
	return func(e *Engine) { e.audit = a }
}

// WithMemory sets the memory manager.
func WithMemory(m memory.Manager) Option {
	return func(e *Engine) { e.memory = m }
}

// NewEngine creates an engine over the given Anthropic client and registry.
func NewEngine(client *anthropic.Client, registry *ToolRegistry, opts ...Option) *Engine {
	e := &Engine{client: client, registry: registry}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the engine's tool registry.
func (e *Engine) Registry() *ToolRegistry {
	return e.registry
}

// Input is one agent run request.
type Input struct {
	// UserMessage is the user's message to process.
	UserMessage string

	// Context carries user identity and execution limits.
	Context *core.Context

	// History contains previous messages in the conversation.
	History []core.Message

	// SystemPrompt overrides the default system prompt.
	SystemPrompt string

	// Model overrides the default Claude model.
	Model string

	// MaxTokens overrides the default response token cap.
	MaxTokens int64

	// AgentName identifies the agent for audit logging.
	AgentName string

	// AvailableTools filters the registry. Empty means all tools.
	AvailableTools []string

	// StreamCallback, when set, receives response text as it arrives.
	StreamCallback func(chunk string, done bool)
}

// Output is the result of an agent run.
type Output struct {
	Type           OutputType
	Text           string
	ToolsUsed      []core.ToolExecution
	ResponseBlocks []core.ContentBlock
	TokensUsed     core.TokenUsage
	Error          error
}

// OutputType indicates the kind of output from a run.
type OutputType int

const (
	// OutputComplete indicates the agent finished successfully.
	OutputComplete OutputType = iota

	// OutputError indicates an error occurred.
	OutputError
)

// Run executes the agent loop until the model stops calling tools.
func (e *Engine) Run(ctx context.Context, input *Input) (*Output, error) {
	userID := ""
	conversationID := ""
	if input.Context != nil {
		userID = input.Context.UserID
		conversationID = input.Context.ConversationID
	}

	if e.guardrails != nil {
		result, err := e.guardrails.Check(ctx, userID)
		if err != nil {
			return &Output{Type: OutputError, Error: fmt.Errorf("guardrails check failed: %w", err)}, nil
		}
		if !result.Allowed {
			return &Output{Type: OutputError, Error: fmt.Errorf("request blocked: %s", result.Warning)}, nil
		}
	}

	// Retrieve memories of past analyses and fold them into the prompt.
	var enrichment string
	if e.memory != nil && input.UserMessage != "" {
		var err error
		enrichment, err = e.memory.Retrieve(ctx, userID, input.UserMessage)
		if err != nil {
			log.Printf("[MEMORY] retrieval failed: %v", err)
			enrichment = "" // non-fatal
		}
	}

	model := input.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := input.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	systemPrompt := input.SystemPrompt
	if enrichment != "" {
		systemPrompt += "\n\n" + enrichment
	}

	maxTurns := defaultMaxTurns
	if input.Context != nil && input.Context.Limits != nil {
		if input.Context.Limits.MaxTurns > 0 {
			maxTurns = input.Context.Limits.MaxTurns
		}
		if input.Context.Limits.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, input.Context.Limits.Timeout)
			defer cancel()
		}
	}

	session := NewSession(userID, conversationID)
	session.RestoreHistory(input.History)
	if input.UserMessage != "" {
		session.AddUserMessage(input.UserMessage)
	}

	var apiTools []anthropic.ToolUnionParam
	if len(input.AvailableTools) > 0 {
		apiTools = e.registry.ToAPIToolsFiltered(FilterByNames(input.AvailableTools...))
	} else {
		apiTools = e.registry.ToAPITools()
	}

	agentName := input.AgentName
	if agentName == "" {
		agentName = "guardian"
	}

	var totalTokens core.TokenUsage

	for {
		if ctx.Err() != nil {
			return &Output{
				Type:       OutputError,
				Error:      fmt.Errorf("timed out: %w", ctx.Err()),
				TokensUsed: totalTokens,
			}, nil
		}
		if session.TurnCount >= maxTurns {
			return &Output{
				Type:       OutputError,
				Error:      fmt.Errorf("exceeded maximum turns (%d)", maxTurns),
				TokensUsed: totalTokens,
			}, nil
		}
		session.IncrementTurnCount()

		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: maxTokens,
			Messages:  session.Messages(),
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt},
			},
		}
		if len(apiTools) > 0 {
			params.Tools = apiTools
		}

		var resp *anthropic.Message
		var err error
		if input.StreamCallback != nil {
			resp, err = e.createMessageStreaming(ctx, params, input.StreamCallback)
		} else {
			resp, err = e.client.Messages.New(ctx, params)
		}
		if err != nil {
			return &Output{
				Type:       OutputError,
				Error:      fmt.Errorf("claude API error: %w", err),
				TokensUsed: totalTokens,
			}, err
		}

		totalTokens.InputTokens += int(resp.Usage.InputTokens)
		totalTokens.OutputTokens += int(resp.Usage.OutputTokens)

		var toolResults []anthropic.ContentBlockParamUnion
		var textResponse string
		var toolsUsed []core.ToolExecution

		for _, block := range resp.Content {
			switch block.Type {
			case "text":
				textResponse += block.Text

			case "tool_use":
				result := e.executeToolUse(ctx, session, agentName, block)
				toolResults = append(toolResults, result.apiBlock)
				if result.execution != nil {
					toolsUsed = append(toolsUsed, *result.execution)
				}
			}
		}

		// No tool calls means the model is done.
		if len(toolResults) == 0 {
			session.AddAssistantMessage(textResponse)
			if input.StreamCallback != nil {
				input.StreamCallback("", true)
			}
			if e.guardrails != nil {
				e.guardrails.RecordSuccess(ctx, userID)
			}
			e.recordMemories(ctx, session, userID, input.UserMessage, textResponse)

			return &Output{
				Type:           OutputComplete,
				Text:           textResponse,
				ToolsUsed:      toolsUsed,
				ResponseBlocks: responseToBlocks(resp),
				TokensUsed:     totalTokens,
			}, nil
		}

		session.AddAssistantResponse(resp)
		session.AddToolResults(toolResults)
	}
}

// toolUseOutcome bundles the API result block and the execution record for
// one tool_use block.
type toolUseOutcome struct {
	apiBlock  anthropic.ContentBlockParamUnion
	execution *core.ToolExecution
}

func (e *Engine) executeToolUse(ctx context.Context, session *Session, agentName string, block anthropic.ContentBlockUnion) toolUseOutcome {
	toolName := block.Name

	var baseInput core.BaseInput
	if err := json.Unmarshal(block.Input, &baseInput); err != nil {
		return toolUseOutcome{
			apiBlock: anthropic.NewToolResultBlock(block.ID, fmt.Sprintf("invalid tool input JSON: %s", err), true),
		}
	}
	thought := strings.TrimSpace(baseInput.Thought)

	tool, ok := e.registry.Get(toolName)
	if !ok {
		return toolUseOutcome{
			apiBlock: anthropic.NewToolResultBlock(block.ID, fmt.Sprintf("unknown tool: %s", toolName), true),
		}
	}

	inputBytes := json.RawMessage(block.Input)
	trace := &core.Trace{
		ID:          uuid.New().String(),
		SessionID:   session.ID,
		TurnNumber:  session.TurnCount,
		Thought:     thought,
		Action:      toolName,
		ActionInput: inputBytes,
		Timestamp:   time.Now().Unix(),
		Metadata:    make(map[string]string),
	}

	startTime := time.Now()
	result, err := tool.Execute(ctx, &core.ToolParams{
		UserID:    session.UserID,
		Input:     inputBytes,
		RequestID: session.ID,
	})
	durationMs := time.Since(startTime).Milliseconds()

	execution := &core.ToolExecution{
		Tool:       toolName,
		Input:      json.RawMessage(inputBytes),
		DurationMs: durationMs,
	}

	trace.Success = err == nil && result != nil && result.Success
	trace.Observation = formatObservation(result, err)
	if !trace.Success {
		if err != nil {
			trace.Metadata["error"] = err.Error()
			execution.Error = err.Error()
		} else if result != nil && !result.Success {
			trace.Metadata["error"] = result.Error
			execution.Error = result.Error
		}
		trace.Metadata["error_type"] = categorizeError(trace.Metadata["error"])
	}
	session.AddTrace(trace)
	log.Printf("[REACT TRACE] %s", trace.String())

	if e.audit != nil {
		var outputBytes json.RawMessage
		var errStr *string
		if result != nil {
			outputBytes, _ = json.Marshal(result.Data)
			if result.Error != "" {
				errStr = &result.Error
			}
		}
		if err != nil {
			msg := err.Error()
			errStr = &msg
		}
		e.audit.Log(ctx, &AuditEntry{
			ID:         uuid.New().String(),
			UserID:     session.UserID,
			SessionID:  session.ID,
			RequestID:  session.ID,
			AgentName:  agentName,
			ToolName:   toolName,
			ToolInput:  inputBytes,
			ToolOutput: outputBytes,
			Error:      errStr,
			DurationMs: durationMs,
			Timestamp:  startTime.Unix(),
		})
	}

	if err != nil {
		return toolUseOutcome{
			apiBlock:  anthropic.NewToolResultBlock(block.ID, err.Error(), true),
			execution: execution,
		}
	}
	if result != nil && !result.Success {
		return toolUseOutcome{
			apiBlock:  anthropic.NewToolResultBlock(block.ID, result.Error, true),
			execution: execution,
		}
	}

	if result == nil {
		return toolUseOutcome{
			apiBlock:  anthropic.NewToolResultBlock(block.ID, "tool returned no result", true),
			execution: execution,
		}
	}
	execution.Result = result.Data
	resultBytes, _ := json.Marshal(result.Data)
	return toolUseOutcome{
		apiBlock:  anthropic.NewToolResultBlock(block.ID, string(resultBytes), false),
		execution: execution,
	}
}

// recordMemories stores the run's traces and conversation when memory is on.
func (e *Engine) recordMemories(ctx context.Context, session *Session, userID, userMessage, textResponse string) {
	if e.memory == nil {
		return
	}
	if len(session.Traces) > 0 {
		if err := e.memory.RecordTraces(ctx, userID, session.Traces); err != nil {
			log.Printf("[MEMORY] failed to record traces: %v", err)
		}
	}
	if userMessage != "" && textResponse != "" {
		if err := e.memory.RecordConversation(ctx, userID, userMessage, textResponse); err != nil {
			log.Printf("[MEMORY] failed to record conversation: %v", err)
		}
	}
}

// createMessageStreaming handles streaming API calls.
func (e *Engine) createMessageStreaming(ctx context.Context, params anthropic.MessageNewParams, callback func(string, bool)) (*anthropic.Message, error) {
	stream := e.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	message := anthropic.Message{}

	for stream.Next() {
		event := stream.Current()

		if err := message.Accumulate(event); err != nil {
			// Accumulation errors are non-fatal; keep streaming.
			continue
		}

		switch evt := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := evt.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				callback(delta.Text, false)
			}
		}
	}

	if err := stream.Err(); err != nil {
		return nil, err
	}
	return &message, nil
}

// responseToBlocks converts a model response to persistable content blocks.
func responseToBlocks(resp *anthropic.Message) []core.ContentBlock {
	blocks := make([]core.ContentBlock, 0, len(resp.Content))
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			blocks = append(blocks, core.NewTextBlock(block.Text))
		case "tool_use":
			blocks = append(blocks, core.NewToolUseBlock(block.ID, block.Name, json.RawMessage(block.Input)))
		}
	}
	return blocks
}

// formatObservation summarizes a tool result for the trace.
func formatObservation(result *core.ToolResult, err error) string {
	if err != nil {
		return fmt.Sprintf("Error: %s", err.Error())
	}
	if result == nil {
		return "No result returned"
	}
	if !result.Success {
		return fmt.Sprintf("Failed: %s", result.Error)
	}
	bytes, _ := json.Marshal(result.Data)
	return string(bytes)
}

// categorizeError maps an error message onto the guardian error taxonomy.
func categorizeError(errMsg string) string {
	errLower := strings.ToLower(errMsg)
	switch {
	case strings.Contains(errLower, "upstream unavailable"):
		return "upstream_unavailable"
	case strings.Contains(errLower, "contract violation"):
		return "upstream_contract"
	case strings.Contains(errLower, "invalid input"):
		return "invalid_input"
	case strings.Contains(errLower, "timeout"), strings.Contains(errLower, "deadline"):
		return "timeout"
	case strings.Contains(errLower, "rate limit"):
		return "rate_limit"
	default:
		return "unknown"
	}
}
