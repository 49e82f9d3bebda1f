package tools

import (
	"context"
	"fmt"

	"github.com/defiguardian/guardian/core"
)

// Handler executes a tool invocation.
type Handler func(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error)

// Builder assembles a core.Tool fluently:
//
//	tools.New("find_liquidity_pools").
//		Description("Discover high-yield liquidity pools.").
//		Schema(tools.ObjectSchema(...)).
//		Handler(func(ctx, params) (*core.ToolResult, error) { ... }).
//		Build()
type Builder struct {
	name        string
	description string
	schema      map[string]interface{}
	handler     Handler
}

// New starts building a tool with the given name.
func New(name string) *Builder {
	return &Builder{name: name}
}

// Description sets the tool description shown to the model.
func (b *Builder) Description(description string) *Builder {
	b.description = description
	return b
}

// Schema sets the JSON Schema for the tool's input object.
func (b *Builder) Schema(schema map[string]interface{}) *Builder {
	b.schema = schema
	return b
}

// Handler sets the tool's execution function.
func (b *Builder) Handler(h Handler) *Builder {
	b.handler = h
	return b
}

// Build finalizes the tool. It panics on an incomplete definition because
// tools are registered at startup, never constructed from request data.
func (b *Builder) Build() core.Tool {
	if b.name == "" {
		panic("tools: Build called without a name")
	}
	if b.handler == nil {
		panic(fmt.Sprintf("tools: tool %q has no handler", b.name))
	}
	schema := b.schema
	if schema == nil {
		schema = ObjectSchema(map[string]interface{}{})
	}
	return &builtTool{
		name:        b.name,
		description: b.description,
		schema:      WithThought(schema),
		handler:     b.handler,
	}
}

type builtTool struct {
	name        string
	description string
	schema      map[string]interface{}
	handler     Handler
}

func (t *builtTool) Name() string                        { return t.name }
func (t *builtTool) Description() string                 { return t.description }
func (t *builtTool) InputSchema() map[string]interface{} { return t.schema }

func (t *builtTool) Execute(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error) {
	return t.handler(ctx, params)
}
