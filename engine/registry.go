package engine

import (
	"sync"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/defiguardian/guardian/core"
)

// ToolRegistry holds the tools available to the agent. Registration order
// is preserved so the model sees a stable tool list.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]core.Tool
	order []string
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]core.Tool)}
}

// Register adds a tool, replacing any existing tool with the same name.
func (r *ToolRegistry) Register(tool core.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Name()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
}

// Get returns the named tool.
func (r *ToolRegistry) Get(name string) (core.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns the registered tool names in registration order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// ToolFilter selects a subset of tools by name.
type ToolFilter func(name string) bool

// FilterByNames builds a filter accepting exactly the given names.
func FilterByNames(names ...string) ToolFilter {
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		allowed[n] = true
	}
	return func(name string) bool { return allowed[name] }
}

// ToAPITools converts all registered tools to API tool parameters.
func (r *ToolRegistry) ToAPITools() []anthropic.ToolUnionParam {
	return r.ToAPIToolsFiltered(func(string) bool { return true })
}

// ToAPIToolsFiltered converts the tools accepted by filter.
func (r *ToolRegistry) ToAPIToolsFiltered(filter ToolFilter) []anthropic.ToolUnionParam {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var apiTools []anthropic.ToolUnionParam
	for _, name := range r.order {
		if !filter(name) {
			continue
		}
		apiTools = append(apiTools, toAPITool(r.tools[name]))
	}
	return apiTools
}

func toAPITool(tool core.Tool) anthropic.ToolUnionParam {
	schema := tool.InputSchema()
	properties, _ := schema["properties"].(map[string]interface{})

	var required []string
	switch v := schema["required"].(type) {
	case []string:
		required = v
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				required = append(required, s)
			}
		}
	}

	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        tool.Name(),
			Description: anthropic.String(tool.Description()),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: properties,
				Required:   required,
			},
		},
	}
}
