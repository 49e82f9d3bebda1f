package tools_test

import (
	"context"
	"testing"

	"github.com/defiguardian/guardian/core"
	"github.com/defiguardian/guardian/tools"
)

func TestBuilderBuildsTool(t *testing.T) {
	tool := tools.New("echo").
		Description("Echoes its input.").
		Schema(tools.ObjectSchema(map[string]interface{}{
			"text": tools.StringProperty("Text to echo"),
		}, "text")).
		Handler(func(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error) {
			return &core.ToolResult{Success: true, Data: string(params.Input)}, nil
		}).
		Build()

	if tool.Name() != "echo" {
		t.Errorf("name: got %q", tool.Name())
	}
	if tool.Description() == "" {
		t.Error("description empty")
	}

	result, err := tool.Execute(context.Background(), &core.ToolParams{Input: []byte(`{"text":"hi"}`)})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success {
		t.Errorf("result: %+v", result)
	}
}

func TestBuilderInjectsThoughtProperty(t *testing.T) {
	tool := tools.New("x").
		Schema(tools.ObjectSchema(map[string]interface{}{
			"a": tools.NumberProperty("a"),
		}, "a")).
		Handler(func(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error) {
			return &core.ToolResult{Success: true}, nil
		}).
		Build()

	schema := tool.InputSchema()
	props, ok := schema["properties"].(map[string]interface{})
	if !ok {
		t.Fatalf("schema has no properties: %v", schema)
	}
	if _, ok := props["thought"]; !ok {
		t.Error("thought property not injected")
	}

	// thought stays optional
	if required, ok := schema["required"].([]string); ok {
		for _, r := range required {
			if r == "thought" {
				t.Error("thought must not be required")
			}
		}
	}
}

func TestBuilderPanicsWithoutHandler(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Build without handler must panic")
		}
	}()
	tools.New("broken").Build()
}
