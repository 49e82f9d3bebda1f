package engine_test

import (
	"context"
	"testing"

	"github.com/defiguardian/guardian/core"
	"github.com/defiguardian/guardian/engine"
	"github.com/defiguardian/guardian/tools"
)

func stubTool(name string) core.Tool {
	return tools.New(name).
		Description("stub " + name).
		Schema(tools.ObjectSchema(map[string]interface{}{
			"arg": tools.StringProperty("an argument"),
		}, "arg")).
		Handler(func(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error) {
			return &core.ToolResult{Success: true}, nil
		}).
		Build()
}

func TestRegistryPreservesOrder(t *testing.T) {
	registry := engine.NewToolRegistry()
	registry.Register(stubTool("charlie"))
	registry.Register(stubTool("alpha"))
	registry.Register(stubTool("bravo"))

	names := registry.Names()
	want := []string{"charlie", "alpha", "bravo"}
	if len(names) != len(want) {
		t.Fatalf("got %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d]: got %q, want %q", i, names[i], want[i])
		}
	}
}

func TestRegistryReplaceKeepsPosition(t *testing.T) {
	registry := engine.NewToolRegistry()
	registry.Register(stubTool("a"))
	registry.Register(stubTool("b"))
	registry.Register(stubTool("a")) // replace

	names := registry.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("got %v", names)
	}
}

func TestRegistryGet(t *testing.T) {
	registry := engine.NewToolRegistry()
	registry.Register(stubTool("known"))

	if _, ok := registry.Get("known"); !ok {
		t.Error("registered tool not found")
	}
	if _, ok := registry.Get("unknown"); ok {
		t.Error("unregistered tool found")
	}
}

func TestToAPIToolsFiltered(t *testing.T) {
	registry := engine.NewToolRegistry()
	registry.Register(stubTool("a"))
	registry.Register(stubTool("b"))
	registry.Register(stubTool("c"))

	apiTools := registry.ToAPIToolsFiltered(engine.FilterByNames("a", "c"))
	if len(apiTools) != 2 {
		t.Fatalf("got %d tools, want 2", len(apiTools))
	}
	if apiTools[0].OfTool.Name != "a" || apiTools[1].OfTool.Name != "c" {
		t.Errorf("got %q and %q", apiTools[0].OfTool.Name, apiTools[1].OfTool.Name)
	}

	all := registry.ToAPITools()
	if len(all) != 3 {
		t.Fatalf("got %d tools, want 3", len(all))
	}
	if all[0].OfTool.InputSchema.Properties == nil {
		t.Error("schema properties not converted")
	}
	required := all[0].OfTool.InputSchema.Required
	if len(required) != 1 || required[0] != "arg" {
		t.Errorf("required: got %v", required)
	}
}
