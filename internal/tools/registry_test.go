package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func echoTool(name string) *Tool {
	return &Tool{
		Name:        name,
		Description: "echoes input",
		Schema: Schema{
			Properties: map[string]Property{
				"message": {Type: "string", Description: "text to echo"},
			},
			Required: []string{"message"},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			msg, _ := args["message"].(string)
			return msg, nil
		},
	}
}

func TestRegisterAndExecute(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(echoTool("echo"))

	res := reg.Execute(context.Background(), "echo", map[string]any{"message": "你好"})
	if !res.IsSuccess() {
		t.Fatalf("err = %v", res.Err)
	}
	if res.Output != "你好" || res.ToolName != "echo" {
		t.Errorf("result = %+v", res)
	}
	if res.DurationMs < 0 {
		t.Errorf("duration = %d", res.DurationMs)
	}
}

func TestRegisterValidation(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&Tool{Execute: func(context.Context, map[string]any) (string, error) { return "", nil }}); !errors.Is(err, ErrToolNameEmpty) {
		t.Errorf("err = %v", err)
	}
	if err := reg.Register(&Tool{Name: "x"}); !errors.Is(err, ErrToolExecuteNil) {
		t.Errorf("err = %v", err)
	}
}

func TestRegisterLastWins(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(echoTool("echo"))

	replacement := echoTool("echo")
	replacement.Execute = func(context.Context, map[string]any) (string, error) {
		return "replaced", nil
	}
	reg.MustRegister(replacement)

	if reg.Count() != 1 {
		t.Fatalf("count = %d", reg.Count())
	}
	res := reg.Execute(context.Background(), "echo", map[string]any{"message": "x"})
	if res.Output != "replaced" {
		t.Errorf("output = %q", res.Output)
	}
}

func TestExecuteUnknownToolListsAvailable(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(echoTool("echo"))
	reg.MustRegister(echoTool("other"))

	res := reg.Execute(context.Background(), "missing", nil)
	if res.IsSuccess() {
		t.Fatal("expected failure")
	}
	if !errors.Is(res.Err, ErrToolNotFound) {
		t.Errorf("err = %v", res.Err)
	}
	if !strings.Contains(res.Err.Error(), "echo, other") {
		t.Errorf("available names missing: %v", res.Err)
	}
}

func TestExecuteUnknownToolEmptyRegistry(t *testing.T) {
	res := NewRegistry().Execute(context.Background(), "missing", nil)
	if !strings.Contains(res.Err.Error(), "none") {
		t.Errorf("err = %v", res.Err)
	}
}

func TestExecuteSchemaValidation(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(echoTool("echo"))

	// Missing required argument.
	res := reg.Execute(context.Background(), "echo", map[string]any{})
	if !errors.Is(res.Err, ErrInvalidArgs) {
		t.Errorf("err = %v", res.Err)
	}
	if !strings.Contains(res.Err.Error(), "message") {
		t.Errorf("violation not named: %v", res.Err)
	}

	// Wrong type.
	res = reg.Execute(context.Background(), "echo", map[string]any{"message": 42})
	if !errors.Is(res.Err, ErrInvalidArgs) {
		t.Errorf("err = %v", res.Err)
	}

	// Nil arguments are treated as an empty object.
	res = reg.Execute(context.Background(), "echo", nil)
	if !errors.Is(res.Err, ErrInvalidArgs) {
		t.Errorf("err = %v", res.Err)
	}
}

func TestExecuteEnumValidation(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(&Tool{
		Name: "nav",
		Schema: Schema{
			Properties: map[string]Property{
				"direction": {Type: "string", Enum: []any{"next", "prev"}},
			},
			Required: []string{"direction"},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return args["direction"].(string), nil
		},
	})

	if res := reg.Execute(context.Background(), "nav", map[string]any{"direction": "next"}); !res.IsSuccess() {
		t.Errorf("err = %v", res.Err)
	}
	if res := reg.Execute(context.Background(), "nav", map[string]any{"direction": "sideways"}); !errors.Is(res.Err, ErrInvalidArgs) {
		t.Errorf("err = %v", res.Err)
	}
}

func TestExecutePanicRecovery(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(&Tool{
		Name:   "bomb",
		Schema: Schema{Properties: map[string]Property{}},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			panic("kaboom")
		},
	})

	res := reg.Execute(context.Background(), "bomb", map[string]any{})
	if res.IsSuccess() {
		t.Fatal("panic not converted to error")
	}
	if !strings.Contains(res.Err.Error(), "kaboom") {
		t.Errorf("err = %v", res.Err)
	}
}

func TestAllAndNamesSorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		reg.MustRegister(echoTool(name))
	}

	names := reg.Names()
	want := []string{"alpha", "mid", "zeta"}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("names = %v", names)
		}
	}
	all := reg.All()
	for i, n := range want {
		if all[i].Name != n {
			t.Fatalf("all = %v", all)
		}
	}
	if !reg.Has("alpha") || reg.Has("beta") {
		t.Error("Has misreported")
	}
}

func TestSchemaDocument(t *testing.T) {
	s := Schema{
		Properties: map[string]Property{
			"op":   {Type: "string", Description: "operation", Enum: []any{"a", "b"}},
			"tags": {Type: "array", Items: &PropertyItems{Type: "string"}},
		},
		Required: []string{"op"},
	}
	doc := s.Document()
	if doc["type"] != "object" {
		t.Errorf("type = %v", doc["type"])
	}
	props := doc["properties"].(map[string]any)
	op := props["op"].(map[string]any)
	if op["description"] != "operation" {
		t.Errorf("op = %v", op)
	}
	tags := props["tags"].(map[string]any)
	if tags["items"].(map[string]any)["type"] != "string" {
		t.Errorf("tags = %v", tags)
	}

	// Required defaults to an empty slice, never nil, for strict providers.
	empty := Schema{}.Document()
	if req, ok := empty["required"].([]string); !ok || req == nil {
		t.Errorf("required = %#v", empty["required"])
	}
}
