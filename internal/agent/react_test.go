package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"clausewise/internal/llm"
	"clausewise/internal/tools"
)

// scriptedClient replays canned responses in order, streaming each
// response's content through the callback in small chunks first.
type scriptedClient struct {
	responses []*llm.Response
	requests  []llm.Request
	err       error
}

func (c *scriptedClient) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return c.ChatStream(ctx, req, func(llm.StreamChunk) error { return nil })
}

func (c *scriptedClient) ChatStream(ctx context.Context, req llm.Request, cb llm.StreamCallback) (*llm.Response, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.requests = append(c.requests, req)
	if len(c.requests) > len(c.responses) {
		return nil, errors.New("scripted client exhausted")
	}
	resp := c.responses[len(c.requests)-1]
	for _, r := range resp.Content {
		if err := cb(llm.StreamChunk{Content: string(r)}); err != nil {
			return nil, err
		}
	}
	if err := cb(llm.StreamChunk{Done: true}); err != nil {
		return nil, err
	}
	return resp, nil
}

func newEchoRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()
	reg.MustRegister(&tools.Tool{
		Name:        "echo",
		Description: "echoes its message argument",
		Schema: tools.Schema{
			Properties: map[string]tools.Property{
				"message": {Type: "string"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			msg, _ := args["message"].(string)
			return "echo: " + msg, nil
		},
	})
	reg.MustRegister(&tools.Tool{
		Name:        "broken",
		Description: "always fails",
		Schema:      tools.Schema{Properties: map[string]tools.Property{}},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return "", errors.New("boom")
		},
	})
	return reg
}

func TestRunFinalAnswerImmediately(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		{Content: "Final: 没有发现问题。"},
	}}
	a := New(client, newEchoRegistry(t), 10)

	var streamed strings.Builder
	res, err := a.Run(context.Background(), "system", []llm.Message{llm.UserMessage("hi")}, RunOptions{
		OnStream: func(s string) error { streamed.WriteString(s); return nil },
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "没有发现问题。" || res.FinishReason != FinishStop || res.Steps != 1 {
		t.Errorf("result = %+v", res)
	}
	if strings.TrimSpace(streamed.String()) != "没有发现问题。" {
		t.Errorf("streamed = %q", streamed.String())
	}
}

func TestRunStructuredToolLoop(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: "echo", Arguments: map[string]any{"message": "你好"}},
		}},
		{Content: "Final: 工具返回了问候。"},
	}}
	a := New(client, newEchoRegistry(t), 10)

	var toolNames []string
	res, err := a.Run(context.Background(), "system", []llm.Message{llm.UserMessage("试一下工具")}, RunOptions{
		OnToolCall: func(name string, r *tools.Result) { toolNames = append(toolNames, name) },
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Steps != 2 || res.FinishReason != FinishStop {
		t.Errorf("result = %+v", res)
	}
	if len(toolNames) != 1 || toolNames[0] != "echo" {
		t.Errorf("tool calls observed = %v", toolNames)
	}

	// The second request must carry the assistant tool-call turn and the
	// tool observation answering call_1.
	second := client.requests[1].Messages
	var sawCall, sawObservation bool
	for _, m := range second {
		if m.Role == llm.RoleAssistant && len(m.ToolCalls) == 1 {
			sawCall = true
		}
		if m.Role == llm.RoleTool && m.ToolCallID == "call_1" && m.Content == "echo: 你好" {
			sawObservation = true
		}
	}
	if !sawCall || !sawObservation {
		t.Errorf("transcript missing tool turns: call=%v observation=%v\n%+v", sawCall, sawObservation, second)
	}
}

func TestRunTextualToolLoop(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		{Content: "Action: echo\nAction Input: {\"message\": \"测试\"}"},
		{Content: "Final: 完成。"},
	}}
	a := New(client, newEchoRegistry(t), 10)

	res, err := a.Run(context.Background(), "system", []llm.Message{llm.UserMessage("go")}, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Steps != 2 {
		t.Errorf("steps = %d", res.Steps)
	}

	second := client.requests[1].Messages
	last := second[len(second)-1]
	if last.Role != llm.RoleUser || last.Content != "Observation: echo: 测试" {
		t.Errorf("observation turn = %+v", last)
	}
}

func TestRunToolErrorBecomesObservation(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		{Content: "Action: broken\nAction Input: {}"},
		{Content: "Final: 工具失败了，跳过。"},
	}}
	a := New(client, newEchoRegistry(t), 10)

	res, err := a.Run(context.Background(), "system", []llm.Message{llm.UserMessage("go")}, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.FinishReason != FinishStop {
		t.Errorf("finish = %q", res.FinishReason)
	}
	second := client.requests[1].Messages
	last := second[len(second)-1]
	if !strings.Contains(last.Content, "工具执行出错") || !strings.Contains(last.Content, "boom") {
		t.Errorf("observation = %q", last.Content)
	}
}

func TestRunUnknownToolObservationListsAvailable(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		{Content: "Action: missing\nAction Input: {}"},
		{Content: "Final: 好的。"},
	}}
	a := New(client, newEchoRegistry(t), 10)

	if _, err := a.Run(context.Background(), "system", []llm.Message{llm.UserMessage("go")}, RunOptions{}); err != nil {
		t.Fatal(err)
	}
	last := client.requests[1].Messages[len(client.requests[1].Messages)-1]
	if !strings.Contains(last.Content, "available tools") || !strings.Contains(last.Content, "echo") {
		t.Errorf("observation = %q", last.Content)
	}
}

func TestRunMaxStepsExhaustion(t *testing.T) {
	// Every turn asks for a tool; the loop must stop at the bound with a
	// synthetic terminal answer, not an error.
	responses := make([]*llm.Response, 3)
	for i := range responses {
		responses[i] = &llm.Response{Content: "Action: echo\nAction Input: {\"message\": \"再来\"}"}
	}
	client := &scriptedClient{responses: responses}
	a := New(client, newEchoRegistry(t), 3)

	var streamed strings.Builder
	res, err := a.Run(context.Background(), "system", []llm.Message{llm.UserMessage("go")}, RunOptions{
		OnStream: func(s string) error { streamed.WriteString(s); return nil },
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.FinishReason != FinishMaxSteps || res.Steps != 3 {
		t.Errorf("result = %+v", res)
	}
	if res.Content != maxStepsMessage {
		t.Errorf("content = %q", res.Content)
	}
	if streamed.String() != maxStepsMessage {
		t.Errorf("streamed = %q", streamed.String())
	}
}

func TestRunUnparseableFoldsIntoFinal(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		{Content: "这句话没有任何标记。"},
	}}
	a := New(client, newEchoRegistry(t), 10)

	var streamed strings.Builder
	res, err := a.Run(context.Background(), "system", []llm.Message{llm.UserMessage("hi")}, RunOptions{
		OnStream: func(s string) error { streamed.WriteString(s); return nil },
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "这句话没有任何标记。" || res.FinishReason != FinishStop {
		t.Errorf("result = %+v", res)
	}
	// The gate never opened, so the fold path must emit the text exactly once.
	if streamed.String() != "这句话没有任何标记。" {
		t.Errorf("streamed = %q", streamed.String())
	}
}

func TestRunModelErrorIsFatal(t *testing.T) {
	client := &scriptedClient{err: errors.New("connection refused")}
	a := New(client, newEchoRegistry(t), 10)
	if _, err := a.Run(context.Background(), "system", nil, RunOptions{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunInjectsPlanAndSkillContext(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{{Content: "Final: ok"}}}
	a := New(client, newEchoRegistry(t), 10)

	_, err := a.Run(context.Background(), "base prompt", []llm.Message{llm.UserMessage("hi")}, RunOptions{
		Plan:         "1. 读取章节\n2. 记录问题",
		SkillContext: "优先检查付款条款",
	})
	if err != nil {
		t.Fatal(err)
	}
	sys := client.requests[0].Messages[0]
	if sys.Role != llm.RoleSystem {
		t.Fatalf("first message role = %s", sys.Role)
	}
	for _, want := range []string{"base prompt", "## 执行计划", "1. 读取章节", "## 技能指引", "优先检查付款条款"} {
		if !strings.Contains(sys.Content, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestRunAdvertisesTools(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{{Content: "Final: ok"}}}
	a := New(client, newEchoRegistry(t), 10)
	if _, err := a.Run(context.Background(), "s", nil, RunOptions{}); err != nil {
		t.Fatal(err)
	}
	defs := client.requests[0].Tools
	if len(defs) != 2 {
		t.Fatalf("tool definitions = %d", len(defs))
	}
	// Sorted by name for stable prompts.
	if defs[0].Name != "broken" || defs[1].Name != "echo" {
		t.Errorf("definitions = %+v", defs)
	}
	if defs[1].Parameters["type"] != "object" {
		t.Errorf("parameters = %v", defs[1].Parameters)
	}
}
