package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"clausewise/internal/llm"
)

func TestReflectRevisesDraft(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		{Content: "Reflection: 漏掉了违约金问题。\nFinal: 补充后的完整回答。"},
	}}
	r := NewReflector(client)

	final, reflection, err := r.Reflect(context.Background(), "审核本章", "初稿回答", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if final != "补充后的完整回答。" {
		t.Errorf("final = %q", final)
	}
	if reflection != "漏掉了违约金问题。" {
		t.Errorf("reflection = %q", reflection)
	}
}

func TestReflectNoMarkerTakesWholeReply(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		{Content: "  修订后的答案全文。  "},
	}}
	final, reflection, err := NewReflector(client).Reflect(context.Background(), "q", "draft", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if final != "修订后的答案全文。" || reflection != "" {
		t.Errorf("final = %q, reflection = %q", final, reflection)
	}
}

func TestReflectEmptyReplyKeepsDraft(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{{Content: "Reflection: 无需修改。\nFinal:"}}}
	final, _, err := NewReflector(client).Reflect(context.Background(), "q", "原始草稿", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if final != "原始草稿" {
		t.Errorf("final = %q", final)
	}
}

func TestReflectFailureKeepsDraft(t *testing.T) {
	client := &scriptedClient{err: errors.New("timeout")}
	final, _, err := NewReflector(client).Reflect(context.Background(), "q", "草稿", nil, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if final != "草稿" {
		t.Errorf("draft lost on failure: %q", final)
	}
}

func TestReflectIncludesPlan(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{{Content: "Final: ok"}}}
	if _, _, err := NewReflector(client).Reflect(context.Background(), "q", "d", nil, "1. 先读章节"); err != nil {
		t.Fatal(err)
	}
	var sawPlan bool
	for _, m := range client.requests[0].Messages {
		if m.Role == llm.RoleSystem && strings.Contains(m.Content, "1. 先读章节") {
			sawPlan = true
		}
	}
	if !sawPlan {
		t.Error("plan not forwarded to reflector")
	}
}

func TestPlannerBuildsPrompt(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		{Content: "1. 读取当前章节\n2. 记录问题点\n"},
	}}
	p := NewPlanner(client, 0)

	plan, err := p.Plan(context.Background(), "审核付款条款", nil, "关注账期")
	if err != nil {
		t.Fatal(err)
	}
	if plan != "1. 读取当前章节\n2. 记录问题点" {
		t.Errorf("plan = %q", plan)
	}

	msgs := client.requests[0].Messages
	if !strings.Contains(msgs[0].Content, "at most 6 steps") {
		t.Errorf("system prompt = %q", msgs[0].Content)
	}
	if !strings.Contains(msgs[0].Content, "关注账期") {
		t.Error("skill context missing from planner prompt")
	}
	last := msgs[len(msgs)-1]
	if last.Content != "User request: 审核付款条款" {
		t.Errorf("user turn = %q", last.Content)
	}
}

func TestPlannerFailure(t *testing.T) {
	client := &scriptedClient{err: errors.New("down")}
	if _, err := NewPlanner(client, 3).Plan(context.Background(), "q", nil, ""); err == nil {
		t.Fatal("expected error")
	}
}
