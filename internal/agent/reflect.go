package agent

import (
	"context"
	"fmt"
	"strings"

	"clausewise/internal/llm"
)

// Reflector critiques a draft answer and may revise it. The model replies
// in the "Reflection:"/"Final:" convention; a reply without a Final: marker
// is treated as the revised answer wholesale. Optional pipeline stage.
type Reflector struct {
	client llm.Client
}

// NewReflector creates a reflector.
func NewReflector(client llm.Client) *Reflector {
	return &Reflector{client: client}
}

// Reflect returns the (possibly revised) final answer and the reflection
// notes. On a model-call failure the draft survives unchanged.
func (r *Reflector) Reflect(ctx context.Context, userInput, draft string, context_ []llm.Message, plan string) (final, reflection string, err error) {
	sys := "You are a reflection assistant. Critique the draft answer for accuracy, " +
		"completeness, and clarity. If you can improve it, provide a revised final answer. " +
		"If no changes are needed, keep the final answer the same.\n\n" +
		"Output format:\n" +
		"Reflection: <short notes>\n" +
		"Final: <final answer>\n" +
		"Return only this format."

	messages := make([]llm.Message, 0, len(context_)+3)
	messages = append(messages, llm.SystemMessage(sys))
	messages = append(messages, context_...)
	if plan != "" {
		messages = append(messages, llm.SystemMessage("Plan:\n"+plan))
	}
	messages = append(messages, llm.UserMessage(fmt.Sprintf("User request: %s\n\nDraft answer:\n%s", userInput, draft)))

	resp, err := r.client.Chat(ctx, llm.Request{Messages: messages})
	if err != nil {
		return draft, "", fmt.Errorf("reflection failed: %w", err)
	}

	final, reflection = parseReflection(resp.Content, draft)
	return final, reflection, nil
}

// parseReflection splits a reflector reply into final answer and notes.
func parseReflection(text, fallback string) (final, reflection string) {
	idx := strings.Index(text, finalMarker)
	if idx < 0 {
		final = strings.TrimSpace(text)
		if final == "" {
			final = fallback
		}
		return final, ""
	}

	before := text[:idx]
	final = strings.TrimSpace(text[idx+len(finalMarker):])
	if final == "" {
		final = fallback
	}
	if ridx := strings.Index(before, "Reflection:"); ridx >= 0 {
		reflection = strings.TrimSpace(before[ridx+len("Reflection:"):])
	}
	return final, reflection
}
