package agent

import (
	"context"
	"fmt"
	"strings"

	"clausewise/internal/llm"
)

// DefaultPlanSteps caps the length of a generated plan.
const DefaultPlanSteps = 6

// Planner produces a short numbered plan for a user request, injected into
// the dispatch loop's system prompt. Optional: a nil Planner means no
// planning pass.
type Planner struct {
	client   llm.Client
	maxSteps int
}

// NewPlanner creates a planner. maxSteps <= 0 selects DefaultPlanSteps.
func NewPlanner(client llm.Client, maxSteps int) *Planner {
	if maxSteps <= 0 {
		maxSteps = DefaultPlanSteps
	}
	return &Planner{client: client, maxSteps: maxSteps}
}

// Plan asks the model for a numbered plan. context carries prior turns,
// skillContext optional expert guidance.
func (p *Planner) Plan(ctx context.Context, userInput string, context_ []llm.Message, skillContext string) (string, error) {
	sys := fmt.Sprintf(
		"You are a planning assistant. Create a concise, step-by-step plan with at most %d steps. Use numbered steps. Return only the plan.",
		p.maxSteps,
	)
	if skillContext != "" {
		sys += "\n" + skillContext
	}

	messages := make([]llm.Message, 0, len(context_)+2)
	messages = append(messages, llm.SystemMessage(sys))
	messages = append(messages, context_...)
	messages = append(messages, llm.UserMessage("User request: "+userInput))

	resp, err := p.client.Chat(ctx, llm.Request{Messages: messages})
	if err != nil {
		return "", fmt.Errorf("planning failed: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}
