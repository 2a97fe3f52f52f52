package agent

import (
	"context"
	"fmt"

	"clausewise/internal/llm"
	"clausewise/internal/logging"
	"clausewise/internal/tools"
)

// DefaultMaxSteps bounds the dispatch loop. Reviewing one section can take
// several tool calls (read section, batch-add issues, summarize), so the
// bound is larger than a typical single-turn chat agent.
const DefaultMaxSteps = 50

// Finish reasons reported on Result. Step exhaustion is a distinct,
// non-error outcome.
const (
	FinishStop     = "stop"
	FinishMaxSteps = "max_steps"
)

// maxStepsMessage is the synthetic terminal answer when the loop runs out
// of steps without a final answer.
const maxStepsMessage = "本轮推理已达到最大步数限制，未能得出最终结论。已记录的问题仍保留在台账中，请换一种方式提问或继续下一章节。"

// Agent drives the bounded reason-and-act loop against one tool registry.
type Agent struct {
	client   llm.Client
	registry *tools.Registry
	maxSteps int
}

// New creates an agent. maxSteps <= 0 selects DefaultMaxSteps.
func New(client llm.Client, registry *tools.Registry, maxSteps int) *Agent {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Agent{client: client, registry: registry, maxSteps: maxSteps}
}

// RunOptions tunes one loop invocation.
type RunOptions struct {
	// Plan is an optional numbered plan injected into the system prompt.
	Plan string
	// SkillContext is optional skill instruction text injected into the
	// system prompt.
	SkillContext string
	// OnStream receives final-answer text character-for-character as it
	// arrives. Nothing before the Final: marker is ever forwarded.
	OnStream func(text string) error
	// OnToolCall observes each tool execution (for UI logging).
	OnToolCall func(name string, result *tools.Result)
}

// Result is the outcome of one loop invocation.
type Result struct {
	Content      string
	FinishReason string
	Steps        int
}

// Run executes the loop: render prompt, call the model, parse the decision,
// execute tools, feed observations back, until a final answer or the step
// bound. history must already end with the user's turn. Model-call errors
// are fatal to the turn; tool errors never are.
func (a *Agent) Run(ctx context.Context, systemPrompt string, history []llm.Message, opts RunOptions) (*Result, error) {
	sys := systemPrompt
	if opts.Plan != "" {
		sys += "\n\n## 执行计划\n" + opts.Plan
	}
	if opts.SkillContext != "" {
		sys += "\n\n## 技能指引\n" + opts.SkillContext
	}

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.SystemMessage(sys))
	messages = append(messages, history...)

	defs := toolDefinitions(a.registry)

	for step := 1; step <= a.maxSteps; step++ {
		gate := newFinalGate(opts.OnStream)
		resp, err := a.client.ChatStream(ctx, llm.Request{Messages: messages, Tools: defs}, func(c llm.StreamChunk) error {
			if c.Done {
				return nil
			}
			return gate.Feed(c.Content)
		})
		if err != nil {
			return nil, fmt.Errorf("model call failed at step %d: %w", step, err)
		}

		dec := Decide(resp)
		logging.Debugf(logging.CategoryAgent, "step %d: decision=%s tool_calls=%d", step, dec.Kind, len(dec.ToolCalls))

		switch dec.Kind {
		case DecisionFinalAnswer:
			return &Result{Content: dec.Answer, FinishReason: FinishStop, Steps: step}, nil

		case DecisionUnparseable:
			// Fold into a final answer so the loop never stalls. The gate
			// never opened, so emit the text now.
			if opts.OnStream != nil && dec.Answer != "" {
				if err := opts.OnStream(dec.Answer); err != nil {
					return nil, err
				}
			}
			return &Result{Content: dec.Answer, FinishReason: FinishStop, Steps: step}, nil

		case DecisionStructuredCall:
			assistant := llm.Message{Role: llm.RoleAssistant, Content: resp.Content, ToolCalls: dec.ToolCalls}
			messages = append(messages, assistant)
			for _, call := range dec.ToolCalls {
				result := a.registry.Execute(ctx, call.Name, call.Arguments)
				if opts.OnToolCall != nil {
					opts.OnToolCall(call.Name, result)
				}
				messages = append(messages, llm.Message{
					Role:       llm.RoleTool,
					Content:    observationText(result),
					ToolCallID: call.ID,
				})
			}

		case DecisionTextualCall:
			messages = append(messages, llm.AssistantMessage(resp.Content))
			call := dec.ToolCalls[0]
			result := a.registry.Execute(ctx, call.Name, call.Arguments)
			if opts.OnToolCall != nil {
				opts.OnToolCall(call.Name, result)
			}
			messages = append(messages, llm.UserMessage("Observation: "+observationText(result)))
		}
	}

	logging.Debugf(logging.CategoryAgent, "step limit reached (%d steps)", a.maxSteps)
	if opts.OnStream != nil {
		if err := opts.OnStream(maxStepsMessage); err != nil {
			return nil, err
		}
	}
	return &Result{Content: maxStepsMessage, FinishReason: FinishMaxSteps, Steps: a.maxSteps}, nil
}

// observationText renders a tool result as the observation fed back to the
// model. Failures become text the model can adapt to, never a crash.
func observationText(r *tools.Result) string {
	if r.IsSuccess() {
		if r.Output == "" {
			return "(无输出)"
		}
		return r.Output
	}
	return "工具执行出错: " + r.Err.Error()
}

// toolDefinitions advertises every registered tool to the model.
func toolDefinitions(reg *tools.Registry) []llm.ToolDefinition {
	all := reg.All()
	defs := make([]llm.ToolDefinition, 0, len(all))
	for _, t := range all {
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Schema.Document(),
		})
	}
	return defs
}
