package agent

import (
	"context"
	"fmt"
	"strings"

	"clausewise/internal/llm"
	"clausewise/internal/logging"
	"clausewise/internal/review"
	"clausewise/internal/session"
	"clausewise/internal/skills"
	"clausewise/internal/tools"
)

// reviewInstruction is the fixed prompt the auto-review driver sends for
// each section.
const reviewInstruction = "请审核当前章节，识别所有潜在问题点"

// Reviewer runs one contract-review session: it owns the ledger, the
// conversation memory and the transcript, and drives the dispatch loop for
// every user turn. Single-session, single-goroutine by design.
type Reviewer struct {
	agent     *Agent
	led       *review.Ledger
	memory    *Memory
	planner   *Planner
	reflector *Reflector
	matcher   *skills.Matcher
	recorder  *session.Recorder
}

// ReviewerOptions selects the optional pipeline stages.
type ReviewerOptions struct {
	// EnablePlanner runs a planning pass before each turn.
	EnablePlanner bool
	// EnableReflector critiques and possibly revises each final answer.
	EnableReflector bool
	// Matcher resolves skills for the turn; may be nil.
	Matcher *skills.Matcher
}

// NewReviewer wires a session together.
func NewReviewer(client llm.Client, registry *tools.Registry, led *review.Ledger, maxSteps int, opts ReviewerOptions) *Reviewer {
	r := &Reviewer{
		agent:    New(client, registry, maxSteps),
		led:      led,
		memory:   NewMemory(client),
		matcher:  opts.Matcher,
		recorder: session.NewRecorder(),
	}
	if opts.EnablePlanner {
		r.planner = NewPlanner(client, 0)
	}
	if opts.EnableReflector {
		r.reflector = NewReflector(client)
	}
	return r
}

// Ledger exposes the session's review state.
func (r *Reviewer) Ledger() *review.Ledger { return r.led }

// Recorder exposes the session transcript.
func (r *Reviewer) Recorder() *session.Recorder { return r.recorder }

// SessionID returns the transcript's session identifier.
func (r *Reviewer) SessionID() string { return r.recorder.ID() }

// Respond handles one user turn end to end: skill resolution, optional
// planning, the dispatch loop, optional reflection, then memory and
// transcript updates. Final-answer text streams through onStream.
func (r *Reviewer) Respond(ctx context.Context, input string, onStream func(string) error, onToolLog func(name string, res *tools.Result)) (string, error) {
	logging.Debugf(logging.CategorySession, "user turn: %s", input)
	r.recorder.Record("用户", 0, input)

	skillContext := r.resolveSkill(input)

	contextMessages := r.memory.Context()

	var plan string
	if r.planner != nil {
		p, err := r.planner.Plan(ctx, input, contextMessages, skillContext)
		if err != nil {
			logging.Debugf(logging.CategoryAgent, "planner skipped: %v", err)
		} else {
			plan = p
			r.recorder.Record("计划", 0, plan)
		}
	}

	history := append(append([]llm.Message{}, contextMessages...), llm.UserMessage(input))

	steps := 0
	result, err := r.agent.Run(ctx, BuildReviewPrompt(r.led), history, RunOptions{
		Plan:         plan,
		SkillContext: skillContext,
		OnStream:     onStream,
		OnToolCall: func(name string, res *tools.Result) {
			steps++
			r.recorder.Record("工具 "+name, steps, observationText(res))
			if onToolLog != nil {
				onToolLog(name, res)
			}
		},
	})
	if err != nil {
		return "", err
	}

	answer := result.Content
	if r.reflector != nil && result.FinishReason == FinishStop {
		revised, notes, rerr := r.reflector.Reflect(ctx, input, answer, contextMessages, plan)
		if rerr == nil {
			answer = revised
			if notes != "" {
				r.recorder.Record("反思", 0, notes)
			}
		}
	}

	r.recorder.Record("助手", result.Steps, answer)
	r.memory.AddInteraction(ctx, input, answer)
	return answer, nil
}

// resolveSkill finds skill instruction text for this input: an explicit
// /command wins, then automatic matching for model-invocable skills.
func (r *Reviewer) resolveSkill(input string) string {
	if r.matcher == nil {
		return ""
	}
	if skill, args := r.matcher.MatchCommand(input); skill != nil {
		logging.Debugf(logging.CategorySkills, "user invoked skill %s", skill.Name)
		return skill.PromptAddition(args, r.recorder.ID())
	}
	if skill := r.matcher.MatchForModel(input); skill != nil {
		logging.Debugf(logging.CategorySkills, "auto-matched skill %s", skill.Name)
		return skill.PromptAddition("", r.recorder.ID())
	}
	return ""
}

// AutoReview reviews every remaining section in sequence with the fixed
// review instruction, advancing the cursor after each one. Cancelling ctx
// stops between sections; completed mutations stay in the ledger.
func (r *Reviewer) AutoReview(ctx context.Context, onSection func(index, total int, title string), onStream func(string) error, onToolLog func(name string, res *tools.Result)) error {
	total := r.led.TotalSections()
	for !r.led.IsComplete() {
		if err := ctx.Err(); err != nil {
			return err
		}
		section := r.led.CurrentSection()
		if onSection != nil {
			onSection(section.Index, total, section.Title)
		}
		if _, err := r.Respond(ctx, reviewInstruction, onStream, onToolLog); err != nil {
			return err
		}
		r.led.Advance()
	}
	return nil
}

// StatusText renders the status command output.
func (r *Reviewer) StatusText() string {
	if r.led.ContractName() == "" {
		return "当前没有加载合同。"
	}
	counts := r.led.CountBySeverity()
	currentTitle := "（已完成）"
	if s := r.led.CurrentSection(); s != nil {
		currentTitle = s.Title
	}
	var b strings.Builder
	b.WriteString("当前审核状态：\n")
	fmt.Fprintf(&b, "  合同: %s\n", r.led.ContractName())
	fmt.Fprintf(&b, "  章节: %d/%d\n", r.led.CurrentIndex()+1, r.led.TotalSections())
	fmt.Fprintf(&b, "  当前: %s\n", currentTitle)
	fmt.Fprintf(&b, "  问题: %d 个 (高:%d 中:%d 低:%d)",
		r.led.TotalIssues(), counts["high"], counts["medium"], counts["low"])
	return b.String()
}

// Reset clears the ledger and the conversation memory.
func (r *Reviewer) Reset() {
	r.led.Reset()
	r.memory.Reset()
}
