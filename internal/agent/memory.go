package agent

import (
	"context"
	"fmt"
	"strings"

	"clausewise/internal/llm"
	"clausewise/internal/logging"
)

// Memory defaults: context window, summarization trigger, and how many
// recent turns survive a summarization verbatim.
const (
	DefaultMemoryWindow  = 20
	DefaultSummaryAfter  = 30
	DefaultSummaryKeep   = 6
	summarySystemMessage = "Summary of previous conversation:\n"
)

// Memory keeps the rolling conversation context for one session. When the
// transcript grows past the trigger, everything but the most recent turns
// is folded into a running summary by an LLM call; without a client it
// simply trims. Not safe for concurrent use; one session owns it.
type Memory struct {
	client       llm.Client
	window       int
	summaryAfter int
	summaryKeep  int

	messages []llm.Message
	summary  string
}

// NewMemory creates a memory with default thresholds. client may be nil,
// in which case overflow trims instead of summarizing.
func NewMemory(client llm.Client) *Memory {
	return &Memory{
		client:       client,
		window:       DefaultMemoryWindow,
		summaryAfter: DefaultSummaryAfter,
		summaryKeep:  DefaultSummaryKeep,
	}
}

// AddInteraction records one user/assistant exchange and summarizes when
// the transcript has grown past the trigger.
func (m *Memory) AddInteraction(ctx context.Context, userInput, assistantOutput string) {
	m.messages = append(m.messages, llm.UserMessage(userInput), llm.AssistantMessage(assistantOutput))
	m.maybeSummarize(ctx)
}

// Context returns the messages to prepend to the next turn: the running
// summary (if any) as a system message, then the most recent window.
func (m *Memory) Context() []llm.Message {
	var out []llm.Message
	if m.summary != "" {
		out = append(out, llm.SystemMessage(summarySystemMessage+m.summary))
	}
	start := 0
	if len(m.messages) > m.window {
		start = len(m.messages) - m.window
	}
	out = append(out, m.messages[start:]...)
	return out
}

// Reset drops the transcript and the running summary.
func (m *Memory) Reset() {
	m.messages = nil
	m.summary = ""
}

func (m *Memory) maybeSummarize(ctx context.Context) {
	if len(m.messages) <= m.summaryAfter {
		return
	}
	if m.client == nil {
		m.messages = m.messages[len(m.messages)-m.window:]
		return
	}

	older := m.messages[:len(m.messages)-m.summaryKeep]
	if len(older) == 0 {
		return
	}

	input := formatTranscript(older)
	if m.summary != "" {
		input = fmt.Sprintf("Existing summary:\n%s\n\nNew conversation:\n%s", m.summary, input)
	}

	resp, err := m.client.Chat(ctx, llm.Request{Messages: []llm.Message{
		llm.SystemMessage("Summarize the conversation for future context. Keep key facts, user preferences, decisions, and tasks. Be concise."),
		llm.UserMessage(input),
	}})
	if err != nil {
		// Summarization is best-effort; fall back to trimming.
		logging.Debugf(logging.CategorySession, "summarization failed: %v", err)
		m.messages = m.messages[len(m.messages)-m.window:]
		return
	}

	m.summary = strings.TrimSpace(resp.Content)
	m.messages = m.messages[len(m.messages)-m.summaryKeep:]
	logging.Debugf(logging.CategorySession, "summarized %d messages (%d runes of summary)", len(older), len([]rune(m.summary)))
}

func formatTranscript(messages []llm.Message) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		role := string(msg.Role)
		if role != "" {
			role = strings.ToUpper(role[:1]) + role[1:]
		}
		lines = append(lines, role+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}
