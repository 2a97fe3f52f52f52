// Package agent implements the bounded reason-and-act loop that drives a
// model through section-by-section contract review: decision parsing,
// streaming final-answer gating, prompt construction, conversation memory
// and the optional planner/reflector pipeline.
package agent

import (
	"encoding/json"
	"regexp"
	"strings"

	"clausewise/internal/llm"
)

// DecisionKind classifies one model response.
type DecisionKind int

const (
	// DecisionStructuredCall means the provider returned native tool calls.
	DecisionStructuredCall DecisionKind = iota
	// DecisionTextualCall means the response used the Action:/Action Input:
	// textual convention.
	DecisionTextualCall
	// DecisionFinalAnswer means the response carried a Final: marker.
	DecisionFinalAnswer
	// DecisionUnparseable means none of the above matched; the loop folds
	// this into a final answer so it always makes forward progress.
	DecisionUnparseable
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionStructuredCall:
		return "structured_call"
	case DecisionTextualCall:
		return "textual_call"
	case DecisionFinalAnswer:
		return "final_answer"
	default:
		return "unparseable"
	}
}

// Decision is the parsed outcome of one model response.
type Decision struct {
	Kind DecisionKind

	// ToolCalls is set for both call kinds. Textual calls synthesize a
	// single entry with an empty ID.
	ToolCalls []llm.ToolCall

	// Answer is the final answer text for FinalAnswer and Unparseable.
	Answer string
}

const finalMarker = "Final:"

var (
	actionRe      = regexp.MustCompile(`(?m)^\s*Action:\s*(\S+)`)
	actionInputRe = regexp.MustCompile(`(?ms)^\s*Action Input:\s*(.*)\z`)
	fencedJSONRe  = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
)

// Decide resolves a model response into a tagged decision. The provider's
// structured tool-call field is authoritative when present; the textual
// Action/Final convention is the fallback for providers without it.
func Decide(resp *llm.Response) Decision {
	if resp.HasToolCalls() {
		return Decision{Kind: DecisionStructuredCall, ToolCalls: resp.ToolCalls}
	}

	content := resp.Content
	if idx := strings.Index(content, finalMarker); idx >= 0 {
		return Decision{
			Kind:   DecisionFinalAnswer,
			Answer: strings.TrimSpace(content[idx+len(finalMarker):]),
		}
	}

	if call, ok := parseTextualAction(content); ok {
		return Decision{Kind: DecisionTextualCall, ToolCalls: []llm.ToolCall{call}}
	}

	return Decision{Kind: DecisionUnparseable, Answer: strings.TrimSpace(content)}
}

// parseTextualAction extracts a tool call from the Action:/Action Input:
// convention. The tool name is the first whitespace-delimited token after
// Action:; the input is JSON, optionally inside a fenced code block. Input
// that is not valid JSON is wrapped as {"input": <text>} so free-text
// arguments still reach the tool.
func parseTextualAction(content string) (llm.ToolCall, bool) {
	nameMatch := actionRe.FindStringSubmatch(content)
	if nameMatch == nil {
		return llm.ToolCall{}, false
	}
	inputMatch := actionInputRe.FindStringSubmatch(content)
	if inputMatch == nil {
		return llm.ToolCall{}, false
	}

	raw := strings.TrimSpace(inputMatch[1])
	// Cut anything the model appended after the input block.
	if idx := strings.Index(raw, "\nObservation:"); idx >= 0 {
		raw = strings.TrimSpace(raw[:idx])
	}
	if fenced := fencedJSONRe.FindStringSubmatch(raw); fenced != nil {
		raw = fenced[1]
	}

	args := map[string]any{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			args = map[string]any{"input": raw}
		}
	}
	return llm.ToolCall{Name: nameMatch[1], Arguments: args}, true
}
