// Package llm defines the model-call boundary: an ordered list of
// role-tagged messages in, a response (or chunk stream) out, with native
// tool calls carried as {id, name, arguments} triples. Any provider
// implementing Client is interchangeable; the package ships an
// OpenAI-compatible implementation.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Role tags a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn of the transcript.
type Message struct {
	Role    Role
	Content string

	// ToolCalls is set on assistant messages that invoke tools.
	ToolCalls []ToolCall
	// ToolCallID is set on tool messages answering a specific call.
	ToolCallID string
}

// SystemMessage builds a system turn.
func SystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }

// UserMessage builds a user turn.
func UserMessage(content string) Message { return Message{Role: RoleUser, Content: content} }

// AssistantMessage builds an assistant turn.
func AssistantMessage(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolDefinition advertises a callable tool to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Request is one chat completion call.
type Request struct {
	Messages []Message
	Tools    []ToolDefinition
}

// Usage reports token accounting when the provider returns it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is a completed (non-streamed or fully assembled) model reply.
type Response struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        *Usage
}

// HasToolCalls reports whether the model requested tool execution.
func (r *Response) HasToolCalls() bool { return len(r.ToolCalls) > 0 }

// StreamChunk is one increment of a streamed reply.
type StreamChunk struct {
	Content string
	Done    bool
}

// StreamCallback receives chunks as they arrive. Returning an error
// aborts the stream.
type StreamCallback func(chunk StreamChunk) error

// Client is the provider-neutral model boundary. ChatStream delivers
// content increments through cb and still returns the fully assembled
// response, including any tool calls gathered from the stream.
type Client interface {
	Chat(ctx context.Context, req Request) (*Response, error)
	ChatStream(ctx context.Context, req Request, cb StreamCallback) (*Response, error)
}

var (
	// ErrAPIKeyMissing means the client was constructed without credentials.
	ErrAPIKeyMissing = errors.New("llm: API key not configured")

	// ErrRateLimited maps provider 429 responses.
	ErrRateLimited = errors.New("llm: rate limited")
)

// New builds a Client from a provider name. "openai" covers every
// OpenAI-compatible endpoint; the base URL selects the actual vendor.
func New(provider string, cfg Config) (Client, error) {
	switch provider {
	case "", "openai":
		if cfg.APIKey == "" {
			return nil, ErrAPIKeyMissing
		}
		return NewOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", provider)
	}
}
