package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clausewise/internal/logging"
)

// Config holds the connection settings for an OpenAI-compatible endpoint.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultConfig returns sensible defaults for the official endpoint.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:      apiKey,
		BaseURL:     "https://api.openai.com/v1",
		Model:       "gpt-4o",
		Temperature: 0.7,
		Timeout:     120 * time.Second,
	}
}

// OpenAIClient talks to any /chat/completions endpoint that speaks the
// OpenAI wire format, including native tool calls and SSE streaming.
type OpenAIClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// NewOpenAIClient creates a client; zero fields fall back to defaults.
func NewOpenAIClient(cfg Config) *OpenAIClient {
	def := DefaultConfig(cfg.APIKey)
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = def.Temperature
	}
	return &OpenAIClient{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Wire format structs.

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireTool struct {
	Type     string           `json:"type"`
	Function wireToolFunction `json:"function"`
}

type wireToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type chatRequest struct {
	Model         string         `json:"model"`
	Messages      []wireMessage  `json:"messages"`
	Temperature   float64        `json:"temperature,omitempty"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
	Tools         []wireTool     `json:"tools,omitempty"`
	ToolChoice    string         `json:"tool_choice,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type deltaToolCall struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

type chatChoice struct {
	Index   int `json:"index"`
	Message *struct {
		Role      string         `json:"role"`
		Content   string         `json:"content"`
		ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
	} `json:"message,omitempty"`
	Delta *struct {
		Content   string          `json:"content"`
		ToolCalls []deltaToolCall `json:"tool_calls,omitempty"`
	} `json:"delta,omitempty"`
	FinishReason string `json:"finish_reason"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *wireUsage   `json:"usage,omitempty"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) buildRequest(req Request, stream bool) chatRequest {
	messages := make([]wireMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		wm := wireMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			args, err := json.Marshal(tc.Arguments)
			if err != nil {
				args = []byte("{}")
			}
			wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: wireFunction{
					Name:      tc.Name,
					Arguments: string(args),
				},
			})
		}
		messages = append(messages, wm)
	}

	out := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Stream:      stream,
	}
	if stream {
		out.StreamOptions = &streamOptions{IncludeUsage: true}
	}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, wireTool{
			Type: "function",
			Function: wireToolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	if len(out.Tools) > 0 {
		out.ToolChoice = "auto"
	}
	return out
}

func (c *OpenAIClient) post(ctx context.Context, body chatRequest, accept string) (*http.Response, error) {
	if c.apiKey == "" {
		return nil, ErrAPIKeyMissing
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if accept != "" {
		httpReq.Header.Set("Accept", accept)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %s", ErrRateLimited, strings.TrimSpace(string(data)))
		}
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return resp, nil
}

// parseArguments decodes a tool-call argument string; malformed JSON
// degrades to an empty argument map rather than failing the call.
func parseArguments(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}

// Chat performs a synchronous completion.
func (c *OpenAIClient) Chat(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := c.post(ctx, c.buildRequest(req, false), "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("empty response: no choices")
	}

	choice := parsed.Choices[0]
	out := &Response{FinishReason: choice.FinishReason}
	if choice.Message != nil {
		out.Content = choice.Message.Content
		for _, tc := range choice.Message.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: parseArguments(tc.Function.Arguments),
			})
		}
	}
	if parsed.Usage != nil {
		out.Usage = &Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		}
	}
	logging.Debugf(logging.CategoryAPI, "chat completed in %v (finish=%s, tool_calls=%d)",
		time.Since(start), out.FinishReason, len(out.ToolCalls))
	return out, nil
}

// toolCallBuffer assembles streamed tool-call deltas keyed by index.
type toolCallBuffer struct {
	id   string
	name string
	args strings.Builder
}

// ChatStream performs a streaming completion. Content deltas are handed
// to cb as they arrive; tool-call deltas are assembled silently and
// returned on the final Response. The SSE scanner runs in its own
// goroutine so context cancellation can force-close the body and unblock
// it.
func (c *OpenAIClient) ChatStream(ctx context.Context, req Request, cb StreamCallback) (*Response, error) {
	start := time.Now()
	resp, err := c.post(ctx, c.buildRequest(req, true), "text/event-stream")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	contentChan := make(chan string, 16)
	scanErrChan := make(chan error, 1)

	var (
		content      strings.Builder
		buffers      = make(map[int]*toolCallBuffer)
		order        []int
		finishReason string
		usage        *Usage
	)

	go func() {
		defer close(contentChan)
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				return
			}
			var chunk chatResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue // skip malformed chunks
			}
			if chunk.Usage != nil {
				usage = &Usage{
					PromptTokens:     chunk.Usage.PromptTokens,
					CompletionTokens: chunk.Usage.CompletionTokens,
					TotalTokens:      chunk.Usage.TotalTokens,
				}
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]
			if choice.FinishReason != "" {
				finishReason = choice.FinishReason
			}
			if choice.Delta == nil {
				continue
			}
			for _, tc := range choice.Delta.ToolCalls {
				buf, ok := buffers[tc.Index]
				if !ok {
					buf = &toolCallBuffer{}
					buffers[tc.Index] = buf
					order = append(order, tc.Index)
				}
				if tc.ID != "" {
					buf.id = tc.ID
				}
				if tc.Function.Name != "" {
					buf.name = tc.Function.Name
				}
				buf.args.WriteString(tc.Function.Arguments)
			}
			if choice.Delta.Content != "" {
				content.WriteString(choice.Delta.Content)
				select {
				case contentChan <- choice.Delta.Content:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			scanErrChan <- err
		}
	}()

	for {
		select {
		case chunk, ok := <-contentChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					return nil, fmt.Errorf("stream error: %w", err)
				default:
				}
				out := &Response{
					Content:      content.String(),
					FinishReason: finishReason,
					Usage:        usage,
				}
				for _, idx := range order {
					buf := buffers[idx]
					out.ToolCalls = append(out.ToolCalls, ToolCall{
						ID:        buf.id,
						Name:      buf.name,
						Arguments: parseArguments(buf.args.String()),
					})
				}
				if cb != nil {
					if err := cb(StreamChunk{Done: true}); err != nil {
						return nil, err
					}
				}
				logging.Debugf(logging.CategoryAPI, "stream completed in %v (finish=%s, tool_calls=%d)",
					time.Since(start), out.FinishReason, len(out.ToolCalls))
				return out, nil
			}
			if cb != nil {
				if err := cb(StreamChunk{Content: chunk}); err != nil {
					resp.Body.Close()
					for range contentChan {
					}
					return nil, err
				}
			}
		case <-ctx.Done():
			// Force-close the body to unblock scanner.Scan, then wait for
			// the reader goroutine to exit.
			resp.Body.Close()
			for range contentChan {
			}
			return nil, ctx.Err()
		}
	}
}
