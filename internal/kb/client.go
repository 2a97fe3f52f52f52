// Package kb provides the legal knowledge-base lookup: a LlamaCloud
// retrieval client and the rag_query tool exposed to the model.
package kb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the LlamaCloud API root.
const DefaultBaseURL = "https://api.cloud.llamaindex.ai"

// defaultTimeout bounds one retrieval call so a slow knowledge base can
// never hang the dispatch loop.
const defaultTimeout = 30 * time.Second

// Result is one retrieved passage with its relevance score.
type Result struct {
	Text  string
	Score float64
}

// Client queries a LlamaCloud retrieval pipeline.
type Client struct {
	apiKey     string
	indexID    string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a retrieval client for one pipeline index.
func NewClient(apiKey, indexID, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		indexID:    indexID,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Configured reports whether credentials and an index are present.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.indexID != ""
}

type retrieveRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type retrieveNode struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
	Node  *struct {
		Text string `json:"text"`
	} `json:"node,omitempty"`
}

type retrieveResponse struct {
	RetrievalNodes []retrieveNode `json:"retrieval_nodes"`
}

// Retrieve fetches the topK most relevant passages for query.
func (c *Client) Retrieve(ctx context.Context, query string, topK int) ([]Result, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if topK <= 0 {
		topK = 3
	}

	payload, err := json.Marshal(retrieveRequest{Query: query, TopK: topK})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/pipelines/%s/retrieve", c.baseURL, c.indexID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrQueryFailed, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed retrieveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrQueryFailed, err)
	}

	results := make([]Result, 0, len(parsed.RetrievalNodes))
	for _, node := range parsed.RetrievalNodes {
		text := node.Text
		if text == "" && node.Node != nil {
			text = node.Node.Text
		}
		results = append(results, Result{Text: text, Score: node.Score})
	}
	return results, nil
}
