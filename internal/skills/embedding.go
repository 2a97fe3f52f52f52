package skills

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"google.golang.org/genai"

	"clausewise/internal/logging"
)

// matchThreshold is the minimum cosine similarity for an embedding match;
// below it the matcher falls back to keyword matching.
const matchThreshold = 0.55

// EmbeddingMatcher ranks skills against user input by cosine similarity of
// Gemini embeddings. Skill description vectors are cached and recomputed
// only when the skill set changes.
type EmbeddingMatcher struct {
	client *genai.Client
	model  string

	mu    sync.Mutex
	cache map[string][]float32 // description -> vector
}

// NewEmbeddingMatcher creates a matcher backed by the Gemini embedding API.
func NewEmbeddingMatcher(apiKey, model string) (*EmbeddingMatcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embedding API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}
	return &EmbeddingMatcher{
		client: client,
		model:  model,
		cache:  make(map[string][]float32),
	}, nil
}

// Best returns the candidate whose description is most similar to the
// input, or nil when nothing clears the threshold.
func (m *EmbeddingMatcher) Best(input string, candidates []*Skill) (*Skill, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query, err := m.embed(ctx, input)
	if err != nil {
		return nil, err
	}

	var best *Skill
	bestScore := matchThreshold
	for _, skill := range candidates {
		vec, err := m.embedCached(ctx, skill.Description)
		if err != nil {
			logging.Debugf(logging.CategorySkills, "embed %s failed: %v", skill.Name, err)
			continue
		}
		score := cosineSimilarity(query, vec)
		logging.Debugf(logging.CategorySkills, "similarity %s = %.4f", skill.Name, score)
		if score > bestScore {
			bestScore = score
			best = skill
		}
	}
	return best, nil
}

func (m *EmbeddingMatcher) embedCached(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	vec, ok := m.cache[text]
	m.mu.Unlock()
	if ok {
		return vec, nil
	}

	vec, err := m.embed(ctx, text)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.cache[text] = vec
	m.mu.Unlock()
	return vec, nil
}

func (m *EmbeddingMatcher) embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	result, err := m.client.Models.EmbedContent(ctx, m.model, contents, &genai.EmbedContentConfig{
		TaskType: "SEMANTIC_SIMILARITY",
	})
	if err != nil {
		return nil, fmt.Errorf("embed failed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return result.Embeddings[0].Values, nil
}

// cosineSimilarity returns a value in [-1, 1]; mismatched or zero vectors
// score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
