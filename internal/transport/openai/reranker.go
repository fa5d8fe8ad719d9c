package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/strata/internal/domain"
)

const rerankSystemPrompt = `You score search results for relevance. Given a query and a numbered list ` +
	`of passages, score each passage from 0.0 (irrelevant) to 1.0 (highly relevant). ` +
	`Respond with a JSON array of numbers, one per passage in order, and nothing else.`

// Reranker re-scores retrieved passages via an OpenAI-compatible chat API.
type Reranker struct {
	client   *openai.Client
	model    string
	provider string
	logger   *zap.Logger
}

// RerankerConfig holds the rerank provider settings.
type RerankerConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Provider string
	Logger   *zap.Logger
}

// NewReranker creates an OpenAI-compatible reranker.
func NewReranker(cfg *RerankerConfig) *Reranker {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	return &Reranker{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// Rerank returns one relevance score per passage, in input order.
func (r *Reranker) Rerank(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %s\n\nPassages:\n", query)
	for i, p := range passages {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, p)
	}

	req := openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: rerankSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: sb.String()},
		},
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, wrapAPIError(err, "rerank", domain.ErrExpansionProviderError)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty rerank response: %w", domain.ErrExpansionProviderError)
	}

	scores, err := parseScores(resp.Choices[0].Message.Content, len(passages))
	if err != nil {
		return nil, fmt.Errorf("parse rerank scores: %v: %w", err, domain.ErrExpansionProviderError)
	}
	return scores, nil
}

func parseScores(content string, want int) ([]float64, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var scores []float64
	if err := json.Unmarshal([]byte(content), &scores); err != nil {
		return nil, fmt.Errorf("unmarshal score list: %w", err)
	}
	if len(scores) != want {
		return nil, fmt.Errorf("got %d scores for %d passages", len(scores), want)
	}

	for i, s := range scores {
		if s < 0 {
			scores[i] = 0
		}
		if s > 1 {
			scores[i] = 1
		}
	}
	return scores, nil
}
