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

const expandSystemPrompt = `You rewrite search queries. Given a query, produce alternative phrasings ` +
	`that preserve the intent but vary wording and specificity. ` +
	`Respond with a JSON array of strings and nothing else.`

// Expander produces query variants via an OpenAI-compatible chat API.
// Serves the gpt and hybrid expansion methods.
type Expander struct {
	client   *openai.Client
	model    string
	provider string
	logger   *zap.Logger
}

// ExpanderConfig holds the chat expansion provider settings.
type ExpanderConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Provider string
	Logger   *zap.Logger
}

// NewExpander creates an OpenAI-compatible query expander.
func NewExpander(cfg *ExpanderConfig) *Expander {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	return &Expander{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// Expand returns up to n alternative phrasings of query. The original query is
// not included in the result.
func (e *Expander) Expand(ctx context.Context, query string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	req := openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0.7,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: expandSystemPrompt},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Produce %d variants of this query: %s", n, query),
			},
		},
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, wrapAPIError(err, "expand query", domain.ErrExpansionProviderError)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty chat response: %w", domain.ErrExpansionProviderError)
	}

	variants, err := parseVariants(resp.Choices[0].Message.Content, n)
	if err != nil {
		return nil, fmt.Errorf("parse variants: %v: %w", err, domain.ErrExpansionProviderError)
	}
	return variants, nil
}

// parseVariants parses a JSON string array out of the model output, tolerating
// markdown code fences.
func parseVariants(content string, limit int) ([]string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var variants []string
	if err := json.Unmarshal([]byte(content), &variants); err != nil {
		return nil, fmt.Errorf("unmarshal variant list: %w", err)
	}

	out := make([]string, 0, limit)
	for _, v := range variants {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
