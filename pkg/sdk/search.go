package strata

import (
	"context"
	"net/http"
)

// SearchRequest executes a retrieval. StrategyID selects a stored strategy;
// when empty, the default strategy applies. Configuration, when present, is
// merged on top of the selected strategy's configuration for this request
// only.
type SearchRequest struct {
	Query         string       `json:"query"`
	StrategyID    string       `json:"strategy_id,omitempty"`
	Configuration *ConfigPatch `json:"configuration,omitempty"`
}

// SearchResult is one retrieved document.
type SearchResult struct {
	ID      string            `json:"id"`
	Score   float64           `json:"score"`
	Content string            `json:"content"`
	Tags    map[string]string `json:"tags,omitempty"`
}

// SearchResponse is the final result set plus the audit trace of the
// relaxation ladder walk. Check Trace.Degraded to tell a confident result
// set from a best-effort one.
type SearchResponse struct {
	Items []SearchResult `json:"items"`
	Total int            `json:"total"`
	Trace Trace          `json:"trace"`
}

// Search runs a retrieval against the service.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	var resp SearchResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/search", req, &resp)
	return resp, err
}
