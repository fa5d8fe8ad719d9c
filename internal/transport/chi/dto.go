package chi

import (
	"time"

	"github.com/kailas-cloud/strata/internal/domain/retrieval"
	"github.com/kailas-cloud/strata/internal/domain/search/result"
	domstrat "github.com/kailas-cloud/strata/internal/domain/strategy"
	searchuc "github.com/kailas-cloud/strata/internal/usecase/search"
)

// Error codes returned in ErrorResponse.Code.
const (
	codeBadRequest                = "bad_request"
	codeValidationFailed          = "validation_failed"
	codeStrategyNotFound          = "strategy_not_found"
	codeStrategyAlreadyExists     = "strategy_already_exists"
	codeDefaultStrategyConflict   = "default_strategy_conflict"
	codeEmbeddingProviderError    = "embedding_provider_error"
	codeExpansionProviderError    = "expansion_provider_error"
	codeKeywordSearchNotSupported = "keyword_search_not_supported"
	codeInternalError             = "internal_error"
)

// ErrorResponse is the uniform error body. Errors carries the per-field
// breakdown for validation failures so a form can highlight every offending
// input at once.
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Errors  []retrieval.FieldError `json:"errors,omitempty"`
}

// CreateStrategyRequest is the POST /retrieval-strategies body. Configuration
// is a partial override merged onto the built-in defaults.
type CreateStrategyRequest struct {
	Name          string                `json:"name"`
	Description   string                `json:"description"`
	Configuration retrieval.ConfigPatch `json:"configuration"`
}

// UpdateStrategyRequest is the PATCH /retrieval-strategies/{id} body.
// Configuration is merged onto the stored configuration.
type UpdateStrategyRequest struct {
	Name          *string               `json:"name"`
	Description   *string               `json:"description"`
	Configuration retrieval.ConfigPatch `json:"configuration"`
}

// StrategyResponse is the wire shape of a retrieval strategy.
type StrategyResponse struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Configuration retrieval.Config `json:"configuration"`
	IsDefault     bool             `json:"is_default"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// StrategyListResponse is the GET /retrieval-strategies body.
type StrategyListResponse struct {
	Items []StrategyResponse `json:"items"`
	Total int                `json:"total"`
}

// SearchRequest is the POST /search body. StrategyID selects a stored
// strategy; when empty, the default strategy applies. Configuration, when
// present, is merged on top of the selected strategy's configuration for
// this request only.
type SearchRequest struct {
	Query         string                 `json:"query"`
	StrategyID    string                 `json:"strategy_id"`
	Configuration *retrieval.ConfigPatch `json:"configuration,omitempty"`
}

// SearchResultItem is one retrieved document.
type SearchResultItem struct {
	ID      string            `json:"id"`
	Score   float64           `json:"score"`
	Content string            `json:"content"`
	Tags    map[string]string `json:"tags,omitempty"`
}

// SearchResponse is the POST /search body: the final result set plus the
// audit trace of the relaxation ladder walk.
type SearchResponse struct {
	Items []SearchResultItem `json:"items"`
	Total int                `json:"total"`
	Trace searchuc.Trace     `json:"trace"`
}

func strategyToResponse(s *domstrat.Strategy) StrategyResponse {
	return StrategyResponse{
		ID:            s.ID(),
		Name:          s.Name(),
		Description:   s.Description(),
		Configuration: s.Config(),
		IsDefault:     s.IsDefault(),
		CreatedAt:     time.UnixMilli(s.CreatedAt()).UTC(),
		UpdatedAt:     time.UnixMilli(s.UpdatedAt()).UTC(),
	}
}

func resultToItem(r *result.Result) SearchResultItem {
	item := SearchResultItem{
		ID:      r.ID(),
		Score:   r.Score(),
		Content: r.Content(),
	}
	if len(r.Tags()) > 0 {
		item.Tags = r.Tags()
	}
	return item
}
