package strata

import (
	"fmt"

	"github.com/kailas-cloud/strata/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound                  = domain.ErrNotFound
	ErrAlreadyExists             = domain.ErrAlreadyExists
	ErrInvalidConfig             = domain.ErrInvalidConfig
	ErrDefaultStrategy           = domain.ErrDefaultStrategy
	ErrEmbeddingProviderError    = domain.ErrEmbeddingProviderError
	ErrExpansionProviderError    = domain.ErrExpansionProviderError
	ErrKeywordSearchNotSupported = domain.ErrKeywordSearchNotSupported
)

// APIError carries the structured error body returned by the service.
// It unwraps to the matching domain sentinel so errors.Is() works.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Fields     []FieldError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("strata: %s (%s, http %d)", e.Message, e.Code, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case "strategy_not_found":
		return ErrNotFound
	case "strategy_already_exists":
		return ErrAlreadyExists
	case "validation_failed", "bad_request":
		return ErrInvalidConfig
	case "default_strategy_conflict":
		return ErrDefaultStrategy
	case "embedding_provider_error":
		return ErrEmbeddingProviderError
	case "expansion_provider_error":
		return ErrExpansionProviderError
	case "keyword_search_not_supported":
		return ErrKeywordSearchNotSupported
	}
	return nil
}
