package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidConfig signals a retrieval configuration that failed validation.
	ErrInvalidConfig = errors.New("invalid retrieval configuration")
	// ErrDefaultStrategy signals an operation rejected because it targets the default strategy.
	ErrDefaultStrategy = errors.New("strategy is the current default")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrExpansionProviderError signals a query expansion provider failure.
	ErrExpansionProviderError = errors.New("query expansion provider error")
	// ErrKeywordSearchNotSupported signals that the backend lacks keyword search.
	ErrKeywordSearchNotSupported = errors.New("keyword search not supported by backend")
)
