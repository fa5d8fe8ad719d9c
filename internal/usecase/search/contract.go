package search

import (
	"context"

	"github.com/kailas-cloud/strata/internal/domain"
	"github.com/kailas-cloud/strata/internal/domain/search/result"
)

// Repository defines the storage contract for search operations.
type Repository interface {
	SearchKNN(ctx context.Context, vector []float32, topK int) ([]result.Result, error)
	SearchBM25(ctx context.Context, query string, topK int) ([]result.Result, error)
	SupportsTextSearch(ctx context.Context) bool
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Expander produces alternative phrasings of a query for multi-query search.
type Expander interface {
	Expand(ctx context.Context, query string, n int) ([]string, error)
}

// Reranker re-scores retrieved passages against the query.
type Reranker interface {
	Rerank(ctx context.Context, query string, passages []string) ([]float64, error)
}
