// Package search adapts FT.SEARCH results into domain search hits.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/strata/internal/db"
	"github.com/kailas-cloud/strata/internal/domain"
	"github.com/kailas-cloud/strata/internal/domain/search/result"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SupportsTextSearch(ctx context.Context) bool
}

// Repo implements usecase/retrieval.Searcher over a document corpus index.
type Repo struct {
	store store
	index string
}

// New creates a search repository bound to the given corpus index name.
func New(s store, corpus string) *Repo {
	return &Repo{
		store: s,
		index: fmt.Sprintf("%s%s:idx", domain.KeyPrefix, corpus),
	}
}

// SupportsTextSearch proxies the capability check from the store.
func (r *Repo) SupportsTextSearch(ctx context.Context) bool {
	return r.store.SupportsTextSearch(ctx)
}

// SearchKNN performs a KNN (vector similarity) search against the corpus.
func (r *Repo) SearchKNN(ctx context.Context, vector []float32, topK int) ([]result.Result, error) {
	q := &db.KNNQuery{
		IndexName:    r.index,
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{"__content", "__vector_score"},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}

	return parseResults(sr), nil
}

// SearchBM25 performs a BM25 keyword search. The capability is rechecked
// here so a direct call against a vector-only index fails with the sentinel
// instead of an opaque FT.SEARCH syntax error.
func (r *Repo) SearchBM25(ctx context.Context, query string, topK int) ([]result.Result, error) {
	if !r.store.SupportsTextSearch(ctx) {
		return nil, domain.ErrKeywordSearchNotSupported
	}

	q := &db.TextQuery{
		IndexName:    r.index,
		Query:        query,
		TopK:         topK,
		ReturnFields: []string{"__content"},
	}

	sr, err := r.store.SearchBM25(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search bm25: %w", err)
	}

	return parseResults(sr), nil
}

// parseResults converts db.SearchResult into []result.Result.
// Document ids are the stored key with the service prefix stripped;
// reserved __-prefixed fields become content, the rest become tags.
func parseResults(sr *db.SearchResult) []result.Result {
	if sr == nil || sr.Total == 0 {
		return nil
	}

	results := make([]result.Result, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		docID := strings.TrimPrefix(entry.Key, domain.KeyPrefix)

		var content string
		var tags map[string]string
		for name, value := range entry.Fields {
			if name == "__content" {
				content = value
				continue
			}
			if strings.HasPrefix(name, "__") {
				continue
			}
			if tags == nil {
				tags = make(map[string]string)
			}
			tags[name] = value
		}

		results = append(results, result.New(docID, entry.Score, content, tags))
	}

	return results
}
