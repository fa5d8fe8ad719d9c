package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/strata/internal/domain/retrieval"
	"github.com/kailas-cloud/strata/internal/domain/search/result"
	"github.com/kailas-cloud/strata/internal/logger"
	"github.com/kailas-cloud/strata/internal/metrics"
)

// Service executes retrieval under a strategy configuration: base semantic
// search, the fallback relaxation ladder, keyword fallback, and the optional
// rerank pass.
type Service struct {
	repo     Repository
	embed    Embedder
	expander Expander // nil disables multi-query expansion
	reranker Reranker // nil disables the rerank pass
}

// New creates a search service. expander and reranker may be nil.
func New(repo Repository, embed Embedder, expander Expander, reranker Reranker) *Service {
	return &Service{repo: repo, embed: embed, expander: expander, reranker: reranker}
}

// Response carries the final result set and the audit trace of the walk.
type Response struct {
	Results []result.Result
	Trace   Trace
}

// Search runs the retrieval pipeline for query under cfg.
//
// The walk is forward-only. The base search runs first; when a fallback
// sub-record is present and the attempt returns fewer results than the
// threshold, each relaxation step re-runs the search with its looser bounds,
// the new results replacing the old. Keyword search is the last resort.
// Exhausting every stage below the threshold is not an error: the last
// attempt's results are returned with the degraded flag set.
func (s *Service) Search(ctx context.Context, query string, cfg retrieval.Config) (Response, error) {
	start := time.Now()

	vectors, err := s.queryVectors(ctx, query, cfg)
	if err != nil {
		return Response{}, err
	}

	var trace Trace

	results, err := s.attemptKNN(ctx, vectors, cfg.MinScore, cfg.TopK)
	if err != nil {
		return Response{}, err
	}
	metrics.SearchAttemptsTotal.WithLabelValues(string(StageBaseSearch)).Inc()
	trace.Attempts = append(trace.Attempts, Attempt{
		Stage:    StageBaseSearch,
		MinScore: cfg.MinScore,
		TopK:     cfg.TopK,
		Results:  len(results),
	})
	trace.FinalStage = StageBaseSearch

	if cfg.Fallback != nil && len(results) < cfg.Fallback.MinResultsThreshold {
		results, err = s.walkLadder(ctx, query, vectors, cfg, &trace, results)
		if err != nil {
			return Response{}, err
		}
	}

	if cfg.UseReranker && s.reranker != nil && len(results) > 0 {
		results = s.rerankPass(ctx, query, results, cfg)
	}

	metrics.SearchDuration.WithLabelValues(string(trace.FinalStage)).Observe(time.Since(start).Seconds())

	return Response{Results: results, Trace: trace}, nil
}

// walkLadder runs the relaxation steps in order and then the keyword fallback.
// Each attempt's results replace the previous attempt's.
func (s *Service) walkLadder(
	ctx context.Context,
	query string,
	vectors [][]float32,
	cfg retrieval.Config,
	trace *Trace,
	results []result.Result,
) ([]result.Result, error) {
	fb := cfg.Fallback
	metrics.SearchFallbackTotal.Inc()

	for i, step := range fb.RelaxationSteps {
		stepResults, err := s.attemptKNN(ctx, vectors, step.MinScore, step.TopK)
		if err != nil {
			return nil, err
		}
		metrics.SearchAttemptsTotal.WithLabelValues(string(StageRelaxStep)).Inc()
		trace.Attempts = append(trace.Attempts, Attempt{
			Stage:     StageRelaxStep,
			StepIndex: i,
			MinScore:  step.MinScore,
			TopK:      step.TopK,
			Results:   len(stepResults),
		})

		results = stepResults
		trace.FinalStage = StageRelaxStep

		if len(results) >= fb.MinResultsThreshold {
			return results, nil
		}
	}

	if fb.UseKeywordFallback && s.repo.SupportsTextSearch(ctx) {
		kwResults, err := s.repo.SearchBM25(ctx, query, cfg.TopK)
		if err != nil {
			return nil, fmt.Errorf("search bm25: %w", err)
		}
		metrics.SearchAttemptsTotal.WithLabelValues(string(StageKeywordFallback)).Inc()
		trace.Attempts = append(trace.Attempts, Attempt{
			Stage:   StageKeywordFallback,
			TopK:    cfg.TopK,
			Results: len(kwResults),
		})

		results = kwResults
		trace.FinalStage = StageKeywordFallback

		if len(results) >= fb.MinResultsThreshold {
			return results, nil
		}
	}

	trace.Degraded = true
	metrics.SearchDegradedTotal.Inc()
	return results, nil
}

// queryVectors embeds the query, plus expanded variants when multi-query
// search is enabled. Expansion failure degrades to single-query search.
func (s *Service) queryVectors(ctx context.Context, query string, cfg retrieval.Config) ([][]float32, error) {
	queries := []string{query}

	if cfg.MultiQuery && cfg.ExpansionMethod != retrieval.ExpansionNone && s.expander != nil {
		variants, err := s.expander.Expand(ctx, query, cfg.MultiQueryCount-1)
		if err != nil {
			metrics.QueryExpansionTotal.WithLabelValues(string(cfg.ExpansionMethod), "error").Inc()
			logger.FromContext(ctx).Warn("Query expansion failed, using original query", zap.Error(err))
		} else {
			metrics.QueryExpansionTotal.WithLabelValues(string(cfg.ExpansionMethod), "success").Inc()
			queries = append(queries, variants...)
		}
	}

	vectors := make([][]float32, 0, len(queries))
	for _, q := range queries {
		embResult, err := s.embed.Embed(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("vectorize query: %w", err)
		}
		vectors = append(vectors, embResult.Embedding)
	}
	return vectors, nil
}

// attemptKNN runs one KNN attempt per query vector, filters each list by
// minScore, and fuses multi-variant lists via RRF.
func (s *Service) attemptKNN(
	ctx context.Context, vectors [][]float32, minScore float64, topK int,
) ([]result.Result, error) {
	lists := make([][]result.Result, 0, len(vectors))
	for _, vec := range vectors {
		found, err := s.repo.SearchKNN(ctx, vec, topK)
		if err != nil {
			return nil, fmt.Errorf("search knn: %w", err)
		}
		lists = append(lists, filterByScore(found, minScore))
	}
	return fuseRRF(lists, topK), nil
}

// rerankPass re-scores the settled results, drops those below the rerank
// threshold, and cuts to reranker_top_k. Rerank failure keeps the original
// ordering rather than failing the search.
func (s *Service) rerankPass(
	ctx context.Context, query string, results []result.Result, cfg retrieval.Config,
) []result.Result {
	passages := make([]string, len(results))
	for i := range results {
		passages[i] = results[i].Content()
	}

	scores, err := s.reranker.Rerank(ctx, query, passages)
	if err != nil {
		logger.FromContext(ctx).Warn("Rerank failed, keeping retrieval order", zap.Error(err))
		return results
	}

	reranked := make([]result.Result, 0, len(results))
	for i := range results {
		if scores[i] >= cfg.RerankerThreshold {
			reranked = append(reranked, results[i].WithScore(scores[i]))
		}
	}

	sortByScore(reranked)

	if len(reranked) > cfg.RerankerTopK {
		reranked = reranked[:cfg.RerankerTopK]
	}
	return reranked
}

func filterByScore(results []result.Result, minScore float64) []result.Result {
	if minScore <= 0 {
		return results
	}
	filtered := results[:0]
	for i := range results {
		if results[i].Score() >= minScore {
			filtered = append(filtered, results[i])
		}
	}
	return filtered
}
