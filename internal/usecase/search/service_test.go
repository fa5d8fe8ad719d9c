package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/strata/internal/domain"
	"github.com/kailas-cloud/strata/internal/domain/retrieval"
	"github.com/kailas-cloud/strata/internal/domain/search/result"
	"github.com/kailas-cloud/strata/internal/metrics"
)

// --- Mocks ---

type knnCall struct {
	results []result.Result
}

type mockRepo struct {
	knnQueue    []knnCall
	knnCalls    int
	knnTopKs    []int
	bm25Results []result.Result
	bm25Calls   int
	bm25Err     error
	knnErr      error
	supportsTxt bool
}

func (m *mockRepo) SearchKNN(_ context.Context, _ []float32, topK int) ([]result.Result, error) {
	if m.knnErr != nil {
		return nil, m.knnErr
	}
	m.knnTopKs = append(m.knnTopKs, topK)
	if m.knnCalls >= len(m.knnQueue) {
		return nil, fmt.Errorf("unexpected knn call %d", m.knnCalls)
	}
	call := m.knnQueue[m.knnCalls]
	m.knnCalls++
	return call.results, nil
}

func (m *mockRepo) SearchBM25(_ context.Context, _ string, _ int) ([]result.Result, error) {
	m.bm25Calls++
	if m.bm25Err != nil {
		return nil, m.bm25Err
	}
	return m.bm25Results, nil
}

func (m *mockRepo) SupportsTextSearch(_ context.Context) bool { return m.supportsTxt }

type mockEmbedder struct {
	calls int
	err   error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
}

type mockExpander struct {
	variants []string
	err      error
}

func (m *mockExpander) Expand(_ context.Context, _ string, _ int) ([]string, error) {
	return m.variants, m.err
}

type mockReranker struct {
	scores []float64
	err    error
}

func (m *mockReranker) Rerank(_ context.Context, _ string, passages []string) ([]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.scores[:len(passages)], nil
}

func docs(t *testing.T, n int, score float64) []result.Result {
	t.Helper()
	out := make([]result.Result, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, result.New(fmt.Sprintf("doc-%d", i), score, "content", nil))
	}
	return out
}

func baseConfig() retrieval.Config {
	cfg := retrieval.DefaultConfig()
	cfg.UseReranker = false
	return cfg
}

// --- Tests ---

func TestSearch_BaseMeetsThreshold(t *testing.T) {
	repo := &mockRepo{knnQueue: []knnCall{
		{results: docs(t, 3, 0.9)},
	}}
	svc := New(repo, &mockEmbedder{}, nil, nil)

	resp, err := svc.Search(context.Background(), "query", baseConfig())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(resp.Results) != 3 {
		t.Errorf("expected 3 results, got %d", len(resp.Results))
	}
	if len(resp.Trace.Attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(resp.Trace.Attempts))
	}
	if resp.Trace.FinalStage != StageBaseSearch {
		t.Errorf("expected final stage %q, got %q", StageBaseSearch, resp.Trace.FinalStage)
	}
	if resp.Trace.Degraded {
		t.Error("meeting the threshold must not be degraded")
	}
}

func TestSearch_LadderSettlesMidway(t *testing.T) {
	// Threshold 2: base yields 1, step 0 yields 1, step 1 yields 3.
	repo := &mockRepo{knnQueue: []knnCall{
		{results: docs(t, 1, 0.9)},
		{results: docs(t, 1, 0.9)},
		{results: docs(t, 3, 0.9)},
	}}
	svc := New(repo, &mockEmbedder{}, nil, nil)

	resp, err := svc.Search(context.Background(), "query", baseConfig())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(resp.Trace.Attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(resp.Trace.Attempts))
	}
	if resp.Trace.Attempts[1].Stage != StageRelaxStep || resp.Trace.Attempts[1].StepIndex != 0 {
		t.Errorf("unexpected second attempt: %+v", resp.Trace.Attempts[1])
	}
	if resp.Trace.Attempts[2].Stage != StageRelaxStep || resp.Trace.Attempts[2].StepIndex != 1 {
		t.Errorf("unexpected third attempt: %+v", resp.Trace.Attempts[2])
	}
	if len(resp.Results) != 3 {
		t.Errorf("step results must replace earlier ones, got %d", len(resp.Results))
	}
	if resp.Trace.FinalStage != StageRelaxStep {
		t.Errorf("expected final stage %q, got %q", StageRelaxStep, resp.Trace.FinalStage)
	}
	if resp.Trace.Degraded {
		t.Error("settling on a ladder rung is not degraded")
	}
	if repo.bm25Calls != 0 {
		t.Error("keyword fallback must not run once the ladder settles")
	}

	// Each attempt carries its own top_k.
	wantTopKs := []int{10, 10, 20}
	for i, k := range wantTopKs {
		if repo.knnTopKs[i] != k {
			t.Errorf("attempt %d: expected top_k %d, got %d", i, k, repo.knnTopKs[i])
		}
	}
}

func TestSearch_EmptyLadderGoesStraightToKeyword(t *testing.T) {
	cfg := baseConfig()
	cfg.Fallback = &retrieval.FallbackConfig{
		MinResultsThreshold: 2,
		RelaxationSteps:     nil,
		UseKeywordFallback:  true,
	}

	repo := &mockRepo{
		knnQueue:    []knnCall{{results: docs(t, 1, 0.9)}},
		bm25Results: docs(t, 4, 2.5),
		supportsTxt: true,
	}
	svc := New(repo, &mockEmbedder{}, nil, nil)

	resp, err := svc.Search(context.Background(), "query", cfg)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(resp.Trace.Attempts) != 2 {
		t.Fatalf("expected base + keyword attempts, got %d", len(resp.Trace.Attempts))
	}
	if resp.Trace.Attempts[1].Stage != StageKeywordFallback {
		t.Errorf("expected keyword fallback, got %q", resp.Trace.Attempts[1].Stage)
	}
	if len(resp.Results) != 4 {
		t.Errorf("expected keyword results, got %d", len(resp.Results))
	}
	if resp.Trace.Degraded {
		t.Error("keyword fallback meeting the threshold is not degraded")
	}
}

func TestSearch_ExhaustedLadderIsDegradedNotError(t *testing.T) {
	repo := &mockRepo{
		knnQueue: []knnCall{
			{results: docs(t, 1, 0.9)},
			{results: docs(t, 0, 0)},
			{results: docs(t, 1, 0.9)},
		},
		bm25Results: docs(t, 1, 1.1),
		supportsTxt: true,
	}
	svc := New(repo, &mockEmbedder{}, nil, nil)

	resp, err := svc.Search(context.Background(), "query", baseConfig())
	if err != nil {
		t.Fatalf("exhausting the ladder must not be an error: %v", err)
	}

	if !resp.Trace.Degraded {
		t.Error("expected degraded flag")
	}
	if resp.Trace.FinalStage != StageKeywordFallback {
		t.Errorf("expected final stage %q, got %q", StageKeywordFallback, resp.Trace.FinalStage)
	}
	// Last attempt's results are returned even below threshold.
	if len(resp.Results) != 1 {
		t.Errorf("expected last attempt's results, got %d", len(resp.Results))
	}
	if len(resp.Trace.Attempts) != 4 {
		t.Errorf("expected 4 attempts, got %d", len(resp.Trace.Attempts))
	}
}

func TestSearch_KeywordSkippedWhenUnsupported(t *testing.T) {
	repo := &mockRepo{
		knnQueue: []knnCall{
			{results: docs(t, 1, 0.9)},
			{results: docs(t, 1, 0.9)},
			{results: docs(t, 1, 0.9)},
		},
		supportsTxt: false,
	}
	svc := New(repo, &mockEmbedder{}, nil, nil)

	resp, err := svc.Search(context.Background(), "query", baseConfig())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if repo.bm25Calls != 0 {
		t.Error("keyword search must be capability-gated")
	}
	if !resp.Trace.Degraded {
		t.Error("expected degraded flag when nothing meets the threshold")
	}
	if resp.Trace.FinalStage != StageRelaxStep {
		t.Errorf("expected final stage %q, got %q", StageRelaxStep, resp.Trace.FinalStage)
	}
}

func TestSearch_NoFallbackSubRecord(t *testing.T) {
	cfg := baseConfig()
	cfg.Fallback = nil

	repo := &mockRepo{knnQueue: []knnCall{{results: docs(t, 0, 0)}}}
	svc := New(repo, &mockEmbedder{}, nil, nil)

	resp, err := svc.Search(context.Background(), "query", cfg)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Trace.Attempts) != 1 {
		t.Errorf("no fallback sub-record means a single attempt, got %d", len(resp.Trace.Attempts))
	}
	if resp.Trace.Degraded {
		t.Error("no threshold is defined without a fallback sub-record")
	}
}

func TestSearch_MinScoreFiltersBeforeThresholdCheck(t *testing.T) {
	// 3 hits below min_score 0.7 count as zero for the threshold.
	cfg := baseConfig()
	cfg.Fallback = &retrieval.FallbackConfig{MinResultsThreshold: 2}

	repo := &mockRepo{knnQueue: []knnCall{{results: docs(t, 3, 0.4)}}}
	svc := New(repo, &mockEmbedder{}, nil, nil)

	resp, err := svc.Search(context.Background(), "query", cfg)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("expected low-score hits filtered out, got %d", len(resp.Results))
	}
	if !resp.Trace.Degraded {
		t.Error("expected degraded when everything is filtered and no ladder remains")
	}
}

func TestSearch_EmbeddingFailureIsAnError(t *testing.T) {
	svc := New(&mockRepo{}, &mockEmbedder{err: domain.ErrEmbeddingProviderError}, nil, nil)

	_, err := svc.Search(context.Background(), "query", baseConfig())
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected embedding provider error, got %v", err)
	}
}

func TestSearch_MultiQueryFusesVariants(t *testing.T) {
	cfg := baseConfig()
	cfg.MultiQuery = true
	cfg.MultiQueryCount = 3
	cfg.ExpansionMethod = retrieval.ExpansionGPT
	cfg.Fallback = nil

	// One KNN call per variant (original + 2 expansions).
	repo := &mockRepo{knnQueue: []knnCall{
		{results: []result.Result{result.New("a", 0.9, "", nil), result.New("b", 0.8, "", nil)}},
		{results: []result.Result{result.New("b", 0.9, "", nil), result.New("c", 0.8, "", nil)}},
		{results: []result.Result{result.New("b", 0.95, "", nil)}},
	}}
	embed := &mockEmbedder{}
	svc := New(repo, embed, &mockExpander{variants: []string{"v1", "v2"}}, nil)

	resp, err := svc.Search(context.Background(), "query", cfg)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if embed.calls != 3 {
		t.Errorf("expected one embedding per variant, got %d", embed.calls)
	}
	if repo.knnCalls != 3 {
		t.Errorf("expected one knn call per variant, got %d", repo.knnCalls)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("expected 3 fused results, got %d", len(resp.Results))
	}
	// "b" appears in all three rankings and must fuse to the top.
	if resp.Results[0].ID() != "b" {
		t.Errorf("expected doc present in all rankings first, got %q", resp.Results[0].ID())
	}
}

func TestSearch_ExpansionMetricCarriesConfiguredMethod(t *testing.T) {
	cfg := baseConfig()
	cfg.MultiQuery = true
	cfg.MultiQueryCount = 2
	cfg.ExpansionMethod = retrieval.ExpansionHybrid
	cfg.Fallback = nil

	repo := &mockRepo{knnQueue: []knnCall{
		{results: docs(t, 2, 0.9)},
		{results: docs(t, 2, 0.9)},
	}}
	svc := New(repo, &mockEmbedder{}, &mockExpander{variants: []string{"v1"}}, nil)

	counter := metrics.QueryExpansionTotal.WithLabelValues("hybrid", "success")
	before := testutil.ToFloat64(counter)

	if _, err := svc.Search(context.Background(), "query", cfg); err != nil {
		t.Fatalf("Search: %v", err)
	}

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("expected one hybrid success increment, got %v", got)
	}
}

func TestSearch_ExpansionFailureDegradesToSingleQuery(t *testing.T) {
	cfg := baseConfig()
	cfg.MultiQuery = true
	cfg.ExpansionMethod = retrieval.ExpansionGPT
	cfg.Fallback = nil

	repo := &mockRepo{knnQueue: []knnCall{{results: docs(t, 2, 0.9)}}}
	svc := New(repo, &mockEmbedder{}, &mockExpander{err: domain.ErrExpansionProviderError}, nil)

	resp, err := svc.Search(context.Background(), "query", cfg)
	if err != nil {
		t.Fatalf("expansion failure must not fail the search: %v", err)
	}
	if repo.knnCalls != 1 {
		t.Errorf("expected single-query fallback, got %d knn calls", repo.knnCalls)
	}
	if len(resp.Results) != 2 {
		t.Errorf("expected base results, got %d", len(resp.Results))
	}
}

func TestSearch_RerankPass(t *testing.T) {
	cfg := baseConfig()
	cfg.UseReranker = true
	cfg.RerankerTopK = 2
	cfg.RerankerThreshold = 0.5
	cfg.Fallback = nil

	repo := &mockRepo{knnQueue: []knnCall{{results: []result.Result{
		result.New("a", 0.9, "pa", nil),
		result.New("b", 0.85, "pb", nil),
		result.New("c", 0.8, "pc", nil),
	}}}}
	reranker := &mockReranker{scores: []float64{0.3, 0.95, 0.7}}
	svc := New(repo, &mockEmbedder{}, nil, reranker)

	resp, err := svc.Search(context.Background(), "query", cfg)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(resp.Results) != 2 {
		t.Fatalf("expected rerank threshold + top_k cut to keep 2, got %d", len(resp.Results))
	}
	if resp.Results[0].ID() != "b" || resp.Results[1].ID() != "c" {
		t.Errorf("expected rerank order [b c], got [%s %s]", resp.Results[0].ID(), resp.Results[1].ID())
	}
	if resp.Results[0].Score() != 0.95 {
		t.Errorf("expected rerank score on result, got %v", resp.Results[0].Score())
	}
}

func TestSearch_RerankFailureKeepsRetrievalOrder(t *testing.T) {
	cfg := baseConfig()
	cfg.UseReranker = true
	cfg.Fallback = nil

	repo := &mockRepo{knnQueue: []knnCall{{results: docs(t, 3, 0.9)}}}
	svc := New(repo, &mockEmbedder{}, nil, &mockReranker{err: errors.New("provider down")})

	resp, err := svc.Search(context.Background(), "query", cfg)
	if err != nil {
		t.Fatalf("rerank failure must not fail the search: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Errorf("expected original results kept, got %d", len(resp.Results))
	}
}
