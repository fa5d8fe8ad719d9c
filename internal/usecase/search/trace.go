package search

// Stage names one phase of the retrieval pipeline.
type Stage string

// Pipeline stages, in walk order. The walk is forward-only: a settled or
// exhausted stage is never revisited, and FinalStage reports the stage that
// produced the returned results.
const (
	StageBaseSearch      Stage = "base_search"
	StageRelaxStep       Stage = "relax_step"
	StageKeywordFallback Stage = "keyword_fallback"
)

// Attempt records one search attempt during the ladder walk.
type Attempt struct {
	Stage     Stage   `json:"stage"`
	StepIndex int     `json:"step_index,omitempty"` // ladder rung, relax_step only
	MinScore  float64 `json:"min_score"`
	TopK      int     `json:"top_k"`
	Results   int     `json:"results"`
}

// Trace is the audit record of a ladder walk: every attempt in order, the
// stage that produced the returned results, and whether the walk exhausted
// all stages without meeting the result threshold.
type Trace struct {
	Attempts   []Attempt `json:"attempts"`
	FinalStage Stage     `json:"final_stage"`
	Degraded   bool      `json:"degraded"`
}
