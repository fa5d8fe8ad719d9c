package strata

// ExpansionMethod selects how a query is augmented before search.
type ExpansionMethod string

// Expansion method constants.
const (
	ExpansionNone       ExpansionMethod = "none"
	ExpansionWordNet    ExpansionMethod = "wordnet"
	ExpansionConceptNet ExpansionMethod = "conceptnet"
	ExpansionGPT        ExpansionMethod = "gpt"
	ExpansionHybrid     ExpansionMethod = "hybrid"
)

// Retrieval pipeline stages reported in Trace attempts.
const (
	StageBaseSearch      = "base_search"
	StageRelaxStep       = "relax_step"
	StageKeywordFallback = "keyword_fallback"
)

// RelaxationStep is one rung of the fallback ladder: a looser
// (min_score, top_k) pair for a re-search attempt.
type RelaxationStep struct {
	MinScore float64 `json:"min_score"`
	TopK     int     `json:"top_k"`
}

// FallbackConfig controls what happens when the base search under-returns:
// the relaxation steps are walked in order, and optionally a keyword search
// runs as a last resort.
type FallbackConfig struct {
	MinResultsThreshold int              `json:"min_results_threshold"`
	RelaxationSteps     []RelaxationStep `json:"relaxation_steps"`
	UseKeywordFallback  bool             `json:"use_keyword_search_fallback"`
}

// Config is the full retrieval configuration of a strategy.
type Config struct {
	TopK              int             `json:"top_k"`
	MinScore          float64         `json:"min_score"`
	UseReranker       bool            `json:"use_reranker"`
	RerankerTopK      int             `json:"reranker_top_k"`
	RerankerThreshold float64         `json:"reranker_threshold"`
	ExpansionMethod   ExpansionMethod `json:"query_expansion_method"`
	ExpansionDepth    int             `json:"query_expansion_depth"`
	MultiQuery        bool            `json:"multi_query_variants"`
	MultiQueryCount   int             `json:"multi_query_count"`
	Fallback          *FallbackConfig `json:"fallback_strategies,omitempty"`
}

// FallbackPatch is a partial update of FallbackConfig. Nil fields are
// unchanged.
type FallbackPatch struct {
	MinResultsThreshold *int              `json:"min_results_threshold,omitempty"`
	RelaxationSteps     *[]RelaxationStep `json:"relaxation_steps,omitempty"`
	UseKeywordFallback  *bool             `json:"use_keyword_search_fallback,omitempty"`
}

// ConfigPatch is a partial update of Config; the service merges it onto the
// base configuration field-wise. Nil means "leave as is".
type ConfigPatch struct {
	TopK              *int             `json:"top_k,omitempty"`
	MinScore          *float64         `json:"min_score,omitempty"`
	UseReranker       *bool            `json:"use_reranker,omitempty"`
	RerankerTopK      *int             `json:"reranker_top_k,omitempty"`
	RerankerThreshold *float64         `json:"reranker_threshold,omitempty"`
	ExpansionMethod   *ExpansionMethod `json:"query_expansion_method,omitempty"`
	ExpansionDepth    *int             `json:"query_expansion_depth,omitempty"`
	MultiQuery        *bool            `json:"multi_query_variants,omitempty"`
	MultiQueryCount   *int             `json:"multi_query_count,omitempty"`
	Fallback          *FallbackPatch   `json:"fallback_strategies,omitempty"`
}

// FieldError is one per-field validation failure from the service.
type FieldError struct {
	Field  string  `json:"field"`
	Reason string  `json:"reason"`
	Min    float64 `json:"min,omitempty"`
	Max    float64 `json:"max,omitempty"`
}

// Attempt records one search attempt during the fallback ladder walk.
type Attempt struct {
	Stage     string  `json:"stage"`
	StepIndex int     `json:"step_index,omitempty"`
	MinScore  float64 `json:"min_score"`
	TopK      int     `json:"top_k"`
	Results   int     `json:"results"`
}

// Trace is the audit record of a ladder walk: every attempt in order, the
// stage that produced the returned results, and whether the walk exhausted
// all stages without meeting the result threshold.
type Trace struct {
	Attempts   []Attempt `json:"attempts"`
	FinalStage string    `json:"final_stage"`
	Degraded   bool      `json:"degraded"`
}

// DefaultConfig returns the service's built-in default configuration.
func DefaultConfig() Config {
	return Config{
		TopK:              10,
		MinScore:          0.7,
		UseReranker:       true,
		RerankerTopK:      10,
		RerankerThreshold: 0.5,
		ExpansionMethod:   ExpansionNone,
		ExpansionDepth:    1,
		MultiQuery:        false,
		MultiQueryCount:   3,
		Fallback: &FallbackConfig{
			MinResultsThreshold: 2,
			RelaxationSteps: []RelaxationStep{
				{MinScore: 0.5, TopK: 10},
				{MinScore: 0.3, TopK: 20},
			},
			UseKeywordFallback: true,
		},
	}
}
