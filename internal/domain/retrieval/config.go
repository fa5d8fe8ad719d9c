// Package retrieval defines the retrieval configuration model: base search
// parameters, optional reranking and query expansion, and the ordered
// fallback relaxation ladder applied when a search under-returns.
package retrieval

// ExpansionMethod selects how a query is augmented before search.
type ExpansionMethod string

// Supported query expansion methods.
const (
	ExpansionNone       ExpansionMethod = "none"
	ExpansionWordNet    ExpansionMethod = "wordnet"
	ExpansionConceptNet ExpansionMethod = "conceptnet"
	ExpansionGPT        ExpansionMethod = "gpt"
	ExpansionHybrid     ExpansionMethod = "hybrid"
)

// IsValid reports whether m is a known expansion method.
func (m ExpansionMethod) IsValid() bool {
	switch m {
	case ExpansionNone, ExpansionWordNet, ExpansionConceptNet, ExpansionGPT, ExpansionHybrid:
		return true
	}
	return false
}

// RelaxationStep is one rung of the fallback ladder: a looser
// (min_score, top_k) pair for a re-search attempt.
type RelaxationStep struct {
	MinScore float64 `json:"min_score"`
	TopK     int     `json:"top_k"`
}

// FallbackConfig controls what happens when the base search returns fewer
// results than MinResultsThreshold: the relaxation steps are walked in
// order, and optionally a keyword search runs as a last resort.
type FallbackConfig struct {
	MinResultsThreshold int              `json:"min_results_threshold"`
	RelaxationSteps     []RelaxationStep `json:"relaxation_steps"`
	UseKeywordFallback  bool             `json:"use_keyword_search_fallback"`
}

// Config is the unit of configuration for one retrieval strategy.
// A Config is treated as immutable once validated; editors merge a patch
// into a copy and publish the new value.
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

// DefaultConfig returns the safe default instance. Every field has a value,
// so a partial override merged onto it is always complete.
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

// Clone returns a deep copy of c. The relaxation step slice is the only
// reference field, so this is cheap.
func (c Config) Clone() Config {
	out := c
	if c.Fallback != nil {
		fb := *c.Fallback
		fb.RelaxationSteps = append([]RelaxationStep(nil), c.Fallback.RelaxationSteps...)
		out.Fallback = &fb
	}
	return out
}
