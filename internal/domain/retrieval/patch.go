package retrieval

// FallbackPatch is a partial update of FallbackConfig. Nil fields are
// unchanged, so editing the threshold alone never drops the ladder.
type FallbackPatch struct {
	MinResultsThreshold *int              `json:"min_results_threshold,omitempty"`
	RelaxationSteps     *[]RelaxationStep `json:"relaxation_steps,omitempty"`
	UseKeywordFallback  *bool             `json:"use_keyword_search_fallback,omitempty"`
}

// ConfigPatch is a partial update of Config. Each field group is addressed
// by its own typed pointer rather than a runtime path string, so only valid
// fields can be touched. Nil means "leave as is".
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

// IsEmpty reports whether the patch touches no fields.
func (p ConfigPatch) IsEmpty() bool {
	return p.TopK == nil && p.MinScore == nil &&
		p.UseReranker == nil && p.RerankerTopK == nil && p.RerankerThreshold == nil &&
		p.ExpansionMethod == nil && p.ExpansionDepth == nil &&
		p.MultiQuery == nil && p.MultiQueryCount == nil &&
		p.Fallback == nil
}

// Merge applies patch onto base field-wise and returns the merged value.
// The fallback sub-record merges field-wise as well, never as a full
// replace. Merge(DefaultConfig(), ConfigPatch{}) equals DefaultConfig(),
// and applying the same patch twice is idempotent.
func Merge(base Config, patch ConfigPatch) Config {
	out := base.Clone()

	if patch.TopK != nil {
		out.TopK = *patch.TopK
	}
	if patch.MinScore != nil {
		out.MinScore = *patch.MinScore
	}
	if patch.UseReranker != nil {
		out.UseReranker = *patch.UseReranker
	}
	if patch.RerankerTopK != nil {
		out.RerankerTopK = *patch.RerankerTopK
	}
	if patch.RerankerThreshold != nil {
		out.RerankerThreshold = *patch.RerankerThreshold
	}
	if patch.ExpansionMethod != nil {
		out.ExpansionMethod = *patch.ExpansionMethod
	}
	if patch.ExpansionDepth != nil {
		out.ExpansionDepth = *patch.ExpansionDepth
	}
	if patch.MultiQuery != nil {
		out.MultiQuery = *patch.MultiQuery
	}
	if patch.MultiQueryCount != nil {
		out.MultiQueryCount = *patch.MultiQueryCount
	}

	if patch.Fallback != nil {
		fb := FallbackConfig{}
		if out.Fallback != nil {
			fb = *out.Fallback
		}
		if patch.Fallback.MinResultsThreshold != nil {
			fb.MinResultsThreshold = *patch.Fallback.MinResultsThreshold
		}
		if patch.Fallback.RelaxationSteps != nil {
			fb.RelaxationSteps = append([]RelaxationStep(nil), *patch.Fallback.RelaxationSteps...)
		}
		if patch.Fallback.UseKeywordFallback != nil {
			fb.UseKeywordFallback = *patch.Fallback.UseKeywordFallback
		}
		out.Fallback = &fb
	}

	return out
}
