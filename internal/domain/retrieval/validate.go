package retrieval

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/strata/internal/domain"
)

// Field error reasons.
const (
	ReasonOutOfRange   = "out_of_range"
	ReasonInvalidValue = "invalid_value"
	ReasonNotMonotonic = "not_monotonic"
	ReasonTooManySteps = "too_many_steps"
)

// Hard field bounds. The ladder length cap is policy, not a domain law,
// and lives in Policy instead.
const (
	MinDepth = 1
	MaxDepth = 3
	MinCount = 1
	MaxCount = 5
)

// Policy holds service-configurable validation limits.
type Policy struct {
	// MaxRelaxationSteps caps the ladder length. Zero means no cap.
	MaxRelaxationSteps int
	// MaxTopK caps every top_k in the config. Zero means no cap.
	MaxTopK int
}

// DefaultPolicy allows up to 3 relaxation steps and top_k up to 100.
func DefaultPolicy() Policy {
	return Policy{MaxRelaxationSteps: 3, MaxTopK: 100}
}

// FieldError describes one invalid field. Errors are reported as data,
// never thrown, so callers can render every problem at once.
type FieldError struct {
	Field  string  `json:"field"`
	Reason string  `json:"reason"`
	Min    float64 `json:"min,omitempty"`
	Max    float64 `json:"max,omitempty"`
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ValidationError wraps the accumulated field errors for callers that need
// an error value. Unwraps to domain.ErrInvalidConfig.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return domain.ErrInvalidConfig.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return domain.ErrInvalidConfig }

// Validate checks c against the per-field bounds and cross-field rules
// under the given policy. It is pure and accumulates errors across fields,
// failing fast within each field. An empty result means the config is
// acceptable to persist or execute.
func Validate(c Config, policy Policy) []FieldError {
	var errs []FieldError

	errs = appendTopK(errs, "top_k", c.TopK, policy.MaxTopK)
	errs = appendUnitRange(errs, "min_score", c.MinScore)

	// Reranker fields are gated: when the reranker is off they are ignored
	// entirely, whatever values are stored alongside.
	if c.UseReranker {
		errs = appendTopK(errs, "reranker_top_k", c.RerankerTopK, policy.MaxTopK)
		errs = appendUnitRange(errs, "reranker_threshold", c.RerankerThreshold)
	}

	if !c.ExpansionMethod.IsValid() {
		errs = append(errs, FieldError{Field: "query_expansion_method", Reason: ReasonInvalidValue})
	} else if c.ExpansionMethod != ExpansionNone {
		if c.ExpansionDepth < MinDepth || c.ExpansionDepth > MaxDepth {
			errs = append(errs, FieldError{
				Field: "query_expansion_depth", Reason: ReasonOutOfRange,
				Min: MinDepth, Max: MaxDepth,
			})
		}
	}

	if c.MultiQuery {
		if c.MultiQueryCount < MinCount || c.MultiQueryCount > MaxCount {
			errs = append(errs, FieldError{
				Field: "multi_query_count", Reason: ReasonOutOfRange,
				Min: MinCount, Max: MaxCount,
			})
		}
	}

	if c.Fallback != nil {
		errs = validateFallback(errs, c.Fallback, policy)
	}

	return errs
}

// ValidateStrict is Validate returning a *ValidationError when any field fails.
func ValidateStrict(c Config, policy Policy) error {
	if errs := Validate(c, policy); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func validateFallback(errs []FieldError, fb *FallbackConfig, policy Policy) []FieldError {
	errs = appendPositive(errs, "fallback_strategies.min_results_threshold", fb.MinResultsThreshold)

	for i, step := range fb.RelaxationSteps {
		field := fmt.Sprintf("fallback_strategies.relaxation_steps[%d]", i)
		stepErrs := len(errs)
		errs = appendTopK(errs, field+".top_k", step.TopK, policy.MaxTopK)
		errs = appendUnitRange(errs, field+".min_score", step.MinScore)
		if len(errs) > stepErrs {
			continue
		}

		// Each step must be no more restrictive than its predecessor:
		// min_score non-increasing, top_k non-decreasing.
		if i > 0 {
			prev := fb.RelaxationSteps[i-1]
			if step.MinScore > prev.MinScore || step.TopK < prev.TopK {
				errs = append(errs, FieldError{Field: field, Reason: ReasonNotMonotonic})
			}
		}
	}

	if policy.MaxRelaxationSteps > 0 && len(fb.RelaxationSteps) > policy.MaxRelaxationSteps {
		errs = append(errs, FieldError{
			Field: "fallback_strategies.relaxation_steps", Reason: ReasonTooManySteps,
			Max: float64(policy.MaxRelaxationSteps),
		})
	}

	return errs
}

func appendPositive(errs []FieldError, field string, v int) []FieldError {
	if v < 1 {
		return append(errs, FieldError{Field: field, Reason: ReasonOutOfRange, Min: 1})
	}
	return errs
}

func appendTopK(errs []FieldError, field string, v, max int) []FieldError {
	if v < 1 || (max > 0 && v > max) {
		fe := FieldError{Field: field, Reason: ReasonOutOfRange, Min: 1}
		if max > 0 {
			fe.Max = float64(max)
		}
		return append(errs, fe)
	}
	return errs
}

func appendUnitRange(errs []FieldError, field string, v float64) []FieldError {
	if v < 0 || v > 1 {
		return append(errs, FieldError{Field: field, Reason: ReasonOutOfRange, Min: 0, Max: 1})
	}
	return errs
}
