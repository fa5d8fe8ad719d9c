// Package result defines the search hit value object shared between layers.
package result

// Result is a single search hit.
type Result struct {
	id      string
	score   float64
	content string
	tags    map[string]string
}

// New creates a search result.
func New(id string, score float64, content string, tags map[string]string) Result {
	return Result{id: id, score: score, content: content, tags: tags}
}

// WithScore returns a copy of r carrying a different score.
func (r *Result) WithScore(score float64) Result {
	out := *r
	out.score = score
	return out
}

// ID returns the document identifier.
func (r *Result) ID() string { return r.id }

// Score returns the relevance score.
func (r *Result) Score() float64 { return r.score }

// Content returns the document content.
func (r *Result) Content() string { return r.content }

// Tags returns the document tags.
func (r *Result) Tags() map[string]string { return r.tags }
