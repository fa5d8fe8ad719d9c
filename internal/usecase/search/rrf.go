package search

import (
	"sort"

	"github.com/kailas-cloud/strata/internal/domain/search/result"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// fuseRRF merges per-variant result lists via Reciprocal Rank Fusion.
// score(d) = sum of 1/(k + rank_i(d)) for each ranking where d appears.
// When a document appears in several lists, the first occurrence is kept.
func fuseRRF(lists [][]result.Result, topK int) []result.Result {
	if len(lists) == 1 {
		if len(lists[0]) > topK {
			return lists[0][:topK]
		}
		return lists[0]
	}

	type scored struct {
		res   result.Result
		score float64
	}

	merged := make(map[string]*scored)

	for _, list := range lists {
		for rank, r := range list {
			s := 1.0 / float64(rrfK+rank+1)
			if existing, ok := merged[r.ID()]; ok {
				existing.score += s
			} else {
				merged[r.ID()] = &scored{res: r, score: s}
			}
		}
	}

	results := make([]result.Result, 0, len(merged))
	for _, s := range merged {
		// Rebuild result with fused RRF score
		results = append(results, s.res.WithScore(s.score))
	}

	sortByScore(results)

	if len(results) > topK {
		results = results[:topK]
	}

	return results
}

func sortByScore(results []result.Result) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score() > results[j].Score()
	})
}
