package search

import (
	"sort"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// rerank attaches a fuzzy similarity score to every candidate and re-sorts by
// the combined score. The fuzzy score is a partial-substring similarity
// between the raw (un-normalized) query and the candidate's preview text, so
// it can catch surface-level matches the index missed due to token-boundary
// normalization differences. The sort is stable: ties keep their original
// relevance order.
func rerank(rawQuery string, candidates []Result) {
	for i := range candidates {
		fuzzyScore := float64(fuzzy.PartialRatio(rawQuery, candidates[i].ContentPreview))
		candidates[i].FuzzyScore = fuzzyScore
		candidates[i].CombinedScore = roundScore(candidates[i].PrimaryScore*primaryWeight + fuzzyScore*fuzzyWeight)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CombinedScore > candidates[j].CombinedScore
	})
}
