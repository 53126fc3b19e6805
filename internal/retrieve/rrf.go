package retrieve

import (
	"sort"
	"strings"
)

// ScoredCandidate is a single candidate from one of the two source
// lists RRF fuses: a vector search hit or a graph-derived entity.
type ScoredCandidate struct {
	ContractID string
	Content    string
	Score      float64
	Metadata   map[string]string
}

const defaultRRFK = 60

// FuseRRF combines the vector and graph candidate lists with Reciprocal
// Rank Fusion. Each list is independently ranked by descending Score;
// a candidate appearing in both lists (deduplicated on normalised
// content) receives the sum of both reciprocal terms.
func FuseRRF(vector, graph []ScoredCandidate, k int) []RetrievalResult {
	if k <= 0 {
		k = defaultRRFK
	}

	byKey := make(map[string]*RetrievalResult)
	order := make([]string, 0, len(vector)+len(graph))

	accumulate := func(items []ScoredCandidate, assign func(r *RetrievalResult, score float64)) {
		ranked := rankDesc(items)
		for i, c := range ranked {
			term := 1.0 / float64(k+i+1)
			key := normalizeContent(c.Content)
			res, ok := byKey[key]
			if !ok {
				res = &RetrievalResult{ContractID: c.ContractID, Content: c.Content, Metadata: c.Metadata}
				byKey[key] = res
				order = append(order, key)
			}
			score := c.Score
			assign(res, score)
			res.RRFScore += term
		}
	}

	accumulate(vector, func(r *RetrievalResult, score float64) { r.VectorScore = &score })
	accumulate(graph, func(r *RetrievalResult, score float64) { r.GraphRelevance = &score })

	out := make([]RetrievalResult, 0, len(order))
	for _, key := range order {
		r := byKey[key]
		r.Source = effectiveSource(*r)
		out = append(out, *r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RRFScore != out[j].RRFScore {
			return out[i].RRFScore > out[j].RRFScore
		}
		si, sj := sourceRank(out[i].Source), sourceRank(out[j].Source)
		if si != sj {
			return si < sj
		}
		if out[i].ContractID != out[j].ContractID {
			return out[i].ContractID < out[j].ContractID
		}
		return out[i].Content < out[j].Content
	})
	return out
}

// rankDesc returns a stable copy of items sorted by descending Score,
// with a deterministic tie-break so rank assignment never depends on
// map or slice iteration order.
func rankDesc(items []ScoredCandidate) []ScoredCandidate {
	out := make([]ScoredCandidate, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].ContractID != out[j].ContractID {
			return out[i].ContractID < out[j].ContractID
		}
		return out[i].Content < out[j].Content
	})
	return out
}

func effectiveSource(r RetrievalResult) Source {
	if r.VectorScore != nil {
		return SourceVector
	}
	return SourceGraph
}

func sourceRank(s Source) int {
	if s == SourceVector {
		return 0
	}
	return 1
}

func normalizeContent(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
