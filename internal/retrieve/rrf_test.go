package retrieve

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFuseRRFWithOverlap(t *testing.T) {
	vector := []ScoredCandidate{
		{ContractID: "x", Content: "A", Score: 0.9},
		{ContractID: "x", Content: "B", Score: 0.8},
		{ContractID: "x", Content: "C", Score: 0.7},
	}
	graph := []ScoredCandidate{
		{ContractID: "x", Content: "B", Score: 0.95},
		{ContractID: "x", Content: "D", Score: 0.6},
	}

	results := FuseRRF(vector, graph, 60)
	require.Len(t, results, 4)

	order := make([]string, len(results))
	for i, r := range results {
		order[i] = r.Content
	}
	require.Equal(t, []string{"B", "A", "D", "C"}, order)

	require.InDelta(t, 1.0/62+1.0/61, results[0].RRFScore, 1e-12)
	require.InDelta(t, 1.0/61, results[1].RRFScore, 1e-12)
	require.InDelta(t, 1.0/62, results[2].RRFScore, 1e-12)
	require.InDelta(t, 1.0/63, results[3].RRFScore, 1e-12)
}

func TestFuseRRFSoleListMembershipHasOneTerm(t *testing.T) {
	vector := []ScoredCandidate{{ContractID: "x", Content: "only-vector", Score: 1}}
	results := FuseRRF(vector, nil, 60)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].VectorScore)
	require.Nil(t, results[0].GraphRelevance)
	require.Equal(t, SourceVector, results[0].Source)
	require.InDelta(t, 1.0/61, results[0].RRFScore, 1e-12)
}

func TestFuseRRFMonotonicityAcrossBothLists(t *testing.T) {
	vector := []ScoredCandidate{
		{ContractID: "x", Content: "A", Score: 0.9},
		{ContractID: "x", Content: "B", Score: 0.5},
	}
	graph := []ScoredCandidate{
		{ContractID: "x", Content: "A", Score: 0.9},
		{ContractID: "x", Content: "B", Score: 0.5},
	}
	results := FuseRRF(vector, graph, 60)
	require.Equal(t, "A", results[0].Content)
	require.Equal(t, "B", results[1].Content)
}

func TestFuseRRFTieBreaksDeterministically(t *testing.T) {
	vector := []ScoredCandidate{{ContractID: "x", Content: "same", Score: 0.5}}
	graph := []ScoredCandidate{{ContractID: "y", Content: "same", Score: 0.5}}
	// the same content under different contract IDs is deduplicated on
	// content alone, so this collapses into one.
	results := FuseRRF(vector, graph, 60)
	require.Len(t, results, 1)

	// equal RRF scores: the vector-sourced result sorts before the graph
	// one, even though its contract ID sorts after.
	tied := FuseRRF(
		[]ScoredCandidate{{ContractID: "y", Content: "from-vector", Score: 0.5}},
		[]ScoredCandidate{{ContractID: "x", Content: "from-graph", Score: 0.5}}, 60)
	require.Len(t, tied, 2)
	require.Equal(t, "from-vector", tied[0].Content)
	require.Equal(t, "from-graph", tied[1].Content)
}

func TestNormalizeContentCollapsesWhitespaceAndCase(t *testing.T) {
	require.Equal(t, normalizeContent("Hello   World"), normalizeContent("hello world"))
}
