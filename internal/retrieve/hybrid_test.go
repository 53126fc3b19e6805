package retrieve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"contractintel/internal/graphstore"
	"contractintel/internal/vectorindex"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type fakeIndex struct {
	results []vectorindex.Result
	err     error
}

func (f *fakeIndex) Upsert(context.Context, []vectorindex.Chunk) error { return nil }
func (f *fakeIndex) Search(context.Context, []float32, int, map[string]string) ([]vectorindex.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}
func (f *fakeIndex) Delete(context.Context, map[string]string) (int, error) { return 0, nil }

func TestRetrieveGlobalQueryScopesGraphToMatchedContract(t *testing.T) {
	index := &fakeIndex{results: []vectorindex.Result{
		{ChunkID: "chunk-1", Text: "termination for convenience clause", Distance: 0.1, Metadata: map[string]string{"contract_id": "X"}},
	}}

	g := graphstore.NewMemory()
	ctx := context.Background()
	require.NoError(t, g.UpsertNode(ctx, "X", []string{graphstore.LabelContract}, nil))
	require.NoError(t, g.UpsertNode(ctx, "clause-x", []string{graphstore.LabelClause}, map[string]any{
		"section_name": "termination", "content": "termination for convenience", "clause_type": "termination", "importance": 0.7,
	}))
	require.NoError(t, g.UpsertEdge(ctx, "X", graphstore.RelContains, "clause-x", nil))

	retriever := NewHybridRetriever(index, NewGraphContextRetriever(g), &fakeEmbedder{})
	resp, err := retriever.Retrieve(ctx, "termination for convenience", DefaultRetrieveOptions())
	require.NoError(t, err)
	require.GreaterOrEqual(t, resp.VectorCount, 1)
	require.GreaterOrEqual(t, resp.GraphCount, 0)
	for _, r := range resp.Results {
		require.Equal(t, "X", r.ContractID)
	}
}

func TestRetrieveVectorFailureIsFatal(t *testing.T) {
	index := &fakeIndex{err: errors.New("index down")}
	g := graphstore.NewMemory()
	retriever := NewHybridRetriever(index, NewGraphContextRetriever(g), &fakeEmbedder{})
	_, err := retriever.Retrieve(context.Background(), "q", DefaultRetrieveOptions())
	require.Error(t, err)
}

func TestRetrieveEmbedderFailureIsFatal(t *testing.T) {
	index := &fakeIndex{}
	g := graphstore.NewMemory()
	retriever := NewHybridRetriever(index, NewGraphContextRetriever(g), &fakeEmbedder{err: errors.New("embedder down")})
	_, err := retriever.Retrieve(context.Background(), "q", DefaultRetrieveOptions())
	require.Error(t, err)
}

type failingGraph struct{ *graphstore.Memory }

func (failingGraph) GetNode(context.Context, string) (graphstore.Node, bool, error) {
	return graphstore.Node{}, false, errors.New("graph down")
}

func TestRetrieveSkipsGraphFailureForSingleContract(t *testing.T) {
	// the graph store fails for the contract referenced by the vector hit;
	// the fetch error is logged and skipped, so the call still succeeds
	// with vector-only results for that contract.
	index := &fakeIndex{results: []vectorindex.Result{
		{ChunkID: "chunk-1", Text: "some clause text", Distance: 0.2, Metadata: map[string]string{"contract_id": "failing-contract"}},
	}}
	g := failingGraph{graphstore.NewMemory()}
	retriever := NewHybridRetriever(index, NewGraphContextRetriever(g), &fakeEmbedder{})
	resp, err := retriever.Retrieve(context.Background(), "q", DefaultRetrieveOptions())
	require.NoError(t, err)
	require.Equal(t, 1, resp.VectorCount)
	require.Equal(t, 0, resp.GraphCount)
}
