package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"contractintel/internal/apperrors"
	"contractintel/internal/costledger"
	"contractintel/internal/graphstore"
	"contractintel/internal/modelrouter"
	"contractintel/internal/pdfparser"
	"contractintel/internal/retrieve"
	"contractintel/internal/vectorindex"
)

type fakeVectorIndex struct {
	upsertErr error
	upserted  []vectorindex.Chunk
}

func (f *fakeVectorIndex) Upsert(_ context.Context, chunks []vectorindex.Chunk) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, chunks...)
	return nil
}

func (f *fakeVectorIndex) Search(_ context.Context, _ []float32, n int, _ map[string]string) ([]vectorindex.Result, error) {
	return nil, nil
}

func (f *fakeVectorIndex) Delete(_ context.Context, _ map[string]string) (int, error) { return 0, nil }

func testRouterConfig() modelrouter.Config {
	return modelrouter.Config{
		Tiers: map[modelrouter.Complexity]modelrouter.ModelSpec{
			modelrouter.Simple:  {Model: "small-fast", InPerMillion: 1, OutPerMillion: 2},
			modelrouter.Complex: {Model: "large-careful", InPerMillion: 3, OutPerMillion: 6},
		},
		DefaultTimeout:     time.Second,
		MaxTimeout:         time.Second,
		MaxRetries:         1,
		BaseBackoff:        time.Millisecond,
		MaxBackoff:         2 * time.Millisecond,
		BreakerFailMax:     5,
		BreakerResetAfter:  time.Second,
		BreakerHalfOpenMax: 1,
	}
}

const riskJSON = `{"risk_score": 8, "risk_level": "ignored", "concerning_clauses": ` +
	`[{"section": "Termination", "concern": "unilateral termination", "risk_level": "high", "recommendation": "add notice period"}], ` +
	`"key_terms": {"parties": "Acme Corp, Globex Inc"}}`

func newTestPipeline(t *testing.T, vectors vectorindex.Index) (*AnalysisPipeline, *graphstore.Memory) {
	t.Helper()

	parser := pdfparser.NewFake().WithFixture("pdf-bytes", pdfparser.ParsedDocument{
		Text:     "This agreement may be terminated by either party without notice.",
		Sections: map[string]string{"Termination": "This agreement may be terminated by either party without notice."},
		Metadata: pdfparser.DocumentMetadata{Parties: []string{"Acme Corp", "Globex Inc"}},
	})

	provider := &modelrouter.FakeProvider{Default: modelrouter.ProviderResult{
		Text:        riskJSON,
		InputTokens: 100, OutputTokens: 50,
	}}
	embedder := &modelrouter.FakeEmbedder{Dim: 8}
	router := modelrouter.New(provider, testRouterConfig(), modelrouter.WithEmbedder(embedder))

	mem := graphstore.NewMemory()
	graphRetriever := retrieve.NewGraphContextRetriever(mem)
	hybrid := retrieve.NewHybridRetriever(vectors, graphRetriever, embedder)

	ledger := costledger.New(costledger.NewMemoryStore(), costledger.DefaultConfig())
	queries := NewQueryPipeline(hybrid, router, ledger)

	p := NewAnalysisPipeline(parser, router, vectors, mem, queries, ledger)
	return p, mem
}

func TestAnalyzePersistVectorsFailureIsRecordedButOtherStagesSucceed(t *testing.T) {
	vectors := &fakeVectorIndex{upsertErr: apperrors.New("vectorindex.upsert", apperrors.KindTransient, errors.New("backend exhausted retries"))}
	p, _ := newTestPipeline(t, vectors)

	state := p.Analyze(context.Background(), "contract-1", "agreement.pdf", []byte("pdf-bytes"), "")

	require.NotNil(t, state.Risk)
	require.Equal(t, 8, state.Risk.RiskScore)
	require.Equal(t, "high", state.Risk.RiskLevel)
	require.Empty(t, state.VectorChunkIDs)
	require.True(t, state.GraphWritten)
	require.Greater(t, state.TotalCost, 0.0)

	require.Len(t, state.Errors, 1)
	require.Equal(t, StagePersistVectors, state.Errors[0].Stage)
	require.False(t, state.Errors[0].Skipped)
}

func TestAnalyzeAllStagesSucceedAndWriteGraph(t *testing.T) {
	vectors := &fakeVectorIndex{}
	p, mem := newTestPipeline(t, vectors)

	state := p.Analyze(context.Background(), "contract-2", "agreement.pdf", []byte("pdf-bytes"), "")

	require.Empty(t, state.Errors)
	require.NotEmpty(t, state.VectorChunkIDs)
	require.True(t, state.GraphWritten)

	node, ok, err := mem.GetNode(context.Background(), "contract-2")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 8, node.Props["risk_score"])

	parties, err := mem.Neighbors(context.Background(), "contract-2", graphstore.RelPartyTo)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"Acme Corp", "Globex Inc"}, parties)
}

func TestAnalyzeEmptyParsedTextSkipsDownstreamStages(t *testing.T) {
	parser := pdfparser.NewFake().WithFixture("empty-pdf", pdfparser.ParsedDocument{Text: ""})
	provider := &modelrouter.FakeProvider{Default: modelrouter.ProviderResult{Text: riskJSON}}
	embedder := &modelrouter.FakeEmbedder{Dim: 8}
	router := modelrouter.New(provider, testRouterConfig(), modelrouter.WithEmbedder(embedder))
	mem := graphstore.NewMemory()
	graphRetriever := retrieve.NewGraphContextRetriever(mem)
	vectors := &fakeVectorIndex{}
	hybrid := retrieve.NewHybridRetriever(vectors, graphRetriever, embedder)
	ledger := costledger.New(costledger.NewMemoryStore(), costledger.DefaultConfig())
	queries := NewQueryPipeline(hybrid, router, ledger)
	p := NewAnalysisPipeline(parser, router, vectors, mem, queries, ledger)

	state := p.Analyze(context.Background(), "contract-3", "empty.pdf", []byte("empty-pdf"), "")

	require.Nil(t, state.Risk)
	require.Empty(t, state.VectorChunkIDs)
	var skippedStages []string
	for _, e := range state.Errors {
		if e.Skipped {
			skippedStages = append(skippedStages, e.Stage)
		}
	}
	require.ElementsMatch(t, []string{StageAnalyzeRisk, StagePersistVectors}, skippedStages)
}

func TestAnalyzeWithQueryRunsAnswerStage(t *testing.T) {
	vectors := &fakeVectorIndex{}
	p, _ := newTestPipeline(t, vectors)

	state := p.Analyze(context.Background(), "contract-4", "agreement.pdf", []byte("pdf-bytes"), "what is the termination policy?")

	require.True(t, state.GraphWritten)
	for _, e := range state.Errors {
		require.NotEqual(t, StageAnswer, e.Stage)
	}
}
