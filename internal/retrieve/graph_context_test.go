package retrieve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"contractintel/internal/graphstore"
)

func seedGraph(t *testing.T) graphstore.Store {
	t.Helper()
	g := graphstore.NewMemory()
	ctx := context.Background()

	require.NoError(t, g.UpsertNode(ctx, "acme", []string{graphstore.LabelCompany}, map[string]any{"role": "buyer"}))
	require.NoError(t, g.UpsertNode(ctx, "c1", []string{graphstore.LabelContract}, map[string]any{
		"filename": "msa.pdf", "upload_date": "2025-01-10", "risk_score": 7, "risk_level": "high",
	}))
	require.NoError(t, g.UpsertNode(ctx, "clause-term", []string{graphstore.LabelClause}, map[string]any{
		"section_name": "termination", "content": "either party may terminate for convenience", "clause_type": "termination", "importance": 0.8,
	}))
	require.NoError(t, g.UpsertNode(ctx, "clause-liab", []string{graphstore.LabelClause}, map[string]any{
		"section_name": "liability", "content": "liability is capped", "clause_type": "limitation_of_liability", "importance": 0.5,
	}))
	require.NoError(t, g.UpsertNode(ctx, "risk-1", []string{graphstore.LabelRiskFactor}, map[string]any{
		"concern": "unbounded liability", "risk_level": "high", "section": "liability", "recommendation": "add a cap",
	}))
	require.NoError(t, g.UpsertEdge(ctx, "acme", graphstore.RelPartyTo, "c1", nil))
	require.NoError(t, g.UpsertEdge(ctx, "c1", graphstore.RelContains, "clause-term", nil))
	require.NoError(t, g.UpsertEdge(ctx, "c1", graphstore.RelContains, "clause-liab", nil))
	require.NoError(t, g.UpsertEdge(ctx, "c1", graphstore.RelHasRisk, "risk-1", nil))
	return g
}

func TestContextForContractGathersAllNeighborhoods(t *testing.T) {
	r := NewGraphContextRetriever(seedGraph(t))
	gc, err := r.ContextForContract(context.Background(), "c1", DefaultContextForContractOptions())
	require.NoError(t, err)
	require.NotNil(t, gc)
	require.Equal(t, "c1", gc.ContractID)
	require.Len(t, gc.Companies, 1)
	require.Equal(t, "acme", gc.Companies[0].Name)
	require.Len(t, gc.Clauses, 2)
	require.Len(t, gc.Risks, 1)
	require.Equal(t, 1, gc.TraversalDepth)
}

func TestContextForContractMissingReturnsNil(t *testing.T) {
	r := NewGraphContextRetriever(seedGraph(t))
	gc, err := r.ContextForContract(context.Background(), "nope", DefaultContextForContractOptions())
	require.NoError(t, err)
	require.Nil(t, gc)
}

func TestContextForContractRespectsMaxClauses(t *testing.T) {
	r := NewGraphContextRetriever(seedGraph(t))
	opts := DefaultContextForContractOptions()
	opts.MaxClauses = 1
	gc, err := r.ContextForContract(context.Background(), "c1", opts)
	require.NoError(t, err)
	require.Len(t, gc.Clauses, 1)
}

func TestContextForClauseType(t *testing.T) {
	r := NewGraphContextRetriever(seedGraph(t))
	res, err := r.ContextForClauseType(context.Background(), "c1", "limitation_of_liability")
	require.NoError(t, err)
	require.NotNil(t, res.Clause)
	require.Equal(t, "clause-liab", res.Clause.ClauseID)
	require.Len(t, res.RelatedRisks, 1)
	require.Equal(t, "unbounded liability", res.RelatedRisks[0].Concern)
}

func TestContextForClauseTypeNoMatch(t *testing.T) {
	r := NewGraphContextRetriever(seedGraph(t))
	res, err := r.ContextForClauseType(context.Background(), "c1", "indemnification")
	require.NoError(t, err)
	require.Nil(t, res.Clause)
	require.Nil(t, res.RelatedRisks)
}

func TestContractsByCompanyOrdersByDescendingUploadDate(t *testing.T) {
	g := seedGraph(t)
	ctx := context.Background()
	require.NoError(t, g.UpsertNode(ctx, "c2", []string{graphstore.LabelContract}, map[string]any{
		"filename": "nda.pdf", "upload_date": "2025-02-01",
	}))
	require.NoError(t, g.UpsertEdge(ctx, "acme", graphstore.RelPartyTo, "c2", nil))

	r := NewGraphContextRetriever(g)
	contracts, err := r.ContractsByCompany(ctx, "acme", 5)
	require.NoError(t, err)
	require.Len(t, contracts, 2)
	require.Equal(t, "c2", contracts[0].ContractID)
	require.Equal(t, "c1", contracts[1].ContractID)
}

func TestRiskContextPairsRiskWithMatchingClause(t *testing.T) {
	r := NewGraphContextRetriever(seedGraph(t))
	entries, err := r.RiskContext(context.Background(), "c1", "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Clause)
	require.Equal(t, "clause-liab", entries[0].Clause.ClauseID)
}

func TestRiskContextFiltersByRiskLevel(t *testing.T) {
	r := NewGraphContextRetriever(seedGraph(t))
	entries, err := r.RiskContext(context.Background(), "c1", "low")
	require.NoError(t, err)
	require.Empty(t, entries)
}
