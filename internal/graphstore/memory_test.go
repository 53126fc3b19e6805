package graphstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpsertNodeMergesProps(t *testing.T) {
	g := NewMemory()
	ctx := context.Background()

	require.NoError(t, g.UpsertNode(ctx, "c1", []string{LabelContract}, map[string]any{"filename": "a.pdf"}))
	require.NoError(t, g.UpsertNode(ctx, "c1", []string{LabelContract}, map[string]any{"risk_score": 7}))

	n, ok, err := g.GetNode(ctx, "c1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a.pdf", n.Props["filename"])
	require.Equal(t, 7, n.Props["risk_score"])
	require.Equal(t, []string{LabelContract}, n.Labels)
}

func TestNeighborsIsUndirected(t *testing.T) {
	g := NewMemory()
	ctx := context.Background()

	require.NoError(t, g.UpsertNode(ctx, "acme", []string{LabelCompany}, map[string]any{"name": "Acme"}))
	require.NoError(t, g.UpsertNode(ctx, "c1", []string{LabelContract}, nil))
	require.NoError(t, g.UpsertEdge(ctx, "acme", RelPartyTo, "c1", nil))

	companies, err := g.Neighbors(ctx, "c1", RelPartyTo)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"acme"}, companies)

	contracts, err := g.Neighbors(ctx, "acme", RelPartyTo)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"c1"}, contracts)
}

func TestNeighborNodesReturnsFullProps(t *testing.T) {
	g := NewMemory()
	ctx := context.Background()

	require.NoError(t, g.UpsertNode(ctx, "acme", []string{LabelCompany}, map[string]any{"role": "buyer"}))
	require.NoError(t, g.UpsertNode(ctx, "c1", []string{LabelContract}, nil))
	require.NoError(t, g.UpsertEdge(ctx, "acme", RelPartyTo, "c1", nil))

	nodes, err := g.NeighborNodes(ctx, "c1", RelPartyTo)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	require.Equal(t, "acme", nodes[0].ID)
	require.Equal(t, "buyer", nodes[0].Props["role"])
}

func TestDeleteContractCascadesButPreservesCompany(t *testing.T) {
	g := NewMemory()
	ctx := context.Background()

	require.NoError(t, g.UpsertNode(ctx, "acme", []string{LabelCompany}, nil))
	require.NoError(t, g.UpsertNode(ctx, "c1", []string{LabelContract}, nil))
	require.NoError(t, g.UpsertNode(ctx, "clause1", []string{LabelClause}, nil))
	require.NoError(t, g.UpsertNode(ctx, "risk1", []string{LabelRiskFactor}, nil))
	require.NoError(t, g.UpsertEdge(ctx, "acme", RelPartyTo, "c1", nil))
	require.NoError(t, g.UpsertEdge(ctx, "c1", RelContains, "clause1", nil))
	require.NoError(t, g.UpsertEdge(ctx, "c1", RelHasRisk, "risk1", nil))

	require.NoError(t, g.DeleteContract(ctx, "c1"))

	_, ok, _ := g.GetNode(ctx, "c1")
	require.False(t, ok)
	_, ok, _ = g.GetNode(ctx, "clause1")
	require.False(t, ok)
	_, ok, _ = g.GetNode(ctx, "risk1")
	require.False(t, ok)

	n, ok, _ := g.GetNode(ctx, "acme")
	require.True(t, ok)
	require.Equal(t, "acme", n.ID)

	remaining, err := g.Neighbors(ctx, "acme", RelPartyTo)
	require.NoError(t, err)
	require.Empty(t, remaining)
}

func TestGetNodeMissingReturnsFalse(t *testing.T) {
	g := NewMemory()
	_, ok, err := g.GetNode(context.Background(), "nope")
	require.NoError(t, err)
	require.False(t, ok)
}
