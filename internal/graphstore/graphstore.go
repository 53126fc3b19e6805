// Package graphstore defines the GraphStore collaborator: a labelled
// property graph of Contract/Company/Clause/RiskFactor nodes and their
// relationships, generalized from the pack's own minimal GraphDB
// interface (UpsertNode/UpsertEdge/Neighbors/GetNode) to the domain's
// node/relationship vocabulary.
package graphstore

import "context"

// Node labels.
const (
	LabelContract   = "Contract"
	LabelCompany    = "Company"
	LabelClause     = "Clause"
	LabelRiskFactor = "RiskFactor"
)

// Relationship types.
const (
	RelPartyTo  = "PARTY_TO"  // Company -> Contract
	RelContains = "CONTAINS"  // Contract -> Clause
	RelHasRisk  = "HAS_RISK"  // Contract -> RiskFactor
)

// Node is a single labelled property-graph node.
type Node struct {
	ID     string
	Labels []string
	Props  map[string]any
}

// Store is the GraphStore collaborator surface: a Cypher-like query
// surface reduced to the handful of operations the core's traversals
// need, each with uniqueness-constraint (idempotent MERGE) semantics on
// Contract.contract_id, Clause.clause_id and Company.name.
type Store interface {
	// UpsertNode creates or merges the node with the given id, which is
	// its unique key.
	UpsertNode(ctx context.Context, id string, labels []string, props map[string]any) error
	// UpsertEdge creates or merges a directed edge, idempotent on
	// (srcID, rel, dstID).
	UpsertEdge(ctx context.Context, srcID, rel, dstID string, props map[string]any) error
	// Neighbors returns the IDs connected to id via a single hop of rel,
	// in either direction — the Go equivalent of the undirected Cypher
	// pattern (n)-[:REL]-(m) WHERE n.id = id, which is what lets
	// context_for_contract fetch PARTY_TO companies (Company->Contract)
	// in the same single traversal it uses for outbound CONTAINS/HAS_RISK.
	Neighbors(ctx context.Context, id, rel string) ([]string, error)
	// NeighborNodes is Neighbors plus each neighbor's full node data in
	// the same traversal — the single-query form GraphContextRetriever
	// relies on to avoid fetching each neighbor's properties separately.
	NeighborNodes(ctx context.Context, id, rel string) ([]Node, error)
	// GetNode fetches a single node by id.
	GetNode(ctx context.Context, id string) (Node, bool, error)
	// DeleteContract removes a Contract node, its outbound CONTAINS and
	// HAS_RISK targets, and the inbound PARTY_TO edges referencing it —
	// but not the Company nodes, which may be shared.
	DeleteContract(ctx context.Context, contractID string) error
}
