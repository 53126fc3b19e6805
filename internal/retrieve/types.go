// Package retrieve implements the GraphContextRetriever and
// HybridRetriever components: connected-entity context fetched from
// GraphStore via single traversals, fanned out alongside VectorIndex
// search and fused with Reciprocal Rank Fusion — generalized from the
// pack's own retrieve.ParallelCandidates/FuseRRF/ExpandWithGraph split
// to the contract/company/clause/risk graph vocabulary.
package retrieve

// Source identifies which collaborator produced a RetrievalResult.
type Source string

const (
	SourceVector Source = "vector"
	SourceGraph  Source = "graph"
)

// RetrievalResult is the fused unit HybridRetriever returns.
type RetrievalResult struct {
	ContractID     string
	Content        string
	Source         Source
	VectorScore    *float64
	GraphRelevance *float64
	RRFScore       float64
	Metadata       map[string]string
}

// HybridResponse is the result of a single HybridRetriever.Retrieve call.
type HybridResponse struct {
	Results        []RetrievalResult
	VectorCount    int
	GraphCount     int
	EstimatedTokens int
}

// CompanyInfo is a PARTY_TO neighbor of a contract.
type CompanyInfo struct {
	Name string
	Role string
}

// ClauseInfo is a CONTAINS neighbor of a contract.
type ClauseInfo struct {
	ClauseID    string
	SectionName string
	Content     string
	ClauseType  string
	Importance  float64
}

// RiskInfo is a HAS_RISK neighbor of a contract.
type RiskInfo struct {
	Concern        string
	RiskLevel      string
	Section        string
	Recommendation string
}

// GraphContext is the result of context_for_contract: every
// connected-entity neighborhood of a contract, each gathered in one
// traversal of its relationship type.
type GraphContext struct {
	ContractID       string
	ContractMetadata map[string]any
	Companies        []CompanyInfo
	Clauses          []ClauseInfo
	Risks            []RiskInfo
	TraversalDepth   int
}

// ClauseTypeContext is the result of context_for_clause_type: the
// matching clause (if any) paired with the contract's risks sharing its
// section.
type ClauseTypeContext struct {
	Clause        *ClauseInfo
	RelatedRisks  []RiskInfo
}

// RiskContextEntry pairs a risk with the clause of matching section, if
// any such clause exists on the contract.
type RiskContextEntry struct {
	Risk   RiskInfo
	Clause *ClauseInfo
}

// ContractSummary is a single contracts_by_company row.
type ContractSummary struct {
	ContractID string
	Filename   string
	UploadDate string
	RiskScore  int
	RiskLevel  string
}

// ContextForContractOptions toggles which neighborhoods
// context_for_contract gathers.
type ContextForContractOptions struct {
	IncludeCompanies bool
	IncludeClauses   bool
	IncludeRisks     bool
	MaxClauses       int
}

// DefaultContextForContractOptions matches the public contract's defaults.
func DefaultContextForContractOptions() ContextForContractOptions {
	return ContextForContractOptions{
		IncludeCompanies: true,
		IncludeClauses:   true,
		IncludeRisks:     true,
		MaxClauses:       10,
	}
}
