package retrieve

import (
	"context"
	"sort"

	"contractintel/internal/apperrors"
	"contractintel/internal/graphstore"
)

// GraphContextRetriever fetches connected-entity context for a contract
// via a single traversal per relationship type — no per-neighbor
// follow-up queries.
type GraphContextRetriever struct {
	store graphstore.Store
}

// NewGraphContextRetriever constructs a GraphContextRetriever over store.
func NewGraphContextRetriever(store graphstore.Store) *GraphContextRetriever {
	return &GraphContextRetriever{store: store}
}

// ContextForContract gathers a contract's companies, clauses and risks.
// Returns (nil, nil) if the contract does not exist.
func (r *GraphContextRetriever) ContextForContract(ctx context.Context, contractID string, opts ContextForContractOptions) (*GraphContext, error) {
	contract, ok, err := r.store.GetNode(ctx, contractID)
	if err != nil {
		return nil, apperrors.New("graph_context.context_for_contract", apperrors.KindTransient, err)
	}
	if !ok {
		return nil, nil
	}

	gc := &GraphContext{
		ContractID:       contractID,
		ContractMetadata: contract.Props,
		TraversalDepth:   1,
	}

	if opts.IncludeCompanies {
		companies, err := r.store.NeighborNodes(ctx, contractID, graphstore.RelPartyTo)
		if err != nil {
			return nil, apperrors.New("graph_context.context_for_contract", apperrors.KindTransient, err)
		}
		gc.Companies = toCompanyInfos(companies)
	}

	if opts.IncludeClauses {
		clauses, err := r.store.NeighborNodes(ctx, contractID, graphstore.RelContains)
		if err != nil {
			return nil, apperrors.New("graph_context.context_for_contract", apperrors.KindTransient, err)
		}
		infos := toClauseInfos(clauses)
		max := opts.MaxClauses
		if max > 0 && len(infos) > max {
			infos = infos[:max]
		}
		gc.Clauses = infos
	}

	if opts.IncludeRisks {
		risks, err := r.store.NeighborNodes(ctx, contractID, graphstore.RelHasRisk)
		if err != nil {
			return nil, apperrors.New("graph_context.context_for_contract", apperrors.KindTransient, err)
		}
		gc.Risks = toRiskInfos(risks)
	}

	return gc, nil
}

// ContextForClauseType returns the clause of the given type on a
// contract (if any) paired with the risks sharing that clause's section.
func (r *GraphContextRetriever) ContextForClauseType(ctx context.Context, contractID, clauseType string) (ClauseTypeContext, error) {
	clauseNodes, err := r.store.NeighborNodes(ctx, contractID, graphstore.RelContains)
	if err != nil {
		return ClauseTypeContext{}, apperrors.New("graph_context.context_for_clause_type", apperrors.KindTransient, err)
	}
	clauses := toClauseInfos(clauseNodes)

	var matched *ClauseInfo
	for i := range clauses {
		if clauses[i].ClauseType == clauseType {
			c := clauses[i]
			matched = &c
			break
		}
	}
	if matched == nil {
		return ClauseTypeContext{}, nil
	}

	riskNodes, err := r.store.NeighborNodes(ctx, contractID, graphstore.RelHasRisk)
	if err != nil {
		return ClauseTypeContext{}, apperrors.New("graph_context.context_for_clause_type", apperrors.KindTransient, err)
	}
	risks := toRiskInfos(riskNodes)

	related := make([]RiskInfo, 0, len(risks))
	for _, rk := range risks {
		if rk.Section == matched.SectionName {
			related = append(related, rk)
		}
	}
	return ClauseTypeContext{Clause: matched, RelatedRisks: related}, nil
}

// ContractsByCompany returns up to limit contracts a company is party
// to, ordered by descending upload_date.
func (r *GraphContextRetriever) ContractsByCompany(ctx context.Context, companyName string, limit int) ([]ContractSummary, error) {
	contractNodes, err := r.store.NeighborNodes(ctx, companyName, graphstore.RelPartyTo)
	if err != nil {
		return nil, apperrors.New("graph_context.contracts_by_company", apperrors.KindTransient, err)
	}

	out := make([]ContractSummary, 0, len(contractNodes))
	for _, n := range contractNodes {
		out = append(out, ContractSummary{
			ContractID: n.ID,
			Filename:   stringProp(n.Props, "filename"),
			UploadDate: stringProp(n.Props, "upload_date"),
			RiskScore:  intProp(n.Props, "risk_score"),
			RiskLevel:  stringProp(n.Props, "risk_level"),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UploadDate != out[j].UploadDate {
			return out[i].UploadDate > out[j].UploadDate
		}
		return out[i].ContractID < out[j].ContractID
	})
	if limit <= 0 {
		limit = 5
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RiskContext pairs each of a contract's risks (optionally filtered by
// risk level) with the clause of matching section, if any.
func (r *GraphContextRetriever) RiskContext(ctx context.Context, contractID, riskLevel string) ([]RiskContextEntry, error) {
	riskNodes, err := r.store.NeighborNodes(ctx, contractID, graphstore.RelHasRisk)
	if err != nil {
		return nil, apperrors.New("graph_context.risk_context", apperrors.KindTransient, err)
	}
	risks := toRiskInfos(riskNodes)

	clauseNodes, err := r.store.NeighborNodes(ctx, contractID, graphstore.RelContains)
	if err != nil {
		return nil, apperrors.New("graph_context.risk_context", apperrors.KindTransient, err)
	}
	clauses := toClauseInfos(clauseNodes)
	bySection := make(map[string]ClauseInfo, len(clauses))
	for _, c := range clauses {
		if _, exists := bySection[c.SectionName]; !exists {
			bySection[c.SectionName] = c
		}
	}

	out := make([]RiskContextEntry, 0, len(risks))
	for _, rk := range risks {
		if riskLevel != "" && rk.RiskLevel != riskLevel {
			continue
		}
		entry := RiskContextEntry{Risk: rk}
		if c, ok := bySection[rk.Section]; ok {
			cc := c
			entry.Clause = &cc
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Risk.Section != out[j].Risk.Section {
			return out[i].Risk.Section < out[j].Risk.Section
		}
		return out[i].Risk.Concern < out[j].Risk.Concern
	})
	return out, nil
}

func toCompanyInfos(nodes []graphstore.Node) []CompanyInfo {
	out := make([]CompanyInfo, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, CompanyInfo{Name: n.ID, Role: stringProp(n.Props, "role")})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func toClauseInfos(nodes []graphstore.Node) []ClauseInfo {
	out := make([]ClauseInfo, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, ClauseInfo{
			ClauseID:    n.ID,
			SectionName: stringProp(n.Props, "section_name"),
			Content:     stringProp(n.Props, "content"),
			ClauseType:  stringProp(n.Props, "clause_type"),
			Importance:  floatProp(n.Props, "importance"),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SectionName != out[j].SectionName {
			return out[i].SectionName < out[j].SectionName
		}
		return out[i].ClauseID < out[j].ClauseID
	})
	return out
}

func toRiskInfos(nodes []graphstore.Node) []RiskInfo {
	out := make([]RiskInfo, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, RiskInfo{
			Concern:        stringProp(n.Props, "concern"),
			RiskLevel:      stringProp(n.Props, "risk_level"),
			Section:        stringProp(n.Props, "section"),
			Recommendation: stringProp(n.Props, "recommendation"),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Section != out[j].Section {
			return out[i].Section < out[j].Section
		}
		return out[i].Concern < out[j].Concern
	})
	return out
}

func stringProp(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func intProp(props map[string]any, key string) int {
	switch v := props[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func floatProp(props map[string]any, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}
