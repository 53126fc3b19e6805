package retrieve

import (
	"context"
	"errors"
	"math"
	"sync"

	"contractintel/internal/apperrors"
	"contractintel/internal/modelrouter"
	"contractintel/internal/obs"
	"contractintel/internal/vectorindex"
)

// RetrieveOptions configures a single HybridRetriever.Retrieve call.
type RetrieveOptions struct {
	ContractID       string // empty means unscoped
	NVector          int
	NGraph           int
	IncludeCompanies bool
	IncludeRisks     bool
	RRFK             int
}

// DefaultRetrieveOptions matches the public contract's defaults.
func DefaultRetrieveOptions() RetrieveOptions {
	return RetrieveOptions{
		NVector:          5,
		NGraph:           3,
		IncludeCompanies: true,
		IncludeRisks:     true,
		RRFK:             defaultRRFK,
	}
}

// HybridRetriever searches VectorIndex, fans out to GraphContextRetriever
// in parallel across the contracts the vector hits name, then fuses and
// re-ranks with RRF.
type HybridRetriever struct {
	vector   vectorindex.Index
	graph    *GraphContextRetriever
	embedder modelrouter.Embedder
	log      obs.Logger
}

// Option configures a HybridRetriever.
type Option func(*HybridRetriever)

// WithLogger overrides the logger used for per-contract graph-fetch
// failures, which are swallowed rather than propagated.
func WithLogger(log obs.Logger) Option {
	return func(h *HybridRetriever) { h.log = log }
}

// NewHybridRetriever wires a VectorIndex, a GraphContextRetriever and an
// embedding collaborator into a single retrieval surface.
func NewHybridRetriever(vector vectorindex.Index, graph *GraphContextRetriever, embedder modelrouter.Embedder, opts ...Option) *HybridRetriever {
	h := &HybridRetriever{vector: vector, graph: graph, embedder: embedder, log: obs.NoopLogger{}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type graphFetch struct {
	contractID string
	gc         *GraphContext
	err        error
}

// Retrieve implements the HybridRetriever algorithm: vector search,
// parallel per-contract graph context fetch, RRF fusion.
func (h *HybridRetriever) Retrieve(ctx context.Context, query string, opts RetrieveOptions) (HybridResponse, error) {
	nVector := opts.NVector
	if nVector <= 0 {
		nVector = 5
	}
	nGraph := opts.NGraph
	if nGraph <= 0 {
		nGraph = 3
	}

	embeddings, err := h.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return HybridResponse{}, apperrors.New("hybrid_retriever.retrieve", apperrors.KindOf(err), err)
	}
	if len(embeddings) == 0 {
		return HybridResponse{}, apperrors.New("hybrid_retriever.retrieve", apperrors.KindFatal, errors.New("embedder returned no vectors"))
	}

	filter := map[string]string{}
	if opts.ContractID != "" {
		filter["contract_id"] = opts.ContractID
	}

	vectorResults, err := h.vector.Search(ctx, embeddings[0], nVector, filter)
	if err != nil {
		return HybridResponse{}, apperrors.New("hybrid_retriever.retrieve", apperrors.KindOf(err), err)
	}

	contractIDs := uniqueContractIDs(vectorResults, opts.ContractID)
	graphContexts := h.fetchGraphContexts(ctx, contractIDs, opts, nGraph)

	vectorCandidates := make([]ScoredCandidate, 0, len(vectorResults))
	for _, r := range vectorResults {
		vectorCandidates = append(vectorCandidates, ScoredCandidate{
			ContractID: r.Metadata["contract_id"],
			Content:    r.Text,
			Score:      r.RelevanceScore(),
			Metadata:   r.Metadata,
		})
	}

	graphCandidates := make([]ScoredCandidate, 0)
	for _, contractID := range contractIDs {
		gc := graphContexts[contractID]
		if gc == nil {
			continue
		}
		graphCandidates = append(graphCandidates, graphCandidatesFor(contractID, *gc, opts.IncludeRisks)...)
	}

	k := opts.RRFK
	if k <= 0 {
		k = defaultRRFK
	}
	results := FuseRRF(vectorCandidates, graphCandidates, k)

	totalChars := 0
	for _, r := range results {
		totalChars += len(r.Content)
	}

	return HybridResponse{
		Results:         results,
		VectorCount:     len(vectorResults),
		GraphCount:      len(graphCandidates),
		EstimatedTokens: int(math.Ceil(float64(totalChars) / 4)),
	}, nil
}

// fetchGraphContexts fans out context_for_contract across contractIDs in
// parallel. A failure for any single contract is logged and that
// contract's graph context is simply absent from the result — the
// overall call still succeeds.
func (h *HybridRetriever) fetchGraphContexts(ctx context.Context, contractIDs []string, opts RetrieveOptions, nGraph int) map[string]*GraphContext {
	out := make(map[string]*GraphContext, len(contractIDs))
	if len(contractIDs) == 0 {
		return out
	}

	ch := make(chan graphFetch, len(contractIDs))
	var wg sync.WaitGroup
	for _, contractID := range contractIDs {
		wg.Add(1)
		go func(contractID string) {
			defer wg.Done()
			gc, err := h.graph.ContextForContract(ctx, contractID, ContextForContractOptions{
				IncludeCompanies: opts.IncludeCompanies,
				IncludeClauses:   true,
				IncludeRisks:     opts.IncludeRisks,
				MaxClauses:       nGraph,
			})
			ch <- graphFetch{contractID: contractID, gc: gc, err: err}
		}(contractID)
	}
	go func() {
		wg.Wait()
		close(ch)
	}()

	for f := range ch {
		if f.err != nil {
			h.log.Error("hybrid_retriever: graph context fetch failed, skipping", map[string]any{
				"contract_id": f.contractID,
				"error":       f.err.Error(),
			})
			continue
		}
		if f.gc != nil {
			out[f.contractID] = f.gc
		}
	}
	return out
}

func uniqueContractIDs(results []vectorindex.Result, scopedTo string) []string {
	if scopedTo != "" {
		return []string{scopedTo}
	}
	seen := make(map[string]struct{})
	out := make([]string, 0, len(results))
	for _, r := range results {
		id := r.Metadata["contract_id"]
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// graphCandidatesFor converts a GraphContext's clauses (and, if
// requested, risks) into RRF candidates, deriving graph_relevance from
// clause importance and risk severity — deterministic, bounded to [0,1].
func graphCandidatesFor(contractID string, gc GraphContext, includeRisks bool) []ScoredCandidate {
	out := make([]ScoredCandidate, 0, len(gc.Clauses)+len(gc.Risks))
	for _, c := range gc.Clauses {
		out = append(out, ScoredCandidate{
			ContractID: contractID,
			Content:    c.Content,
			Score:      clamp01(c.Importance),
			Metadata:   map[string]string{"clause_id": c.ClauseID, "section_name": c.SectionName},
		})
	}
	if includeRisks {
		for _, rk := range gc.Risks {
			out = append(out, ScoredCandidate{
				ContractID: contractID,
				Content:    "risk: " + rk.Concern + " (" + rk.Section + ")",
				Score:      riskSeverity(rk.RiskLevel),
				Metadata:   map[string]string{"section_name": rk.Section, "risk_level": rk.RiskLevel},
			})
		}
	}
	return out
}

func riskSeverity(level string) float64 {
	switch level {
	case "high":
		return 0.9
	case "medium":
		return 0.6
	case "low":
		return 0.3
	default:
		return 0.1
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
