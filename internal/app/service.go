// Package app provides the library entry-point surface: a thin façade
// wiring CostLedger, ModelRouter, HybridRetriever and the two pipelines
// together behind one constructor with functional options. There is no
// HTTP server here — callers embed this the way a cmd/ binary embeds a
// service package.
package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"contractintel/internal/apperrors"
	"contractintel/internal/costledger"
	"contractintel/internal/graphstore"
	"contractintel/internal/modelrouter"
	"contractintel/internal/obs"
	"contractintel/internal/pdfparser"
	"contractintel/internal/pipeline"
	"contractintel/internal/retrieve"
	"contractintel/internal/vectorindex"
)

// ContractView is the read model returned by ContractRead: the
// contract's graph node plus its connected companies, clauses and
// risks in one call.
type ContractView struct {
	ContractID string
	Metadata   map[string]any
	Companies  []retrieve.CompanyInfo
	Clauses    []retrieve.ClauseInfo
	Risks      []retrieve.RiskInfo
}

// Service is the façade exposing the five library entry-point shapes
// of spec §6: Ingest, scoped/global Query, Contract read, Cost daily.
type Service struct {
	ledger  *costledger.Ledger
	router  *modelrouter.Router
	graph   graphstore.Store
	graphs  *retrieve.GraphContextRetriever
	hybrid  *retrieve.HybridRetriever
	analyze *pipeline.AnalysisPipeline
	queries *pipeline.QueryPipeline

	clock obs.Clock
	log   obs.Logger

	chunkSize       int
	chunkOverlap    int
	overallDeadline time.Duration
}

// Option configures a Service during construction.
type Option func(*Service)

func WithLogger(l obs.Logger) Option { return func(s *Service) { s.log = l } }
func WithClock(c obs.Clock) Option   { return func(s *Service) { s.clock = c } }

// WithChunking overrides the vector-chunking window used by Ingest.
func WithChunking(size, overlap int) Option {
	return func(s *Service) { s.chunkSize, s.chunkOverlap = size, overlap }
}

// WithOverallDeadline bounds each Ingest run to budget, recomputed
// before every analysis stage. Zero leaves stages unbounded.
func WithOverallDeadline(budget time.Duration) Option {
	return func(s *Service) { s.overallDeadline = budget }
}

// New wires the supplied collaborators into a Service. parser, router,
// vectors, graph and ledger are the external-facing interfaces and
// concrete components SPEC_FULL.md names; embedder feeds both
// router.Embed and the hybrid retriever's query-time embedding.
func New(parser pdfparser.Parser, router *modelrouter.Router, vectors vectorindex.Index, graph graphstore.Store, ledger *costledger.Ledger, embedder modelrouter.Embedder, opts ...Option) *Service {
	s := &Service{
		ledger:       ledger,
		router:       router,
		graph:        graph,
		clock:        obs.SystemClock{},
		log:          obs.NoopLogger{},
		chunkSize:    pipeline.DefaultChunkSize,
		chunkOverlap: pipeline.DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.graphs = retrieve.NewGraphContextRetriever(graph)
	s.hybrid = retrieve.NewHybridRetriever(vectors, s.graphs, embedder, retrieve.WithLogger(s.log))
	s.queries = pipeline.NewQueryPipeline(s.hybrid, router, ledger, pipeline.WithClock(s.clock), pipeline.WithLogger(s.log))
	s.analyze = pipeline.NewAnalysisPipeline(parser, router, vectors, graph, s.queries, ledger,
		pipeline.WithPipelineClock(s.clock), pipeline.WithPipelineLogger(s.log),
		pipeline.WithChunking(s.chunkSize, s.chunkOverlap), pipeline.WithOverallDeadline(s.overallDeadline))

	return s
}

// Ingest implements the Ingest library entry point: parse, analyze,
// persist and return the full AnalysisResult. A fresh contract_id is
// minted via uuid since callers supply only the raw bytes and filename.
func (s *Service) Ingest(ctx context.Context, fileBytes []byte, filename string) *pipeline.ContractAnalysisState {
	contractID := uuid.NewString()
	return s.analyze.Analyze(ctx, contractID, filename, fileBytes, "")
}

// QueryScoped implements the scoped Query entry point: answer query_text
// restricted to contractID.
func (s *Service) QueryScoped(ctx context.Context, contractID, queryText string, nResults int) (pipeline.AnswerResult, error) {
	return s.queries.Answer(ctx, queryText, contractID, nResults)
}

// QueryGlobal implements the global Query entry point: answer query_text
// over the whole corpus.
func (s *Service) QueryGlobal(ctx context.Context, queryText string, nResults int) (pipeline.AnswerResult, error) {
	return s.queries.Answer(ctx, queryText, "", nResults)
}

// ContractRead implements the Contract read entry point: a single
// GraphContextRetriever.ContextForContract call translated into the
// public read model. Returns false if the contract is unknown.
func (s *Service) ContractRead(ctx context.Context, contractID string) (ContractView, bool, error) {
	node, ok, err := s.graph.GetNode(ctx, contractID)
	if err != nil {
		return ContractView{}, false, apperrors.New("app.contract_read", apperrors.KindOf(err), err)
	}
	if !ok {
		return ContractView{}, false, nil
	}

	gc, err := s.graphs.ContextForContract(ctx, contractID, retrieve.DefaultContextForContractOptions())
	if err != nil {
		return ContractView{}, false, apperrors.New("app.contract_read", apperrors.KindOf(err), err)
	}

	view := ContractView{ContractID: node.ID, Metadata: node.Props}
	if gc != nil {
		view.Companies = gc.Companies
		view.Clauses = gc.Clauses
		view.Risks = gc.Risks
	}
	return view, true, nil
}

// CostDaily implements the Cost daily entry point. A nil day means
// "today" in UTC.
func (s *Service) CostDaily(ctx context.Context, day *time.Time) (costledger.DailyCost, error) {
	d := costledger.DayOf(s.clock.Now())
	if day != nil {
		d = costledger.DayOf(*day)
	}
	return s.ledger.Daily(ctx, d)
}
