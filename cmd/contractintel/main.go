// Command contractintel demonstrates wiring the CostLedger, ModelRouter,
// HybridRetriever and pipeline components into an app.Service and
// running one ingest and one query through it. The PDFParser and
// ModelProvider collaborators are out of scope for the core, so this
// demo wires fakes in their place, the way agent-demo wires a
// MockPlanner in front of the real agent engine.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"contractintel/internal/app"
	"contractintel/internal/config"
	"contractintel/internal/costledger"
	"contractintel/internal/graphstore"
	"contractintel/internal/logging"
	"contractintel/internal/modelrouter"
	"contractintel/internal/obs"
	"contractintel/internal/observability"
	"contractintel/internal/pdfparser"
	"contractintel/internal/vectorindex"
)

const sampleContract = `MASTER SERVICES AGREEMENT

This Agreement is entered into by Acme Corp and Globex Inc.

Termination. Either party may terminate this Agreement at any time,
without cause and without prior notice.

Liability. Acme Corp's liability under this Agreement is uncapped.
`

const sampleRiskReport = `{
  "risk_score": 8,
  "risk_level": "high",
  "concerning_clauses": [
    {"section": "Termination", "concern": "no notice period required", "risk_level": "high", "recommendation": "add a 30-day notice requirement"},
    {"section": "Liability", "concern": "uncapped liability", "risk_level": "high", "recommendation": "negotiate a liability cap"}
  ],
  "key_terms": {"parties": "Acme Corp, Globex Inc"}
}`

func main() {
	cfg := mustLoadConfig()

	shutdownOTel, err := observability.InitOTel(context.Background(), cfg.OTel)
	if err != nil {
		logging.Log.WithError(err).Warn("otel init skipped")
		shutdownOTel = func(context.Context) error { return nil }
	}
	defer func() { _ = shutdownOTel(context.Background()) }()

	ctx := context.Background()
	logAdapter := observability.NewContextAdapter(ctx)

	provider := demoProvider()
	embedder := &modelrouter.FakeEmbedder{Dim: 32}
	metrics := obs.NewOtelMetrics("contractintel.modelrouter")
	router := modelrouter.New(provider, routerConfigFrom(cfg), modelrouter.WithEmbedder(embedder), modelrouter.WithLogger(logAdapter), modelrouter.WithMetrics(metrics))

	vectors := vectorindex.NewMemory()
	graph := graphstore.NewMemory()

	store, err := costledger.DialRedisStore(cfg.Ledger.RedisAddr, cfg.Ledger.RedisDB)
	var ledgerStore costledger.Store
	if err != nil {
		logging.Log.WithError(err).Warn("redis unavailable, falling back to in-memory cost ledger for this demo run")
		ledgerStore = costledger.NewMemoryStore()
	} else {
		ledgerStore = store
	}
	ledger := costledger.New(ledgerStore, costledger.Config{RawRetention: cfg.Ledger.RawRetention, AggRetention: cfg.Ledger.AggRetention})

	parser := pdfparser.NewFake().WithFixture(sampleContract, pdfparser.ParsedDocument{
		Text: sampleContract,
		Sections: map[string]string{
			"Termination": "Either party may terminate this Agreement at any time, without cause and without prior notice.",
			"Liability":   "Acme Corp's liability under this Agreement is uncapped.",
		},
		Metadata: pdfparser.DocumentMetadata{
			Parties:      []string{"Acme Corp", "Globex Inc"},
			ContractType: "Master Services Agreement",
		},
	})

	svc := app.New(parser, router, vectors, graph, ledger, embedder,
		app.WithLogger(logAdapter),
		app.WithChunking(cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkOverlap),
		app.WithOverallDeadline(cfg.Pipeline.OverallDeadline))

	logging.Log.Info("ingesting sample contract")
	state := svc.Ingest(ctx, []byte(sampleContract), "msa.pdf")
	riskLevel := "unknown"
	if state.Risk != nil {
		riskLevel = state.Risk.RiskLevel
	}
	fmt.Printf("ingested contract_id=%s risk_level=%s vector_chunks=%d graph_written=%v errors=%v total_cost=$%.6f\n",
		state.ContractID, riskLevel, len(state.VectorChunkIDs), state.GraphWritten, state.Errors, state.TotalCost)

	answer, err := svc.QueryScoped(ctx, state.ContractID, "What are the termination and liability terms?", 5)
	if err != nil {
		logging.Log.WithError(err).Error("query failed")
		os.Exit(1)
	}
	fmt.Printf("answer: %s\n", answer.Text)
	for _, src := range answer.Sources {
		fmt.Printf("  [%d] %s contract=%s score=%.4f preview=%q\n", src.Index, src.Type, src.ContractID, src.Score, src.Preview)
	}

	daily, err := svc.CostDaily(ctx, nil)
	if err != nil {
		logging.Log.WithError(err).Error("cost lookup failed")
		os.Exit(1)
	}
	fmt.Printf("today's cost: calls=%d total=$%.6f\n", daily.TotalCalls, daily.TotalCost)
}

func mustLoadConfig() *config.Config {
	path := os.Getenv("CONTRACTINTEL_CONFIG")
	if path == "" {
		return defaultConfig()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		logging.Log.WithError(err).Warn("failed to load config file, using defaults")
		return defaultConfig()
	}
	return cfg
}

// defaultConfig builds the same zero-value-plus-defaults shape
// config.LoadConfig produces, for the no-config-file demo path.
func defaultConfig() *config.Config {
	return &config.Config{
		Router: config.RouterConfig{
			Tiers:              config.DefaultTiers(),
			DefaultTimeout:     30 * time.Second,
			MaxTimeout:         120 * time.Second,
			MaxRetries:         3,
			BaseBackoff:        200 * time.Millisecond,
			MaxBackoff:         5 * time.Second,
			BreakerFailMax:     5,
			BreakerResetAfter:  30 * time.Second,
			BreakerHalfOpenMax: 1,
		},
		Ledger: config.LedgerConfig{
			RedisAddr:    "localhost:6379",
			RawRetention: 7 * 24 * time.Hour,
			AggRetention: 30 * 24 * time.Hour,
		},
		Pipeline: config.PipelineConfig{ChunkSize: 1000, ChunkOverlap: 200, OverallDeadline: 60 * time.Second},
		Retrieve: config.RetrieveConfig{VectorK: 20, RRFK: 60},
		OTel:     config.TelemetryConfig{Enabled: false, ServiceName: "contractintel", ServiceVersion: "dev", Environment: "development"},
	}
}

func routerConfigFrom(cfg *config.Config) modelrouter.Config {
	tiers := make(map[modelrouter.Complexity]modelrouter.ModelSpec, len(cfg.Router.Tiers))
	for name, t := range cfg.Router.Tiers {
		tiers[modelrouter.Complexity(name)] = modelrouter.ModelSpec{
			Model: t.Model, InPerMillion: t.InputPerMillion, OutPerMillion: t.OutPerMillion,
		}
	}
	return modelrouter.Config{
		Tiers:              tiers,
		DefaultTimeout:     cfg.Router.DefaultTimeout,
		MaxTimeout:         cfg.Router.MaxTimeout,
		MaxRetries:         cfg.Router.MaxRetries,
		BaseBackoff:        cfg.Router.BaseBackoff,
		MaxBackoff:         cfg.Router.MaxBackoff,
		BreakerFailMax:     cfg.Router.BreakerFailMax,
		BreakerResetAfter:  cfg.Router.BreakerResetAfter,
		BreakerHalfOpenMax: cfg.Router.BreakerHalfOpenMax,
	}
}

// demoProvider returns a ModelProvider that answers every call with the
// sample risk report, standing in for the out-of-scope LLM provider SDK.
func demoProvider() *modelrouter.FakeProvider {
	return &modelrouter.FakeProvider{Default: modelrouter.ProviderResult{
		Text:         sampleRiskReport,
		InputTokens:  400,
		OutputTokens: 120,
	}}
}

