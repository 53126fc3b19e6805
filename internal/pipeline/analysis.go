package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"contractintel/internal/costledger"
	"contractintel/internal/graphstore"
	"contractintel/internal/modelrouter"
	"contractintel/internal/obs"
	"contractintel/internal/pdfparser"
	"contractintel/internal/vectorindex"
)

const (
	StageParse          = "parse"
	StageAnalyzeRisk    = "analyze_risk"
	StagePersistVectors = "persist_vectors"
	StagePersistGraph   = "persist_graph"
	StageAnswer         = "answer"
)

// maxRiskPromptChars bounds how much of parsed_text feeds the
// risk-analysis prompt.
const maxRiskPromptChars = 50000

const riskAnalysisSystemInstruction = "You are a contract risk analyst. Respond with a single JSON object " +
	`matching {"risk_score": int 0-10, "risk_level": "low"|"medium"|"high", ` +
	`"concerning_clauses": [{"section","concern","risk_level","recommendation"}], "key_terms": {string: string}}. ` +
	"No prose outside the JSON object."

// AnalysisPipeline runs the fixed-order stage sequence over a parsed
// contract: parse, analyze_risk, persist_vectors, persist_graph, and
// the conditional answer stage. Every stage wraps its body in a failure
// barrier: a stage's error becomes an appended ErrorEntry, never a
// propagated error, so partial analyses remain useful.
type AnalysisPipeline struct {
	parser  pdfparser.Parser
	router  *modelrouter.Router
	vectors vectorindex.Index
	graph   graphstore.Store
	queries *QueryPipeline
	ledger  *costledger.Ledger

	chunkSize    int
	chunkOverlap int

	overallDeadline time.Duration

	clock obs.Clock
	log   obs.Logger
}

// PipelineOption configures an AnalysisPipeline during construction.
type PipelineOption func(*AnalysisPipeline)

func WithChunking(size, overlap int) PipelineOption {
	return func(p *AnalysisPipeline) { p.chunkSize, p.chunkOverlap = size, overlap }
}

// WithOverallDeadline bounds the whole Analyze run to budget, recomputed
// into a fresh context before every stage. A non-positive budget leaves
// stages running on the caller's context unmodified, which is also the
// default.
func WithOverallDeadline(budget time.Duration) PipelineOption {
	return func(p *AnalysisPipeline) { p.overallDeadline = budget }
}

func WithPipelineClock(c obs.Clock) PipelineOption { return func(p *AnalysisPipeline) { p.clock = c } }
func WithPipelineLogger(l obs.Logger) PipelineOption {
	return func(p *AnalysisPipeline) { p.log = l }
}

// NewAnalysisPipeline wires the PDFParser, ModelRouter, VectorIndex,
// GraphStore, QueryPipeline and CostLedger collaborators the five
// stages depend on.
func NewAnalysisPipeline(parser pdfparser.Parser, router *modelrouter.Router, vectors vectorindex.Index, graph graphstore.Store, queries *QueryPipeline, ledger *costledger.Ledger, opts ...PipelineOption) *AnalysisPipeline {
	p := &AnalysisPipeline{
		parser:       parser,
		router:       router,
		vectors:      vectors,
		graph:        graph,
		queries:      queries,
		ledger:       ledger,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		clock:        obs.SystemClock{},
		log:          obs.NoopLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Analyze runs all five stages over pdfBytes and returns the
// accumulated state. query, if non-empty, triggers the conditional
// answer stage scoped to contractID. Analyze itself never returns an
// error — every stage failure is recorded in state.Errors instead.
func (p *AnalysisPipeline) Analyze(ctx context.Context, contractID, filename string, pdfBytes []byte, query string) *ContractAnalysisState {
	state := NewContractAnalysisState(contractID, filename)
	dl := NewDeadline(p.clock.Now(), p.overallDeadline)

	p.runStageWithDeadline(ctx, dl, state, StageParse, func(sctx context.Context) error { return p.stageParse(sctx, state, pdfBytes) })
	p.runStageWithDeadline(ctx, dl, state, StageAnalyzeRisk, func(sctx context.Context) error { return p.stageAnalyzeRisk(sctx, state) })
	p.runStageWithDeadline(ctx, dl, state, StagePersistVectors, func(sctx context.Context) error { return p.stagePersistVectors(sctx, state) })
	p.runStageWithDeadline(ctx, dl, state, StagePersistGraph, func(sctx context.Context) error { return p.stagePersistGraph(sctx, state) })
	if strings.TrimSpace(query) != "" {
		p.runStageWithDeadline(ctx, dl, state, StageAnswer, func(sctx context.Context) error { return p.stageAnswer(sctx, state, query) })
	}

	return state
}

// runStageWithDeadline derives a fresh context from the overall budget
// before running stage, so a deadline exceeded by an earlier stage is
// reflected immediately rather than only after a fixed per-stage timer.
func (p *AnalysisPipeline) runStageWithDeadline(ctx context.Context, dl Deadline, state *ContractAnalysisState, stage string, fn func(context.Context) error) {
	sctx, cancel := dl.Context(ctx)
	defer cancel()
	p.runStage(state, stage, func() error { return fn(sctx) })
}

// runStage is the failure barrier every stage executes inside: a panic
// or an error becomes an appended ErrorEntry, and the pipeline always
// continues to the next stage.
func (p *AnalysisPipeline) runStage(state *ContractAnalysisState, stage string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			state.fail(stage, fmt.Sprintf("panic: %v", r), p.clock.Now())
		}
	}()
	if err := fn(); err != nil {
		state.fail(stage, err.Error(), p.clock.Now())
	}
}

func (p *AnalysisPipeline) stageParse(ctx context.Context, state *ContractAnalysisState, pdfBytes []byte) error {
	doc, err := p.parser.Parse(ctx, pdfBytes, state.Filename)
	if err != nil {
		return err
	}
	state.ParsedText = doc.Text
	if doc.Sections != nil {
		state.Sections = doc.Sections
	}
	state.Metadata = doc.Metadata
	return nil
}

func (p *AnalysisPipeline) stageAnalyzeRisk(ctx context.Context, state *ContractAnalysisState) error {
	if strings.TrimSpace(state.ParsedText) == "" {
		state.skip(StageAnalyzeRisk, "parsed_text is empty", p.clock.Now())
		return nil
	}

	text := state.ParsedText
	if len(text) > maxRiskPromptChars {
		text = text[:maxRiskPromptChars]
	}
	prompt := "Analyze the following contract text for risk:\n\n" + text

	result, err := p.router.Generate(ctx, prompt, modelrouter.Complex,
		modelrouter.WithSystemInstruction(riskAnalysisSystemInstruction))
	if err != nil {
		return err
	}
	state.TotalCost += result.Cost
	now := p.clock.Now()
	_ = p.ledger.Record(ctx, costledger.CostEntry{
		Day:            costledger.DayOf(now),
		Model:          result.Model,
		Operation:      "analyze",
		InputTokens:    result.InputTokens,
		OutputTokens:   result.OutputTokens,
		ThinkingTokens: result.ThinkingTokens,
		Cost:           result.Cost,
		OccurredAt:     now,
	}, true)

	report, err := ParseRiskReport(result.Text)
	if err != nil {
		return err
	}
	state.Risk = &report
	state.KeyTerms = report.KeyTerms
	return nil
}

func (p *AnalysisPipeline) stagePersistVectors(ctx context.Context, state *ContractAnalysisState) error {
	if strings.TrimSpace(state.ParsedText) == "" {
		state.skip(StagePersistVectors, "parsed_text is empty", p.clock.Now())
		return nil
	}

	sectionNames := make([]string, 0, len(state.Sections))
	for name := range state.Sections {
		sectionNames = append(sectionNames, name)
	}
	sort.Strings(sectionNames)
	if len(sectionNames) == 0 {
		sectionNames = []string{""}
		state.Sections = map[string]string{"": state.ParsedText}
	}

	type pending struct {
		chunkID, section string
		index            int
		text             string
	}
	var all []pending
	for _, name := range sectionNames {
		chunks := Chunk(state.Sections[name], p.chunkSize, p.chunkOverlap)
		for i, text := range chunks {
			chunkID := fmt.Sprintf("%s:%s:%d", state.ContractID, name, i)
			all = append(all, pending{chunkID: chunkID, section: name, index: i, text: text})
		}
	}
	if len(all) == 0 {
		return nil
	}

	texts := make([]string, len(all))
	for i, c := range all {
		texts[i] = c.text
	}
	embeddings, err := p.router.Embed(ctx, texts)
	if err != nil {
		return err
	}
	if len(embeddings) != len(all) {
		return fmt.Errorf("pipeline.persist_vectors: embedder returned %d vectors for %d chunks", len(embeddings), len(all))
	}

	docChunks := make([]vectorindex.Chunk, len(all))
	chunkIDs := make([]string, len(all))
	for i, c := range all {
		docChunks[i] = vectorindex.Chunk{
			ChunkID:     c.chunkID,
			ContractID:  state.ContractID,
			SectionName: c.section,
			ChunkIndex:  c.index,
			Text:        c.text,
			Embedding:   embeddings[i],
			Metadata:    map[string]string{"contract_id": state.ContractID, "section_name": c.section},
		}
		chunkIDs[i] = c.chunkID
	}

	if err := p.vectors.Upsert(ctx, docChunks); err != nil {
		return err
	}
	state.VectorChunkIDs = chunkIDs
	return nil
}

func (p *AnalysisPipeline) stagePersistGraph(ctx context.Context, state *ContractAnalysisState) error {
	riskScore, riskLevel := 0, "low"
	if state.Risk != nil {
		riskScore, riskLevel = state.Risk.RiskScore, state.Risk.RiskLevel
	}

	contractProps := map[string]any{
		"filename":    state.Filename,
		"upload_date": p.clock.Now().UTC().Format("2006-01-02"),
		"risk_score":  riskScore,
		"risk_level":  riskLevel,
	}
	if state.Metadata.EffectiveDate != "" {
		contractProps["effective_date"] = state.Metadata.EffectiveDate
	}
	if state.Metadata.ContractType != "" {
		contractProps["contract_type"] = state.Metadata.ContractType
	}
	if err := p.graph.UpsertNode(ctx, state.ContractID, []string{graphstore.LabelContract}, contractProps); err != nil {
		return err
	}

	if state.Risk != nil {
		for _, cc := range state.Risk.ConcerningClauses {
			clauseID := state.ContractID + ":clause:" + cc.Section
			if err := p.graph.UpsertNode(ctx, clauseID, []string{graphstore.LabelClause}, map[string]any{
				"section_name": cc.Section,
				"content":      cc.Concern,
				"clause_type":  "concern",
				"importance":   severityScore(cc.RiskLevel),
			}); err != nil {
				return err
			}
			if err := p.graph.UpsertEdge(ctx, state.ContractID, graphstore.RelContains, clauseID, nil); err != nil {
				return err
			}

			riskID := state.ContractID + ":risk:" + cc.Section
			if err := p.graph.UpsertNode(ctx, riskID, []string{graphstore.LabelRiskFactor}, map[string]any{
				"concern":        cc.Concern,
				"risk_level":     cc.RiskLevel,
				"section":        cc.Section,
				"recommendation": cc.Recommendation,
			}); err != nil {
				return err
			}
			if err := p.graph.UpsertEdge(ctx, state.ContractID, graphstore.RelHasRisk, riskID, nil); err != nil {
				return err
			}
		}
	}

	for _, name := range state.Metadata.Parties {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if err := p.graph.UpsertNode(ctx, name, []string{graphstore.LabelCompany}, map[string]any{"role": "party"}); err != nil {
			return err
		}
		if err := p.graph.UpsertEdge(ctx, name, graphstore.RelPartyTo, state.ContractID, nil); err != nil {
			return err
		}
	}

	state.GraphWritten = true
	return nil
}

func (p *AnalysisPipeline) stageAnswer(ctx context.Context, state *ContractAnalysisState, query string) error {
	result, err := p.queries.Answer(ctx, query, state.ContractID, 5)
	if err != nil {
		return err
	}
	state.Answer = result.Text
	state.TotalCost += result.Cost
	return nil
}

func severityScore(level string) float64 {
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
