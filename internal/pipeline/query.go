package pipeline

import (
	"context"
	"strconv"
	"strings"

	"contractintel/internal/apperrors"
	"contractintel/internal/costledger"
	"contractintel/internal/modelrouter"
	"contractintel/internal/obs"
	"contractintel/internal/retrieve"
)

const refusalText = "No relevant context was found."

// answerSystemInstruction mandates grounding in the supplied context and
// citation of the [Source i] markers the prompt assembles.
const answerSystemInstruction = "Answer strictly using the supplied contract context below. " +
	"Do not rely on outside knowledge. Cite the specific sources you used with their [Source i] markers."

// SourceAttribution is a single entry in an AnswerResult's sources list.
type SourceAttribution struct {
	Index      int
	Type       string
	ContractID string
	Score      float64
	Preview    string
}

// AnswerResult is QueryPipeline.Answer's public result shape.
type AnswerResult struct {
	Text        string
	Sources     []SourceAttribution
	VectorCount int
	GraphCount  int
	Cost        float64
	ErrorKind   string
}

// QueryPipeline retrieves context via HybridRetriever, then generates a
// grounded answer via ModelRouter, recording the call in CostLedger.
type QueryPipeline struct {
	retriever *retrieve.HybridRetriever
	router    *modelrouter.Router
	ledger    *costledger.Ledger
	clock     obs.Clock
	log       obs.Logger
}

// Option configures a QueryPipeline during construction.
type Option func(*QueryPipeline)

func WithClock(c obs.Clock) Option   { return func(q *QueryPipeline) { q.clock = c } }
func WithLogger(l obs.Logger) Option { return func(q *QueryPipeline) { q.log = l } }

// NewQueryPipeline wires a HybridRetriever, a ModelRouter and a
// CostLedger into a single ask-a-question surface.
func NewQueryPipeline(retriever *retrieve.HybridRetriever, router *modelrouter.Router, ledger *costledger.Ledger, opts ...Option) *QueryPipeline {
	q := &QueryPipeline{
		retriever: retriever,
		router:    router,
		ledger:    ledger,
		clock:     obs.SystemClock{},
		log:       obs.NoopLogger{},
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Answer retrieves context for query (optionally scoped to contractID),
// assembles a grounded prompt from the top nResults fused results, and
// generates an answer at SIMPLE complexity. Retrieval failure is
// surfaced as an error; generation failure is instead folded into the
// returned AnswerResult with an empty Text, zero Cost and ErrorKind set.
func (q *QueryPipeline) Answer(ctx context.Context, query, contractID string, nResults int) (AnswerResult, error) {
	if nResults <= 0 {
		nResults = 5
	}

	retrieveOpts := retrieve.DefaultRetrieveOptions()
	retrieveOpts.ContractID = contractID
	resp, err := q.retriever.Retrieve(ctx, query, retrieveOpts)
	if err != nil {
		return AnswerResult{}, apperrors.New("query_pipeline.answer", apperrors.KindOf(err), err)
	}

	if len(resp.Results) == 0 {
		return AnswerResult{
			Text:        refusalText,
			VectorCount: resp.VectorCount,
			GraphCount:  resp.GraphCount,
			Cost:        0,
		}, nil
	}

	top := resp.Results
	if len(top) > nResults {
		top = top[:nResults]
	}

	prompt := assemblePrompt(top)
	sources := buildSources(top)

	genResult, genErr := q.router.Generate(ctx, prompt, modelrouter.Simple,
		modelrouter.WithSystemInstruction(answerSystemInstruction))
	if genErr != nil {
		q.log.Error("query_pipeline: generation failed", map[string]any{"error": genErr.Error()})
		return AnswerResult{
			Text:        "",
			Sources:     sources,
			VectorCount: resp.VectorCount,
			GraphCount:  resp.GraphCount,
			Cost:        0,
			ErrorKind:   string(apperrors.KindOf(genErr)),
		}, nil
	}

	now := q.clock.Now()
	_ = q.ledger.Record(ctx, costledger.CostEntry{
		Day:            costledger.DayOf(now),
		Model:          genResult.Model,
		Operation:      "query",
		InputTokens:    genResult.InputTokens,
		OutputTokens:   genResult.OutputTokens,
		ThinkingTokens: genResult.ThinkingTokens,
		Cost:           genResult.Cost,
		OccurredAt:     now,
	}, true)

	return AnswerResult{
		Text:        genResult.Text,
		Sources:     sources,
		VectorCount: resp.VectorCount,
		GraphCount:  resp.GraphCount,
		Cost:        genResult.Cost,
	}, nil
}

func assemblePrompt(results []retrieve.RetrievalResult) string {
	var b strings.Builder
	for i, r := range results {
		b.WriteString(sourceHeader(i+1, r.Source))
		b.WriteByte('\n')
		b.WriteString(r.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}

func sourceHeader(index int, source retrieve.Source) string {
	return "[Source " + strconv.Itoa(index) + " — " + string(source) + "]"
}

func buildSources(results []retrieve.RetrievalResult) []SourceAttribution {
	out := make([]SourceAttribution, 0, len(results))
	for i, r := range results {
		out = append(out, SourceAttribution{
			Index:      i + 1,
			Type:       string(r.Source),
			ContractID: r.ContractID,
			Score:      r.RRFScore,
			Preview:    preview(r.Content, 100),
		})
	}
	return out
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
