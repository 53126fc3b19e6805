// Package pipeline implements the AnalysisPipeline and QueryPipeline
// components: a fixed-order staged workflow threading a shared mutable
// state record, generalized from the pack's own rag/service.Service
// staged orchestration (preprocess -> idempotency -> chunk -> index ->
// embed -> graph) to the contract risk-analysis domain.
package pipeline

import (
	"time"

	"contractintel/internal/pdfparser"
)

// ErrorEntry records a single stage's failure or skip without aborting
// the pipeline — AnalysisPipeline's failure barrier appends one of
// these instead of letting any stage's error propagate.
type ErrorEntry struct {
	Stage      string
	Message    string
	Skipped    bool
	OccurredAt time.Time
}

// ContractAnalysisState is the mutable record threaded through
// AnalysisPipeline. Each stage mutates only its declared output fields
// and may append to Errors.
type ContractAnalysisState struct {
	ContractID     string
	Filename       string
	ParsedText     string
	Sections       map[string]string
	Metadata       pdfparser.DocumentMetadata
	Risk           *RiskReport
	KeyTerms       map[string]string
	VectorChunkIDs []string
	GraphWritten   bool
	Answer         string
	TotalCost      float64
	Errors         []ErrorEntry
}

// NewContractAnalysisState creates the initial state for a new analysis
// run.
func NewContractAnalysisState(contractID, filename string) *ContractAnalysisState {
	return &ContractAnalysisState{
		ContractID:     contractID,
		Filename:       filename,
		Sections:       make(map[string]string),
		VectorChunkIDs: make([]string, 0),
	}
}

func (s *ContractAnalysisState) fail(stage, message string, occurredAt time.Time) {
	s.Errors = append(s.Errors, ErrorEntry{Stage: stage, Message: message, OccurredAt: occurredAt})
}

func (s *ContractAnalysisState) skip(stage, message string, occurredAt time.Time) {
	s.Errors = append(s.Errors, ErrorEntry{Stage: stage, Message: message, Skipped: true, OccurredAt: occurredAt})
}
