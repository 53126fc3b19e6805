package pipeline

import (
	"encoding/json"
	"strings"

	"contractintel/internal/apperrors"
)

// ConcerningClause is a single flagged clause within a RiskReport.
type ConcerningClause struct {
	Section        string `json:"section"`
	Concern        string `json:"concern"`
	RiskLevel      string `json:"risk_level"`
	Recommendation string `json:"recommendation"`
}

// RiskReport is the structured result of the analyze_risk stage.
type RiskReport struct {
	RiskScore         int                `json:"risk_score"`
	RiskLevel         string             `json:"risk_level"`
	ConcerningClauses []ConcerningClause `json:"concerning_clauses"`
	KeyTerms          map[string]string  `json:"key_terms"`
}

// riskReportJSON mirrors RiskReport for unmarshalling before the
// risk_level band invariant is enforced.
type riskReportJSON = RiskReport

// bandForScore maps a risk_score to its required risk_level band:
// 0-3 low, 4-6 medium, 7-10 high.
func bandForScore(score int) string {
	switch {
	case score <= 3:
		return "low"
	case score <= 6:
		return "medium"
	default:
		return "high"
	}
}

// ParseRiskReport parses and validates a model's risk-analysis JSON
// output, tolerating surrounding code-fence markers. A malformed
// document is an Integrity failure, never Transient — the model call
// already succeeded, this is a data-shape problem. The risk_level/
// risk_score band invariant is enforced here regardless of what the
// model produced.
func ParseRiskReport(raw string) (RiskReport, error) {
	cleaned := stripCodeFence(raw)

	var rr riskReportJSON
	if err := json.Unmarshal([]byte(cleaned), &rr); err != nil {
		return RiskReport{}, apperrors.New("pipeline.parse_risk_report", apperrors.KindIntegrity, err)
	}
	if rr.RiskScore < 0 {
		rr.RiskScore = 0
	}
	if rr.RiskScore > 10 {
		rr.RiskScore = 10
	}
	rr.RiskLevel = bandForScore(rr.RiskScore)
	if rr.KeyTerms == nil {
		rr.KeyTerms = make(map[string]string)
	}
	return rr, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 && !strings.HasPrefix(strings.TrimSpace(s[:i]), "{") {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
