// Package costledger records per-call token and dollar costs and serves
// daily aggregates broken down by model and operation, with bounded
// retention on the backing store.
package costledger

import "time"

// Day is a calendar date in UTC, the granularity CostEntry is bucketed by.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf truncates t to its UTC calendar day.
func DayOf(t time.Time) Day {
	u := t.UTC()
	y, m, d := u.Date()
	return Day{Year: y, Month: m, Day: d}
}

// String renders the day as cost:daily:YYYY-MM-DD expects: YYYY-MM-DD.
func (d Day) String() string {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

// AddDays returns the day n calendar days after d.
func (d Day) AddDays(n int) Day {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
	return DayOf(t)
}

// After reports whether d is strictly after o.
func (d Day) After(o Day) bool {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).After(
		time.Date(o.Year, o.Month, o.Day, 0, 0, 0, 0, time.UTC))
}

// CostEntry is a single model-call accounting record.
type CostEntry struct {
	Day            Day
	Model          string
	Operation      string // parse, analyze, query, ...
	InputTokens    int64
	OutputTokens   int64
	ThinkingTokens int64
	Cost           float64
	OccurredAt     time.Time
}

// ModelAggregate is the per-model sub-bucket of a DailyCost.
type ModelAggregate struct {
	Calls int64
	Cost  float64
}

// OperationAggregate is the per-operation sub-bucket of a DailyCost.
type OperationAggregate struct {
	Calls int64
}

// DailyCost is the aggregate recorded (or summed, for range queries) for
// one or more days.
type DailyCost struct {
	TotalCalls          int64
	TotalCost           float64
	TotalInputTokens    int64
	TotalOutputTokens   int64
	TotalThinkingTokens int64
	ByModel             map[string]ModelAggregate
	ByOperation         map[string]OperationAggregate
}

func newDailyCost() DailyCost {
	return DailyCost{
		ByModel:     make(map[string]ModelAggregate),
		ByOperation: make(map[string]OperationAggregate),
	}
}

// add merges a single CostEntry into the aggregate.
func (d *DailyCost) add(e CostEntry) {
	d.TotalCalls++
	d.TotalCost += e.Cost
	d.TotalInputTokens += e.InputTokens
	d.TotalOutputTokens += e.OutputTokens
	d.TotalThinkingTokens += e.ThinkingTokens

	ma := d.ByModel[e.Model]
	ma.Calls++
	ma.Cost += e.Cost
	d.ByModel[e.Model] = ma

	oa := d.ByOperation[e.Operation]
	oa.Calls++
	d.ByOperation[e.Operation] = oa
}

// merge folds other's totals and sub-buckets into d, for range() sums.
func (d *DailyCost) merge(other DailyCost) {
	d.TotalCalls += other.TotalCalls
	d.TotalCost += other.TotalCost
	d.TotalInputTokens += other.TotalInputTokens
	d.TotalOutputTokens += other.TotalOutputTokens
	d.TotalThinkingTokens += other.TotalThinkingTokens
	for model, ma := range other.ByModel {
		cur := d.ByModel[model]
		cur.Calls += ma.Calls
		cur.Cost += ma.Cost
		d.ByModel[model] = cur
	}
	for op, oa := range other.ByOperation {
		cur := d.ByOperation[op]
		cur.Calls += oa.Calls
		d.ByOperation[op] = cur
	}
}
