package costledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testDay(t *testing.T) Day {
	t.Helper()
	tm, err := time.Parse("2006-01-02", "2025-01-15")
	require.NoError(t, err)
	return DayOf(tm)
}

func TestRecordAndDailyAggregation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ledger := New(store, DefaultConfig())
	day := testDay(t)

	entry := CostEntry{
		Day: day, Model: "M1", Operation: "analyze",
		InputTokens: 1000, OutputTokens: 500, Cost: 0.001, OccurredAt: time.Now(),
	}
	require.NoError(t, ledger.Record(ctx, entry, false))
	require.NoError(t, ledger.Record(ctx, entry, false))
	require.NoError(t, ledger.Record(ctx, CostEntry{
		Day: day, Model: "M2", Operation: "query",
		InputTokens: 200, OutputTokens: 50, Cost: 0.0005, OccurredAt: time.Now(),
	}, false))

	got, err := ledger.Daily(ctx, day)
	require.NoError(t, err)

	require.EqualValues(t, 3, got.TotalCalls)
	require.InDelta(t, 0.0025, got.TotalCost, 1e-9)
	require.EqualValues(t, 2200, got.TotalInputTokens)
	require.EqualValues(t, 1050, got.TotalOutputTokens)

	require.EqualValues(t, 2, got.ByModel["M1"].Calls)
	require.InDelta(t, 0.002, got.ByModel["M1"].Cost, 1e-9)
	require.EqualValues(t, 1, got.ByModel["M2"].Calls)
	require.InDelta(t, 0.0005, got.ByModel["M2"].Cost, 1e-9)

	require.EqualValues(t, 2, got.ByOperation["analyze"].Calls)
	require.EqualValues(t, 1, got.ByOperation["query"].Calls)
}

func TestDailyMissingDayIsZeroed(t *testing.T) {
	ledger := New(NewMemoryStore(), DefaultConfig())
	got, err := ledger.Daily(context.Background(), testDay(t))
	require.NoError(t, err)
	require.Zero(t, got.TotalCalls)
	require.Zero(t, got.TotalCost)
	require.Empty(t, got.ByModel)
}

func TestRangeSumsAcrossDays(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ledger := New(store, DefaultConfig())
	day1 := testDay(t)
	day2 := day1.AddDays(1)

	require.NoError(t, ledger.Record(ctx, CostEntry{Day: day1, Model: "M1", Operation: "analyze", Cost: 1}, false))
	require.NoError(t, ledger.Record(ctx, CostEntry{Day: day2, Model: "M1", Operation: "analyze", Cost: 2}, false))

	got, err := ledger.Range(ctx, day1, day2)
	require.NoError(t, err)
	require.EqualValues(t, 2, got.TotalCalls)
	require.InDelta(t, 3, got.TotalCost, 1e-9)
}

type failingStore struct{ *MemoryStore }

func (f failingStore) IncrBy(context.Context, string, string, int64) error {
	return errBackingStore
}

var errBackingStore = errBackingStoreErr{}

type errBackingStoreErr struct{}

func (errBackingStoreErr) Error() string { return "backing store unavailable" }

func TestRecordFailSilentlyDropsEntry(t *testing.T) {
	ctx := context.Background()
	ledger := New(failingStore{NewMemoryStore()}, DefaultConfig())

	err := ledger.Record(ctx, CostEntry{Day: testDay(t), Model: "M1", Operation: "analyze", Cost: 1}, true)
	require.NoError(t, err)
	require.EqualValues(t, 1, ledger.DroppedEntries())

	err = ledger.Record(ctx, CostEntry{Day: testDay(t), Model: "M1", Operation: "analyze", Cost: 1}, false)
	require.Error(t, err)
	require.EqualValues(t, 2, ledger.DroppedEntries())
}
