package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/types"
)

func writePages(t *testing.T, out *MemoryOutput, pages ...[]types.Record) {
	t.Helper()
	for i, recs := range pages {
		var rows []Row
		for _, rec := range recs {
			rows = append(rows, Flatten(rec, resolve(t, rec))...)
		}
		_, err := out.WritePage(context.Background(), Page{Worker: "w00", Number: i, Rows: rows})
		require.NoError(t, err)
	}
}

func TestPartitionIsDisjoint(t *testing.T) {
	out := NewMemoryOutput()
	// pages out of id order, as parallel workers would leave them
	writePages(t, out, catalogue[4:], catalogue[:4])

	summary, err := Partition(context.Background(), out, out)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Pages)

	seen := map[int64]ReportKind{}
	total := 0
	for _, kind := range ReportKinds {
		report, ok := out.Report(kind)
		require.True(t, ok)
		assert.Equal(t, 6, report.MaxDimensions, "reports share one column layout")
		for _, row := range report.Rows {
			if prev, ok := seen[row.ID]; ok {
				assert.Equal(t, prev, kind, "record %d split across reports", row.ID)
			}
			seen[row.ID] = kind
			assert.Equal(t, kind, classify(row))
		}
		total += len(report.Rows)
	}
	assert.Equal(t, 13, total)
	assert.Equal(t, []int64{1, 1, 2, 2, 2, 2, 3, 3, 3, 7}, reportIDs(t, out, ReportNewlyParsed))
}

func TestPartitionKeepsAnomalousRecordTogether(t *testing.T) {
	out := NewMemoryOutput()
	writePages(t, out, []types.Record{
		{ID: 7, Text: "Overall: 5 in x 3 cm; 12.7 cm x 7.6 cm"},
		{ID: 8, Text: "5 x 3 in"},
	})

	summary, err := Partition(context.Background(), out, out)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Rows[ReportAnomalies])
	assert.Equal(t, 1, summary.Rows[ReportNewlyParsed])

	anomalies, _ := out.Report(ReportAnomalies)
	require.Len(t, anomalies.Rows, 2)
	assert.True(t, anomalies.Rows[0].InconsistentUnits)
	assert.False(t, anomalies.Rows[1].InconsistentUnits)
	assert.Equal(t, []int64{8}, reportIDs(t, out, ReportNewlyParsed))
	clean, _ := out.Report(ReportNewlyParsed)
	for _, row := range clean.Rows {
		assert.Equal(t, types.Parsed, row.Outcome)
	}
}

func TestPartitionEmpty(t *testing.T) {
	out := NewMemoryOutput()
	summary, err := Partition(context.Background(), out, out)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.MaxDimensions)

	for _, kind := range ReportKinds {
		report, ok := out.Report(kind)
		require.True(t, ok, "empty %s report is still written", kind)
		assert.Empty(t, report.Rows)
	}
}

func TestClassifyFailureWins(t *testing.T) {
	row := Row{FailureReason: types.StringPtr("x"), InconsistentUnits: true}
	assert.Equal(t, ReportFailures, classify(row))
	assert.Equal(t, ReportAnomalies, classify(Row{TooManyDimensions: true}))
	assert.Equal(t, ReportNewlyParsed, classify(Row{}))
	assert.Equal(t, ReportAnomalies, classify(Row{Outcome: types.Anomalous}))
	assert.Equal(t, ReportFailures, classify(Row{Outcome: types.Failed}))
}

func TestMemoryOutputWriteOnce(t *testing.T) {
	out := NewMemoryOutput()
	_, err := out.WritePage(context.Background(), Page{Worker: "w01", Number: 3})
	require.NoError(t, err)

	_, err = out.WritePage(context.Background(), Page{Worker: "w01", Number: 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPageExists))

	_, err = out.ReadPage(context.Background(), "w09-0000")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestMemoryCheckpoints(t *testing.T) {
	ctx := context.Background()
	cp := NewMemoryCheckpoints()

	_, err := cp.Begin(ctx, RunInfo{RunID: "r", Source: "s", PageSize: 10})
	require.NoError(t, err)

	_, ok, err := cp.Last(ctx, "r", "w00")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cp.Commit(ctx, PageRecord{RunID: "r", Worker: "w00", Page: 0, LastID: 10}))
	err = cp.Commit(ctx, PageRecord{RunID: "r", Worker: "w00", Page: 0, LastID: 10})
	assert.True(t, errors.Is(err, errors.ErrPageExists))

	_, err = cp.Begin(ctx, RunInfo{RunID: "r", Source: "other", PageSize: 10})
	assert.True(t, errors.Is(err, errors.ErrCheckpointMismatch))

	_, _, err = cp.Last(ctx, "missing", "w00")
	assert.True(t, errors.IsNotFoundError(err))
}
