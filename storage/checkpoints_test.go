package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/measure/errors"
	measuretest "github.com/teranos/measure/internal/testing"
	"github.com/teranos/measure/parser"
	"github.com/teranos/measure/pipeline"
	"github.com/teranos/measure/types"
)

func TestCheckpoints(t *testing.T) {
	ctx := context.Background()
	cp := NewCheckpoints(measuretest.CreateTestDB(t))

	info := pipeline.RunInfo{
		RunID:    "r1",
		Source:   "sqlite:catalogue.measurements",
		PageSize: 200,
		Output:   "/tmp/out",
		Ranges:   []pipeline.WorkerRange{{Worker: "w00", Range: pipeline.AllIDs}},
	}
	started, err := cp.Begin(ctx, info)
	require.NoError(t, err)
	assert.Equal(t, pipeline.RunRunning, started.Status)
	assert.False(t, started.StartedAt.IsZero())

	_, ok, err := cp.Last(ctx, "r1", "w00")
	require.NoError(t, err)
	assert.False(t, ok)

	page := pipeline.PageRecord{RunID: "r1", Worker: "w00", Page: 0, FirstID: 1, LastID: 40, Records: 20, Rows: 31, File: "pages/w00-0000.csv"}
	require.NoError(t, cp.Commit(ctx, page))
	page2 := page
	page2.Page, page2.FirstID, page2.LastID = 1, 41, 90
	require.NoError(t, cp.Commit(ctx, page2))

	last, ok, err := cp.Last(ctx, "r1", "w00")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, page2, last)

	t.Run("pages are write once", func(t *testing.T) {
		err := cp.Commit(ctx, page)
		assert.True(t, errors.Is(err, errors.ErrPageExists))
	})

	t.Run("unknown run", func(t *testing.T) {
		err := cp.Commit(ctx, pipeline.PageRecord{RunID: "nope", Worker: "w00"})
		assert.True(t, errors.IsNotFoundError(err))
		_, _, err = cp.Last(ctx, "nope", "w00")
		assert.True(t, errors.IsNotFoundError(err))
		assert.True(t, errors.IsNotFoundError(cp.Finish(ctx, "nope", pipeline.RunFailed)))
	})

	require.NoError(t, cp.Finish(ctx, "r1", pipeline.RunFailed))

	t.Run("resume keeps stored ranges", func(t *testing.T) {
		again := info
		again.Ranges = nil
		resumed, err := cp.Begin(ctx, again)
		require.NoError(t, err)
		assert.Equal(t, info.Ranges, resumed.Ranges)
		assert.Equal(t, pipeline.RunRunning, resumed.Status)
	})

	t.Run("mismatched resume", func(t *testing.T) {
		other := info
		other.PageSize = 50
		_, err := cp.Begin(ctx, other)
		assert.True(t, errors.Is(err, errors.ErrCheckpointMismatch))
	})

	pages, err := cp.Pages(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, pages, 2)

	runs, err := cp.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0].RunID)
}

func TestCheckpointsLatest(t *testing.T) {
	ctx := context.Background()
	cp := NewCheckpoints(measuretest.CreateTestDB(t))

	_, ok, err := cp.Latest(ctx, "sqlite:catalogue.measurements")
	require.NoError(t, err)
	assert.False(t, ok)

	started := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "new", "same-second"} {
		_, err := cp.Begin(ctx, pipeline.RunInfo{
			RunID:     id,
			Source:    "sqlite:catalogue.measurements",
			PageSize:  10,
			Output:    "runs/" + id,
			StartedAt: started.Add(time.Duration(min(i, 1)) * time.Hour),
		})
		require.NoError(t, err)
	}
	_, err = cp.Begin(ctx, pipeline.RunInfo{RunID: "csv", Source: "csv:x.csv", PageSize: 10, Output: "runs/csv", StartedAt: started.Add(48 * time.Hour)})
	require.NoError(t, err)
	require.NoError(t, cp.Finish(ctx, "csv", pipeline.RunCompleted))

	latest, ok, err := cp.Latest(ctx, "sqlite:catalogue.measurements")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "same-second", latest.RunID, "ties go to the later insert")
	assert.Equal(t, "runs/same-second", latest.Output)
	assert.Equal(t, pipeline.RunRunning, latest.Status)

	latest, ok, err = cp.Latest(ctx, "csv:x.csv")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, pipeline.RunCompleted, latest.Status)
}

func TestPipelineOverCatalogue(t *testing.T) {
	ctx := context.Background()
	conn := measuretest.CreateTestDB(t)
	measuretest.SeedCatalogue(t, conn, map[int64]*string{
		1: types.StringPtr("Overall: 5 3/4 in x 12 1/4 in x 9 1/8 in; 14.6 cm x 31.1 cm x 23.2 cm"),
		2: types.StringPtr("see file"),
		3: nil,
		4: types.StringPtr("10 in x 25.4 cm"),
		5: types.StringPtr("5 x 3 in"),
	})
	src, err := NewCatalogue(conn, DefaultCatalogueConfig())
	require.NoError(t, err)
	resolver, err := parser.NewResolver()
	require.NoError(t, err)

	out := pipeline.NewMemoryOutput()
	cp := NewCheckpoints(conn)
	p, err := pipeline.New(src, out, cp, resolver,
		pipeline.Config{RunID: "catalogue-run", PageSize: 2, Workers: 2},
		pipeline.WithLogger(zap.NewNop().Sugar()))
	require.NoError(t, err)

	summary, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Totals.Records)
	assert.Equal(t, 1, summary.Totals.Failed)
	assert.Equal(t, 1, summary.Totals.Anomalous)

	info, err := cp.Run(ctx, "catalogue-run")
	require.NoError(t, err)
	assert.Equal(t, pipeline.RunCompleted, info.Status)
	assert.Len(t, info.Ranges, 2)

	failures, ok := out.Report(pipeline.ReportFailures)
	require.True(t, ok)
	require.Len(t, failures.Rows, 1)
	assert.Equal(t, int64(2), failures.Rows[0].ID)
}
