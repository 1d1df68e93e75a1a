package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/parser"
	"github.com/teranos/measure/pipeline"
	"github.com/teranos/measure/types"
)

var numericComparer = cmp.Comparer(func(a, b types.Numeric) bool { return a.Equal(b) })

func openDir(t *testing.T) *Dir {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "1014093000"), zap.NewNop().Sugar())
	require.NoError(t, err)
	return d
}

func rowsFor(t *testing.T, recs ...types.Record) []pipeline.Row {
	t.Helper()
	r, err := parser.NewResolver()
	require.NoError(t, err)
	var rows []pipeline.Row
	for _, rec := range recs {
		out, _ := r.Resolve(rec)
		rows = append(rows, pipeline.Flatten(rec, out)...)
	}
	return rows
}

func TestRunDirName(t *testing.T) {
	at := time.Date(2026, 10, 14, 9, 30, 5, 0, time.UTC)
	assert.Equal(t, "1014093005", RunDirName(at))
}

func TestWritePage(t *testing.T) {
	ctx := context.Background()
	d := openDir(t)
	rows := rowsFor(t,
		types.Record{ID: 1, Text: "Overall: 5 3/4 in x 12 1/4 in x 9 1/8 in; 14.6 cm x 31.1 cm x 23.2 cm"},
		types.Record{ID: 2, Text: "5 x 3 in, approx"},
	)

	name, err := d.WritePage(ctx, pipeline.Page{Worker: "w00", Number: 0, Rows: rows})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("pages", "w00-0000.csv"), name)

	data, err := os.ReadFile(filepath.Join(d.Location(), name))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "id,raw_text,failure_reason,inconsistent_units,too_many_dimensions,type_label,type_label_extra,units,outcome,variant,Dimension1 Context"))
	assert.Contains(t, lines[3], `"Expected numeric literal or end of text, found ',' (at char 8), (line:1, col:9)"`)

	got, err := d.ReadPage(ctx, name)
	require.NoError(t, err)
	if diff := cmp.Diff(rows, got, numericComparer); diff != "" {
		t.Errorf("ReadPage() mismatch (-want +got):\n%s", diff)
	}

	t.Run("write once", func(t *testing.T) {
		_, err := d.WritePage(ctx, pipeline.Page{Worker: "w00", Number: 0})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrPageExists))
	})

	t.Run("missing page", func(t *testing.T) {
		_, err := d.ReadPage(ctx, filepath.Join("pages", "w07-0000.csv"))
		assert.True(t, errors.IsNotFoundError(err))
	})
}

func TestListAndDiscardPages(t *testing.T) {
	ctx := context.Background()
	d := openDir(t)
	for _, p := range []pipeline.Page{
		{Worker: "w01", Number: 0},
		{Worker: "w00", Number: 1},
		{Worker: "w00", Number: 0},
		{Worker: "w00", Number: 2},
	} {
		_, err := d.WritePage(ctx, p)
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(d.Location(), "pages", "notes.txt"), []byte("x"), 0o644))

	names, err := d.ListPages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("pages", "w00-0000.csv"),
		filepath.Join("pages", "w00-0001.csv"),
		filepath.Join("pages", "w00-0002.csv"),
		filepath.Join("pages", "w01-0000.csv"),
	}, names)

	n, err := d.DiscardFrom(ctx, "w00", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	names, err = d.ListPages(ctx)
	require.NoError(t, err)
	assert.Len(t, names, 2)
}

func TestReports(t *testing.T) {
	ctx := context.Background()
	d := openDir(t)
	rows := rowsFor(t,
		types.Record{ID: 4, Text: "Overall: 1 x 2 x 3 x 4 x 5 x 6 in"},
		types.Record{ID: 5, Text: "10 in x 25.4 cm"},
		types.Record{ID: 6, Text: "see file"},
		types.Record{ID: 7, Text: "5 x 3 in"},
	)
	_, err := d.WritePage(ctx, pipeline.Page{Worker: "w00", Number: 0, Rows: rows[:2]})
	require.NoError(t, err)
	_, err = d.WritePage(ctx, pipeline.Page{Worker: "w00", Number: 1, Rows: rows[2:]})
	require.NoError(t, err)

	summary, err := pipeline.Partition(ctx, d, d)
	require.NoError(t, err)
	assert.Equal(t, 6, summary.MaxDimensions)

	failures, err := d.ReadReport(pipeline.ReportFailures)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, int64(6), failures[0].ID)

	anomalies, err := d.ReadReport(pipeline.ReportAnomalies)
	require.NoError(t, err)
	assert.Len(t, anomalies, 2)

	clean, err := d.ReadReport(pipeline.ReportNewlyParsed)
	require.NoError(t, err)
	require.Len(t, clean, 1)
	assert.Equal(t, "5", clean[0].Dimensions[0].Value.Literal)

	// regenerating replaces the reports
	_, err = pipeline.Partition(ctx, d, d)
	require.NoError(t, err)
	entries, err := os.ReadDir(d.Location())
	require.NoError(t, err)
	var files []string
	for _, e := range entries {
		files = append(files, e.Name())
	}
	assert.ElementsMatch(t, []string{"pages", "failures.csv", "anomalies.csv", "newly_parsed.csv"}, files)
}

func TestManifest(t *testing.T) {
	d := openDir(t)
	_, err := ReadManifest(d.Location())
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
	assert.NotEmpty(t, errors.GetAllHints(err))

	started := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	m := Manifest{
		RunID:     "7f1c",
		Source:    "sqlite:catalogue.measurements",
		PageSize:  200,
		Workers:   2,
		Variants:  []string{"mimsy", "diexis", "historic-deerfield"},
		StartedAt: started,
		Status:    pipeline.RunCompleted,
		Summary:   &pipeline.Summary{RunID: "7f1c", Totals: pipeline.Counts{Records: 12}},
	}
	require.NoError(t, d.WriteManifest(m))

	got, err := ReadManifest(d.Location())
	require.NoError(t, err)
	assert.Equal(t, "7f1c", got.RunID)
	assert.True(t, started.Equal(got.StartedAt))
	require.NotNil(t, got.Summary)
	assert.Equal(t, 12, got.Summary.Totals.Records)
}

func TestPipelineIntoDir(t *testing.T) {
	d := openDir(t)
	src := pipeline.NewMemorySource("memory", []types.Record{
		{ID: 1, Text: "5 x 3 in"},
		{ID: 2, Text: "see file"},
		{ID: 3, Text: "10 in x 25.4 cm"},
	})
	r, err := parser.NewResolver()
	require.NoError(t, err)
	p, err := pipeline.New(src, d, pipeline.NewMemoryCheckpoints(), r,
		pipeline.Config{RunID: "dir-run", PageSize: 2},
		pipeline.WithLogger(zap.NewNop().Sugar()))
	require.NoError(t, err)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Totals.Pages)
	assert.Equal(t, map[pipeline.ReportKind]int{
		pipeline.ReportFailures:    1,
		pipeline.ReportAnomalies:   1,
		pipeline.ReportNewlyParsed: 1,
	}, summary.Partition.Rows)

	for _, kind := range pipeline.ReportKinds {
		assert.FileExists(t, d.ReportPath(kind))
	}
}
