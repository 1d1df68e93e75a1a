package harness

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/parser"
	"github.com/teranos/measure/types"
)

const yamlCases = `
cases:
  - name: two unit systems
    text: "Overall: 5 3/4 in x 12 1/4 in x 9 1/8 in; 14.6 cm x 31.1 cm x 23.2 cm"
    expect:
      outcome: parsed
      variant: mimsy
      facets: 1
      dimensions: 6
      labels: [Overall]
  - name: mixed units
    text: "10 in x 25.4 cm"
    expect:
      outcome: anomalous
      anomalies: [inconsistent_units]
  - text: "see file"
    expect:
      outcome: failed
      failure: "Expected numeric literal"
  - name: unchecked
    text: "5 x 3 in"
`

const tomlCases = `
[[cases]]
name = "die axis"
text = "5/8 in. diameter; 1.5875 cm, weight 3.8 gm., diexis 0"
  [cases.expect]
  outcome = "parsed"
  variant = "diexis"
  dimensions = 4

[[cases]]
name = "deerfield"
text = "overall: teacup - 1 3/4 in x 2 15/16 in; 4.445 cm x 7.46125 cm; saucer: 1 in x 4 3/4 in"
  [cases.expect]
  outcome = "parsed"
  variant = "historic-deerfield"
  labels = ["teacup", "saucer"]
`

func newResolver(t *testing.T, opts ...parser.ResolverOption) *parser.Resolver {
	t.Helper()
	r, err := parser.NewResolver(opts...)
	require.NoError(t, err)
	return r
}

func TestDecode(t *testing.T) {
	suite, err := Decode([]byte(yamlCases), FormatYAML)
	require.NoError(t, err)
	require.Len(t, suite.Cases, 4)
	assert.Equal(t, "case 3", suite.Cases[2].Name)
	assert.Equal(t, int64(3), suite.Cases[2].ID)
	require.NotNil(t, suite.Cases[0].Expect)
	assert.Equal(t, 6, *suite.Cases[0].Expect.Dimensions)
	assert.Nil(t, suite.Cases[3].Expect)

	suite, err = Decode([]byte(tomlCases), FormatTOML)
	require.NoError(t, err)
	require.Len(t, suite.Cases, 2)
	assert.Equal(t, types.VariantDieAxis, suite.Cases[0].Expect.Variant)
	assert.Equal(t, []string{"teacup", "saucer"}, suite.Cases[1].Expect.Labels)

	suite, err = Decode([]byte("# samples\n5 in\n\n  6 cm  \n"), FormatText)
	require.NoError(t, err)
	require.Len(t, suite.Cases, 2)
	assert.Equal(t, "6 cm", suite.Cases[1].Text)

	_, err = Decode([]byte("cases: ["), FormatYAML)
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "samples.toml")
	require.NoError(t, os.WriteFile(path, []byte(tomlCases), 0o644))

	suite, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, suite.Path)
	assert.Len(t, suite.Cases, 2)

	_, err = LoadFile(filepath.Join(dir, "samples.json"))
	require.Error(t, err)
	assert.True(t, errors.IsInvalidRequestError(err))
}

func TestCheck(t *testing.T) {
	suite, err := Decode([]byte(yamlCases+tomlCasesAsYAML), FormatYAML)
	require.NoError(t, err)

	results := Check(newResolver(t), suite.Cases)
	for _, r := range results {
		assert.Empty(t, r.Mismatches, r.Case.Name)
	}
	assert.Equal(t, Tally{Total: 5, Passed: 4, Unchecked: 1}, Summarize(results))
}

// one die-axis case with the yaml layout
const tomlCasesAsYAML = `  - name: die axis
    text: "5/8 in. diameter; 1.5875 cm, weight 3.8 gm., diexis 0"
    expect: {outcome: parsed, variant: diexis, dimensions: 4}
`

func TestCheckReportsMismatches(t *testing.T) {
	two := 2
	cases := []Case{
		{Name: "wrong", ID: 1, Text: "5 x 3 in", Expect: &Expectation{
			Outcome:   types.Anomalous,
			Variant:   types.VariantDeerfield,
			Facets:    &two,
			Labels:    []string{"Overall"},
			Anomalies: []types.AnomalyReason{types.ReasonTooManyDimensions},
			Failure:   "nope",
		}},
		{Name: "skipped", ID: 7, Text: "5 in", Expect: &Expectation{Outcome: OutcomeSkipped}},
	}

	results := Check(newResolver(t, parser.WithSkipIDs(7)), cases)
	assert.Len(t, results[0].Mismatches, 6)
	assert.Contains(t, results[0].Mismatches[0], "outcome: want anomalous, got parsed")
	assert.True(t, results[1].Passed())
	assert.Equal(t, OutcomeSkipped, results[1].Outcome())
	assert.False(t, Summarize(results).OK())
}

func TestRender(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	cases := []Case{
		{Name: "clean", ID: 1, Text: "5/8 in. diameter; 1.5875 cm, weight 3.8 gm., diexis 0"},
		{Name: "broken", ID: 2, Text: "5 x 3 in, approx", Expect: &Expectation{Outcome: types.Parsed}},
	}
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Check(newResolver(t), cases), true))
	out := buf.String()

	assert.Contains(t, out, "clean")
	assert.Contains(t, out, "try-die-axis diexis matched")
	assert.Contains(t, out, "[1] 5/8 in diameter")
	assert.Contains(t, out, "[4] 0 die axis")
	assert.Contains(t, out, "outcome: want parsed, got failed")
	assert.Contains(t, out, "Expected numeric literal or end of text, found ','")
	assert.Contains(t, out, "2 cases, 0 passed, 1 failed, 1 unchecked")
}

func TestFormatFacets(t *testing.T) {
	facets := []types.Facet{{
		Volumes: []types.Volume{{
			{Value: types.MustParseNumeric("12"), Unit: types.Inch.Ptr(), Context: types.StringPtr("(approx.)")},
			{Value: types.MustParseNumeric("3")},
		}},
	}}
	assert.Equal(t, "(no label)\n  [1] 12 in (approx.) × 3\n", FormatFacets(facets))
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlCases), 0o644))

	var calls atomic.Int32
	w, err := NewWatcher([]string{path}, 20*time.Millisecond, func(string) { calls.Add(1) })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// unrelated files in the directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte(yamlCases+"\n"), 0o644))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
