package harness

import (
	"fmt"
	"strings"

	"github.com/teranos/measure/parser"
	"github.com/teranos/measure/types"
)

// Result is one checked case
type Result struct {
	Case       Case
	Resolution parser.Resolution
	Mismatches []string
}

// Checked reports whether the case carried an expectation
func (r Result) Checked() bool {
	return r.Case.Expect != nil
}

// Passed reports whether the resolution met the expectation
func (r Result) Passed() bool {
	return len(r.Mismatches) == 0
}

// Outcome is the resolved kind, or OutcomeSkipped
func (r Result) Outcome() types.OutcomeKind {
	if r.Resolution.Skipped {
		return OutcomeSkipped
	}
	return r.Resolution.Outcome.Kind
}

// Tally counts results
type Tally struct {
	Total     int
	Passed    int
	Failed    int
	Unchecked int
}

// OK reports whether no checked case failed
func (t Tally) OK() bool {
	return t.Failed == 0
}

// Check resolves every case
func Check(resolver *parser.Resolver, cases []Case) []Result {
	results := make([]Result, len(cases))
	for i, c := range cases {
		res := resolver.Trace(types.Record{ID: c.ID, Text: c.Text})
		results[i] = Result{Case: c, Resolution: res}
		if c.Expect != nil {
			results[i].Mismatches = compare(*c.Expect, results[i])
		}
	}
	return results
}

// Summarize tallies results
func Summarize(results []Result) Tally {
	t := Tally{Total: len(results)}
	for _, r := range results {
		switch {
		case !r.Checked():
			t.Unchecked++
		case r.Passed():
			t.Passed++
		default:
			t.Failed++
		}
	}
	return t
}

func compare(exp Expectation, r Result) []string {
	var diffs []string
	mismatch := func(field string, want, got interface{}) {
		diffs = append(diffs, fmt.Sprintf("%s: want %v, got %v", field, want, got))
	}

	out := r.Resolution.Outcome
	if exp.Outcome != "" && exp.Outcome != r.Outcome() {
		mismatch("outcome", exp.Outcome, r.Outcome())
	}
	if exp.Variant != "" && exp.Variant != out.Variant {
		mismatch("variant", exp.Variant, out.Variant)
	}
	if exp.Facets != nil && *exp.Facets != len(out.Facets) {
		mismatch("facets", *exp.Facets, len(out.Facets))
	}
	if exp.Dimensions != nil {
		if got := types.DimensionCount(out.Facets); got != *exp.Dimensions {
			mismatch("dimensions", *exp.Dimensions, got)
		}
	}
	if exp.Labels != nil {
		labels := make([]string, len(out.Facets))
		for i, f := range out.Facets {
			labels[i] = f.Label()
		}
		if strings.Join(labels, "|") != strings.Join(exp.Labels, "|") {
			mismatch("labels", exp.Labels, labels)
		}
	}
	for _, reason := range exp.Anomalies {
		if !hasReason(out.Anomalies, reason) {
			mismatch("anomalies", exp.Anomalies, reasons(out.Anomalies))
			break
		}
	}
	if exp.Failure != "" {
		got := ""
		if out.Failure != nil {
			got = out.Failure.String()
		}
		if !strings.Contains(got, exp.Failure) {
			mismatch("failure", fmt.Sprintf("%q", exp.Failure), fmt.Sprintf("%q", got))
		}
	}
	return diffs
}

func hasReason(a types.AnomalyReasons, reason types.AnomalyReason) bool {
	switch reason {
	case types.ReasonTooManyDimensions:
		return a.TooManyDimensions
	case types.ReasonInconsistentUnits:
		return a.InconsistentUnits
	}
	return false
}

func reasons(a types.AnomalyReasons) []types.AnomalyReason {
	var out []types.AnomalyReason
	if a.TooManyDimensions {
		out = append(out, types.ReasonTooManyDimensions)
	}
	if a.InconsistentUnits {
		out = append(out, types.ReasonInconsistentUnits)
	}
	return out
}
