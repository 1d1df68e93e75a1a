package harness

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/teranos/measure/parser"
	"github.com/teranos/measure/types"
)

// FormatDimension renders "5/8 in diameter" or "12 in (approx.)"
func FormatDimension(d types.Dimension) string {
	parts := []string{d.Value.Literal}
	if d.Unit != nil {
		parts = append(parts, string(*d.Unit))
	}
	if d.Context != nil {
		parts = append(parts, *d.Context)
	}
	return strings.Join(parts, " ")
}

// FormatFacets renders facets one volume per line
func FormatFacets(facets []types.Facet) string {
	var b strings.Builder
	for _, f := range facets {
		label := f.Label()
		if label == "" {
			label = "(no label)"
		}
		b.WriteString(label)
		b.WriteByte('\n')
		for i, v := range f.Volumes {
			dims := make([]string, len(v))
			for j, d := range v {
				dims[j] = FormatDimension(d)
			}
			fmt.Fprintf(&b, "  [%d] %s\n", i+1, strings.Join(dims, " × "))
		}
	}
	return b.String()
}

// Render writes a results table followed by details for failed cases, or
// for every case when verbose is set
func Render(w io.Writer, results []Result, verbose bool) error {
	data := pterm.TableData{{"Case", "Outcome", "Variant", "Dims", "Check"}}
	for _, r := range results {
		data = append(data, []string{
			r.Case.Name,
			outcomeColor(r.Outcome()),
			string(r.Resolution.Outcome.Variant),
			strconv.Itoa(types.DimensionCount(r.Resolution.Outcome.Facets)),
			checkMark(r),
		})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, table)

	for _, r := range results {
		if !verbose && r.Passed() && r.Outcome() != types.Failed {
			continue
		}
		renderDetail(w, r, verbose)
	}

	t := Summarize(results)
	summary := fmt.Sprintf("%d cases, %d passed, %d failed, %d unchecked", t.Total, t.Passed, t.Failed, t.Unchecked)
	if t.OK() {
		fmt.Fprintln(w, pterm.Green(summary))
	} else {
		fmt.Fprintln(w, pterm.Red(summary))
	}
	return nil
}

func renderDetail(w io.Writer, r Result, verbose bool) {
	fmt.Fprintf(w, "\n%s %s\n", pterm.LightCyan(r.Case.Name+":"), r.Case.Text)
	for _, m := range r.Mismatches {
		fmt.Fprintf(w, "  %s %s\n", pterm.Red("✗"), m)
	}

	res := r.Resolution
	if verbose {
		for _, a := range res.Attempts {
			status := pterm.Gray("no match")
			if a.Matched {
				status = pterm.Green("matched")
			}
			fmt.Fprintf(w, "  %s %s %s\n", pterm.Gray(a.State.String()), a.Variant, status)
		}
		if res.Outcome.OK() {
			for _, line := range strings.Split(strings.TrimRight(FormatFacets(res.Outcome.Facets), "\n"), "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
		for _, flag := range res.Outcome.Anomalies.Flags {
			fmt.Fprintf(w, "  %s %s: %s\n", pterm.Yellow("!"), flag.Reason, flag.Detail)
		}
	}
	if res.Err != nil {
		for _, line := range strings.Split(res.Err.FormatError(parser.ErrorContextTerminal), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}

func outcomeColor(kind types.OutcomeKind) string {
	switch kind {
	case types.Parsed:
		return pterm.Green(string(kind))
	case types.Anomalous:
		return pterm.Yellow(string(kind))
	case types.Failed:
		return pterm.Red(string(kind))
	}
	return pterm.Gray(string(kind))
}

func checkMark(r Result) string {
	switch {
	case !r.Checked():
		return pterm.Gray("-")
	case r.Passed():
		return pterm.Green("ok")
	default:
		return pterm.Red("FAIL")
	}
}
