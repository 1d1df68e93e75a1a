package commands

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/harness"
	"github.com/teranos/measure/logger"
	"github.com/teranos/measure/parser"
	"github.com/teranos/measure/pipeline"
	"github.com/teranos/measure/sym"
	"github.com/teranos/measure/types"
)

// ParseCmd resolves measurement strings given on the command line or stdin
var ParseCmd = &cobra.Command{
	Use:   "parse [text...]",
	Short: sym.Parse + " Resolve a single measurement string",
	Long: sym.Parse + ` parse - Resolve measurement strings through the grammar cascade

The arguments are joined into one string. With no arguments (or "-") each
line of stdin is resolved as its own record.

Examples:
  measure parse "Overall: 5 3/4 in x 12 1/4 in x 9 1/8 in"
  measure parse --trace "5/8 in. diameter; 1.5875 cm, weight 3.8 gm., diexis 0"
  measure parse --format csv < strings.txt`,
	RunE: runParse,
}

var (
	parseFormat string
	parseTrace  bool
)

func init() {
	ParseCmd.Flags().StringVar(&parseFormat, "format", "text", "Output format: text, json, csv")
	ParseCmd.Flags().BoolVar(&parseTrace, "trace", false, "Show every variant attempt")
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	resolver, err := cfg.NewResolver(logger.ComponentLogger("grammar"))
	if err != nil {
		return errors.Wrap(err, "failed to build grammar cascade")
	}

	if len(args) == 0 && cmd.InOrStdin() == os.Stdin && !stdinIsPipe() {
		return errors.WithHint(errors.NewInvalidRequestError("no measurement text given"),
			`pass the text as arguments or pipe lines on stdin`)
	}
	records, err := parseInput(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	resolutions := make([]parser.Resolution, len(records))
	for i, rec := range records {
		resolutions[i] = resolver.Trace(rec)
	}

	out := cmd.OutOrStdout()
	switch parseFormat {
	case "json":
		return writeResolutionsJSON(out, resolutions)
	case "csv":
		return writeResolutionsCSV(out, resolutions)
	case "text":
		for i, res := range resolutions {
			if i > 0 {
				fmt.Fprintln(out)
			}
			writeResolution(out, res, parseTrace)
		}
		return nil
	}
	return errors.NewInvalidRequestError("unsupported format: %s (supported: text, json, csv)", parseFormat)
}

// parseInput joins args into one record, or reads one record per stdin line
func parseInput(args []string, stdin io.Reader) ([]types.Record, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return []types.Record{{ID: 1, Text: strings.Join(args, " ")}}, nil
	}

	var records []types.Record
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		records = append(records, types.Record{ID: int64(len(records) + 1), Text: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read stdin")
	}
	if len(records) == 0 {
		return nil, errors.WithHint(errors.NewInvalidRequestError("no measurement text given"),
			`pass the text as arguments or pipe lines on stdin`)
	}
	return records, nil
}

func writeResolution(w io.Writer, res parser.Resolution, trace bool) {
	out := res.Outcome
	io.WriteString(w, res.Record.Text+"\n")

	if trace {
		for _, a := range res.Attempts {
			if a.Matched {
				fmt.Fprintf(w, "  %s %s: matched\n", a.State, a.Variant)
				continue
			}
			fmt.Fprintf(w, "  %s %s: %s\n", a.State, a.Variant, a.Err.FormatError(parser.ErrorContextPlain))
		}
	}

	switch out.Kind {
	case types.Failed:
		fmt.Fprintf(w, "%s failed\n", sym.Failure)
		if res.Err != nil {
			fmt.Fprintln(w, res.Err.FormatError(parser.ErrorContextTerminal))
		}
		return
	case types.Anomalous:
		fmt.Fprintf(w, "%s anomalous via %s (%s)\n", sym.Anomaly, out.Variant, out.Anomalies.String())
	default:
		fmt.Fprintf(w, "%s parsed via %s\n", sym.Check, out.Variant)
	}
	io.WriteString(w, harness.FormatFacets(out.Facets))
}

func writeResolutionsJSON(w io.Writer, resolutions []parser.Resolution) error {
	type entry struct {
		Text    string        `json:"text"`
		Outcome types.Outcome `json:"outcome"`
	}
	entries := make([]entry, len(resolutions))
	for i, res := range resolutions {
		entries[i] = entry{Text: res.Record.Text, Outcome: res.Outcome}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// writeResolutionsCSV writes the same flattened rows a run writes to its pages
func writeResolutionsCSV(w io.Writer, resolutions []parser.Resolution) error {
	var rows []pipeline.Row
	for _, res := range resolutions {
		rows = append(rows, pipeline.Flatten(res.Record, res.Outcome)...)
	}
	maxDims := pipeline.MaxDimensions(rows)

	cw := csv.NewWriter(w)
	cw.Write(pipeline.Header(maxDims))
	for _, row := range rows {
		cw.Write(row.Values(maxDims))
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, "failed to write csv")
	}
	return nil
}

// stdinIsPipe reports whether stdin is redirected rather than a terminal
func stdinIsPipe() bool {
	fi, err := os.Stdin.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice == 0
}
