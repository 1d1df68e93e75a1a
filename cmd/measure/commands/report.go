package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/export"
	"github.com/teranos/measure/logger"
	"github.com/teranos/measure/pipeline"
	"github.com/teranos/measure/sym"
)

// ReportCmd re-partitions a run directory
var ReportCmd = &cobra.Command{
	Use:   "report <run-dir>",
	Short: sym.Report + " Re-partition a run's pages into reports",
	Long: sym.Report + ` report - Rebuild failures, anomalies and newly parsed reports

Reports are derived from the page files alone; nothing is re-parsed. Use
this after deleting a report, or to inspect one.

Examples:
  measure report runs/1014093012
  measure report runs/1014093012 --list failures`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

var reportList string

func init() {
	ReportCmd.Flags().StringVar(&reportList, "list", "", "Print the rows of one report: failures, anomalies, newly_parsed")
}

func runReport(cmd *cobra.Command, args []string) error {
	root := args[0]
	out := cmd.OutOrStdout()

	manifest, err := export.ReadManifest(root)
	switch {
	case errors.IsNotFoundError(err):
		logger.Logger.Warnw("Run directory has no manifest", logger.FieldPath, root)
	case err != nil:
		return err
	default:
		fmt.Fprintf(out, "%s Run %s (%s, %s)\n", sym.Report, manifest.RunID, manifest.Source, manifest.Status)
	}

	dir, err := export.Open(root, logger.ComponentLogger("export"))
	if err != nil {
		return err
	}

	if reportList != "" {
		kind, err := parseReportKind(reportList)
		if err != nil {
			return err
		}
		rows, err := dir.ReadReport(kind)
		if err != nil {
			return errors.WithHint(err, "run `measure report "+root+"` to rebuild the reports")
		}
		return renderReportRows(out, kind, rows)
	}

	summary, err := pipeline.Partition(cmd.Context(), dir, dir)
	if err != nil {
		return errors.Wrapf(err, "partition %s", root)
	}
	fmt.Fprintf(out, "%d pages, widest volume %d dimensions\n", summary.Pages, summary.MaxDimensions)
	for _, kind := range pipeline.ReportKinds {
		fmt.Fprintf(out, "  %-13s %6d rows  %s\n", string(kind)+":", summary.Rows[kind], dir.ReportPath(kind))
	}
	return nil
}

func parseReportKind(s string) (pipeline.ReportKind, error) {
	for _, kind := range pipeline.ReportKinds {
		if string(kind) == s {
			return kind, nil
		}
	}
	return "", errors.NewInvalidRequestError("unknown report %q (want failures, anomalies or newly_parsed)", s)
}

// renderReportRows prints a compact table of a report's rows
func renderReportRows(w io.Writer, kind pipeline.ReportKind, rows []pipeline.Row) error {
	detail := "Dimensions"
	if kind == pipeline.ReportFailures {
		detail = "Failure"
	}
	data := pterm.TableData{{"ID", "Text", "Label", detail}}
	for _, r := range rows {
		var d string
		if r.FailureReason != nil {
			d = *r.FailureReason
		} else {
			d = strconv.Itoa(len(r.Dimensions))
			if r.TooManyDimensions {
				d += " " + sym.Anomaly + " too many"
			}
			if r.InconsistentUnits {
				d += " " + sym.Anomaly + " mixed units"
			}
		}
		label := ""
		if r.TypeLabel != nil {
			label = *r.TypeLabel
		}
		data = append(data, []string{strconv.FormatInt(r.ID, 10), r.RawText, label, d})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "render report")
	}
	fmt.Fprintln(w, table)
	fmt.Fprintf(w, "%d %s rows\n", len(rows), kind)
	return nil
}
