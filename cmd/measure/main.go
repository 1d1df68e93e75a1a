package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/measure/am"
	"github.com/teranos/measure/cmd/measure/commands"
	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/logger"
)

var rootCmd = &cobra.Command{
	Use:   "measure",
	Short: "measure - Museum measurement string parser",
	Long: `measure - Parse free-text museum measurement strings into structured dimensions.

Records are read page by page from a catalogue table or CSV export, resolved
through the grammar cascade (mimsy, diexis, historic-deerfield) and written as
page files, then partitioned into failures, anomalies and newly parsed reports.

Available commands:
  am      - Show or initialise configuration ("I am")
  run     - Run the paged batch pipeline (resumes from the last checkpoint)
  parse   - Resolve a single measurement string
  check   - Verify sample strings against the grammar
  report  - Re-partition a run directory into reports
  import  - Load (id, text) records into the local catalogue
  db      - Catalogue and checkpoint statistics

Examples:
  measure parse "Overall: 5 3/4 in x 12 1/4 in"
  measure check samples.yaml --watch
  measure import export.csv
  measure run -v
  measure run --resume runs/1014093012`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")

		// Config errors surface from the commands that need it
		if cfg, err := am.Load(); err == nil {
			logger.SetTheme(cfg.GetLogTheme())
			jsonLogs = jsonLogs || cfg.Log.JSON
		}
		if err := logger.InitializeWithVerbosity(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON")

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.ParseCmd)
	rootCmd.AddCommand(commands.CheckCmd)
	rootCmd.AddCommand(commands.ReportCmd)
	rootCmd.AddCommand(commands.ImportCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
		os.Exit(1)
	}
}
