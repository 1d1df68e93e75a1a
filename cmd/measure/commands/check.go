package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/harness"
	"github.com/teranos/measure/logger"
	"github.com/teranos/measure/parser"
	"github.com/teranos/measure/sym"
)

// CheckCmd runs sample files through the grammar and compares expectations
var CheckCmd = &cobra.Command{
	Use:   "check <file>...",
	Short: sym.Check + " Verify sample strings against the grammar",
	Long: sym.Check + ` check - Verify sample strings against the grammar cascade

Sample files are YAML, TOML or plain text (one string per line). YAML and
TOML cases may carry an expectation: outcome, variant, facet and dimension
counts, labels, anomaly reasons or a failure substring. Cases without one
are resolved and shown but not checked.

Examples:
  measure check samples.yaml
  measure check samples.yaml regressions.toml --details
  measure check samples.yaml --watch      # re-run whenever a file changes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

var (
	checkDetails bool
	checkWatch   bool
)

func init() {
	CheckCmd.Flags().BoolVar(&checkDetails, "details", false, "Show attempts and facets for every case, not only failures")
	CheckCmd.Flags().BoolVar(&checkWatch, "watch", false, "Re-run when a sample file changes")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	resolver, err := cfg.NewResolver(logger.ComponentLogger("grammar"))
	if err != nil {
		return errors.Wrap(err, "failed to build grammar cascade")
	}
	out := cmd.OutOrStdout()

	if !checkWatch {
		tally, err := checkFiles(out, resolver, args, checkDetails)
		if err != nil {
			return err
		}
		if !tally.OK() {
			return errors.Newf("%d of %d checked cases failed", tally.Failed, tally.Passed+tally.Failed)
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchFiles(ctx, out, resolver, args)
}

// checkFiles checks every suite in order and returns the combined tally
func checkFiles(w io.Writer, resolver *parser.Resolver, paths []string, details bool) (harness.Tally, error) {
	var all []harness.Result
	for _, path := range paths {
		suite, err := harness.LoadFile(path)
		if err != nil {
			return harness.Tally{}, err
		}
		results := harness.Check(resolver, suite.Cases)
		pterm.Fprintln(w, pterm.Bold.Sprint(path))
		if err := harness.Render(w, results, details); err != nil {
			return harness.Tally{}, errors.Wrapf(err, "render %s", path)
		}
		all = append(all, results...)
	}
	return harness.Summarize(all), nil
}

func watchFiles(ctx context.Context, w io.Writer, resolver *parser.Resolver, paths []string) error {
	run := func() {
		if _, err := checkFiles(w, resolver, paths, checkDetails); err != nil {
			fmt.Fprintf(w, "%s %v\n", sym.Failure, err)
		}
	}
	run()

	watcher, err := harness.NewWatcher(paths, harness.DefaultDebounce, func(path string) {
		logger.Logger.Infow("Sample file changed", logger.FieldFile, path)
		fmt.Fprintln(w)
		run()
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nWatching %d file(s), Ctrl-C to stop\n", len(paths))
	return watcher.Run(ctx)
}
