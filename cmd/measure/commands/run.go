package commands

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/measure/am"
	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/export"
	"github.com/teranos/measure/logger"
	"github.com/teranos/measure/pipeline"
	"github.com/teranos/measure/storage"
	"github.com/teranos/measure/sym"
	"github.com/teranos/measure/version"
)

// RunCmd runs the paged batch pipeline
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: sym.Run + " Run the paged batch pipeline",
	Long: sym.Run + ` run - Page through the record source, parse and write reports

Every page is written once under <output_dir>/<MMDDhhmmss>/pages and
checkpointed in the database. When the newest run over the configured
source did not complete, a plain run resumes it after its last committed
page; --fresh starts a new run instead. When all pages are written the rows
are partitioned into failures.csv, anomalies.csv and newly_parsed.csv.

Examples:
  measure run                          # resume an unfinished run, else start one
  measure run --fresh                  # always start a new run
  measure run --workers 4 --rate 10    # 4 workers, at most 10 pages/s
  measure run --resume runs/1014093012 # continue an interrupted run
  measure run --dry-run                # parse everything, write nothing`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	runResume    string
	runFresh     bool
	runDryRun    bool
	runPageSize  int
	runWorkers   int
	runRate      float64
	runOutputDir string
	runDBPath    string
)

func init() {
	RunCmd.Flags().StringVar(&runResume, "resume", "", "Resume the run in this directory")
	RunCmd.Flags().BoolVar(&runFresh, "fresh", false, "Start a new run even when the last one did not complete")
	RunCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Keep pages and checkpoints in memory")
	RunCmd.Flags().IntVar(&runPageSize, "page-size", 0, "Records per page (overrides pipeline.page_size)")
	RunCmd.Flags().IntVar(&runWorkers, "workers", -1, "Parallel workers (overrides pipeline.workers)")
	RunCmd.Flags().Float64Var(&runRate, "rate", -1, "Max pages per second, 0 = unlimited (overrides pipeline.max_pages_per_second)")
	RunCmd.Flags().StringVar(&runOutputDir, "output-dir", "", "Parent directory for run directories (overrides pipeline.output_dir)")
	RunCmd.Flags().StringVar(&runDBPath, "db", "", "Database path (overrides database.path)")
}

// runPlan is what a run invocation resolved to before starting
type runPlan struct {
	root     string
	manifest export.Manifest
	resumed  bool
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid run settings")
	}

	database, err := openDatabase(cfg, runDBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	source, err := openSource(cfg, database)
	if err != nil {
		return err
	}
	resolver, err := cfg.NewResolver(logger.ComponentLogger("grammar"))
	if err != nil {
		return errors.Wrap(err, "failed to build grammar cascade")
	}

	resume := runResume
	switch {
	case resume != "" && runFresh:
		return errors.NewInvalidRequestError("--resume and --fresh cannot be combined")
	case resume == "" && !runFresh && !runDryRun:
		resume, err = unfinishedRun(cmd.Context(), storage.NewCheckpoints(database), source.Name())
		if err != nil {
			return err
		}
		if resume != "" {
			logger.Logger.Infow("Resuming unfinished run", logger.FieldPath, resume)
		}
	}

	plan, err := planRun(cfg, source.Name(), resume, time.Now())
	if err != nil {
		if runResume == "" && errors.IsNotFoundError(err) {
			return errors.WithHint(err, "pass --fresh to start a new run")
		}
		return err
	}

	output, checkpoints, dir, err := openRunOutput(plan, database, runDryRun)
	if err != nil {
		return err
	}
	if dir != nil {
		if err := dir.WriteManifest(plan.manifest); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := newRunProgress(cmd.ErrOrStderr())
	p, err := pipeline.New(source, output, checkpoints, resolver, pipeline.Config{
		RunID:             plan.manifest.RunID,
		PageSize:          plan.manifest.PageSize,
		Workers:           plan.manifest.Workers,
		MaxPagesPerSecond: cfg.Pipeline.MaxPagesPerSecond,
	}, pipeline.WithProgress(progress.page))
	if err != nil {
		return err
	}

	progress.start(plan)
	summary, runErr := p.Run(ctx)
	progress.stop(runErr == nil)

	if dir != nil {
		finished := time.Now().UTC()
		plan.manifest.FinishedAt = &finished
		plan.manifest.Summary = &summary
		plan.manifest.Status = pipeline.RunCompleted
		if runErr != nil {
			plan.manifest.Status = pipeline.RunFailed
		}
		if err := dir.WriteManifest(plan.manifest); err != nil {
			logger.Logger.Errorw("Failed to update manifest", logger.FieldPath, plan.root, logger.FieldError, err.Error())
		}
	}

	verbosity, _ := cmd.Flags().GetCount("verbose")
	renderRunSummary(cmd.OutOrStdout(), summary, logger.ShouldOutput(verbosity, logger.OutputSummary))

	if runErr != nil {
		if runDryRun {
			return runErr
		}
		return errors.WithHint(runErr, fmt.Sprintf("fix the cause, then run `measure run` again to continue %s", plan.root))
	}
	return nil
}

// applyRunFlags folds command line overrides into cfg
func applyRunFlags(cfg *am.Config) {
	if runPageSize > 0 {
		cfg.Pipeline.PageSize = runPageSize
	}
	if runWorkers >= 0 {
		cfg.Pipeline.Workers = runWorkers
	}
	if runRate >= 0 {
		cfg.Pipeline.MaxPagesPerSecond = runRate
	}
	if runOutputDir != "" {
		cfg.Pipeline.OutputDir = runOutputDir
	}
}

// unfinishedRun returns the directory of the newest run over source when
// that run did not complete, or "" when a fresh run should start
func unfinishedRun(ctx context.Context, checkpoints *storage.Checkpoints, source string) (string, error) {
	info, ok, err := checkpoints.Latest(ctx, source)
	if err != nil {
		return "", errors.Wrap(err, "look up the last run")
	}
	if !ok || info.Status == pipeline.RunCompleted {
		return "", nil
	}
	return info.Output, nil
}

// planRun picks the run directory and manifest: a fresh one, or the stored
// one when resuming. A resumed run keeps its page size and worker count.
func planRun(cfg *am.Config, sourceName, resume string, now time.Time) (runPlan, error) {
	if resume != "" {
		m, err := export.ReadManifest(resume)
		if err != nil {
			return runPlan{}, err
		}
		if m.Source != sourceName {
			return runPlan{}, errors.WithHint(
				errors.Wrapf(errors.ErrCheckpointMismatch, "run %s read %s, configured source is %s", m.RunID, m.Source, sourceName),
				"resume with the source settings the run was started with")
		}
		m.Status = pipeline.RunRunning
		m.FinishedAt = nil
		m.Summary = nil
		return runPlan{root: resume, manifest: m, resumed: true}, nil
	}

	workers := cfg.Pipeline.Workers
	if workers == 0 {
		workers = 1
	}
	return runPlan{
		root: freeRunDir(cfg.Pipeline.OutputDir, export.RunDirName(now)),
		manifest: export.Manifest{
			RunID:     uuid.NewString(),
			Source:    sourceName,
			PageSize:  cfg.Pipeline.PageSize,
			Workers:   workers,
			Variants:  cfg.Grammar.Variants,
			Version:   version.Get().String(),
			StartedAt: now.UTC(),
			Status:    pipeline.RunRunning,
		},
	}, nil
}

// freeRunDir returns parent/name, suffixed -2, -3 ... when a run started
// in the same second already owns it
func freeRunDir(parent, name string) string {
	root := filepath.Join(parent, name)
	for n := 2; ; n++ {
		if _, err := os.Stat(root); os.IsNotExist(err) {
			return root
		}
		root = filepath.Join(parent, fmt.Sprintf("%s-%d", name, n))
	}
}

// openRunOutput returns the page output and checkpoint store for plan.
// The export.Dir is nil for dry runs.
func openRunOutput(plan runPlan, database *sql.DB, dryRun bool) (pipeline.Output, pipeline.CheckpointStore, *export.Dir, error) {
	if dryRun {
		return pipeline.NewMemoryOutput(), pipeline.NewMemoryCheckpoints(), nil, nil
	}
	dir, err := export.Open(plan.root, logger.ComponentLogger("export"))
	if err != nil {
		return nil, nil, nil, err
	}
	return dir, storage.NewCheckpoints(database), dir, nil
}

// runProgress drives a spinner from worker goroutines
type runProgress struct {
	mu      sync.Mutex
	w       io.Writer
	spinner *pterm.SpinnerPrinter
	totals  pipeline.Counts
}

func newRunProgress(w io.Writer) *runProgress {
	return &runProgress{w: w}
}

func (r *runProgress) start(plan runPlan) {
	verb := "Starting"
	if plan.resumed {
		verb = "Resuming"
	}
	s, err := pterm.DefaultSpinner.WithWriter(r.w).Start(fmt.Sprintf("%s run %s", verb, plan.manifest.RunID))
	if err != nil {
		return
	}
	r.spinner = s
}

func (r *runProgress) page(res pipeline.PageResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totals.Add(res.Counts)
	if r.spinner == nil {
		return
	}
	r.spinner.UpdateText(fmt.Sprintf("%s %d pages, %d records (%d failed, %d anomalous), last %s id %d",
		sym.Page, r.totals.Pages, r.totals.Records, r.totals.Failed, r.totals.Anomalous, res.Worker, res.LastID))
}

func (r *runProgress) stop(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spinner == nil {
		return
	}
	if ok {
		r.spinner.Success(fmt.Sprintf("%d pages written", r.totals.Pages))
	} else {
		r.spinner.Fail("Run stopped")
	}
	r.spinner = nil
}

// renderRunSummary prints totals and report counts, plus one row per worker
// when perWorker is set
func renderRunSummary(w io.Writer, s pipeline.Summary, perWorker bool) {
	fmt.Fprintf(w, "%s Run %s\n", sym.Run, s.RunID)
	fmt.Fprintf(w, "Source:   %s\n", s.Source)
	fmt.Fprintf(w, "Output:   %s\n", s.Output)
	fmt.Fprintf(w, "Duration: %s\n\n", s.Duration.Round(time.Millisecond))

	data := pterm.TableData{{"Worker", "Range", "Pages", "Records", "Parsed", "Anomalous", "Failed", "Skipped", "Rows"}}
	if perWorker {
		for _, ws := range s.Workers {
			data = append(data, countsRow(ws.Worker, rangeText(ws.Range), ws.Counts))
		}
	}
	data = append(data, countsRow("total", "", s.Totals))
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err == nil {
		fmt.Fprintln(w, table)
	}

	fmt.Fprintln(w)
	for _, kind := range pipeline.ReportKinds {
		fmt.Fprintf(w, "%-13s %d rows\n", string(kind)+":", s.Partition.Rows[kind])
	}
}

func countsRow(name, span string, c pipeline.Counts) []string {
	return []string{
		name, span,
		strconv.Itoa(c.Pages), strconv.Itoa(c.Records), strconv.Itoa(c.Parsed),
		strconv.Itoa(c.Anomalous), strconv.Itoa(c.Failed), strconv.Itoa(c.Skipped),
		strconv.Itoa(c.Rows),
	}
}

func rangeText(r pipeline.Range) string {
	if r == pipeline.AllIDs {
		return "all"
	}
	lo, hi := "..", ".."
	if r.Min != pipeline.AllIDs.Min {
		lo = strconv.FormatInt(r.Min, 10)
	}
	if r.Max != pipeline.AllIDs.Max {
		hi = strconv.FormatInt(r.Max, 10)
	}
	return lo + "-" + hi
}
