package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/measure/am"
	"github.com/teranos/measure/db"
	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/pipeline"
	"github.com/teranos/measure/storage"
	"github.com/teranos/measure/sym"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: sym.DB + " Catalogue and checkpoint statistics",
	Long: sym.DB + ` db - Inspect the measure database

Examples:
  measure db stats                # Catalogue counts, migrations and recent runs
  measure db stats --limit 5      # Show only the last 5 runs`,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalogue and run statistics",
	RunE:  runDbStats,
}

var (
	statsLimitFlag int
	statsDBPath    string
)

func init() {
	DbCmd.AddCommand(dbStatsCmd)
	dbStatsCmd.Flags().IntVar(&statsLimitFlag, "limit", 10, "Number of recent runs to show")
	dbStatsCmd.Flags().StringVar(&statsDBPath, "db", "", "Database path (overrides database.path)")
}

func runDbStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg, statsDBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	path := statsDBPath
	if path == "" {
		path = cfg.GetDatabasePath()
	}
	fmt.Fprintf(out, "%s Database Statistics\n", sym.DB)
	fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Fprintf(out, "Database Path:  %s\n", path)

	if cfg.Source.Kind == am.SourceSQLite {
		cat, err := storage.NewCatalogue(database, catalogueConfig(cfg))
		if err != nil {
			return err
		}
		stats, err := cat.Stats(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to query catalogue stats")
		}
		writeCatalogueStats(out, stats)
	} else {
		fmt.Fprintf(out, "Source:         %s (csv, not stored in the database)\n", cfg.Source.CSVPath)
	}
	fmt.Fprintln(out)

	migrations, err := db.MigrationStatus(database)
	if err != nil {
		return errors.Wrap(err, "failed to read migration status")
	}
	fmt.Fprintln(out, "Migrations:")
	for _, m := range migrations {
		mark := sym.Failure
		if m.Applied {
			mark = sym.Check
		}
		fmt.Fprintf(out, "  %s %s\n", mark, m.File)
	}
	fmt.Fprintln(out)

	runs, err := storage.NewCheckpoints(database).Runs(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list runs")
	}
	return writeRuns(out, runs, statsLimitFlag)
}

func writeCatalogueStats(w io.Writer, s storage.CatalogueStats) {
	fmt.Fprintf(w, "Catalogue:      %s\n", s.Table)
	fmt.Fprintf(w, "  Rows:         %d\n", s.Total)
	fmt.Fprintf(w, "  With text:    %d\n", s.WithText)
	fmt.Fprintf(w, "  Excluded:     %d\n", s.Excluded)
	fmt.Fprintf(w, "  Readable:     %d\n", s.WithText-s.Excluded)
	if s.MaxID != 0 || s.MinID != 0 {
		fmt.Fprintf(w, "  Id range:     %d - %d\n", s.MinID, s.MaxID)
	}
}

// writeRuns lists runs newest first, at most limit of them
func writeRuns(w io.Writer, runs []pipeline.RunInfo, limit int) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return nil
	}
	fmt.Fprintf(w, "Recent runs (%d of %d):\n", min(limit, len(runs)), len(runs))
	data := pterm.TableData{{"Run", "Status", "Started", "Source", "Page size", "Workers"}}
	for i, r := range runs {
		if i >= limit {
			break
		}
		data = append(data, []string{
			r.RunID,
			string(r.Status),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Source,
			strconv.Itoa(r.PageSize),
			strconv.Itoa(len(r.Ranges)),
		})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "render runs")
	}
	fmt.Fprintln(w, table)
	return nil
}
