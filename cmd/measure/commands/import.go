package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/logger"
	"github.com/teranos/measure/storage"
	"github.com/teranos/measure/sym"
)

// ImportCmd loads a CSV export into the catalogue table
var ImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: sym.Import + " Load (id, text) records into the local catalogue",
	Long: sym.Import + ` import - Load a two-column CSV export into the catalogue table

The file holds id,text rows with an optional header. Existing ids are
replaced; blank text is stored as NULL and skipped by runs.

Examples:
  measure import mimsy_export.csv
  measure import mimsy_export.csv --db /data/catalogue.db`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var importDBPath string

func init() {
	ImportCmd.Flags().StringVar(&importDBPath, "db", "", "Database path (overrides database.path)")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg, importDBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	f, err := os.Open(args[0])
	if err != nil {
		return errors.Wrapf(err, "open %s", args[0])
	}
	defer f.Close()

	n, err := storage.Import(cmd.Context(), database, catalogueConfig(cfg), f)
	if err != nil {
		return errors.Wrapf(err, "import %s", args[0])
	}
	logger.DBInfow(logger.ComponentLogger("db"), "Records imported",
		logger.FieldFile, args[0],
		logger.FieldCount, n)
	fmt.Fprintf(cmd.OutOrStdout(), "%s Imported %d records into %s\n", sym.Import, n, cfg.Source.Table)
	return nil
}
