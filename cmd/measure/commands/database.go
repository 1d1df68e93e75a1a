package commands

import (
	"database/sql"

	"github.com/teranos/measure/am"
	"github.com/teranos/measure/db"
	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/logger"
	"github.com/teranos/measure/pipeline"
	"github.com/teranos/measure/storage"
)

// loadConfig loads and validates the configuration
func loadConfig() (*am.Config, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "invalid configuration"), "run `measure am where` to see which file set it")
	}
	return cfg, nil
}

// openDatabase opens and migrates the configured database.
// A non-empty dbPath overrides database.path.
func openDatabase(cfg *am.Config, dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		dbPath = cfg.GetDatabasePath()
	}
	database, err := db.OpenWithMigrations(dbPath, logger.ComponentLogger("db"))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	return database, nil
}

// catalogueConfig maps the source section onto the catalogue reader
func catalogueConfig(cfg *am.Config) storage.CatalogueConfig {
	return storage.CatalogueConfig{
		Table:         cfg.Source.Table,
		IDColumn:      cfg.Source.IDColumn,
		TextColumn:    cfg.Source.TextColumn,
		ExcludeTables: cfg.Source.ExcludeTables,
	}
}

// openSource builds the configured record source
func openSource(cfg *am.Config, database *sql.DB) (pipeline.Source, error) {
	if cfg.Source.Kind == am.SourceCSV {
		src, err := storage.OpenCSVSource(cfg.Source.CSVPath)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	cat, err := storage.NewCatalogue(database, catalogueConfig(cfg))
	if err != nil {
		return nil, err
	}
	return cat, nil
}
