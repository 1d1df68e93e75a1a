// Package am loads measure configuration from TOML files and MEASURE_*
// environment variables.
//
// Precedence (lowest to highest): defaults, /etc/measure/am.toml,
// ~/.measure/am.toml, the nearest am.toml in the working directory or its
// parents, environment.
package am

// Config represents the measure configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database" toml:"database"`
	Source   SourceConfig   `mapstructure:"source" toml:"source"`
	Pipeline PipelineConfig `mapstructure:"pipeline" toml:"pipeline"`
	Grammar  GrammarConfig  `mapstructure:"grammar" toml:"grammar"`
	Log      LogConfig      `mapstructure:"log" toml:"log"`
}

// DatabaseConfig configures the SQLite database holding the catalogue and
// run checkpoints
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// Source kinds
const (
	SourceSQLite = "sqlite"
	SourceCSV    = "csv"
)

// SourceConfig selects where records are read from
type SourceConfig struct {
	Kind          string   `mapstructure:"kind" toml:"kind"` // sqlite or csv
	Table         string   `mapstructure:"table" toml:"table"`
	IDColumn      string   `mapstructure:"id_column" toml:"id_column"`
	TextColumn    string   `mapstructure:"text_column" toml:"text_column"`
	ExcludeTables []string `mapstructure:"exclude_tables" toml:"exclude_tables"` // ids in these tables are not read
	CSVPath       string   `mapstructure:"csv_path" toml:"csv_path"`
}

// PipelineConfig configures batch runs
type PipelineConfig struct {
	PageSize          int     `mapstructure:"page_size" toml:"page_size"`
	OutputDir         string  `mapstructure:"output_dir" toml:"output_dir"` // run directories are created under it
	Workers           int     `mapstructure:"workers" toml:"workers"`
	MaxPagesPerSecond float64 `mapstructure:"max_pages_per_second" toml:"max_pages_per_second"` // 0 = unlimited
	SkipIDs           []int64 `mapstructure:"skip_ids" toml:"skip_ids"`
}

// UnitAlias maps an extra spelling to a canonical unit
type UnitAlias struct {
	Alias string `mapstructure:"alias" toml:"alias"`
	Unit  string `mapstructure:"unit" toml:"unit"`
}

// GrammarConfig configures the cascade and the anomaly thresholds
type GrammarConfig struct {
	MaxDimensions int         `mapstructure:"max_dimensions" toml:"max_dimensions"`
	Variants      []string    `mapstructure:"variants" toml:"variants"` // cascade order, default variant first
	UnitAliases   []UnitAlias `mapstructure:"unit_aliases" toml:"unit_aliases"`
}

// LogConfig configures log output
type LogConfig struct {
	JSON  bool   `mapstructure:"json" toml:"json"`
	Theme string `mapstructure:"theme" toml:"theme"` // everforest, gruvbox
}

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)
