package am

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/teranos/measure/classification"
	"github.com/teranos/measure/parser"
	"github.com/teranos/measure/pipeline"
	"github.com/teranos/measure/storage"
)

// Default values
const (
	DefaultDatabasePath = "measure.db"
	DefaultOutputDir    = "runs"
	DefaultTheme        = "everforest"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)

	v.SetDefault("source.kind", SourceSQLite)
	v.SetDefault("source.table", storage.DefaultTable)
	v.SetDefault("source.id_column", storage.DefaultIDColumn)
	v.SetDefault("source.text_column", storage.DefaultTextColumn)
	v.SetDefault("source.exclude_tables", []string{})

	v.SetDefault("pipeline.page_size", pipeline.DefaultPageSize)
	v.SetDefault("pipeline.output_dir", DefaultOutputDir)
	v.SetDefault("pipeline.workers", 1)
	v.SetDefault("pipeline.max_pages_per_second", 0.0)
	v.SetDefault("pipeline.skip_ids", []int64{})

	v.SetDefault("grammar.max_dimensions", classification.DefaultMaxDimensions)
	v.SetDefault("grammar.variants", defaultVariantNames())

	v.SetDefault("log.json", false)
	v.SetDefault("log.theme", DefaultTheme)
}

// BindEnvVars binds settings commonly overridden per invocation
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("database.path", "MEASURE_DATABASE_PATH")
	v.BindEnv("source.csv_path", "MEASURE_SOURCE_CSV_PATH")
	v.BindEnv("pipeline.output_dir", "MEASURE_PIPELINE_OUTPUT_DIR")
}

// Default returns the configuration with only defaults applied
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, _ := LoadWithViper(v)
	return cfg
}

func defaultVariantNames() []string {
	names := make([]string, len(parser.VariantNames))
	for i, n := range parser.VariantNames {
		names[i] = string(n)
	}
	return names
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return DefaultDatabasePath
	}
	return c.Database.Path
}

// GetLogTheme returns the log theme
func (c *Config) GetLogTheme() string {
	if c.Log.Theme == "" {
		return DefaultTheme
	}
	return c.Log.Theme
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Source: %s, Pipeline: {PageSize: %d, Workers: %d}}",
		c.Database.Path, c.Source.Kind, c.Pipeline.PageSize, c.Pipeline.Workers)
}
