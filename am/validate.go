package am

import (
	"strings"

	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/logger"
	"github.com/teranos/measure/parser"
	"github.com/teranos/measure/storage"
	"github.com/teranos/measure/types"
)

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceSQLite:
		cat := storage.CatalogueConfig{
			Table:         c.Source.Table,
			IDColumn:      c.Source.IDColumn,
			TextColumn:    c.Source.TextColumn,
			ExcludeTables: c.Source.ExcludeTables,
		}
		if err := cat.Validate(); err != nil {
			return errors.Wrap(err, "source")
		}
	case SourceCSV:
		if c.Source.CSVPath == "" {
			return errors.NewInvalidRequestError("source.csv_path is required when source.kind = %q", SourceCSV)
		}
	default:
		return errors.NewInvalidRequestError("source.kind must be %q or %q, got %q", SourceSQLite, SourceCSV, c.Source.Kind)
	}

	if c.Pipeline.PageSize <= 0 {
		return errors.NewInvalidRequestError("pipeline.page_size must be > 0, got %d", c.Pipeline.PageSize)
	}
	// 0 workers runs a single worker
	if c.Pipeline.Workers < 0 {
		return errors.NewInvalidRequestError("pipeline.workers must be >= 0, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.MaxPagesPerSecond < 0 {
		return errors.NewInvalidRequestError("pipeline.max_pages_per_second must be >= 0, got %v", c.Pipeline.MaxPagesPerSecond)
	}

	if c.Grammar.MaxDimensions <= 0 {
		return errors.NewInvalidRequestError("grammar.max_dimensions must be > 0, got %d", c.Grammar.MaxDimensions)
	}
	if n := len(c.Grammar.Variants); n == 0 || n > len(parser.VariantNames) {
		return errors.NewInvalidRequestError("grammar.variants needs 1 to %d entries, got %d", len(parser.VariantNames), n)
	}
	seen := map[parser.VariantName]bool{}
	for _, name := range c.Grammar.Variants {
		v, err := parser.ParseVariantName(name)
		if err != nil {
			return errors.Wrap(err, "grammar.variants")
		}
		if seen[v] {
			return errors.NewInvalidRequestError("grammar.variants lists %q twice", name)
		}
		seen[v] = true
	}
	builtin := parser.DefaultVocabulary()
	for _, a := range c.Grammar.UnitAliases {
		if a.Alias == "" {
			return errors.NewInvalidRequestError("grammar.unit_aliases entry for %q has no alias", a.Unit)
		}
		unit, err := types.ParseUnit(a.Unit)
		if err != nil {
			return errors.Wrapf(err, "grammar.unit_aliases %q", a.Alias)
		}
		if existing, ok := builtin.Lookup(strings.TrimSpace(a.Alias)); ok && existing != unit {
			return errors.WithHint(
				errors.NewInvalidRequestError("grammar.unit_aliases %q would shadow the built-in spelling of %s", a.Alias, existing),
				"aliases add spellings; pick one the grammar does not already know")
		}
	}

	if c.Log.Theme != "" && !logger.HasTheme(c.Log.Theme) {
		return errors.NewInvalidRequestError("log.theme %q is not a known theme", c.Log.Theme)
	}
	return nil
}
