// Package storage provides the record sources and run checkpoints backed by
// SQLite and CSV files.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/pipeline"
	"github.com/teranos/measure/types"
)

// Default catalogue layout created by the migrations
const (
	DefaultTable      = "catalogue"
	DefaultIDColumn   = "id"
	DefaultTextColumn = "measurements"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CatalogueConfig names the table and columns holding measurement text.
// ExcludeTables lists tables whose ids are left out of the run, typically
// records already reviewed by hand.
type CatalogueConfig struct {
	Table         string
	IDColumn      string
	TextColumn    string
	ExcludeTables []string
}

// DefaultCatalogueConfig reads the migrated catalogue table
func DefaultCatalogueConfig() CatalogueConfig {
	return CatalogueConfig{Table: DefaultTable, IDColumn: DefaultIDColumn, TextColumn: DefaultTextColumn}
}

// Validate rejects names that are not plain SQL identifiers. They are
// interpolated into queries.
func (c CatalogueConfig) Validate() error {
	names := append([]string{c.Table, c.IDColumn, c.TextColumn}, c.ExcludeTables...)
	for _, name := range names {
		if !identifier.MatchString(name) {
			return errors.NewInvalidRequestError("invalid SQL identifier %q", name)
		}
	}
	return nil
}

// Catalogue is a read-only pipeline.Source over a SQLite table
type Catalogue struct {
	db  *sql.DB
	cfg CatalogueConfig

	boundsQuery string
	pageQuery   string
}

// NewCatalogue validates cfg and prepares the queries
func NewCatalogue(db *sql.DB, cfg CatalogueConfig) (*Catalogue, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	where := cfg.filter()
	return &Catalogue{
		db:          db,
		cfg:         cfg,
		boundsQuery: fmt.Sprintf("SELECT MIN(%s), MAX(%s) FROM %s WHERE %s", cfg.IDColumn, cfg.IDColumn, cfg.Table, where),
		pageQuery: fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s AND %s > ? AND %s BETWEEN ? AND ? ORDER BY %s LIMIT ?",
			cfg.IDColumn, cfg.TextColumn, cfg.Table, where, cfg.IDColumn, cfg.IDColumn, cfg.IDColumn),
	}, nil
}

// filter keeps rows with text and drops excluded ids
func (c CatalogueConfig) filter() string {
	clauses := []string{
		fmt.Sprintf("%s IS NOT NULL", c.TextColumn),
		fmt.Sprintf("TRIM(%s) <> ''", c.TextColumn),
	}
	for _, t := range c.ExcludeTables {
		clauses = append(clauses, fmt.Sprintf("%s NOT IN (SELECT %s FROM %s)", c.IDColumn, c.IDColumn, t))
	}
	return strings.Join(clauses, " AND ")
}

// Name identifies the table and text column
func (c *Catalogue) Name() string {
	return "sqlite:" + c.cfg.Table + "." + c.cfg.TextColumn
}

func (c *Catalogue) Bounds(ctx context.Context) (pipeline.Range, error) {
	var lo, hi sql.NullInt64
	if err := c.db.QueryRowContext(ctx, c.boundsQuery).Scan(&lo, &hi); err != nil {
		return pipeline.Range{}, errors.Wrapf(err, "query bounds of %s", c.cfg.Table)
	}
	if !lo.Valid || !hi.Valid {
		return pipeline.Range{}, errors.NewNotFoundError("table %s has no measurement text", c.cfg.Table)
	}
	return pipeline.Range{Min: lo.Int64, Max: hi.Int64}, nil
}

func (c *Catalogue) Page(ctx context.Context, r pipeline.Range, after int64, limit int) ([]types.Record, error) {
	rows, err := c.db.QueryContext(ctx, c.pageQuery, after, r.Min, r.Max, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s after id %d", c.cfg.Table, after)
	}
	defer rows.Close()

	var recs []types.Record
	for rows.Next() {
		var rec types.Record
		if err := rows.Scan(&rec.ID, &rec.Text); err != nil {
			return nil, errors.Wrap(err, "scan record")
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate records")
	}
	return recs, nil
}

// CatalogueStats summarises the table for `measure db stats`
type CatalogueStats struct {
	Table    string `json:"table"`
	Total    int64  `json:"total"`
	WithText int64  `json:"with_text"`
	Excluded int64  `json:"excluded"`
	MinID    int64  `json:"min_id"`
	MaxID    int64  `json:"max_id"`
}

// Stats counts all rows and the rows a run would read
func (c *Catalogue) Stats(ctx context.Context) (CatalogueStats, error) {
	s := CatalogueStats{Table: c.cfg.Table}
	query := fmt.Sprintf("SELECT COUNT(*), COALESCE(SUM(CASE WHEN %s IS NOT NULL AND TRIM(%s) <> '' THEN 1 ELSE 0 END), 0) FROM %s",
		c.cfg.TextColumn, c.cfg.TextColumn, c.cfg.Table)
	if err := c.db.QueryRowContext(ctx, query).Scan(&s.Total, &s.WithText); err != nil {
		return s, errors.Wrapf(err, "count %s", c.cfg.Table)
	}

	var readable int64
	query = fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", c.cfg.Table, c.cfg.filter())
	if err := c.db.QueryRowContext(ctx, query).Scan(&readable); err != nil {
		return s, errors.Wrapf(err, "count readable rows of %s", c.cfg.Table)
	}
	s.Excluded = s.WithText - readable

	bounds, err := c.Bounds(ctx)
	switch {
	case errors.IsNotFoundError(err):
	case err != nil:
		return s, err
	default:
		s.MinID, s.MaxID = bounds.Min, bounds.Max
	}
	return s, nil
}
