package storage

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/pipeline"
	"github.com/teranos/measure/types"
)

// ReadRecords reads (id, text) rows. A first row whose id column is not an
// integer is taken as a header and skipped.
func ReadRecords(r io.Reader) ([]types.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2

	var recs []types.Record
	for line := 1; ; line++ {
		fields, err := reader.Read()
		if err == io.EOF {
			return recs, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read line %d", line)
		}

		id, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, errors.Wrapf(errors.ErrInvalidRequest, "line %d: id %q is not an integer", line, fields[0])
		}
		recs = append(recs, types.Record{ID: id, Text: fields[1]})
	}
}

// CSVSource is a pipeline.Source over an (id, text) CSV export, read into
// memory once
type CSVSource struct {
	*pipeline.MemorySource
	path string
}

// OpenCSVSource loads path
func OpenCSVSource(path string) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	recs, err := ReadRecords(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	name := "csv:" + path
	return &CSVSource{MemorySource: pipeline.NewMemorySource(name, recs), path: path}, nil
}

// Path returns the file the records were loaded from
func (s *CSVSource) Path() string {
	return s.path
}

// Import loads (id, text) rows into the catalogue table, replacing rows with
// the same id. Empty text is stored as NULL.
func Import(ctx context.Context, db *sql.DB, cfg CatalogueConfig, r io.Reader) (int, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	recs, err := ReadRecords(r)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin import")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT OR REPLACE INTO %s (%s, %s) VALUES (?, ?)",
		cfg.Table, cfg.IDColumn, cfg.TextColumn))
	if err != nil {
		return 0, errors.Wrapf(err, "prepare insert into %s", cfg.Table)
	}
	defer stmt.Close()

	for _, rec := range recs {
		var text interface{}
		if strings.TrimSpace(rec.Text) != "" {
			text = rec.Text
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, text); err != nil {
			return 0, errors.Wrapf(err, "insert record %d", rec.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit import")
	}
	return len(recs), nil
}
