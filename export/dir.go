// Package export writes pipeline pages and reports as CSV files under a
// run directory:
//
//	<root>/pages/w00-0000.csv
//	<root>/failures.csv
//	<root>/anomalies.csv
//	<root>/newly_parsed.csv
//	<root>/run.json
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/logger"
	"github.com/teranos/measure/pipeline"
)

const (
	pagesDir  = "pages"
	csvSuffix = ".csv"
)

// RunDirName names a run directory by its start time, month first
func RunDirName(t time.Time) string {
	return t.Format("0102150405")
}

// Dir is a pipeline.Output on the local filesystem. Page files are created
// exclusively and never rewritten.
type Dir struct {
	root   string
	logger *zap.SugaredLogger
}

// Open creates root and its pages directory when missing
func Open(root string, l *zap.SugaredLogger) (*Dir, error) {
	if err := os.MkdirAll(filepath.Join(root, pagesDir), 0o755); err != nil {
		return nil, errors.Wrapf(err, "create output directory %s", root)
	}
	if l == nil {
		l = logger.ComponentLogger("export")
	}
	return &Dir{root: root, logger: l}, nil
}

// Location returns the run directory
func (d *Dir) Location() string {
	return d.root
}

// ReportPath returns the file a report is written to
func (d *Dir) ReportPath(kind pipeline.ReportKind) string {
	return filepath.Join(d.root, string(kind)+csvSuffix)
}

func (d *Dir) WritePage(ctx context.Context, page pipeline.Page) (string, error) {
	name := filepath.Join(pagesDir, pipeline.PageName(page.Worker, page.Number)+csvSuffix)
	path := filepath.Join(d.root, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return "", errors.Wrapf(errors.ErrPageExists, "%s", path)
		}
		return "", errors.Wrapf(err, "create %s", path)
	}

	if err := writeRows(f, page.Rows, pipeline.MaxDimensions(page.Rows)); err != nil {
		f.Close()
		os.Remove(path)
		return "", errors.Wrapf(err, "write %s", path)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return "", errors.Wrapf(err, "sync %s", path)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", errors.Wrapf(err, "close %s", path)
	}
	return name, nil
}

func (d *Dir) ListPages(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(d.root, pagesDir))
	if err != nil {
		return nil, errors.Wrapf(err, "list pages of %s", d.root)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), csvSuffix) {
			continue
		}
		names = append(names, filepath.Join(pagesDir, e.Name()))
	}
	sort.Strings(names)
	return names, nil
}

func (d *Dir) ReadPage(ctx context.Context, name string) ([]pipeline.Row, error) {
	f, err := os.Open(filepath.Join(d.root, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("page %s", name)
		}
		return nil, errors.Wrapf(err, "open page %s", name)
	}
	defer f.Close()
	return readRows(f)
}

func (d *Dir) DiscardFrom(ctx context.Context, worker string, from int) (int, error) {
	names, err := d.ListPages(ctx)
	if err != nil {
		return 0, err
	}
	prefix := worker + "-"
	discarded := 0
	for _, name := range names {
		base := strings.TrimSuffix(filepath.Base(name), csvSuffix)
		if !strings.HasPrefix(base, prefix) {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(strings.TrimPrefix(base, prefix), "%d", &n); err != nil || n < from {
			continue
		}
		if err := os.Remove(filepath.Join(d.root, name)); err != nil {
			return discarded, errors.Wrapf(err, "discard %s", name)
		}
		discarded++
	}
	return discarded, nil
}

// WriteReport replaces the report file. Reports are derived from pages and
// may be regenerated.
func (d *Dir) WriteReport(ctx context.Context, report pipeline.Report) error {
	path := d.ReportPath(report.Kind)
	tmp, err := os.CreateTemp(d.root, "."+string(report.Kind)+"-*")
	if err != nil {
		return errors.Wrapf(err, "create temp file for %s", path)
	}
	defer os.Remove(tmp.Name())

	if err := writeRows(tmp, report.Rows, report.MaxDimensions); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "rename into %s", path)
	}

	logger.PageInfow(d.logger, "Report written",
		logger.FieldFile, path,
		logger.FieldCount, len(report.Rows))
	return nil
}

// ReadReport reads back a written report
func (d *Dir) ReadReport(kind pipeline.ReportKind) ([]pipeline.Row, error) {
	f, err := os.Open(d.ReportPath(kind))
	if err != nil {
		return nil, errors.Wrapf(err, "open %s report", kind)
	}
	defer f.Close()
	return readRows(f)
}

func writeRows(w io.Writer, rows []pipeline.Row, maxDims int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(pipeline.Header(maxDims)); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, row := range rows {
		if err := cw.Write(row.Values(maxDims)); err != nil {
			return errors.Wrapf(err, "write row for record %d", row.ID)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush")
}

func readRows(r io.Reader) ([]pipeline.Row, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	return pipeline.DecodeRows(records)
}
