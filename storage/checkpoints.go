package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/teranos/measure/db"
	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/pipeline"
)

// Checkpoints is a pipeline.CheckpointStore over the runs and pages tables
type Checkpoints struct {
	db *sql.DB
}

// NewCheckpoints creates a checkpoint store on a migrated database
func NewCheckpoints(db *sql.DB) *Checkpoints {
	return &Checkpoints{db: db}
}

func (c *Checkpoints) Begin(ctx context.Context, info pipeline.RunInfo) (pipeline.RunInfo, error) {
	stored, err := c.Run(ctx, info.RunID)
	switch {
	case err == nil:
		if err := pipeline.CheckResume(stored, info); err != nil {
			return pipeline.RunInfo{}, err
		}
		if _, err := c.db.ExecContext(ctx,
			`UPDATE runs SET status = ?, finished_at = NULL WHERE run_id = ?`,
			pipeline.RunRunning, info.RunID); err != nil {
			return pipeline.RunInfo{}, errors.Wrapf(err, "reopen run %s", info.RunID)
		}
		stored.Status = pipeline.RunRunning
		return stored, nil
	case !errors.IsNotFoundError(err):
		return pipeline.RunInfo{}, err
	}

	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now().UTC()
	}
	info.Status = pipeline.RunRunning
	ranges, err := json.Marshal(info.Ranges)
	if err != nil {
		return pipeline.RunInfo{}, errors.Wrap(err, "encode worker ranges")
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, source, page_size, workers, ranges, output_dir, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		info.RunID, info.Source, info.PageSize, len(info.Ranges), string(ranges),
		info.Output, info.Status, info.StartedAt.Format(time.RFC3339))
	if err != nil {
		if db.IsConstraintViolation(err) {
			return pipeline.RunInfo{}, errors.Wrapf(errors.ErrCheckpointMismatch, "run %s was created concurrently", info.RunID)
		}
		return pipeline.RunInfo{}, errors.Wrapf(err, "create run %s", info.RunID)
	}
	return info, nil
}

// Run loads a stored run
func (c *Checkpoints) Run(ctx context.Context, runID string) (pipeline.RunInfo, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT run_id, source, page_size, ranges, output_dir, status, started_at
		FROM runs WHERE run_id = ?`, runID)
	info, err := scanRun(row)
	if err == sql.ErrNoRows {
		return pipeline.RunInfo{}, errors.NewNotFoundError("run %s", runID)
	}
	return info, err
}

// Runs lists stored runs, newest first
func (c *Checkpoints) Runs(ctx context.Context) ([]pipeline.RunInfo, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT run_id, source, page_size, ranges, output_dir, status, started_at
		FROM runs ORDER BY started_at DESC, run_id`)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer rows.Close()

	var runs []pipeline.RunInfo
	for rows.Next() {
		info, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate runs")
	}
	return runs, nil
}

// Latest returns the newest run over source; ok is false when there is none
func (c *Checkpoints) Latest(ctx context.Context, source string) (pipeline.RunInfo, bool, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT run_id, source, page_size, ranges, output_dir, status, started_at
		FROM runs WHERE source = ? ORDER BY started_at DESC, rowid DESC LIMIT 1`, source)
	info, err := scanRun(row)
	if err == sql.ErrNoRows {
		return pipeline.RunInfo{}, false, nil
	}
	if err != nil {
		return pipeline.RunInfo{}, false, err
	}
	return info, true, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (pipeline.RunInfo, error) {
	var info pipeline.RunInfo
	var ranges, status, startedAt string
	if err := s.Scan(&info.RunID, &info.Source, &info.PageSize, &ranges, &info.Output, &status, &startedAt); err != nil {
		if err == sql.ErrNoRows {
			return info, err
		}
		return info, errors.Wrap(err, "scan run")
	}
	info.Status = pipeline.RunStatus(status)
	if err := json.Unmarshal([]byte(ranges), &info.Ranges); err != nil {
		return info, errors.Wrapf(err, "decode worker ranges of run %s", info.RunID)
	}
	t, err := time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return info, errors.Wrapf(err, "parse started_at of run %s", info.RunID)
	}
	info.StartedAt = t
	return info, nil
}

func (c *Checkpoints) Last(ctx context.Context, runID, worker string) (pipeline.PageRecord, bool, error) {
	var p pipeline.PageRecord
	err := c.db.QueryRowContext(ctx, `
		SELECT run_id, worker, page, first_id, last_id, records, rows, file
		FROM pages WHERE run_id = ? AND worker = ?
		ORDER BY page DESC LIMIT 1`, runID, worker).
		Scan(&p.RunID, &p.Worker, &p.Page, &p.FirstID, &p.LastID, &p.Records, &p.Rows, &p.File)
	if err == nil {
		return p, true, nil
	}
	if err != sql.ErrNoRows {
		return p, false, errors.Wrapf(err, "load checkpoint of %s/%s", runID, worker)
	}
	if _, err := c.Run(ctx, runID); err != nil {
		return p, false, err
	}
	return p, false, nil
}

// Pages lists a run's committed pages in worker and page order
func (c *Checkpoints) Pages(ctx context.Context, runID string) ([]pipeline.PageRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT run_id, worker, page, first_id, last_id, records, rows, file
		FROM pages WHERE run_id = ? ORDER BY worker, page`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "query pages of %s", runID)
	}
	defer rows.Close()

	var pages []pipeline.PageRecord
	for rows.Next() {
		var p pipeline.PageRecord
		if err := rows.Scan(&p.RunID, &p.Worker, &p.Page, &p.FirstID, &p.LastID, &p.Records, &p.Rows, &p.File); err != nil {
			return nil, errors.Wrap(err, "scan page")
		}
		pages = append(pages, p)
	}
	return pages, errors.Wrap(rows.Err(), "iterate pages")
}

func (c *Checkpoints) Commit(ctx context.Context, p pipeline.PageRecord) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO pages (run_id, worker, page, first_id, last_id, records, rows, file, written_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.RunID, p.Worker, p.Page, p.FirstID, p.LastID, p.Records, p.Rows, p.File,
		time.Now().UTC().Format(time.RFC3339))
	if err == nil {
		return nil
	}
	if db.IsConstraintViolation(err) {
		return errors.Wrapf(errors.ErrPageExists, "page %s of run %s", pipeline.PageName(p.Worker, p.Page), p.RunID)
	}
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey {
		return errors.NewNotFoundError("run %s", p.RunID)
	}
	return errors.Wrapf(err, "commit page %d of %s/%s", p.Page, p.RunID, p.Worker)
}

func (c *Checkpoints) Finish(ctx context.Context, runID string, status pipeline.RunStatus) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE run_id = ?`,
		status, time.Now().UTC().Format(time.RFC3339), runID)
	if err != nil {
		return errors.Wrapf(err, "finish run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "finish run %s", runID)
	}
	if n == 0 {
		return errors.NewNotFoundError("run %s", runID)
	}
	return nil
}
