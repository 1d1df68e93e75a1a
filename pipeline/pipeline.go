// Package pipeline runs the cascade over a record source in pages, writing
// each page once and checkpointing after every write, then partitions the
// written rows into failure, anomaly and clean reports.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/logger"
	"github.com/teranos/measure/parser"
	"github.com/teranos/measure/types"
)

// DefaultPageSize matches the catalogue batch size used for manual review
const DefaultPageSize = 200

// Config holds the per-run settings
type Config struct {
	RunID             string
	PageSize          int
	Workers           int
	MaxPagesPerSecond float64 // 0 means unlimited
}

// Validate checks the settings and fills defaults
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RunID) == "" {
		return errors.NewInvalidRequestError("run id is required")
	}
	if c.PageSize <= 0 {
		return errors.NewInvalidRequestError("page size must be > 0, got %d", c.PageSize)
	}
	if c.Workers < 0 {
		return errors.NewInvalidRequestError("workers must be >= 0, got %d", c.Workers)
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
	if c.MaxPagesPerSecond < 0 {
		return errors.NewInvalidRequestError("max pages per second must be >= 0, got %v", c.MaxPagesPerSecond)
	}
	return nil
}

// Counts tallies records and rows
type Counts struct {
	Pages     int `json:"pages"`
	Records   int `json:"records"`
	Empty     int `json:"empty"`
	Skipped   int `json:"skipped"`
	Parsed    int `json:"parsed"`
	Anomalous int `json:"anomalous"`
	Failed    int `json:"failed"`
	Rows      int `json:"rows"`
}

// Add accumulates o into c
func (c *Counts) Add(o Counts) {
	c.Pages += o.Pages
	c.Records += o.Records
	c.Empty += o.Empty
	c.Skipped += o.Skipped
	c.Parsed += o.Parsed
	c.Anomalous += o.Anomalous
	c.Failed += o.Failed
	c.Rows += o.Rows
}

// WorkerSummary reports one worker's share of a run
type WorkerSummary struct {
	Worker  string `json:"worker"`
	Range   Range  `json:"range"`
	Resumed bool   `json:"resumed"`
	LastID  int64  `json:"last_id"`
	Counts
}

// Summary reports a finished run. Counts cover this invocation only; pages
// written before a resume are not recounted.
type Summary struct {
	RunID     string           `json:"run_id"`
	Source    string           `json:"source"`
	Output    string           `json:"output"`
	Workers   []WorkerSummary  `json:"workers"`
	Totals    Counts           `json:"totals"`
	Partition PartitionSummary `json:"partition"`
	Duration  time.Duration    `json:"duration"`
}

// PageResult is reported after each committed page
type PageResult struct {
	Worker string
	Page   int
	File   string
	LastID int64
	Counts Counts
}

// Pipeline drives one run
type Pipeline struct {
	source      Source
	output      Output
	checkpoints CheckpointStore
	resolver    *parser.Resolver
	cfg         Config
	limiter     *rate.Limiter
	progress    func(PageResult)
	logger      *zap.SugaredLogger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the pipeline logger
func WithLogger(l *zap.SugaredLogger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithProgress registers a callback invoked after every committed page.
// It is called from worker goroutines.
func WithProgress(fn func(PageResult)) Option {
	return func(p *Pipeline) {
		p.progress = fn
	}
}

// New validates cfg and wires a pipeline
func New(source Source, output Output, checkpoints CheckpointStore, resolver *parser.Resolver, cfg Config, opts ...Option) (*Pipeline, error) {
	if source == nil || output == nil || checkpoints == nil || resolver == nil {
		return nil, errors.NewInvalidRequestError("pipeline needs a source, output, checkpoint store and resolver")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		source:      source,
		output:      output,
		checkpoints: checkpoints,
		resolver:    resolver,
		cfg:         cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.ComponentLogger("pipeline")
	}
	if cfg.MaxPagesPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.MaxPagesPerSecond), 1)
	}
	return p, nil
}

// Run processes every remaining page, then partitions all written pages.
// A run id that already has checkpoints resumes after each worker's last
// committed page.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	ctx = logger.WithRunID(ctx, p.cfg.RunID)
	summary := Summary{RunID: p.cfg.RunID, Source: p.source.Name(), Output: p.output.Location()}

	ranges, err := p.assign(ctx)
	if err != nil {
		return summary, err
	}
	info, err := p.checkpoints.Begin(ctx, RunInfo{
		RunID:    p.cfg.RunID,
		Source:   p.source.Name(),
		PageSize: p.cfg.PageSize,
		Output:   p.output.Location(),
		Ranges:   ranges,
	})
	if err != nil {
		return summary, errors.Wrapf(err, "begin run %s", p.cfg.RunID)
	}
	if len(info.Ranges) == 0 {
		info.Ranges = ranges
	}
	if len(info.Ranges) != len(ranges) {
		p.logger.Warnw("Resuming with the worker ranges of the original run",
			logger.FieldRunID, p.cfg.RunID,
			logger.FieldCount, len(info.Ranges))
	}

	summary.Workers = make([]WorkerSummary, len(info.Ranges))
	g, gctx := errgroup.WithContext(ctx)
	for i, wr := range info.Ranges {
		g.Go(func() error {
			ws, err := p.work(logger.WithWorker(gctx, wr.Worker), wr)
			summary.Workers[i] = ws
			if err != nil {
				return errors.Wrapf(err, "worker %s", wr.Worker)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.finish(ctx, RunFailed)
		p.total(&summary, start)
		return summary, err
	}

	part, err := Partition(ctx, p.output, p.output)
	summary.Partition = part
	if err != nil {
		p.finish(ctx, RunFailed)
		p.total(&summary, start)
		return summary, errors.Wrap(err, "partition")
	}
	if err := p.checkpoints.Finish(ctx, p.cfg.RunID, RunCompleted); err != nil {
		return summary, errors.Wrapf(err, "finish run %s", p.cfg.RunID)
	}
	p.total(&summary, start)

	p.logger.Infow("Run completed",
		logger.FieldRunID, p.cfg.RunID,
		logger.FieldCount, summary.Totals.Records,
		logger.FieldDurationMS, summary.Duration.Milliseconds())
	return summary, nil
}

func (p *Pipeline) total(s *Summary, start time.Time) {
	s.Totals = Counts{}
	for _, w := range s.Workers {
		s.Totals.Add(w.Counts)
	}
	s.Duration = time.Since(start)
}

// finish marks the run failed even when ctx was cancelled
func (p *Pipeline) finish(ctx context.Context, status RunStatus) {
	if err := p.checkpoints.Finish(context.WithoutCancel(ctx), p.cfg.RunID, status); err != nil {
		p.logger.Errorw("Failed to record run status",
			logger.FieldRunID, p.cfg.RunID,
			logger.FieldError, err.Error())
	}
}

// assign splits the source's id bounds between workers
func (p *Pipeline) assign(ctx context.Context) ([]WorkerRange, error) {
	ranges := []Range{AllIDs}
	if p.cfg.Workers > 1 {
		bounds, err := p.source.Bounds(ctx)
		switch {
		case errors.IsNotFoundError(err):
		case err != nil:
			return nil, errors.Wrapf(err, "bounds of %s", p.source.Name())
		default:
			ranges = Split(bounds, p.cfg.Workers)
		}
	}

	assigned := make([]WorkerRange, len(ranges))
	for i, r := range ranges {
		assigned[i] = WorkerRange{Worker: fmt.Sprintf("w%02d", i), Range: r}
	}
	return assigned, nil
}

// work pages through one worker's range until the source runs dry
func (p *Pipeline) work(ctx context.Context, wr WorkerRange) (WorkerSummary, error) {
	ws := WorkerSummary{Worker: wr.Worker, Range: wr.Range}
	log := logger.LoggerFromContext(ctx, p.logger)

	after := int64(math.MinInt64)
	next := 0
	last, ok, err := p.checkpoints.Last(ctx, p.cfg.RunID, wr.Worker)
	if err != nil {
		return ws, errors.Wrap(err, "load checkpoint")
	}
	if ok {
		after, next = last.LastID, last.Page+1
		ws.Resumed = true
		ws.LastID = last.LastID
		log.Infow("Resuming after checkpoint",
			logger.FieldPage, last.Page,
			logger.FieldLastID, last.LastID)
	}

	discarded, err := p.output.DiscardFrom(ctx, wr.Worker, next)
	if err != nil {
		return ws, errors.Wrap(err, "discard uncommitted pages")
	}
	if discarded > 0 {
		log.Warnw("Discarded pages written after the last checkpoint",
			logger.FieldPage, next,
			logger.FieldCount, discarded)
	}

	for {
		if err := ctx.Err(); err != nil {
			return ws, err
		}
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return ws, err
			}
		}

		recs, err := p.source.Page(ctx, wr.Range, after, p.cfg.PageSize)
		if err != nil {
			return ws, errors.Wrapf(err, "fetch page %d", next)
		}
		if len(recs) == 0 {
			return ws, nil
		}

		page, counts := p.resolvePage(wr.Worker, next, recs)
		name, err := p.output.WritePage(ctx, page)
		if err != nil {
			return ws, errors.Wrapf(err, "write page %s", PageName(wr.Worker, next))
		}
		if err := p.checkpoints.Commit(ctx, PageRecord{
			RunID:   p.cfg.RunID,
			Worker:  wr.Worker,
			Page:    next,
			FirstID: page.FirstID,
			LastID:  page.LastID,
			Records: page.Records,
			Rows:    len(page.Rows),
			File:    name,
		}); err != nil {
			return ws, errors.Wrapf(err, "commit page %s", name)
		}

		ws.Counts.Add(counts)
		ws.LastID = page.LastID
		logger.PageInfow(log, "Page written",
			logger.FieldPage, next,
			logger.FieldCount, counts.Records,
			logger.FieldLastID, page.LastID,
			logger.FieldFile, name)
		if p.progress != nil {
			p.progress(PageResult{Worker: wr.Worker, Page: next, File: name, LastID: page.LastID, Counts: counts})
		}

		after = page.LastID
		next++
		if len(recs) < p.cfg.PageSize {
			return ws, nil
		}
	}
}

// resolvePage runs the cascade over one page of records
func (p *Pipeline) resolvePage(worker string, number int, recs []types.Record) (Page, Counts) {
	page := Page{
		RunID:   p.cfg.RunID,
		Worker:  worker,
		Number:  number,
		FirstID: recs[0].ID,
		LastID:  recs[len(recs)-1].ID,
		Records: len(recs),
	}
	counts := Counts{Pages: 1, Records: len(recs)}

	for _, rec := range recs {
		if strings.TrimSpace(rec.Text) == "" {
			counts.Empty++
			continue
		}
		out, ok := p.resolver.Resolve(rec)
		if !ok {
			counts.Skipped++
			continue
		}
		switch out.Kind {
		case types.Parsed:
			counts.Parsed++
		case types.Anomalous:
			counts.Anomalous++
		case types.Failed:
			counts.Failed++
		}
		page.Rows = append(page.Rows, Flatten(rec, out)...)
	}
	counts.Rows = len(page.Rows)
	return page, counts
}
