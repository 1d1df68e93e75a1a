package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/types"
)

// MemorySource serves records from a slice. Used for dry runs and tests.
type MemorySource struct {
	name    string
	records []types.Record
}

// NewMemorySource sorts records by id and drops empty text
func NewMemorySource(name string, records []types.Record) *MemorySource {
	kept := make([]types.Record, 0, len(records))
	for _, r := range records {
		if strings.TrimSpace(r.Text) != "" {
			kept = append(kept, r)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].ID < kept[j].ID })
	return &MemorySource{name: name, records: kept}
}

func (s *MemorySource) Name() string { return s.name }

func (s *MemorySource) Bounds(ctx context.Context) (Range, error) {
	if len(s.records) == 0 {
		return Range{}, errors.NewNotFoundError("source %s has no records", s.name)
	}
	return Range{Min: s.records[0].ID, Max: s.records[len(s.records)-1].ID}, nil
}

func (s *MemorySource) Page(ctx context.Context, r Range, after int64, limit int) ([]types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := sort.Search(len(s.records), func(i int) bool { return s.records[i].ID > after })
	var page []types.Record
	for _, rec := range s.records[start:] {
		if len(page) == limit {
			break
		}
		if rec.ID > r.Max {
			break
		}
		if r.Contains(rec.ID) {
			page = append(page, rec)
		}
	}
	return page, nil
}

// MemoryOutput keeps pages and reports in memory
type MemoryOutput struct {
	mu      sync.Mutex
	pages   map[string][]Row
	reports map[ReportKind]Report
}

func NewMemoryOutput() *MemoryOutput {
	return &MemoryOutput{pages: map[string][]Row{}, reports: map[ReportKind]Report{}}
}

// PageName is the stable name of a worker's page
func PageName(worker string, number int) string {
	return fmt.Sprintf("%s-%04d", worker, number)
}

func (o *MemoryOutput) WritePage(ctx context.Context, page Page) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	name := PageName(page.Worker, page.Number)
	if _, ok := o.pages[name]; ok {
		return "", errors.Wrapf(errors.ErrPageExists, "page %s", name)
	}
	o.pages[name] = append([]Row(nil), page.Rows...)
	return name, nil
}

func (o *MemoryOutput) DiscardFrom(ctx context.Context, worker string, from int) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	prefix := worker + "-"
	discarded := 0
	for name := range o.pages {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(strings.TrimPrefix(name, prefix), "%d", &n); err == nil && n >= from {
			delete(o.pages, name)
			discarded++
		}
	}
	return discarded, nil
}

func (o *MemoryOutput) ListPages(ctx context.Context) ([]string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	names := make([]string, 0, len(o.pages))
	for name := range o.pages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (o *MemoryOutput) ReadPage(ctx context.Context, name string) ([]Row, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	rows, ok := o.pages[name]
	if !ok {
		return nil, errors.NewNotFoundError("page %s", name)
	}
	return append([]Row(nil), rows...), nil
}

func (o *MemoryOutput) WriteReport(ctx context.Context, report Report) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reports[report.Kind] = report
	return nil
}

// Report returns a written report
func (o *MemoryOutput) Report(kind ReportKind) (Report, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.reports[kind]
	return r, ok
}

func (o *MemoryOutput) Location() string { return "memory" }

// MemoryCheckpoints is a CheckpointStore that lives for one process
type MemoryCheckpoints struct {
	mu    sync.Mutex
	runs  map[string]RunInfo
	pages map[string]map[string]PageRecord // run -> worker -> last page
}

func NewMemoryCheckpoints() *MemoryCheckpoints {
	return &MemoryCheckpoints{runs: map[string]RunInfo{}, pages: map[string]map[string]PageRecord{}}
}

func (m *MemoryCheckpoints) Begin(ctx context.Context, info RunInfo) (RunInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored, ok := m.runs[info.RunID]; ok {
		if err := CheckResume(stored, info); err != nil {
			return RunInfo{}, err
		}
		stored.Status = RunRunning
		m.runs[info.RunID] = stored
		return stored, nil
	}
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now().UTC()
	}
	info.Status = RunRunning
	m.runs[info.RunID] = info
	m.pages[info.RunID] = map[string]PageRecord{}
	return info, nil
}

func (m *MemoryCheckpoints) Last(ctx context.Context, runID, worker string) (PageRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pages, ok := m.pages[runID]
	if !ok {
		return PageRecord{}, false, errors.NewNotFoundError("run %s", runID)
	}
	p, ok := pages[worker]
	return p, ok, nil
}

func (m *MemoryCheckpoints) Commit(ctx context.Context, page PageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pages, ok := m.pages[page.RunID]
	if !ok {
		return errors.NewNotFoundError("run %s", page.RunID)
	}
	if last, ok := pages[page.Worker]; ok && page.Page <= last.Page {
		return errors.Wrapf(errors.ErrPageExists, "page %s", PageName(page.Worker, page.Page))
	}
	pages[page.Worker] = page
	return nil
}

func (m *MemoryCheckpoints) Finish(ctx context.Context, runID string, status RunStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.runs[runID]
	if !ok {
		return errors.NewNotFoundError("run %s", runID)
	}
	info.Status = status
	m.runs[runID] = info
	return nil
}

// Run returns the stored info of a run
func (m *MemoryCheckpoints) Run(runID string) (RunInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.runs[runID]
	return info, ok
}
