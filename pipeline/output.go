package pipeline

import "context"

// Page is one durably written unit of flattened rows
type Page struct {
	RunID   string
	Worker  string
	Number  int
	FirstID int64
	LastID  int64
	Records int // records read from the source, including skipped ones
	Rows    []Row
}

// ReportKind names one of the three partitioned reports
type ReportKind string

const (
	ReportFailures    ReportKind = "failures"
	ReportAnomalies   ReportKind = "anomalies"
	ReportNewlyParsed ReportKind = "newly_parsed"
)

// ReportKinds lists the reports in write order
var ReportKinds = []ReportKind{ReportFailures, ReportAnomalies, ReportNewlyParsed}

// Report is one partition of the run's rows
type Report struct {
	Kind          ReportKind
	Rows          []Row
	MaxDimensions int
}

// Sink persists pages. A page may be written once; a second write of the
// same worker and number fails with errors.ErrPageExists.
type Sink interface {
	WritePage(ctx context.Context, page Page) (string, error)
}

// PageReader reads back written pages by the name WritePage returned
type PageReader interface {
	ListPages(ctx context.Context) ([]string, error)
	ReadPage(ctx context.Context, name string) ([]Row, error)
}

// ReportWriter persists partitioned reports
type ReportWriter interface {
	WriteReport(ctx context.Context, report Report) error
}

// Output is a sink that can also be partitioned afterwards
type Output interface {
	Sink
	PageReader
	ReportWriter
	// DiscardFrom removes the worker's pages numbered from and above. Those
	// were written but never checkpointed.
	DiscardFrom(ctx context.Context, worker string, from int) (int, error)
	// Location describes where output goes, for manifests and logs
	Location() string
}
