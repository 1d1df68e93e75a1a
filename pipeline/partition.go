package pipeline

import (
	"context"
	"sort"

	"github.com/teranos/measure/errors"
)

// PartitionSummary counts rows per report
type PartitionSummary struct {
	Pages         int                `json:"pages"`
	MaxDimensions int                `json:"max_dimensions"`
	Rows          map[ReportKind]int `json:"rows"`
}

// Partition reads every written page and writes three disjoint reports by
// record outcome: failed, anomalous and cleanly parsed. All rows of a record
// land in the same report.
// Rows are ordered by id, then by their position within the record. Nothing
// is re-parsed.
func Partition(ctx context.Context, reader PageReader, writer ReportWriter) (PartitionSummary, error) {
	names, err := reader.ListPages(ctx)
	if err != nil {
		return PartitionSummary{}, errors.Wrap(err, "list pages")
	}
	sort.Strings(names)

	var all []Row
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return PartitionSummary{}, err
		}
		rows, err := reader.ReadPage(ctx, name)
		if err != nil {
			return PartitionSummary{}, errors.Wrapf(err, "read page %s", name)
		}
		all = append(all, rows...)
	}
	// stable keeps the volume order of a record's rows
	sort.SliceStable(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	reports := map[ReportKind]*Report{}
	maxDims := MaxDimensions(all)
	for _, kind := range ReportKinds {
		reports[kind] = &Report{Kind: kind, MaxDimensions: maxDims}
	}
	for _, row := range all {
		kind := classify(row)
		reports[kind].Rows = append(reports[kind].Rows, row)
	}

	summary := PartitionSummary{Pages: len(names), MaxDimensions: maxDims, Rows: map[ReportKind]int{}}
	for _, kind := range ReportKinds {
		if err := writer.WriteReport(ctx, *reports[kind]); err != nil {
			return summary, errors.Wrapf(err, "write %s report", kind)
		}
		summary.Rows[kind] = len(reports[kind].Rows)
	}
	return summary, nil
}

func classify(row Row) ReportKind {
	switch {
	case row.Failed():
		return ReportFailures
	case row.Anomalous():
		return ReportAnomalies
	default:
		return ReportNewlyParsed
	}
}
