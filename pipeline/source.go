package pipeline

import (
	"context"
	"math"

	"github.com/teranos/measure/types"
)

// Range is an inclusive span of record ids
type Range struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// AllIDs covers every record id
var AllIDs = Range{Min: math.MinInt64, Max: math.MaxInt64}

// Contains reports whether id falls inside the range
func (r Range) Contains(id int64) bool {
	return id >= r.Min && id <= r.Max
}

// Source yields records in ascending id order. Implementations exclude
// records with NULL or empty text and never write back.
type Source interface {
	// Name identifies the source in run manifests and checkpoints
	Name() string
	// Bounds returns the smallest and largest id with text.
	// Returns errors.ErrNotFound when the source is empty.
	Bounds(ctx context.Context) (Range, error)
	// Page returns up to limit records with id > after inside r
	Page(ctx context.Context, r Range, after int64, limit int) ([]types.Record, error)
}

// Split divides bounds into n disjoint ranges of near-equal id span. The
// first range starts at math.MinInt64 and the last ends at math.MaxInt64 so
// records added outside the original bounds still belong to a worker.
func Split(bounds Range, n int) []Range {
	if n <= 1 || bounds.Max <= bounds.Min {
		return []Range{AllIDs}
	}

	span := uint64(bounds.Max-bounds.Min) + 1
	chunk := span / uint64(n)
	if span%uint64(n) != 0 {
		chunk++
	}

	var ranges []Range
	for start := uint64(0); start < span; start += chunk {
		end := start + chunk - 1
		if end >= span {
			end = span - 1
		}
		ranges = append(ranges, Range{
			Min: bounds.Min + int64(start),
			Max: bounds.Min + int64(end),
		})
	}
	ranges[0].Min = math.MinInt64
	ranges[len(ranges)-1].Max = math.MaxInt64
	return ranges
}
