package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/types"
)

// Row is one flattened output line: a single facet volume of a parsed
// record, or the single line of a failed record
type Row struct {
	ID                int64
	RawText           string
	FailureReason     *string
	InconsistentUnits bool
	TooManyDimensions bool
	TypeLabel         *string
	TypeLabelExtra    *string
	Units             []types.Unit
	Outcome           types.OutcomeKind
	Variant           types.VariantName
	Dimensions        []types.Dimension
}

// Failed reports whether the row belongs to a failed record
func (r Row) Failed() bool {
	return r.Outcome == types.Failed || r.FailureReason != nil
}

// Anomalous reports whether the row belongs to an anomalous record. Every
// row of such a record qualifies, flagged volume or not.
func (r Row) Anomalous() bool {
	return r.Outcome == types.Anomalous || r.InconsistentUnits || r.TooManyDimensions
}

// Flatten turns one resolved record into rows. Flag columns locate the facet
// or volume that raised them; Outcome is shared by every row of the record.
func Flatten(rec types.Record, out types.Outcome) []Row {
	if out.Kind == types.Failed {
		row := Row{ID: rec.ID, RawText: rec.Text, Outcome: out.Kind}
		if out.Failure != nil {
			row.FailureReason = types.StringPtr(out.Failure.String())
		} else {
			row.FailureReason = types.StringPtr("")
		}
		return []Row{row}
	}

	var rows []Row
	for fi, f := range out.Facets {
		var label, extra *string
		if f.TypeLabel != nil {
			first, rest := f.LabelWords()
			label = types.StringPtr(first)
			if rest != "" {
				extra = types.StringPtr(rest)
			}
		}
		for vi, v := range f.Volumes {
			rows = append(rows, Row{
				ID:                rec.ID,
				RawText:           rec.Text,
				InconsistentUnits: out.Anomalies.VolumeInconsistent(fi, vi),
				TooManyDimensions: out.Anomalies.FacetTooMany(fi),
				TypeLabel:         label,
				TypeLabelExtra:    extra,
				Units:             v.Units(),
				Outcome:           out.Kind,
				Variant:           out.Variant,
				Dimensions:        append([]types.Dimension(nil), v...),
			})
		}
	}
	return rows
}

// MaxDimensions returns the widest dimension list across rows
func MaxDimensions(rows []Row) int {
	max := 0
	for _, r := range rows {
		if len(r.Dimensions) > max {
			max = len(r.Dimensions)
		}
	}
	return max
}

// fixed columns, in output order
const (
	colID = iota
	colRawText
	colFailureReason
	colInconsistentUnits
	colTooManyDimensions
	colTypeLabel
	colTypeLabelExtra
	colUnits
	colOutcome
	colVariant
	fixedColumns
)

var fixedHeader = []string{
	"id", "raw_text", "failure_reason", "inconsistent_units",
	"too_many_dimensions", "type_label", "type_label_extra", "units",
	"outcome", "variant",
}

const unitSeparator = ", "

// Header returns the column names for rows with up to maxDims dimensions
func Header(maxDims int) []string {
	cols := append([]string(nil), fixedHeader...)
	for n := 1; n <= maxDims; n++ {
		cols = append(cols,
			fmt.Sprintf("Dimension%d Context", n),
			fmt.Sprintf("Dimension%d Value", n),
			fmt.Sprintf("Dimension%d Unit", n))
	}
	return cols
}

// Values renders the row as strings aligned with Header(maxDims).
// Missing optional cells are empty.
func (r Row) Values(maxDims int) []string {
	units := make([]string, len(r.Units))
	for i, u := range r.Units {
		units[i] = string(u)
	}

	vals := make([]string, fixedColumns, fixedColumns+3*maxDims)
	vals[colID] = strconv.FormatInt(r.ID, 10)
	vals[colRawText] = r.RawText
	vals[colFailureReason] = deref(r.FailureReason)
	vals[colInconsistentUnits] = strconv.FormatBool(r.InconsistentUnits)
	vals[colTooManyDimensions] = strconv.FormatBool(r.TooManyDimensions)
	vals[colTypeLabel] = deref(r.TypeLabel)
	vals[colTypeLabelExtra] = deref(r.TypeLabelExtra)
	vals[colUnits] = strings.Join(units, unitSeparator)
	vals[colOutcome] = string(r.Outcome)
	vals[colVariant] = string(r.Variant)

	for n := 0; n < maxDims; n++ {
		if n >= len(r.Dimensions) {
			vals = append(vals, "", "", "")
			continue
		}
		d := r.Dimensions[n]
		vals = append(vals, d.ContextText(), d.Value.Literal, d.UnitName())
	}
	return vals
}

// DecodeRows parses records written with Header and Values. The first
// record must be the header.
func DecodeRows(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, errors.New("missing header")
	}
	header := records[0]
	if len(header) < fixedColumns || (len(header)-fixedColumns)%3 != 0 {
		return nil, errors.Newf("unexpected header with %d columns", len(header))
	}
	for i, name := range fixedHeader {
		if header[i] != name {
			return nil, errors.Newf("unexpected column %q at %d, want %q", header[i], i, name)
		}
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := decodeRow(rec, len(header))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", i+2)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeRow(rec []string, width int) (Row, error) {
	if len(rec) != width {
		return Row{}, errors.Newf("got %d fields, want %d", len(rec), width)
	}

	id, err := strconv.ParseInt(rec[colID], 10, 64)
	if err != nil {
		return Row{}, errors.Wrap(err, "id")
	}
	inconsistent, err := strconv.ParseBool(rec[colInconsistentUnits])
	if err != nil {
		return Row{}, errors.Wrap(err, "inconsistent_units")
	}
	tooMany, err := strconv.ParseBool(rec[colTooManyDimensions])
	if err != nil {
		return Row{}, errors.Wrap(err, "too_many_dimensions")
	}

	row := Row{
		ID:                id,
		RawText:           rec[colRawText],
		FailureReason:     optional(rec[colFailureReason]),
		InconsistentUnits: inconsistent,
		TooManyDimensions: tooMany,
		TypeLabel:         optional(rec[colTypeLabel]),
		TypeLabelExtra:    optional(rec[colTypeLabelExtra]),
		Outcome:           types.OutcomeKind(rec[colOutcome]),
		Variant:           types.VariantName(rec[colVariant]),
	}
	if row.Outcome == types.Failed && row.FailureReason == nil {
		row.FailureReason = types.StringPtr("")
	}

	if rec[colUnits] != "" {
		for _, name := range strings.Split(rec[colUnits], unitSeparator) {
			u, err := types.ParseUnit(name)
			if err != nil {
				return Row{}, errors.Wrap(err, "units")
			}
			row.Units = append(row.Units, u)
		}
	}

	for n := fixedColumns; n+2 < width; n += 3 {
		context, literal, unit := rec[n], rec[n+1], rec[n+2]
		if literal == "" {
			break
		}
		value, err := types.ParseNumeric(literal)
		if err != nil {
			return Row{}, errors.Wrapf(err, "dimension %d", (n-fixedColumns)/3+1)
		}
		d := types.Dimension{Value: value, Context: optional(context)}
		if unit != "" {
			u, err := types.ParseUnit(unit)
			if err != nil {
				return Row{}, errors.Wrapf(err, "dimension %d unit", (n-fixedColumns)/3+1)
			}
			d.Unit = u.Ptr()
		}
		row.Dimensions = append(row.Dimensions, d)
	}
	return row, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
