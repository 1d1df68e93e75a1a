package types

import (
	"fmt"
	"strings"
)

// VariantName identifies one of the top-level record grammars
type VariantName string

const (
	VariantMimsy     VariantName = "mimsy"
	VariantDieAxis   VariantName = "diexis"
	VariantDeerfield VariantName = "historic-deerfield"
)

// OutcomeKind tags a ParseOutcome
type OutcomeKind string

const (
	Parsed    OutcomeKind = "parsed"
	Anomalous OutcomeKind = "anomalous"
	Failed    OutcomeKind = "failed"
)

// AnomalyReason names a suspicious-shape heuristic
type AnomalyReason string

const (
	ReasonTooManyDimensions AnomalyReason = "too_many_dimensions"
	ReasonInconsistentUnits AnomalyReason = "inconsistent_units"
)

// AnomalyFlag locates one flagged facet or volume. Volume is -1 for
// facet-level flags.
type AnomalyFlag struct {
	Reason AnomalyReason `json:"reason"`
	Facet  int           `json:"facet"`
	Volume int           `json:"volume"`
	Detail string        `json:"detail,omitempty"`
}

// AnomalyReasons is the union of flags raised for a record
type AnomalyReasons struct {
	TooManyDimensions bool          `json:"too_many_dimensions"`
	InconsistentUnits bool          `json:"inconsistent_units"`
	Flags             []AnomalyFlag `json:"flags,omitempty"`
}

// Any reports whether at least one reason is set
func (a AnomalyReasons) Any() bool {
	return a.TooManyDimensions || a.InconsistentUnits
}

// FacetTooMany reports whether facet i was flagged for too many dimensions
func (a AnomalyReasons) FacetTooMany(i int) bool {
	for _, f := range a.Flags {
		if f.Reason == ReasonTooManyDimensions && f.Facet == i {
			return true
		}
	}
	return false
}

// VolumeInconsistent reports whether volume v of facet i mixes units
func (a AnomalyReasons) VolumeInconsistent(i, v int) bool {
	for _, f := range a.Flags {
		if f.Reason == ReasonInconsistentUnits && f.Facet == i && f.Volume == v {
			return true
		}
	}
	return false
}

// String joins the raised reason names, "" when clean
func (a AnomalyReasons) String() string {
	var parts []string
	if a.TooManyDimensions {
		parts = append(parts, string(ReasonTooManyDimensions))
	}
	if a.InconsistentUnits {
		parts = append(parts, string(ReasonInconsistentUnits))
	}
	return strings.Join(parts, ",")
}

// FailureReason is the diagnostic carried by a Failed outcome: where the
// grammar gave up and what it expected there.
type FailureReason struct {
	Kind     string      `json:"kind"`
	Variant  VariantName `json:"variant"`
	Message  string      `json:"message"`
	Offset   int         `json:"offset"`
	Line     int         `json:"line"`
	Column   int         `json:"column"`
	Expected []string    `json:"expected,omitempty"`
	Found    string      `json:"found"`
}

// String renders the diagnostic on one line:
//
//	Expected end of text, found ',' (at char 27), (line:1, col:28)
func (f FailureReason) String() string {
	if f.Message != "" && len(f.Expected) == 0 {
		return fmt.Sprintf("%s (at char %d), (line:%d, col:%d)", f.Message, f.Offset, f.Line, f.Column)
	}
	return fmt.Sprintf("Expected %s, found %s (at char %d), (line:%d, col:%d)",
		strings.Join(f.Expected, " or "), f.Found, f.Offset, f.Line, f.Column)
}

// Outcome is the result of resolving one record. Exactly one of the three
// kinds applies: Parsed and Anomalous carry facets, Failed carries Failure.
type Outcome struct {
	Kind      OutcomeKind    `json:"kind"`
	Variant   VariantName    `json:"variant,omitempty"`
	Facets    []Facet        `json:"facets,omitempty"`
	Anomalies AnomalyReasons `json:"anomalies"`
	Failure   *FailureReason `json:"failure,omitempty"`
}

// NewParsed builds a Parsed or Anomalous outcome depending on reasons
func NewParsed(variant VariantName, facets []Facet, reasons AnomalyReasons) Outcome {
	kind := Parsed
	if reasons.Any() {
		kind = Anomalous
	}
	return Outcome{Kind: kind, Variant: variant, Facets: facets, Anomalies: reasons}
}

// NewFailed builds a Failed outcome
func NewFailed(reason FailureReason) Outcome {
	return Outcome{Kind: Failed, Failure: &reason}
}

// OK reports whether the record parsed (cleanly or with anomalies)
func (o Outcome) OK() bool {
	return o.Kind != Failed
}
