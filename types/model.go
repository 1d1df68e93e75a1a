package types

import "strings"

// Dimension is a single scalar measurement
type Dimension struct {
	Value   Numeric `json:"value"`
	Unit    *Unit   `json:"unit,omitempty"`    // nil when the text declares no unit
	Context *string `json:"context,omitempty"` // "diameter", "(approx.)"
}

// HasUnit reports whether the dimension declared a unit
func (d Dimension) HasUnit() bool {
	return d.Unit != nil
}

// UnitName returns the declared unit or "" when absent
func (d Dimension) UnitName() string {
	if d.Unit == nil {
		return ""
	}
	return string(*d.Unit)
}

// ContextText returns the context annotation or "" when absent
func (d Dimension) ContextText() string {
	if d.Context == nil {
		return ""
	}
	return *d.Context
}

// Volume is an ordered group of dimensions from one measurement event.
// Positions carry no width/height/depth meaning beyond declaration order.
type Volume []Dimension

// Units returns the distinct declared units in first-seen order.
// Dimensions without a unit do not contribute.
func (v Volume) Units() []Unit {
	var units []Unit
	seen := make(map[Unit]bool)
	for _, d := range v {
		if d.Unit == nil || seen[*d.Unit] {
			continue
		}
		seen[*d.Unit] = true
		units = append(units, *d.Unit)
	}
	return units
}

// Facet is a named physical aspect of an object. A nil TypeLabel means none
// was written; it is never replaced with "overall".
type Facet struct {
	TypeLabel *string  `json:"type_label"`
	Volumes   []Volume `json:"volumes"`
}

// Label returns the type label or "" when absent
func (f Facet) Label() string {
	if f.TypeLabel == nil {
		return ""
	}
	return *f.TypeLabel
}

// LabelWords splits the type label into its first word and the remainder.
// "canvas (semi-circular)" yields "canvas", "(semi-circular)".
func (f Facet) LabelWords() (first string, extra string) {
	fields := strings.Fields(f.Label())
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// MaxVolumeLen returns the dimension count of the longest volume
func (f Facet) MaxVolumeLen() int {
	max := 0
	for _, v := range f.Volumes {
		if len(v) > max {
			max = len(v)
		}
	}
	return max
}

// DimensionCount sums dimensions across all facets
func DimensionCount(facets []Facet) int {
	n := 0
	for _, f := range facets {
		for _, v := range f.Volumes {
			n += len(v)
		}
	}
	return n
}

// Record is one catalogue entry to parse
type Record struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// StringPtr returns a pointer to a copy of s
func StringPtr(s string) *string {
	return &s
}
