package types

import (
	"strings"

	"github.com/teranos/measure/errors"
)

// Unit is a canonical measurement unit. The set is closed; spelling variants
// ("inches", "\"", "cm.") are resolved by the lexer's alias vocabulary.
type Unit string

const (
	Inch    Unit = "in"
	Foot    Unit = "ft"
	Cm      Unit = "cm"
	Meter   Unit = "m"
	Mm      Unit = "mm"
	Gram    Unit = "g"
	Gm      Unit = "gm"
	Degree  Unit = "deg"
	Minutes Unit = "minutes"
	Seconds Unit = "seconds"
)

// Units lists every canonical unit in declaration order
var Units = []Unit{Inch, Foot, Cm, Meter, Mm, Gram, Gm, Degree, Minutes, Seconds}

// ParseUnit validates a canonical unit name (case-insensitive)
func ParseUnit(s string) (Unit, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, u := range Units {
		if string(u) == name {
			return u, nil
		}
	}
	return "", errors.WithHintf(
		errors.NewInvalidRequestError("unknown unit %q", s),
		"canonical units are: %s", strings.Join(unitNames(), ", "))
}

func unitNames() []string {
	names := make([]string, len(Units))
	for i, u := range Units {
		names[i] = string(u)
	}
	return names
}

// Ptr returns a pointer to a copy of u, for populating Dimension.Unit
func (u Unit) Ptr() *Unit {
	return &u
}
