// Package classification flags structurally parsed records whose shape
// suggests a cataloguing mistake. Flags never alter the parsed data.
package classification

import (
	"fmt"
	"strings"

	"github.com/teranos/measure/types"
)

// DefaultMaxDimensions is the longest volume accepted without a flag.
// Irregular quadrilaterals legitimately list 4 or 5 dimensions; more usually
// means two measurement groups ran together.
const DefaultMaxDimensions = 5

// Classifier computes anomaly reasons for a parsed facet list
type Classifier struct {
	MaxDimensions int
}

// New creates a classifier. A non-positive threshold uses the default.
func New(maxDimensions int) *Classifier {
	if maxDimensions <= 0 {
		maxDimensions = DefaultMaxDimensions
	}
	return &Classifier{MaxDimensions: maxDimensions}
}

// Default returns a classifier with DefaultMaxDimensions
func Default() *Classifier {
	return New(DefaultMaxDimensions)
}

// Classify flags facets whose longest volume exceeds MaxDimensions and
// volumes that declare more than one distinct unit. Undeclared units do not
// count towards inconsistency.
func (c *Classifier) Classify(facets []types.Facet) types.AnomalyReasons {
	var reasons types.AnomalyReasons
	max := c.MaxDimensions
	if max <= 0 {
		max = DefaultMaxDimensions
	}

	for i, f := range facets {
		if n := f.MaxVolumeLen(); n > max {
			reasons.TooManyDimensions = true
			reasons.Flags = append(reasons.Flags, types.AnomalyFlag{
				Reason: types.ReasonTooManyDimensions,
				Facet:  i,
				Volume: -1,
				Detail: fmt.Sprintf("%d dimensions (max %d)", n, max),
			})
		}
		for j, v := range f.Volumes {
			units := v.Units()
			if len(units) <= 1 {
				continue
			}
			names := make([]string, len(units))
			for k, u := range units {
				names[k] = string(u)
			}
			reasons.InconsistentUnits = true
			reasons.Flags = append(reasons.Flags, types.AnomalyFlag{
				Reason: types.ReasonInconsistentUnits,
				Facet:  i,
				Volume: j,
				Detail: strings.Join(names, ", "),
			})
		}
	}
	return reasons
}
