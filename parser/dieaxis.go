package parser

import "github.com/teranos/measure/types"

const (
	expectWeight  = `"weight"`
	expectDieAxis = `"die axis"`

	// DieAxisLabel tags the synthetic facet produced by the die-axis variant
	DieAxisLabel = "diexis"
)

// Words that end a context phrase inside a die-axis record, so "1.5 cm
// weight 3 g" keeps "weight" as the literal rather than as context.
var dieAxisStopWords = []string{"weight", "diexis", "dieaxis", "die", "die-axis"}

// DieAxis matches numismatic records:
//
//	<diameter> ;? <diameter> [,;]? weight :? <weight> [,;]? die axis :? <angle>
//
// "die axis" also accepts "diexis", "dieaxis", "die-axis" and "die; axis".
type DieAxis struct {
	lx *lexer
}

// NewDieAxis creates the die-axis variant. A nil vocabulary uses the defaults.
func NewDieAxis(units *Vocabulary) *DieAxis {
	return &DieAxis{lx: newLexer(units, dieAxisStopWords...)}
}

func (d *DieAxis) Name() VariantName {
	return types.VariantDieAxis
}

func (d *DieAxis) Match(text string) ([]types.Facet, *ParseError) {
	c := newCursor(text)
	fail := func() ([]types.Facet, *ParseError) {
		return nil, c.diagnostic(d.Name())
	}

	dims := make([]types.Dimension, 0, 4)
	next := func(separators string) bool {
		c.skipSpace()
		dim, ok := d.lx.dimension(c)
		if !ok {
			return false
		}
		dims = append(dims, dim)
		c.skipSpace()
		c.consumeAny(separators)
		c.skipSpace()
		return true
	}

	if !next(";") || !next(",;") {
		return fail()
	}

	if !c.consumeWord("weight") {
		c.expect(expectWeight)
		return fail()
	}
	skipLabelColon(c)
	if !next(",;") {
		return fail()
	}

	if !consumeDieAxis(c) {
		c.expect(expectDieAxis)
		return fail()
	}
	skipLabelColon(c)
	if !next("") || !c.atEnd() {
		return fail()
	}

	if dims[2].Context == nil {
		dims[2].Context = types.StringPtr("weight")
	}
	if dims[3].Context == nil {
		dims[3].Context = types.StringPtr("die axis")
	}

	facet := types.Facet{TypeLabel: types.StringPtr(DieAxisLabel)}
	for _, dim := range dims {
		facet.Volumes = append(facet.Volumes, types.Volume{dim})
	}
	return []types.Facet{facet}, nil
}

func consumeDieAxis(c *cursor) bool {
	if c.consumeWord("diexis") || c.consumeWord("dieaxis") {
		return true
	}
	start := c.pos
	if !c.consumeWord("die") {
		return false
	}
	c.skipSpace()
	c.consumeAny("-;")
	c.skipSpace()
	if !c.consumeWord("axis") {
		c.pos = start
		return false
	}
	return true
}

func skipLabelColon(c *cursor) {
	c.skipSpace()
	c.consumeByte(':')
}
