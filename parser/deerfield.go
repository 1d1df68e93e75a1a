package parser

import "github.com/teranos/measure/types"

const (
	expectOverall = `"overall:"`
	expectLabel   = "label"
)

// Deerfield matches the historic-deerfield inventory shape:
//
//	overall: teacup - 1 3/4 in x 2 15/16 in; 4.445 cm x 7.46125 cm; saucer: 1 in x 4 3/4 in
//
// Group labels are bare words of letters only.
type Deerfield struct {
	lx *lexer
}

// NewDeerfield creates the historic-deerfield variant. A nil vocabulary
// uses the defaults.
func NewDeerfield(units *Vocabulary) *Deerfield {
	return &Deerfield{lx: newLexer(units)}
}

func (h *Deerfield) Name() VariantName {
	return types.VariantDeerfield
}

func (h *Deerfield) Match(text string) ([]types.Facet, *ParseError) {
	c := newCursor(text)
	c.skipSpace()
	if !c.consumeWord("overall") {
		c.expect(expectOverall)
		return nil, c.diagnostic(h.Name())
	}
	c.skipSpace()
	if !c.consumeByte(':') {
		c.expect(expectOverall)
		return nil, c.diagnostic(h.Name())
	}

	var facets []types.Facet
	for {
		f, ok := h.group(c)
		if !ok {
			break
		}
		facets = append(facets, f)

		save := c.pos
		c.skipSpace()
		if !c.consumeByte(';') {
			c.pos = save
		}
	}

	if len(facets) == 0 || !c.atEnd() {
		return nil, c.diagnostic(h.Name())
	}
	return facets, nil
}

// group consumes <word> [:-]? volume (; volume)*
func (h *Deerfield) group(c *cursor) (types.Facet, bool) {
	start := c.pos
	c.skipSpace()

	wordStart := c.pos
	for !c.eof() {
		r, n := c.peek()
		if !isLetter(r) {
			break
		}
		c.pos += n
	}
	if c.pos == wordStart {
		c.expect(expectLabel)
		c.pos = start
		return types.Facet{}, false
	}
	label := c.src[wordStart:c.pos]

	c.skipSpace()
	c.consumeAny(":-")

	v, ok := h.lx.volume(c)
	if !ok {
		c.pos = start
		return types.Facet{}, false
	}
	f := types.Facet{TypeLabel: &label, Volumes: []types.Volume{v}}

	for {
		save := c.pos
		c.skipSpace()
		if !c.consumeByte(';') {
			c.pos = save
			break
		}
		v, ok := h.lx.volume(c)
		if !ok {
			c.pos = save
			break
		}
		f.Volumes = append(f.Volumes, v)
	}
	return f, true
}
