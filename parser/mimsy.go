package parser

import "github.com/teranos/measure/types"

// Mimsy is the default grammar: one or more facets back to back, with an
// optional ";" between them.
//
//	Overall: 5 3/4 in x 12 1/4 in; 14.6 cm x 31.1 cm
//	sheet: 13 x 17 1/2 in.; stone: 10 x 12 1/4 in.
type Mimsy struct {
	lx *lexer
}

// NewMimsy creates the default variant. A nil vocabulary uses the defaults.
func NewMimsy(units *Vocabulary) *Mimsy {
	return &Mimsy{lx: newLexer(units)}
}

func (m *Mimsy) Name() VariantName {
	return types.VariantMimsy
}

func (m *Mimsy) Match(text string) ([]types.Facet, *ParseError) {
	c := newCursor(text)

	var facets []types.Facet
	for {
		f, ok := m.lx.facet(c)
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
		return nil, c.diagnostic(m.Name())
	}
	return facets, nil
}
