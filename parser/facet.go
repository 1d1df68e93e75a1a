package parser

import (
	"strings"

	"github.com/teranos/measure/types"
)

// labelPunct is the punctuation allowed inside a type label word
const labelPunct = "/-&'."

// facet consumes [label] :* volume (;? volume)*
func (lx *lexer) facet(c *cursor) (types.Facet, bool) {
	start := c.pos
	c.skipSpace()

	var f types.Facet
	if label, ok := lx.label(c); ok {
		f.TypeLabel = &label
	}
	for {
		save := c.pos
		c.skipSpace()
		if !c.consumeByte(':') {
			c.pos = save
			break
		}
	}

	v, ok := lx.volume(c)
	if !ok {
		c.pos = start
		return types.Facet{}, false
	}
	f.Volumes = append(f.Volumes, v)

	for {
		save := c.pos
		c.skipSpace()
		c.consumeByte(';')
		v, ok := lx.volume(c)
		if !ok {
			c.pos = save
			break
		}
		f.Volumes = append(f.Volumes, v)
	}
	return f, true
}

// label consumes a type label. "; word" and ", phrase" continuations are
// only kept when the label is closed by a colon, otherwise they would
// swallow the delimiter into the next facet.
func (lx *lexer) label(c *cursor) (string, bool) {
	r, _ := c.peek()
	if !isLetter(r) || atConnective(c) {
		return "", false
	}

	start := c.pos
	if text, extended := scanLabel(c, true); !extended || colonAhead(c) {
		return text, true
	}
	c.pos = start
	text, _ := scanLabel(c, false)
	return text, true
}

func scanLabel(c *cursor, continuations bool) (string, bool) {
	start := c.pos
	scanLabelWords(c)

	extended := false
	for continuations {
		save := c.pos
		c.skipSpace()
		switch {
		case c.consumeByte(';'):
			c.skipSpace()
			if !startsLabelWord(c) {
				c.pos = save
				continuations = false
				continue
			}
			scanWord(c, labelPunct)
		case c.consumeByte(','):
			c.skipSpace()
			if !startsLabelWord(c) {
				c.pos = save
				continuations = false
				continue
			}
			scanLabelWords(c)
		default:
			c.pos = save
			continuations = false
			continue
		}
		extended = true
	}

	save := c.pos
	c.skipSpace()
	if end := strings.IndexByte(c.rest(), ')'); c.peekByte() == '(' && end > 0 {
		c.pos += end + 1
	} else {
		c.pos = save
	}

	return strings.TrimSpace(c.src[start:c.pos]), extended
}

// scanLabelWords consumes words separated by whitespace
func scanLabelWords(c *cursor) {
	for {
		scanWord(c, labelPunct)
		save := c.pos
		if !c.skipSpace() || !startsLabelWord(c) {
			c.pos = save
			return
		}
	}
}

func startsLabelWord(c *cursor) bool {
	r, _ := c.peek()
	return (isLetter(r) && !atConnective(c)) || r == '&'
}
