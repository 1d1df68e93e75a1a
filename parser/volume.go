package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/teranos/measure/types"
)

// volume consumes one or more dimensions. The "x" connective between them
// is optional; a leading or trailing one is absorbed.
func (lx *lexer) volume(c *cursor) (types.Volume, bool) {
	start := c.pos
	c.skipSpace()
	if consumeConnective(c) {
		c.skipSpace()
	}

	var v types.Volume
	resume := start
	for {
		d, ok := lx.dimension(c)
		if !ok {
			c.pos = resume
			break
		}
		v = append(v, d)
		resume = c.pos

		c.skipSpace()
		if consumeConnective(c) {
			resume = c.pos
			c.skipSpace()
		}
	}

	if len(v) == 0 {
		c.pos = start
		return nil, false
	}
	return v, true
}

// consumeConnective consumes "x", "X" or "×" when it is not the start of a word
func consumeConnective(c *cursor) bool {
	if !atConnective(c) {
		return false
	}
	_, n := c.peek()
	c.pos += n
	return true
}

func atConnective(c *cursor) bool {
	r, n := c.peek()
	switch r {
	case '×':
		return true
	case 'x', 'X':
		next, _ := utf8.DecodeRuneInString(c.src[c.pos+n:])
		return !isLetter(next) && !strings.ContainsRune("'-/&", next)
	}
	return false
}
