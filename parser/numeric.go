package parser

import (
	"github.com/teranos/measure/types"
)

// lexNumeric consumes an integer, decimal, fraction or mixed number.
// On failure nothing is consumed and a numeric expectation is recorded.
func lexNumeric(c *cursor) (types.Numeric, bool) {
	start := c.pos

	leadingDot := c.consumeByte('.')
	if !scanDigits(c) {
		c.pos = start
		c.expect(expectNumeric)
		return types.Numeric{}, false
	}

	integer := !leadingDot
	if !leadingDot && c.peekByte() == '.' && c.pos+1 < len(c.src) && isDigit(c.src[c.pos+1]) {
		c.pos++
		scanDigits(c)
		integer = false
	}
	if c.peekByte() == '/' && c.pos+1 < len(c.src) && isDigit(c.src[c.pos+1]) {
		c.pos++
		scanDigits(c)
		integer = false
	}

	// "5 3/4": whole part, whitespace, fraction
	wholeEnd := c.pos
	if integer {
		if !(c.skipSpace() && scanDigits(c) && c.consumeByte('/') && scanDigits(c)) {
			c.pos = wholeEnd
		}
	}

	n, err := types.ParseNumeric(c.src[start:c.pos])
	if err != nil && c.pos > wholeEnd {
		// "5 3/0" still has a valid whole part
		c.pos = wholeEnd
		n, err = types.ParseNumeric(c.src[start:c.pos])
	}
	if err != nil {
		// zero denominators and the like
		c.pos = start
		c.expect(expectNumeric)
		return types.Numeric{}, false
	}
	return n, true
}

func scanDigits(c *cursor) bool {
	start := c.pos
	for !c.eof() && isDigit(c.src[c.pos]) {
		c.pos++
	}
	return c.pos > start
}
