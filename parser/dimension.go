package parser

import (
	"strings"
	"unicode"

	"github.com/teranos/measure/types"
)

// minContextLetters is the shortest phrase accepted as context. It keeps a
// lone "x" or "in" from being read as an annotation.
const minContextLetters = 3

// lexer carries the vocabulary shared by the dimension, volume and facet
// rules of one variant
type lexer struct {
	units *Vocabulary
	stop  map[string]bool // lower-cased words that end a context phrase
}

func newLexer(units *Vocabulary, stopWords ...string) *lexer {
	if units == nil {
		units = DefaultVocabulary()
	}
	lx := &lexer{units: units, stop: make(map[string]bool, len(stopWords))}
	for _, w := range stopWords {
		lx.stop[w] = true
	}
	return lx
}

// dimension consumes numeric [unit [.]] [context]
func (lx *lexer) dimension(c *cursor) (types.Dimension, bool) {
	num, ok := lexNumeric(c)
	if !ok {
		return types.Dimension{}, false
	}
	d := types.Dimension{Value: num}

	afterNum := c.pos
	c.skipSpace()
	if unit, n, ok := lx.units.match(c.rest()); ok {
		c.pos += n
		c.consumeByte('.')
		d.Unit = unit.Ptr()
	} else {
		c.pos = afterNum
	}

	if text, ok := lx.context(c); ok {
		d.Context = &text
	}
	return d, true
}

// context consumes a parenthetical "(...)" or a short freeform phrase
func (lx *lexer) context(c *cursor) (string, bool) {
	start := c.pos
	c.skipSpace()

	if c.peekByte() == '(' {
		end := strings.IndexByte(c.rest(), ')')
		if end < 0 {
			c.pos = start
			return "", false
		}
		text := c.src[c.pos : c.pos+end+1]
		c.pos += end + 1
		return text, true
	}

	if text, ok := lx.phrase(c); ok {
		return text, true
	}
	c.pos = start
	return "", false
}

type span struct{ start, end int }

// phrase consumes whitespace-separated words of letters and - ' / .
// A phrase directly followed by ':' labels the next facet and is left alone.
// A dangling " x" belongs to the next dimension and is left unconsumed.
func (lx *lexer) phrase(c *cursor) (string, bool) {
	start := c.pos
	var words []span
	for {
		save := c.pos
		if len(words) > 0 && !c.skipSpace() {
			break
		}
		r, _ := c.peek()
		if !isLetter(r) {
			c.pos = save
			break
		}
		ws := c.pos
		scanWord(c, "-'/.")
		if lx.stops(c.src[ws:c.pos]) {
			c.pos = save
			break
		}
		words = append(words, span{ws, c.pos})
	}
	if len(words) == 0 || isConnectiveWord(c.src[words[0].start:words[0].end]) {
		c.pos = start
		return "", false
	}

	if colonAhead(c) {
		c.pos = start
		return "", false
	}

	if last := words[len(words)-1]; isConnectiveWord(c.src[last.start:last.end]) {
		words = words[:len(words)-1]
	}

	end := words[len(words)-1].end
	text := c.src[words[0].start:end]
	if countLetters(text) < minContextLetters {
		c.pos = start
		return "", false
	}
	c.pos = end
	return text, true
}

func (lx *lexer) stops(word string) bool {
	if len(lx.stop) == 0 {
		return false
	}
	return lx.stop[strings.ToLower(strings.TrimRight(word, ".:"))]
}

// scanWord advances over letters and the extra punctuation runes
func scanWord(c *cursor, extra string) {
	for !c.eof() {
		r, n := c.peek()
		if !isLetter(r) && !strings.ContainsRune(extra, r) {
			return
		}
		c.pos += n
	}
}

// colonAhead reports whether ':' follows, possibly after whitespace
func colonAhead(c *cursor) bool {
	save := c.pos
	c.skipSpace()
	ok := c.peekByte() == ':'
	c.pos = save
	return ok
}

func isConnectiveWord(w string) bool {
	return w == "x" || w == "X"
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
