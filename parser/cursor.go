package parser

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

const (
	expectNumeric   = "numeric literal"
	expectEndOfText = "end of text"
)

// keywordSpellings are the words a keyword expectation accepts; a near miss
// of one earns a suggestion
var keywordSpellings = map[string][]string{
	expectWeight:  {"weight"},
	expectDieAxis: {"diexis", "dieaxis", "die"},
	expectOverall: {"overall"},
}

// cursor walks a record's text. Every failed expectation is recorded so the
// furthest point any rule reached becomes the diagnostic, the way a packrat
// parser reports "Expected X, found Y".
type cursor struct {
	src      string
	pos      int
	furthest int
	expected []string
}

func newCursor(src string) *cursor {
	return &cursor{src: src, furthest: -1}
}

func (c *cursor) eof() bool {
	return c.pos >= len(c.src)
}

func (c *cursor) rest() string {
	return c.src[c.pos:]
}

// peek returns the rune at the cursor, or utf8.RuneError at end of text
func (c *cursor) peek() (rune, int) {
	if c.eof() {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(c.src[c.pos:])
}

func (c *cursor) peekByte() byte {
	if c.eof() {
		return 0
	}
	return c.src[c.pos]
}

// skipSpace advances past whitespace and reports whether any was skipped
func (c *cursor) skipSpace() bool {
	start := c.pos
	for !c.eof() {
		r, n := c.peek()
		if !unicode.IsSpace(r) {
			break
		}
		c.pos += n
	}
	return c.pos > start
}

func (c *cursor) consumeByte(b byte) bool {
	if c.peekByte() == b && !c.eof() {
		c.pos++
		return true
	}
	return false
}

// consumeAny consumes one of the given bytes
func (c *cursor) consumeAny(set string) bool {
	if c.eof() {
		return false
	}
	if strings.IndexByte(set, c.src[c.pos]) >= 0 {
		c.pos++
		return true
	}
	return false
}

// consumeWord consumes a caseless literal that must end at a word boundary
func (c *cursor) consumeWord(word string) bool {
	if len(c.rest()) < len(word) || !strings.EqualFold(c.src[c.pos:c.pos+len(word)], word) {
		return false
	}
	if next, _ := utf8.DecodeRuneInString(c.src[c.pos+len(word):]); unicode.IsLetter(next) {
		return false
	}
	c.pos += len(word)
	return true
}

// expect records that what was required at the current position
func (c *cursor) expect(what string) {
	c.expectAt(c.pos, what)
}

func (c *cursor) expectAt(pos int, what string) {
	switch {
	case pos > c.furthest:
		c.furthest = pos
		c.expected = []string{what}
	case pos == c.furthest:
		for _, e := range c.expected {
			if e == what {
				return
			}
		}
		c.expected = append(c.expected, what)
	}
}

// found describes the text at offset for a diagnostic
func (c *cursor) found(offset int) string {
	if offset >= len(c.src) {
		return expectEndOfText
	}
	r, _ := utf8.DecodeRuneInString(c.src[offset:])
	return fmt.Sprintf("'%c'", r)
}

// diagnostic builds the ParseError for the furthest recorded failure
func (c *cursor) diagnostic(variant VariantName) *ParseError {
	offset := c.furthest
	expected := c.expected
	if offset < 0 {
		offset = c.pos
		expected = []string{expectEndOfText}
	}

	kind := ErrorKindVariantMismatch
	if len(expected) == 1 && expected[0] == expectNumeric {
		kind = ErrorKindLex
	}
	e := NewParseError(kind, "").
		WithVariant(variant).
		WithPosition(c.src, offset).
		WithExpected(expected...).
		WithFound(c.found(offset))
	for _, exp := range expected {
		if exp == expectNumeric {
			e.WithUnderlying(ErrLexFailure)
			break
		}
	}
	c.suggest(e, offset, expected)
	return e
}

// suggest adds "did you mean" for keyword expectations that the word at
// offset nearly spells
func (c *cursor) suggest(e *ParseError, offset int, expected []string) {
	word := strings.ToLower(c.wordAt(offset))
	if word == "" {
		return
	}
	for _, exp := range expected {
		for _, spelling := range keywordSpellings[exp] {
			if fuzzy.LevenshteinDistance(word, spelling) <= maxTypos(spelling) {
				e.WithSuggestion(fmt.Sprintf("did you mean %s?", exp))
				break
			}
		}
	}
}

// maxTypos is the edit distance still read as a misspelling of word
func maxTypos(word string) int {
	if len(word) <= 4 {
		return 1
	}
	return 2
}

// wordAt returns the run of letters starting at offset
func (c *cursor) wordAt(offset int) string {
	end := offset
	for end < len(c.src) {
		r, n := utf8.DecodeRuneInString(c.src[end:])
		if !unicode.IsLetter(r) {
			break
		}
		end += n
	}
	if offset > end {
		return ""
	}
	return c.src[offset:end]
}

// atEnd requires that only whitespace remains
func (c *cursor) atEnd() bool {
	c.skipSpace()
	if c.eof() {
		return true
	}
	c.expect(expectEndOfText)
	return false
}

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
