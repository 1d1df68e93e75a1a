package parser

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/types"
)

// ErrorContext selects how a ParseError renders
type ErrorContext string

const (
	// ErrorContextTerminal renders with ANSI colors
	ErrorContextTerminal ErrorContext = "terminal"
	// ErrorContextPlain renders without ANSI codes (CSV reports, logs)
	ErrorContextPlain ErrorContext = "plain"
)

// ErrorKind categorizes parser errors for programmatic handling
type ErrorKind string

const (
	ErrorKindLex             ErrorKind = "lex"              // Only a numeric literal would do at the furthest point
	ErrorKindVariantMismatch ErrorKind = "variant-mismatch" // A variant left trailing text or missed a required literal
	ErrorKindRecord          ErrorKind = "record"           // No variant matched
)

// ErrLexFailure marks variant mismatches whose furthest failure was a
// missing numeric literal
var ErrLexFailure = errors.New("no numeric literal")

// ParseError is a structured grammar diagnostic: the furthest offset any
// rule reached, what was expected there and what was found instead.
type ParseError struct {
	Err         error
	Kind        ErrorKind
	Variant     types.VariantName
	Message     string
	Text        string
	Offset      int // 0-based byte offset
	Line        int // 1-based
	Column      int // 1-based
	Expected    []string
	Found       string
	Suggestions []string
}

// Error implements error interface
func (e *ParseError) Error() string {
	return e.FormatError(ErrorContextPlain)
}

// FormatError generates context-appropriate error message
func (e *ParseError) FormatError(ctx ErrorContext) string {
	if ctx == ErrorContextPlain {
		return e.formatPlainError()
	}
	return e.formatTerminalError()
}

func (e *ParseError) formatPlainError() string {
	msg := e.Reason().String()
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(". Suggestions: %s", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

// formatTerminalError renders the diagnostic with a caret under the offset
func (e *ParseError) formatTerminalError() string {
	baseMsg := pterm.Red(e.Reason().String())

	context := fmt.Sprintf("\n\n%s", pterm.LightCyan("Context:"))
	if e.Variant != "" {
		context += fmt.Sprintf("\n  %s %s", pterm.Yellow("Variant:"), e.Variant)
	}
	if e.Text != "" {
		line := e.Text
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
		}
		context += fmt.Sprintf("\n  %s %s", pterm.Yellow("Text:"), line)
		if e.Line == 1 && e.Column >= 1 {
			context += fmt.Sprintf("\n        %s%s", strings.Repeat(" ", e.Column-1), pterm.Red("^"))
		}
	}

	if len(e.Suggestions) > 0 {
		context += fmt.Sprintf("\n\n%s", pterm.Green("Suggestions:"))
		for _, suggestion := range e.Suggestions {
			context += fmt.Sprintf("\n  - %s", suggestion)
		}
	}

	return fmt.Sprintf("%s%s", baseMsg, context)
}

// Reason converts the diagnostic into the value stored on a Failed outcome
func (e *ParseError) Reason() types.FailureReason {
	return types.FailureReason{
		Kind:     string(e.Kind),
		Variant:  e.Variant,
		Message:  e.Message,
		Offset:   e.Offset,
		Line:     e.Line,
		Column:   e.Column,
		Expected: append([]string(nil), e.Expected...),
		Found:    e.Found,
	}
}

// Unwrap for errors.Is/As compatibility
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError with the given kind and message
func NewParseError(kind ErrorKind, message string) *ParseError {
	return &ParseError{
		Kind:    kind,
		Message: message,
		Offset:  -1,
	}
}

// WithPosition sets the offset and derives line and column from text
func (e *ParseError) WithPosition(text string, offset int) *ParseError {
	e.Text = text
	e.Offset = offset
	e.Line, e.Column = lineCol(text, offset)
	return e
}

// WithExpected records what the grammar wanted at the offset
func (e *ParseError) WithExpected(expected ...string) *ParseError {
	e.Expected = append(e.Expected, expected...)
	return e
}

// WithFound records what was at the offset instead
func (e *ParseError) WithFound(found string) *ParseError {
	e.Found = found
	return e
}

// WithVariant tags the error with the grammar that produced it
func (e *ParseError) WithVariant(v types.VariantName) *ParseError {
	e.Variant = v
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ParseError) WithSuggestion(suggestion string) *ParseError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithUnderlying sets the underlying error
func (e *ParseError) WithUnderlying(err error) *ParseError {
	e.Err = err
	return e
}

// lineCol returns the 1-based line and column of a byte offset.
// Columns count runes, not bytes.
func lineCol(text string, offset int) (int, int) {
	if offset > len(text) {
		offset = len(text)
	}
	line, col := 1, 1
	for _, r := range text[:offset] {
		if r == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
