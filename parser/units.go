package parser

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/types"
)

// defaultAliases is the lexer's unit spelling table
var defaultAliases = map[string]types.Unit{
	"in": types.Inch, "inch": types.Inch, "inches": types.Inch, `"`: types.Inch, "″": types.Inch,
	"ft": types.Foot, "foot": types.Foot, "feet": types.Foot, "'": types.Foot, "′": types.Foot,
	"cm": types.Cm,
	"mm": types.Mm,
	"m":  types.Meter,
	"g":  types.Gram, "gram": types.Gram, "grams": types.Gram,
	"gm": types.Gm, "gms": types.Gm,
	"deg": types.Degree, "degrees": types.Degree, "°": types.Degree,
	"min": types.Minutes, "minutes": types.Minutes,
	"sec": types.Seconds, "seconds": types.Seconds,
}

type unitAlias struct {
	text  string
	unit  types.Unit
	alpha bool // needs a word boundary after it
}

// Vocabulary maps unit spellings to canonical units. Matching is
// case-insensitive and prefers the longest alias.
type Vocabulary struct {
	aliases []unitAlias
}

// DefaultVocabulary returns the built-in alias table
func DefaultVocabulary() *Vocabulary {
	v, _ := newVocabulary(defaultAliases)
	return v
}

// NewVocabulary extends the default table with alias → canonical unit pairs.
// Aliases may add spellings, never units.
func NewVocabulary(extra map[string]string) (*Vocabulary, error) {
	merged := make(map[string]types.Unit, len(defaultAliases)+len(extra))
	for alias, unit := range defaultAliases {
		merged[alias] = unit
	}
	for alias, canonical := range extra {
		unit, err := types.ParseUnit(canonical)
		if err != nil {
			return nil, errors.Wrapf(err, "unit alias %q", alias)
		}
		merged[strings.ToLower(strings.TrimSpace(alias))] = unit
	}
	return newVocabulary(merged)
}

func newVocabulary(table map[string]types.Unit) (*Vocabulary, error) {
	v := &Vocabulary{}
	for text, unit := range table {
		if text == "" {
			return nil, errors.NewInvalidRequestError("empty unit alias for %s", unit)
		}
		first, _ := utf8.DecodeRuneInString(text)
		if unicode.IsDigit(first) || first == '.' {
			return nil, errors.NewInvalidRequestError("unit alias %q cannot start with a digit or '.'", text)
		}
		last, _ := utf8.DecodeLastRuneInString(text)
		v.aliases = append(v.aliases, unitAlias{text: text, unit: unit, alpha: unicode.IsLetter(last)})
	}
	sort.Slice(v.aliases, func(i, j int) bool {
		if len(v.aliases[i].text) != len(v.aliases[j].text) {
			return len(v.aliases[i].text) > len(v.aliases[j].text)
		}
		return v.aliases[i].text < v.aliases[j].text
	})
	return v, nil
}

// Lookup returns the canonical unit for an exact alias
func (v *Vocabulary) Lookup(alias string) (types.Unit, bool) {
	for _, a := range v.aliases {
		if strings.EqualFold(a.text, alias) {
			return a.unit, true
		}
	}
	return "", false
}

// Aliases returns a copy of the alias table
func (v *Vocabulary) Aliases() map[string]types.Unit {
	out := make(map[string]types.Unit, len(v.aliases))
	for _, a := range v.aliases {
		out[a.text] = a.unit
	}
	return out
}

// match returns the unit and byte length of the longest alias at the start of s
func (v *Vocabulary) match(s string) (types.Unit, int, bool) {
	for _, a := range v.aliases {
		n := len(a.text)
		if len(s) < n || !strings.EqualFold(s[:n], a.text) {
			continue
		}
		if a.alpha {
			if next, _ := utf8.DecodeRuneInString(s[n:]); unicode.IsLetter(next) {
				continue
			}
		}
		return a.unit, n, true
	}
	return "", 0, false
}
