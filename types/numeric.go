package types

import (
	"encoding/json"
	"math/big"
	"strings"
	"unicode"

	"github.com/teranos/measure/errors"
)

// NumericKind is the lexical shape of a numeric literal
type NumericKind string

const (
	Integer  NumericKind = "integer"  // 12
	Decimal  NumericKind = "decimal"  // 14.6, .875
	Fraction NumericKind = "fraction" // 3/4
	Mixed    NumericKind = "mixed"    // 5 3/4
)

// Numeric is a measured magnitude. The literal text is kept as written and
// the exact rational value is computed alongside it, so neither the cataloger's
// notation nor the magnitude is lost to float rounding.
type Numeric struct {
	Literal string
	Kind    NumericKind
	rat     *big.Rat
}

// ParseNumeric parses an integer, decimal, simple fraction or mixed number.
// Mixed numbers separate the whole part from the fraction by whitespace.
func ParseNumeric(literal string) (Numeric, error) {
	lit := strings.TrimSpace(literal)
	if lit == "" {
		return Numeric{}, errors.Newf("empty numeric literal")
	}

	// Mixed: whole part, whitespace, fraction
	if i := strings.IndexFunc(lit, unicode.IsSpace); i >= 0 {
		whole, err := parseDigits(lit[:i])
		if err != nil {
			return Numeric{}, errors.Wrapf(err, "mixed number %q", lit)
		}
		frac, err := parseFraction(strings.TrimSpace(lit[i:]))
		if err != nil {
			return Numeric{}, errors.Wrapf(err, "mixed number %q", lit)
		}
		r := new(big.Rat).SetInt(whole)
		return Numeric{Literal: lit, Kind: Mixed, rat: r.Add(r, frac)}, nil
	}

	if strings.Contains(lit, "/") {
		frac, err := parseFraction(lit)
		if err != nil {
			return Numeric{}, err
		}
		return Numeric{Literal: lit, Kind: Fraction, rat: frac}, nil
	}

	if dot := strings.IndexByte(lit, '.'); dot >= 0 {
		intPart, fracPart := lit[:dot], lit[dot+1:]
		if fracPart == "" || (intPart == "" && fracPart == "") {
			return Numeric{}, errors.Newf("malformed decimal %q", lit)
		}
		if intPart == "" {
			intPart = "0"
		}
		num, err := parseDigits(intPart + fracPart)
		if err != nil {
			return Numeric{}, errors.Wrapf(err, "decimal %q", lit)
		}
		denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(len(fracPart))), nil)
		return Numeric{Literal: lit, Kind: Decimal, rat: new(big.Rat).SetFrac(num, denom)}, nil
	}

	n, err := parseDigits(lit)
	if err != nil {
		return Numeric{}, err
	}
	return Numeric{Literal: lit, Kind: Integer, rat: new(big.Rat).SetInt(n)}, nil
}

// MustParseNumeric is ParseNumeric for literals known to be valid
func MustParseNumeric(literal string) Numeric {
	n, err := ParseNumeric(literal)
	if err != nil {
		panic(err)
	}
	return n
}

func parseDigits(s string) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("missing digits")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return nil, errors.Newf("unexpected %q in %q", r, s)
		}
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.Newf("invalid digits %q", s)
	}
	return n, nil
}

func parseFraction(s string) (*big.Rat, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return nil, errors.Newf("malformed fraction %q", s)
	}
	num, err := parseDigits(parts[0])
	if err != nil {
		return nil, errors.Wrapf(err, "fraction numerator %q", s)
	}
	den, err := parseDigits(parts[1])
	if err != nil {
		return nil, errors.Wrapf(err, "fraction denominator %q", s)
	}
	if den.Sign() == 0 {
		return nil, errors.Newf("zero denominator in %q", s)
	}
	return new(big.Rat).SetFrac(num, den), nil
}

// Rat returns a copy of the exact magnitude
func (n Numeric) Rat() *big.Rat {
	if n.rat == nil {
		return new(big.Rat)
	}
	return new(big.Rat).Set(n.rat)
}

// Float64 returns the nearest float64 to the magnitude
func (n Numeric) Float64() float64 {
	if n.rat == nil {
		return 0
	}
	f, _ := n.rat.Float64()
	return f
}

// String returns the literal as written in the source
func (n Numeric) String() string {
	return n.Literal
}

// Equal reports whether both the literal and the magnitude match
func (n Numeric) Equal(o Numeric) bool {
	return n.Literal == o.Literal && n.Kind == o.Kind && n.Rat().Cmp(o.Rat()) == 0
}

type numericJSON struct {
	Literal  string      `json:"literal"`
	Kind     NumericKind `json:"kind"`
	Value    float64     `json:"value"`
	Rational string      `json:"rational"`
}

func (n Numeric) MarshalJSON() ([]byte, error) {
	return json.Marshal(numericJSON{
		Literal:  n.Literal,
		Kind:     n.Kind,
		Value:    n.Float64(),
		Rational: n.Rat().RatString(),
	})
}

// UnmarshalJSON rebuilds the magnitude from the literal; value and rational
// are derived fields and ignored on input.
func (n *Numeric) UnmarshalJSON(data []byte) error {
	var raw numericJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseNumeric(raw.Literal)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
