package parser

import (
	"strings"

	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/types"
)

// VariantName identifies a top-level record grammar
type VariantName = types.VariantName

// Variant is one complete record grammar. Match must consume the entire
// text to succeed; on failure it returns the furthest-failure diagnostic.
// Variants hold no state between calls.
type Variant interface {
	Name() VariantName
	Match(text string) ([]types.Facet, *ParseError)
}

// DefaultVariants returns the cascade in priority order: mimsy, die-axis,
// historic-deerfield
func DefaultVariants(units *Vocabulary) []Variant {
	return []Variant{NewMimsy(units), NewDieAxis(units), NewDeerfield(units)}
}

// VariantNames lists the built-in variants in cascade order
var VariantNames = []VariantName{types.VariantMimsy, types.VariantDieAxis, types.VariantDeerfield}

// ParseVariantName validates a variant name
func ParseVariantName(s string) (VariantName, error) {
	name := VariantName(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range VariantNames {
		if v == name {
			return v, nil
		}
	}
	return "", errors.NewInvalidRequestError("unknown variant %q", s)
}

// NewVariant builds a single built-in variant by name
func NewVariant(name VariantName, units *Vocabulary) (Variant, error) {
	switch name {
	case types.VariantMimsy:
		return NewMimsy(units), nil
	case types.VariantDieAxis:
		return NewDieAxis(units), nil
	case types.VariantDeerfield:
		return NewDeerfield(units), nil
	}
	return nil, errors.NewInvalidRequestError("unknown variant %q", name)
}
