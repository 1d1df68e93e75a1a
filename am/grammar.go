package am

import (
	"go.uber.org/zap"

	"github.com/teranos/measure/classification"
	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/parser"
)

// Vocabulary builds the unit table with the configured aliases applied
func (c *Config) Vocabulary() (*parser.Vocabulary, error) {
	extra := make(map[string]string, len(c.Grammar.UnitAliases))
	for _, a := range c.Grammar.UnitAliases {
		extra[a.Alias] = a.Unit
	}
	return parser.NewVocabulary(extra)
}

// NewResolver builds the cascade described by the grammar and pipeline sections
func (c *Config) NewResolver(l *zap.SugaredLogger) (*parser.Resolver, error) {
	units, err := c.Vocabulary()
	if err != nil {
		return nil, err
	}

	variants := make([]parser.Variant, 0, len(c.Grammar.Variants))
	for _, name := range c.Grammar.Variants {
		vn, err := parser.ParseVariantName(name)
		if err != nil {
			return nil, errors.Wrap(err, "grammar.variants")
		}
		v, err := parser.NewVariant(vn, units)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}

	opts := []parser.ResolverOption{
		parser.WithVariants(variants...),
		parser.WithClassifier(classification.New(c.Grammar.MaxDimensions)),
		parser.WithSkipIDs(c.Pipeline.SkipIDs...),
	}
	if l != nil {
		opts = append(opts, parser.WithResolverLogger(l))
	}
	return parser.NewResolver(opts...)
}
