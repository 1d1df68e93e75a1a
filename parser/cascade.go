package parser

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/teranos/measure/classification"
	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/logger"
	"github.com/teranos/measure/types"
)

// State is a step of the per-record cascade
type State int

const (
	Unattempted State = iota
	TryDefault
	TryDieAxis
	TryHistoric
	Resolved
)

var stateNames = map[State]string{
	Unattempted: "unattempted",
	TryDefault:  "try-default",
	TryDieAxis:  "try-die-axis",
	TryHistoric: "try-historic",
	Resolved:    "resolved",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// attemptStates maps cascade position to state
var attemptStates = []State{TryDefault, TryDieAxis, TryHistoric}

// next returns the state after s, given how many variants are configured
func (s State) next(variants int) State {
	if s == Unattempted {
		return TryDefault
	}
	for i, st := range attemptStates {
		if st == s && i+1 < variants {
			return attemptStates[i+1]
		}
	}
	return Resolved
}

// Attempt is the value recorded for one variant try
type Attempt struct {
	State   State
	Variant VariantName
	Matched bool
	Err     *ParseError
}

// Resolution is the full trace of resolving one record
type Resolution struct {
	Record   types.Record
	Outcome  types.Outcome
	Attempts []Attempt
	State    State
	Skipped  bool
	Err      *ParseError // record failure, nil unless Outcome is Failed
}

// Resolver runs the grammar cascade over records. It holds no per-record
// state and is safe for concurrent use.
type Resolver struct {
	variants   []Variant
	classifier *classification.Classifier
	skip       map[int64]struct{}
	logger     *zap.SugaredLogger
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithVariants replaces the default cascade. The first variant's diagnostic
// becomes the failure reason when nothing matches.
func WithVariants(variants ...Variant) ResolverOption {
	return func(r *Resolver) {
		r.variants = append([]Variant{}, variants...)
	}
}

// WithClassifier sets the post-parse anomaly classifier
func WithClassifier(c *classification.Classifier) ResolverOption {
	return func(r *Resolver) {
		r.classifier = c
	}
}

// WithSkipIDs sets the allow-list of record ids that are never parsed
func WithSkipIDs(ids ...int64) ResolverOption {
	return func(r *Resolver) {
		for _, id := range ids {
			r.skip[id] = struct{}{}
		}
	}
}

// WithResolverLogger enables variant-attempt debug logging
func WithResolverLogger(l *zap.SugaredLogger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver creates a resolver over the default variants, vocabulary and
// classifier unless overridden
func NewResolver(opts ...ResolverOption) (*Resolver, error) {
	r := &Resolver{skip: make(map[int64]struct{})}
	for _, opt := range opts {
		opt(r)
	}
	if r.variants == nil {
		r.variants = DefaultVariants(nil)
	}
	if len(r.variants) == 0 || len(r.variants) > len(attemptStates) {
		return nil, errors.NewInvalidRequestError("cascade needs 1 to %d variants, got %d", len(attemptStates), len(r.variants))
	}
	if r.classifier == nil {
		r.classifier = classification.Default()
	}
	if r.logger == nil {
		r.logger = zap.NewNop().Sugar()
	}
	return r, nil
}

// Variants returns the cascade order
func (r *Resolver) Variants() []VariantName {
	names := make([]VariantName, len(r.variants))
	for i, v := range r.variants {
		names[i] = v.Name()
	}
	return names
}

// Skipped reports whether id is on the allow-list
func (r *Resolver) Skipped(id int64) bool {
	_, ok := r.skip[id]
	return ok
}

// Resolve returns the outcome for rec. ok is false when the record is
// allow-listed and was not parsed.
func (r *Resolver) Resolve(rec types.Record) (types.Outcome, bool) {
	res := r.Trace(rec)
	return res.Outcome, !res.Skipped
}

// Trace resolves rec and keeps every attempt. Each variant starts from the
// beginning of the text; nothing is shared between attempts.
func (r *Resolver) Trace(rec types.Record) Resolution {
	res := Resolution{Record: rec, State: Unattempted}
	if r.Skipped(rec.ID) {
		res.Skipped = true
		return res
	}

	for i, state := 0, res.State.next(len(r.variants)); state != Resolved; i, state = i+1, state.next(len(r.variants)) {
		v := r.variants[i]
		res.State = state
		facets, perr := v.Match(rec.Text)
		res.Attempts = append(res.Attempts, Attempt{State: state, Variant: v.Name(), Matched: perr == nil, Err: perr})

		if perr != nil {
			logger.GrammarDebugw(r.logger, "Variant did not match",
				logger.FieldRecordID, rec.ID,
				logger.FieldVariant, string(v.Name()),
				logger.FieldReason, perr.Error())
			continue
		}

		reasons := r.classifier.Classify(facets)
		res.Outcome = types.NewParsed(v.Name(), facets, reasons)
		res.State = Resolved
		logger.GrammarDebugw(r.logger, "Variant matched",
			logger.FieldRecordID, rec.ID,
			logger.FieldVariant, string(v.Name()),
			logger.FieldOutcome, string(res.Outcome.Kind))
		return res
	}

	res.State = Resolved
	res.Err = recordFailure(res.Attempts[0].Err)
	res.Outcome = types.NewFailed(res.Err.Reason())
	return res
}

// recordFailure lifts the default variant's diagnostic to a record failure
func recordFailure(def *ParseError) *ParseError {
	e := *def
	e.Kind = ErrorKindRecord
	e.Err = def
	e.Expected = append([]string(nil), def.Expected...)
	e.Suggestions = append([]string(nil), def.Suggestions...)
	return &e
}
