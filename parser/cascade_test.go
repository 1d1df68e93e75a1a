package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/measure/classification"
	"github.com/teranos/measure/types"
)

// stubVariant matches (or refuses) every text
type stubVariant struct {
	name  VariantName
	match bool
	calls int
}

func (s *stubVariant) Name() VariantName { return s.name }

func (s *stubVariant) Match(text string) ([]types.Facet, *ParseError) {
	s.calls++
	if !s.match {
		return nil, NewParseError(ErrorKindVariantMismatch, "stub "+string(s.name)+" refused").
			WithVariant(s.name).WithPosition(text, 0)
	}
	return []types.Facet{{Volumes: []types.Volume{{{Value: types.MustParseNumeric("1")}}}}}, nil
}

func newTestResolver(t *testing.T, opts ...ResolverOption) *Resolver {
	t.Helper()
	r, err := NewResolver(opts...)
	require.NoError(t, err)
	return r
}

func TestResolveExamples(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		kind    types.OutcomeKind
		variant VariantName
		facets  int
		tooMany bool
		mixed   bool
	}{
		{
			name:    "overall with two unit systems",
			text:    "Overall: 5 3/4 in x 12 1/4 in x 9 1/8 in; 14.6 cm x 31.1 cm x 23.2 cm",
			kind:    types.Parsed,
			variant: types.VariantMimsy,
			facets:  1,
		},
		{
			name:    "numismatic die axis",
			text:    "5/8 in. diameter; 1.5875 cm, weight 3.8 gm., diexis 0",
			kind:    types.Parsed,
			variant: types.VariantDieAxis,
			facets:  1,
		},
		{
			name:    "historic deerfield",
			text:    "overall: teacup - 1 3/4 in x 2 15/16 in; 4.445 cm x 7.46125 cm; saucer: 1 in x 4 3/4 in",
			kind:    types.Parsed,
			variant: types.VariantDeerfield,
			facets:  2,
		},
		{
			name:    "six dimensions in one volume",
			text:    "Overall: 1 x 2 x 3 x 4 x 5 x 6 in",
			kind:    types.Anomalous,
			variant: types.VariantMimsy,
			facets:  1,
			tooMany: true,
		},
		{
			name:    "inches and centimetres in one volume",
			text:    "10 in x 25.4 cm",
			kind:    types.Anomalous,
			variant: types.VariantMimsy,
			facets:  1,
			mixed:   true,
		},
		{
			name: "malformed",
			text: "see file",
			kind: types.Failed,
		},
	}

	r := newTestResolver(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := r.Resolve(types.Record{ID: 1, Text: tt.text})
			require.True(t, ok)
			assert.Equal(t, tt.kind, out.Kind)
			assert.Equal(t, tt.variant, out.Variant)
			assert.Len(t, out.Facets, tt.facets)
			assert.Equal(t, tt.tooMany, out.Anomalies.TooManyDimensions)
			assert.Equal(t, tt.mixed, out.Anomalies.InconsistentUnits)
			if tt.kind == types.Failed {
				require.NotNil(t, out.Failure)
				assert.Equal(t, types.VariantMimsy, out.Failure.Variant)
				assert.Equal(t, string(ErrorKindRecord), out.Failure.Kind)
			} else {
				assert.Nil(t, out.Failure)
			}
		})
	}
}

func TestAnomalousKeepsData(t *testing.T) {
	out, _ := newTestResolver(t).Resolve(types.Record{ID: 4, Text: "Overall: 1 x 2 x 3 x 4 x 5 x 6 in"})
	require.Equal(t, types.Anomalous, out.Kind)
	require.Len(t, out.Facets, 1)
	assert.Len(t, out.Facets[0].Volumes[0], 6)
	assert.Equal(t, "Overall", out.Facets[0].Label())
}

func TestTraceStates(t *testing.T) {
	r := newTestResolver(t)

	res := r.Trace(types.Record{ID: 2, Text: "overall: teacup - 1 in; saucer: 2 in"})
	assert.Equal(t, Resolved, res.State)
	require.Len(t, res.Attempts, 3)
	assert.Equal(t, []State{TryDefault, TryDieAxis, TryHistoric},
		[]State{res.Attempts[0].State, res.Attempts[1].State, res.Attempts[2].State})
	assert.False(t, res.Attempts[0].Matched)
	assert.False(t, res.Attempts[1].Matched)
	assert.True(t, res.Attempts[2].Matched)
	assert.Nil(t, res.Err)

	res = r.Trace(types.Record{ID: 3, Text: "5 x 3 in"})
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, TryDefault, res.Attempts[0].State)
}

func TestFailureUsesDefaultDiagnostic(t *testing.T) {
	res := newTestResolver(t).Trace(types.Record{ID: 9, Text: "5 x 3 in, approx"})
	require.Equal(t, types.Failed, res.Outcome.Kind)
	require.Len(t, res.Attempts, 3)
	require.NotNil(t, res.Err)

	def := res.Attempts[0].Err
	assert.Equal(t, def.Offset, res.Outcome.Failure.Offset)
	assert.Equal(t, def.Expected, res.Outcome.Failure.Expected)
	assert.Equal(t, ErrorKindRecord, res.Err.Kind)
	assert.Equal(t, ErrorKindVariantMismatch, def.Kind, "default diagnostic must not be mutated")
	assert.Equal(t, "Expected numeric literal or end of text, found ',' (at char 8), (line:1, col:9)", res.Outcome.Failure.String())
}

func TestResolveIsIdempotent(t *testing.T) {
	r := newTestResolver(t)
	for _, text := range []string{
		"Overall: 5 3/4 in x 12 1/4 in x 9 1/8 in; 14.6 cm x 31.1 cm x 23.2 cm",
		"5/8 in. diameter; 1.5875 cm, weight 3.8 gm., diexis 0",
		"10 in x 25.4 cm",
		"see file",
	} {
		rec := types.Record{ID: 1, Text: text}
		first, _ := r.Resolve(rec)
		second, _ := r.Resolve(rec)
		if diff := cmp.Diff(first, second, numericComparer); diff != "" {
			t.Errorf("%q resolved differently (-first +second):\n%s", text, diff)
		}
	}
}

// A string that satisfies both the default and die-axis grammars resolves
// through the default because it is tried first
func TestCascadeOrder(t *testing.T) {
	text := "1 in; 2 cm; weight 3 g; diexis 4"

	_, perr := NewDieAxis(nil).Match(text)
	require.Nil(t, perr, "text must also satisfy the die-axis grammar")

	out, _ := newTestResolver(t).Resolve(types.Record{ID: 1, Text: text})
	assert.Equal(t, types.VariantMimsy, out.Variant)
}

func TestCascadeOrderWithStubs(t *testing.T) {
	first := &stubVariant{name: "first"}
	second := &stubVariant{name: "second", match: true}
	third := &stubVariant{name: "third", match: true}

	r := newTestResolver(t, WithVariants(first, second, third))
	for i := 0; i < 3; i++ {
		out, _ := r.Resolve(types.Record{ID: 1, Text: "anything"})
		assert.Equal(t, VariantName("second"), out.Variant)
	}
	assert.Equal(t, 3, first.calls)
	assert.Equal(t, 3, second.calls)
	assert.Equal(t, 0, third.calls, "later variants are never tried after a match")

	none := newTestResolver(t, WithVariants(&stubVariant{name: "a"}, &stubVariant{name: "b"}))
	out, _ := none.Resolve(types.Record{ID: 1, Text: "anything"})
	assert.Equal(t, types.Failed, out.Kind)
	assert.Equal(t, "stub a refused (at char 0), (line:1, col:1)", out.Failure.String())
}

func TestNewResolverValidation(t *testing.T) {
	_, err := NewResolver(WithVariants())
	assert.Error(t, err)

	v := &stubVariant{name: "v"}
	_, err = NewResolver(WithVariants(v, v, v, v))
	assert.Error(t, err)

	r := newTestResolver(t)
	assert.Equal(t, VariantNames, r.Variants())
}

func TestSkipList(t *testing.T) {
	stub := &stubVariant{name: "only", match: true}
	r := newTestResolver(t, WithVariants(stub), WithSkipIDs(7, 11))

	assert.True(t, r.Skipped(7))
	assert.False(t, r.Skipped(8))

	_, ok := r.Resolve(types.Record{ID: 7, Text: "5 in"})
	assert.False(t, ok)
	assert.Equal(t, 0, stub.calls, "skipped records are never parsed")

	res := r.Trace(types.Record{ID: 11, Text: "5 in"})
	assert.True(t, res.Skipped)
	assert.Equal(t, Unattempted, res.State)

	_, ok = r.Resolve(types.Record{ID: 8, Text: "5 in"})
	assert.True(t, ok)
}

func TestClassifierThreshold(t *testing.T) {
	r := newTestResolver(t, WithClassifier(classification.New(2)))
	out, _ := r.Resolve(types.Record{ID: 1, Text: "1 x 2 x 3 in"})
	assert.Equal(t, types.Anomalous, out.Kind)
	assert.True(t, out.Anomalies.TooManyDimensions)
}

func TestResolverLogsAttempts(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := newTestResolver(t, WithResolverLogger(zap.New(core).Sugar()))

	r.Resolve(types.Record{ID: 5, Text: "5/8 in. diameter; 1.5875 cm, weight 3.8 gm., diexis 0"})
	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "Variant did not match", entries[0].Message)
	assert.Equal(t, "Variant matched", entries[1].Message)
	assert.Equal(t, "diexis", entries[1].ContextMap()["variant"])
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "try-die-axis", TryDieAxis.String())
	assert.Equal(t, "state(42)", State(42).String())
	assert.Equal(t, Resolved, TryDefault.next(1))
	assert.Equal(t, TryDieAxis, TryDefault.next(3))
	assert.Equal(t, Resolved, TryHistoric.next(3))
}
