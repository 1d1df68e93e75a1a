package parser

import (
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/types"
)

// numericComparer lets cmp look past Numeric's cached magnitude
var numericComparer = cmp.Comparer(func(a, b types.Numeric) bool { return a.Equal(b) })

func dim(literal string, unit *types.Unit, context *string) types.Dimension {
	return types.Dimension{Value: types.MustParseNumeric(literal), Unit: unit, Context: context}
}

func TestMimsyExampleOverall(t *testing.T) {
	in, cm := types.Inch.Ptr(), types.Cm.Ptr()
	facets, perr := NewMimsy(nil).Match("Overall: 5 3/4 in x 12 1/4 in x 9 1/8 in; 14.6 cm x 31.1 cm x 23.2 cm")
	require.Nil(t, perr)

	want := []types.Facet{{
		TypeLabel: types.StringPtr("Overall"),
		Volumes: []types.Volume{
			{dim("5 3/4", in, nil), dim("12 1/4", in, nil), dim("9 1/8", in, nil)},
			{dim("14.6", cm, nil), dim("31.1", cm, nil), dim("23.2", cm, nil)},
		},
	}}
	if diff := cmp.Diff(want, facets, numericComparer); diff != "" {
		t.Errorf("Match() mismatch (-want +got):\n%s", diff)
	}
}

func TestMimsy(t *testing.T) {
	tests := []struct {
		input  string
		labels []string // "" for an absent label
		dims   int
	}{
		{"1 in", []string{""}, 1},
		{"2 x 3 inches", []string{""}, 2},
		{"20 1/2 x 15 in.; 52.07 x 38.1 cm", []string{""}, 4},
		{"sheet: 13 x 17 1/2 in", []string{"sheet"}, 2},
		{"sheet: 13 x 17 1/2 in.; stone: 10 x 12 1/4 in.", []string{"sheet", "stone"}, 4},
		{"sheet: 13 x 17 in stone: 10 in", []string{"sheet", "stone"}, 3},
		{"image: 5 x 7 in; sheet: 8 x 10 in;", []string{"image", "sheet"}, 4},
		{"canvas (semi-circular): 26 x 52 in.", []string{"canvas (semi-circular)"}, 2},
		{"  Frame:: 30 x 24 x 2 in.  ", []string{"Frame"}, 3},
		{"5 in. diameter x 7 in", []string{""}, 2},
		{`1' 3/4" x 2 ft. 1/2 in`, []string{""}, 4},
	}

	m := NewMimsy(nil)
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			facets, perr := m.Match(tt.input)
			require.Nil(t, perr, "unexpected failure: %v", perr)
			var labels []string
			for _, f := range facets {
				labels = append(labels, f.Label())
			}
			assert.Equal(t, tt.labels, labels)
			assert.Equal(t, tt.dims, types.DimensionCount(facets))
		})
	}
}

func TestMimsyDiagnostic(t *testing.T) {
	text := "5/8 in. diameter; 1.5875 cm, weight 3.8 gm., diexis 0"
	_, perr := NewMimsy(nil).Match(text)
	require.NotNil(t, perr)

	assert.Equal(t, ErrorKindVariantMismatch, perr.Kind)
	assert.Equal(t, types.VariantMimsy, perr.Variant)
	assert.Equal(t, 27, perr.Offset)
	assert.Equal(t, 28, perr.Column)
	assert.Equal(t, []string{expectNumeric, expectEndOfText}, perr.Expected)
	assert.Equal(t, "','", perr.Found)
	assert.Equal(t, "Expected numeric literal or end of text, found ',' (at char 27), (line:1, col:28)", perr.Error())
	assert.True(t, errors.Is(perr, ErrLexFailure))
}

func TestMimsyRejects(t *testing.T) {
	for _, input := range []string{"", "   ", "unknown", "5 x 3 in, approx", "sheet:", "5 x 3."} {
		t.Run(input, func(t *testing.T) {
			facets, perr := NewMimsy(nil).Match(input)
			assert.Nil(t, facets)
			require.NotNil(t, perr)
			assert.NotEmpty(t, perr.Expected)
		})
	}
}

func TestDieAxisExample(t *testing.T) {
	facets, perr := NewDieAxis(nil).Match("5/8 in. diameter; 1.5875 cm, weight 3.8 gm., diexis 0")
	require.Nil(t, perr)

	want := []types.Facet{{
		TypeLabel: types.StringPtr(DieAxisLabel),
		Volumes: []types.Volume{
			{dim("5/8", types.Inch.Ptr(), types.StringPtr("diameter"))},
			{dim("1.5875", types.Cm.Ptr(), nil)},
			{dim("3.8", types.Gm.Ptr(), types.StringPtr("weight"))},
			{dim("0", nil, types.StringPtr("die axis"))},
		},
	}}
	if diff := cmp.Diff(want, facets, numericComparer); diff != "" {
		t.Errorf("Match() mismatch (-want +got):\n%s", diff)
	}
}

func TestDieAxisSpellings(t *testing.T) {
	for _, input := range []string{
		"1 in; 2.54 cm, weight 10 g, die axis 180",
		"1 in 2.54 cm; weight: 10 g; die-axis: 6",
		"1 in; 2.54 cm, Weight 10 g, DIE; AXIS 12",
		"1 in; 2.54 cm, weight 10 g, dieaxis 90°",
		"1 in; 2.54 cm weight 10 g diexis 0",
	} {
		t.Run(input, func(t *testing.T) {
			facets, perr := NewDieAxis(nil).Match(input)
			require.Nil(t, perr, "unexpected failure: %v", perr)
			require.Len(t, facets, 1)
			assert.Len(t, facets[0].Volumes, 4)
		})
	}
}

func TestDieAxisRequiresLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 in; 2.54 cm, 10 g, die axis 0", expectWeight},
		{"1 in; 2.54 cm, weight 10 g, axis 0", expectDieAxis},
		{"1 in; 2.54 cm, mass 10 g, die axis 0", expectWeight},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, perr := NewDieAxis(nil).Match(tt.input)
			require.NotNil(t, perr)
			assert.Contains(t, perr.Expected, tt.expected)
		})
	}
}

func TestDeerfieldExample(t *testing.T) {
	in, cm := types.Inch.Ptr(), types.Cm.Ptr()
	facets, perr := NewDeerfield(nil).Match("overall: teacup - 1 3/4 in x 2 15/16 in; 4.445 cm x 7.46125 cm; saucer: 1 in x 4 3/4 in")
	require.Nil(t, perr)

	want := []types.Facet{
		{
			TypeLabel: types.StringPtr("teacup"),
			Volumes: []types.Volume{
				{dim("1 3/4", in, nil), dim("2 15/16", in, nil)},
				{dim("4.445", cm, nil), dim("7.46125", cm, nil)},
			},
		},
		{
			TypeLabel: types.StringPtr("saucer"),
			Volumes:   []types.Volume{{dim("1", in, nil), dim("4 3/4", in, nil)}},
		},
	}
	if diff := cmp.Diff(want, facets, numericComparer); diff != "" {
		t.Errorf("Match() mismatch (-want +got):\n%s", diff)
	}
}

func TestDeerfield(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"OVERALL: cup: 3 in", true},
		{"Overall : bowl 2 x 6 in; plate - 1 x 9 in", true},
		{"overall: lid 1 in;", true},
		{"teacup - 3 in", false},
		{"overall: tea-cup - 3 in", false},
		{"overall: 3 in", false},
		{"overall", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, perr := NewDeerfield(nil).Match(tt.input)
			if tt.ok {
				assert.Nil(t, perr, "unexpected failure: %v", perr)
			} else {
				assert.NotNil(t, perr)
			}
		})
	}
}

func TestDeerfieldPrefixDiagnostic(t *testing.T) {
	_, perr := NewDeerfield(nil).Match("sheet: 3 in")
	require.NotNil(t, perr)
	assert.Equal(t, []string{expectOverall}, perr.Expected)
	assert.Equal(t, 0, perr.Offset)
}

var numericLiteral = regexp.MustCompile(`\.?\d+(?:\.\d+)?(?:/\d+)?(?:\s+\d+/\d+)?`)

// Every numeric literal in the text becomes exactly one dimension
func TestMimsyPreservesDimensionCount(t *testing.T) {
	inputs := []string{
		"Overall: 5 3/4 in x 12 1/4 in x 9 1/8 in; 14.6 cm x 31.1 cm x 23.2 cm",
		"sheet: 13 x 17 1/2 in.; stone: 10 x 12 1/4 in.",
		"35 1/2  18 in.",
		".875 x .5 in.",
		"image: 5 x 7 in; sheet: 8 x 10 in; mat: 16 x 20 in",
		"2 x 3 x 5 inches",
		"10.4 m. x 15 cm",
		"x 5 x 3 in x",
		"12 in (approx.) x 8 in. at highest point",
	}

	m := NewMimsy(nil)
	for _, input := range inputs {
		facets, perr := m.Match(input)
		require.Nil(t, perr, "%s: %v", input, perr)
		assert.Equal(t, len(numericLiteral.FindAllString(input, -1)), types.DimensionCount(facets), input)
	}
}
