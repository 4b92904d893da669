package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLabelSet(t *testing.T) {
	tests := []struct {
		input    string
		expected LabelSet
	}{
		{input: "", expected: LabelSet{}},
		{input: "A", expected: LabelSet{"A"}},
		{input: " A | B ", expected: LabelSet{"A", "B"}},
		{input: "A||B|", expected: LabelSet{"A", "B"}},
		{input: "B|A|B", expected: LabelSet{"B", "A"}},
		{input: " | ", expected: LabelSet{}},
	}
	for _, tt := range tests {
		require.Equal(t, tt.expected, ParseLabelSet(tt.input), "input %q", tt.input)
	}
}

func TestLabelSet_RoundTrip(t *testing.T) {
	sets := []LabelSet{
		{},
		{"Economic"},
		{"Economic", "Morality", "Policy prescription and evaluation"},
	}
	for _, set := range sets {
		require.ElementsMatch(t, set, ParseLabelSet(set.String()))
	}
}

func TestNormalizeDelimiter(t *testing.T) {
	require.Equal(t, "A|B|C", NormalizeDelimiter("A;B|C"))
	require.Equal(t, LabelSet{"A", "B"}, ParseLabelSet(NormalizeDelimiter("A; B")))
}

func TestLabelSet_Primary(t *testing.T) {
	_, ok := LabelSet{}.Primary()
	require.False(t, ok)
	label, ok := ParseLabelSet("B|A").Primary()
	require.True(t, ok)
	require.Equal(t, "B", label)
}

func TestBuildVocabulary(t *testing.T) {
	sets := []LabelSet{ParseLabelSet("A|B"), ParseLabelSet("B|C"), ParseLabelSet("")}
	v := BuildVocabulary(sets)
	require.Equal(t, map[string]int{"A": 0, "B": 1, "C": 2}, v.LabelToID())
	require.Equal(t, map[string]string{"0": "A", "1": "B", "2": "C"}, v.IDToLabel())
	require.Equal(t, 3, v.Size())
}

func TestBuildVocabulary_OrderIndependent(t *testing.T) {
	first := BuildVocabulary([]LabelSet{ParseLabelSet("Z|A"), ParseLabelSet("M")}, []LabelSet{ParseLabelSet("Q")})
	second := BuildVocabulary([]LabelSet{ParseLabelSet("Q")}, []LabelSet{ParseLabelSet("M"), ParseLabelSet("A|Z")})
	require.Equal(t, first.LabelToID(), second.LabelToID())
	require.Equal(t, []string{"A", "M", "Q", "Z"}, first.Labels())
}

func TestVocabulary_UnknownLabel(t *testing.T) {
	v := NewVocabulary([]string{"B", "A"})
	require.Equal(t, UnknownIndex, v.Index("Z"))
	require.Equal(t, 0, v.Index("A"))
	_, ok := v.Label(UnknownIndex)
	require.False(t, ok)
	_, ok = v.Label(2)
	require.False(t, ok)
}

func TestVocabulary_LabelsFor(t *testing.T) {
	v := NewVocabulary([]string{"A", "B", "C"})
	labels, err := v.LabelsFor([]int{2, 0})
	require.NoError(t, err)
	require.Equal(t, LabelSet{"C", "A"}, labels)

	_, err = v.LabelsFor([]int{3})
	require.Error(t, err)
}

func TestVocabularyFromLabelToID(t *testing.T) {
	v, err := VocabularyFromLabelToID(map[string]int{"B": 1, "A": 0, "C": 2})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C"}, v.Labels())

	_, err = VocabularyFromLabelToID(map[string]int{"A": 0, "B": 0})
	require.Error(t, err)

	_, err = VocabularyFromLabelToID(map[string]int{"A": 0, "B": 5})
	require.Error(t, err)
}
