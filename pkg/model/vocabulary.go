package model

import (
	"fmt"
	"sort"
	"strconv"
)

// UnknownIndex is returned for labels that are not part of a vocabulary.
const UnknownIndex = -1

// Vocabulary implements an immutable bidirectional mapping between a label
// and a dense index in 0..Size()-1.
type Vocabulary struct {
	nameToIndex map[string]int
	indexToName []string
}

// BuildVocabulary collects every label of the given label sets, sorts them
// and assigns indexes by sorted position. The result does not depend on the
// order of the sets.
func BuildVocabulary(labelSets ...[]LabelSet) *Vocabulary {
	unique := map[string]struct{}{}
	for _, sets := range labelSets {
		for _, set := range sets {
			for _, label := range set {
				unique[label] = struct{}{}
			}
		}
	}
	labels := make([]string, 0, len(unique))
	for label := range unique {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return newVocabulary(labels)
}

// NewVocabulary builds a vocabulary from a list of candidate labels, with the
// same normalization as BuildVocabulary.
func NewVocabulary(labels []string) *Vocabulary {
	return BuildVocabulary([]LabelSet{ParseLabelSet(LabelSet(labels).String())})
}

func newVocabulary(sorted []string) *Vocabulary {
	v := &Vocabulary{
		nameToIndex: make(map[string]int, len(sorted)),
		indexToName: sorted,
	}
	for i, label := range sorted {
		v.nameToIndex[label] = i
	}
	return v
}

// Index returns the index of label, or UnknownIndex.
func (v *Vocabulary) Index(label string) int {
	index, ok := v.nameToIndex[label]
	if !ok {
		return UnknownIndex
	}
	return index
}

// Label returns the label at index.
func (v *Vocabulary) Label(index int) (string, bool) {
	if index < 0 || index >= len(v.indexToName) {
		return "", false
	}
	return v.indexToName[index], true
}

func (v *Vocabulary) Size() int {
	return len(v.indexToName)
}

// Labels returns a copy of the labels in index order.
func (v *Vocabulary) Labels() []string {
	result := make([]string, len(v.indexToName))
	copy(result, v.indexToName)
	return result
}

// LabelsFor maps indexes back to a LabelSet, preserving their order.
func (v *Vocabulary) LabelsFor(indexes []int) (LabelSet, error) {
	result := make(LabelSet, 0, len(indexes))
	for _, i := range indexes {
		label, ok := v.Label(i)
		if !ok {
			return nil, fmt.Errorf("index %d out of range for vocabulary of size %d", i, v.Size())
		}
		result = append(result, label)
	}
	return result, nil
}

// LabelToID returns the label→index table persisted next to a trained model.
func (v *Vocabulary) LabelToID() map[string]int {
	result := make(map[string]int, len(v.nameToIndex))
	for label, i := range v.nameToIndex {
		result[label] = i
	}
	return result
}

// IDToLabel returns the index→label table with string keys, as found in JSON.
func (v *Vocabulary) IDToLabel() map[string]string {
	result := make(map[string]string, len(v.indexToName))
	for i, label := range v.indexToName {
		result[strconv.Itoa(i)] = label
	}
	return result
}

// VocabularyFromLabelToID rebuilds a vocabulary from a persisted label→index
// table. The indexes must be a permutation of 0..N-1.
func VocabularyFromLabelToID(table map[string]int) (*Vocabulary, error) {
	labels := make([]string, len(table))
	filled := make([]bool, len(table))
	for label, i := range table {
		if i < 0 || i >= len(table) {
			return nil, fmt.Errorf("label %q has index %d outside 0..%d", label, i, len(table)-1)
		}
		if filled[i] {
			return nil, fmt.Errorf("index %d assigned to more than one label", i)
		}
		labels[i] = label
		filled[i] = true
	}
	return newVocabulary(labels), nil
}
