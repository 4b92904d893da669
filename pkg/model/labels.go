package model

import "strings"

// Separator joins the labels of a LabelSet in its serialized form.
const Separator = "|"

// alternateSeparator is accepted in raw data and rewritten to Separator on load.
const alternateSeparator = ";"

// LabelSet is the collection of labels attached to one document. The order
// is the order in which labels were serialized or selected, and the first
// label is the document's primary label.
type LabelSet []string

// ParseLabelSet decodes a serialized label set. Tokens are trimmed, empty
// tokens and repeated labels are dropped, so "" decodes to an empty set.
func ParseLabelSet(value string) LabelSet {
	result := LabelSet{}
	seen := map[string]struct{}{}
	for _, token := range strings.Split(value, Separator) {
		label := strings.TrimSpace(token)
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		result = append(result, label)
	}
	return result
}

// NormalizeDelimiter rewrites the alternate ';' delimiter to Separator.
func NormalizeDelimiter(value string) string {
	return strings.ReplaceAll(value, alternateSeparator, Separator)
}

func (s LabelSet) String() string {
	return strings.Join(s, Separator)
}

// Primary returns the first label of the set, or false for an empty set.
func (s LabelSet) Primary() (string, bool) {
	if len(s) == 0 {
		return "", false
	}
	return s[0], true
}

func (s LabelSet) Contains(label string) bool {
	for _, l := range s {
		if l == label {
			return true
		}
	}
	return false
}
