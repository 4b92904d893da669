package model

import "fmt"

// Metadata describes what a trained text model predicts and how its raw
// outputs must be read.
type Metadata struct {
	// Name is the short model name used in artifact filenames, e.g. "labelframes"
	Name string

	// TargetColumn is the data column holding the label level the model was trained on
	TargetColumn string

	// MultiLabel is set when the outputs are independent per-label logits
	// (sigmoid) rather than one class distribution (softmax)
	MultiLabel bool

	// FeatureDimension is the size of the hashed bag-of-words input
	FeatureDimension int

	// NumLabels is the vocabulary size the output layer was built for
	NumLabels int
}

// LabelToIDFile is the name of the persisted label→index table.
func (m *Metadata) LabelToIDFile() string {
	return fmt.Sprintf("label2id_%s.json", m.Name)
}

// IDToLabelFile is the name of the persisted index→label table.
func (m *Metadata) IDToLabelFile() string {
	return fmt.Sprintf("id2label_%s.json", m.Name)
}

// ShortName returns the artifact name for a label column.
func ShortName(column string) string {
	if column == "LabelFrames" {
		return "labelframes"
	}
	if column == "TopLabelFrames" {
		return "topframes"
	}
	return sanitize(column)
}

func sanitize(column string) string {
	result := make([]rune, 0, len(column))
	for _, r := range column {
		switch {
		case r >= 'A' && r <= 'Z':
			result = append(result, r+('a'-'A'))
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			result = append(result, r)
		default:
			result = append(result, '_')
		}
	}
	return string(result)
}
