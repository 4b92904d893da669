package model

import (
	"fmt"

	"github.com/nlpodyssey/spago/pkg/mat"
	"github.com/nlpodyssey/spago/pkg/ml/ag"
	"gonum.org/v1/gonum/floats"
)

// LogitScale stretches cosine similarities into a range where the sigmoid
// and softmax of the logits are informative.
const LogitScale = 10.0

// DefaultFeatureDimension is the hashed feature size used when none is configured.
const DefaultFeatureDimension = 4096

// Model is a linear text classifier over hashed bag-of-words features with
// one output per vocabulary label.
type Model struct {
	MetaData *Metadata

	// Weights holds one row of FeatureDimension values per label
	Weights [][]float64

	// Bias holds one value per label
	Bias []float64

	vocabulary *Vocabulary
}

// Vocabulary returns the label vocabulary the outputs are aligned to.
func (m *Model) Vocabulary() *Vocabulary {
	return m.vocabulary
}

// SetVocabulary binds the persisted label vocabulary to the model, checking
// that it matches the output layer.
func (m *Model) SetVocabulary(v *Vocabulary) error {
	if v.Size() != len(m.Weights) {
		return fmt.Errorf("vocabulary has %d labels but model %s has %d outputs", v.Size(), m.MetaData.Name, len(m.Weights))
	}
	m.vocabulary = v
	return nil
}

// Logits computes the raw per-label outputs for each text, in input order.
func (m *Model) Logits(texts []string) [][]float64 {
	result := make([][]float64, len(texts))
	if len(texts) == 0 || len(m.Weights) == 0 {
		for i := range result {
			result[i] = []float64{}
		}
		return result
	}

	g := ag.NewGraph()
	defer g.Clear()

	dim := m.MetaData.FeatureDimension
	flat := make([]float64, 0, len(m.Weights)*dim)
	for _, row := range m.Weights {
		flat = append(flat, row...)
	}
	w := g.NewVariable(mat.NewDense(len(m.Weights), dim, flat), false)
	b := g.NewVariable(mat.NewVecDense(append([]float64(nil), m.Bias...)), false)

	for i, text := range texts {
		x := g.NewVariable(mat.NewVecDense(Featurize(text, dim)), false)
		y := g.Add(g.Mul(w, x), b)
		result[i] = append([]float64(nil), y.Value().Data()...)
	}
	return result
}

// Train fits one centroid per label. A label's bias places the decision
// boundary (logit 0) halfway between the mean similarity of the documents
// carrying the label and of those that don't.
func Train(metaData *Metadata, vocabulary *Vocabulary, texts []string, labels []LabelSet) (*Model, error) {
	if len(texts) != len(labels) {
		return nil, fmt.Errorf("got %d texts but %d label sets", len(texts), len(labels))
	}
	if metaData.FeatureDimension <= 0 {
		metaData.FeatureDimension = DefaultFeatureDimension
	}
	metaData.NumLabels = vocabulary.Size()
	dim := metaData.FeatureDimension

	features := make([][]float64, len(texts))
	for i, text := range texts {
		features[i] = Featurize(text, dim)
	}

	m := &Model{
		MetaData:   metaData,
		Weights:    make([][]float64, vocabulary.Size()),
		Bias:       make([]float64, vocabulary.Size()),
		vocabulary: vocabulary,
	}

	for index, label := range vocabulary.Labels() {
		centroid := make([]float64, dim)
		var positives []int
		for i, set := range labels {
			if set.Contains(label) {
				floats.Add(centroid, features[i])
				positives = append(positives, i)
			}
		}
		norm := floats.Norm(centroid, 2)
		if len(positives) == 0 || norm == 0 {
			// Labels only seen in evaluation data never fire.
			m.Weights[index] = centroid
			m.Bias[index] = -LogitScale
			continue
		}
		floats.Scale(1/norm, centroid)

		positiveMean, negativeMean := 0.0, 0.0
		negatives := 0
		for i := range features {
			similarity := floats.Dot(features[i], centroid)
			if labels[i].Contains(label) {
				positiveMean += similarity
			} else {
				negativeMean += similarity
				negatives++
			}
		}
		positiveMean /= float64(len(positives))
		if negatives > 0 {
			negativeMean /= float64(negatives)
		}

		floats.Scale(LogitScale, centroid)
		m.Weights[index] = centroid
		m.Bias[index] = -LogitScale * (positiveMean + negativeMean) / 2
	}
	return m, nil
}
