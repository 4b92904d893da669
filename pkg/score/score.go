// Package score turns heterogeneous raw model outputs into per-label score
// vectors aligned to a label vocabulary.
package score

import (
	"fmt"

	"github.com/nlpodyssey/spago/pkg/mat"
	"github.com/nlpodyssey/spago/pkg/ml/ag"

	"framer/pkg/model"
)

// Kind tags the variant held by a Source.
type Kind int

const (
	// Logits holds one raw output per vocabulary index.
	Logits Kind = iota
	// RankedPairs holds (label, score) pairs from a zero-shot scorer.
	RankedPairs
)

func (k Kind) String() string {
	switch k {
	case Logits:
		return "logits"
	case RankedPairs:
		return "ranked-pairs"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Pair is one candidate label and its score.
type Pair struct {
	Label string
	Score float64
}

// Source is the raw output of a scorer for one document.
type Source struct {
	Kind   Kind
	Logits []float64
	Pairs  []Pair
}

func FromLogits(logits []float64) Source {
	return Source{Kind: Logits, Logits: logits}
}

// FromRankedPairs zips the parallel label and score lists returned by a
// zero-shot scorer.
func FromRankedPairs(labels []string, scores []float64) (Source, error) {
	if len(labels) != len(scores) {
		return Source{}, fmt.Errorf("got %d labels but %d scores", len(labels), len(scores))
	}
	pairs := make([]Pair, len(labels))
	for i := range labels {
		pairs[i] = Pair{Label: labels[i], Score: scores[i]}
	}
	return Source{Kind: RankedPairs, Pairs: pairs}, nil
}

// Mode selects how a Source is read.
type Mode int

const (
	MultiLabelLogits Mode = iota
	SingleLabelLogits
	NLIRanked
)

func (m Mode) String() string {
	switch m {
	case MultiLabelLogits:
		return "multi-label-logits"
	case SingleLabelLogits:
		return "single-label-logits"
	case NLIRanked:
		return "nli-ranked"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func (m Mode) accepts(k Kind) bool {
	if m == NLIRanked {
		return k == RankedPairs
	}
	return k == Logits
}

// Vector holds one confidence in [0,1] per vocabulary index.
type Vector []float64

// Normalizer converts sources into vectors for one vocabulary and mode.
type Normalizer struct {
	Mode       Mode
	Vocabulary *model.Vocabulary
}

func (n Normalizer) Normalize(source Source) (Vector, error) {
	return Normalize(source, n.Mode, n.Vocabulary)
}

// Normalize converts one document's raw output into a Vector. Each call
// only looks at its own source.
func Normalize(source Source, mode Mode, vocabulary *model.Vocabulary) (Vector, error) {
	if !mode.accepts(source.Kind) {
		return nil, fmt.Errorf("mode %s cannot read %s output", mode, source.Kind)
	}
	switch source.Kind {
	case Logits:
		if len(source.Logits) != vocabulary.Size() {
			return nil, fmt.Errorf("got %d logits for a vocabulary of %d labels", len(source.Logits), vocabulary.Size())
		}
		if len(source.Logits) == 0 {
			return Vector{}, nil
		}
		return activate(source.Logits, mode), nil
	case RankedPairs:
		return fromPairs(source.Pairs, vocabulary), nil
	default:
		return nil, fmt.Errorf("unsupported output kind %s", source.Kind)
	}
}

// activate applies the sigmoid for independent labels and the softmax for a
// single class distribution. The softmax keeps the argmax of the logits.
func activate(logits []float64, mode Mode) Vector {
	g := ag.NewGraph()
	defer g.Clear()
	x := g.NewVariable(mat.NewVecDense(append([]float64(nil), logits...)), false)
	var y ag.Node
	if mode == MultiLabelLogits {
		y = g.Sigmoid(x)
	} else {
		y = g.Softmax(x)
	}
	return append(Vector(nil), y.Value().Data()...)
}

// fromPairs scatters pairs onto vocabulary indexes. Labels missing from the
// vocabulary are dropped and duplicates keep their highest score.
func fromPairs(pairs []Pair, vocabulary *model.Vocabulary) Vector {
	result := make(Vector, vocabulary.Size())
	for _, p := range pairs {
		index := vocabulary.Index(p.Label)
		if index == model.UnknownIndex {
			continue
		}
		if p.Score > result[index] {
			result[index] = p.Score
		}
	}
	return result
}
