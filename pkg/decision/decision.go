// Package decision turns score vectors into label assignments. Every
// decision over a non-empty vocabulary holds at least one label.
package decision

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/floats"

	"framer/pkg/model"
	"framer/pkg/score"
)

// ErrEmptyVector is returned when there is no label to choose from.
var ErrEmptyVector = errors.New("cannot decide on an empty score vector")

// Comparison is how a score is compared against a threshold.
type Comparison int

const (
	// Strict selects scores above the threshold.
	Strict Comparison = iota
	// Inclusive selects scores at or above the threshold.
	Inclusive
)

// Order is the order of the selected labels, which decides the primary label.
type Order int

const (
	// IndexOrder keeps vocabulary order.
	IndexOrder Order = iota
	// ScoreOrder sorts by descending score, ties by lowest index.
	ScoreOrder
)

// Decider decides on the labels of one document.
type Decider interface {
	Decide(v score.Vector) (Decision, error)
}

var (
	_ Decider = Policy{}
	_ Decider = SingleLabel{}
)

// SingleLabel is the top-1 decision.
type SingleLabel struct{}

func (SingleLabel) Decide(v score.Vector) (Decision, error) {
	return Single(v)
}

// Policy is a thresholded multi-label decision followed by an argmax fallback.
type Policy struct {
	Threshold  float64
	Comparison Comparison
	Order      Order
}

var (
	// SupervisedMultiLabel reads sigmoid outputs of a trained model.
	SupervisedMultiLabel = Policy{Threshold: 0.5, Comparison: Inclusive, Order: IndexOrder}

	// ZeroShotMultiLabel reads entailment scores of a zero-shot scorer.
	ZeroShotMultiLabel = Policy{Threshold: 0.3, Comparison: Strict, Order: ScoreOrder}
)

// Decision is the outcome for one document.
type Decision struct {
	Indexes    []int
	Confidence float64
	// FellBack is set when no score passed the threshold
	FellBack bool
}

// Labels resolves the decision against the vocabulary the vector was built on.
func (d Decision) Labels(vocabulary *model.Vocabulary) (model.LabelSet, error) {
	return vocabulary.LabelsFor(d.Indexes)
}

func (p Policy) passes(value float64) bool {
	if p.Comparison == Inclusive {
		return value >= p.Threshold
	}
	return value > p.Threshold
}

// Select is the primary filter: the indexes passing the threshold, in the
// policy's order. The result may be empty.
func (p Policy) Select(v score.Vector) []int {
	selected := []int{}
	for i, value := range v {
		if p.passes(value) {
			selected = append(selected, i)
		}
	}
	if p.Order == ScoreOrder {
		sort.SliceStable(selected, func(a, b int) bool {
			return v[selected[a]] > v[selected[b]]
		})
	}
	return selected
}

// Fallback returns selected unchanged unless it is empty, in which case it
// returns the argmax alone.
func Fallback(v score.Vector, selected []int) ([]int, bool, error) {
	if len(selected) > 0 {
		return selected, false, nil
	}
	best, err := Argmax(v)
	if err != nil {
		return nil, false, err
	}
	return []int{best}, true, nil
}

// Decide applies Select then Fallback. The confidence is the highest score
// of the whole vector, selected or not.
func (p Policy) Decide(v score.Vector) (Decision, error) {
	if len(v) == 0 {
		return Decision{}, ErrEmptyVector
	}
	indexes, fellBack, err := Fallback(v, p.Select(v))
	if err != nil {
		return Decision{}, err
	}
	return Decision{Indexes: indexes, Confidence: floats.Max(v), FellBack: fellBack}, nil
}

// Single picks the highest scoring index; ties go to the lowest index.
func Single(v score.Vector) (Decision, error) {
	best, err := Argmax(v)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Indexes: []int{best}, Confidence: v[best]}, nil
}

// Argmax returns the first index holding the highest score.
func Argmax(v score.Vector) (int, error) {
	if len(v) == 0 {
		return 0, ErrEmptyVector
	}
	return floats.MaxIdx(v), nil
}
