// Package metrics compares predicted and true label sets on their primary
// label and reports accuracy and support-weighted precision, recall and F1.
package metrics

import (
	"fmt"
	"math"
	"sort"

	"github.com/nlpodyssey/spago/pkg/ml/stats"
	"github.com/rs/zerolog/log"

	"framer/pkg/model"
)

// MaxCandidateLabels is the largest multi-label candidate space metrics are
// computed for.
const MaxCandidateLabels = 500

// SkipMetrics reports whether an evaluation should only persist predictions.
func SkipMetrics(candidateCount int, multiLabel bool) bool {
	return multiLabel && candidateCount > MaxCandidateLabels
}

type Metrics struct {
	Accuracy          float64
	PrecisionWeighted float64
	RecallWeighted    float64
	F1Weighted        float64
}

// Rounded returns the metrics rounded to the given number of decimals.
func (m Metrics) Rounded(decimals int) Metrics {
	p := math.Pow(10, float64(decimals))
	round := func(x float64) float64 { return math.Round(x*p) / p }
	return Metrics{
		Accuracy:          round(m.Accuracy),
		PrecisionWeighted: round(m.PrecisionWeighted),
		RecallWeighted:    round(m.RecallWeighted),
		F1Weighted:        round(m.F1Weighted),
	}
}

func (m Metrics) String() string {
	return fmt.Sprintf("{accuracy: %.4f, precision_weighted: %.4f, recall_weighted: %.4f, f1_weighted: %.4f}",
		m.Accuracy, m.PrecisionWeighted, m.RecallWeighted, m.F1Weighted)
}

// Report holds the per-class counts behind a Metrics value. Classes are
// vocabulary indexes, with model.UnknownIndex for labels outside it. A
// class's support is its ExpectedPos.
type Report struct {
	Metrics Metrics
	Classes map[int]*stats.ClassMetrics
}

// PrimaryIndex reduces a label set to the vocabulary index of its first label.
func PrimaryIndex(set model.LabelSet, vocabulary *model.Vocabulary) int {
	label, ok := set.Primary()
	if !ok {
		return model.UnknownIndex
	}
	return vocabulary.Index(label)
}

// Evaluate compares truth and predictions document by document. A document
// whose true primary label is unknown counts as a mismatch.
func Evaluate(truth, predicted []model.LabelSet, vocabulary *model.Vocabulary) (Metrics, error) {
	report, err := EvaluateReport(truth, predicted, vocabulary)
	if err != nil {
		return Metrics{}, err
	}
	return report.Metrics, nil
}

func EvaluateReport(truth, predicted []model.LabelSet, vocabulary *model.Vocabulary) (*Report, error) {
	if len(truth) != len(predicted) {
		return nil, fmt.Errorf("got %d true label sets but %d predictions", len(truth), len(predicted))
	}
	report := &Report{
		Classes: map[int]*stats.ClassMetrics{},
	}
	counter := func(class int) *stats.ClassMetrics {
		c, ok := report.Classes[class]
		if !ok {
			c = stats.NewMetricCounter()
			report.Classes[class] = c
		}
		return c
	}

	correct := 0
	for i := range truth {
		trueClass := PrimaryIndex(truth[i], vocabulary)
		predictedClass := PrimaryIndex(predicted[i], vocabulary)

		trueMetrics := counter(trueClass)
		predictedMetrics := counter(predictedClass)
		if trueClass == predictedClass && trueClass != model.UnknownIndex {
			trueMetrics.IncTruePos()
			correct++
		} else {
			trueMetrics.IncFalseNeg()
			predictedMetrics.IncFalsePos()
		}
	}

	if len(truth) == 0 {
		return report, nil
	}

	var precision, recall, f1 float64
	for _, c := range report.Classes {
		weight := float64(c.ExpectedPos())
		p, r, f := scores(c)
		precision += weight * p
		recall += weight * r
		f1 += weight * f
	}
	total := float64(len(truth))
	report.Metrics = Metrics{
		Accuracy:          float64(correct) / total,
		PrecisionWeighted: precision / total,
		RecallWeighted:    recall / total,
		F1Weighted:        f1 / total,
	}
	return report, nil
}

// scores reads precision, recall and F1 off the class counters, with 0 for
// any zero division. ClassMetrics' own NaN check never matches.
func scores(c *stats.ClassMetrics) (precision, recall, f1 float64) {
	return zeroIfNaN(c.Precision()), zeroIfNaN(c.Recall()), zeroIfNaN(c.F1Score())
}

func zeroIfNaN(value float64) float64 {
	if math.IsNaN(value) {
		return 0
	}
	return value
}

// Log writes one line per class, sorted by name, and the weighted summary.
func (r *Report) Log(vocabulary *model.Vocabulary) {
	classes := make([]int, 0, len(r.Classes))
	for class := range r.Classes {
		classes = append(classes, class)
	}
	names := func(class int) string {
		if label, ok := vocabulary.Label(class); ok {
			return label
		}
		return "<unknown>"
	}
	sort.Slice(classes, func(i, j int) bool { return names(classes[i]) < names(classes[j]) })

	for _, class := range classes {
		c := r.Classes[class]
		p, rec, f := scores(c)
		log.Info().Str("Class", names(class)).
			Int("TP", c.TruePos).
			Int("FP", c.FalsePos).
			Int("FN", c.FalseNeg).
			Int("Support", c.ExpectedPos()).
			Float64("Precision", p).
			Float64("Recall", rec).
			Float64("F1", f).
			Msg("")
	}
	log.Info().Float64("Accuracy", r.Metrics.Accuracy).
		Float64("PrecisionWeighted", r.Metrics.PrecisionWeighted).
		Float64("RecallWeighted", r.Metrics.RecallWeighted).
		Float64("F1Weighted", r.Metrics.F1Weighted).
		Msg("")
}
