package pkg

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"framer/pkg/batch"
	"framer/pkg/decision"
	"framer/pkg/metrics"
	"framer/pkg/model"
	"framer/pkg/score"
)

// Classification holds the decided labels and representative confidence of
// every document, in input order.
type Classification struct {
	Labels []model.LabelSet
	Scores []float64
}

// classifier bundles everything needed to label documents at one level.
type classifier struct {
	Scorer     batch.Scorer
	Normalizer score.Normalizer
	Decider    decision.Decider
	Batch      batch.Parameters
}

func (c classifier) classify(ctx context.Context, texts []string) (*Classification, error) {
	vectors, err := batch.Run(ctx, texts, c.Batch, c.Scorer, c.Normalizer)
	if err != nil {
		return nil, err
	}
	result := &Classification{
		Labels: make([]model.LabelSet, len(vectors)),
		Scores: make([]float64, len(vectors)),
	}
	for i, v := range vectors {
		d, err := c.Decider.Decide(v)
		if err != nil {
			return nil, fmt.Errorf("error deciding labels for document %d: %w", i, err)
		}
		labels, err := d.Labels(c.Normalizer.Vocabulary)
		if err != nil {
			return nil, err
		}
		result.Labels[i] = labels
		result.Scores[i] = d.Confidence
	}
	return result, nil
}

// modelScorer feeds texts to a trained model held for the whole run.
type modelScorer struct {
	model *model.Model
}

func (s modelScorer) Score(_ context.Context, texts []string) ([]score.Source, error) {
	logits := s.model.Logits(texts)
	result := make([]score.Source, len(logits))
	for i, l := range logits {
		result[i] = score.FromLogits(l)
	}
	return result, nil
}

// modelClassifier reads a multi-label model through the thresholded policy
// and a single-label model through its argmax. A zero threshold keeps the
// policy's own; the commands reject it before it gets here.
func modelClassifier(m *model.Model, threshold float64, p batch.Parameters) classifier {
	c := classifier{
		Scorer: modelScorer{model: m},
		Normalizer: score.Normalizer{
			Mode:       score.SingleLabelLogits,
			Vocabulary: m.Vocabulary(),
		},
		Decider: decision.SingleLabel{},
		Batch:   p,
	}
	if m.MetaData.MultiLabel {
		c.Normalizer.Mode = score.MultiLabelLogits
		policy := decision.SupervisedMultiLabel
		if threshold > 0 {
			policy.Threshold = threshold
		}
		c.Decider = policy
	}
	return c
}

// modelMetrics logs and returns the metrics of a model's predictions, or nil
// when its label space is too large for them to mean anything.
func modelMetrics(m *model.Model, truth, predicted []model.LabelSet) (*metrics.Metrics, error) {
	vocabulary := m.Vocabulary()
	if metrics.SkipMetrics(vocabulary.Size(), m.MetaData.MultiLabel) {
		log.Warn().Int("Labels", vocabulary.Size()).Msg("Too many labels for meaningful metrics, skipping")
		return nil, nil
	}
	report, err := metrics.EvaluateReport(truth, predicted, vocabulary)
	if err != nil {
		return nil, err
	}
	report.Log(vocabulary)
	return &report.Metrics, nil
}
