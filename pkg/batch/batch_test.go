package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"framer/pkg/model"
	"framer/pkg/score"
)

var vocabulary = model.NewVocabulary([]string{"A", "B"})

// lengthScorer gives every text logits derived from its length and counts
// the batches it sees.
type lengthScorer struct {
	batches [][]string
}

func (s *lengthScorer) Score(_ context.Context, texts []string) ([]score.Source, error) {
	s.batches = append(s.batches, texts)
	result := make([]score.Source, len(texts))
	for i, text := range texts {
		result[i] = score.FromLogits([]float64{float64(len(text)) - 2, 2 - float64(len(text))})
	}
	return result, nil
}

func TestRun_BatchSizeDoesNotChangeResults(t *testing.T) {
	texts := []string{"a", "bb", "ccc", "dddd", "e"}
	normalizer := score.Normalizer{Mode: score.MultiLabelLogits, Vocabulary: vocabulary}

	unbatched := &lengthScorer{}
	expected, err := Run(context.Background(), texts, Parameters{BatchSize: len(texts)}, unbatched, normalizer)
	require.NoError(t, err)
	require.Len(t, unbatched.batches, 1)

	for _, size := range []int{0, 1, 2, 4} {
		scorer := &lengthScorer{}
		result, err := Run(context.Background(), texts, Parameters{BatchSize: size, ReportInterval: 2}, scorer, normalizer)
		require.NoError(t, err)
		require.Equal(t, expected, result)
		for _, b := range scorer.batches {
			if size > 0 {
				require.LessOrEqual(t, len(b), size)
			}
		}
	}
}

func TestRun_Empty(t *testing.T) {
	called := false
	scorer := ScorerFunc(func(context.Context, []string) ([]score.Source, error) {
		called = true
		return nil, nil
	})
	result, err := Run(context.Background(), nil, Parameters{BatchSize: 4}, scorer, score.Normalizer{Vocabulary: vocabulary})
	require.NoError(t, err)
	require.Empty(t, result)
	require.False(t, called)
}

func TestRun_Errors(t *testing.T) {
	normalizer := score.Normalizer{Mode: score.MultiLabelLogits, Vocabulary: vocabulary}

	failing := ScorerFunc(func(context.Context, []string) ([]score.Source, error) {
		return nil, errors.New("device lost")
	})
	_, err := Run(context.Background(), []string{"a"}, Parameters{BatchSize: 1}, failing, normalizer)
	require.Error(t, err)

	short := ScorerFunc(func(context.Context, []string) ([]score.Source, error) {
		return []score.Source{score.FromLogits([]float64{0, 0})}, nil
	})
	_, err = Run(context.Background(), []string{"a", "b"}, Parameters{BatchSize: 2}, short, normalizer)
	require.Error(t, err)

	wrongSize := ScorerFunc(func(_ context.Context, texts []string) ([]score.Source, error) {
		return []score.Source{score.FromLogits([]float64{0})}, nil
	})
	_, err = Run(context.Background(), []string{"a"}, Parameters{BatchSize: 1}, wrongSize, normalizer)
	require.Error(t, err)
}
