package decision

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"framer/pkg/model"
	"framer/pkg/score"
)

var abc = model.NewVocabulary([]string{"A", "B", "C"})

func TestPolicy_Decide(t *testing.T) {
	tests := []struct {
		name       string
		policy     Policy
		scores     score.Vector
		labels     model.LabelSet
		confidence float64
		fellBack   bool
	}{
		{
			name:       "single label above threshold",
			policy:     SupervisedMultiLabel,
			scores:     score.Vector{0.2, 0.6, 0.4},
			labels:     model.LabelSet{"B"},
			confidence: 0.6,
		},
		{
			name:       "all below threshold falls back to argmax",
			policy:     SupervisedMultiLabel,
			scores:     score.Vector{0.1, 0.2, 0.3},
			labels:     model.LabelSet{"C"},
			confidence: 0.3,
			fellBack:   true,
		},
		{
			name:       "inclusive threshold keeps equal scores",
			policy:     SupervisedMultiLabel,
			scores:     score.Vector{0.5, 0.1, 0.7},
			labels:     model.LabelSet{"A", "C"},
			confidence: 0.7,
		},
		{
			name:       "strict threshold drops equal scores",
			policy:     ZeroShotMultiLabel,
			scores:     score.Vector{0.3, 0.1, 0.2},
			labels:     model.LabelSet{"A"},
			confidence: 0.3,
			fellBack:   true,
		},
		{
			name:       "score order puts the best label first",
			policy:     ZeroShotMultiLabel,
			scores:     score.Vector{0.4, 0.9, 0.35},
			labels:     model.LabelSet{"B", "A", "C"},
			confidence: 0.9,
		},
		{
			name:       "score order ties keep vocabulary order",
			policy:     ZeroShotMultiLabel,
			scores:     score.Vector{0.1, 0.8, 0.8},
			labels:     model.LabelSet{"B", "C"},
			confidence: 0.8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := tt.policy.Decide(tt.scores)
			require.NoError(t, err)
			labels, err := d.Labels(abc)
			require.NoError(t, err)
			require.Equal(t, tt.labels, labels)
			require.InDelta(t, tt.confidence, d.Confidence, 1e-12)
			require.Equal(t, tt.fellBack, d.FellBack)
		})
	}
}

func TestPolicy_SelectAndFallback(t *testing.T) {
	v := score.Vector{0.1, 0.2, 0.3}
	selected := SupervisedMultiLabel.Select(v)
	require.Empty(t, selected)

	indexes, fellBack, err := Fallback(v, selected)
	require.NoError(t, err)
	require.True(t, fellBack)
	require.Equal(t, []int{2}, indexes)

	indexes, fellBack, err = Fallback(v, []int{0, 1})
	require.NoError(t, err)
	require.False(t, fellBack)
	require.Equal(t, []int{0, 1}, indexes)
}

func TestPolicy_NeverEmpty(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for _, policy := range []Policy{SupervisedMultiLabel, ZeroShotMultiLabel, {Threshold: 2}} {
		for i := 0; i < 500; i++ {
			v := make(score.Vector, 1+r.Intn(20))
			for j := range v {
				v[j] = r.Float64()
			}
			d, err := policy.Decide(v)
			require.NoError(t, err)
			require.NotEmpty(t, d.Indexes)
		}
	}
}

func TestSingle(t *testing.T) {
	d, err := Single(score.Vector{0.2, 0.5, 0.5, 0.1})
	require.NoError(t, err)
	require.Equal(t, []int{1}, d.Indexes)
	require.Equal(t, 0.5, d.Confidence)

	for i := 0; i < 10; i++ {
		again, err := Single(score.Vector{0.2, 0.5, 0.5, 0.1})
		require.NoError(t, err)
		require.Equal(t, d, again)
	}
}

func TestEmptyVector(t *testing.T) {
	_, err := Single(score.Vector{})
	require.ErrorIs(t, err, ErrEmptyVector)
	_, err = SupervisedMultiLabel.Decide(nil)
	require.ErrorIs(t, err, ErrEmptyVector)
}

func TestDecider(t *testing.T) {
	v := score.Vector{0.6, 0.7, 0.1}
	for _, tt := range []struct {
		decider Decider
		labels  model.LabelSet
	}{
		{decider: SingleLabel{}, labels: model.LabelSet{"B"}},
		{decider: SupervisedMultiLabel, labels: model.LabelSet{"A", "B"}},
		{decider: ZeroShotMultiLabel, labels: model.LabelSet{"B", "A"}},
	} {
		d, err := tt.decider.Decide(v)
		require.NoError(t, err)
		labels, err := d.Labels(abc)
		require.NoError(t, err)
		require.Equal(t, tt.labels, labels)
	}
}
