// Package batch drives documents through a scorer in fixed-size batches.
package batch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"framer/pkg/io"
	"framer/pkg/score"
)

// Scorer produces one raw output per text. Implementations own a model or a
// remote endpoint and are used by a single orchestrator at a time.
type Scorer interface {
	Score(ctx context.Context, texts []string) ([]score.Source, error)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(ctx context.Context, texts []string) ([]score.Source, error)

func (f ScorerFunc) Score(ctx context.Context, texts []string) ([]score.Source, error) {
	return f(ctx, texts)
}

type Parameters struct {
	BatchSize int
	// ReportInterval logs progress every ReportInterval documents; 0 disables it
	ReportInterval int
	Name           string
}

// Run scores texts batch after batch and normalizes every output on its own,
// so results do not depend on the batch size. Empty input returns an empty
// result without calling the scorer.
func Run(ctx context.Context, texts []string, p Parameters, scorer Scorer, normalizer score.Normalizer) ([]score.Vector, error) {
	result := make([]score.Vector, 0, len(texts))
	if len(texts) == 0 {
		return result, nil
	}

	records := make([]*io.DataRecord, len(texts))
	for i, text := range texts {
		records[i] = &io.DataRecord{Line: i, Text: text}
	}
	data := io.NewDataSet(records, p.BatchSize)

	nextReport := p.ReportInterval
	for batch := data.Next(); len(batch) > 0; batch = data.Next() {
		sources, err := scorer.Score(ctx, batch.Texts())
		if err != nil {
			return nil, fmt.Errorf("error scoring documents %d-%d: %w", batch[0].Line, batch[len(batch)-1].Line, err)
		}
		if len(sources) != len(batch) {
			return nil, fmt.Errorf("scorer returned %d outputs for %d documents", len(sources), len(batch))
		}
		for i, source := range sources {
			vector, err := normalizer.Normalize(source)
			if err != nil {
				return nil, fmt.Errorf("error normalizing document %d: %w", batch[i].Line, err)
			}
			result = append(result, vector)
		}

		if p.ReportInterval > 0 && len(result) >= nextReport {
			log.Info().Str("Name", p.Name).Int("Processed", len(result)).Int("Total", len(texts)).Msg("Scoring documents")
			for nextReport <= len(result) {
				nextReport += p.ReportInterval
			}
		}
	}
	return result, nil
}
