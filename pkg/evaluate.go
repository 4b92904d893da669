package pkg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"framer/pkg/batch"
	"framer/pkg/decision"
	"framer/pkg/io"
	"framer/pkg/metrics"
	"framer/pkg/model"
	"framer/pkg/runlog"
	"framer/pkg/score"
	"framer/pkg/zeroshot"
)

// skippedSubsetSize caps the documents scored when metrics are skipped.
const skippedSubsetSize = 50

// EvaluationLevel is one label column evaluated against the zero-shot scorer.
type EvaluationLevel struct {
	Column     string
	MultiLabel bool
}

type ZeroShotParameters struct {
	TrainFile  string
	EvalFile   string
	ResultsDir string
	TextColumn string
	Levels     []EvaluationLevel
	SubsetSize int
	Threshold  float64
	Model      string
	Client     *zeroshot.Client
	RunLog     string
}

// LevelResult is the outcome of evaluating one level. Metrics is nil when
// they were skipped.
type LevelResult struct {
	Column     string
	Metrics    *metrics.Metrics
	OutputPath string
}

// EvaluateZeroShot scores the first SubsetSize evaluation documents of every
// level against the labels seen in training and compares them to the
// evaluation labels.
func EvaluateZeroShot(ctx context.Context, params ZeroShotParameters) ([]LevelResult, error) {
	entry := runlog.Start(fmt.Sprintf("Zero-shot evaluation (%s)", params.Model))

	columns := make([]string, len(params.Levels))
	for i, level := range params.Levels {
		columns[i] = level.Column
	}
	dataParams := io.DataParameters{TextColumn: params.TextColumn, LabelColumns: columns}

	dataParams.DataFile = params.TrainFile
	trainTable, dataErrors, err := io.LoadData(dataParams)
	if err != nil {
		return nil, fmt.Errorf("error reading training data: %w", err)
	}
	printDataErrors(params.TrainFile, dataErrors)

	dataParams.DataFile = params.EvalFile
	evalTable, dataErrors, err := io.LoadData(dataParams)
	if err != nil {
		return nil, fmt.Errorf("error reading evaluation data: %w", err)
	}
	printDataErrors(params.EvalFile, dataErrors)

	if err := os.MkdirAll(params.ResultsDir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating results directory %s: %w", params.ResultsDir, err)
	}

	var results []LevelResult
	var notes []string
	for _, level := range params.Levels {
		if !evalTable.HasColumn(level.Column) {
			log.Info().Str("Column", level.Column).Msg("Not in evaluation data, skipping")
			continue
		}
		candidates := model.BuildVocabulary(trainTable.LabelSets(level.Column))
		result, err := evaluateLevel(ctx, params, evalTable, level, candidates)
		if err != nil {
			return results, err
		}
		results = append(results, *result)
		if result.Metrics != nil {
			notes = append(notes, fmt.Sprintf("%s zshot: %s (saved %s)", level.Column, result.Metrics.Rounded(4), result.OutputPath))
		}
	}

	entry.Notes = strings.Join(notes, "; ")
	entry.Append(params.RunLog)
	log.Info().Msg("Zero-shot evaluation complete")
	return results, nil
}

func evaluateLevel(ctx context.Context, params ZeroShotParameters, evalTable *io.Table, level EvaluationLevel, candidates *model.Vocabulary) (*LevelResult, error) {
	log.Info().Str("Column", level.Column).Int("Candidates", candidates.Size()).Msg("Evaluating")
	if candidates.Size() == 0 {
		return nil, fmt.Errorf("no candidate labels for %s in training data", level.Column)
	}

	subsetSize := params.SubsetSize
	skip := metrics.SkipMetrics(candidates.Size(), level.MultiLabel)
	if skip {
		log.Warn().Int("Candidates", candidates.Size()).Msg("Too many fine-grained labels for meaningful zero-shot evaluation, skipping metrics")
		if subsetSize > skippedSubsetSize {
			subsetSize = skippedSubsetSize
		}
	}
	subset := evalTable.Head(subsetSize)

	c := classifier{
		Scorer: &zeroshot.Scorer{
			Client:     params.Client,
			Candidates: candidates.Labels(),
			MultiLabel: level.MultiLabel,
		},
		Normalizer: score.Normalizer{Mode: score.NLIRanked, Vocabulary: candidates},
		Decider:    decision.SingleLabel{},
		Batch:      batch.Parameters{BatchSize: 1, ReportInterval: 20, Name: level.Column},
	}
	if level.MultiLabel {
		policy := decision.ZeroShotMultiLabel
		if params.Threshold > 0 {
			policy.Threshold = params.Threshold
		}
		c.Decider = policy
	}

	predicted, err := c.classify(ctx, subset.Texts())
	if err != nil {
		return nil, err
	}
	if err := subset.AppendColumn(level.Column+"_zs_pred", labelStrings(predicted.Labels)); err != nil {
		return nil, err
	}
	if err := subset.AppendColumn(level.Column+"_zs_score", scoreStrings(predicted.Scores)); err != nil {
		return nil, err
	}
	outPath := filepath.Join(params.ResultsDir, fmt.Sprintf("zs_eval_subset_%s.csv", level.Column))
	if err := io.SaveData(subset, outPath); err != nil {
		return nil, err
	}

	result := &LevelResult{Column: level.Column, OutputPath: outPath}
	if skip {
		log.Info().Str("Column", level.Column).Str("Path", outPath).Msg("Saved predictions")
		return result, nil
	}

	report, err := metrics.EvaluateReport(subset.LabelSets(level.Column), predicted.Labels, candidates)
	if err != nil {
		return nil, err
	}
	report.Log(candidates)
	result.Metrics = &report.Metrics
	return result, nil
}
