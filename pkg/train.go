package pkg

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog/log"

	"framer/pkg/batch"
	"framer/pkg/io"
	"framer/pkg/metrics"
	"framer/pkg/model"
	"framer/pkg/runlog"
)

type TrainingParameters struct {
	TrainFile        string
	EvalFile         string
	TextColumn       string
	TargetColumn     string
	OutputDir        string
	MultiLabel       bool
	FeatureDimension int
	Threshold        float64
	BatchSize        int
	RndSeed          int64
	// HoldoutFraction of the training data is kept for evaluation when no
	// eval file is given
	HoldoutFraction float64
	RunLog          string
}

// Train fits a model on one label column, saves it with its label maps in
// OutputDir and reports metrics on the evaluation data.
func Train(params TrainingParameters) (*metrics.Metrics, error) {
	entry := runlog.Start(fmt.Sprintf("Train on %s", params.TargetColumn))
	log.Info().Str("Column", params.TargetColumn).Bool("MultiLabel", params.MultiLabel).Msg("Training")

	dataParams := io.DataParameters{
		DataFile:     params.TrainFile,
		TextColumn:   params.TextColumn,
		LabelColumns: []string{params.TargetColumn},
	}
	trainTable, dataErrors, err := io.LoadData(dataParams)
	if err != nil {
		return nil, fmt.Errorf("error reading training data: %w", err)
	}
	printDataErrors(params.TrainFile, dataErrors)
	if !trainTable.HasColumn(params.TargetColumn) {
		return nil, fmt.Errorf("target column %s not found in %s", params.TargetColumn, params.TrainFile)
	}
	if len(trainTable.Records) == 0 {
		return nil, fmt.Errorf("no data to train in %s", params.TrainFile)
	}

	trainRecords, evalRecords, err := evaluationSplit(params, trainTable)
	if err != nil {
		return nil, err
	}
	trainData := &io.Table{Header: trainTable.Header, Records: trainRecords}
	evalData := &io.Table{Header: trainTable.Header, Records: evalRecords}

	// Labels only present in evaluation data still get an index so the maps
	// stay aligned between training and inference.
	vocabulary := model.BuildVocabulary(trainData.LabelSets(params.TargetColumn), evalData.LabelSets(params.TargetColumn))
	if vocabulary.Size() == 0 {
		return nil, fmt.Errorf("no labels found in column %s", params.TargetColumn)
	}

	m, err := model.Train(&model.Metadata{
		Name:             model.ShortName(params.TargetColumn),
		TargetColumn:     params.TargetColumn,
		MultiLabel:       params.MultiLabel,
		FeatureDimension: params.FeatureDimension,
	}, vocabulary, trainData.Texts(), trainData.LabelSets(params.TargetColumn))
	if err != nil {
		return nil, fmt.Errorf("error training model: %w", err)
	}

	if err := io.SaveModelDir(m, params.OutputDir); err != nil {
		return nil, fmt.Errorf("error saving model to %s: %w", params.OutputDir, err)
	}
	log.Info().Str("Dir", params.OutputDir).Int("Labels", vocabulary.Size()).Int("Documents", len(trainRecords)).Msg("Model and label maps saved")

	result, err := evaluateModel(m, evalData, params.Threshold, params.BatchSize)
	if err != nil {
		return nil, err
	}

	entry.Notes = fmt.Sprintf("Saved → %s | labels=%d", params.OutputDir, vocabulary.Size())
	if result != nil {
		entry.Notes += fmt.Sprintf(" | eval=%s", result.Rounded(4))
	}
	entry.Append(params.RunLog)
	return result, nil
}

// evaluationSplit returns the training records and the evaluation records,
// either read from EvalFile or held out from the training data.
func evaluationSplit(params TrainingParameters, trainTable *io.Table) ([]*io.DataRecord, []*io.DataRecord, error) {
	if params.EvalFile != "" {
		evalTable, dataErrors, err := io.LoadData(io.DataParameters{
			DataFile:     params.EvalFile,
			TextColumn:   params.TextColumn,
			LabelColumns: []string{params.TargetColumn},
		})
		if err != nil {
			return nil, nil, fmt.Errorf("error reading evaluation data: %w", err)
		}
		printDataErrors(params.EvalFile, dataErrors)
		return trainTable.Records, evalTable.Records, nil
	}

	n := len(trainTable.Records)
	holdout := int(float64(n) * params.HoldoutFraction)
	if holdout == 0 || holdout >= n {
		return trainTable.Records, nil, nil
	}
	data := io.NewDataSet(trainTable.Records, params.BatchSize)
	data.Rand = rand.New(rand.NewSource(params.RndSeed))
	splits := data.RandomSplit(n-holdout, holdout)
	log.Info().Int("Train", splits[0].Size()).Int("Holdout", splits[1].Size()).Msg("No evaluation file, holding out training data")
	return splits[0].Records(), splits[1].Records(), nil
}

// evaluateModel classifies the evaluation records and logs metrics against
// their labels. It returns nil when there is nothing to evaluate.
func evaluateModel(m *model.Model, evalData *io.Table, threshold float64, batchSize int) (*metrics.Metrics, error) {
	if len(evalData.Records) == 0 {
		log.Info().Msg("No evaluation data, skipping metrics")
		return nil, nil
	}
	c := modelClassifier(m, threshold, batch.Parameters{BatchSize: batchSize, Name: m.MetaData.Name})
	predicted, err := c.classify(context.Background(), evalData.Texts())
	if err != nil {
		return nil, err
	}
	return modelMetrics(m, evalData.LabelSets(m.MetaData.TargetColumn), predicted.Labels)
}
