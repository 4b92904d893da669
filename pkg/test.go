package pkg

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"framer/pkg/batch"
	"framer/pkg/io"
	"framer/pkg/metrics"
)

type TestParameters struct {
	ModelDir   string
	InputFile  string
	OutputFile string
	TextColumn string
	Threshold  float64
	BatchSize  int
}

// Test runs a trained model on an input file, optionally writes the file
// with <column>_pred and <column>_score appended, and reports metrics when
// the file carries the model's label column.
func Test(ctx context.Context, params TestParameters) (*metrics.Metrics, error) {
	m, err := io.LoadModelDir(params.ModelDir)
	if err != nil {
		return nil, err
	}
	column := m.MetaData.TargetColumn

	table, dataErrors, err := io.LoadData(io.DataParameters{
		DataFile:     params.InputFile,
		TextColumn:   params.TextColumn,
		LabelColumns: []string{column},
	})
	if err != nil {
		return nil, fmt.Errorf("error loading data from %s: %w", params.InputFile, err)
	}
	printDataErrors(params.InputFile, dataErrors)
	if len(table.Records) == 0 {
		return nil, fmt.Errorf("no data to test in %s", params.InputFile)
	}

	c := modelClassifier(m, params.Threshold, batch.Parameters{BatchSize: params.BatchSize, ReportInterval: 100, Name: m.MetaData.Name})
	predicted, err := c.classify(ctx, table.Texts())
	if err != nil {
		return nil, err
	}

	if params.OutputFile != "" {
		if err := table.AppendColumn(column+"_pred", labelStrings(predicted.Labels)); err != nil {
			return nil, err
		}
		if err := table.AppendColumn(column+"_score", scoreStrings(predicted.Scores)); err != nil {
			return nil, err
		}
		if err := io.SaveData(table, params.OutputFile); err != nil {
			return nil, err
		}
		log.Info().Str("Path", params.OutputFile).Msg("Saved predictions")
	}

	if !table.HasColumn(column) {
		log.Info().Str("Column", column).Msg("No ground truth column, skipping metrics")
		return nil, nil
	}
	return modelMetrics(m, table.LabelSets(column), predicted.Labels)
}
