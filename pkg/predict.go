package pkg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"framer/pkg/batch"
	"framer/pkg/io"
	"framer/pkg/model"
	"framer/pkg/runlog"
)

type PredictParameters struct {
	Files        []string
	ResultsDir   string
	TextColumn   string
	FineModelDir string
	TopModelDir  string
	Threshold    float64
	BatchSize    int
	RunLog       string
}

// Predict applies the fine (multi-label) and top (single-label) models to
// every file and writes each file with <column>_pred columns appended to
// ResultsDir under the same name. It returns the processed file names.
func Predict(ctx context.Context, params PredictParameters) ([]string, error) {
	entry := runlog.Start("Apply fine and top label models to data files")

	// Both models must be present before any file is touched.
	for _, dir := range []string{params.FineModelDir, params.TopModelDir} {
		if err := io.CheckModelDir(dir); err != nil {
			return nil, err
		}
	}
	fine, err := io.LoadModelDir(params.FineModelDir)
	if err != nil {
		return nil, err
	}
	top, err := io.LoadModelDir(params.TopModelDir)
	if err != nil {
		return nil, err
	}
	log.Info().Str("Fine", fine.MetaData.TargetColumn).Str("Top", top.MetaData.TargetColumn).Msg("Loaded models")

	if err := os.MkdirAll(params.ResultsDir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating results directory %s: %w", params.ResultsDir, err)
	}

	batchParams := batch.Parameters{BatchSize: params.BatchSize, ReportInterval: 100}
	classifiers := []struct {
		model      *model.Model
		classifier classifier
	}{
		{fine, modelClassifier(fine, params.Threshold, batchParams)},
		{top, modelClassifier(top, params.Threshold, batchParams)},
	}

	var processed []string
	for _, file := range params.Files {
		name := filepath.Base(file)
		if _, err := os.Stat(file); err != nil {
			log.Debug().Str("File", file).Msg("Not found, skipping")
			continue
		}
		log.Info().Str("File", name).Msg("Processing")

		table, dataErrors, err := io.LoadData(io.DataParameters{DataFile: file, TextColumn: params.TextColumn})
		if errors.Is(err, io.ErrMissingTextColumn) {
			log.Warn().Str("File", name).Str("Column", params.TextColumn).Msg("Skipping file without text column")
			continue
		}
		if err != nil {
			log.Error().Err(err).Str("File", name).Msg("Skipping unreadable file")
			continue
		}
		printDataErrors(file, dataErrors)

		texts := table.Texts()
		for _, c := range classifiers {
			predicted, err := c.classifier.classify(ctx, texts)
			if err != nil {
				return processed, fmt.Errorf("error predicting %s for %s: %w", c.model.MetaData.TargetColumn, name, err)
			}
			if err := table.AppendColumn(c.model.MetaData.TargetColumn+"_pred", labelStrings(predicted.Labels)); err != nil {
				return processed, err
			}
		}

		outPath := filepath.Join(params.ResultsDir, name)
		if err := io.SaveData(table, outPath); err != nil {
			return processed, err
		}
		log.Info().Str("Path", outPath).Str("Encoding", table.Encoding).Int("Rows", len(table.Records)).Msg("Saved predictions")
		processed = append(processed, name)
	}

	shown := processed
	if len(shown) > 5 {
		shown = shown[:5]
	}
	entry.Notes = fmt.Sprintf("Predictions saved for %d files → %s. Files: %s...", len(processed), params.ResultsDir, strings.Join(shown, ", "))
	entry.Append(params.RunLog)
	return processed, nil
}
