package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"framer/pkg"
	"framer/pkg/config"
	"framer/pkg/model"
	"framer/pkg/zeroshot"
)

func TrainCommand() *cobra.Command {

	var params pkg.TrainingParameters

	var cmd = &cobra.Command{
		Use:   "train [-i trainFile] [-t targetColumn -o outputDir]",
		Short: "Trains label models on the training data and saves them with their label maps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			params.TrainFile = stringFlag(flags.Changed("train-file"), params.TrainFile, cfg.DataPath(cfg.TrainFile))
			params.EvalFile = stringFlag(flags.Changed("test-file"), params.EvalFile, cfg.DataPath(cfg.EvalFile))
			params.TextColumn = stringFlag(flags.Changed("text-column"), params.TextColumn, cfg.TextColumn)
			params.BatchSize = intFlag(flags.Changed("batch-size"), params.BatchSize, cfg.BatchSize)
			params.FeatureDimension = intFlag(flags.Changed("feature-dimension"), params.FeatureDimension, cfg.FeatureDimension)
			params.Threshold = floatFlag(flags.Changed("threshold"), params.Threshold, cfg.Threshold)
			if !flags.Changed("random-seed") {
				params.RndSeed = cfg.RandomSeed
			}
			params.RunLog = cfg.Path(cfg.RunLog)
			if err := config.ValidateThreshold("--threshold", params.Threshold); err != nil {
				return err
			}
			if flags.Changed("multi-label") && !flags.Changed("target-column") {
				return fmt.Errorf("--multi-label needs --target-column; configured levels use their own setting")
			}

			levels := cfg.Levels()
			if flags.Changed("target-column") {
				levels = []config.Level{{
					Column:     params.TargetColumn,
					MultiLabel: params.MultiLabel,
					ModelDir:   filepath.Join(cfg.ResultsDir, "trained_models", model.ShortName(params.TargetColumn)),
				}}
			}
			for _, level := range levels {
				p := params
				p.TargetColumn = level.Column
				p.MultiLabel = level.MultiLabel
				p.OutputDir = stringFlag(flags.Changed("output-dir"), params.OutputDir, cfg.Path(level.ModelDir))
				if _, err := pkg.Train(p); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&params.TrainFile, "train-file", "i", "", "name of train file")
	cmd.Flags().StringVarP(&params.EvalFile, "test-file", "", "", "name of evaluation file")
	cmd.Flags().StringVarP(&params.OutputDir, "output-dir", "o", "", "directory to save the model and label maps to")
	cmd.Flags().StringVarP(&params.TargetColumn, "target-column", "t", "", "label column to train on (default: both configured levels)")
	cmd.Flags().BoolVarP(&params.MultiLabel, "multi-label", "", false, "train the target column as a multi-label level (only with --target-column)")
	cmd.Flags().StringVarP(&params.TextColumn, "text-column", "", "Text", "text column")
	cmd.Flags().IntVarP(&params.BatchSize, "batch-size", "b", 4, "batch size")
	cmd.Flags().IntVarP(&params.FeatureDimension, "feature-dimension", "f", 4096, "hashed feature dimension")
	cmd.Flags().Float64VarP(&params.Threshold, "threshold", "", 0.5, "multi-label decision threshold")
	cmd.Flags().Int64VarP(&params.RndSeed, "random-seed", "x", 42, "random seed")
	cmd.Flags().Float64VarP(&params.HoldoutFraction, "holdout", "", 0.2, "fraction of training data held out when no evaluation file is given")

	return cmd
}

func PredictCommand() *cobra.Command {

	var params pkg.PredictParameters

	var cmd = &cobra.Command{
		Use:   "predict [-i file...] [-o resultsDir]",
		Short: "Applies the trained fine and top label models to data files and saves the predictions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if !flags.Changed("input") {
				params.Files = nil
				for _, name := range cfg.Files {
					params.Files = append(params.Files, cfg.DataPath(name))
				}
			}
			params.ResultsDir = stringFlag(flags.Changed("results-dir"), params.ResultsDir, cfg.Path(cfg.ResultsDir))
			params.FineModelDir = stringFlag(flags.Changed("fine-model"), params.FineModelDir, cfg.Path(cfg.Fine.ModelDir))
			params.TopModelDir = stringFlag(flags.Changed("top-model"), params.TopModelDir, cfg.Path(cfg.Top.ModelDir))
			params.TextColumn = stringFlag(flags.Changed("text-column"), params.TextColumn, cfg.TextColumn)
			params.BatchSize = intFlag(flags.Changed("batch-size"), params.BatchSize, cfg.BatchSize)
			params.Threshold = floatFlag(flags.Changed("threshold"), params.Threshold, cfg.Threshold)
			params.RunLog = cfg.Path(cfg.RunLog)
			if err := config.ValidateThreshold("--threshold", params.Threshold); err != nil {
				return err
			}

			processed, err := pkg.Predict(context.Background(), params)
			if err != nil {
				return err
			}
			log.Info().Int("Files", len(processed)).Msg("All requested files processed")
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&params.Files, "input", "i", nil, "data files to label (default: configured files)")
	cmd.Flags().StringVarP(&params.ResultsDir, "results-dir", "o", "", "directory to write labelled files to")
	cmd.Flags().StringVarP(&params.FineModelDir, "fine-model", "", "", "directory of the fine (multi-label) model")
	cmd.Flags().StringVarP(&params.TopModelDir, "top-model", "", "", "directory of the top (single-label) model")
	cmd.Flags().StringVarP(&params.TextColumn, "text-column", "", "Text", "text column")
	cmd.Flags().IntVarP(&params.BatchSize, "batch-size", "b", 4, "batch size")
	cmd.Flags().Float64VarP(&params.Threshold, "threshold", "", 0.5, "multi-label decision threshold")

	return cmd
}

func TestCommand() *cobra.Command {

	var params pkg.TestParameters

	var cmd = &cobra.Command{
		Use:   "test -m modelDir -i inputFile [-o outputFile]",
		Short: "Runs the provided model on the specified data input, reports metrics and optionally writes the predictions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ValidateThreshold("--threshold", params.Threshold); err != nil {
				return err
			}
			_, err := pkg.Test(context.Background(), params)
			return err
		},
	}

	cmd.Flags().StringVarP(&params.ModelDir, "model", "m", "", "directory of the model to test")
	cmd.Flags().StringVarP(&params.InputFile, "input", "i", "", "name of data input file")
	cmd.Flags().StringVarP(&params.OutputFile, "output", "o", "", "name of output file (optional)")
	cmd.Flags().StringVarP(&params.TextColumn, "text-column", "", "Text", "text column")
	cmd.Flags().IntVarP(&params.BatchSize, "batch-size", "b", 4, "batch size")
	cmd.Flags().Float64VarP(&params.Threshold, "threshold", "", 0.5, "multi-label decision threshold")

	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func ZeroShotCommand() *cobra.Command {

	var params pkg.ZeroShotParameters
	var endpoint string

	var cmd = &cobra.Command{
		Use:   "zeroshot [--train-file file] [--eval-file file] [-o resultsDir]",
		Short: "Evaluates a zero-shot NLI classifier on the evaluation data against labels seen in training",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			params.TrainFile = stringFlag(flags.Changed("train-file"), params.TrainFile, cfg.DataPath(cfg.TrainFile))
			params.EvalFile = stringFlag(flags.Changed("eval-file"), params.EvalFile, cfg.DataPath(cfg.EvalFile))
			params.ResultsDir = stringFlag(flags.Changed("results-dir"), params.ResultsDir, cfg.Path(cfg.ResultsDir))
			params.TextColumn = stringFlag(flags.Changed("text-column"), params.TextColumn, cfg.TextColumn)
			params.SubsetSize = intFlag(flags.Changed("subset-size"), params.SubsetSize, cfg.ZeroShot.SubsetSize)
			params.Threshold = floatFlag(flags.Changed("threshold"), params.Threshold, cfg.ZeroShot.Threshold)
			if err := config.ValidateThreshold("--threshold", params.Threshold); err != nil {
				return err
			}
			params.Model = cfg.ZeroShot.Model
			params.RunLog = cfg.Path(cfg.RunLog)
			params.Levels = []pkg.EvaluationLevel{
				{Column: cfg.Top.Column, MultiLabel: cfg.Top.MultiLabel},
				{Column: cfg.Fine.Column, MultiLabel: cfg.Fine.MultiLabel},
			}
			params.Client = zeroshot.NewClient(stringFlag(flags.Changed("endpoint"), endpoint, cfg.ZeroShot.Endpoint), cfg.ZeroShot.Token)
			log.Info().Str("Model", params.Model).Str("Endpoint", params.Client.Endpoint).Msg("Using zero-shot endpoint")

			_, err = pkg.EvaluateZeroShot(context.Background(), params)
			return err
		},
	}

	cmd.Flags().StringVarP(&params.TrainFile, "train-file", "", "", "file whose labels become the candidate labels")
	cmd.Flags().StringVarP(&params.EvalFile, "eval-file", "", "", "file to evaluate")
	cmd.Flags().StringVarP(&params.ResultsDir, "results-dir", "o", "", "directory to write predictions to")
	cmd.Flags().StringVarP(&params.TextColumn, "text-column", "", "Text", "text column")
	cmd.Flags().StringVarP(&endpoint, "endpoint", "e", "", "zero-shot classification endpoint URL")
	cmd.Flags().IntVarP(&params.SubsetSize, "subset-size", "n", 200, "number of evaluation documents to score")
	cmd.Flags().Float64VarP(&params.Threshold, "threshold", "", 0.3, "multi-label decision threshold")

	return cmd
}

func stringFlag(changed bool, value, fallback string) string {
	if changed {
		return value
	}
	return fallback
}

func intFlag(changed bool, value, fallback int) int {
	if changed {
		return value
	}
	return fallback
}

func floatFlag(changed bool, value, fallback float64) float64 {
	if changed {
		return value
	}
	return fallback
}

var logLevel string
var logFormat string
var configFile string

func RootCommand() *cobra.Command {
	Main := &cobra.Command{Use: "framer", PersistentPreRunE: setupLogging, SilenceUsage: true}

	Main.PersistentFlags().StringVarP(&logLevel, "log-level", "", "info", "Logging level: info error or debug")
	Main.PersistentFlags().StringVarP(&logFormat, "log-format", "", "pretty", "Logging format: pretty or json")
	Main.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML project file (optional)")

	Main.AddCommand(TrainCommand())
	Main.AddCommand(PredictCommand())
	Main.AddCommand(TestCommand())
	Main.AddCommand(ZeroShotCommand())
	return Main
}

func main() {
	if err := RootCommand().Execute(); err != nil {
		log.Error().Err(err).Msg("")
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, args []string) error {

	switch logLevel {
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		return fmt.Errorf("invalid logging level %q", logLevel)
	}

	switch logFormat {
	case "pretty":
		setupPrettyLogging()
	case "json":
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	default:
		return fmt.Errorf("invalid log format %q", logFormat)
	}
	return nil
}

func setupPrettyLogging() {
	writer := zerolog.ConsoleWriter{Out: os.Stderr}
	writer.FormatFieldValue = func(i interface{}) string {
		switch v := i.(type) {
		case json.Number:
			val, _ := v.Float64()
			return fmt.Sprintf("%.3f", val)
		default:
			return fmt.Sprintf("%s", i)
		}

	}
	log.Logger = log.Output(writer)

}
