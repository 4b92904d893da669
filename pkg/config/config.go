// Package config holds the project layout and run settings shared by all
// commands, optionally read from a YAML file.
package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// TokenEnv names the environment variable holding the zero-shot endpoint token.
const TokenEnv = "FRAMER_NLI_TOKEN"

// Level is one label level of the taxonomy.
type Level struct {
	// Column is the data column holding the level's labels
	Column string `yaml:"column"`
	// ModelDir is where the level's trained model lives
	ModelDir string `yaml:"model_dir"`
	// MultiLabel levels may assign several labels per document
	MultiLabel bool `yaml:"multi_label"`
}

type ZeroShot struct {
	Endpoint   string  `yaml:"endpoint"`
	Model      string  `yaml:"model"`
	SubsetSize int     `yaml:"subset_size"`
	Threshold  float64 `yaml:"threshold"`
	Token      string  `yaml:"-"`
}

type Config struct {
	BaseDir    string `yaml:"base_dir"`
	DataDir    string `yaml:"data_dir"`
	ResultsDir string `yaml:"results_dir"`
	RunLog     string `yaml:"run_log"`

	TrainFile  string `yaml:"train_file"`
	EvalFile   string `yaml:"eval_file"`
	TextColumn string `yaml:"text_column"`

	Fine Level `yaml:"fine"`
	Top  Level `yaml:"top"`

	BatchSize        int      `yaml:"batch_size"`
	Threshold        float64  `yaml:"threshold"`
	FeatureDimension int      `yaml:"feature_dimension"`
	RandomSeed       int64    `yaml:"random_seed"`
	Files            []string `yaml:"files"`

	ZeroShot ZeroShot `yaml:"zero_shot"`
}

// Default mirrors the layout the project has always used.
func Default() *Config {
	return &Config{
		BaseDir:    ".",
		DataDir:    "data",
		ResultsDir: "results",
		RunLog:     "READme.md",
		TrainFile:  "train_data.csv",
		EvalFile:   "eval_data.csv",
		TextColumn: "Text",
		Fine: Level{
			Column:     "LabelFrames",
			ModelDir:   filepath.Join("results", "trained_models", "labelframes"),
			MultiLabel: true,
		},
		Top: Level{
			Column:   "TopLabelFrames",
			ModelDir: filepath.Join("results", "trained_models", "topframes"),
		},
		BatchSize:        4,
		Threshold:        0.5,
		FeatureDimension: 4096,
		RandomSeed:       42,
		Files:            []string{"train_data.csv", "eval_data.csv"},
		ZeroShot: ZeroShot{
			Model:      "facebook/bart-large-mnli",
			SubsetSize: 200,
			Threshold:  0.3,
		},
	}
}

// Load reads a YAML file over the defaults. An empty fileName returns the
// defaults.
func Load(fileName string) (*Config, error) {
	c := Default()
	if fileName != "" {
		raw, err := ioutil.ReadFile(fileName)
		if err != nil {
			return nil, fmt.Errorf("error reading config %s: %w", fileName, err)
		}
		if err := yaml.Unmarshal(raw, c); err != nil {
			return nil, fmt.Errorf("error parsing config %s: %w", fileName, err)
		}
	}
	c.ZeroShot.Token = os.Getenv(TokenEnv)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.TextColumn == "" {
		return fmt.Errorf("text_column must be set")
	}
	if c.Fine.Column == "" || c.Top.Column == "" {
		return fmt.Errorf("both label levels need a column")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if err := ValidateThreshold("threshold", c.Threshold); err != nil {
		return err
	}
	return ValidateThreshold("zero_shot.threshold", c.ZeroShot.Threshold)
}

// ValidateThreshold checks that a decision threshold lies in (0,1).
func ValidateThreshold(name string, value float64) error {
	if value <= 0 || value >= 1 {
		return fmt.Errorf("%s must be in (0,1), got %v", name, value)
	}
	return nil
}

// Path resolves a path relative to the base directory.
func (c *Config) Path(elem ...string) string {
	if len(elem) > 0 && filepath.IsAbs(elem[0]) {
		return filepath.Join(elem...)
	}
	return filepath.Join(append([]string{c.BaseDir}, elem...)...)
}

func (c *Config) DataPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return c.Path(c.DataDir, name)
}

// Levels returns the fine and top levels in processing order.
func (c *Config) Levels() []Level {
	return []Level{c.Fine, c.Top}
}
