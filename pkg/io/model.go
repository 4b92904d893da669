package io

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"framer/pkg/model"
)

// ModelFile is the name of the encoded model inside a model directory.
const ModelFile = "model.gob"

// ErrModelNotFound is returned when a model directory or one of its
// artifacts does not exist.
var ErrModelNotFound = errors.New("trained model not found")

func SaveModel(model *model.Model, writer io.Writer) error {
	encoder := gob.NewEncoder(writer)
	err := encoder.Encode(model)
	if err != nil {
		return fmt.Errorf("error encoding model: %w", err)
	}
	return nil
}

func LoadModel(input io.Reader) (*model.Model, error) {
	decoder := gob.NewDecoder(input)
	model := model.Model{}
	err := decoder.Decode(&model)
	if err != nil {
		return nil, fmt.Errorf("error decoding model: %w", err)
	}
	return &model, nil
}

// SaveModelDir writes the model and both label tables into dir.
func SaveModelDir(m *model.Model, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating model directory %s: %w", dir, err)
	}

	modelPath := filepath.Join(dir, ModelFile)
	outputFile, err := os.Create(modelPath)
	if err != nil {
		return fmt.Errorf("error creating model file %s: %w", modelPath, err)
	}
	defer outputFile.Close()
	if err := SaveModel(m, outputFile); err != nil {
		return err
	}
	if err := outputFile.Close(); err != nil {
		return fmt.Errorf("error closing model file %s: %w", modelPath, err)
	}

	vocabulary := m.Vocabulary()
	if err := writeJSON(filepath.Join(dir, m.MetaData.LabelToIDFile()), vocabulary.LabelToID()); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, m.MetaData.IDToLabelFile()), vocabulary.IDToLabel())
}

// CheckModelDir fails with ErrModelNotFound unless dir holds a model.
func CheckModelDir(dir string) error {
	if _, err := os.Stat(filepath.Join(dir, ModelFile)); err != nil {
		return fmt.Errorf("%w: %s", ErrModelNotFound, dir)
	}
	return nil
}

// LoadModelDir reads a model and binds it to its persisted label→index table.
func LoadModelDir(dir string) (*model.Model, error) {
	if err := CheckModelDir(dir); err != nil {
		return nil, err
	}
	modelPath := filepath.Join(dir, ModelFile)
	modelFile, err := os.Open(modelPath)
	if err != nil {
		return nil, fmt.Errorf("error opening model file %s: %w", modelPath, err)
	}
	defer modelFile.Close()

	m, err := LoadModel(modelFile)
	if err != nil {
		return nil, fmt.Errorf("error loading model from file %s: %w", modelPath, err)
	}
	if m.MetaData == nil {
		return nil, fmt.Errorf("model file %s has no metadata", modelPath)
	}

	vocabulary, err := LoadVocabulary(filepath.Join(dir, m.MetaData.LabelToIDFile()))
	if err != nil {
		return nil, err
	}
	if err := m.SetVocabulary(vocabulary); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadVocabulary reads a label→index JSON table.
func LoadVocabulary(fileName string) (*model.Vocabulary, error) {
	raw, err := ioutil.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, fileName)
		}
		return nil, fmt.Errorf("error reading label map %s: %w", fileName, err)
	}
	table := map[string]int{}
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("error decoding label map %s: %w", fileName, err)
	}
	vocabulary, err := model.VocabularyFromLabelToID(table)
	if err != nil {
		return nil, fmt.Errorf("invalid label map %s: %w", fileName, err)
	}
	return vocabulary, nil
}

func writeJSON(fileName string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding %s: %w", fileName, err)
	}
	if err := ioutil.WriteFile(fileName, data, 0o644); err != nil {
		return fmt.Errorf("error writing %s: %w", fileName, err)
	}
	return nil
}
