package pkg

import (
	"strconv"

	"github.com/rs/zerolog/log"

	"framer/pkg/io"
	"framer/pkg/model"
)

func printDataErrors(file string, errors []io.DataError) {
	for _, err := range errors {
		log.Error().Str("File", file).Msgf("Error parsing data at line %d: %s", err.Line, err.Error)
	}
}

func formatScore(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func labelStrings(sets []model.LabelSet) []string {
	result := make([]string, len(sets))
	for i, set := range sets {
		result[i] = set.String()
	}
	return result
}

func scoreStrings(scores []float64) []string {
	result := make([]string, len(scores))
	for i, s := range scores {
		result[i] = formatScore(s)
	}
	return result
}
