package model

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"gonum.org/v1/gonum/floats"
)

// Tokenize lowercases text and splits it on anything that is not a letter or
// a digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Featurize maps text to an L2-normalized vector of log-scaled hashed term
// counts. Empty text maps to the zero vector.
func Featurize(text string, dimension int) []float64 {
	features := make([]float64, dimension)
	h := fnv.New32a()
	for _, token := range Tokenize(text) {
		h.Reset()
		_, _ = h.Write([]byte(token))
		features[int(h.Sum32()%uint32(dimension))]++
	}
	for i, count := range features {
		if count > 0 {
			features[i] = math.Log1p(count)
		}
	}
	if norm := floats.Norm(features, 2); norm > 0 {
		floats.Scale(1/norm, features)
	}
	return features
}
