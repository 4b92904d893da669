package io

import (
	"bytes"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"framer/pkg/model"
)

const sample = `Text,LabelFrames,TopLabelFrames,Source
"Tariffs, again",Economic;Policy,Economic,a
Troops moved,Security,Security,b
short row,Security
Nothing here,,,c
`

var sampleParams = DataParameters{
	TextColumn:   "Text",
	LabelColumns: []string{"LabelFrames", "TopLabelFrames", "Missing"},
}

func TestParseData(t *testing.T) {
	table, dataErrors, err := ParseData(strings.NewReader(sample), sampleParams)
	require.NoError(t, err)
	require.Empty(t, dataErrors)
	require.Len(t, table.Records, 4)

	require.Equal(t, []string{"Tariffs, again", "Troops moved", "short row", "Nothing here"}, table.Texts())
	require.Equal(t, []model.LabelSet{{"Economic", "Policy"}, {"Security"}, {"Security"}, {}}, table.LabelSets("LabelFrames"))
	require.Equal(t, []model.LabelSet{{"Economic"}, {"Security"}, {}, {}}, table.LabelSets("TopLabelFrames"))
	require.Equal(t, []model.LabelSet{{}, {}, {}, {}}, table.LabelSets("Missing"))
	require.Equal(t, []string{"short row", "Security", "", ""}, table.Records[2].Fields)
	require.True(t, table.HasColumn("Source"))
	require.False(t, table.HasColumn("Missing"))
}

func TestParseData_ShortRows(t *testing.T) {
	input := "Text,LabelFrames,TopLabelFrames\nfirst doc,A,X\nsecond doc,B\nthird doc,C,Y\n"
	table, dataErrors, err := ParseData(strings.NewReader(input), sampleParams)
	require.NoError(t, err)
	require.Empty(t, dataErrors)
	require.Equal(t, []string{"first doc", "second doc", "third doc"}, table.Texts())

	require.NoError(t, table.AppendColumn("LabelFrames_pred", []string{"A", "B", "C"}))
	var b bytes.Buffer
	require.NoError(t, WriteData(table, &b))
	require.Equal(t, `Text,LabelFrames,TopLabelFrames,LabelFrames_pred
first doc,A,X,A
second doc,B,,B
third doc,C,Y,C
`, b.String())

	// A row that ends before the text column carries no document.
	table, dataErrors, err = ParseData(strings.NewReader("Id,Text\n1,kept\n2\n3,also kept\n"), sampleParams)
	require.NoError(t, err)
	require.Equal(t, []DataError{{Line: 3, Error: "record has no text field"}}, dataErrors)
	require.Equal(t, []string{"kept", "also kept"}, table.Texts())
}

func TestParseData_MissingTextColumn(t *testing.T) {
	_, _, err := ParseData(strings.NewReader("Body,LabelFrames\nx,A\n"), sampleParams)
	require.True(t, errors.Is(err, ErrMissingTextColumn))
}

func TestTable_AppendColumnAndWrite(t *testing.T) {
	table, _, err := ParseData(strings.NewReader(sample), sampleParams)
	require.NoError(t, err)

	head := table.Head(2)
	require.NoError(t, head.AppendColumn("LabelFrames_pred", []string{"Economic", "Security"}))
	require.Error(t, head.AppendColumn("Short", []string{"x"}))
	require.Len(t, table.Header, 4)

	var b bytes.Buffer
	require.NoError(t, WriteData(head, &b))
	require.Equal(t, `Text,LabelFrames,TopLabelFrames,Source,LabelFrames_pred
"Tariffs, again",Economic;Policy,Economic,a,Economic
Troops moved,Security,Security,b,Security
`, b.String())
}

func TestLoadData_Latin1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latin1.csv")
	require.NoError(t, os.WriteFile(path, []byte("Text,LabelFrames\ncaf\xe9,A\n"), 0o644))

	table, dataErrors, err := LoadData(DataParameters{DataFile: path, TextColumn: "Text", LabelColumns: []string{"LabelFrames"}})
	require.NoError(t, err)
	require.Empty(t, dataErrors)
	require.Equal(t, "latin-1", table.Encoding)
	require.Equal(t, []string{"café"}, table.Texts())
}

func TestDataSet_Next(t *testing.T) {
	records := make([]*DataRecord, 5)
	for i := range records {
		records[i] = &DataRecord{Line: i, Text: string(rune('a' + i))}
	}
	ds := NewDataSet(records, 2)
	var batches [][]string
	for batch := ds.Next(); len(batch) > 0; batch = ds.Next() {
		batches = append(batches, batch.Texts())
	}
	require.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, batches)
	require.Empty(t, ds.Next())

	ds.Reset()
	require.Equal(t, []string{"a", "b"}, ds.Next().Texts())

	ds.Rand = rand.New(rand.NewSource(42))
	splits := ds.RandomSplit(3, 2)
	require.Equal(t, 3, splits[0].Size())
	require.Equal(t, 2, splits[1].Size())
	seen := map[string]bool{}
	for _, split := range splits {
		previous := -1
		for _, r := range split.Records() {
			require.Greater(t, r.Line, previous)
			previous = r.Line
			seen[r.Text] = true
		}
	}
	require.Len(t, seen, 5)
}

func TestModelDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "topframes")
	require.True(t, errors.Is(CheckModelDir(dir), ErrModelNotFound))
	_, err := LoadModelDir(dir)
	require.True(t, errors.Is(err, ErrModelNotFound))

	labels := []model.LabelSet{{"Economic"}, {"Security"}}
	vocabulary := model.BuildVocabulary(labels)
	m, err := model.Train(&model.Metadata{Name: "topframes", TargetColumn: "TopLabelFrames", FeatureDimension: 256},
		vocabulary, []string{"trade economy", "army war"}, labels)
	require.NoError(t, err)
	require.NoError(t, SaveModelDir(m, dir))

	require.FileExists(t, filepath.Join(dir, "label2id_topframes.json"))
	require.FileExists(t, filepath.Join(dir, "id2label_topframes.json"))

	loaded, err := LoadModelDir(dir)
	require.NoError(t, err)
	require.Equal(t, m.MetaData, loaded.MetaData)
	require.Equal(t, vocabulary.Labels(), loaded.Vocabulary().Labels())
	require.Equal(t, m.Logits([]string{"economy"}), loaded.Logits([]string{"economy"}))
}
