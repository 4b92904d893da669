package io

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"

	"framer/pkg/model"
)

// ErrMissingTextColumn is returned for data files without the text column.
var ErrMissingTextColumn = errors.New("text column not found in data header")

type DataParameters struct {
	DataFile     string
	TextColumn   string
	LabelColumns []string
}

type DataError struct {
	Line  int
	Error string
}

// DataRecord is one input row. Fields keeps the row exactly as read so it
// can be written back with predictions appended.
type DataRecord struct {
	Line   int
	Fields []string
	Text   string
	Labels map[string]model.LabelSet
}

// Table is a loaded data file.
type Table struct {
	Header   []string
	Records  []*DataRecord
	Encoding string
}

// LoadData reads a CSV data file. Label columns that are present are parsed
// into label sets, with ';' accepted as a delimiter; absent label columns are
// ignored. Rows without a text field are reported as DataErrors and skipped.
func LoadData(p DataParameters) (*Table, []DataError, error) {
	raw, err := ioutil.ReadFile(p.DataFile)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening file: %w", err)
	}
	text, encoding := DecodeText(raw)
	table, dataErrors, err := ParseData(strings.NewReader(text), p)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading %s: %w", p.DataFile, err)
	}
	table.Encoding = encoding
	return table, dataErrors, nil
}

// ParseData reads CSV data from an already decoded reader.
func ParseData(input io.Reader, p DataParameters) (*Table, []DataError, error) {
	var errors []DataError

	reader := csv.NewReader(input)
	reader.Comma = ','
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	//First line is expected to be a header
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("error reading data header: %w", err)
	}

	textColumn := columnIndex(header, p.TextColumn)
	if textColumn < 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingTextColumn, p.TextColumn)
	}
	labelColumns := map[string]int{}
	for _, name := range p.LabelColumns {
		if i := columnIndex(header, name); i >= 0 {
			labelColumns[name] = i
		}
	}

	table := &Table{Header: header}
	currentLine := 1
	for {
		record, err := reader.Read()
		currentLine++
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !asParseError(err, &parseErr) {
				return nil, nil, fmt.Errorf("error reading data: %w", err)
			}
			errors = append(errors, DataError{Line: parseErr.Line, Error: parseErr.Err.Error()})
			continue
		}
		if len(record) <= textColumn {
			errors = append(errors, DataError{Line: currentLine, Error: "record has no text field"})
			continue
		}
		// Missing trailing fields are read as empty.
		for len(record) < len(header) {
			record = append(record, "")
		}

		labels := make(map[string]model.LabelSet, len(labelColumns))
		for name, i := range labelColumns {
			labels[name] = model.ParseLabelSet(model.NormalizeDelimiter(record[i]))
		}
		table.Records = append(table.Records, &DataRecord{
			Line:   currentLine,
			Fields: record,
			Text:   record[textColumn],
			Labels: labels,
		})
	}
	return table, errors, nil
}

func asParseError(err error, target **csv.ParseError) bool {
	return errors.As(err, target)
}

func columnIndex(header []string, name string) int {
	for i, col := range header {
		if strings.TrimSpace(col) == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the table header contains name.
func (t *Table) HasColumn(name string) bool {
	return columnIndex(t.Header, name) >= 0
}

func (t *Table) Texts() []string {
	result := make([]string, len(t.Records))
	for i, r := range t.Records {
		result[i] = r.Text
	}
	return result
}

// LabelSets returns the parsed label sets of a column, empty for rows
// without one.
func (t *Table) LabelSets(column string) []model.LabelSet {
	result := make([]model.LabelSet, len(t.Records))
	for i, r := range t.Records {
		set, ok := r.Labels[column]
		if !ok {
			set = model.LabelSet{}
		}
		result[i] = set
	}
	return result
}

// Head returns a copy of the table holding the first n records.
func (t *Table) Head(n int) *Table {
	if n > len(t.Records) || n < 0 {
		n = len(t.Records)
	}
	head := &Table{
		Header:   append([]string(nil), t.Header...),
		Records:  make([]*DataRecord, n),
		Encoding: t.Encoding,
	}
	for i, r := range t.Records[:n] {
		copied := *r
		copied.Fields = append([]string(nil), r.Fields...)
		head.Records[i] = &copied
	}
	return head
}

// AppendColumn adds a column with one value per record. An existing column
// with the same name is overwritten.
func (t *Table) AppendColumn(name string, values []string) error {
	if len(values) != len(t.Records) {
		return fmt.Errorf("column %s has %d values for %d records", name, len(values), len(t.Records))
	}
	index := columnIndex(t.Header, name)
	if index < 0 {
		t.Header = append(t.Header, name)
		index = len(t.Header) - 1
	}
	for i, r := range t.Records {
		for len(r.Fields) <= index {
			r.Fields = append(r.Fields, "")
		}
		r.Fields[index] = values[i]
	}
	return nil
}

// WriteData writes the header and every record as CSV.
func WriteData(t *Table, writer io.Writer) error {
	w := csv.NewWriter(writer)
	if err := w.Write(t.Header); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}
	for _, r := range t.Records {
		if err := w.Write(r.Fields); err != nil {
			return fmt.Errorf("error writing line %d: %w", r.Line, err)
		}
	}
	w.Flush()
	return w.Error()
}

// SaveData writes the table to fileName, creating or truncating it.
func SaveData(t *Table, fileName string) error {
	outputFile, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("error opening output file %s: %w", fileName, err)
	}
	defer outputFile.Close()
	if err := WriteData(t, outputFile); err != nil {
		return fmt.Errorf("error writing %s: %w", fileName, err)
	}
	return outputFile.Close()
}
