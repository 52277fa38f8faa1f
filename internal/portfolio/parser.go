package portfolio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Required header names of an uploaded portfolio file
const (
	ColumnName   = "name"
	ColumnWeight = "weight"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Weights maps a normalized ticker to its portfolio weight.
// Weights are passed through as given: they may be negative or not sum to one.
type Weights map[string]float64

// NormalizeTicker trims surrounding whitespace and upper-cases a symbol
func NormalizeTicker(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Tickers returns the tickers in ascending order
func (w Weights) Tickers() []string {
	tickers := make([]string, 0, len(w))
	for t := range w {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}

// WriteCSV writes the weights as a name,weight CSV in ticker order
func (w Weights) WriteCSV(out io.Writer) error {
	cw := csv.NewWriter(out)
	if err := cw.Write([]string{ColumnName, ColumnWeight}); err != nil {
		return err
	}
	for _, t := range w.Tickers() {
		if err := cw.Write([]string{t, strconv.FormatFloat(w[t], 'g', -1, 64)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ParseWeights decodes an uploaded CSV into normalized ticker weights.
// Extra columns are ignored. When a ticker appears more than once the last row wins.
func ParseWeights(content []byte) (Weights, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, ErrEmptyInput
	}
	if !utf8.Valid(content) {
		return nil, malformed("file is not valid UTF-8")
	}

	r := csv.NewReader(bytes.NewReader(content))
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyInput
		}
		return nil, malformed("%v", err)
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, malformed("%v", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}

	nameIdx, weightIdx := -1, -1
	for i, col := range header {
		switch col {
		case ColumnName:
			nameIdx = i
		case ColumnWeight:
			weightIdx = i
		}
	}
	if nameIdx < 0 || weightIdx < 0 {
		return nil, ErrMissingColumn
	}

	weights := make(Weights, len(rows))
	for i, row := range rows {
		line := i + 2
		ticker := NormalizeTicker(row[nameIdx])
		if ticker == "" {
			return nil, malformed("line %d: empty ticker", line)
		}
		raw := strings.TrimSpace(row[weightIdx])
		weight, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, malformed("line %d: invalid weight %q", line, raw)
		}
		if math.IsNaN(weight) || math.IsInf(weight, 0) {
			return nil, malformed("line %d: weight must be finite", line)
		}
		weights[ticker] = weight
	}
	return weights, nil
}
