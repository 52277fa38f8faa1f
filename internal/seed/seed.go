// Package seed loads historical prices from wide CSV exports into the price store.
package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/majidtaherkhani/etf-service/internal/models"
	"github.com/majidtaherkhani/etf-service/internal/portfolio"
)

const (
	dateColumn       = "DATE"
	defaultBatchSize = 1000
)

// ErrMissingDateColumn is returned when the header has no DATE column
var ErrMissingDateColumn = errors.New("price file has no DATE column")

// PriceWriter persists observations
type PriceWriter interface {
	CreatePriceObservationsBatch(ctx context.Context, observations []models.PriceObservation) error
}

// ParseWidePrices reads a CSV laid out as DATE,<T1>,<T2>,... and returns one
// observation per non-blank price cell. Rows with an unparseable date and
// cells that are not a positive number are skipped.
func ParseWidePrices(r io.Reader) ([]models.PriceObservation, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrMissingDateColumn
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	dateIdx := -1
	tickers := make([]string, len(header))
	for i, col := range header {
		col = strings.TrimPrefix(strings.TrimSpace(col), "\ufeff")
		if col == dateColumn {
			dateIdx = i
			continue
		}
		tickers[i] = portfolio.NormalizeTicker(col)
	}
	if dateIdx < 0 {
		return nil, ErrMissingDateColumn
	}

	var out []models.PriceObservation
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read price row: %w", err)
		}
		if dateIdx >= len(record) {
			continue
		}

		date, err := time.Parse(models.DateLayout, strings.TrimSpace(record[dateIdx]))
		if err != nil {
			continue
		}

		for i, cell := range record {
			if i == dateIdx || i >= len(tickers) || tickers[i] == "" {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			price, err := strconv.ParseFloat(cell, 64)
			if err != nil || price <= 0 || math.IsInf(price, 0) || math.IsNaN(price) {
				continue
			}
			out = append(out, models.PriceObservation{Date: date, Ticker: tickers[i], Price: price})
		}
	}
	return out, nil
}

// Load writes observations in batches and returns how many were stored
func Load(ctx context.Context, store PriceWriter, observations []models.PriceObservation, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	stored := 0
	for start := 0; start < len(observations); start += batchSize {
		end := min(start+batchSize, len(observations))
		if err := store.CreatePriceObservationsBatch(ctx, observations[start:end]); err != nil {
			return stored, fmt.Errorf("failed to store batch starting at %d: %w", start, err)
		}
		stored = end
	}
	return stored, nil
}
