package portfolio

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInput is returned when the upload cannot be decoded as CSV
	ErrMalformedInput = errors.New("invalid CSV format")

	// ErrEmptyInput is returned when the upload has no data rows.
	// It wraps ErrMalformedInput.
	ErrEmptyInput = fmt.Errorf("%w: CSV file is empty", ErrMalformedInput)

	// ErrMissingColumn is returned when the header lacks a required column
	ErrMissingColumn = errors.New("CSV must have 'name' and 'weight' columns")

	// ErrNoData is returned when the price store has nothing for the requested tickers
	ErrNoData = errors.New("no price data found for these tickers")

	// ErrNoMatchingTicker is returned when price data exists but none of it is for a requested ticker
	ErrNoMatchingTicker = errors.New("no matching price data for the provided tickers")

	// ErrDuplicateObservation is returned when two observations share a (date, ticker) pair
	ErrDuplicateObservation = errors.New("duplicate price observation")
)

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...))
}
