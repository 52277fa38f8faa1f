package portfolio

import (
	"fmt"
	"sort"
	"time"

	"github.com/majidtaherkhani/etf-service/internal/models"
)

// Matrix is a dense date x ticker price table.
// Rows are ascending calendar dates, columns are ascending tickers. A cell may be
// undefined, which is distinct from a zero price.
type Matrix struct {
	dates   []time.Time
	tickers []string
	prices  []float64
	defined []bool
}

// Dates returns the row dates in ascending order
func (m *Matrix) Dates() []time.Time { return m.dates }

// Tickers returns the column tickers in ascending order
func (m *Matrix) Tickers() []string { return m.tickers }

// Price returns the cell at (row, col) and whether it is defined
func (m *Matrix) Price(row, col int) (float64, bool) {
	i := row*len(m.tickers) + col
	return m.prices[i], m.defined[i]
}

// calendarDate drops the clock so observations key on the UTC calendar day
func calendarDate(t time.Time) time.Time {
	y, mo, d := t.UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

type cellKey struct {
	date   time.Time
	ticker string
}

// Align pivots flat observations into a Matrix restricted to tickers that are
// both weighted and observed. The weight set is the authoritative filter, whatever
// the price store already filtered.
func Align(weights Weights, observations []models.PriceObservation) (*Matrix, error) {
	if len(observations) == 0 {
		return nil, ErrNoData
	}

	cells := make(map[cellKey]float64)
	dateSet := make(map[time.Time]struct{})
	tickerSet := make(map[string]struct{})

	for _, o := range observations {
		if _, ok := weights[o.Ticker]; !ok {
			continue
		}

		key := cellKey{date: calendarDate(o.Date), ticker: o.Ticker}
		if _, dup := cells[key]; dup {
			return nil, fmt.Errorf("%w: %s on %s", ErrDuplicateObservation, o.Ticker, key.date.Format(models.DateLayout))
		}
		cells[key] = o.Price
		dateSet[key.date] = struct{}{}
		tickerSet[o.Ticker] = struct{}{}
	}

	if len(tickerSet) == 0 {
		return nil, ErrNoMatchingTicker
	}

	m := &Matrix{
		dates:   make([]time.Time, 0, len(dateSet)),
		tickers: make([]string, 0, len(tickerSet)),
	}
	for d := range dateSet {
		m.dates = append(m.dates, d)
	}
	sort.Slice(m.dates, func(i, j int) bool { return m.dates[i].Before(m.dates[j]) })
	for t := range tickerSet {
		m.tickers = append(m.tickers, t)
	}
	sort.Strings(m.tickers)

	m.prices = make([]float64, len(m.dates)*len(m.tickers))
	m.defined = make([]bool, len(m.prices))
	for row, d := range m.dates {
		for col, t := range m.tickers {
			if p, ok := cells[cellKey{date: d, ticker: t}]; ok {
				i := row*len(m.tickers) + col
				m.prices[i] = p
				m.defined[i] = true
			}
		}
	}
	return m, nil
}
