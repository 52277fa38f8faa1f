package portfolio

import (
	"time"

	"gonum.org/v1/gonum/floats"
)

// SeriesPoint is the unrounded composite value on one date
type SeriesPoint struct {
	Date  time.Time
	Value float64
}

// LatestValuation is one constituent's contribution on the latest date
type LatestValuation struct {
	Ticker        string
	Price         float64
	Weight        float64
	WeightedValue float64
}

// Valuation is the output of Calculate. Values are unrounded.
type Valuation struct {
	Series     []SeriesPoint
	Latest     []LatestValuation
	LatestDate time.Time
}

// LatestClose returns the composite value on the latest date
func (v Valuation) LatestClose() float64 {
	if len(v.Series) == 0 {
		return 0
	}
	return v.Series[len(v.Series)-1].Value
}

// Calculate computes the weighted composite series and the latest breakdown.
// Undefined cells are left out of a date's sum. Only tickers priced exactly on
// the latest date appear in the breakdown.
func Calculate(m *Matrix, weights Weights) Valuation {
	nCols := len(m.tickers)
	colWeights := make([]float64, nCols)
	for col, t := range m.tickers {
		colWeights[col] = weights[t]
	}

	v := Valuation{Series: make([]SeriesPoint, len(m.dates))}
	prices := make([]float64, 0, nCols)
	ws := make([]float64, 0, nCols)
	for row, d := range m.dates {
		prices, ws = prices[:0], ws[:0]
		for col := 0; col < nCols; col++ {
			if p, ok := m.Price(row, col); ok {
				prices = append(prices, p)
				ws = append(ws, colWeights[col])
			}
		}
		v.Series[row] = SeriesPoint{Date: d, Value: floats.Dot(prices, ws)}
	}

	if len(m.dates) == 0 {
		return v
	}
	last := len(m.dates) - 1
	v.LatestDate = m.dates[last]
	for col, t := range m.tickers {
		p, ok := m.Price(last, col)
		if !ok {
			continue
		}
		v.Latest = append(v.Latest, LatestValuation{
			Ticker:        t,
			Price:         p,
			Weight:        colWeights[col],
			WeightedValue: p * colWeights[col],
		})
	}
	return v
}
