package models

import "time"

// PriceObservation is a single closing price for a ticker on a calendar date.
// (Date, Ticker) is the natural key.
type PriceObservation struct {
	Date   time.Time `json:"date"`
	Ticker string    `json:"ticker"`
	Price  float64   `json:"price"`
}

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"
