package models

import "time"

// Event type constants
const (
	EventTypeAnalysisArchived = "ETF_ANALYSIS_ARCHIVED"
	EventTypePriceObserved    = "PRICE_OBSERVED"
)

// AnalysisEvent is published after an uploaded portfolio has been archived
type AnalysisEvent struct {
	EventType  string    `json:"event_type"`
	LogID      int       `json:"log_id"`
	FileName   string    `json:"file_name"`
	StorageURL string    `json:"storage_url"`
	Timestamp  time.Time `json:"timestamp"`
}

// PriceEvent carries a price observation from an upstream market data feed
type PriceEvent struct {
	EventType string         `json:"event_type"`
	Source    string         `json:"source"`
	Data      PriceEventData `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// PriceEventData is the payload of a PRICE_OBSERVED event
type PriceEventData struct {
	Ticker string  `json:"ticker"`
	Date   string  `json:"date"` // YYYY-MM-DD
	Price  float64 `json:"price"`
}
