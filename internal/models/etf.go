package models

// ETFAnalysisResponse is the result of analyzing an uploaded portfolio
type ETFAnalysisResponse struct {
	ETFName      string            `json:"etf_name"`
	LatestClose  float64           `json:"latest_close"`
	TimeSeries   []TimeSeriesPoint `json:"etf_time_series"`
	LatestPrices []LatestPrice     `json:"latest_prices"`
}

// TimeSeriesPoint is the composite value of the portfolio on one date
type TimeSeriesPoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// LatestPrice is a constituent's valuation on the latest date
type LatestPrice struct {
	Ticker string  `json:"ticker"`
	Price  float64 `json:"price"`
	Weight float64 `json:"weight"`
	Value  float64 `json:"value"`
}
