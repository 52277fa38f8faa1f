package portfolio

import (
	"math"
	"strings"

	"github.com/majidtaherkhani/etf-service/internal/models"
	"github.com/shopspring/decimal"
)

// DefaultETFName labels uploads that arrive without a filename
const DefaultETFName = "ETF"

// DisplayName strips the last extension from an uploaded filename
func DisplayName(filename string) string {
	if filename == "" {
		return DefaultETFName
	}
	if i := strings.LastIndex(filename, "."); i >= 0 {
		return filename[:i]
	}
	return filename
}

// Round2 rounds half away from zero to two decimal places
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// NewResponse shapes a valuation for the API. Rounding happens here and nowhere earlier.
func NewResponse(name string, v Valuation) *models.ETFAnalysisResponse {
	resp := &models.ETFAnalysisResponse{
		ETFName:      name,
		LatestClose:  Round2(v.LatestClose()),
		TimeSeries:   make([]models.TimeSeriesPoint, len(v.Series)),
		LatestPrices: make([]models.LatestPrice, len(v.Latest)),
	}
	for i, p := range v.Series {
		resp.TimeSeries[i] = models.TimeSeriesPoint{
			Date:  p.Date.Format(models.DateLayout),
			Price: Round2(p.Value),
		}
	}
	for i, l := range v.Latest {
		resp.LatestPrices[i] = models.LatestPrice{
			Ticker: l.Ticker,
			Price:  l.Price,
			Weight: l.Weight,
			Value:  Round2(l.WeightedValue),
		}
	}
	return resp
}
