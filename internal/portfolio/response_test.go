package portfolio

import (
	"testing"

	"github.com/majidtaherkhani/etf-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"test_portfolio.csv", "test_portfolio"},
		{"archive.tar.gz", "archive.tar"},
		{"portfolio", "portfolio"},
		{"", DefaultETFName},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DisplayName(tt.filename), tt.filename)
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.01, Round2(1.005))
	assert.Equal(t, -1.01, Round2(-1.005))
	assert.Equal(t, 2.68, Round2(2.675))
	assert.Equal(t, 225.0, Round2(225))
	assert.Equal(t, 90.6, Round2(302*0.3))
}

func TestNewResponse(t *testing.T) {
	m, weights := scenarioA(t)
	resp := NewResponse("test_portfolio", Calculate(m, weights))

	assert.Equal(t, "test_portfolio", resp.ETFName)
	assert.Equal(t, 227.0, resp.LatestClose)
	assert.Equal(t, []models.TimeSeriesPoint{
		{Date: "2024-01-01", Price: 225},
		{Date: "2024-01-02", Price: 226},
		{Date: "2024-01-03", Price: 227},
	}, resp.TimeSeries)
	assert.Equal(t, []models.LatestPrice{
		{Ticker: "AAPL", Price: 152, Weight: 0.5, Value: 76},
		{Ticker: "MSFT", Price: 302, Weight: 0.5, Value: 151},
	}, resp.LatestPrices)
}

func TestNewResponseRoundsOnlyAtBoundary(t *testing.T) {
	weights := Weights{"A": 1.0 / 3.0, "B": 1.0 / 3.0, "C": 1.0 / 3.0}
	m, err := Align(weights, []models.PriceObservation{
		obs(1, "A", 10.004), obs(1, "B", 10.004), obs(1, "C", 10.004),
	})
	require.NoError(t, err)

	v := Calculate(m, weights)
	resp := NewResponse("x", v)

	assert.InDelta(t, 10.004, v.LatestClose(), 1e-9)
	assert.Equal(t, 10.0, resp.LatestClose)
	for _, lp := range resp.LatestPrices {
		assert.Equal(t, 3.33, lp.Value)
	}
}
