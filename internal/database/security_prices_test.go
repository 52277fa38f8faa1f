package database

import (
	"context"
	"testing"
	"time"

	"github.com/majidtaherkhani/etf-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestSecurityPricesRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)
	ctx := context.Background()

	seed := func(t *testing.T) {
		t.Helper()
		err := testDB.CreatePriceObservationsBatch(ctx, []models.PriceObservation{
			{Date: date(1), Ticker: "AAPL", Price: 150},
			{Date: date(2), Ticker: "AAPL", Price: 151},
			{Date: date(3), Ticker: "AAPL", Price: 152},
			{Date: date(1), Ticker: "MSFT", Price: 300},
			{Date: date(2), Ticker: "MSFT", Price: 301},
			{Date: date(1), Ticker: "TSLA", Price: 200},
		})
		require.NoError(t, err)
	}

	t.Run("GetPriceHistory returns requested tickers only", func(t *testing.T) {
		testDB.TruncateAll(t)
		seed(t)

		history, err := testDB.GetPriceHistory(ctx, []string{"AAPL", "MSFT", "GOOGL"})
		require.NoError(t, err)
		require.Len(t, history, 5)

		for _, o := range history {
			assert.NotEqual(t, "TSLA", o.Ticker)
		}
		assert.True(t, history[0].Date.Equal(date(1)))
		assert.Equal(t, "AAPL", history[0].Ticker)
		assert.Equal(t, 150.0, history[0].Price)
	})

	t.Run("GetPriceHistory with unknown tickers is empty, not an error", func(t *testing.T) {
		testDB.TruncateAll(t)
		seed(t)

		history, err := testDB.GetPriceHistory(ctx, []string{"NOPE"})
		require.NoError(t, err)
		assert.Empty(t, history)

		history, err = testDB.GetPriceHistory(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("CreatePriceObservationsBatch upserts on conflict", func(t *testing.T) {
		testDB.TruncateAll(t)
		seed(t)

		err := testDB.CreatePriceObservationsBatch(ctx, []models.PriceObservation{
			{Date: date(3), Ticker: "AAPL", Price: 155.5},
		})
		require.NoError(t, err)

		latest, err := testDB.GetLatestPrice(ctx, "AAPL")
		require.NoError(t, err)
		assert.Equal(t, 155.5, latest.Price)

		history, err := testDB.GetPriceHistory(ctx, []string{"AAPL"})
		require.NoError(t, err)
		assert.Len(t, history, 3)
	})

	t.Run("GetLatestPrice returns the newest observation", func(t *testing.T) {
		testDB.TruncateAll(t)
		seed(t)

		latest, err := testDB.GetLatestPrice(ctx, "MSFT")
		require.NoError(t, err)
		assert.True(t, latest.Date.Equal(date(2)))
		assert.Equal(t, 301.0, latest.Price)
	})

	t.Run("GetLatestPrice not found", func(t *testing.T) {
		testDB.TruncateAll(t)

		_, err := testDB.GetLatestPrice(ctx, "AAPL")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("GetLatestPrices returns one row per ticker", func(t *testing.T) {
		testDB.TruncateAll(t)
		seed(t)

		latest, err := testDB.GetLatestPrices(ctx, []string{"AAPL", "MSFT"})
		require.NoError(t, err)
		require.Len(t, latest, 2)

		assert.Equal(t, "AAPL", latest[0].Ticker)
		assert.Equal(t, 152.0, latest[0].Price)
		assert.Equal(t, "MSFT", latest[1].Ticker)
		assert.Equal(t, 301.0, latest[1].Price)
	})

	t.Run("DeletePricesOlderThan", func(t *testing.T) {
		testDB.TruncateAll(t)
		seed(t)

		deleted, err := testDB.DeletePricesOlderThan(ctx, date(2))
		require.NoError(t, err)
		assert.Equal(t, int64(3), deleted)

		history, err := testDB.GetPriceHistory(ctx, []string{"AAPL", "MSFT", "TSLA"})
		require.NoError(t, err)
		assert.Len(t, history, 3)
	})
}
