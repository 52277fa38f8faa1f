package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/majidtaherkhani/etf-service/internal/models"
)

// GetPriceHistory returns every stored observation for the given tickers.
// Unknown tickers simply contribute no rows.
func (db *DB) GetPriceHistory(ctx context.Context, tickers []string) ([]models.PriceObservation, error) {
	if len(tickers) == 0 {
		return nil, nil
	}

	query := `
		SELECT date, ticker, price
		FROM security_prices
		WHERE ticker = ANY($1)
		ORDER BY date ASC, ticker ASC
	`
	rows, err := db.conn.QueryContext(ctx, query, pq.Array(tickers))
	if err != nil {
		return nil, fmt.Errorf("failed to get price history: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// GetLatestPrice returns the most recent observation for a ticker
func (db *DB) GetLatestPrice(ctx context.Context, ticker string) (*models.PriceObservation, error) {
	query := `
		SELECT date, ticker, price
		FROM security_prices
		WHERE ticker = $1
		ORDER BY date DESC
		LIMIT 1
	`
	var o models.PriceObservation
	err := db.conn.QueryRowContext(ctx, query, ticker).Scan(&o.Date, &o.Ticker, &o.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no price data found for %s: %w", ticker, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price: %w", err)
	}
	return &o, nil
}

// GetLatestPrices returns each ticker's most recent observation
func (db *DB) GetLatestPrices(ctx context.Context, tickers []string) ([]models.PriceObservation, error) {
	if len(tickers) == 0 {
		return nil, nil
	}

	query := `
		SELECT DISTINCT ON (ticker) date, ticker, price
		FROM security_prices
		WHERE ticker = ANY($1)
		ORDER BY ticker ASC, date DESC
	`
	rows, err := db.conn.QueryContext(ctx, query, pq.Array(tickers))
	if err != nil {
		return nil, fmt.Errorf("failed to get latest prices: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// CreatePriceObservationsBatch upserts observations in a single transaction.
// An existing (date, ticker) row has its price replaced.
func (db *DB) CreatePriceObservationsBatch(ctx context.Context, observations []models.PriceObservation) error {
	if len(observations) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO security_prices (date, ticker, price, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (date, ticker) DO UPDATE SET
			price = EXCLUDED.price
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, o := range observations {
		if _, err := stmt.ExecContext(ctx, o.Date, o.Ticker, o.Price, now); err != nil {
			return fmt.Errorf("failed to insert price for %s on %s: %w", o.Ticker, o.Date.Format(models.DateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeletePricesOlderThan removes observations dated before the cutoff
func (db *DB) DeletePricesOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM security_prices WHERE date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old price data: %w", err)
	}
	return result.RowsAffected()
}

func scanObservations(rows *sql.Rows) ([]models.PriceObservation, error) {
	var out []models.PriceObservation
	for rows.Next() {
		var o models.PriceObservation
		if err := rows.Scan(&o.Date, &o.Ticker, &o.Price); err != nil {
			return nil, fmt.Errorf("failed to scan price data: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate price data: %w", err)
	}
	return out, nil
}
