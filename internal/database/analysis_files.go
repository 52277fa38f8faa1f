package database

import (
	"context"
	"fmt"

	"github.com/majidtaherkhani/etf-service/internal/models"
)

// LogRequest records an archived portfolio upload
func (db *DB) LogRequest(ctx context.Context, fileName, storageURL string) (*models.AnalysisLog, error) {
	query := `
		INSERT INTO etf_analysis_files (file_name, storage_url)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	entry := &models.AnalysisLog{FileName: fileName, StorageURL: storageURL}
	if err := db.conn.QueryRowContext(ctx, query, fileName, storageURL).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to log analysis request: %w", err)
	}
	return entry, nil
}

// ListAnalysisLogs returns the most recent archived uploads, newest first
func (db *DB) ListAnalysisLogs(ctx context.Context, limit int) ([]models.AnalysisLog, error) {
	query := `
		SELECT id, COALESCE(file_name, ''), COALESCE(storage_url, ''), created_at
		FROM etf_analysis_files
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis logs: %w", err)
	}
	defer rows.Close()

	var logs []models.AnalysisLog
	for rows.Next() {
		var l models.AnalysisLog
		if err := rows.Scan(&l.ID, &l.FileName, &l.StorageURL, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analysis logs: %w", err)
	}
	return logs, nil
}
