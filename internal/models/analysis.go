package models

import "time"

// AnalysisLog records an uploaded portfolio file and where it was archived
type AnalysisLog struct {
	ID         int       `json:"id"`
	FileName   string    `json:"file_name"`
	StorageURL string    `json:"storage_url"`
	CreatedAt  time.Time `json:"created_at"`
}
