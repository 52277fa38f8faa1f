package etf

import (
	"context"
	"fmt"

	"github.com/majidtaherkhani/etf-service/internal/models"
	"github.com/majidtaherkhani/etf-service/internal/storage"
	"github.com/rs/zerolog"
)

// FileStore uploads archived files and returns their public URL
type FileStore interface {
	Upload(ctx context.Context, req storage.UploadRequest) (string, error)
}

// AnalysisLogStore records archived uploads
type AnalysisLogStore interface {
	LogRequest(ctx context.Context, fileName, storageURL string) (*models.AnalysisLog, error)
}

// EventPublisher announces archived uploads
type EventPublisher interface {
	PublishAnalysisArchived(ctx context.Context, entry *models.AnalysisLog) error
}

// Archiver persists an uploaded portfolio file and its audit record
type Archiver struct {
	files  FileStore
	logs   AnalysisLogStore
	events EventPublisher
	log    zerolog.Logger
}

// NewArchiver creates an Archiver. events may be nil.
func NewArchiver(files FileStore, logs AnalysisLogStore, events EventPublisher, log zerolog.Logger) *Archiver {
	return &Archiver{
		files:  files,
		logs:   logs,
		events: events,
		log:    log.With().Str("component", "archiver").Logger(),
	}
}

// Archive uploads the file, records it and publishes an event.
// A failed event publish is logged only; the upload and record already succeeded.
func (a *Archiver) Archive(ctx context.Context, content []byte, filename string) error {
	url, err := a.files.Upload(ctx, storage.UploadRequest{Content: content, Filename: filename})
	if err != nil {
		return fmt.Errorf("failed to store upload: %w", err)
	}

	entry, err := a.logs.LogRequest(ctx, filename, url)
	if err != nil {
		return fmt.Errorf("failed to log upload: %w", err)
	}

	if a.events != nil {
		if err := a.events.PublishAnalysisArchived(ctx, entry); err != nil {
			a.log.Warn().Err(err).Int("log_id", entry.ID).Msg("Failed to publish archive event")
		}
	}

	a.log.Info().Str("file", filename).Str("url", url).Int("log_id", entry.ID).Msg("Upload archived")
	return nil
}
