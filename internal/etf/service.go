package etf

import (
	"context"
	"fmt"

	"github.com/majidtaherkhani/etf-service/internal/models"
	"github.com/majidtaherkhani/etf-service/internal/portfolio"
	"github.com/majidtaherkhani/etf-service/internal/worker"
	"github.com/rs/zerolog"
)

// PriceStore looks up price history. Unknown tickers yield no rows, not an error.
type PriceStore interface {
	GetPriceHistory(ctx context.Context, tickers []string) ([]models.PriceObservation, error)
}

// JobSubmitter accepts detached background work
type JobSubmitter interface {
	Submit(job worker.Job) bool
}

// Options configures a Service
type Options struct {
	// BackgroundEnabled archives every valid upload on the job queue
	BackgroundEnabled bool
}

// Service analyzes uploaded portfolios against stored price history
type Service struct {
	prices   PriceStore
	jobs     JobSubmitter
	archiver *Archiver
	opts     Options
	log      zerolog.Logger
}

// NewService creates a Service. jobs and archiver may be nil when background
// archiving is disabled.
func NewService(prices PriceStore, jobs JobSubmitter, archiver *Archiver, opts Options, log zerolog.Logger) *Service {
	if jobs == nil || archiver == nil {
		opts.BackgroundEnabled = false
	}
	return &Service{
		prices:   prices,
		jobs:     jobs,
		archiver: archiver,
		opts:     opts,
		log:      log.With().Str("component", "etf_service").Logger(),
	}
}

// Analyze parses an uploaded weights file and values it against price history.
// Archiving the upload happens in the background and never affects the result.
func (s *Service) Analyze(ctx context.Context, content []byte, filename string) (*models.ETFAnalysisResponse, error) {
	weights, err := portfolio.ParseWeights(content)
	if err != nil {
		return nil, err
	}

	if s.opts.BackgroundEnabled {
		s.submitArchive(content, filename)
	}

	observations, err := s.prices.GetPriceHistory(ctx, weights.Tickers())
	if err != nil {
		return nil, fmt.Errorf("failed to load price history: %w", err)
	}

	matrix, err := portfolio.Align(weights, observations)
	if err != nil {
		return nil, err
	}

	valuation := portfolio.Calculate(matrix, weights)

	s.log.Debug().
		Str("file", filename).
		Int("tickers", len(matrix.Tickers())).
		Int("dates", len(matrix.Dates())).
		Msg("Portfolio analyzed")

	return portfolio.NewResponse(portfolio.DisplayName(filename), valuation), nil
}

func (s *Service) submitArchive(content []byte, filename string) {
	// the request owns content; the job gets its own copy
	data := append([]byte(nil), content...)
	s.jobs.Submit(worker.Job{
		Name: "archive:" + filename,
		Run: func(ctx context.Context) error {
			return s.archiver.Archive(ctx, data, filename)
		},
	})
}
