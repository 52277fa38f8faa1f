package etf

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/majidtaherkhani/etf-service/internal/logger"
	"github.com/majidtaherkhani/etf-service/internal/models"
	"github.com/majidtaherkhani/etf-service/internal/portfolio"
	"github.com/majidtaherkhani/etf-service/internal/storage"
	"github.com/majidtaherkhani/etf-service/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePriceStore struct {
	observations []models.PriceObservation
	err          error
	requested    []string
}

func (f *fakePriceStore) GetPriceHistory(ctx context.Context, tickers []string) ([]models.PriceObservation, error) {
	f.requested = tickers
	return f.observations, f.err
}

// recordingQueue holds submitted jobs so tests decide when they run
type recordingQueue struct {
	mu   sync.Mutex
	jobs []worker.Job
}

func (q *recordingQueue) Submit(job worker.Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return true
}

type fakeFileStore struct {
	requests []storage.UploadRequest
	err      error
}

func (f *fakeFileStore) Upload(ctx context.Context, req storage.UploadRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.requests = append(f.requests, req)
	return "https://cdn.example.com/ETF/id_" + req.Filename, nil
}

type fakeLogStore struct {
	entries []*models.AnalysisLog
	err     error
}

func (f *fakeLogStore) LogRequest(ctx context.Context, fileName, storageURL string) (*models.AnalysisLog, error) {
	if f.err != nil {
		return nil, f.err
	}
	entry := &models.AnalysisLog{ID: len(f.entries) + 1, FileName: fileName, StorageURL: storageURL, CreatedAt: time.Now()}
	f.entries = append(f.entries, entry)
	return entry, nil
}

type fakePublisher struct {
	published []*models.AnalysisLog
	err       error
}

func (f *fakePublisher) PublishAnalysisArchived(ctx context.Context, entry *models.AnalysisLog) error {
	f.published = append(f.published, entry)
	return f.err
}

func d(day int) time.Time {
	return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
}

func sampleObservations() []models.PriceObservation {
	return []models.PriceObservation{
		{Date: d(1), Ticker: "AAPL", Price: 150},
		{Date: d(2), Ticker: "AAPL", Price: 151},
		{Date: d(3), Ticker: "AAPL", Price: 152},
		{Date: d(1), Ticker: "MSFT", Price: 300},
		{Date: d(2), Ticker: "MSFT", Price: 301},
		{Date: d(3), Ticker: "MSFT", Price: 302},
	}
}

func newTestService(prices PriceStore, queue JobSubmitter, archiver *Archiver, enabled bool) *Service {
	return NewService(prices, queue, archiver, Options{BackgroundEnabled: enabled}, logger.Nop())
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()

	t.Run("equal weighted portfolio", func(t *testing.T) {
		prices := &fakePriceStore{observations: sampleObservations()}
		svc := newTestService(prices, nil, nil, false)

		resp, err := svc.Analyze(ctx, []byte("name,weight\naapl ,0.5\nMSFT,0.5\n"), "test_portfolio.csv")
		require.NoError(t, err)

		assert.Equal(t, []string{"AAPL", "MSFT"}, prices.requested)
		assert.Equal(t, "test_portfolio", resp.ETFName)
		assert.Equal(t, 227.0, resp.LatestClose)
		require.Len(t, resp.TimeSeries, 3)
		assert.Equal(t, models.TimeSeriesPoint{Date: "2024-01-01", Price: 225}, resp.TimeSeries[0])
		assert.Equal(t, models.TimeSeriesPoint{Date: "2024-01-03", Price: 227}, resp.TimeSeries[2])
		assert.Equal(t, []models.LatestPrice{
			{Ticker: "AAPL", Price: 152, Weight: 0.5, Value: 76},
			{Ticker: "MSFT", Price: 302, Weight: 0.5, Value: 151},
		}, resp.LatestPrices)
	})

	t.Run("partial ticker match", func(t *testing.T) {
		svc := newTestService(&fakePriceStore{observations: sampleObservations()}, nil, nil, false)

		resp, err := svc.Analyze(ctx, []byte("name,weight\nAAPL,0.5\nMSFT,0.3\nGOOGL,0.2\n"), "p.csv")
		require.NoError(t, err)
		assert.Len(t, resp.LatestPrices, 2)
	})

	t.Run("empty upload", func(t *testing.T) {
		prices := &fakePriceStore{}
		svc := newTestService(prices, nil, nil, false)

		_, err := svc.Analyze(ctx, nil, "p.csv")
		assert.ErrorIs(t, err, portfolio.ErrMalformedInput)
		assert.Nil(t, prices.requested, "price store should not be queried")
	})

	t.Run("missing column", func(t *testing.T) {
		svc := newTestService(&fakePriceStore{}, nil, nil, false)

		_, err := svc.Analyze(ctx, []byte("name\nAAPL\n"), "p.csv")
		assert.ErrorIs(t, err, portfolio.ErrMissingColumn)
	})

	t.Run("no matching tickers", func(t *testing.T) {
		prices := &fakePriceStore{observations: []models.PriceObservation{{Date: d(1), Ticker: "TSLA", Price: 200}}}
		svc := newTestService(prices, nil, nil, false)

		_, err := svc.Analyze(ctx, []byte("name,weight\nAAPL,1\n"), "p.csv")
		assert.ErrorIs(t, err, portfolio.ErrNoMatchingTicker)
	})

	t.Run("no price data", func(t *testing.T) {
		svc := newTestService(&fakePriceStore{}, nil, nil, false)

		_, err := svc.Analyze(ctx, []byte("name,weight\nAAPL,1\n"), "p.csv")
		assert.ErrorIs(t, err, portfolio.ErrNoData)
	})

	t.Run("price store failure", func(t *testing.T) {
		svc := newTestService(&fakePriceStore{err: errors.New("connection reset")}, nil, nil, false)

		_, err := svc.Analyze(ctx, []byte("name,weight\nAAPL,1\n"), "p.csv")
		require.Error(t, err)
		assert.NotErrorIs(t, err, portfolio.ErrNoData)
		assert.Contains(t, err.Error(), "connection reset")
	})

	t.Run("missing filename uses default name", func(t *testing.T) {
		svc := newTestService(&fakePriceStore{observations: sampleObservations()}, nil, nil, false)

		resp, err := svc.Analyze(ctx, []byte("name,weight\nAAPL,1\n"), "")
		require.NoError(t, err)
		assert.Equal(t, "ETF", resp.ETFName)
	})
}

func TestAnalyzeBackgroundArchive(t *testing.T) {
	ctx := context.Background()
	content := []byte("name,weight\nAAPL,0.5\nMSFT,0.5\n")

	t.Run("valid upload is archived off the request path", func(t *testing.T) {
		queue := &recordingQueue{}
		files := &fakeFileStore{}
		logs := &fakeLogStore{}
		events := &fakePublisher{}
		svc := newTestService(&fakePriceStore{observations: sampleObservations()}, queue,
			NewArchiver(files, logs, events, logger.Nop()), true)

		_, err := svc.Analyze(ctx, content, "portfolio.csv")
		require.NoError(t, err)

		require.Len(t, queue.jobs, 1)
		assert.Empty(t, files.requests, "archive must not run synchronously")

		// mutating the caller's buffer must not affect the queued job
		content[0] = 'X'
		require.NoError(t, queue.jobs[0].Run(ctx))
		content[0] = 'n'

		require.Len(t, files.requests, 1)
		assert.Equal(t, "name,weight\nAAPL,0.5\nMSFT,0.5\n", string(files.requests[0].Content))
		require.Len(t, logs.entries, 1)
		assert.Equal(t, "portfolio.csv", logs.entries[0].FileName)
		assert.Equal(t, "https://cdn.example.com/ETF/id_portfolio.csv", logs.entries[0].StorageURL)
		assert.Len(t, events.published, 1)
	})

	t.Run("archive is submitted even when no prices are found", func(t *testing.T) {
		queue := &recordingQueue{}
		svc := newTestService(&fakePriceStore{}, queue, NewArchiver(&fakeFileStore{}, &fakeLogStore{}, nil, logger.Nop()), true)

		_, err := svc.Analyze(ctx, content, "portfolio.csv")
		assert.ErrorIs(t, err, portfolio.ErrNoData)
		assert.Len(t, queue.jobs, 1)
	})

	t.Run("invalid upload is not archived", func(t *testing.T) {
		queue := &recordingQueue{}
		svc := newTestService(&fakePriceStore{}, queue, NewArchiver(&fakeFileStore{}, &fakeLogStore{}, nil, logger.Nop()), true)

		_, err := svc.Analyze(ctx, []byte(""), "portfolio.csv")
		assert.Error(t, err)
		assert.Empty(t, queue.jobs)
	})

	t.Run("disabled background tasks", func(t *testing.T) {
		queue := &recordingQueue{}
		svc := newTestService(&fakePriceStore{observations: sampleObservations()}, queue,
			NewArchiver(&fakeFileStore{}, &fakeLogStore{}, nil, logger.Nop()), false)

		_, err := svc.Analyze(ctx, content, "portfolio.csv")
		require.NoError(t, err)
		assert.Empty(t, queue.jobs)
	})

	t.Run("archive failure does not fail the response", func(t *testing.T) {
		q := worker.NewQueue(worker.Config{Workers: 1, QueueSize: 4}, logger.Nop())
		q.Start()
		files := &fakeFileStore{err: errors.New("bucket missing")}
		svc := newTestService(&fakePriceStore{observations: sampleObservations()}, q,
			NewArchiver(files, &fakeLogStore{}, nil, logger.Nop()), true)

		resp, err := svc.Analyze(ctx, content, "portfolio.csv")
		require.NoError(t, err)
		assert.Equal(t, 227.0, resp.LatestClose)

		require.NoError(t, q.Stop(ctx))
	})
}
