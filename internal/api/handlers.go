package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/majidtaherkhani/etf-service/internal/database"
	"github.com/majidtaherkhani/etf-service/internal/models"
	"github.com/majidtaherkhani/etf-service/internal/portfolio"
	"github.com/rs/zerolog"
)

const (
	uploadField      = "file"
	defaultLogsLimit = 50
	maxLogsLimit     = 500
)

// Analyzer values an uploaded portfolio file
type Analyzer interface {
	Analyze(ctx context.Context, content []byte, filename string) (*models.ETFAnalysisResponse, error)
}

// PriceReader serves stored prices
type PriceReader interface {
	GetLatestPrice(ctx context.Context, ticker string) (*models.PriceObservation, error)
	GetLatestPrices(ctx context.Context, tickers []string) ([]models.PriceObservation, error)
}

// AnalysisLogReader lists archived uploads
type AnalysisLogReader interface {
	ListAnalysisLogs(ctx context.Context, limit int) ([]models.AnalysisLog, error)
}

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	analyzer       Analyzer
	prices         PriceReader
	logs           AnalysisLogReader
	health         Pinger
	maxUploadBytes int64
	log            zerolog.Logger
}

// NewHandler creates a new Handler. health may be nil.
func NewHandler(analyzer Analyzer, prices PriceReader, logs AnalysisLogReader, health Pinger, maxUploadBytes int64, log zerolog.Logger) *Handler {
	return &Handler{
		analyzer:       analyzer,
		prices:         prices,
		logs:           logs,
		health:         health,
		maxUploadBytes: maxUploadBytes,
		log:            log.With().Str("component", "api").Logger(),
	}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code"`
}

type priceResponse struct {
	Ticker string  `json:"ticker"`
	Date   string  `json:"date"`
	Price  float64 `json:"price"`
}

func toPriceResponse(o models.PriceObservation) priceResponse {
	return priceResponse{Ticker: o.Ticker, Date: o.Date.Format(models.DateLayout), Price: o.Price}
}

// AnalyzeETF handles POST /etf/analyze
func (h *Handler) AnalyzeETF(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		if r.ContentLength > h.maxUploadBytes {
			respondError(w, http.StatusBadRequest, "INVALID_FILE", "Uploaded file is too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusBadRequest, "INVALID_FILE", "Uploaded file is too large")
			return
		}
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "A CSV file must be uploaded in the 'file' field")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_FILE", "Could not read uploaded file")
		return
	}

	resp, err := h.analyzer.Analyze(r.Context(), content, header.Filename)
	if err != nil {
		h.handleAnalyzeError(w, header.Filename, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleAnalyzeError(w http.ResponseWriter, filename string, err error) {
	switch {
	case errors.Is(err, portfolio.ErrMissingColumn):
		respondError(w, http.StatusBadRequest, "INVALID_CSV_COLS", err.Error())
	case errors.Is(err, portfolio.ErrMalformedInput):
		respondError(w, http.StatusBadRequest, "INVALID_FILE", err.Error())
	case errors.Is(err, portfolio.ErrNoMatchingTicker):
		respondError(w, http.StatusNotFound, "NO_MATCHING_DATA", err.Error())
	case errors.Is(err, portfolio.ErrNoData):
		respondError(w, http.StatusNotFound, "NO_DATA", err.Error())
	default:
		h.log.Error().Err(err).Str("file", filename).Msg("Analysis failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// GetLatestPrice handles GET /api/v1/prices/{ticker}/latest
func (h *Handler) GetLatestPrice(w http.ResponseWriter, r *http.Request) {
	ticker := portfolio.NormalizeTicker(mux.Vars(r)["ticker"])

	obs, err := h.prices.GetLatestPrice(r.Context(), ticker)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NO_DATA", "No price data for "+ticker)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to load latest price")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, toPriceResponse(*obs))
}

// GetLatestPrices handles GET /api/v1/prices/latest?tickers=A,B
func (h *Handler) GetLatestPrices(w http.ResponseWriter, r *http.Request) {
	var tickers []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(r.URL.Query().Get("tickers"), ",") {
		t := portfolio.NormalizeTicker(part)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tickers = append(tickers, t)
	}
	if len(tickers) == 0 {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "tickers query parameter is required")
		return
	}

	observations, err := h.prices.GetLatestPrices(r.Context(), tickers)
	if err != nil {
		h.log.Error().Err(err).Strs("tickers", tickers).Msg("Failed to load latest prices")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	out := make([]priceResponse, 0, len(observations))
	for _, o := range observations {
		out = append(out, toPriceResponse(o))
	}
	respondJSON(w, http.StatusOK, out)
}

// ListAnalyses handles GET /api/v1/analyses?limit=N
func (h *Handler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	limit := defaultLogsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be a positive integer")
			return
		}
		limit = min(n, maxLogsLimit)
	}

	entries, err := h.logs.ListAnalysisLogs(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list analyses")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}
	if entries == nil {
		entries = []models.AnalysisLog{}
	}

	respondJSON(w, http.StatusOK, entries)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			h.log.Warn().Err(err).Msg("Health check failed")
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, detail string) {
	respondJSON(w, status, ErrorResponse{Detail: detail, ErrorCode: code})
}
