package main

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"slices"
	"strconv"
	"time"

	"market-dashboard/internal/analytics"
	"market-dashboard/internal/market"
	"market-dashboard/internal/plot"

	"go.uber.org/zap"
)

// ChartProvider answers the chart queries of the dashboard.
type ChartProvider interface {
	Years(ctx context.Context) ([]int, error)
	Tickers(ctx context.Context, year int) ([]string, error)
	LossProfit(ctx context.Context, year int) (*analytics.LossProfitChart, error)
	PercentageChange(ctx context.Context, year int) (*analytics.PercentageChangeChart, error)
	MonthlyVolume(ctx context.Context, year int) (*analytics.MonthlyVolumeChart, error)
	AdjClose(ctx context.Context, year int, ticker string) (*analytics.AdjCloseChart, error)
}

// Reloader refreshes the market table on demand.
type Reloader interface {
	Reload(ctx context.Context) error
	LoadedAt() time.Time
}

// Chart names used in URLs.
const (
	chartLossProfit       = "loss-profit"
	chartPercentageChange = "percentage-change"
	chartMonthlyVolume    = "monthly-volume"
	chartAdjClose         = "adj-close"
)

var chartNames = []string{chartLossProfit, chartPercentageChange, chartMonthlyVolume, chartAdjClose}

var errBadYear = errors.New("invalid year")

// APIHandler holds dependencies for the dashboard endpoints.
type APIHandler struct {
	log      *zap.Logger
	charts   ChartProvider
	reloader Reloader
	page     *template.Template
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, charts ChartProvider, reloader Reloader, page *template.Template) *APIHandler {
	return &APIHandler{log: log, charts: charts, reloader: reloader, page: page}
}

// Routes registers every endpoint on mux.
func (h *APIHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.IndexHandler)
	mux.HandleFunc("GET /charts/{name}", h.ChartHandler)
	mux.HandleFunc("GET /api/years", h.YearsHandler)
	mux.HandleFunc("GET /api/charts/{name}", h.ChartDataHandler)
	mux.HandleFunc("POST /api/reload", h.ReloadHandler)
	mux.HandleFunc("GET /healthz", h.HealthHandler)
}

// pageData is what the index template renders.
type pageData struct {
	Years   []int
	Year    int
	Tickers []string
	Ticker  string
	Charts  []string
}

// IndexHandler renders the dashboard page with the year selector.
func (h *APIHandler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	years, err := h.charts.Years(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if len(years) == 0 {
		h.writeError(w, market.ErrEmptyTable)
		return
	}

	// The earliest year is selected by default.
	year := years[0]
	if r.URL.Query().Has("year") {
		if year, err = parseYear(r); err != nil {
			h.writeError(w, err)
			return
		}
	}

	tickers, err := h.charts.Tickers(r.Context(), year)
	if err != nil {
		h.writeError(w, err)
		return
	}

	// A ticker picked for another year falls back to all tickers.
	ticker := r.URL.Query().Get("ticker")
	if !slices.Contains(tickers, ticker) {
		ticker = ""
	}

	data := pageData{
		Years:   years,
		Year:    year,
		Tickers: tickers,
		Ticker:  ticker,
		Charts:  chartNames,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.page.Execute(w, data); err != nil {
		h.log.Error("Failed to render dashboard page", zap.Error(err))
	}
}

// ChartHandler renders one chart as a standalone HTML page.
func (h *APIHandler) ChartHandler(w http.ResponseWriter, r *http.Request) {
	year, err := parseYear(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var chart plot.Renderer
	ctx := r.Context()
	switch r.PathValue("name") {
	case chartLossProfit:
		var c *analytics.LossProfitChart
		if c, err = h.charts.LossProfit(ctx, year); err == nil {
			chart = plot.LossProfit(c)
		}
	case chartPercentageChange:
		var c *analytics.PercentageChangeChart
		if c, err = h.charts.PercentageChange(ctx, year); err == nil {
			chart = plot.PercentageChange(c)
		}
	case chartMonthlyVolume:
		var c *analytics.MonthlyVolumeChart
		if c, err = h.charts.MonthlyVolume(ctx, year); err == nil {
			chart = plot.MonthlyVolume(c)
		}
	case chartAdjClose:
		var c *analytics.AdjCloseChart
		if c, err = h.charts.AdjClose(ctx, year, r.URL.Query().Get("ticker")); err == nil {
			chart = plot.AdjClose(c)
		}
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := chart.Render(w); err != nil {
		h.log.Error("Failed to render chart", zap.String("chart", r.PathValue("name")), zap.Error(err))
	}
}

// ChartDataHandler returns the data behind one chart as JSON.
func (h *APIHandler) ChartDataHandler(w http.ResponseWriter, r *http.Request) {
	year, err := parseYear(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var data any
	ctx := r.Context()
	switch r.PathValue("name") {
	case chartLossProfit:
		data, err = h.charts.LossProfit(ctx, year)
	case chartPercentageChange:
		data, err = h.charts.PercentageChange(ctx, year)
	case chartMonthlyVolume:
		data, err = h.charts.MonthlyVolume(ctx, year)
	case chartAdjClose:
		data, err = h.charts.AdjClose(ctx, year, r.URL.Query().Get("ticker"))
	default:
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown chart"})
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// YearsHandler returns the selectable years.
func (h *APIHandler) YearsHandler(w http.ResponseWriter, r *http.Request) {
	years, err := h.charts.Years(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]int{"years": years})
}

// ReloadHandler reloads the market table.
func (h *APIHandler) ReloadHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.reloader.Reload(r.Context()); err != nil {
		h.log.Error("Manual reload failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]time.Time{"loaded_at": h.reloader.LoadedAt()})
}

// HealthHandler reports whether a table is loaded.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	loadedAt := h.reloader.LoadedAt()
	if loadedAt.IsZero() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "loaded_at": loadedAt})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadYear):
		status = http.StatusBadRequest
	case errors.Is(err, market.ErrYearNotFound), errors.Is(err, analytics.ErrTickerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, market.ErrNotLoaded), errors.Is(err, market.ErrEmptyTable):
		status = http.StatusServiceUnavailable
	default:
		h.log.Error("Request failed", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseYear(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("year")
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Join(errBadYear, err)
	}
	return year, nil
}
