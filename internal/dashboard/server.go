// Package dashboard serves the read-only HTTP reporting surface (§11
// supplement): a health probe plus the same daily-summary/open-position/
// closed-position/recent-trade views original_source/src/report.py printed
// to a terminal, rendered as JSON instead. It never mutates trading state —
// the ExecutionCoordinator is the only writer.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/c-rw/spicetrader-go/internal/store"
	"github.com/c-rw/spicetrader-go/internal/trader"
)

const defaultRecentTradesLimit = 15
const defaultClosedPositionsLimit = 10

// Config wires the dashboard to the running engine's state.
type Config struct {
	Log     zerolog.Logger
	Store   *store.Store
	Traders map[string]*trader.CoinTrader
	Port    int
	DevMode bool
}

// Server is the read-only analytics/health HTTP surface.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	store     *store.Store
	traders   map[string]*trader.CoinTrader
	startedAt time.Time
}

// New builds a dashboard Server bound to the given port.
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "dashboard").Logger(),
		store:     cfg.Store,
		traders:   cfg.Traders,
		startedAt: time.Now(),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/report", func(r chi.Router) {
			r.Get("/summary", s.handleReportSummary)
			r.Get("/strategy/{symbol}/{strategy}", s.handleStrategyPerformance)
		})
		r.Get("/positions/open", s.handleOpenPositions)
		r.Get("/positions/closed", s.handleClosedPositions)
		r.Get("/trades/recent", s.handleRecentTrades)
		r.Get("/strategies/status", s.handleStrategiesStatus)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration_ms", time.Since(start)).
			Msg("HTTP request")
	})
}

// healthResponse mirrors the fields a display-style poller would want:
// process liveness, resource pressure, and database reachability.
type healthResponse struct {
	Status     string  `json:"status"`
	UptimeSecs float64 `json:"uptime_seconds"`
	CPUPercent float64 `json:"cpu_percent"`
	MemPercent float64 `json:"mem_percent"`
	DBHealthy  bool    `json:"db_healthy"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cpuPct, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPct) == 0 {
		cpuPct = []float64{0}
	}
	memStat, err := mem.VirtualMemory()
	memPct := 0.0
	if err == nil {
		memPct = memStat.UsedPercent
	}

	dbHealthy := true
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.HealthCheck(ctx); err != nil {
			dbHealthy = false
			s.log.Warn().Err(err).Msg("store health check failed")
		}
	}

	status := "ok"
	if !dbHealthy {
		status = "degraded"
	}

	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:     status,
		UptimeSecs: time.Since(s.startedAt).Seconds(),
		CPUPercent: cpuPct[0],
		MemPercent: memPct,
		DBHealthy:  dbHealthy,
	})
}

// reportSummary is the JSON shape of report.py's SPICETRADER PERFORMANCE
// REPORT: today's aggregate stats, currently open positions, the most
// recently closed positions, and the most recent fills.
type reportSummary struct {
	Daily           store.DailyStats `json:"daily"`
	OpenPositions   interface{}      `json:"open_positions"`
	ClosedPositions interface{}      `json:"closed_positions"`
	RecentTrades    interface{}      `json:"recent_trades"`
}

func (s *Server) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	daily, err := s.store.GetDailyStats(ctx, time.Now())
	if err != nil {
		s.writeError(w, err)
		return
	}
	open, err := s.store.GetOpenPositions(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	closed, err := s.store.GetClosedPositions(ctx, defaultClosedPositionsLimit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	trades, err := s.store.GetRecentTrades(ctx, defaultRecentTradesLimit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, reportSummary{
		Daily:           daily,
		OpenPositions:   open,
		ClosedPositions: closed,
		RecentTrades:    trades,
	})
}

func (s *Server) handleStrategyPerformance(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	strategyName := chi.URLParam(r, "strategy")

	perf, err := s.store.GetStrategyPerformance(r.Context(), symbol, strategyName)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, perf)
}

func (s *Server) handleOpenPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.store.GetOpenPositions(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, positions)
}

func (s *Server) handleClosedPositions(w http.ResponseWriter, r *http.Request) {
	limit := defaultClosedPositionsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	positions, err := s.store.GetClosedPositions(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, positions)
}

func (s *Server) handleRecentTrades(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentTradesLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	trades, err := s.store.GetRecentTrades(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, trades)
}

// strategyStatus reports what CoinTrader.State() knows right now for one
// pair: which strategy is active and the regime classification that chose
// it, without exposing the raw OHLC buffers.
type strategyStatus struct {
	Symbol          string  `json:"symbol"`
	CurrentStrategy string  `json:"current_strategy"`
	MarketState     string  `json:"market_state,omitempty"`
	Confidence      float64 `json:"confidence,omitempty"`
	LastAnalysisAt  string  `json:"last_analysis_at,omitempty"`
}

func (s *Server) handleStrategiesStatus(w http.ResponseWriter, r *http.Request) {
	out := make([]strategyStatus, 0, len(s.traders))
	for symbol, t := range s.traders {
		state := t.State()
		status := strategyStatus{Symbol: symbol, CurrentStrategy: state.CurrentStrategy}
		if state.CurrentCondition != nil {
			status.MarketState = string(state.CurrentCondition.State)
			status.Confidence = state.CurrentCondition.Confidence
		}
		if !state.LastAnalysisAt.IsZero() {
			status.LastAnalysisAt = state.LastAnalysisAt.UTC().Format(time.RFC3339)
		}
		out = append(out, status)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.log.Error().Err(err).Msg("dashboard request failed")
	s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

// Start serves until the process is asked to stop.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting dashboard server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down dashboard server")
	return s.server.Shutdown(ctx)
}
