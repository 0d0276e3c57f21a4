// Package server exposes the read-mostly HTTP API over the engine.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/meridianlabs/meridian/internal/database"
	"github.com/meridianlabs/meridian/internal/evaluation"
	"github.com/meridianlabs/meridian/internal/events"
	"github.com/meridianlabs/meridian/internal/modules/ledger"
	"github.com/meridianlabs/meridian/internal/modules/strategy"
	"github.com/meridianlabs/meridian/internal/modules/watchlist"
)

// Config holds server wiring.
type Config struct {
	Log       zerolog.Logger
	Port      int
	DevMode   bool
	LedgerDB  *database.DB
	Ledger    *ledger.Repository
	Service   *evaluation.Service
	Engine    *strategy.Engine
	Account   *strategy.Account
	Watchlist *watchlist.Watchlist
	EventBus  *events.Bus
}

// Server is the HTTP front end.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	ledgerDB  *database.DB
	ledger    *ledger.Repository
	service   *evaluation.Service
	engine    *strategy.Engine
	account   *strategy.Account
	watchlist *watchlist.Watchlist
	stream    *EventsStreamHandler
	startedAt time.Time
}

// New creates the HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		ledgerDB:  cfg.LedgerDB,
		ledger:    cfg.Ledger,
		service:   cfg.Service,
		engine:    cfg.Engine,
		account:   cfg.Account,
		watchlist: cfg.Watchlist,
		stream:    NewEventsStreamHandler(cfg.EventBus, cfg.Log),
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

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// SSE stream has no write timeout of its own; it must be
		// registered before the timeout middleware below.
		r.Get("/events/stream", s.stream.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/scores", s.handleScores)
			r.Get("/scores/{symbol}", s.handleScore)
			r.Post("/scores/{symbol}/refresh", s.handleRefreshScore)
			r.Get("/risk/{symbol}", s.handleRisk)

			r.Get("/positions", s.handlePositions)
			r.Get("/trades", s.handleTrades)
			r.Get("/trades/{symbol}", s.handleTradesBySymbol)
			r.Get("/portfolio", s.handlePortfolio)

			r.Get("/watchlist", s.handleWatchlist)
			r.Post("/watchlist/{symbol}", s.handleWatchlistAdd)
			r.Delete("/watchlist/{symbol}", s.handleWatchlistRemove)

			r.Get("/system/status", s.handleSystemStatus)
		})
	})
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	s.stream.Close()
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
