package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/meridianlabs/meridian/internal/domain"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientHistory):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrStaleTick):
		status = http.StatusConflict
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// handleScores returns the latest snapshot for every evaluated symbol.
func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.service.Snapshots())
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	snapshot, ok := s.service.SnapshotFor(symbol)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "symbol not evaluated yet"})
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

// handleRefreshScore re-runs the pipeline for one symbol on demand.
func (s *Server) handleRefreshScore(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	snapshot, err := s.service.EvaluateSymbol(r.Context(), symbol, domain.MarketContext{})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

// handleRisk returns the latest risk assessment for one symbol.
func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	snapshot, ok := s.service.SnapshotFor(symbol)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "symbol not evaluated yet"})
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot.Risk)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions := s.engine.OpenPositions()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"positions": positions,
		"count":     len(positions),
	})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 1000 {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be 1..1000"})
			return
		}
		limit = parsed
	}

	trades, err := s.ledger.Recent(limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"trades": trades, "count": len(trades)})
}

func (s *Server) handleTradesBySymbol(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	trades, err := s.ledger.BySymbol(symbol)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"trades": trades, "count": len(trades)})
}

// handlePortfolio summarizes cash, open exposure and realized results.
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	summary, err := s.ledger.Summarize()
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"account":        s.account.Snapshot(),
		"equity":         s.engine.Equity(s.watchlist.LastPrices()),
		"open_positions": len(s.engine.OpenPositions()),
		"ledger":         summary,
		"profile":        s.engine.Profile().Name,
	})
}

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"symbols": s.watchlist.Symbols()})
}

func (s *Server) handleWatchlistAdd(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	if err := s.watchlist.Add(symbol, nil); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "added", "symbol": symbol})
}

func (s *Server) handleWatchlistRemove(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	s.watchlist.Remove(symbol)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "removed", "symbol": symbol})
}
