package server

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlabs/meridian/internal/database"
	"github.com/meridianlabs/meridian/internal/domain"
	"github.com/meridianlabs/meridian/internal/evaluation"
	"github.com/meridianlabs/meridian/internal/events"
	"github.com/meridianlabs/meridian/internal/modules/features"
	"github.com/meridianlabs/meridian/internal/modules/ledger"
	"github.com/meridianlabs/meridian/internal/modules/risk"
	"github.com/meridianlabs/meridian/internal/modules/scoring"
	"github.com/meridianlabs/meridian/internal/modules/strategy"
	"github.com/meridianlabs/meridian/internal/modules/watchlist"
)

var serverTestDB int

func newTestServer(t *testing.T) (*Server, *watchlist.Watchlist, *ledger.Repository) {
	t.Helper()
	log := zerolog.Nop()

	serverTestDB++
	db, err := database.New(database.Config{
		Path:    fmt.Sprintf("file:server_test_%d?mode=memory&cache=shared", serverTestDB),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := ledger.NewRepository(db.Conn(), log)
	require.NoError(t, err)

	builder, err := features.NewBuilder(features.DefaultConfig(), log)
	require.NoError(t, err)
	scorer, err := scoring.NewScorer(scoring.DefaultConfig(), log)
	require.NoError(t, err)
	assessor, err := risk.NewAssessor(risk.DefaultConfig(), log)
	require.NoError(t, err)
	account, err := strategy.NewAccount(100_000)
	require.NoError(t, err)
	engine, err := strategy.NewEngine(strategy.Balanced(), account, repo, nil, log)
	require.NoError(t, err)
	wl := watchlist.New(nil, log)
	service := evaluation.NewService(builder, nil, scorer, assessor, engine, wl, nil, log)

	srv := New(Config{
		Log:       log,
		Port:      0,
		LedgerDB:  db,
		Ledger:    repo,
		Service:   service,
		Engine:    engine,
		Account:   account,
		Watchlist: wl,
		EventBus:  events.NewBus(log),
	})
	return srv, wl, repo
}

func historyBars(n int) []domain.PriceBar {
	begin := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.PriceBar, n)
	for i := range bars {
		price := 100 + float64(i)*0.4 + math.Sin(float64(i))*0.3
		bars[i] = domain.PriceBar{
			Timestamp: begin.AddDate(0, 0, i),
			Open:      price * 0.999,
			High:      price * 1.01,
			Low:       price * 0.99,
			Close:     price,
			Volume:    1_500_000,
		}
	}
	return bars
}

func doRequest(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestHandleWatchlist_AddListRemove(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/watchlist/aapl")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/watchlist")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Symbols []string `json:"symbols"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Equal(t, []string{"AAPL"}, listed.Symbols)

	rec = doRequest(t, srv, http.MethodDelete, "/api/watchlist/AAPL")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/watchlist")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Empty(t, listed.Symbols)
}

func TestHandleScore_NotEvaluated(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/scores/AAPL")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRefreshScore(t *testing.T) {
	srv, wl, _ := newTestServer(t)
	require.NoError(t, wl.Add("AAPL", historyBars(80)))

	rec := doRequest(t, srv, http.MethodPost, "/api/scores/AAPL/refresh")
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot evaluation.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, "AAPL", snapshot.Symbol)
	assert.GreaterOrEqual(t, snapshot.Score.Composite, 0.0)
	assert.LessOrEqual(t, snapshot.Score.Composite, 100.0)

	// Now visible through the collection and risk endpoints.
	rec = doRequest(t, srv, http.MethodGet, "/api/scores")
	require.Equal(t, http.StatusOK, rec.Code)
	var snapshots []evaluation.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshots))
	assert.Len(t, snapshots, 1)

	rec = doRequest(t, srv, http.MethodGet, "/api/risk/AAPL")
	require.Equal(t, http.StatusOK, rec.Code)
	var risk domain.RiskAssessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &risk))
	assert.GreaterOrEqual(t, risk.Score, 0.0)
	assert.LessOrEqual(t, risk.Score, 100.0)
}

func TestHandleRefreshScore_UnknownSymbol(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/scores/NOPE/refresh")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRefreshScore_ShortHistory(t *testing.T) {
	srv, wl, _ := newTestServer(t)
	require.NoError(t, wl.Add("AAPL", historyBars(5)))

	rec := doRequest(t, srv, http.MethodPost, "/api/scores/AAPL/refresh")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleTrades(t *testing.T) {
	srv, _, repo := newTestServer(t)

	record := domain.TradeRecord{
		ID:         "t-1",
		Symbol:     "AAPL",
		Quantity:   10,
		EntryPrice: 100,
		ExitPrice:  110,
		EntryTime:  time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		ExitTime:   time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC),
		ExitReason: domain.ExitTakeProfit,
		PnL:        100,
	}
	require.NoError(t, repo.Append(record))

	rec := doRequest(t, srv, http.MethodGet, "/api/trades")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Trades []domain.TradeRecord `json:"trades"`
		Count  int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "t-1", body.Trades[0].ID)

	rec = doRequest(t, srv, http.MethodGet, "/api/trades?limit=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/trades/AAPL")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
}

func TestHandlePortfolio(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/portfolio")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Equity  float64 `json:"equity"`
		Profile string  `json:"profile"`
		Account struct {
			Cash float64 `json:"cash"`
		} `json:"account"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 100_000.0, body.Account.Cash)
	assert.Equal(t, 100_000.0, body.Equity)
	assert.Equal(t, "balanced", body.Profile)
}

func TestHandlePositions_Empty(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/positions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":0`)
}
