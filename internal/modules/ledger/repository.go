// Package ledger persists the append-only trade log to SQLite.
package ledger

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridianlabs/meridian/internal/domain"
)

// tradesColumns avoids SELECT *; order must match scanTrade.
const tradesColumns = `id, symbol, quantity, entry_price, exit_price, entry_time, exit_time, exit_reason, pnl, created_at`

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id           TEXT PRIMARY KEY,
	symbol       TEXT NOT NULL,
	quantity     REAL NOT NULL,
	entry_price  REAL NOT NULL,
	exit_price   REAL NOT NULL,
	entry_time   TEXT NOT NULL,
	exit_time    TEXT NOT NULL,
	exit_reason  TEXT NOT NULL,
	pnl          REAL NOT NULL,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
CREATE INDEX IF NOT EXISTS idx_trades_exit_time ON trades(exit_time);
`

// Repository handles trade database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a trade repository and ensures the schema.
func NewRepository(db *sql.DB, log zerolog.Logger) (*Repository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("applying trades schema: %w", err)
	}
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "trades").Logger(),
	}, nil
}

// Append inserts one closed trade. Re-appending the same trade ID is
// a silent no-op so retries after a settle cannot duplicate records.
func (r *Repository) Append(record domain.TradeRecord) error {
	if record.ID == "" || record.Symbol == "" {
		return fmt.Errorf("%w: trade record needs an id and symbol", domain.ErrInvalidInput)
	}

	query := `
		INSERT INTO trades
		(id, symbol, quantity, entry_price, exit_price, entry_time, exit_time, exit_reason, pnl, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`
	_, err := r.db.Exec(query,
		record.ID,
		strings.ToUpper(strings.TrimSpace(record.Symbol)),
		record.Quantity,
		record.EntryPrice,
		record.ExitPrice,
		record.EntryTime.UTC().Format(time.RFC3339Nano),
		record.ExitTime.UTC().Format(time.RFC3339Nano),
		string(record.ExitReason),
		record.PnL,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting trade %s: %w", record.ID, err)
	}

	r.log.Debug().
		Str("symbol", record.Symbol).
		Str("exit_reason", string(record.ExitReason)).
		Float64("pnl", record.PnL).
		Msg("trade appended")
	return nil
}

// Recent returns the most recently closed trades, newest first.
func (r *Repository) Recent(limit int) ([]domain.TradeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM trades ORDER BY exit_time DESC LIMIT ?`, tradesColumns)
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent trades: %w", err)
	}
	defer rows.Close()
	return scanTrades(rows)
}

// BySymbol returns all closed trades for one symbol, oldest first.
func (r *Repository) BySymbol(symbol string) ([]domain.TradeRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM trades WHERE symbol = ? ORDER BY exit_time ASC`, tradesColumns)
	rows, err := r.db.Query(query, strings.ToUpper(strings.TrimSpace(symbol)))
	if err != nil {
		return nil, fmt.Errorf("querying trades for %s: %w", symbol, err)
	}
	defer rows.Close()
	return scanTrades(rows)
}

// Summary aggregates the full trade history.
type Summary struct {
	Trades   int     `json:"trades"`
	Wins     int     `json:"wins"`
	TotalPnL float64 `json:"total_pnl"`
	WinRate  float64 `json:"win_rate"`
}

// Summarize computes the all-time trade summary.
func (r *Repository) Summarize() (Summary, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(pnl), 0)
		FROM trades
	`
	var s Summary
	if err := r.db.QueryRow(query).Scan(&s.Trades, &s.Wins, &s.TotalPnL); err != nil {
		return Summary{}, fmt.Errorf("summarizing trades: %w", err)
	}
	if s.Trades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Trades)
	}
	return s, nil
}

func scanTrades(rows *sql.Rows) ([]domain.TradeRecord, error) {
	var records []domain.TradeRecord
	for rows.Next() {
		record, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanTrade(rows *sql.Rows) (domain.TradeRecord, error) {
	var record domain.TradeRecord
	var entryTime, exitTime, createdAt, reason string
	if err := rows.Scan(
		&record.ID, &record.Symbol, &record.Quantity,
		&record.EntryPrice, &record.ExitPrice,
		&entryTime, &exitTime, &reason, &record.PnL, &createdAt,
	); err != nil {
		return domain.TradeRecord{}, fmt.Errorf("scanning trade row: %w", err)
	}

	var err error
	if record.EntryTime, err = time.Parse(time.RFC3339Nano, entryTime); err != nil {
		return domain.TradeRecord{}, fmt.Errorf("parsing entry time: %w", err)
	}
	if record.ExitTime, err = time.Parse(time.RFC3339Nano, exitTime); err != nil {
		return domain.TradeRecord{}, fmt.Errorf("parsing exit time: %w", err)
	}
	record.ExitReason = domain.ExitReason(reason)
	return record, nil
}
