// Package persistence provides a concrete archival implementation of the
// persistence-layer collaborator interface named in SPEC_FULL.md §6c,
// backed by modernc.org/sqlite (pure Go, no cgo) per the pack's
// aristath/sentinel usage of the same driver.
//
// The core packages (cache/ratelimit/fetch/portfolio/strategy/engine)
// never import this package — a BacktestResult archival sink is strictly
// optional wiring for cmd/backtestd, exercised here to give the dependency
// a concrete, runnable home rather than leaving it unwired.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vela-markets/backtestcore/engine"
)

// Store archives backtest results to a local SQLite file.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and opens the SQLite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("persistence: open %s: %w", path, err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS backtest_results (
	run_id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	interval TEXT NOT NULL,
	config_json TEXT NOT NULL,
	metrics_json TEXT NOT NULL,
	trade_count INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("persistence: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Save archives one BacktestResult for later retrieval.
func (s *Store) Save(ctx context.Context, result engine.Result) error {
	cfgJSON, err := json.Marshal(result.Config)
	if err != nil {
		return fmt.Errorf("persistence: marshal config: %w", err)
	}
	metricsJSON, err := json.Marshal(result.Metrics)
	if err != nil {
		return fmt.Errorf("persistence: marshal metrics: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO backtest_results (run_id, symbol, interval, config_json, metrics_json, trade_count, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id) DO UPDATE SET
	config_json=excluded.config_json,
	metrics_json=excluded.metrics_json,
	trade_count=excluded.trade_count`,
		result.RunID, result.Config.Symbol, string(result.Config.Interval),
		string(cfgJSON), string(metricsJSON), len(result.Trades), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("persistence: insert: %w", err)
	}
	return nil
}
