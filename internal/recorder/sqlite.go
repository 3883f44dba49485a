package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"CryptoForecast/internal/model"
)

// SQLiteRecorder persists runs, backtest points and forecast paths to SQLite.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode lets dashboards read while runs are written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id                   TEXT PRIMARY KEY,
			timestamp            INTEGER NOT NULL,
			symbol               TEXT NOT NULL,
			market               TEXT,
			model                TEXT,
			dataset_rows         INTEGER,
			dropped_rows         INTEGER,
			train_size           INTEGER,
			test_size            INTEGER,
			mae                  REAL,
			rmse                 REAL,
			mape                 REAL,
			directional_accuracy REAL,
			forecast_base        REAL,
			forecast_final       REAL,
			forecast_end         INTEGER,
			started_at           INTEGER,
			finished_at          INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_symbol_ts ON runs(symbol, finished_at)`,

		`CREATE TABLE IF NOT EXISTS backtest_points (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    TEXT NOT NULL REFERENCES runs(id),
			timestamp INTEGER NOT NULL,
			actual    REAL,
			predicted REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_backtest_run ON backtest_points(run_id)`,

		`CREATE TABLE IF NOT EXISTS forecast_points (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id          TEXT NOT NULL REFERENCES runs(id),
			step            INTEGER NOT NULL,
			timestamp       INTEGER NOT NULL,
			predicted_close REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_forecast_run ON forecast_points(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func nullable(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

// RecordRun writes the run and its points in one transaction.
func (r *SQLiteRecorder) RecordRun(res *model.RunResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var final float64
	var end int64
	if n := len(res.Forecast.Points); n > 0 {
		final = res.Forecast.Points[n-1].Close
		end = res.Forecast.Points[n-1].Time.Unix()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs
		(id, timestamp, symbol, market, model, dataset_rows, dropped_rows, train_size, test_size,
		 mae, rmse, mape, directional_accuracy, forecast_base, forecast_final, forecast_end,
		 started_at, finished_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		res.ID, time.Now().Unix(), res.Symbol, res.Market, res.Model,
		res.Dataset.Len(), res.Dropped, res.TrainSize, res.TestSize,
		res.Metrics.MAE, res.Metrics.RMSE, nullable(res.Metrics.MAPE), nullable(res.Metrics.DirectionalAccuracy),
		res.Forecast.Base, final, end,
		res.StartedAt.Unix(), res.FinishedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, p := range res.Backtest {
		if _, err := tx.Exec(`INSERT INTO backtest_points (run_id, timestamp, actual, predicted) VALUES (?,?,?,?)`,
			res.ID, p.Time.Unix(), p.Actual, p.Predicted); err != nil {
			return fmt.Errorf("insert backtest point: %w", err)
		}
	}
	for i, p := range res.Forecast.Points {
		if _, err := tx.Exec(`INSERT INTO forecast_points (run_id, step, timestamp, predicted_close) VALUES (?,?,?,?)`,
			res.ID, i+1, p.Time.Unix(), p.Close); err != nil {
			return fmt.Errorf("insert forecast point: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.log.Debug().Str("run_id", res.ID).Int("backtest", len(res.Backtest)).
		Int("forecast", len(res.Forecast.Points)).Msg("run recorded")
	return nil
}

// LastRun returns the most recently finished run for symbol.
func (r *SQLiteRecorder) LastRun(symbol string) (*RunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var s RunSummary
	var mape, dir sql.NullFloat64
	var end, finished int64
	err := r.db.QueryRow(`SELECT id, symbol, market, model, dataset_rows, train_size, test_size,
			mae, rmse, mape, directional_accuracy, forecast_base, forecast_final, forecast_end, finished_at
		FROM runs WHERE symbol = ? ORDER BY finished_at DESC, timestamp DESC LIMIT 1`, symbol).
		Scan(&s.ID, &s.Symbol, &s.Market, &s.Model, &s.DatasetRows, &s.TrainSize, &s.TestSize,
			&s.MAE, &s.RMSE, &mape, &dir, &s.ForecastBase, &s.ForecastFinal, &end, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("query last run: %w", err)
	}
	if mape.Valid {
		s.MAPE = &mape.Float64
	}
	if dir.Valid {
		s.DirectionalAccuracy = &dir.Float64
	}
	s.ForecastEnd = time.Unix(end, 0).UTC()
	s.FinishedAt = time.Unix(finished, 0).UTC()
	if s.BacktestPoints, s.ForecastPoints, err = r.pointCounts(s.ID); err != nil {
		return nil, fmt.Errorf("count points of run %s: %w", s.ID, err)
	}
	return &s, nil
}

// pointCounts returns how many backtest and forecast points a run stored.
// Callers hold r.mu.
func (r *SQLiteRecorder) pointCounts(runID string) (backtest, forecast int, err error) {
	if err = r.db.QueryRow(`SELECT COUNT(*) FROM backtest_points WHERE run_id = ?`, runID).Scan(&backtest); err != nil {
		return 0, 0, err
	}
	if err = r.db.QueryRow(`SELECT COUNT(*) FROM forecast_points WHERE run_id = ?`, runID).Scan(&forecast); err != nil {
		return 0, 0, err
	}
	return backtest, forecast, nil
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
