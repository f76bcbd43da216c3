package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"InvestDash/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists refresh history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while a refresh writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS signal_snapshots (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			bucket      TEXT,
			close       REAL,
			sma50       REAL,
			sma200      REAL,
			rsi14       REAL,
			macd_hist   REAL,
			above50     INTEGER,
			above200    INTEGER,
			entry_ok    INTEGER NOT NULL,
			reentry     INTEGER,
			data_error  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON signal_snapshots(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_symbol ON signal_snapshots(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS breadth_history (
			run_id     TEXT PRIMARY KEY,
			timestamp  INTEGER NOT NULL,
			risk_on    INTEGER,
			fraction   REAL,
			above      INTEGER NOT NULL,
			total      INTEGER NOT NULL,
			indicator  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_breadth_ts ON breadth_history(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordSnapshot stores every row and the breadth reading of one refresh
// in a single transaction.
func (r *SQLiteRecorder) RecordSnapshot(ctx context.Context, snap *model.SignalSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	runID := snap.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	ts := snap.AsOf.Unix()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO signal_snapshots
		(run_id, timestamp, symbol, bucket, close, sma50, sma200, rsi14, macd_hist,
		 above50, above200, entry_ok, reentry, data_error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, row := range snap.Signals {
		if _, err := stmt.ExecContext(ctx,
			runID, ts, row.Symbol, nullString(row.Bucket),
			nullFloat(row.Close), nullFloat(row.SMA50), nullFloat(row.SMA200),
			nullFloat(row.RSI14), nullFloat(row.MACDHist),
			nullBool(row.Above50), nullBool(row.Above200), row.EntryOK,
			nullBool(row.Reentry), nullString(row.DataError),
		); err != nil {
			return fmt.Errorf("insert row %s: %w", row.Symbol, err)
		}
	}

	b := snap.Breadth
	if _, err := tx.ExecContext(ctx, `INSERT INTO breadth_history
		(run_id, timestamp, risk_on, fraction, above, total, indicator)
		VALUES (?,?,?,?,?,?,?)`,
		runID, ts, nullBool(b.RiskOn), nullFloat(b.Fraction), b.Above, b.Total, b.Indicator,
	); err != nil {
		return fmt.Errorf("insert breadth: %w", err)
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecentBreadth(ctx context.Context, limit int) ([]BreadthPoint, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT run_id, timestamp, risk_on, fraction, above, total, indicator
		FROM breadth_history ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query breadth: %w", err)
	}
	defer rows.Close()

	points := []BreadthPoint{}
	for rows.Next() {
		var (
			p        BreadthPoint
			ts       int64
			riskOn   sql.NullBool
			fraction sql.NullFloat64
		)
		if err := rows.Scan(&p.RunID, &ts, &riskOn, &fraction, &p.Above, &p.Total, &p.Indicator); err != nil {
			return nil, fmt.Errorf("scan breadth: %w", err)
		}
		p.AsOf = time.Unix(ts, 0).UTC()
		if riskOn.Valid {
			v := riskOn.Bool
			p.RiskOn = &v
		}
		if fraction.Valid {
			v := fraction.Float64
			p.Fraction = &v
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
