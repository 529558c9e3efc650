package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"trade-bias-analyzer/internal/analysis"
	"trade-bias-analyzer/internal/errors"
	"trade-bias-analyzer/internal/models"
	"trade-bias-analyzer/pkg/utils"
)

// SQLiteStore implements SessionStore using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	retry utils.RetryConfig
}

// NewSQLiteStore creates a new SQLite-based session store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, dbError("open database", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	retry := utils.DefaultRetryConfig()
	retry.Retryable = isBusy

	store := &SQLiteStore{
		db:    db,
		retry: retry,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, dbError("initialize schema", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- One row per analyzed session
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		source TEXT NOT NULL,
		trade_count INTEGER NOT NULL,
		archetype TEXT NOT NULL,
		dominant_bias TEXT NOT NULL,
		result TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at);

	-- Raw trades, kept for replays
	CREATE TABLE IF NOT EXISTS trades (
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		timestamp INTEGER NOT NULL,
		asset TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity REAL NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		pnl REAL NOT NULL,
		balance REAL NOT NULL,
		PRIMARY KEY (session_id, seq)
	);

	-- What-if replays of a session
	CREATE TABLE IF NOT EXISTS counterfactual_runs (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		created_at DATETIME NOT NULL,
		params TEXT NOT NULL,
		result TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_counterfactual_session ON counterfactual_runs(session_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Sessions
// ============================================================================

// SaveSession stores the trades and analysis result of a session and returns
// its new id.
func (s *SQLiteStore) SaveSession(ctx context.Context, source string, trades []models.TradeRecord, result *models.AnalysisResult) (string, error) {
	if result == nil {
		return "", errors.NewValidationError("result", nil, "analysis result is required")
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return "", errors.Wrap(err, "encoding analysis result")
	}

	id := uuid.NewString()
	dominant := analysis.DominantBias(result.Scores)

	err = utils.Retry(ctx, s.retry, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO sessions (id, created_at, source, trade_count, archetype, dominant_bias, result)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, time.Now().UTC(), source, len(trades), string(result.Archetype.Label), string(dominant), string(payload))
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO trades (session_id, seq, timestamp, asset, side, quantity, entry_price, exit_price, pnl, balance)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, t := range trades {
			_, err := stmt.ExecContext(ctx, id, i, t.Timestamp.UnixNano(), t.Asset, string(t.Side), t.Quantity, t.EntryPrice, t.ExitPrice, t.PnL, t.Balance)
			if err != nil {
				return err
			}
		}

		return tx.Commit()
	})
	if err != nil {
		return "", dbError("save session", err)
	}
	return id, nil
}

// GetSession retrieves a session and its analysis result.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	var (
		sess    Session
		payload string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, source, trade_count, archetype, dominant_bias, result
		FROM sessions WHERE id = ?
	`, id).Scan(&sess.ID, &sess.CreatedAt, &sess.Source, &sess.TradeCount, &sess.Archetype, &sess.DominantBias, &payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", errors.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, dbError("get session", err)
	}

	sess.Result = &models.AnalysisResult{}
	if err := json.Unmarshal([]byte(payload), sess.Result); err != nil {
		return nil, dbError("decode analysis result", err)
	}
	return &sess, nil
}

// GetTrades retrieves the trades of a session in their original order.
func (s *SQLiteStore) GetTrades(ctx context.Context, sessionID string) ([]models.TradeRecord, error) {
	if err := s.exists(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, asset, side, quantity, entry_price, exit_price, pnl, balance
		FROM trades
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, dbError("query trades", err)
	}
	defer rows.Close()

	var trades []models.TradeRecord
	for rows.Next() {
		var (
			t    models.TradeRecord
			ts   int64
			side string
		)
		if err := rows.Scan(&ts, &t.Asset, &side, &t.Quantity, &t.EntryPrice, &t.ExitPrice, &t.PnL, &t.Balance); err != nil {
			return nil, dbError("scan trade", err)
		}
		t.Timestamp = time.Unix(0, ts).UTC()
		t.Side = models.Side(side)
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, dbError("iterate trades", err)
	}

	return trades, nil
}

// ListSessions retrieves session summaries, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context, filter SessionFilter) ([]SessionSummary, error) {
	query := `SELECT id, created_at, source, trade_count, archetype, dominant_bias FROM sessions WHERE 1=1`
	var args []interface{}

	if filter.Archetype != "" {
		query += " AND archetype = ?"
		args = append(args, filter.Archetype)
	}
	if filter.DominantBias != "" {
		query += " AND dominant_bias = ?"
		args = append(args, filter.DominantBias)
	}
	if filter.Source != "" {
		query += " AND source LIKE ?"
		args = append(args, "%"+filter.Source+"%")
	}
	if !filter.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.Since.UTC())
	}

	query += " ORDER BY created_at DESC, rowid DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError("query sessions", err)
	}
	defer rows.Close()

	var sessions []SessionSummary
	for rows.Next() {
		var ss SessionSummary
		if err := rows.Scan(&ss.ID, &ss.CreatedAt, &ss.Source, &ss.TradeCount, &ss.Archetype, &ss.DominantBias); err != nil {
			return nil, dbError("scan session", err)
		}
		sessions = append(sessions, ss)
	}

	if err := rows.Err(); err != nil {
		return nil, dbError("iterate sessions", err)
	}

	return sessions, nil
}

// DeleteSession removes a session with its trades and replays.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	var affected int64
	err := utils.Retry(ctx, s.retry, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return dbError("delete session", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", errors.ErrSessionNotFound, id)
	}
	return nil
}

// ============================================================================
// Counterfactual runs
// ============================================================================

// SaveCounterfactual stores a what-if replay of a stored session.
func (s *SQLiteStore) SaveCounterfactual(ctx context.Context, sessionID string, result *models.CounterfactualResult) (string, error) {
	if result == nil {
		return "", errors.NewValidationError("result", nil, "counterfactual result is required")
	}
	if err := s.exists(ctx, sessionID); err != nil {
		return "", err
	}

	params, err := json.Marshal(result.Params)
	if err != nil {
		return "", errors.Wrap(err, "encoding constraints")
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return "", errors.Wrap(err, "encoding counterfactual result")
	}

	id := uuid.NewString()
	err = utils.Retry(ctx, s.retry, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO counterfactual_runs (id, session_id, created_at, params, result)
			VALUES (?, ?, ?, ?, ?)
		`, id, sessionID, time.Now().UTC(), string(params), string(payload))
		return err
	})
	if err != nil {
		return "", dbError("save counterfactual run", err)
	}
	return id, nil
}

// ListCounterfactuals retrieves the replays of a session, oldest first.
func (s *SQLiteStore) ListCounterfactuals(ctx context.Context, sessionID string) ([]CounterfactualRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, created_at, result
		FROM counterfactual_runs
		WHERE session_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, sessionID)
	if err != nil {
		return nil, dbError("query counterfactual runs", err)
	}
	defer rows.Close()

	var runs []CounterfactualRun
	for rows.Next() {
		var (
			run     CounterfactualRun
			payload string
		)
		if err := rows.Scan(&run.ID, &run.SessionID, &run.CreatedAt, &payload); err != nil {
			return nil, dbError("scan counterfactual run", err)
		}
		run.Result = &models.CounterfactualResult{}
		if err := json.Unmarshal([]byte(payload), run.Result); err != nil {
			return nil, dbError("decode counterfactual result", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, dbError("iterate counterfactual runs", err)
	}

	return runs, nil
}

// ResolveID expands a unique id prefix to the full session id.
func (s *SQLiteStore) ResolveID(ctx context.Context, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", errors.NewValidationError("session_id", prefix, "must not be empty")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions WHERE id LIKE ? LIMIT 2`, prefix+"%")
	if err != nil {
		return "", dbError("resolve session id", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", dbError("scan session id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", dbError("iterate session ids", err)
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", errors.ErrSessionNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", errors.NewValidationError("session_id", prefix, "prefix matches more than one session")
	}
}

func (s *SQLiteStore) exists(ctx context.Context, id string) error {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sessions WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return dbError("look up session", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", errors.ErrSessionNotFound, id)
	}
	return nil
}

func dbError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", errors.ErrDatabaseError, op, err)
}

// isBusy reports whether err is a transient lock conflict.
func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}
