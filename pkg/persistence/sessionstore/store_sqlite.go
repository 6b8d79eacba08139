package sessionstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/go-go-golems/parley/pkg/api"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// SQLiteStore keeps the snapshot in a single-row sqlite table. It plays the
// role browser local storage plays for the web client: durable, local to
// one machine, last-write-wins.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = &SQLiteStore{}

// NewSQLiteStore opens (and migrates) the snapshot database at dsn.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, errors.New("sqlite session store: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite session store: open")
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS session_snapshot (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			payload TEXT NOT NULL,
			saved_at_ms INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS pending_summary (
			session_id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			saved_at_ms INTEGER NOT NULL
		);
	`)
	if err != nil {
		return errors.Wrap(err, "sqlite session store: migrate")
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save overwrites the stored snapshot. SavedAtMs is stamped here if the
// caller left it zero.
func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite session store: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if snap.SavedAtMs == 0 {
		snap.SavedAtMs = time.Now().UnixMilli()
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "sqlite session store: marshal snapshot")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_snapshot (id, payload, saved_at_ms) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			saved_at_ms = excluded.saved_at_ms
	`, string(payload), snap.SavedAtMs)
	if err != nil {
		return errors.Wrap(err, "sqlite session store: save")
	}
	return nil
}

// Load reads the stored snapshot. A row whose payload no longer decodes is
// discarded and reported as absent.
func (s *SQLiteStore) Load(ctx context.Context) (Snapshot, bool, error) {
	if s == nil || s.db == nil {
		return Snapshot{}, false, errors.New("sqlite session store: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM session_snapshot WHERE id = 1`).Scan(&payload)
	if err == sql.ErrNoRows {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, errors.Wrap(err, "sqlite session store: load")
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		log.Warn().Err(err).Msg("session snapshot corrupted, discarding")
		_ = s.Clear(ctx)
		return Snapshot{}, false, nil
	}
	return snap, true, nil
}

// Clear removes the stored snapshot. Pending summaries are kept: they
// belong to finished sessions awaiting delivery, not to the live one.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite session store: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_snapshot WHERE id = 1`)
	if err != nil {
		return errors.Wrap(err, "sqlite session store: clear")
	}
	return nil
}

// SavePendingSummary keeps a summary that could not reach the remote
// analytics endpoint.
func (s *SQLiteStore) SavePendingSummary(ctx context.Context, sessionID string, summary *api.Summary) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite session store: db is nil")
	}
	if sessionID == "" || summary == nil {
		return errors.New("sqlite session store: empty pending summary")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return errors.Wrap(err, "sqlite session store: marshal summary")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pending_summary (session_id, payload, saved_at_ms) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			payload = excluded.payload,
			saved_at_ms = excluded.saved_at_ms
	`, sessionID, string(payload), time.Now().UnixMilli())
	if err != nil {
		return errors.Wrap(err, "sqlite session store: save pending summary")
	}
	return nil
}

// LoadPendingSummary returns the stored summary for a session, if any.
func (s *SQLiteStore) LoadPendingSummary(ctx context.Context, sessionID string) (*api.Summary, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, errors.New("sqlite session store: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM pending_summary WHERE session_id = ?`, sessionID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "sqlite session store: load pending summary")
	}
	var summary api.Summary
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("pending summary corrupted, discarding")
		_ = s.ClearPendingSummary(ctx, sessionID)
		return nil, false, nil
	}
	return &summary, true, nil
}

// ClearPendingSummary drops a delivered (or corrupt) pending summary.
func (s *SQLiteStore) ClearPendingSummary(ctx context.Context, sessionID string) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite session store: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM pending_summary WHERE session_id = ?`, sessionID)
	if err != nil {
		return errors.Wrap(err, "sqlite session store: clear pending summary")
	}
	return nil
}
