package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ronypadmani/AI-meeting-Assistant/internal/annotate"
)

// Session states persisted alongside each session row.
const (
	SessionCreated    = "created"
	SessionActive     = "active"
	SessionFinalizing = "finalizing"
	SessionCompleted  = "completed"
	SessionFailed     = "failed"
)

var ErrNotFound = errors.New("not found")

type SessionRecord struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Status        string     `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	TotalChunks   int        `json:"total_chunks"`
	TotalDuration float64    `json:"total_duration"`
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		dbPath = filepath.Join("data", "meeting-assistant.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			total_chunks INTEGER NOT NULL DEFAULT 0,
			total_duration REAL NOT NULL DEFAULT 0
		);
	`); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chunks (
			session_id TEXT NOT NULL,
			chunk_id INTEGER NOT NULL,
			payload TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(session_id, chunk_id),
			FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);
	`); err != nil {
		return fmt.Errorf("create chunks table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS summaries (
			session_id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);
	`); err != nil {
		return fmt.Errorf("create summaries table: %w", err)
	}

	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_chunks_session ON chunks(session_id, chunk_id)"); err != nil {
		return fmt.Errorf("create chunks index: %w", err)
	}
	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)"); err != nil {
		return fmt.Errorf("create sessions index: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) CreateSession(id, name string, startedAt time.Time) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("session id is required")
	}

	_, err := s.db.Exec(
		`INSERT INTO sessions(id, name, status, started_at) VALUES(?, ?, ?, ?)`,
		id,
		strings.TrimSpace(name),
		SessionCreated,
		startedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create session %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateSessionStatus(id, status string) error {
	res, err := s.db.Exec(`UPDATE sessions SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update session %s status: %w", id, err)
	}
	return checkAffected(res, id)
}

func (s *SQLiteStore) EndSession(id, status string, endedAt time.Time, totalChunks int, totalDuration float64) error {
	res, err := s.db.Exec(
		`UPDATE sessions SET status = ?, ended_at = ?, total_chunks = ?, total_duration = ? WHERE id = ?`,
		status,
		endedAt.UTC().Format(time.RFC3339Nano),
		totalChunks,
		totalDuration,
		id,
	)
	if err != nil {
		return fmt.Errorf("end session %s: %w", id, err)
	}
	return checkAffected(res, id)
}

func (s *SQLiteStore) GetSession(id string) (SessionRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, name, status, started_at, ended_at, total_chunks, total_duration FROM sessions WHERE id = ?`,
		id,
	)

	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return SessionRecord{}, fmt.Errorf("query session %s: %w", id, err)
	}
	return rec, nil
}

func (s *SQLiteStore) ListSessions() ([]SessionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, name, status, started_at, ended_at, total_chunks, total_duration
		 FROM sessions
		 ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sessions := make([]SessionRecord, 0, 16)
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions rows: %w", err)
	}

	return sessions, nil
}

// UpsertChunk stores a chunk's full annotation payload as JSON, keyed by
// (session_id, chunk_id). Re-persisting the same chunk replaces the row.
func (s *SQLiteStore) UpsertChunk(sessionID string, chunk annotate.AnnotatedChunk) error {
	payload, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("marshal chunk %d for session %s: %w", chunk.ChunkID, sessionID, err)
	}

	_, err = s.db.Exec(
		`INSERT INTO chunks(session_id, chunk_id, payload, created_at) VALUES(?, ?, ?, ?)
		 ON CONFLICT(session_id, chunk_id) DO UPDATE SET payload = excluded.payload`,
		sessionID,
		chunk.ChunkID,
		string(payload),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert chunk %d for session %s: %w", chunk.ChunkID, sessionID, err)
	}
	return nil
}

// ListChunks returns a session's chunks ordered by chunk id ascending.
func (s *SQLiteStore) ListChunks(sessionID string) ([]annotate.AnnotatedChunk, error) {
	rows, err := s.db.Query(
		`SELECT payload FROM chunks WHERE session_id = ? ORDER BY chunk_id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query chunks for session %s: %w", sessionID, err)
	}
	defer func() { _ = rows.Close() }()

	chunks := make([]annotate.AnnotatedChunk, 0, 32)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan chunk for session %s: %w", sessionID, err)
		}

		var chunk annotate.AnnotatedChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return nil, fmt.Errorf("unmarshal chunk for session %s: %w", sessionID, err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk rows for session %s: %w", sessionID, err)
	}

	return chunks, nil
}

// UpsertSummary stores the stitched meeting summary. A re-finalized session
// replaces its previous summary row.
func (s *SQLiteStore) UpsertSummary(sessionID string, summary annotate.MeetingSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary for session %s: %w", sessionID, err)
	}

	_, err = s.db.Exec(
		`INSERT INTO summaries(session_id, payload, created_at) VALUES(?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`,
		sessionID,
		string(payload),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert summary for session %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLiteStore) GetSummary(sessionID string) (annotate.MeetingSummary, error) {
	row := s.db.QueryRow(`SELECT payload FROM summaries WHERE session_id = ?`, sessionID)

	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return annotate.MeetingSummary{}, fmt.Errorf("summary for session %s: %w", sessionID, ErrNotFound)
		}
		return annotate.MeetingSummary{}, fmt.Errorf("query summary for session %s: %w", sessionID, err)
	}

	var summary annotate.MeetingSummary
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		return annotate.MeetingSummary{}, fmt.Errorf("unmarshal summary for session %s: %w", sessionID, err)
	}
	return summary, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (SessionRecord, error) {
	var rec SessionRecord
	var startedAt string
	var endedAt sql.NullString
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Status, &startedAt, &endedAt, &rec.TotalChunks, &rec.TotalDuration); err != nil {
		return SessionRecord{}, err
	}

	parsedStart, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("parse started_at: %w", err)
	}
	rec.StartedAt = parsedStart

	if endedAt.Valid {
		parsedEnd, err := time.Parse(time.RFC3339Nano, endedAt.String)
		if err != nil {
			return SessionRecord{}, fmt.Errorf("parse ended_at: %w", err)
		}
		rec.EndedAt = &parsedEnd
	}

	return rec, nil
}

func checkAffected(res sql.Result, id string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for session %s: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}
