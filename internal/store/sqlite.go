package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/quantalpha/advisor-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS assessments (
	id         TEXT PRIMARY KEY,
	answers    TEXT NOT NULL,
	score      INTEGER NOT NULL,
	profile    TEXT NOT NULL,
	allocation TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id),
	seq             INTEGER NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_assessments_profile ON assessments(profile);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, seq);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateAssessment(ctx context.Context, a model.Assessment) (*model.Assessment, error) {
	a.ID = uuid.New().String()
	a.CreatedAt = time.Now().UTC()

	answersJSON, err := json.Marshal(a.Answers)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal answers")
	}
	allocJSON, err := json.Marshal(a.Allocation)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal allocation")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO assessments (id, answers, score, profile, allocation, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, string(answersJSON), a.Score, string(a.Profile), string(allocJSON), a.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert assessment")
	}
	return &a, nil
}

func (s *SQLiteStore) GetAssessment(ctx context.Context, id string) (*model.Assessment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, answers, score, profile, allocation, created_at FROM assessments WHERE id = ?`, id)
	return scanAssessment(row)
}

func (s *SQLiteStore) ListAssessments(ctx context.Context, filter AssessmentFilter) ([]model.Assessment, error) {
	query := `SELECT id, answers, score, profile, allocation, created_at FROM assessments WHERE 1=1`
	var args []any

	if filter.Profile != "" {
		query += ` AND profile = ?`
		args = append(args, string(filter.Profile))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list assessments")
	}
	defer rows.Close()

	var out []model.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list assessments iterate")
}

func (s *SQLiteStore) CreateConversation(ctx context.Context) (*model.Conversation, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, created_at, updated_at) VALUES (?, ?, ?)`,
		id, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert conversation")
	}
	return &model.Conversation{ID: id, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	var c model.Conversation
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at FROM conversations WHERE id = ?`, id)
	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err == sql.ErrNoRows {
		return nil, eris.Errorf("conversation not found: %s", id)
	} else if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan conversation")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM messages WHERE conversation_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list messages")
	}
	defer rows.Close()

	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan message")
		}
		c.Messages = append(c.Messages, m)
	}
	c.MessageCount = len(c.Messages)
	return &c, eris.Wrap(rows.Err(), "sqlite: list messages iterate")
}

func (s *SQLiteStore) AppendMessages(ctx context.Context, conversationID string, msgs ...model.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin append")
	}
	defer tx.Rollback()

	var next int
	row := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM messages WHERE conversation_id = ?`, conversationID)
	if err := row.Scan(&next); err != nil {
		return eris.Wrap(err, "sqlite: next seq")
	}

	for i, m := range msgs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO messages (id, conversation_id, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), conversationID, next+i, string(m.Role), m.Content, now,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert message for %s", conversationID)
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`, now, conversationID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: touch conversation %s", conversationID)
	}
	if n, err := res.RowsAffected(); err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	} else if n == 0 {
		return eris.Errorf("conversation not found: %s", conversationID)
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit append")
}

func (s *SQLiteStore) ListConversations(ctx context.Context, limit int) ([]model.Conversation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
		FROM conversations c ORDER BY c.updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list conversations")
	}
	defer rows.Close()

	var out []model.Conversation
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.MessageCount); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan conversation")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list conversations iterate")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanAssessment(row scannable) (*model.Assessment, error) {
	var a model.Assessment
	var answersJSON, allocJSON string

	err := row.Scan(&a.ID, &answersJSON, &a.Score, &a.Profile, &allocJSON, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("assessment not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan assessment")
	}

	if err := json.Unmarshal([]byte(answersJSON), &a.Answers); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal answers")
	}
	if err := json.Unmarshal([]byte(allocJSON), &a.Allocation); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal allocation")
	}
	return &a, nil
}
