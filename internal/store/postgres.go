package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/quantalpha/advisor-cli/internal/db"
	"github.com/quantalpha/advisor-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS assessments (
	id         TEXT PRIMARY KEY,
	answers    JSONB NOT NULL,
	score      INTEGER NOT NULL,
	profile    TEXT NOT NULL,
	allocation JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id),
	seq             INTEGER NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_assessments_profile ON assessments(profile);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, seq);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateAssessment(ctx context.Context, a model.Assessment) (*model.Assessment, error) {
	a.ID = uuid.New().String()
	a.CreatedAt = time.Now().UTC()

	answersJSON, err := json.Marshal(a.Answers)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal answers")
	}
	allocJSON, err := json.Marshal(a.Allocation)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal allocation")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO assessments (id, answers, score, profile, allocation, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, answersJSON, a.Score, string(a.Profile), allocJSON, a.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert assessment")
	}
	return &a, nil
}

func (s *PostgresStore) GetAssessment(ctx context.Context, id string) (*model.Assessment, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, answers, score, profile, allocation, created_at FROM assessments WHERE id = $1`, id)

	a, err := scanPgAssessment(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get assessment %s", id)
	}
	return a, nil
}

func (s *PostgresStore) ListAssessments(ctx context.Context, filter AssessmentFilter) ([]model.Assessment, error) {
	query := `SELECT id, answers, score, profile, allocation, created_at FROM assessments`
	var args []any

	if filter.Profile != "" {
		query += ` WHERE profile = $1`
		args = append(args, string(filter.Profile))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list assessments")
	}
	defer rows.Close()

	var out []model.Assessment
	for rows.Next() {
		a, err := scanPgAssessment(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list assessments")
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list assessments iterate")
}

func (s *PostgresStore) CreateConversation(ctx context.Context) (*model.Conversation, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversations (id, created_at, updated_at) VALUES ($1, $2, $3)`,
		id, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert conversation")
	}
	return &model.Conversation{ID: id, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *PostgresStore) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	var c model.Conversation
	row := s.pool.QueryRow(ctx,
		`SELECT id, created_at, updated_at FROM conversations WHERE id = $1`, id)
	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("conversation not found: %s", id)
	} else if err != nil {
		return nil, eris.Wrap(err, "postgres: scan conversation")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT role, content FROM messages WHERE conversation_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list messages")
	}
	defer rows.Close()

	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, eris.Wrap(err, "postgres: scan message")
		}
		c.Messages = append(c.Messages, m)
	}
	c.MessageCount = len(c.Messages)
	return &c, eris.Wrap(rows.Err(), "postgres: list messages iterate")
}

func (s *PostgresStore) AppendMessages(ctx context.Context, conversationID string, msgs ...model.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin append")
	}
	defer tx.Rollback(ctx)

	var next int
	row := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM messages WHERE conversation_id = $1`, conversationID)
	if err := row.Scan(&next); err != nil {
		return eris.Wrap(err, "postgres: next seq")
	}

	for i, m := range msgs {
		_, err := tx.Exec(ctx,
			`INSERT INTO messages (id, conversation_id, seq, role, content, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New().String(), conversationID, next+i, string(m.Role), m.Content, now,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert message for %s", conversationID)
		}
	}

	tag, err := tx.Exec(ctx,
		`UPDATE conversations SET updated_at = $1 WHERE id = $2`, now, conversationID)
	if err != nil {
		return eris.Wrapf(err, "postgres: touch conversation %s", conversationID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("conversation not found: %s", conversationID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit append")
}

func (s *PostgresStore) ListConversations(ctx context.Context, limit int) ([]model.Conversation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT c.id, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
		FROM conversations c ORDER BY c.updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list conversations")
	}
	defer rows.Close()

	var out []model.Conversation
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.MessageCount); err != nil {
			return nil, eris.Wrap(err, "postgres: scan conversation")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list conversations iterate")
}

func scanPgAssessment(row pgx.Row) (*model.Assessment, error) {
	var a model.Assessment
	var answersJSON, allocJSON []byte

	err := row.Scan(&a.ID, &answersJSON, &a.Score, &a.Profile, &allocJSON, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.New("assessment not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan assessment")
	}

	if err := json.Unmarshal(answersJSON, &a.Answers); err != nil {
		return nil, eris.Wrap(err, "unmarshal answers")
	}
	if err := json.Unmarshal(allocJSON, &a.Allocation); err != nil {
		return nil, eris.Wrap(err, "unmarshal allocation")
	}
	return &a, nil
}
