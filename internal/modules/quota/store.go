package quota

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store handles question_quota persistence.
type Store struct {
	db *pgxpool.Pool
}

// NewStore returns a Store backed by the given connection pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the quota table if it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS question_quota (
			uid                 TEXT PRIMARY KEY,
			questions_remaining INT NOT NULL,
			last_reset_month    TEXT NOT NULL
		)
	`)
	return err
}

// UseQuestion atomically checks the monthly quota and deducts one question.
// It resets the counter to DefaultQuestions when last_reset_month is behind
// the current month. Returns ErrQuotaExhausted when 0 rows are updated
// (quota exhausted or visitor absent).
func (s *Store) UseQuestion(ctx context.Context, uid string) error {
	now := time.Now().Format("2006-01")

	tag, err := s.db.Exec(ctx, `
		UPDATE question_quota SET
			questions_remaining = CASE WHEN last_reset_month != $1 THEN $2 - 1 ELSE questions_remaining - 1 END,
			last_reset_month = $1
		WHERE uid = $3 AND (last_reset_month < $1 OR questions_remaining > 0)
	`, now, DefaultQuestions, uid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrQuotaExhausted
	}
	return nil
}

// EnsureVisitor inserts a new quota row for uid with the default allowance.
// If the row already exists the insert is silently skipped.
func (s *Store) EnsureVisitor(ctx context.Context, uid string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO question_quota (uid, questions_remaining, last_reset_month)
		VALUES ($1, $2, $3)
		ON CONFLICT (uid) DO NOTHING
	`, uid, DefaultQuestions, time.Now().Format("2006-01"))
	return err
}
