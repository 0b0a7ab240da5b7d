package store

import (
	"database/sql"
	"time"
)

// Attempt represents one resolved capture upload: what was sent, in
// which mode, and how the backend answered. Match and Confidence are nil
// when the backend did not report them.
type Attempt struct {
	ID         string
	SessionID  string
	Subject    string
	Mode       string
	Success    bool
	Match      *bool
	Confidence *float64
	Message    string
	CreatedAt  time.Time
}

// AttemptRepository provides access to capture attempt rows.
type AttemptRepository struct {
	db *sql.DB
}

// Attempts returns the attempt repository for this store.
func (s *Store) Attempts() *AttemptRepository {
	return &AttemptRepository{db: s.db}
}

// Create inserts a new attempt.
func (r *AttemptRepository) Create(a *Attempt) error {
	a.CreatedAt = time.Now()

	var sessionID any
	if a.SessionID != "" {
		sessionID = a.SessionID
	}

	_, err := r.db.Exec(
		`INSERT INTO capture_attempts (id, session_id, subject, mode, success, matched, confidence, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, sessionID, a.Subject, a.Mode, a.Success, a.Match, a.Confidence, a.Message, a.CreatedAt,
	)
	return err
}

// ListBySubject returns the most recent attempts for a subject, newest
// first, up to limit rows.
func (r *AttemptRepository) ListBySubject(subject string, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, COALESCE(session_id, ''), subject, mode, success, matched, confidence, message, created_at
		 FROM capture_attempts WHERE subject = ?
		 ORDER BY created_at DESC LIMIT ?`,
		subject, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAttempts(rows)
}

// ListRecent returns the most recent attempts across all subjects,
// newest first, up to limit rows.
func (r *AttemptRepository) ListRecent(limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, COALESCE(session_id, ''), subject, mode, success, matched, confidence, message, created_at
		 FROM capture_attempts
		 ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAttempts(rows)
}

func scanAttempts(rows *sql.Rows) ([]Attempt, error) {
	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		var matched sql.NullBool
		var confidence sql.NullFloat64

		if err := rows.Scan(&a.ID, &a.SessionID, &a.Subject, &a.Mode, &a.Success,
			&matched, &confidence, &a.Message, &a.CreatedAt); err != nil {
			return nil, err
		}

		if matched.Valid {
			v := matched.Bool
			a.Match = &v
		}
		if confidence.Valid {
			v := confidence.Float64
			a.Confidence = &v
		}

		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
