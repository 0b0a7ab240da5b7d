package store

import (
	"database/sql"
	"errors"
	"time"
)

// AuthSession represents one camera session in the audit log.
type AuthSession struct {
	ID        string
	Subject   string
	Mode      string
	Unlocked  bool
	StartedAt time.Time
	EndedAt   *time.Time
}

// SessionRepository provides access to auth session rows.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new session row at its start time.
func (r *SessionRepository) Create(as *AuthSession) error {
	as.StartedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO auth_sessions (id, subject, mode, unlocked, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		as.ID, as.Subject, as.Mode, as.Unlocked, as.StartedAt,
	)
	return err
}

// Finish marks a session as ended, recording whether it unlocked.
func (r *SessionRepository) Finish(id string, unlocked bool) error {
	res, err := r.db.Exec(
		`UPDATE auth_sessions SET unlocked = ?, ended_at = ? WHERE id = ?`,
		unlocked, time.Now(), id,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*AuthSession, error) {
	as := &AuthSession{}
	var endedAt sql.NullTime

	err := r.db.QueryRow(
		`SELECT id, subject, mode, unlocked, started_at, ended_at
		 FROM auth_sessions WHERE id = ?`,
		id,
	).Scan(&as.ID, &as.Subject, &as.Mode, &as.Unlocked, &as.StartedAt, &endedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if endedAt.Valid {
		as.EndedAt = &endedAt.Time
	}
	return as, nil
}
