package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Auth sessions table - one row per camera session
		`CREATE TABLE IF NOT EXISTS auth_sessions (
			id TEXT PRIMARY KEY,
			subject TEXT NOT NULL,
			mode TEXT NOT NULL CHECK(mode IN ('register', 'verify')),
			unlocked INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME
		)`,

		// Capture attempts table - one row per resolved capture upload
		`CREATE TABLE IF NOT EXISTS capture_attempts (
			id TEXT PRIMARY KEY,
			session_id TEXT REFERENCES auth_sessions(id) ON DELETE CASCADE,
			subject TEXT NOT NULL,
			mode TEXT NOT NULL CHECK(mode IN ('register', 'verify')),
			success INTEGER NOT NULL,
			matched INTEGER,
			confidence REAL,
			message TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_capture_attempts_subject
			ON capture_attempts(subject, created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
