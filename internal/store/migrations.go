package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Selections table - one row per confirmed zone
		`CREATE TABLE IF NOT EXISTS selections (
			id TEXT PRIMARY KEY,
			device_id TEXT NOT NULL,
			qr_id TEXT NOT NULL DEFAULT '',
			zone TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			video_url TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '' CHECK(source IN ('', 'primary', 'fallback', 'manual')),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_selections_created_at ON selections(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_selections_zone ON selections(zone)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
