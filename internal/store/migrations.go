package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Transitions table - one row per published state change
		`CREATE TABLE IF NOT EXISTS transitions (
			id TEXT PRIMARY KEY,
			from_state INTEGER NOT NULL CHECK(from_state BETWEEN -1 AND 2),
			to_state INTEGER NOT NULL CHECK(to_state BETWEEN 0 AND 2),
			contour_area REAL NOT NULL DEFAULT 0,
			finger_gaps INTEGER NOT NULL DEFAULT 0,
			source TEXT NOT NULL CHECK(source IN ('camera', 'manual')),
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_transitions_created_at ON transitions(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
