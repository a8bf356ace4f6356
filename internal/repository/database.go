package repository

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver
)

// NewSQLiteDB opens (or creates) the SQLite database.
func NewSQLiteDB(path string, logger *zap.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Successfully connected to the database", zap.String("path", path))
	return db, nil
}

// MigrateDB creates the schema if it does not exist. Safe to call on every
// start.
func MigrateDB(db *sqlx.DB, logger *zap.Logger) error {
	schema := `
	CREATE TABLE IF NOT EXISTS analyses (
		id                   TEXT PRIMARY KEY,
		raw_text             TEXT NOT NULL,
		local_score          REAL,
		remote_probability   REAL,
		category             TEXT NOT NULL,
		red_flags            TEXT NOT NULL DEFAULT '[]',
		psychology_explainer TEXT NOT NULL DEFAULT '',
		advice               TEXT NOT NULL DEFAULT '',
		blended_probability  REAL NOT NULL,
		source               TEXT NOT NULL,
		final_label          TEXT NOT NULL,
		feedback             TEXT NOT NULL DEFAULT 'none',
		feedback_reason      TEXT NOT NULL DEFAULT '',
		verified             BOOLEAN NOT NULL DEFAULT 0,
		reviewed_at          DATETIME,
		created_at           DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_feedback ON analyses(feedback);
	CREATE INDEX IF NOT EXISTS idx_analyses_verified ON analyses(verified);
	CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);

	CREATE TABLE IF NOT EXISTS scam_ledger (
		sequence     INTEGER PRIMARY KEY,
		fingerprint  TEXT NOT NULL,
		category     TEXT NOT NULL,
		pseudo_tx_id TEXT NOT NULL UNIQUE,
		pseudo_block INTEGER NOT NULL,
		created_at   DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_fingerprint ON scam_ledger(fingerprint);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Database migration was run successfully")
	return nil
}
