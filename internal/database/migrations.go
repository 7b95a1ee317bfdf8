package database

import (
	"database/sql"
	"fmt"
)

// RunMigrations creates the schema if it does not exist yet.
// The UNIQUE constraint on email is the authoritative guard against
// duplicate registrations; application-level checks are advisory only.
func RunMigrations(db *sql.DB, driver string) error {
	var accountTable string
	switch driver {
	case "postgres":
		accountTable = `
			CREATE TABLE IF NOT EXISTS account_data (
				id SERIAL PRIMARY KEY,
				email TEXT NOT NULL UNIQUE,
				username TEXT NOT NULL,
				password TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'customer',
				verified BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP NOT NULL DEFAULT NOW()
			)`
	case "sqlite3", "":
		accountTable = `
			CREATE TABLE IF NOT EXISTS account_data (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				email TEXT NOT NULL UNIQUE,
				username TEXT NOT NULL,
				password TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'customer',
				verified BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`
	default:
		return fmt.Errorf("unsupported database driver: %s", driver)
	}

	if _, err := db.Exec(accountTable); err != nil {
		return fmt.Errorf("failed to create account_data table: %v", err)
	}

	return nil
}
