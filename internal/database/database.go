package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/NatesHonor/apisite/internal/config"
	_ "github.com/lib/pq" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"
)

// Open establishes the database connection and runs migrations.
func Open(cfg *config.Config) (*sql.DB, error) {
	driver := cfg.Database.Driver

	log.Printf("[DB] Opening %s database", driver)

	var db *sql.DB
	var err error

	switch driver {
	case "postgres":
		db, err = sql.Open("postgres", cfg.Database.DSN)
		if err == nil {
			db.SetMaxOpenConns(25)
			db.SetMaxIdleConns(5)
			db.SetConnMaxLifetime(5 * time.Minute)
		}
	case "sqlite3", "":
		db, err = sql.Open("sqlite3", cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %v", err)
	}

	log.Printf("[DB] Running migrations")
	if err := RunMigrations(db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	log.Printf("[DB] Database ready")
	return db, nil
}
