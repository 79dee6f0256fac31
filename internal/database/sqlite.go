package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/BradenHooton/bastion/internal/config"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDB is the SQLite handle used when DB_DRIVER=sqlite
type SQLiteDB struct {
	*sql.DB
	path   string
	logger *slog.Logger
}

// OpenSQLite creates or opens the database file at path, configures it
// and applies pending migrations. ":memory:" is accepted for tests.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteDB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000", path)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time; also keeps ":memory:" on a single connection.
	sqlDB.SetMaxOpenConns(1)

	db := &SQLiteDB{DB: sqlDB, path: path, logger: logger}

	if err := db.configure(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := runMigrations(ctx, sqlDB, config.DriverSQLite, logger); err != nil {
		sqlDB.Close()
		return nil, err
	}

	logger.Info("database connection established",
		slog.String("driver", config.DriverSQLite),
		slog.String("path", path),
	)

	return db, nil
}

func (db *SQLiteDB) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

func (db *SQLiteDB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

func (db *SQLiteDB) Close() error {
	db.logger.Info("closing database", slog.String("path", db.path))
	if db.path != ":memory:" {
		if _, err := db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			db.logger.Warn("WAL checkpoint failed", slog.Any("error", err))
		}
	}
	return db.DB.Close()
}
