package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/BradenHooton/bastion/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// HealthChecker is implemented by both database handles
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// MapPostgresError translates pgx errors into model sentinels
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return models.ErrConflict
		case "23502", "23503", "23514": // not_null, foreign_key, check
			return models.ErrBadRequest
		}
	}

	return err
}

// MapSQLiteError translates database/sql and go-sqlite3 errors into model sentinels
func MapSQLiteError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return models.ErrConflict
		case sqlite3.ErrConstraintNotNull, sqlite3.ErrConstraintCheck, sqlite3.ErrConstraintForeignKey:
			return models.ErrBadRequest
		}
	}

	return err
}
