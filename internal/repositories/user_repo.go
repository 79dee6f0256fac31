package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/bastion/internal/database"
	"github.com/BradenHooton/bastion/internal/lockout"
	"github.com/BradenHooton/bastion/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, name, password_hash, active, role, phone, address,
	profile_picture_url, cover_picture_url, last_login, login_attempts, locked_until,
	created_at, updated_at`

// UserRepository is the PostgreSQL user store
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUser reads one row in userColumns order
func scanUser(scanner rowScanner) (*models.User, error) {
	var user models.User
	err := scanner.Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Active, &user.Role,
		&user.Phone, &user.Address, &user.ProfilePictureURL, &user.CoverPictureURL,
		&user.LastLogin, &user.LoginAttempts, &user.LockedUntil,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

// prepareNewUser fills the generated fields of a user about to be inserted
func prepareNewUser(user *models.User) {
	user.ID = uuid.New().String()

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.Role == "" {
		user.Role = models.RoleUser
	}
	user.LoginAttempts = 0
	user.LockedUntil = nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return user, nil
}

// ListActive returns active users, newest first
func (r *UserRepository) ListActive(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE active = TRUE
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	prepareNewUser(user)

	query := `
		INSERT INTO users (id, email, name, password_hash, active, role, phone, address,
			profile_picture_url, cover_picture_url, login_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, $12)
		RETURNING ` + userColumns

	created, err := scanUser(r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.Name, user.PasswordHash, user.Active, user.Role,
		user.Phone, user.Address, user.ProfilePictureURL, user.CoverPictureURL,
		user.CreatedAt, user.UpdatedAt,
	))
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return created, nil
}

// SetActive sets the activation flag and returns the updated user
func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {
	query := `UPDATE users SET active = $1, updated_at = $2 WHERE id = $3 RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, active, time.Now().UTC(), id))
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return user, nil
}

// UpdateLockout persists the lockout fields
func (r *UserRepository) UpdateLockout(ctx context.Context, id string, state lockout.State) error {
	query := `UPDATE users SET login_attempts = $1, locked_until = $2, updated_at = $3 WHERE id = $4`

	result, err := r.pool.Exec(ctx, query, state.LoginAttempts, state.LockedUntil, time.Now().UTC(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RecordLogin persists the post-login lockout state and sets last_login
func (r *UserRepository) RecordLogin(ctx context.Context, id string, state lockout.State, at time.Time) error {
	query := `UPDATE users SET login_attempts = $1, locked_until = $2, last_login = $3, updated_at = $3 WHERE id = $4`

	result, err := r.pool.Exec(ctx, query, state.LoginAttempts, state.LockedUntil, at.UTC(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
