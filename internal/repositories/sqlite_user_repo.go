package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/BradenHooton/bastion/internal/database"
	"github.com/BradenHooton/bastion/internal/lockout"
	"github.com/BradenHooton/bastion/internal/models"
)

// SQLiteUserRepository is the SQLite user store. It has the same method set
// as UserRepository.
type SQLiteUserRepository struct {
	db *sql.DB
}

func NewSQLiteUserRepository(db *database.SQLiteDB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db.DB}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (r *SQLiteUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, database.MapSQLiteError(err)
	}
	return user, nil
}

func (r *SQLiteUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, database.MapSQLiteError(err)
	}
	return user, nil
}

func (r *SQLiteUserRepository) ListActive(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE active = 1
		ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
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

func (r *SQLiteUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	prepareNewUser(user)

	query := `
		INSERT INTO users (id, email, name, password_hash, active, role, phone, address,
			profile_picture_url, cover_picture_url, login_attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Name, user.PasswordHash, user.Active, user.Role,
		user.Phone, user.Address, user.ProfilePictureURL, user.CoverPictureURL,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapSQLiteError(err)
	}

	return r.GetByID(ctx, user.ID)
}

func (r *SQLiteUserRepository) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {
	query := `UPDATE users SET active = ?, updated_at = ? WHERE id = ?`

	if err := r.execOne(ctx, query, active, time.Now().UTC(), id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *SQLiteUserRepository) UpdateLockout(ctx context.Context, id string, state lockout.State) error {
	query := `UPDATE users SET login_attempts = ?, locked_until = ?, updated_at = ? WHERE id = ?`

	return r.execOne(ctx, query, state.LoginAttempts, utcPtr(state.LockedUntil), time.Now().UTC(), id)
}

func (r *SQLiteUserRepository) RecordLogin(ctx context.Context, id string, state lockout.State, at time.Time) error {
	query := `UPDATE users SET login_attempts = ?, locked_until = ?, last_login = ?, updated_at = ? WHERE id = ?`

	return r.execOne(ctx, query, state.LoginAttempts, utcPtr(state.LockedUntil), at.UTC(), at.UTC(), id)
}

// execOne runs an UPDATE that must touch exactly one row
func (r *SQLiteUserRepository) execOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return database.MapSQLiteError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
