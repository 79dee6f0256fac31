package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/bastion/internal/lockout"
	"github.com/BradenHooton/bastion/internal/models"
	pkgauth "github.com/BradenHooton/bastion/pkg/auth"
	pkglogger "github.com/BradenHooton/bastion/pkg/logger"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ListActive(ctx context.Context, limit, offset int) ([]*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	SetActive(ctx context.Context, id string, active bool) (*models.User, error)
	UpdateLockout(ctx context.Context, id string, state lockout.State) error
	RecordLogin(ctx context.Context, id string, state lockout.State, at time.Time) error
}

// UserService handles profile lookups and admin account management
type UserService struct {
	repo        UserRepository
	tracker     *lockout.Tracker
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewUserService creates a new UserService
func NewUserService(repo UserRepository, tracker *lockout.Tracker, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *UserService {
	return &UserService{
		repo:        repo,
		tracker:     tracker,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("user not found", slog.String("user_id", id))
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return user, nil
}

// ListActiveUsers retrieves active users with pagination
func (s *UserService) ListActiveUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	users, err := s.repo.ListActive(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Int("limit", limit), slog.Int("offset", offset), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return users, nil
}

// Activate marks the account active
func (s *UserService) Activate(ctx context.Context, id, actorID string) (*models.User, error) {
	return s.setActive(ctx, id, actorID, true)
}

// Deactivate marks the account inactive
func (s *UserService) Deactivate(ctx context.Context, id, actorID string) (*models.User, error) {
	return s.setActive(ctx, id, actorID, false)
}

func (s *UserService) setActive(ctx context.Context, id, actorID string, active bool) (*models.User, error) {
	user, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update user status",
			slog.String("user_id", id),
			slog.Bool("active", active),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	event := pkglogger.EventUserDeactivated
	if active {
		event = pkglogger.EventUserActivated
	}
	s.logger.Info("user status changed", slog.String("user_id", id), slog.Bool("active", active))
	s.auditLogger.LogAccountAction(event, id, actorID, nil)

	return user, nil
}

// Unlock clears the lockout state of an account. It takes the same tracker
// stripe as Login so it cannot interleave with a login in progress.
func (s *UserService) Unlock(ctx context.Context, id, actorID string) (*models.User, error) {
	release := s.tracker.Acquire(id)
	defer release()

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	previous := user.Lockout()
	next := s.tracker.Unlock(previous)
	if err := s.repo.UpdateLockout(ctx, id, next); err != nil {
		s.logger.Error("failed to unlock user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	user.SetLockout(next)

	s.logger.Info("user unlocked", slog.String("user_id", id))
	s.auditLogger.LogAccountAction(pkglogger.EventAccountUnlocked, id, actorID, map[string]string{
		"previous_attempts": fmt.Sprintf("%d", previous.LoginAttempts),
	})

	return user, nil
}

// EnsureAdmin creates an active admin account for email unless a user with
// that email already exists
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		s.logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin, err := s.repo.Create(ctx, &models.User{
		Email:        email,
		Name:         "admin",
		PasswordHash: hashedPassword,
		Active:       true,
		Role:         models.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	s.logger.Info("admin user created", slog.String("user_id", admin.ID))
	return nil
}
