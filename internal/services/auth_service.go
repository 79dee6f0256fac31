package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/bastion/internal/auth"
	"github.com/BradenHooton/bastion/internal/clock"
	"github.com/BradenHooton/bastion/internal/lockout"
	"github.com/BradenHooton/bastion/internal/models"
	pkgauth "github.com/BradenHooton/bastion/pkg/auth"
	pkglogger "github.com/BradenHooton/bastion/pkg/logger"
)

// AccountLockedError is returned by Login for an account that is still
// locked. It matches models.ErrAccountLocked under errors.Is.
type AccountLockedError struct {
	Until      time.Time
	RetryAfter time.Duration
}

func (e *AccountLockedError) Error() string {
	return models.ErrAccountLocked.Error()
}

func (e *AccountLockedError) Is(target error) bool {
	return target == models.ErrAccountLocked
}

// AuthService handles registration, login and token refresh
type AuthService struct {
	repo        UserRepository
	tm          *auth.TokenManager
	tracker     *lockout.Tracker
	mailer      Mailer
	timing      *auth.TimingDelay
	clock       clock.Clock
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService. A nil timing delay disables padding.
func NewAuthService(repo UserRepository, tm *auth.TokenManager, tracker *lockout.Tracker, mailer Mailer, timing *auth.TimingDelay, clk clock.Clock, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		repo:        repo,
		tm:          tm,
		tracker:     tracker,
		mailer:      mailer,
		timing:      timing,
		clock:       clk,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	Name              string     `json:"name"`
	Active            bool       `json:"active"`
	Role              string     `json:"role"`
	Phone             *string    `json:"phone,omitempty"`
	Address           *string    `json:"address,omitempty"`
	ProfilePictureURL *string    `json:"profile_picture_url,omitempty"`
	CoverPictureURL   *string    `json:"cover_picture_url,omitempty"`
	LastLogin         *time.Time `json:"last_login,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// AuthResponse represents the response from auth operations
type AuthResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	CreatedAt    time.Time     `json:"created_at"`
	User         *UserResponse `json:"user"`
}

// NewUserResponse drops the password hash and lockout fields
func NewUserResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:                user.ID,
		Email:             user.Email,
		Name:              user.Name,
		Active:            user.Active,
		Role:              user.Role,
		Phone:             user.Phone,
		Address:           user.Address,
		ProfilePictureURL: user.ProfilePictureURL,
		CoverPictureURL:   user.CoverPictureURL,
		LastLogin:         user.LastLogin,
		CreatedAt:         user.CreatedAt,
		UpdatedAt:         user.UpdatedAt,
	}
}

func newAuthResponse(pair *auth.TokenPair, user *models.User) *AuthResponse {
	return &AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(pair.ExpiresIn / time.Second),
		CreatedAt:    pair.IssuedAt.UTC(),
		User:         NewUserResponse(user),
	}
}

// NormalizeEmail trims and lowercases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new, inactive user account and signs a token pair for it
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*AuthResponse, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("registration failed: user already exists")
		return nil, models.ErrConflict
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if user exists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	createdUser, err := s.repo.Create(ctx, &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hashedPassword,
		Role:         models.RoleUser,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	pair, err := s.tm.IssuePair(createdUser)
	if err != nil {
		s.logger.Error("failed to issue tokens", slog.String("user_id", createdUser.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered", slog.String("user_id", createdUser.ID))
	s.auditLogger.LogAccountAction(pkglogger.EventUserRegistered, createdUser.ID, "", nil)

	if err := s.mailer.SendWelcome(ctx, createdUser.Email, createdUser.Name); err != nil {
		s.logger.Warn("welcome email not sent", slog.String("user_id", createdUser.ID), slog.Any("error", err))
	}

	return newAuthResponse(pair, createdUser), nil
}

// Login checks credentials against the lockout state of the account.
//
// Unknown emails and wrong passwords both return models.ErrUnauthorized.
// A locked account returns *AccountLockedError. Each wrong password is
// counted; the failure that reaches the threshold locks the account and
// sends a lock notice.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress string) (*AuthResponse, error) {
	start := time.Now()

	email = NormalizeEmail(email)
	if email == "" || password == "" {
		s.timing.WaitFrom(start, false)
		return nil, models.ErrUnauthorized
	}

	found, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkgauth.CompareDummy(password)
			s.logger.Info("login failed: invalid credentials")
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     pkglogger.EventLoginFailed,
				IPAddress:     ipAddress,
				FailureReason: "invalid_credentials",
			})
			s.timing.WaitFrom(start, false)
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, state, err := s.verify(ctx, found.ID, password)
	if err != nil {
		s.reportFailure(ctx, found, state, ipAddress, err)
		s.timing.WaitFrom(start, false)
		return nil, err
	}

	pair, err := s.tm.IssuePair(user)
	if err != nil {
		s.logger.Error("failed to issue tokens", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: pkglogger.EventLoginSuccess,
		UserID:    user.ID,
		IPAddress: ipAddress,
		Success:   true,
	})
	s.timing.WaitFrom(start, true)

	return newAuthResponse(pair, user), nil
}

// verify runs the check-compare-record sequence for one account under its
// tracker stripe. The user is re-read inside the stripe so concurrent logins
// for the same account see each other's writes. The returned state is the
// one persisted by this call.
func (s *AuthService) verify(ctx context.Context, userID, password string) (*models.User, lockout.State, error) {
	release := s.tracker.Acquire(userID)
	defer release()

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, lockout.State{}, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user", slog.String("user_id", userID), slog.Any("error", err))
		return nil, lockout.State{}, models.ErrInternalServer
	}

	now := s.clock.Now()
	state := user.Lockout()

	if s.tracker.IsLocked(state, now) {
		return nil, state, &AccountLockedError{
			Until:      *state.LockedUntil,
			RetryAfter: s.tracker.RetryAfter(state, now),
		}
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		next := s.tracker.RecordFailure(state, now)
		if err := s.repo.UpdateLockout(ctx, user.ID, next); err != nil {
			s.logger.Error("failed to record failed login", slog.String("user_id", user.ID), slog.Any("error", err))
			return nil, state, models.ErrInternalServer
		}
		return nil, next, models.ErrUnauthorized
	}

	next := s.tracker.RecordSuccess(state, now)
	if err := s.repo.RecordLogin(ctx, user.ID, next, now); err != nil {
		s.logger.Error("failed to record login", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, state, models.ErrInternalServer
	}

	user.SetLockout(next)
	user.LastLogin = &now

	return user, next, nil
}

// reportFailure logs a refused login. It runs after the stripe is released
// so a slow mailer does not hold up other logins.
func (s *AuthService) reportFailure(ctx context.Context, user *models.User, state lockout.State, ipAddress string, err error) {
	var locked *AccountLockedError
	switch {
	case errors.As(err, &locked):
		s.logger.Info("login blocked: account locked", slog.String("user_id", user.ID))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginBlocked,
			UserID:        user.ID,
			IPAddress:     ipAddress,
			FailureReason: "account_locked",
		})

	case errors.Is(err, models.ErrUnauthorized):
		s.logger.Info("login failed: invalid credentials", slog.String("user_id", user.ID))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginFailed,
			UserID:        user.ID,
			IPAddress:     ipAddress,
			FailureReason: "invalid_credentials",
		})

		// verify only returns a locked state on the failure that set the lock
		if state.LockedUntil != nil {
			s.auditLogger.LogAccountLocked(user.ID, ipAddress, state.LoginAttempts, *state.LockedUntil)
			if err := s.mailer.SendLockNotice(ctx, user.Email, user.Name, *state.LockedUntil); err != nil {
				s.logger.Warn("lock notice not sent", slog.String("user_id", user.ID), slog.Any("error", err))
			}
		}
	}
}

// Refresh exchanges a refresh token for a new pair. It is refused once the
// user no longer exists or while the account is locked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	if refreshToken = strings.TrimSpace(refreshToken); refreshToken == "" {
		return nil, models.ErrUnauthorized
	}

	claims, err := s.tm.ValidateToken(refreshToken, models.TokenTypeRefresh)
	if err != nil {
		s.logger.Info("refresh token validation failed", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}

	user, err := s.repo.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("user not found for token refresh", slog.String("user_id", claims.UserID()))
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user for token refresh", slog.String("user_id", claims.UserID()), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if s.tracker.IsLocked(user.Lockout(), s.clock.Now()) {
		s.logger.Info("token refresh blocked: account locked", slog.String("user_id", user.ID))
		return nil, models.ErrUnauthorized
	}

	pair, err := s.tm.IssuePair(user)
	if err != nil {
		s.logger.Error("failed to issue tokens", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("token refreshed", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: pkglogger.EventTokenRefreshed,
		UserID:    user.ID,
		Success:   true,
	})

	return newAuthResponse(pair, user), nil
}
