package services

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/bastion/internal/lockout"
	"github.com/BradenHooton/bastion/internal/models"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc       func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc    func(ctx context.Context, email string) (*models.User, error)
	ListActiveFunc    func(ctx context.Context, limit, offset int) ([]*models.User, error)
	CreateFunc        func(ctx context.Context, user *models.User) (*models.User, error)
	SetActiveFunc     func(ctx context.Context, id string, active bool) (*models.User, error)
	UpdateLockoutFunc func(ctx context.Context, id string, state lockout.State) error
	RecordLoginFunc   func(ctx context.Context, id string, state lockout.State, at time.Time) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) ListActive(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {
	if m.SetActiveFunc != nil {
		return m.SetActiveFunc(ctx, id, active)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) UpdateLockout(ctx context.Context, id string, state lockout.State) error {
	if m.UpdateLockoutFunc != nil {
		return m.UpdateLockoutFunc(ctx, id, state)
	}
	return nil
}

func (m *MockUserRepository) RecordLogin(ctx context.Context, id string, state lockout.State, at time.Time) error {
	if m.RecordLoginFunc != nil {
		return m.RecordLoginFunc(ctx, id, state, at)
	}
	return nil
}

// NewMemoryUserRepository returns a MockUserRepository whose functions share
// an in-memory user table, for flows that read back their own writes
func NewMemoryUserRepository(users ...*models.User) *MockUserRepository {
	var mu sync.Mutex
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = *u
	}

	get := func(match func(u models.User) bool) (*models.User, error) {
		mu.Lock()
		defer mu.Unlock()
		for _, u := range byID {
			if match(u) {
				found := u
				return &found, nil
			}
		}
		return nil, models.ErrNotFound
	}

	return &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return get(func(u models.User) bool { return u.ID == id })
		},
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return get(func(u models.User) bool { return u.Email == email })
		},
		UpdateLockoutFunc: func(ctx context.Context, id string, state lockout.State) error {
			mu.Lock()
			defer mu.Unlock()
			u, ok := byID[id]
			if !ok {
				return models.ErrNotFound
			}
			u.SetLockout(state)
			byID[id] = u
			return nil
		},
		RecordLoginFunc: func(ctx context.Context, id string, state lockout.State, at time.Time) error {
			mu.Lock()
			defer mu.Unlock()
			u, ok := byID[id]
			if !ok {
				return models.ErrNotFound
			}
			u.SetLockout(state)
			u.LastLogin = &at
			byID[id] = u
			return nil
		},
	}
}

// MockMailer records the notifications it is asked to send
type MockMailer struct {
	mu          sync.Mutex
	Welcomes    []string
	LockNotices []string
	Err         error
}

func (m *MockMailer) SendWelcome(ctx context.Context, to, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Welcomes = append(m.Welcomes, to)
	return m.Err
}

func (m *MockMailer) SendLockNotice(ctx context.Context, to, name string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LockNotices = append(m.LockNotices, to)
	return m.Err
}

// NewTestUser creates a test user with default values
func NewTestUser(id, email, name string) *models.User {
	now := time.Now().UTC()
	return &models.User{
		ID:           id,
		Email:        email,
		Name:         name,
		PasswordHash: "$2a$12$test_hash",
		Active:       true,
		Role:         models.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewTestUserWithPassword creates a test user with a specific password hash
func NewTestUserWithPassword(id, email, name, passwordHash string) *models.User {
	user := NewTestUser(id, email, name)
	user.PasswordHash = passwordHash
	return user
}

// NewTestUserLocked creates a test user locked until until
func NewTestUserLocked(id, email, name string, until time.Time) *models.User {
	user := NewTestUser(id, email, name)
	user.LoginAttempts = lockout.DefaultThreshold
	user.LockedUntil = &until
	return user
}
