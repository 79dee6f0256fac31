package routes

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/bastion/internal/auth"
	"github.com/BradenHooton/bastion/internal/clock"
	"github.com/BradenHooton/bastion/internal/handlers"
	"github.com/BradenHooton/bastion/internal/middleware"
	"github.com/BradenHooton/bastion/internal/models"
	"github.com/BradenHooton/bastion/internal/ratelimit"
	"github.com/BradenHooton/bastion/internal/services"
	pkghttp "github.com/BradenHooton/bastion/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	memberID = "2f1b3c4d-5e6f-4a7b-8c9d-0e1f2a3b4c5d"
	adminID  = "9a8b7c6d-5e4f-4321-8fed-cba987654321"
)

type testEnv struct {
	router http.Handler
	tm     *auth.TokenManager
	users  map[string]*models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	member := services.NewTestUser(memberID, "member@example.com", "member")
	admin := services.NewTestUser(adminID, "admin@example.com", "admin")
	admin.Role = models.RoleAdmin
	users := map[string]*models.User{memberID: member, adminID: admin}

	tm := auth.NewTokenManager("routes-test-secret-0123456789ab", "bastion", 15*time.Minute, time.Hour, clock.Real{})
	ipConfig, err := pkghttp.NewIPConfig(nil)
	require.NoError(t, err)

	authSvc := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, ip string) (*services.AuthResponse, error) {
			return nil, models.ErrUnauthorized
		},
	}
	userSvc := &handlers.MockUserService{
		GetUserByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			if u, ok := users[id]; ok {
				return u, nil
			}
			return nil, models.ErrNotFound
		},
		ListActiveUsersFunc: func(ctx context.Context, limit, offset int) ([]*models.User, error) {
			return []*models.User{member, admin}, nil
		},
		UnlockFunc: func(ctx context.Context, id, actorID string) (*models.User, error) {
			return users[memberID], nil
		},
	}
	repo := services.NewMemoryUserRepository(member, admin)

	router := chi.NewRouter()
	RegisterRoutes(
		router,
		handlers.NewUserHandler(userSvc),
		handlers.NewAuthHandler(authSvc, ipConfig, true),
		tm,
		repo,
		middleware.RateLimitConfig{RequestsPerMinute: 3},
	)

	return &testEnv{router: router, tm: tm, users: users}
}

func (e *testEnv) do(t *testing.T, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		pair, err := e.tm.IssuePair(e.users[userID])
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestRoutes_Access(t *testing.T) {
	env := newTestEnv(t)
	unlockPath := "/api/v1/admin/users/" + memberID + "/unlock"

	tests := []struct {
		name   string
		method string
		path   string
		userID string
		want   int
	}{
		{"me without token", http.MethodGet, "/api/v1/users/me", "", http.StatusUnauthorized},
		{"me with token", http.MethodGet, "/api/v1/users/me", memberID, http.StatusOK},
		{"admin list without token", http.MethodGet, "/api/v1/admin/users", "", http.StatusUnauthorized},
		{"admin list as member", http.MethodGet, "/api/v1/admin/users", memberID, http.StatusForbidden},
		{"admin list as admin", http.MethodGet, "/api/v1/admin/users", adminID, http.StatusOK},
		{"unlock as member", http.MethodPost, unlockPath, memberID, http.StatusForbidden},
		{"unlock as admin", http.MethodPost, unlockPath, adminID, http.StatusOK},
		{"unknown route", http.MethodGet, "/api/v1/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, tt.userID, "")
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestRoutes_LoginIsThrottled(t *testing.T) {
	env := newTestEnv(t)
	body := `{"email":"member@example.com","password":"wrong-password"}`

	for i := 0; i < 3; i++ {
		w := env.do(t, http.MethodPost, "/api/v1/users/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := env.do(t, http.MethodPost, "/api/v1/users/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRoutes_RefreshIsNotThrottled(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 5; i++ {
		w := env.do(t, http.MethodPost, "/api/v1/users/refresh", "", `{"refresh_token":"x"}`)
		assert.NotEqual(t, http.StatusTooManyRequests, w.Code)
	}
}

func TestUseGlobalMiddleware_PreflightIsAdmitted(t *testing.T) {
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	limiter, err := ratelimit.New(ratelimit.Config{Strategy: ratelimit.StrategySliding, Limit: 1, Window: time.Minute})
	require.NoError(t, err)

	router := chi.NewRouter()
	UseGlobalMiddleware(router, GlobalConfig{
		Env:            "development",
		AllowedOrigins: []string{"http://localhost:3000"},
		Limiter:        limiter,
		Clock:          clk,
		Logger:         slog.New(slog.NewJSONHandler(io.Discard, nil)),
	})
	router.Post("/api/v1/users/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	preflight := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/users/login", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", "POST")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := preflight()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = preflight()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}
