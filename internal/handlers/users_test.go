package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/bastion/internal/models"
	"github.com/BradenHooton/bastion/internal/services"
	"github.com/stretchr/testify/assert"
)

const testUserID = "8f14e45f-ceea-467f-a8a5-5b1d3a0e6b3c"

func newTestModelUser(id string) *models.User {
	now := time.Now().UTC()
	locked := now.Add(time.Hour)
	return &models.User{
		ID:            id,
		Email:         "alice@example.com",
		Name:          "alice",
		PasswordHash:  "$2a$12$secret",
		Active:        true,
		Role:          models.RoleUser,
		LoginAttempts: 5,
		LockedUntil:   &locked,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestUserHandler_Me(t *testing.T) {
	mock := &MockUserService{
		GetUserByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return newTestModelUser(id), nil
		},
	}
	handler := NewUserHandler(mock)

	req := WithAuthContext(httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil), testUserID, "alice@example.com")
	w := httptest.NewRecorder()
	handler.Me(w, req)

	var resp map[string]interface{}
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, testUserID, resp["id"])
	assert.Equal(t, true, resp["active"])
	assert.NotContains(t, resp, "password_hash")
	assert.NotContains(t, resp, "login_attempts")
	assert.NotContains(t, resp, "locked_until")
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestUserHandler_Me_Unauthenticated(t *testing.T) {
	w := httptest.NewRecorder()
	NewUserHandler(&MockUserService{}).Me(w, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))
	AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
}

func TestUserHandler_ListActiveUsers(t *testing.T) {
	var gotLimit, gotOffset int
	mock := &MockUserService{
		ListActiveUsersFunc: func(ctx context.Context, limit, offset int) ([]*models.User, error) {
			gotLimit, gotOffset = limit, offset
			return []*models.User{newTestModelUser("u1"), newTestModelUser("u2")}, nil
		},
	}
	handler := NewUserHandler(mock)

	w := httptest.NewRecorder()
	handler.ListActiveUsers(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/users?limit=25&offset=50", nil))

	var resp ListUsersResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Users, 2)
	assert.Equal(t, 25, gotLimit)
	assert.Equal(t, 50, gotOffset)
}

func TestUserHandler_ListActiveUsers_BadParams(t *testing.T) {
	for _, query := range []string{"limit=0", "limit=101", "limit=abc", "offset=-1"} {
		t.Run(query, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewUserHandler(&MockUserService{}).ListActiveUsers(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/users?"+query, nil))
			AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
		})
	}
}

func TestUserHandler_AdminActions(t *testing.T) {
	var calls []string
	record := func(name string) func(ctx context.Context, id, actorID string) (*models.User, error) {
		return func(ctx context.Context, id, actorID string) (*models.User, error) {
			calls = append(calls, name+":"+id+":"+actorID)
			return newTestModelUser(id), nil
		}
	}
	mock := &MockUserService{
		ActivateFunc:   record("activate"),
		DeactivateFunc: record("deactivate"),
		UnlockFunc:     record("unlock"),
	}
	handler := NewUserHandler(mock)

	actions := map[string]http.HandlerFunc{
		"activate":   handler.Activate,
		"deactivate": handler.Deactivate,
		"unlock":     handler.Unlock,
	}
	for name, fn := range actions {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/users/"+testUserID+"/"+name, nil)
			req = WithAuthContext(req, "admin-1", "admin@example.com")
			req = WithChiRouteContext(req, map[string]string{"id": testUserID})
			w := httptest.NewRecorder()

			fn(w, req)

			var resp services.UserResponse
			AssertJSONResponse(t, w, http.StatusOK, &resp)
			assert.Equal(t, testUserID, resp.ID)
			assert.Contains(t, calls, name+":"+testUserID+":admin-1")
		})
	}
}

func TestUserHandler_AdminActions_Errors(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not a uuid", "user123", nil, http.StatusBadRequest, "bad_request"},
		{"not found", testUserID, models.ErrNotFound, http.StatusNotFound, "not_found"},
		{"internal", testUserID, errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockUserService{
				UnlockFunc: func(ctx context.Context, id, actorID string) (*models.User, error) {
					return nil, tt.err
				},
			}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/users/"+tt.id+"/unlock", nil)
			req = WithChiRouteContext(req, map[string]string{"id": tt.id})
			w := httptest.NewRecorder()

			NewUserHandler(mock).Unlock(w, req)

			AssertErrorResponse(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}
