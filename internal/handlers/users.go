package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/BradenHooton/bastion/internal/auth"
	"github.com/BradenHooton/bastion/internal/models"
	"github.com/BradenHooton/bastion/internal/services"
	pkghttp "github.com/BradenHooton/bastion/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// UserService defines the interface for user business logic
type UserService interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListActiveUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	Activate(ctx context.Context, id, actorID string) (*models.User, error)
	Deactivate(ctx context.Context, id, actorID string) (*models.User, error)
	Unlock(ctx context.Context, id, actorID string) (*models.User, error)
}

// UserHandler handles profile and admin user requests
type UserHandler struct {
	service UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// ListUsersResponse represents a list of users
type ListUsersResponse struct {
	Users []*services.UserResponse `json:"users"`
	Total int                      `json:"total"`
}

// Me returns the profile of the authenticated user
//
// @Summary Current user profile
// @Security BearerAuth
// @Produce json
// @Success 200 {object} services.UserResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	user, err := h.service.GetUserByID(r.Context(), claims.UserID())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteUnauthorized(w, "Unauthorized")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, services.NewUserResponse(user))
}

// ListActiveUsers lists active accounts
//
// @Summary List active users
// @Security BearerAuth
// @Param limit query int false "Limit (default 10)" default(10)
// @Param offset query int false "Offset (default 0)" default(0)
// @Produce json
// @Success 200 {object} ListUsersResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /admin/users [get]
func (h *UserHandler) ListActiveUsers(w http.ResponseWriter, r *http.Request) {
	limit := 10
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if err := parseIntParam(l, &limit, 1, 100); err != nil {
			pkghttp.WriteBadRequest(w, "Invalid limit parameter")
			return
		}
	}

	if o := r.URL.Query().Get("offset"); o != "" {
		if err := parseIntParam(o, &offset, 0, 10000); err != nil {
			pkghttp.WriteBadRequest(w, "Invalid offset parameter")
			return
		}
	}

	users, err := h.service.ListActiveUsers(r.Context(), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	response := &ListUsersResponse{
		Users: make([]*services.UserResponse, len(users)),
		Total: len(users),
	}
	for i, user := range users {
		response.Users[i] = services.NewUserResponse(user)
	}

	pkghttp.WriteJSON(w, http.StatusOK, response)
}

// Activate sets the active flag on an account
// @Router /admin/users/{id}/activate [post]
func (h *UserHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.adminAction(w, r, h.service.Activate)
}

// Deactivate clears the active flag on an account
// @Router /admin/users/{id}/deactivate [post]
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.adminAction(w, r, h.service.Deactivate)
}

// Unlock clears the failed-login counter and any lock
// @Router /admin/users/{id}/unlock [post]
func (h *UserHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	h.adminAction(w, r, h.service.Unlock)
}

func (h *UserHandler) adminAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, id, actorID string) (*models.User, error)) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}
	if _, err := uuid.Parse(userID); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid user ID")
		return
	}

	var actorID string
	if claims := auth.GetUserFromContext(r); claims != nil {
		actorID = claims.UserID()
	}

	user, err := action(r.Context(), userID, actorID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "User not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, services.NewUserResponse(user))
}

// parseIntParam parses value into dest when it lies within [min, max]
func parseIntParam(value string, dest *int, min, max int) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	if n < min || n > max {
		return errors.New("parameter out of range")
	}
	*dest = n
	return nil
}
