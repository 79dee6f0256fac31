package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/BradenHooton/bastion/internal/database"
	pkghttp "github.com/BradenHooton/bastion/pkg/http"
)

// HealthHandler reports whether the backing database answers
type HealthHandler struct {
	db database.HealthChecker
}

func NewHealthHandler(db database.HealthChecker) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check answers 200 when the database ping succeeds and 503 otherwise
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.HealthCheck(ctx); err != nil {
		pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "down"})
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "up"})
}
