package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/bastion/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	err error
}

func (f fakeChecker) HealthCheck(ctx context.Context) error {
	return f.err
}

func TestHealthHandler_Check(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   map[string]string
	}{
		{"database up", nil, http.StatusOK, map[string]string{"status": "healthy", "database": "up"}},
		{"database down", errors.New("connection refused"), http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "down"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewHealthHandler(fakeChecker{err: tt.err}).Check(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			var body map[string]string
			AssertJSONResponse(t, w, tt.wantStatus, &body)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestHealthHandler_SQLite(t *testing.T) {
	db, err := database.OpenSQLite(":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	var checker database.HealthChecker = db
	w := httptest.NewRecorder()
	NewHealthHandler(checker).Check(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, db.Close())
	w = httptest.NewRecorder()
	NewHealthHandler(checker).Check(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
