package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/bastion/internal/clock"
	"github.com/BradenHooton/bastion/internal/ratelimit"
	pkghttp "github.com/BradenHooton/bastion/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdmissionHandler(t *testing.T, strategy string, limit int, clk clock.Clock) (http.Handler, *int) {
	t.Helper()

	limiter, err := ratelimit.New(ratelimit.Config{Strategy: strategy, Limit: limit, Window: time.Minute})
	require.NoError(t, err)

	reached := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached++
		w.WriteHeader(http.StatusOK)
	})
	return Admission(limiter, clk, nil, slog.Default())(next), &reached
}

func requestFrom(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.RemoteAddr = ip + ":40000"
	return req
}

func TestAdmission_RejectsOverLimit(t *testing.T) {
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	handler, reached := newAdmissionHandler(t, ratelimit.StrategySliding, 3, clk)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFrom("203.0.113.7"))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, []string{"2", "1", "0"}[i], w.Header().Get("X-RateLimit-Remaining"))
		clk.Advance(time.Second)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("203.0.113.7"))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 3, *reached)
	assert.Equal(t, "57", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "rate_limit_exceeded", resp.Error)
}

func TestAdmission_ClientsAreIndependent(t *testing.T) {
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	handler, _ := newAdmissionHandler(t, ratelimit.StrategyFixed, 1, clk)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("203.0.113.7"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("198.51.100.1"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdmission_WindowSlides(t *testing.T) {
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	handler, _ := newAdmissionHandler(t, ratelimit.StrategySliding, 1, clk)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("203.0.113.7"))
	assert.Equal(t, http.StatusOK, w.Code)

	clk.Advance(59 * time.Second)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	clk.Advance(time.Second)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("203.0.113.7"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdmission_SpoofedForwardedForIsIgnored(t *testing.T) {
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	handler, _ := newAdmissionHandler(t, ratelimit.StrategySliding, 1, clk)

	for i, spoofed := range []string{"1.1.1.1", "2.2.2.2"} {
		req := requestFrom("203.0.113.7")
		req.Header.Set("X-Forwarded-For", spoofed)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if i == 0 {
			assert.Equal(t, http.StatusOK, w.Code)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, w.Code)
		}
	}
}
