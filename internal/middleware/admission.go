package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/BradenHooton/bastion/internal/clock"
	"github.com/BradenHooton/bastion/internal/ratelimit"
	pkghttp "github.com/BradenHooton/bastion/pkg/http"
)

// Admission runs every request through limiter, keyed by client IP.
// Rejected requests get 429 with Retry-After and never reach next.
func Admission(limiter ratelimit.Limiter, clk clock.Clock, ipConfig *pkghttp.IPConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := pkghttp.ExtractClientIP(r, ipConfig)
			decision := limiter.Admit(clientIP, clk.Now())

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if !decision.Allowed {
				logger.Debug("request rejected by rate limiter",
					slog.String("client_ip", clientIP),
					slog.String("path", r.URL.Path),
					slog.Duration("retry_after", decision.RetryAfter))
				pkghttp.WriteTooManyRequests(w, "Too many requests. Please try again later.", decision.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
