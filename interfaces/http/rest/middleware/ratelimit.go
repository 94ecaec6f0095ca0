package middleware

import (
	"net"
	"net/http"

	"go.uber.org/zap"

	"lifetree-backend/pkg/auth"
	"lifetree-backend/pkg/common"
)

// ExpandLimiter throttles expansion starts. Authenticated callers are
// keyed by user ID, anonymous ones by remote address. Expansions fan out
// into generation calls, so this guards the expensive path only; reads
// stay unthrottled.
type ExpandLimiter struct {
	ips    *auth.IPRateLimiter
	users  *auth.UserRateLimiter
	logger *zap.Logger
}

// NewExpandLimiter creates a limiter admitting requestsPerMinute
// expansions per caller.
func NewExpandLimiter(requestsPerMinute int, logger *zap.Logger) *ExpandLimiter {
	return &ExpandLimiter{
		ips:    auth.NewIPRateLimiter(requestsPerMinute),
		users:  auth.NewUserRateLimiter(requestsPerMinute),
		logger: logger,
	}
}

// Middleware rejects callers over their expansion budget with a 429.
func (l *ExpandLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			allowed bool
			err     error
			key     string
		)
		if claims := auth.UserFrom(r.Context()); claims != nil {
			key = claims.UserID
			allowed, err = l.users.AllowUser(r.Context(), claims.UserID)
		} else {
			key = clientIP(r)
			allowed, err = l.ips.AllowIP(r.Context(), key)
		}
		if err != nil {
			// A limiter failure admits the request.
			l.logger.Error("Rate limiter failed", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			l.logger.Warn("Expansion rate limit hit", zap.String("caller", key))
			w.Header().Set("Retry-After", "60")
			common.RespondError(w, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "expansion rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Stop releases the limiter cleanup goroutines.
func (l *ExpandLimiter) Stop() {
	l.ips.Stop()
	l.users.Stop()
}

// clientIP strips the port from the remote address. The RealIP middleware
// has already substituted proxy headers where present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
