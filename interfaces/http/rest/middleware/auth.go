package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"lifetree-backend/pkg/auth"
	"lifetree-backend/pkg/common"
)

// Authenticate validates bearer tokens on every request. A nil validator
// disables authentication entirely, which is the development default.
func Authenticate(validator *auth.TokenValidator, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := validator.Validate(r.Header.Get("Authorization"))
			if err != nil {
				logger.Debug("Rejected request token",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing token")
				return
			}

			ctx := auth.SetUser(r.Context(), claims)
			ctx = common.WithUserID(ctx, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
