package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	logpkg "github.com/campuskit/access-api/internal/logger"
	"github.com/campuskit/access-api/internal/request"
	"github.com/campuskit/access-api/internal/token"
	"go.uber.org/zap"
)

// Auth creates authentication middleware that verifies bearer tokens and
// places the normalized claims in the request context. The token carries the
// whole claim set, so no lookup of any kind happens here.
func Auth(signer *token.Signer, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			claims, err := signer.Parse(parts[1])
			if err != nil {
				code := token.CodeOf(err)
				logger.Warn("token_verification_failed",
					zap.String("code", string(code)),
					zap.String("error", logpkg.SanitizeError(err)),
				)
				if code == token.ErrCodeExpired {
					respondError(w, http.StatusUnauthorized, "Token expired")
				} else {
					respondError(w, http.StatusUnauthorized, "Invalid token")
				}
				return
			}

			ctx := request.WithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}

	_ = json.NewEncoder(w).Encode(response)
}
