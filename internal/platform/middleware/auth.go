package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "medledger/pkg/domain"
	"medledger/pkg/requestcontext"
)

// TokenValidator validates a bearer token issued by the external auth service.
type TokenValidator interface {
	ValidateToken(tokenString string) (*StaffClaims, error)
}

// StaffClaims is the subset of token claims the core needs: who is acting.
type StaffClaims struct {
	StaffID id.StaffID
}

// GetStaffID retrieves the authenticated staff member from the context.
// Returns the zero value when RequireAuth did not run.
func GetStaffID(r *http.Request) id.StaffID {
	return requestcontext.StaffID(r.Context())
}

// RequireAuth validates the Authorization bearer token and stashes the acting
// staff ID in the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				unauthorized(w, "Missing bearer token")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := requestcontext.WithStaffID(r.Context(), claims.StaffID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
