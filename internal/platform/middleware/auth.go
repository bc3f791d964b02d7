package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"basera/internal/platform/token"
	id "basera/pkg/domain"
	"basera/pkg/requestcontext"
)

// TokenVerifier validates bearer tokens into principals.
type TokenVerifier interface {
	Verify(tokenString string) (*token.Principal, error)
}

// RequireAuth rejects requests without a valid bearer token and injects the
// principal into the request context.
func RequireAuth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeUnauthorized(w)
				return
			}

			principal, err := verifier.Verify(raw)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", requestID,
					"error", err,
				)
				writeUnauthorized(w)
				return
			}

			ctx = requestcontext.WithUserID(ctx, principal.UserID)
			ctx = requestcontext.WithRole(ctx, principal.Role)
			ctx = requestcontext.WithPermissions(ctx, principal.Permissions)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission rejects authenticated requests whose principal lacks the
// given capability. Must run after RequireAuth.
func RequirePermission(perm id.Permission, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if !requestcontext.Permissions(ctx).Has(perm) {
				logger.WarnContext(ctx, "forbidden - missing permission",
					"request_id", requestcontext.RequestID(ctx),
					"user_id", requestcontext.UserID(ctx),
					"permission", string(perm),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"missing required permission"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Invalid or expired token"}`))
}
