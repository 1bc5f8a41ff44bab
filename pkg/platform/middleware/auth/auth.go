package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"amicable/pkg/domain"
	dErrors "amicable/pkg/domain-errors"
	request "amicable/pkg/platform/middleware/request"
	"amicable/pkg/requestcontext"
)

// Resolver turns an opaque bearer credential into a caller identity.
type Resolver interface {
	Resolve(ctx context.Context, token string) (domain.Principal, error)
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireAuth rejects requests without a bearer token that resolves to an
// active principal. The principal is stored in the request context.
func RequireAuth(resolver Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := request.GetRequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			principal, err := resolver.Resolve(ctx, token)
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
					logger.WarnContext(ctx, "unauthorized access - invalid token",
						"error", err,
						"request_id", requestID,
					)
					writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
					return
				}
				logger.ErrorContext(ctx, "failed to resolve identity",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusServiceUnavailable, "service_unavailable", "Identity service unavailable")
				return
			}

			if !principal.IsActive {
				logger.WarnContext(ctx, "unauthorized access - inactive user",
					"user_id", principal.UserID,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Inactive user")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithPrincipal(ctx, principal)))
		})
	}
}
