package admin

import (
	"log/slog"
	"net/http"

	request "amicable/pkg/platform/middleware/request"
	"amicable/pkg/requestcontext"
)

// RequireAdmin allows only administrative principals through. It must run
// after auth.RequireAuth.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, ok := requestcontext.Principal(ctx)
			if !ok || !principal.IsAdmin {
				logger.WarnContext(ctx, "admin route denied",
					"user_id", principal.UserID,
					"request_id", request.GetRequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"administrator role required"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
