package testutil

import (
	"net/http"

	"amicable/pkg/domain"
	"amicable/pkg/requestcontext"
)

// WithPrincipal attaches p the way auth.RequireAuth does, for tests that
// mount a handler without the auth middleware.
func WithPrincipal(req *http.Request, p domain.Principal) *http.Request {
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), p))
}

func WithDriver(req *http.Request, userID domain.UserID, email string) *http.Request {
	return WithPrincipal(req, domain.Principal{UserID: userID, Email: email, IsActive: true})
}

func WithAdmin(req *http.Request, userID domain.UserID) *http.Request {
	return WithPrincipal(req, domain.Principal{UserID: userID, Email: "admin@example.com", IsActive: true, IsAdmin: true})
}
