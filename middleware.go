package secrets

import (
	"context"
	"errors"
	"net/http"

	"github.com/panyam/secrets/internal/logutil"
)

type userContextKey struct{}

// Filter is one step of a request pipeline. It returns the request to pass
// on and true to continue, or false after it has written the response.
type Filter func(w http.ResponseWriter, r *http.Request) (*http.Request, bool)

// Chain runs filters in order before handler and stops at the first one
// that short-circuits.
func Chain(handler http.Handler, filters ...Filter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, f := range filters {
			next, ok := f(w, r)
			if !ok {
				return
			}
			r = next
		}
		handler.ServeHTTP(w, r)
	})
}

// UserFromContext returns the user attached by ExtractUser or EnsureUser
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userContextKey{}).(*User)
	return u
}

type Middleware struct {
	Sessions *Sessions

	// Where anonymous users are sent by EnsureUser.  Defaults to "/login"
	LoginURL string
}

func (a *Middleware) EnsureReasonableDefaults() {
	if a.LoginURL == "" {
		a.LoginURL = "/login"
	}
}

// ExtractUser restores the logged in user, if any, and attaches it to the
// request. It never short-circuits except on a store failure.
func (a *Middleware) ExtractUser(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	user, err := a.Sessions.CurrentUser(r.Context())
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return r, true
		}
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).Msg("failed to restore session user")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return r, false
	}
	return r.WithContext(context.WithValue(r.Context(), userContextKey{}, user)), true
}

// EnsureUser is ExtractUser that redirects anonymous requests to LoginURL
func (a *Middleware) EnsureUser(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	a.EnsureReasonableDefaults()
	r, ok := a.ExtractUser(w, r)
	if !ok {
		return r, false
	}
	if UserFromContext(r.Context()) == nil {
		http.Redirect(w, r, a.LoginURL, http.StatusFound)
		return r, false
	}
	return r, true
}
