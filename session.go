package secrets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/panyam/secrets/internal/logutil"
)

const flashKey = "flash"

// Sessions keeps the logged in user reference in an scs session.
//
// Only the user ID is stored. The full user is re-read from Users on every
// request, and a reference to a user that no longer exists is dropped.
type Sessions struct {
	Manager *scs.SessionManager
	Users   UserStore

	// Name of the session variable holding the user ID.  Defaults to "loggedInUserId"
	UserParamName string
}

// NewSessionManager builds an scs manager with the cookie settings used by the app.
// A nil store keeps sessions in memory.
func NewSessionManager(store scs.Store, lifetime time.Duration, secureCookie bool) *scs.SessionManager {
	m := scs.New()
	if store != nil {
		m.Store = store
	}
	if lifetime > 0 {
		m.Lifetime = lifetime
	}
	m.IdleTimeout = 0
	m.Cookie.Name = "secrets_session"
	m.Cookie.HttpOnly = true
	m.Cookie.Path = "/"
	m.Cookie.SameSite = http.SameSiteLaxMode
	m.Cookie.Secure = secureCookie
	m.ErrorFunc = func(w http.ResponseWriter, r *http.Request, err error) {
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).Msg("session store failure")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
	return m
}

func NewSessions(manager *scs.SessionManager, users UserStore) *Sessions {
	return (&Sessions{Manager: manager, Users: users}).EnsureDefaults()
}

func (s *Sessions) EnsureDefaults() *Sessions {
	if s.UserParamName == "" {
		s.UserParamName = "loggedInUserId"
	}
	return s
}

// Login moves the session to Authenticated(user). The token is renewed
// first so a pre-login session id is never reused.
func (s *Sessions) Login(ctx context.Context, user *User) error {
	if user == nil || user.ID == "" {
		return fmt.Errorf("cannot log in an empty user")
	}
	if err := s.Manager.RenewToken(ctx); err != nil {
		return upstream(err)
	}
	s.Manager.Put(ctx, s.UserParamName, user.ID)
	return nil
}

// Logout destroys the session
func (s *Sessions) Logout(ctx context.Context) error {
	if err := s.Manager.Destroy(ctx); err != nil {
		return upstream(err)
	}
	return nil
}

// LoggedInUserId returns the user reference stored in the session, or ""
func (s *Sessions) LoggedInUserId(ctx context.Context) string {
	return s.Manager.GetString(ctx, s.UserParamName)
}

// CurrentUser restores the logged in user from the session reference.
func (s *Sessions) CurrentUser(ctx context.Context) (*User, error) {
	userId := s.LoggedInUserId(ctx)
	if userId == "" {
		return nil, ErrUnauthenticated
	}
	user, err := s.Users.GetUserById(ctx, userId)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// dangling reference, the session is no longer valid
			s.Manager.Remove(ctx, s.UserParamName)
			return nil, ErrUnauthenticated
		}
		return nil, upstream(err)
	}
	return user, nil
}

// Flash stores a one-shot message for the next rendered page
func (s *Sessions) Flash(ctx context.Context, message string) {
	s.Manager.Put(ctx, flashKey, message)
}

// PopFlash returns and clears the pending flash message
func (s *Sessions) PopFlash(ctx context.Context) string {
	return s.Manager.PopString(ctx, flashKey)
}
