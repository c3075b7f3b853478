package oauth2

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const (
	StateCookieName = "oauthstate"
	StateTTL        = 10 * time.Minute
)

var (
	// ErrProviderAuth is returned when the provider rejects or cannot complete a login
	ErrProviderAuth = errors.New("provider authentication failed")

	// ErrInvalidState is returned when the callback state does not match the issued one
	ErrInvalidState = fmt.Errorf("%w: invalid oauth state", ErrProviderAuth)
)

// Profile is the part of the provider's user info used to resolve a local user
type Profile struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// HandleUserFunc is called after a successful callback. It owns the response.
type HandleUserFunc func(provider string, token *oauth2.Token, profile *Profile, w http.ResponseWriter, r *http.Request)

// HandleFailureFunc is called when any step of the callback fails. It owns the response.
type HandleFailureFunc func(err error, w http.ResponseWriter, r *http.Request)

// StateSigner issues and checks the state parameter of the authorization
// request. The state is a short lived HS256 token that is also kept in a
// cookie, so the callback can check both its origin and its freshness.
type StateSigner struct {
	key []byte
}

func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{key: []byte(secret)}
}

// Issue creates a new state and sets it as the state cookie
func (s *StateSigner) Issue(w http.ResponseWriter) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        base64.RawURLEncoding.EncodeToString(b),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(StateTTL)),
	}
	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(StateTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return state, nil
}

// Check verifies the state of a callback request against the state cookie
func (s *StateSigner) Check(r *http.Request) error {
	cookie, err := r.Cookie(StateCookieName)
	if err != nil || cookie.Value == "" {
		return fmt.Errorf("%w: missing state cookie", ErrInvalidState)
	}
	if r.FormValue("state") != cookie.Value {
		return fmt.Errorf("%w: state does not match cookie", ErrInvalidState)
	}
	_, err = jwt.ParseWithClaims(cookie.Value, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	return nil
}

// Clear removes the state cookie; a state is good for one callback only
func (s *StateSigner) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// OauthRedirector sends the browser to the provider's consent page with a fresh state
func OauthRedirector(oauthConfig *oauth2.Config, signer *StateSigner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := signer.Issue(w)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, oauthConfig.AuthCodeURL(state), http.StatusFound)
	}
}
