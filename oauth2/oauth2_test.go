package oauth2_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/panyam/secrets/oauth2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	oauth2lib "golang.org/x/oauth2"
)

const stateSecret = "test-state-secret"

// mockOAuthServer stands in for Google's token and userinfo endpoints
type mockOAuthServer struct {
	server        *httptest.Server
	tokenEndpoint string

	userInfoResponse map[string]any
	tokenError       bool
	userInfoError    bool
	lastCode         string
}

func newMockOAuthServer() *mockOAuthServer {
	mock := &mockOAuthServer{
		userInfoResponse: map[string]any{
			"id":             "g-123",
			"email":          "user@gmail.com",
			"verified_email": true,
			"name":           "Google User",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if mock.tokenError {
			http.Error(w, "token exchange failed", http.StatusBadRequest)
			return
		}
		r.ParseForm()
		mock.lastCode = r.PostFormValue("code")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "mock_access_token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/oauth2/v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if mock.userInfoError || r.Header.Get("Authorization") != "Bearer mock_access_token" {
			http.Error(w, `{"error":{"code":401,"message":"unauthorized"}}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mock.userInfoResponse)
	})

	mock.server = httptest.NewServer(mux)
	mock.tokenEndpoint = mock.server.URL + "/token"
	return mock
}

func (m *mockOAuthServer) Close() {
	m.server.Close()
}

func stateCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == oauth2.StateCookieName {
			return c
		}
	}
	return nil
}

func TestOauthRedirector(t *testing.T) {
	config := &oauth2lib.Config{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		RedirectURL:  "http://localhost:8080/auth/google/callback",
		Scopes:       []string{"email", "profile"},
		Endpoint: oauth2lib.Endpoint{
			AuthURL:  "https://provider.example.com/auth",
			TokenURL: "https://provider.example.com/token",
		},
	}
	redirector := oauth2.OauthRedirector(config, oauth2.NewStateSigner(stateSecret))

	req := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
	rr := httptest.NewRecorder()
	redirector(rr, req)

	require.Equal(t, http.StatusFound, rr.Code)
	location, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "provider.example.com", location.Host)

	query := location.Query()
	assert.Equal(t, "test-client-id", query.Get("client_id"))
	assert.Equal(t, "http://localhost:8080/auth/google/callback", query.Get("redirect_uri"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "email profile", query.Get("scope"))

	cookie := stateCookie(rr)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, query.Get("state"), cookie.Value)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(cookie.Value, claims, func(*jwt.Token) (any, error) { return []byte(stateSecret), nil })
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(oauth2.StateTTL), claims.ExpiresAt.Time, 5*time.Second)

	// every redirect gets a fresh state
	rr2 := httptest.NewRecorder()
	redirector(rr2, httptest.NewRequest(http.MethodGet, "/auth/google", nil))
	assert.NotEqual(t, cookie.Value, stateCookie(rr2).Value)
}

func TestGoogleScopes(t *testing.T) {
	g := oauth2.NewGoogleOAuth2("id", "secret", "http://localhost/cb", stateSecret, nil)
	cfg := g.Config()
	assert.Equal(t, []string{
		"openid",
		"https://www.googleapis.com/auth/userinfo.email",
		"https://www.googleapis.com/auth/userinfo.profile",
	}, cfg.Scopes)
	assert.Equal(t, "https://accounts.google.com/o/oauth2/auth", cfg.Endpoint.AuthURL)
}

func TestGoogleOAuth2Callback(t *testing.T) {
	mock := newMockOAuthServer()
	defer mock.Close()

	var handledProvider string
	var handledProfile *oauth2.Profile
	var handledCalled bool
	var failure error

	googleAuth := oauth2.NewGoogleOAuth2(
		"test-client-id",
		"test-client-secret",
		"http://localhost:8080/auth/google/callback",
		stateSecret,
		func(provider string, token *oauth2lib.Token, profile *oauth2.Profile, w http.ResponseWriter, r *http.Request) {
			handledCalled = true
			handledProvider = provider
			handledProfile = profile
			w.WriteHeader(http.StatusOK)
		},
	)
	googleAuth.UserInfoEndpoint = mock.server.URL + "/"
	googleAuth.SetHTTPClient(mock.server.Client())
	googleAuth.SetOAuthEndpoint(oauth2lib.Endpoint{
		AuthURL:   mock.server.URL + "/auth",
		TokenURL:  mock.tokenEndpoint,
		AuthStyle: oauth2lib.AuthStyleInParams,
	})

	reset := func() {
		handledCalled = false
		handledProvider = ""
		handledProfile = nil
		failure = nil
	}

	// issue runs the login step and returns the state it produced
	issue := func(t *testing.T) string {
		rr := httptest.NewRecorder()
		googleAuth.HandleLogin(rr, httptest.NewRequest(http.MethodGet, "/auth/google", nil))
		require.Equal(t, http.StatusFound, rr.Code)
		c := stateCookie(rr)
		require.NotNil(t, c)
		return c.Value
	}

	callback := func(query url.Values, cookie string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?"+query.Encode(), nil)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: oauth2.StateCookieName, Value: cookie})
		}
		rr := httptest.NewRecorder()
		googleAuth.HandleCallback(rr, req)
		return rr
	}

	t.Run("redirects to failure url without state cookie", func(t *testing.T) {
		reset()
		state := issue(t)
		rr := callback(url.Values{"code": {"c"}, "state": {state}}, "")

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/login", rr.Header().Get("Location"))
		assert.False(t, handledCalled)
	})

	t.Run("rejects mismatched state", func(t *testing.T) {
		reset()
		state := issue(t)
		rr := callback(url.Values{"code": {"c"}, "state": {"other"}}, state)

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.False(t, handledCalled)
	})

	t.Run("rejects unsigned state", func(t *testing.T) {
		reset()
		rr := callback(url.Values{"code": {"c"}, "state": {"forged"}}, "forged")

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.False(t, handledCalled)
	})

	t.Run("rejects expired state", func(t *testing.T) {
		reset()
		googleAuth.HandleFailure = func(err error, w http.ResponseWriter, r *http.Request) {
			failure = err
			w.WriteHeader(http.StatusTeapot)
		}
		defer func() { googleAuth.HandleFailure = nil }()

		past := time.Now().Add(-time.Hour)
		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ID:        "old",
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(oauth2.StateTTL)),
		}).SignedString([]byte(stateSecret))
		require.NoError(t, err)

		rr := callback(url.Values{"code": {"c"}, "state": {expired}}, expired)
		assert.Equal(t, http.StatusTeapot, rr.Code)
		assert.ErrorIs(t, failure, oauth2.ErrInvalidState)
		assert.ErrorIs(t, failure, oauth2.ErrProviderAuth)
		assert.False(t, handledCalled)
	})

	t.Run("successful callback flow", func(t *testing.T) {
		reset()
		state := issue(t)
		rr := callback(url.Values{"code": {"valid_code"}, "state": {state}}, state)

		require.True(t, handledCalled)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "google", handledProvider)
		assert.Equal(t, "valid_code", mock.lastCode)
		assert.Equal(t, &oauth2.Profile{Subject: "g-123", Email: "user@gmail.com", Name: "Google User"}, handledProfile)

		// the state cookie is cleared after use
		c := stateCookie(rr)
		require.NotNil(t, c)
		assert.Equal(t, -1, c.MaxAge)
	})

	t.Run("provider error parameter", func(t *testing.T) {
		reset()
		state := issue(t)
		rr := callback(url.Values{"error": {"access_denied"}, "state": {state}}, state)

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.False(t, handledCalled)
	})

	t.Run("redirects on token exchange failure", func(t *testing.T) {
		reset()
		mock.tokenError = true
		defer func() { mock.tokenError = false }()

		state := issue(t)
		rr := callback(url.Values{"code": {"bad_code"}, "state": {state}}, state)
		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/login", rr.Header().Get("Location"))
		assert.False(t, handledCalled)
	})

	t.Run("redirects on user info failure", func(t *testing.T) {
		reset()
		mock.userInfoError = true
		defer func() { mock.userInfoError = false }()

		state := issue(t)
		rr := callback(url.Values{"code": {"valid_code"}, "state": {state}}, state)
		assert.Equal(t, http.StatusFound, rr.Code)
		assert.False(t, handledCalled)
	})

	t.Run("rejects unverified email", func(t *testing.T) {
		reset()
		original := mock.userInfoResponse
		mock.userInfoResponse = map[string]any{"id": "g-9", "email": "x@gmail.com", "verified_email": false}
		defer func() { mock.userInfoResponse = original }()

		googleAuth.HandleFailure = func(err error, w http.ResponseWriter, r *http.Request) {
			failure = err
			w.WriteHeader(http.StatusForbidden)
		}
		defer func() { googleAuth.HandleFailure = nil }()

		state := issue(t)
		rr := callback(url.Values{"code": {"valid_code"}, "state": {state}}, state)
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.True(t, errors.Is(failure, oauth2.ErrProviderAuth))
		assert.False(t, handledCalled)
	})

	t.Run("rejects missing subject", func(t *testing.T) {
		reset()
		original := mock.userInfoResponse
		mock.userInfoResponse = map[string]any{"email": "x@gmail.com", "verified_email": true}
		defer func() { mock.userInfoResponse = original }()

		state := issue(t)
		rr := callback(url.Values{"code": {"valid_code"}, "state": {state}}, state)
		assert.Equal(t, http.StatusFound, rr.Code)
		assert.False(t, handledCalled)
	})
}
