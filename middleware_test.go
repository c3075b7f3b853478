package secrets_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/panyam/secrets"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testKey struct{}

func TestChain(t *testing.T) {
	var order []string
	tag := func(name string) secrets.Filter {
		return func(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
			order = append(order, name)
			return r.WithContext(context.WithValue(r.Context(), testKey{}, name)), true
		}
	}
	stop := func(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
		order = append(order, "stop")
		w.WriteHeader(http.StatusTeapot)
		return r, false
	}
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler:"+r.Context().Value(testKey{}).(string))
	})

	apitest.Handler(secrets.Chain(final, tag("a"), tag("b"))).
		Get("/").Expect(t).Status(http.StatusOK).End()
	assert.Equal(t, []string{"a", "b", "handler:b"}, order)

	order = nil
	apitest.Handler(secrets.Chain(final, tag("a"), stop, tag("b"))).
		Get("/").Expect(t).Status(http.StatusTeapot).End()
	assert.Equal(t, []string{"a", "stop"}, order)
}

// protected serves the user's name behind the given filter
func protected(m *secrets.Middleware, filter secrets.Filter) http.Handler {
	h := secrets.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := secrets.UserFromContext(r.Context()); user != nil {
			w.Write([]byte(user.Username))
			return
		}
		w.Write([]byte("anonymous"))
	}), filter)
	return m.Sessions.Manager.LoadAndSave(h)
}

func TestEnsureUserRedirectsAnonymous(t *testing.T) {
	sessions := secrets.NewSessions(secrets.NewSessionManager(nil, time.Hour, false), newTestStore(t))
	m := &secrets.Middleware{Sessions: sessions}

	apitest.Handler(protected(m, m.EnsureUser)).
		Get("/secrets").
		Expect(t).
		Status(http.StatusFound).
		Header("Location", "/login").
		End()

	custom := &secrets.Middleware{Sessions: sessions, LoginURL: "/signin"}
	apitest.Handler(protected(custom, custom.EnsureUser)).
		Get("/secrets").
		Expect(t).
		Status(http.StatusFound).
		Header("Location", "/signin").
		End()
}

func TestExtractUserAnonymous(t *testing.T) {
	sessions := secrets.NewSessions(secrets.NewSessionManager(nil, time.Hour, false), newTestStore(t))
	m := &secrets.Middleware{Sessions: sessions}
	apitest.Handler(protected(m, m.ExtractUser)).
		Get("/").Expect(t).Status(http.StatusOK).Body("anonymous").End()
}

func TestExtractUserAttachesUser(t *testing.T) {
	store := newTestStore(t)
	alice := createLocalUser(t, store, "alice")
	sessions := secrets.NewSessions(secrets.NewSessionManager(nil, time.Hour, false), store)
	m := &secrets.Middleware{Sessions: sessions}

	rec := inSession(t, sessions.Manager, nil, func(ctx context.Context) {
		require.NoError(t, sessions.Login(ctx, alice))
	})
	cookie := sessionCookieFrom(rec)
	require.NotNil(t, cookie)

	for _, filter := range []secrets.Filter{m.ExtractUser, m.EnsureUser} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookie)
		out := httptest.NewRecorder()
		protected(m, filter).ServeHTTP(out, req)
		assert.Equal(t, http.StatusOK, out.Code)
		assert.Equal(t, "alice", out.Body.String())
	}
}

func TestExtractUserStoreFailure(t *testing.T) {
	sessions := secrets.NewSessions(secrets.NewSessionManager(nil, time.Hour, false), brokenStore{})
	m := &secrets.Middleware{Sessions: sessions}

	rec := inSession(t, sessions.Manager, nil, func(ctx context.Context) {
		sessions.Manager.Put(ctx, sessions.UserParamName, "some-id")
	})
	cookie := sessionCookieFrom(rec)
	require.NotNil(t, cookie)

	apitest.Handler(protected(m, m.EnsureUser)).
		Get("/").
		Cookie(cookie.Name, cookie.Value).
		Expect(t).
		Status(http.StatusInternalServerError).
		End()
}
