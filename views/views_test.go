package views

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPages(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	tests := []struct {
		name     string
		data     *Page
		contains []string
	}{
		{name: Home, data: &Page{}, contains: []string{"Register", "Login"}},
		{name: Home, data: &Page{LoggedIn: true}, contains: []string{"See Secrets", "Log Out"}},
		{name: Login, data: &Page{Error: "Invalid username or password", GoogleEnabled: true}, contains: []string{"Invalid username or password", "/auth/google"}},
		{name: Register, data: &Page{Username: "alice@example.com"}, contains: []string{`value="alice@example.com"`}},
		{name: Secrets, data: &Page{Secrets: []string{"s1", "<b>s2</b>"}}, contains: []string{"s1", "&lt;b&gt;s2&lt;/b&gt;"}},
		{name: Secrets, data: &Page{}, contains: []string{"Nobody has shared a secret yet."}},
		{name: Submit, data: nil, contains: []string{`name="secret"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			require.NoError(t, v.Render(rr, http.StatusOK, tt.name, tt.data))
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
			for _, c := range tt.contains {
				assert.Contains(t, rr.Body.String(), c)
			}
		})
	}
}

func TestRenderUnknownView(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	assert.Error(t, v.Render(rr, http.StatusOK, "nope", nil))
	assert.Empty(t, rr.Body.String())
}

func TestRenderStatus(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	require.NoError(t, v.Render(rr, http.StatusUnauthorized, Login, &Page{Error: "nope"}))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestStatic(t *testing.T) {
	rr := httptest.NewRecorder()
	Static().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/styles.css", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), ".jumbotron")
}
