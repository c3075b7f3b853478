package oauth2

import (
	"context"
	"net/http"

	"github.com/panyam/secrets/internal/logutil"
	"golang.org/x/oauth2"
)

type BaseOAuth2 struct {
	ClientId     string
	ClientSecret string
	CallbackURL  string
	HandleUser   HandleUserFunc

	// Called when the callback fails.  Defaults to a redirect to AuthFailureURL
	HandleFailure  HandleFailureFunc
	AuthFailureURL string

	// Used for the token exchange and profile requests when set
	HTTPClient *http.Client

	oauthConfig oauth2.Config
	state       *StateSigner
}

func NewBaseOAuth2(clientId, clientSecret, callbackUrl, stateSecret string) *BaseOAuth2 {
	return &BaseOAuth2{
		ClientId:       clientId,
		ClientSecret:   clientSecret,
		CallbackURL:    callbackUrl,
		AuthFailureURL: "/login",
		state:          NewStateSigner(stateSecret),
		oauthConfig: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  callbackUrl,
		},
	}
}

// SetOAuthEndpoint overrides the provider's authorization and token URLs
func (b *BaseOAuth2) SetOAuthEndpoint(endpoint oauth2.Endpoint) {
	b.oauthConfig.Endpoint = endpoint
}

func (b *BaseOAuth2) SetHTTPClient(client *http.Client) {
	b.HTTPClient = client
}

// Config returns a copy of the oauth2 client configuration
func (b *BaseOAuth2) Config() oauth2.Config {
	return b.oauthConfig
}

// HandleLogin starts the authorization code flow
func (b *BaseOAuth2) HandleLogin(w http.ResponseWriter, r *http.Request) {
	OauthRedirector(&b.oauthConfig, b.state)(w, r)
}

func (b *BaseOAuth2) clientContext(ctx context.Context) context.Context {
	if b.HTTPClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, b.HTTPClient)
	}
	return ctx
}

// exchange checks the callback state and trades the code for a token
func (b *BaseOAuth2) exchange(w http.ResponseWriter, r *http.Request) (*oauth2.Token, error) {
	err := b.state.Check(r)
	b.state.Clear(w)
	if err != nil {
		return nil, err
	}
	if reason := r.FormValue("error"); reason != "" {
		return nil, providerError("authorization denied: " + reason)
	}
	code := r.FormValue("code")
	if code == "" {
		return nil, providerError("missing authorization code")
	}
	token, err := b.oauthConfig.Exchange(b.clientContext(r.Context()), code)
	if err != nil {
		return nil, wrapProviderError("code exchange failed", err)
	}
	return token, nil
}

func (b *BaseOAuth2) fail(err error, w http.ResponseWriter, r *http.Request) {
	log := logutil.GetOrDefault(r.Context())
	log.Warn().Err(err).Msg("oauth callback failed")
	if b.HandleFailure != nil {
		b.HandleFailure(err, w, r)
		return
	}
	http.Redirect(w, r, b.AuthFailureURL, http.StatusFound)
}
