package oauth2

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const ProviderGoogle = "google"

type GoogleOAuth2 struct {
	*BaseOAuth2

	// Base URL of the userinfo API, for tests.  Empty uses Google's
	UserInfoEndpoint string
}

func NewGoogleOAuth2(clientId, clientSecret, callbackUrl, stateSecret string, handleUser HandleUserFunc) *GoogleOAuth2 {
	out := &GoogleOAuth2{
		BaseOAuth2: NewBaseOAuth2(clientId, clientSecret, callbackUrl, stateSecret),
	}
	out.HandleUser = handleUser
	out.oauthConfig.Endpoint = google.Endpoint
	out.oauthConfig.Scopes = []string{
		googleoauth2.OpenIDScope,
		googleoauth2.UserinfoEmailScope,
		googleoauth2.UserinfoProfileScope,
	}
	return out
}

// HandleCallback completes the login started by HandleLogin
func (g *GoogleOAuth2) HandleCallback(w http.ResponseWriter, r *http.Request) {
	token, err := g.exchange(w, r)
	if err != nil {
		g.fail(err, w, r)
		return
	}
	profile, err := g.fetchProfile(r.Context(), token)
	if err != nil {
		g.fail(err, w, r)
		return
	}
	g.HandleUser(ProviderGoogle, token, profile, w, r)
}

func (g *GoogleOAuth2) fetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	ctx = g.clientContext(ctx)
	opts := []option.ClientOption{option.WithHTTPClient(g.oauthConfig.Client(ctx, token))}
	if g.UserInfoEndpoint != "" {
		opts = append(opts, option.WithEndpoint(g.UserInfoEndpoint))
	}
	svc, err := googleoauth2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating userinfo client: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, wrapProviderError("fetching user info failed", err)
	}
	if info.Id == "" {
		return nil, providerError("user info has no subject")
	}
	if info.Email == "" {
		return nil, providerError("user info has no email")
	}
	if info.VerifiedEmail != nil && !*info.VerifiedEmail {
		return nil, providerError("email is not verified")
	}
	return &Profile{
		Subject: info.Id,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}, nil
}

func providerError(msg string) error {
	return fmt.Errorf("%w: %s", ErrProviderAuth, msg)
}

func wrapProviderError(msg string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrProviderAuth, msg, err)
}
