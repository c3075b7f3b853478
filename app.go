package secrets

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/panyam/secrets/internal/logutil"
	"github.com/panyam/secrets/oauth2"
	"github.com/panyam/secrets/views"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	xoauth2 "golang.org/x/oauth2"
)

// Messages shown to the client
const (
	msgUserExists         = "User already exists."
	msgRegistrationFailed = "An error occurred during registration."
	msgGoogleFailed       = "Google sign-in failed, please try again."
	msgGoogleUsernameUsed = "An account with that email already exists. Log in with your password."
)

// App wires the stores, sessions and views into the site's routes.
// Everything is built once at startup and shared by all requests.
type App struct {
	Users    UserStore
	Scheme   CredentialScheme
	Sessions *Sessions
	Views    *views.Renderer

	// Optional.  Routes under /auth/google are only mounted when set
	Google *oauth2.GoogleOAuth2

	Logger zerolog.Logger

	localAuth    *LocalAuth
	middleware   *Middleware
	findOrCreate FindOrCreateFunc
	submitSecret SubmitSecretFunc
	listSecrets  ListSecretsFunc
	router       *mux.Router
}

func NewApp(users UserStore, scheme CredentialScheme, sessions *Sessions, renderer *views.Renderer) *App {
	a := &App{
		Users:    users,
		Scheme:   scheme,
		Sessions: sessions,
		Views:    renderer,
		Logger:   log.Logger,
	}
	a.localAuth = &LocalAuth{
		ValidateCredentials: NewCredentialsValidator(users, scheme),
		CreateUser:          NewCreateUserFunc(users, scheme),
		HandleUser:          a.loginAndRedirect,
		OnLoginError:        a.onLoginError,
		OnSignupError:       a.onSignupError,
	}
	a.middleware = &Middleware{Sessions: sessions}
	a.middleware.EnsureReasonableDefaults()
	a.findOrCreate = NewFindOrCreateFunc(users)
	a.submitSecret = NewSubmitSecretFunc(users)
	a.listSecrets = NewListSecretsFunc(users)
	return a
}

// EnableGoogle configures Google login with the app's user handling
func (a *App) EnableGoogle(clientId, clientSecret, callbackUrl, stateSecret string) *oauth2.GoogleOAuth2 {
	a.Google = oauth2.NewGoogleOAuth2(clientId, clientSecret, callbackUrl, stateSecret, a.onGoogleUser)
	a.Google.HandleFailure = a.onGoogleFailure
	a.router = nil
	return a.Google
}

// Handler returns the full stack: request logging, then sessions, then routes
func (a *App) Handler() http.Handler {
	return logutil.Middleware(a.Logger)(a.Sessions.Manager.LoadAndSave(a.Router()))
}

// Router returns the route table. Requests must already carry a session.
func (a *App) Router() *mux.Router {
	if a.router != nil {
		return a.router
	}
	r := mux.NewRouter()
	extract := a.middleware.ExtractUser
	ensure := a.middleware.EnsureUser

	r.Handle("/", Chain(http.HandlerFunc(a.handleHome), extract)).Methods(http.MethodGet)

	r.Handle("/login", Chain(a.pageHandler(views.Login, "Login"), extract)).Methods(http.MethodGet)
	r.Handle("/login", a.localAuth).Methods(http.MethodPost)

	r.Handle("/register", Chain(a.pageHandler(views.Register, "Register"), extract)).Methods(http.MethodGet)
	r.HandleFunc("/register", a.localAuth.HandleSignup).Methods(http.MethodPost)

	r.Handle("/secrets", Chain(http.HandlerFunc(a.handleSecrets), ensure)).Methods(http.MethodGet)
	r.Handle("/submit", Chain(a.pageHandler(views.Submit, "Submit"), ensure)).Methods(http.MethodGet)
	r.Handle("/submit", Chain(http.HandlerFunc(a.handleSubmit), ensure)).Methods(http.MethodPost)

	r.HandleFunc("/logout", a.handleLogout).Methods(http.MethodGet)

	if a.Google != nil {
		r.HandleFunc("/auth/google", a.Google.HandleLogin).Methods(http.MethodGet)
		r.HandleFunc("/auth/google/callback", a.Google.HandleCallback).Methods(http.MethodGet)
	}

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", views.Static())).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	a.router = r
	return r
}

// page builds the template data shared by every page
func (a *App) page(r *http.Request, title string) *views.Page {
	return &views.Page{
		Title:         title,
		LoggedIn:      UserFromContext(r.Context()) != nil,
		Flash:         a.Sessions.PopFlash(r.Context()),
		GoogleEnabled: a.Google != nil,
	}
}

func (a *App) render(w http.ResponseWriter, r *http.Request, status int, name string, data *views.Page) {
	if err := a.Views.Render(w, status, name, data); err != nil {
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).Str("view", name).Msg("failed to render view")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (a *App) pageHandler(name, title string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.render(w, r, http.StatusOK, name, a.page(r, title))
	})
}

func (a *App) handleHome(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, views.Home, a.page(r, ""))
}

func (a *App) handleSecrets(w http.ResponseWriter, r *http.Request) {
	found, err := a.listSecrets(r.Context())
	if err != nil {
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).Msg("failed to list secrets")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	data := a.page(r, "Secrets")
	data.Secrets = found
	a.render(w, r, http.StatusOK, views.Secrets, data)
}

func (a *App) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}
	user := UserFromContext(r.Context())
	err := a.submitSecret(r.Context(), user.ID, r.PostFormValue("secret"))
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			http.Redirect(w, r, a.middleware.LoginURL, http.StatusFound)
			return
		}
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).Str("user_id", user.ID).Msg("failed to submit secret")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.Sessions.Logout(r.Context()); err != nil {
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).Msg("failed to destroy session")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// loginAndRedirect is the last step of every successful login or registration
func (a *App) loginAndRedirect(user *User, w http.ResponseWriter, r *http.Request) {
	if err := a.Sessions.Login(r.Context(), user); err != nil {
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).Str("user_id", user.ID).Msg("failed to establish session")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

func (a *App) onLoginError(err *AuthError, w http.ResponseWriter, r *http.Request) bool {
	data := a.page(r, "Login")
	data.Error = err.Message
	data.Username = r.PostFormValue(a.localAuth.getUsernameField())
	a.render(w, r, AuthErrorStatus(err), views.Login, data)
	return true
}

func (a *App) onSignupError(err *AuthError, w http.ResponseWriter, r *http.Request) bool {
	switch err.Code {
	case ErrCodeUserExists:
		http.Error(w, msgUserExists, http.StatusConflict)
	case ErrCodeMissingField:
		data := a.page(r, "Register")
		data.Error = err.Message
		data.Username = r.PostFormValue(a.localAuth.getUsernameField())
		a.render(w, r, http.StatusBadRequest, views.Register, data)
	default:
		http.Error(w, msgRegistrationFailed, http.StatusInternalServerError)
	}
	return true
}

func (a *App) onGoogleUser(provider string, token *xoauth2.Token, profile *oauth2.Profile, w http.ResponseWriter, r *http.Request) {
	log := logutil.GetOrDefault(r.Context())
	user, err := a.findOrCreate(r.Context(), profile.Email, profile.Subject)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			log.Info().Str("provider", provider).Str("username", profile.Email).Msg("federated login collides with local account")
			a.Sessions.Flash(r.Context(), msgGoogleUsernameUsed)
		} else {
			log.Error().Err(err).Str("provider", provider).Msg("failed to resolve federated user")
			a.Sessions.Flash(r.Context(), msgGoogleFailed)
		}
		http.Redirect(w, r, a.middleware.LoginURL, http.StatusFound)
		return
	}
	a.loginAndRedirect(user, w, r)
}

func (a *App) onGoogleFailure(err error, w http.ResponseWriter, r *http.Request) {
	a.Sessions.Flash(r.Context(), msgGoogleFailed)
	http.Redirect(w, r, a.middleware.LoginURL, http.StatusFound)
}
