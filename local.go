package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/panyam/secrets/internal/logutil"
)

// MaxUsernameLength is the longest username, in bytes, accepted for login
// or registration. Every store can index a username of this size.
const MaxUsernameLength = 255

// HandleUserFunc is called once a user has been authenticated or registered.
// It is responsible for establishing the session and writing the response.
type HandleUserFunc func(user *User, w http.ResponseWriter, r *http.Request)

// AuthErrorHandler writes the response for a failed login or signup.
// Returning false falls back to the default JSON response.
type AuthErrorHandler func(err *AuthError, w http.ResponseWriter, r *http.Request) bool

// Allows local username/password based authentication
type LocalAuth struct {
	// Validates credentials during login
	ValidateCredentials CredentialsValidator

	// Creates a new user (for signup)
	CreateUser CreateUserFunc

	// Handler called after successful authentication
	HandleUser HandleUserFunc

	// OnLoginError is called when login fails
	OnLoginError AuthErrorHandler

	// OnSignupError is called when signup fails
	OnSignupError AuthErrorHandler

	// Form field names
	UsernameField string
	PasswordField string
}

// ServeHTTP handles login requests
func (a *LocalAuth) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if a.ValidateCredentials == nil {
		a.handleLoginError(NewAuthError(ErrCodeInternal, "Login not configured", ""), w, r)
		return
	}

	username, password, authErr := a.parseForm(r)
	if authErr != nil {
		a.handleLoginError(authErr, w, r)
		return
	}

	user, err := a.ValidateCredentials(r.Context(), username, password)
	if err != nil {
		log := logutil.GetOrDefault(r.Context())
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrCredentialMismatch) {
			log.Info().Str("username", username).Err(err).Msg("login rejected")
			// same message for unknown user and wrong password
			a.handleLoginError(NewAuthError(ErrCodeInvalidCreds, "Invalid username or password", "password").WithCause(err), w, r)
			return
		}
		log.Error().Str("username", username).Err(err).Msg("error validating user")
		a.handleLoginError(NewAuthError(ErrCodeInternal, "Something went wrong, please try again", "").WithCause(err), w, r)
		return
	}

	a.HandleUser(user, w, r)
}

// HandleSignup processes user registration
func (a *LocalAuth) HandleSignup(w http.ResponseWriter, r *http.Request) {
	if a.CreateUser == nil {
		a.handleSignupError(NewAuthError(ErrCodeInternal, "Signup not configured", ""), w, r)
		return
	}

	username, password, authErr := a.parseForm(r)
	if authErr != nil {
		a.handleSignupError(authErr, w, r)
		return
	}

	user, err := a.CreateUser(r.Context(), username, password)
	if err != nil {
		log := logutil.GetOrDefault(r.Context())
		if errors.Is(err, ErrAlreadyExists) {
			log.Info().Str("username", username).Msg("signup rejected, user exists")
			a.handleSignupError(NewAuthError(ErrCodeUserExists, "User already exists.", "username").WithCause(err), w, r)
			return
		}
		log.Error().Str("username", username).Err(err).Msg("error creating user")
		a.handleSignupError(NewAuthError(ErrCodeInternal, "An error occurred during registration.", "").WithCause(err), w, r)
		return
	}

	// registration always logs the user in
	a.HandleUser(user, w, r)
}

// parseForm reads the username and password from a form or JSON body.
// An empty password is compared like any other value; only a missing
// password field is rejected.
func (a *LocalAuth) parseForm(r *http.Request) (username, password string, authErr *AuthError) {
	usernameField := a.getUsernameField()
	passwordField := a.getPasswordField()

	var hasPassword bool
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var data map[string]any
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil || data == nil {
			return "", "", NewAuthError(ErrCodeMissingField, "Invalid post body", "")
		}
		username, _ = data[usernameField].(string)
		password, hasPassword = data[passwordField].(string)
	} else {
		if err := r.ParseForm(); err != nil {
			return "", "", NewAuthError(ErrCodeMissingField, "Error parsing form", "")
		}
		username = r.PostFormValue(usernameField)
		password = r.PostFormValue(passwordField)
		_, hasPassword = r.PostForm[passwordField]
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return "", "", NewAuthError(ErrCodeMissingField, "Username is required", usernameField)
	}
	if len(username) > MaxUsernameLength {
		return "", "", NewAuthError(ErrCodeMissingField, fmt.Sprintf("Username must be at most %d bytes", MaxUsernameLength), usernameField)
	}
	if !hasPassword {
		return "", "", NewAuthError(ErrCodeMissingField, "Password is required", passwordField)
	}
	return username, password, nil
}

func (a *LocalAuth) getUsernameField() string {
	if a.UsernameField != "" {
		return a.UsernameField
	}
	return "username"
}

func (a *LocalAuth) getPasswordField() string {
	if a.PasswordField != "" {
		return a.PasswordField
	}
	return "password"
}

// handleLoginError handles login errors using the configured handler or default JSON
func (a *LocalAuth) handleLoginError(err *AuthError, w http.ResponseWriter, r *http.Request) {
	if a.OnLoginError != nil && a.OnLoginError(err, w, r) {
		return
	}
	writeAuthError(err, w)
}

// handleSignupError handles signup errors using the configured handler or default JSON
func (a *LocalAuth) handleSignupError(err *AuthError, w http.ResponseWriter, r *http.Request) {
	if a.OnSignupError != nil && a.OnSignupError(err, w, r) {
		return
	}
	writeAuthError(err, w)
}

// AuthErrorStatus maps an error code to the HTTP status used for it
func AuthErrorStatus(err *AuthError) int {
	switch err.Code {
	case ErrCodeMissingField:
		return http.StatusBadRequest
	case ErrCodeInvalidCreds:
		return http.StatusUnauthorized
	case ErrCodeUserExists:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeAuthError(err *AuthError, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(AuthErrorStatus(err))
	json.NewEncoder(w).Encode(map[string]any{
		"error": err.Message,
		"code":  err.Code,
		"field": err.Field,
	})
}
