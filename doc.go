// Package secrets is a small site where users register or sign in with
// Google, then share anonymous secrets on a common wall.
//
// # Architecture
//
// User: one account record. Local accounts carry credential material
// produced by the configured CredentialScheme; federated accounts carry a
// GoogleID and no password.
//
// UserStore: persistence of users and their secrets. Implementations live
// under stores/ (filesystem, GORM, MongoDB, Cloud Datastore).
//
// Sessions: an scs session holds the logged in user's ID and nothing else.
// The user is re-read from the store on each request.
//
// # Basic Usage
//
//	users := fs.NewUserStore("/var/data/secrets")
//	scheme, _ := secrets.NewCredentialScheme("bcrypt", "")
//	sessions := secrets.NewSessions(secrets.NewSessionManager(nil, 24*time.Hour, true), users)
//	renderer, _ := views.New()
//
//	app := secrets.NewApp(users, scheme, sessions, renderer)
//	app.EnableGoogle(clientID, clientSecret, "https://example.com/auth/google/callback", stateSecret)
//	http.ListenAndServe(":3000", app.Handler())
//
// # Request Pipeline
//
// Routes are composed from Filters with Chain. ExtractUser attaches the
// logged in user, if any, to the request context; EnsureUser additionally
// redirects anonymous requests to /login. Each handler writes exactly one
// response.
//
// # Credential Schemes
//
//   - plaintext: the password is stored as submitted
//   - encrypted: Fernet encryption with a key derived from SECRET
//   - bcrypt: a salted bcrypt hash (default)
//
// The scheme is chosen once at startup. Stored material from one scheme does
// not verify under another.
package secrets
