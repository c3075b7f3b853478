package secrets

import (
	"context"
	"time"
)

// User is a single account record.
//
// Local accounts carry Password (credential material produced by the
// configured CredentialScheme). Accounts created through Google login carry
// GoogleID and may have no Password at all.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"password,omitempty"`
	GoogleID  string    `json:"google_id,omitempty"`
	Secrets   []string  `json:"secrets,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsFederated returns true if the user was created through an OAuth provider
func (u *User) IsFederated() bool {
	return u.GoogleID != ""
}

// UserStore persists users.
//
// Implementations must enforce uniqueness of Username, and of GoogleID when
// it is non-empty, returning ErrAlreadyExists on violation. Lookups return
// ErrNotFound when nothing matches.
type UserStore interface {
	// CreateUser assigns the ID and CreatedAt of user and persists it
	CreateUser(ctx context.Context, user *User) error

	// GetUserById retrieves a user by its store-assigned ID
	GetUserById(ctx context.Context, userId string) (*User, error)

	// GetUserByUsername retrieves a user by username
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// GetUserByGoogleId retrieves a user by Google subject identifier
	GetUserByGoogleId(ctx context.Context, googleId string) (*User, error)

	// AppendSecret atomically appends secret to the user's secrets
	AppendSecret(ctx context.Context, userId string, secret string) error

	// ListUsersWithSecrets returns every user with at least one secret,
	// oldest user first
	ListUsersWithSecrets(ctx context.Context) ([]*User, error)
}
