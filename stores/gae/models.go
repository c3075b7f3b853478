//go:build !wasm
// +build !wasm

package gae

import (
	"time"

	"cloud.google.com/go/datastore"
	"github.com/panyam/secrets"
)

// UserEntity is the Datastore entity for users
type UserEntity struct {
	Key        *datastore.Key `datastore:"__key__"`
	Username   string         `datastore:"username"`
	Password   string         `datastore:"password,noindex"`
	GoogleID   string         `datastore:"google_id"`
	Secrets    []string       `datastore:"secrets,noindex"`
	HasSecrets bool           `datastore:"has_secrets"`
	CreatedAt  time.Time      `datastore:"created_at"`
}

func (e *UserEntity) ToUser() *secrets.User {
	return &secrets.User{
		ID:        e.Key.Name,
		Username:  e.Username,
		Password:  e.Password,
		GoogleID:  e.GoogleID,
		Secrets:   e.Secrets,
		CreatedAt: e.CreatedAt.UTC(),
	}
}

// ReservationEntity claims a unique value (a username or a Google ID) for a user.
// The value is the key name.
type ReservationEntity struct {
	UserID    string    `datastore:"user_id"`
	CreatedAt time.Time `datastore:"created_at,noindex"`
}
