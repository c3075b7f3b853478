package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/panyam/secrets/internal/logutil"
)

// CredentialsValidator validates credentials during login and returns the user
type CredentialsValidator func(ctx context.Context, username, password string) (*User, error)

// CreateUserFunc registers a new local user
type CreateUserFunc func(ctx context.Context, username, password string) (*User, error)

// FindOrCreateFunc resolves a federated identity to a local user, creating
// the user on first login
type FindOrCreateFunc func(ctx context.Context, providerUserKey, providerIdentifier string) (*User, error)

// SubmitSecretFunc appends a secret to a user's collection
type SubmitSecretFunc func(ctx context.Context, userId, secret string) error

// ListSecretsFunc returns all submitted secrets across all users
type ListSecretsFunc func(ctx context.Context) ([]string, error)

// upstream marks store failures so handlers can tell them apart from
// authentication outcomes.
func upstream(err error) error {
	if err == nil || errors.Is(err, ErrUpstream) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}

// NewCredentialsValidator creates a CredentialsValidator from a store and scheme
func NewCredentialsValidator(users UserStore, scheme CredentialScheme) CredentialsValidator {
	return func(ctx context.Context, username, password string) (*User, error) {
		user, err := users.GetUserByUsername(ctx, username)
		if err != nil {
			// keep the timing of unknown users close to wrong passwords
			scheme.VerifyDummy(password)
			if errors.Is(err, ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, upstream(err)
		}

		if user.IsFederated() && user.Password == "" {
			// federated-only account, there is nothing to compare against
			scheme.VerifyDummy(password)
			return nil, ErrCredentialMismatch
		}

		if err := scheme.Verify(user.Password, password); err != nil {
			if errors.Is(err, ErrCredentialMismatch) {
				return nil, ErrCredentialMismatch
			}
			return nil, upstream(err)
		}
		return user, nil
	}
}

// NewCreateUserFunc creates a CreateUserFunc from a store and scheme
func NewCreateUserFunc(users UserStore, scheme CredentialScheme) CreateUserFunc {
	return func(ctx context.Context, username, password string) (*User, error) {
		if _, err := users.GetUserByUsername(ctx, username); err == nil {
			return nil, ErrAlreadyExists
		} else if !errors.Is(err, ErrNotFound) {
			return nil, upstream(err)
		}

		material, err := scheme.Derive(password)
		if err != nil {
			return nil, err
		}

		user := &User{Username: username, Password: material}
		if err := users.CreateUser(ctx, user); err != nil {
			// a concurrent registration won the store's uniqueness check
			if errors.Is(err, ErrAlreadyExists) {
				return nil, ErrAlreadyExists
			}
			return nil, upstream(err)
		}

		log := logutil.GetOrDefault(ctx)
		log.Info().Str("user_id", user.ID).Str("scheme", scheme.Name()).Msg("Created local user")
		return user, nil
	}
}

// NewFindOrCreateFunc creates a FindOrCreateFunc from a store.
//
// A user is looked up by provider identifier only. If the provider user key
// is already used as the username of another account the call fails with
// ErrAlreadyExists; accounts are never linked implicitly.
func NewFindOrCreateFunc(users UserStore) FindOrCreateFunc {
	return func(ctx context.Context, providerUserKey, providerIdentifier string) (*User, error) {
		if providerIdentifier == "" {
			return nil, fmt.Errorf("%w: empty provider identifier", ErrProviderAuth)
		}
		user, err := users.GetUserByGoogleId(ctx, providerIdentifier)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, upstream(err)
		}

		user = &User{Username: providerUserKey, GoogleID: providerIdentifier}
		if err := users.CreateUser(ctx, user); err != nil {
			if !errors.Is(err, ErrAlreadyExists) {
				return nil, upstream(err)
			}
			// either a concurrent login created the same identity, or the
			// username belongs to someone else
			existing, lookupErr := users.GetUserByGoogleId(ctx, providerIdentifier)
			if lookupErr == nil {
				return existing, nil
			}
			if !errors.Is(lookupErr, ErrNotFound) {
				return nil, upstream(lookupErr)
			}
			return nil, fmt.Errorf("username %q: %w", providerUserKey, ErrAlreadyExists)
		}

		log := logutil.GetOrDefault(ctx)
		log.Info().Str("user_id", user.ID).Str("provider", "google").Msg("Created federated user")
		return user, nil
	}
}

// NewSubmitSecretFunc creates a SubmitSecretFunc from a store.
// The secret is stored as-is; empty strings are accepted.
func NewSubmitSecretFunc(users UserStore) SubmitSecretFunc {
	return func(ctx context.Context, userId, secret string) error {
		if userId == "" {
			return ErrUnauthenticated
		}
		if err := users.AppendSecret(ctx, userId, secret); err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrUnauthenticated
			}
			return upstream(err)
		}
		return nil
	}
}

// NewListSecretsFunc creates a ListSecretsFunc from a store
func NewListSecretsFunc(users UserStore) ListSecretsFunc {
	return func(ctx context.Context) ([]string, error) {
		found, err := users.ListUsersWithSecrets(ctx)
		if err != nil {
			return nil, upstream(err)
		}
		var out []string
		for _, u := range found {
			out = append(out, u.Secrets...)
		}
		return out, nil
	}
}
