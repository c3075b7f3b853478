//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/google/uuid"
	"github.com/panyam/secrets"
	"google.golang.org/api/iterator"
)

// Kind constants for Datastore entities
const (
	KindUser     = "User"
	KindUsername = "Username"
	KindGoogleID = "GoogleID"
)

// appends to one user contend on a single entity
const appendAttempts = 20

// UserStore implements secrets.UserStore using Google Cloud Datastore
type UserStore struct {
	client    *datastore.Client
	namespace string
}

// NewUserStore creates a new Datastore-backed UserStore
func NewUserStore(client *datastore.Client, namespace string) *UserStore {
	return &UserStore{
		client:    client,
		namespace: namespace,
	}
}

func (s *UserStore) Close() error {
	return s.client.Close()
}

func (s *UserStore) namespacedKey(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = s.namespace
	return key
}

func (s *UserStore) CreateUser(ctx context.Context, user *secrets.User) error {
	if user.Username == "" {
		return fmt.Errorf("username is required")
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	entity := &UserEntity{
		Key:       s.namespacedKey(KindUser, uuid.NewString()),
		Username:  user.Username,
		Password:  user.Password,
		GoogleID:  user.GoogleID,
		CreatedAt: now,
	}
	reservation := &ReservationEntity{UserID: entity.Key.Name, CreatedAt: now}

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		if err := s.reserve(tx, s.namespacedKey(KindUsername, user.Username), reservation); err != nil {
			return fmt.Errorf("username %q: %w", user.Username, err)
		}
		if user.GoogleID != "" {
			if err := s.reserve(tx, s.namespacedKey(KindGoogleID, user.GoogleID), reservation); err != nil {
				return fmt.Errorf("google id %q: %w", user.GoogleID, err)
			}
		}
		_, err := tx.Put(entity.Key, entity)
		return err
	})
	if err != nil {
		return err
	}
	user.ID = entity.Key.Name
	user.CreatedAt = now
	return nil
}

// reserve claims key inside tx, failing if it is already held
func (s *UserStore) reserve(tx *datastore.Transaction, key *datastore.Key, reservation *ReservationEntity) error {
	var existing ReservationEntity
	err := tx.Get(key, &existing)
	if err == nil {
		return secrets.ErrAlreadyExists
	}
	if !errors.Is(err, datastore.ErrNoSuchEntity) {
		return err
	}
	_, err = tx.Put(key, reservation)
	return err
}

func (s *UserStore) GetUserById(ctx context.Context, userId string) (*secrets.User, error) {
	if userId == "" {
		return nil, secrets.ErrNotFound
	}
	var entity UserEntity
	if err := s.client.Get(ctx, s.namespacedKey(KindUser, userId), &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, secrets.ErrNotFound
		}
		return nil, err
	}
	return entity.ToUser(), nil
}

func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*secrets.User, error) {
	return s.lookup(ctx, KindUsername, username)
}

func (s *UserStore) GetUserByGoogleId(ctx context.Context, googleId string) (*secrets.User, error) {
	return s.lookup(ctx, KindGoogleID, googleId)
}

func (s *UserStore) lookup(ctx context.Context, kind, name string) (*secrets.User, error) {
	if name == "" {
		return nil, secrets.ErrNotFound
	}
	var reservation ReservationEntity
	if err := s.client.Get(ctx, s.namespacedKey(kind, name), &reservation); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, secrets.ErrNotFound
		}
		return nil, err
	}
	return s.GetUserById(ctx, reservation.UserID)
}

func (s *UserStore) AppendSecret(ctx context.Context, userId string, secret string) error {
	if userId == "" {
		return secrets.ErrNotFound
	}
	key := s.namespacedKey(KindUser, userId)
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var entity UserEntity
		if err := tx.Get(key, &entity); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return secrets.ErrNotFound
			}
			return err
		}
		entity.Secrets = append(entity.Secrets, secret)
		entity.HasSecrets = true
		_, err := tx.Put(key, &entity)
		return err
	}, datastore.MaxAttempts(appendAttempts))
	return err
}

// ListUsersWithSecrets filters on a single property and sorts in memory so
// no composite index is needed
func (s *UserStore) ListUsersWithSecrets(ctx context.Context) ([]*secrets.User, error) {
	query := datastore.NewQuery(KindUser).FilterField("has_secrets", "=", true)
	if s.namespace != "" {
		query = query.Namespace(s.namespace)
	}

	var out []*secrets.User
	it := s.client.Run(ctx, query)
	for {
		var entity UserEntity
		_, err := it.Next(&entity)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, entity.ToUser())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
