// Package fs stores users as JSON files.
//
// # File Structure
//
//	{StoragePath}/
//	├── users/
//	│   └── {id}.json          # the full user record
//	├── usernames/
//	│   └── {sha256(username)}.json   # {"user_id": "..."}
//	└── googleids/
//	    └── {sha256(google_id)}.json  # {"user_id": "..."}
//
// # Concurrency Model
//
// Every write goes through a temp file and a rename, so readers never see a
// partial record. Creates and appends are serialised by a mutex, which makes
// the uniqueness checks and appends atomic within one process. Several
// processes sharing a directory are not supported.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panyam/secrets"
)

type indexEntry struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// UserStore implements secrets.UserStore on the local filesystem
type UserStore struct {
	StoragePath string
	mu          sync.Mutex
}

func NewUserStore(storagePath string) *UserStore {
	return &UserStore{StoragePath: storagePath}
}

func (s *UserStore) userPath(userId string) string {
	return filepath.Join(s.StoragePath, "users", userId+".json")
}

func (s *UserStore) usernamePath(username string) string {
	return filepath.Join(s.StoragePath, "usernames", keyFileName(username))
}

func (s *UserStore) googleIdPath(googleId string) string {
	return filepath.Join(s.StoragePath, "googleids", keyFileName(googleId))
}

func (s *UserStore) CreateUser(ctx context.Context, user *secrets.User) error {
	if user.Username == "" {
		return fmt.Errorf("username is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if exists(s.usernamePath(user.Username)) {
		return fmt.Errorf("username %q: %w", user.Username, secrets.ErrAlreadyExists)
	}
	if user.GoogleID != "" && exists(s.googleIdPath(user.GoogleID)) {
		return fmt.Errorf("google id %q: %w", user.GoogleID, secrets.ErrAlreadyExists)
	}

	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()
	if err := writeJSON(s.userPath(user.ID), user); err != nil {
		return err
	}

	// the record is only reachable by username once the index exists
	entry := indexEntry{UserID: user.ID, CreatedAt: user.CreatedAt}
	if err := writeJSON(s.usernamePath(user.Username), entry); err != nil {
		os.Remove(s.userPath(user.ID))
		return err
	}
	if user.GoogleID != "" {
		if err := writeJSON(s.googleIdPath(user.GoogleID), entry); err != nil {
			os.Remove(s.usernamePath(user.Username))
			os.Remove(s.userPath(user.ID))
			return err
		}
	}
	return nil
}

func (s *UserStore) GetUserById(ctx context.Context, userId string) (*secrets.User, error) {
	if userId == "" || strings.ContainsAny(userId, `/\.`) {
		return nil, secrets.ErrNotFound
	}
	var user secrets.User
	if err := readJSON(s.userPath(userId), &user); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, secrets.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*secrets.User, error) {
	return s.lookup(ctx, s.usernamePath(username))
}

func (s *UserStore) GetUserByGoogleId(ctx context.Context, googleId string) (*secrets.User, error) {
	if googleId == "" {
		return nil, secrets.ErrNotFound
	}
	return s.lookup(ctx, s.googleIdPath(googleId))
}

func (s *UserStore) lookup(ctx context.Context, indexPath string) (*secrets.User, error) {
	var entry indexEntry
	if err := readJSON(indexPath, &entry); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, secrets.ErrNotFound
		}
		return nil, err
	}
	return s.GetUserById(ctx, entry.UserID)
}

func (s *UserStore) AppendSecret(ctx context.Context, userId string, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.GetUserById(ctx, userId)
	if err != nil {
		return err
	}
	user.Secrets = append(user.Secrets, secret)
	return writeJSON(s.userPath(userId), user)
}

func (s *UserStore) ListUsersWithSecrets(ctx context.Context) ([]*secrets.User, error) {
	entries, err := os.ReadDir(filepath.Join(s.StoragePath, "users"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var out []*secrets.User
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		user, err := s.GetUserById(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			if errors.Is(err, secrets.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if len(user.Secrets) > 0 {
			out = append(out, user)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
