package fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/panyam/secrets"
	"github.com/panyam/secrets/stores/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStore(t *testing.T) {
	storetest.RunUserStoreTests(t, func(t *testing.T) secrets.UserStore {
		return NewUserStore(t.TempDir())
	})
}

func TestUserStoreLayout(t *testing.T) {
	dir := t.TempDir()
	store := NewUserStore(dir)
	ctx := context.Background()

	user := &secrets.User{Username: "a/b@example.com", GoogleID: "g-1"}
	require.NoError(t, store.CreateUser(ctx, user))

	assert.FileExists(t, filepath.Join(dir, "users", user.ID+".json"))
	assert.FileExists(t, filepath.Join(dir, "usernames", keyFileName("a/b@example.com")))
	assert.FileExists(t, filepath.Join(dir, "googleids", keyFileName("g-1")))

	// no temp files are left behind
	entries, err := os.ReadDir(filepath.Join(dir, "users"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUserStoreLongKeys(t *testing.T) {
	dir := t.TempDir()
	store := NewUserStore(dir)
	ctx := context.Background()

	username := strings.Repeat("u", 300) + "@example.com"
	googleId := strings.Repeat("9", 300)
	user := &secrets.User{Username: username, GoogleID: googleId}
	require.NoError(t, store.CreateUser(ctx, user))

	byName, err := store.GetUserByUsername(ctx, username)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)
	byGoogle, err := store.GetUserByGoogleId(ctx, googleId)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byGoogle.ID)

	// index names do not grow with the key
	assert.Len(t, keyFileName(username), len(keyFileName("a")))
	assert.ErrorIs(t, store.CreateUser(ctx, &secrets.User{Username: username}), secrets.ErrAlreadyExists)
}

func TestUserStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	user := &secrets.User{Username: "alice", Password: "m"}
	require.NoError(t, NewUserStore(dir).CreateUser(ctx, user))
	require.NoError(t, NewUserStore(dir).AppendSecret(ctx, user.ID, "s1"))

	got, err := NewUserStore(dir).GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, got.Secrets)
}

func TestGetUserByIdRejectsPaths(t *testing.T) {
	store := NewUserStore(t.TempDir())
	_, err := store.GetUserById(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, secrets.ErrNotFound)
}
