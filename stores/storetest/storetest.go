// Package storetest holds the behaviour every secrets.UserStore must share.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/panyam/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunUserStoreTests runs the common suite. newStore must return an empty store.
func RunUserStoreTests(t *testing.T, newStore func(t *testing.T) secrets.UserStore) {
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		store := newStore(t)
		user := &secrets.User{Username: "alice", Password: "material"}
		require.NoError(t, store.CreateUser(ctx, user))
		require.NotEmpty(t, user.ID)
		assert.False(t, user.CreatedAt.IsZero())

		byId, err := store.GetUserById(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", byId.Username)
		assert.Equal(t, "material", byId.Password)
		assert.Empty(t, byId.GoogleID)
		assert.Empty(t, byId.Secrets)

		byName, err := store.GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byName.ID)
	})

	t.Run("LongestUsername", func(t *testing.T) {
		store := newStore(t)
		username := strings.Repeat("a", secrets.MaxUsernameLength-len("@example.com")) + "@example.com"
		user := &secrets.User{Username: username, Password: "material"}
		require.NoError(t, store.CreateUser(ctx, user))

		got, err := store.GetUserByUsername(ctx, username)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, username, got.Username)
	})

	t.Run("NotFound", func(t *testing.T) {
		store := newStore(t)
		_, err := store.GetUserByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, secrets.ErrNotFound)
		_, err = store.GetUserById(ctx, "missing-id")
		assert.ErrorIs(t, err, secrets.ErrNotFound)
		_, err = store.GetUserByGoogleId(ctx, "g-0")
		assert.ErrorIs(t, err, secrets.ErrNotFound)
		_, err = store.GetUserByGoogleId(ctx, "")
		assert.ErrorIs(t, err, secrets.ErrNotFound)
		assert.ErrorIs(t, store.AppendSecret(ctx, "missing-id", "s"), secrets.ErrNotFound)
	})

	t.Run("UsernameIsCaseSensitive", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.CreateUser(ctx, &secrets.User{Username: "Bob"}))
		_, err := store.GetUserByUsername(ctx, "bob")
		assert.ErrorIs(t, err, secrets.ErrNotFound)
		assert.NoError(t, store.CreateUser(ctx, &secrets.User{Username: "bob"}))
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		store := newStore(t)
		first := &secrets.User{Username: "alice", Password: "pw1"}
		require.NoError(t, store.CreateUser(ctx, first))

		err := store.CreateUser(ctx, &secrets.User{Username: "alice", Password: "pw2"})
		assert.ErrorIs(t, err, secrets.ErrAlreadyExists)

		// the original record is untouched
		got, err := store.GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
		assert.Equal(t, "pw1", got.Password)
	})

	t.Run("GoogleIdentity", func(t *testing.T) {
		store := newStore(t)
		user := &secrets.User{Username: "user@gmail.com", GoogleID: "g-123"}
		require.NoError(t, store.CreateUser(ctx, user))

		got, err := store.GetUserByGoogleId(ctx, "g-123")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Empty(t, got.Password)
		assert.True(t, got.IsFederated())

		err = store.CreateUser(ctx, &secrets.User{Username: "other@gmail.com", GoogleID: "g-123"})
		assert.ErrorIs(t, err, secrets.ErrAlreadyExists)

		// many local users without a google id can coexist
		require.NoError(t, store.CreateUser(ctx, &secrets.User{Username: "l1"}))
		require.NoError(t, store.CreateUser(ctx, &secrets.User{Username: "l2"}))
	})

	t.Run("AppendSecretKeepsOrder", func(t *testing.T) {
		store := newStore(t)
		user := &secrets.User{Username: "alice"}
		require.NoError(t, store.CreateUser(ctx, user))

		for _, s := range []string{"s1", "", "s3"} {
			require.NoError(t, store.AppendSecret(ctx, user.ID, s))
		}
		got, err := store.GetUserById(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"s1", "", "s3"}, got.Secrets)
	})

	t.Run("ConcurrentAppends", func(t *testing.T) {
		store := newStore(t)
		user := &secrets.User{Username: "alice"}
		require.NoError(t, store.CreateUser(ctx, user))

		const n = 10
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, store.AppendSecret(ctx, user.ID, fmt.Sprintf("secret-%d", i)))
			}(i)
		}
		wg.Wait()

		got, err := store.GetUserById(ctx, user.ID)
		require.NoError(t, err)
		assert.Len(t, got.Secrets, n)
	})

	t.Run("ConcurrentCreateSameUsername", func(t *testing.T) {
		store := newStore(t)
		const n = 5
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = store.CreateUser(ctx, &secrets.User{Username: "race", Password: fmt.Sprint(i)})
			}(i)
		}
		wg.Wait()

		created := 0
		for _, err := range errs {
			if err == nil {
				created++
			} else {
				assert.ErrorIs(t, err, secrets.ErrAlreadyExists)
			}
		}
		assert.Equal(t, 1, created)
	})

	t.Run("ListUsersWithSecrets", func(t *testing.T) {
		store := newStore(t)
		list, err := store.ListUsersWithSecrets(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)

		alice := &secrets.User{Username: "alice"}
		require.NoError(t, store.CreateUser(ctx, alice))
		time.Sleep(5 * time.Millisecond)
		bob := &secrets.User{Username: "bob"}
		require.NoError(t, store.CreateUser(ctx, bob))
		time.Sleep(5 * time.Millisecond)
		carol := &secrets.User{Username: "carol"}
		require.NoError(t, store.CreateUser(ctx, carol))

		require.NoError(t, store.AppendSecret(ctx, bob.ID, "b1"))
		require.NoError(t, store.AppendSecret(ctx, alice.ID, "a1"))
		require.NoError(t, store.AppendSecret(ctx, alice.ID, "a2"))

		list, err = store.ListUsersWithSecrets(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, alice.ID, list[0].ID)
		assert.Equal(t, []string{"a1", "a2"}, list[0].Secrets)
		assert.Equal(t, bob.ID, list[1].ID)
		assert.Equal(t, []string{"b1"}, list[1].Secrets)
	})
}
