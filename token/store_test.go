package token_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	apperrors "github.com/jrsteele09/storefront-session/internal/errors"
	"github.com/jrsteele09/storefront-session/token"
	"github.com/stretchr/testify/require"
)

func newFileStore(t *testing.T) *token.FileStore {
	t.Helper()
	dir := t.TempDir()
	key, err := token.LoadOrCreateKey(filepath.Join(dir, "tokens.key"))
	require.NoError(t, err)
	s, err := token.NewFileStore(filepath.Join(dir, "tokens.json"), key)
	require.NoError(t, err)
	return s
}

// stores runs the same contract against every implementation
func stores(t *testing.T) map[string]token.Store {
	return map[string]token.Store{
		"memory": token.NewMemoryStore(),
		"file":   newFileStore(t),
	}
}

func TestStore_EmptyAndClear(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			access, err := s.AccessToken()
			require.NoError(t, err)
			require.Empty(t, access)

			for i := 0; i < 3; i++ {
				require.NoError(t, s.Clear())
			}

			refresh, err := s.RefreshToken()
			require.NoError(t, err)
			require.Empty(t, refresh)
		})
	}
}

func TestStore_SetTokens(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SetTokens("access-1", "refresh-1"))
			require.NoError(t, s.SetTokens("access-2", "refresh-2"))

			access, err := s.AccessToken()
			require.NoError(t, err)
			refresh, err := s.RefreshToken()
			require.NoError(t, err)
			require.Equal(t, "access-2", access)
			require.Equal(t, "refresh-2", refresh)

			require.NoError(t, s.Clear())
			access, err = s.AccessToken()
			require.NoError(t, err)
			require.Empty(t, access)
		})
	}
}

func TestStore_PairNeverTorn(t *testing.T) {
	mem := token.NewMemoryStore()
	file := newFileStore(t)

	type pairReader func() (token.Credentials, error)
	readers := map[string]struct {
		store token.Store
		read  pairReader
	}{
		"memory": {mem, func() (token.Credentials, error) { return mem.Credentials(), nil }},
		"file":   {file, file.Credentials},
	}

	for name, tc := range readers {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, tc.store.SetTokens("a0", "r0"))

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 1; i <= 50; i++ {
					n := string(rune('0' + i%10))
					if err := tc.store.SetTokens("a"+n, "r"+n); err != nil {
						t.Error(err)
						return
					}
				}
			}()

			for i := 0; i < 50; i++ {
				creds, err := tc.read()
				require.NoError(t, err)
				require.Equal(t, creds.AccessToken[1:], creds.RefreshToken[1:], "torn pair %+v", creds)
			}
			wg.Wait()
		})
	}
}

func TestFileStore(t *testing.T) {
	t.Run("persists across instances", func(t *testing.T) {
		dir := t.TempDir()
		keyPath := filepath.Join(dir, "tokens.key")
		path := filepath.Join(dir, "tokens.json")

		key, err := token.LoadOrCreateKey(keyPath)
		require.NoError(t, err)
		s1, err := token.NewFileStore(path, key)
		require.NoError(t, err)
		require.NoError(t, s1.SetTokens("access", "refresh"))

		key2, err := token.LoadOrCreateKey(keyPath)
		require.NoError(t, err)
		require.Equal(t, key, key2)
		s2, err := token.NewFileStore(path, key2)
		require.NoError(t, err)
		access, err := s2.AccessToken()
		require.NoError(t, err)
		require.Equal(t, "access", access)
	})

	t.Run("tokens are not stored in clear text", func(t *testing.T) {
		s := newFileStore(t)
		require.NoError(t, s.SetTokens("very-secret-access", "very-secret-refresh"))
		raw, err := os.ReadFile(s.Path())
		require.NoError(t, err)
		require.NotContains(t, string(raw), "very-secret")

		info, err := os.Stat(s.Path())
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("wrong key is reported as corrupt", func(t *testing.T) {
		s := newFileStore(t)
		require.NoError(t, s.SetTokens("access", "refresh"))

		other, err := token.NewFileStore(s.Path(), []byte("another-secret"))
		require.NoError(t, err)
		_, err = other.AccessToken()
		require.ErrorIs(t, err, apperrors.ErrCorruptTokenFile)
	})

	t.Run("garbage file is reported as corrupt", func(t *testing.T) {
		s := newFileStore(t)
		require.NoError(t, os.WriteFile(s.Path(), []byte("not json"), 0o600))
		_, err := s.RefreshToken()
		require.ErrorIs(t, err, apperrors.ErrCorruptTokenFile)

		require.NoError(t, s.Clear())
		access, err := s.AccessToken()
		require.NoError(t, err)
		require.Empty(t, access)
	})

	t.Run("requires path and secret", func(t *testing.T) {
		_, err := token.NewFileStore("", []byte("x"))
		require.Error(t, err)
		_, err = token.NewFileStore(filepath.Join(t.TempDir(), "t.json"), nil)
		require.Error(t, err)
	})

	t.Run("bad key file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tokens.key")
		require.NoError(t, os.WriteFile(path, []byte("zz"), 0o600))
		_, err := token.LoadOrCreateKey(path)
		require.Error(t, err)
	})
}
