package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/alandlunch/config"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()

	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rs, err := NewRedisStore(context.Background(), mr.Addr(), "test:")
	require.NoError(t, err)
	t.Cleanup(func() { rs.Close() })

	return map[string]Store{
		"file":   fs,
		"memory": NewMemoryStore(),
		"redis":  rs,
	}
}

func TestStore_Contract(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "cachedLunchData")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set(ctx, "cachedLunchData", []byte(`{"a":1}`)))
			got, err := s.Get(ctx, "cachedLunchData")
			require.NoError(t, err)
			assert.JSONEq(t, `{"a":1}`, string(got))

			require.NoError(t, s.Set(ctx, "cachedLunchData", []byte(`{"a":2}`)))
			got, err = s.Get(ctx, "cachedLunchData")
			require.NoError(t, err)
			assert.JSONEq(t, `{"a":2}`, string(got))

			require.NoError(t, s.Delete(ctx, "cachedLunchData"))
			_, err = s.Get(ctx, "cachedLunchData")
			assert.ErrorIs(t, err, ErrNotFound)

			// Deleting a missing key is not an error.
			require.NoError(t, s.Delete(ctx, "cachedLunchData"))
		})
	}
}

func TestStore_ConcurrentSets(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					assert.NoError(t, s.Set(ctx, "k", []byte(`["x"]`)))
				}()
			}
			wg.Wait()

			got, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, `["x"]`, string(got))
		})
	}
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	buf := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", buf))
	buf[0] = 'z'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestFileStore_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set(context.Background(), "hiddenRestaurants", []byte(`[]`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "hiddenRestaurants.json", entries[0].Name())
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	ctx := context.Background()

	s1, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s1.Set(ctx, "k", []byte("v")))

	s2, err := NewFileStore(dir)
	require.NoError(t, err)
	got, err := s2.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

func TestRedisStore_UsesPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), mr.Addr(), "alandlunch:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set(context.Background(), "hiddenRestaurants", []byte(`["a"]`)))
	got, err := mr.Get("alandlunch:hiddenRestaurants")
	require.NoError(t, err)
	assert.Equal(t, `["a"]`, got)
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore(context.Background(), addr, "")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, config.StoreConfig{Backend: "file", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open(ctx, config.StoreConfig{Backend: "etcd"})
	assert.Error(t, err)
}
