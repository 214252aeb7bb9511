package localstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/config"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	lite, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { lite.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": lite,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, KeyLastSyncTime, "first"))
			require.NoError(t, s.Set(ctx, KeyLastSyncTime, "second"))
			v, ok, err := s.Get(ctx, KeyLastSyncTime)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "second", v)

			require.NoError(t, s.Delete(ctx, KeyLastSyncTime))
			_, ok, err = s.Get(ctx, KeyLastSyncTime)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	var got []string
	ok, err := GetJSON(ctx, s, KeyEntries, &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetJSON(ctx, s, KeyEntries, []string{"a", "b"}))
	ok, err = GetJSON(ctx, s, KeyEntries, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)

	require.NoError(t, s.Set(ctx, KeyEntries, "{not json"))
	_, err = GetJSON(ctx, s, KeyEntries, &got)
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	s, err := Open(config.Agent{LocalStore: "memory"}, "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(config.Agent{LocalStore: "sqlite", LocalPath: ":memory:"}, "")
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &SQLite{}, s)

	_, err = Open(config.Agent{LocalStore: "floppy"}, "")
	assert.Error(t, err)
}
