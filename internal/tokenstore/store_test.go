package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fullSession = Values{
	AccessToken:  "access-1",
	RefreshToken: "refresh-1",
	UserRole:     "admin",
	UserName:     "Ada",
	UserID:       "u-1",
}

// exerciseStore runs the shared contract against any backend
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	got, err := Load(ctx, s)
	require.NoError(t, err)
	assert.True(t, got.Empty(), "fresh store should be empty")

	require.NoError(t, Save(ctx, s, fullSession))
	got, err = Load(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, fullSession, got)
	assert.True(t, got.HasTokens())

	require.NoError(t, s.Set(ctx, KeyAccessToken, "access-2"))
	v, err := s.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "access-2", v)

	// Saving a partial snapshot drops the fields it leaves empty
	require.NoError(t, Save(ctx, s, Values{AccessToken: "a", RefreshToken: "r"}))
	got, err = Load(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, Values{AccessToken: "a", RefreshToken: "r"}, got)

	require.NoError(t, Clear(ctx, s))
	got, err = Load(ctx, s)
	require.NoError(t, err)
	assert.True(t, got.Empty())

	// Second clear is a no-op
	require.NoError(t, Clear(ctx, s))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	exerciseStore(t, NewFile(path))
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	require.NoError(t, Save(ctx, NewFile(path), fullSession))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := Load(ctx, NewFile(path))
	require.NoError(t, err)
	assert.Equal(t, fullSession, got)
}

func TestFileStore_CorruptFileReadsAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	got, err := Load(context.Background(), NewFile(path))
	require.NoError(t, err)
	assert.True(t, got.Empty())
}

func TestMemoryStore_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Set(ctx, KeyAccessToken, "tok")
			_, _ = s.Get(ctx, KeyAccessToken)
		}()
	}
	wg.Wait()

	v, err := s.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", v)
	assert.Equal(t, 1, s.Len())
}

func TestValues_HasTokens(t *testing.T) {
	assert.False(t, Values{AccessToken: "a"}.HasTokens())
	assert.False(t, Values{RefreshToken: "r"}.HasTokens())
	assert.True(t, Values{AccessToken: "a", RefreshToken: "r"}.HasTokens())
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := OpenPostgres(ctx, dsn, "test-"+t.Name())
	require.NoError(t, err)
	defer s.Close()
	defer Clear(ctx, s)

	exerciseStore(t, s)
}
