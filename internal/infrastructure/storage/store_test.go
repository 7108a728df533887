package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/hopper1357/VTT/internal/apperr"
	"github.com/hopper1357/VTT/internal/config"
	"github.com/hopper1357/VTT/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot(t *testing.T) domain.Snapshot {
	t.Helper()
	st := domain.NewState("dnd5e")
	_, err := st.Entities.Create("e1", domain.EntityTypeCharacter, map[string]string{"name": "Hero"})
	require.NoError(t, err)
	_, err = st.Maps.CreateMap("cave", 6, 6, domain.GridSquare)
	require.NoError(t, err)
	tok, err := domain.NewToken("t1", "e1", 2, 3)
	require.NoError(t, err)
	require.NoError(t, st.Maps.Place("cave", tok))
	return st.Snapshot()
}

func asJSON(t *testing.T, snap domain.Snapshot) string {
	t.Helper()
	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	return string(raw)
}

// testStore - общий контракт для всех драйверов.
func testStore(t *testing.T, s Store) {
	ctx := context.Background()
	snap := sampleSnapshot(t)

	t.Run("missing save", func(t *testing.T) {
		_, err := s.Load(ctx, "nothing")
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.NotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "session-1", snap))
		got, err := s.Load(ctx, "session-1")
		require.NoError(t, err)
		assert.JSONEq(t, asJSON(t, snap), asJSON(t, got))
	})

	t.Run("overwrite", func(t *testing.T) {
		empty := domain.NewState("pf2e").Snapshot()
		require.NoError(t, s.Save(ctx, "session-1", empty))
		got, err := s.Load(ctx, "session-1")
		require.NoError(t, err)
		assert.Equal(t, "pf2e", got.RulesetID)
		assert.Empty(t, got.Maps)
	})

	t.Run("list", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "alpha", snap))
		saves, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, saves, 2)
		assert.Equal(t, "alpha", saves[0].Name)
		assert.Equal(t, "session-1", saves[1].Name)
		assert.False(t, saves[0].SavedAt.IsZero())
	})

	t.Run("bad names", func(t *testing.T) {
		for _, name := range []string{"", "  ", "../etc", `a\b`, ".hidden", "c:d"} {
			err := s.Save(ctx, name, snap)
			assert.ErrorIs(t, err, apperr.InvalidArgument, "name %q", name)
		}
	})
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "saves")
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	testStore(t, s)

	// Посторонние файлы в каталоге не считаются сохранениями
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o600))
	saves, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, saves, 2)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o600))
	_, err = s.Load(context.Background(), "broken")
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vtt.db")
	s, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	testStore(t, s)
}

func TestSQLiteStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vtt.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "keep", sampleSnapshot(t)))
	require.NoError(t, s.Close())

	// Миграции повторно не применяются, данные на месте
	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Load(ctx, "keep")
	require.NoError(t, err)
	assert.Len(t, got.Maps, 1)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StorageConfig{Driver: config.DriverNone})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = Open(ctx, config.StorageConfig{Driver: config.DriverFile, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(ctx, config.StorageConfig{Driver: config.DriverSQLite, DSN: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.StorageConfig{Driver: "mongo"})
	assert.Error(t, err)

	_, err = Open(ctx, config.StorageConfig{Driver: config.DriverPostgres})
	assert.Error(t, err, "dsn is required")
}
