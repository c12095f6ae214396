package dbp

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, SetupTables(db, CreateTablesStmts))
	return &Store{DB: db}
}

func TestStore_GetMissingKey(t *testing.T) {
	s := newTestStore(t)

	value, err := s.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestStore_SetGetClear(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set("readStories", []byte(`[1,2,3]`)))

	value, err := s.Get("readStories")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[1,2,3]`), value)

	require.NoError(t, s.Clear("readStories"))

	value, err = s.Get("readStories")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestStore_SetReplaces(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set("k", []byte("old")))
	require.NoError(t, s.Set("k", []byte("new")))

	value, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), value)
}
