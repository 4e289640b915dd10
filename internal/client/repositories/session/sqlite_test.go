package session

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/userconsole/internal/client/migrations"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.Up(db, "."))
	return db
}

func TestSetAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "access_token", "a1"))

	v, ok, err := r.Get(ctx, "access_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a1", v)
}

func TestGet_Absent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	v, ok, err := r.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestSet_Upsert(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", "old"))
	require.NoError(t, r.Set(ctx, "k", "new"))

	v, _, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "new", v)
}

func TestClear_RemovesKeyAndIsIdempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "x", "1"))
	require.NoError(t, r.Clear(ctx, "x"))
	require.NoError(t, r.Clear(ctx, "x"))

	_, ok, err := r.Get(ctx, "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetAll(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.SetAll(ctx, map[string]string{"access_token": "a", "refresh_token": "r"}))

	a, _, _ := r.Get(ctx, "access_token")
	rt, _, _ := r.Get(ctx, "refresh_token")
	assert.Equal(t, "a", a)
	assert.Equal(t, "r", rt)
}

func TestValuesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	open := func() *sql.DB {
		db, err := sql.Open("sqlite", path)
		require.NoError(t, err)
		goose.SetBaseFS(migrations.Migrations)
		goose.SetLogger(goose.NopLogger())
		require.NoError(t, goose.SetDialect("sqlite3"))
		require.NoError(t, goose.Up(db, "."))
		return db
	}

	db := open()
	require.NoError(t, NewSQLiteRepository(db).Set(ctx, "refresh_token", "r1"))
	require.NoError(t, db.Close())

	db = open()
	defer db.Close()
	v, ok, err := NewSQLiteRepository(db).Get(ctx, "refresh_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "r1", v)
}

func TestDBErrorsWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, _, err := r.Get(ctx, "k")
	require.ErrorContains(t, err, "failed to get session[k]")

	err = r.Set(ctx, "k", "v")
	require.ErrorContains(t, err, "failed to set session[k]")

	err = r.Clear(ctx, "k")
	require.ErrorContains(t, err, "failed to clear session[k]")

	require.Error(t, r.SetAll(ctx, map[string]string{"k": "v"}))
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.SetAll(ctx, map[string]string{"a": "1", "b": "2"}))
	require.NoError(t, m.Clear(ctx, "a"))
	require.NoError(t, m.Clear(ctx, "a"))

	_, ok, _ := m.Get(ctx, "a")
	assert.False(t, ok)
	v, ok, _ := m.Get(ctx, "b")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
}
