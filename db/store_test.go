package db

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quickly-match/models"
	"github.com/danielhkuo/quickly-match/store"
	"github.com/danielhkuo/quickly-match/store/storetest"
)

func openSQLite(t *testing.T) *Store {
	t.Helper()
	st, err := Open(context.Background(), SQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return openSQLite(t) })
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("QUICKLY_MATCH_TEST_DB")
	if url == "" {
		t.Skip("QUICKLY_MATCH_TEST_DB not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		st, err := Open(context.Background(), Postgres, url)
		require.NoError(t, err)
		t.Cleanup(func() { _ = st.Close() })

		_, err = st.DB().Exec(`TRUNCATE session CASCADE`)
		require.NoError(t, err)
		return st
	})
}

func TestCreateSchema_Idempotent(t *testing.T) {
	st := openSQLite(t)
	require.NoError(t, CreateSchema(context.Background(), st.DB(), SQLite))
	require.NoError(t, CreateSchema(context.Background(), st.DB(), SQLite))
}

func TestHealthCheck(t *testing.T) {
	st := openSQLite(t)
	assert.NoError(t, st.HealthCheck(context.Background()))
}

func TestGetSession_CorruptedConfig(t *testing.T) {
	st := openSQLite(t)
	_, err := st.DB().Exec(`
		INSERT INTO session (id, group_id, status, energy_level, round_number, config, created_at)
		VALUES ('bad', 'g', 'active', 'low', 1, '{not json', 0)
	`)
	require.NoError(t, err)

	_, err = st.GetSession(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrSessionNotFound)
	assert.NotErrorIs(t, err, models.ErrStoreUnavailable)
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, Postgres.Name, d.Name)

	d, err = DialectFor("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, SQLite.Name, d.Name)

	_, err = DialectFor("mysql")
	assert.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t,
		"file:data/app.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate",
		sqliteDSN("./data/app.db"))
	assert.Contains(t, sqliteDSN("file:x.db?cache=shared"), "x.db?cache=shared&_pragma=")
}

func TestErrorClassification(t *testing.T) {
	dup := &pq.Error{Code: "23505"}
	assert.True(t, isUniqueViolation(dup))
	assert.False(t, isUnavailable(dup))

	down := &pq.Error{Code: "08006"}
	assert.True(t, isUnavailable(down))
	assert.ErrorIs(t, wrapErr("query session", down), models.ErrStoreUnavailable)

	plain := errors.New("syntax error")
	assert.False(t, isUniqueViolation(plain))
	err := wrapErr("query session", plain)
	assert.ErrorIs(t, err, plain)
	assert.NotErrorIs(t, err, models.ErrStoreUnavailable)
}
