package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/ledger/ledgertest"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return repo
}

func TestSQLiteStoreContract(t *testing.T) {
	suite.Run(t, &ledgertest.StoreSuite{
		NewStore: func(t *testing.T) ledger.Store { return newTestRepo(t) },
	})
}

func TestNewSQLiteRepository_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "app.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	assert.NoError(t, repo.Ping(context.Background()))
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "app.db")

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	u := core.User{ID: core.NewID(), Email: "ana@example.com", Name: "Ana", PasswordHash: "x", CreatedAt: time.Now()}
	require.NoError(t, repo.CreateUser(ctx, u))
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.GetUserByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestResetDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "app.db")

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	u := core.User{ID: core.NewID(), Email: "bob@example.com", Name: "Bob", PasswordHash: "x", CreatedAt: time.Now()}
	require.NoError(t, repo.CreateUser(ctx, u))
	require.NoError(t, repo.Close())

	require.NoError(t, ResetDatabase(path))

	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	_, err = repo.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, core.ErrUserNotFound)
}

func TestTimestampsRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 9, 8, 7, 6, 5, time.UTC)
	parsed, err := parseTime(formatTime(ts))
	require.NoError(t, err)
	assert.True(t, ts.Equal(parsed))

	// lexical order must follow time order
	assert.Less(t, formatTime(ts), formatTime(ts.Add(time.Nanosecond)))
}
