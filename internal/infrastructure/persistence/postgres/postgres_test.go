package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfboard/cfboard/internal/domain/shared"
	"github.com/cfboard/cfboard/internal/domain/student"
)

func TestConfig_PoolConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "postgres://u:p%40ss@db:6543/x?sslmode=disable"
	cfg.MaxConns = 7
	cfg.MaxConnIdleTime = 0

	pc, err := cfg.PoolConfig()
	require.NoError(t, err)
	assert.Equal(t, "db", pc.ConnConfig.Host)
	assert.Equal(t, uint16(6543), pc.ConnConfig.Port)
	assert.Equal(t, "p@ss", pc.ConnConfig.Password)
	assert.Equal(t, int32(7), pc.MaxConns)
	assert.Equal(t, time.Hour, pc.MaxConnLifetime)
	assert.Equal(t, cfg.URL, cfg.ConnString())

	_, err = Config{URL: "::bad"}.PoolConfig()
	assert.Error(t, err)
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db/x", MigrateURL("postgres://u:p@db/x"))
	assert.Equal(t, "pgx5://u:p@db/x", MigrateURL("postgresql://u:p@db/x"))
	assert.Equal(t, "pgx5://u:p@db/x", MigrateURL("pgx5://u:p@db/x"))
}

func TestMigrationFiles_Embedded(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestIsUniqueViolation_Plain(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(assert.AnError))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
}

// TestRosterRepository_Integration needs a disposable database in
// CFBOARD_TEST_DATABASE_URL.
func TestRosterRepository_Integration(t *testing.T) {
	dbURL := os.Getenv("CFBOARD_TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("CFBOARD_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	cfg := Config{URL: dbURL}
	migrator, err := NewMigrator(cfg)
	require.NoError(t, err)
	require.NoError(t, migrator.Migrate())
	status, err := migrator.Status()
	require.NoError(t, err)
	assert.Equal(t, uint(1), status.Version)
	require.NoError(t, migrator.Close())

	conn, err := NewConnection(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	_, err = conn.Pool().Exec(ctx, "TRUNCATE tracked_students")
	require.NoError(t, err)

	repo := NewRosterRepository(conn)

	require.NoError(t, repo.Add(ctx, "tourist"))
	require.NoError(t, repo.Add(ctx, "Petr"))
	assert.ErrorIs(t, repo.Add(ctx, "TOURIST"), shared.ErrAlreadyExists)
	assert.ErrorIs(t, repo.Add(ctx, "x"), shared.ErrInvalidFormat)

	handles, err := repo.Handles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []student.Handle{"tourist", "Petr"}, handles)

	require.NoError(t, repo.Remove(ctx, "petr"))
	assert.ErrorIs(t, repo.Remove(ctx, "petr"), shared.ErrNotFound)

	handles, err = repo.Handles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []student.Handle{"tourist"}, handles)

	added, err := repo.Import(ctx, []student.Handle{"TOURIST", "jiangly", "Benq"})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	_, err = repo.Import(ctx, []student.Handle{"ecnerwala", "x"})
	assert.ErrorIs(t, err, shared.ErrInvalidFormat)

	handles, err = repo.Handles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []student.Handle{"tourist", "jiangly", "Benq"}, handles)
}
