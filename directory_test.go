package auth_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/armonia-cms/auth"
)

const sqliteCreateUsers = `CREATE TABLE users (
    id TEXT NOT NULL PRIMARY KEY,
    email TEXT NOT NULL,
    display_name TEXT,
    user_role TEXT NOT NULL DEFAULT 'viewer',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP,
    deleted_at TIMESTAMP NULL
);`

const sqliteCreateEmailIndex = `CREATE UNIQUE INDEX users_email_unique ON users (LOWER(email));`

func setupUsersRepo(t *testing.T) auth.Users {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec(sqliteCreateUsers)
	require.NoError(t, err)
	_, err = bunDB.Exec(sqliteCreateEmailIndex)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = bunDB.Close()
		_ = db.Close()
	})

	return auth.NewUsersRepository(bunDB)
}

func TestUsersGetOrCreateFirstSignIn(t *testing.T) {
	repo := setupUsersRepo(t)
	ctx := context.Background()

	created, err := repo.GetOrCreate(ctx, &auth.User{
		Email:       "Maria@Example.com",
		DisplayName: "Maria",
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "maria@example.com", created.Email, "address is normalized on create")
	assert.Equal(t, auth.RoleViewer, created.Role, "first sign-in defaults to viewer")
	assert.Equal(t, "Maria", created.DisplayName)
}

func TestUsersGetOrCreateReturnsExisting(t *testing.T) {
	repo := setupUsersRepo(t)
	ctx := context.Background()

	first, err := repo.GetOrCreate(ctx, &auth.User{Email: "maria@example.com"})
	require.NoError(t, err)

	second, err := repo.GetOrCreate(ctx, &auth.User{Email: "MARIA@example.COM"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "case variants resolve to the same record")
	assert.Equal(t, first.Email, second.Email)
}

func TestUsersCreateDuplicateEmail(t *testing.T) {
	repo := setupUsersRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, &auth.User{Email: "maria@example.com"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &auth.User{
		ID:    uuid.New(),
		Email: "Maria@Example.com",
	})
	require.Error(t, err)
	assert.True(t, auth.IsDuplicateEmail(err))
}

func TestUsersFindByEmail(t *testing.T) {
	repo := setupUsersRepo(t)
	ctx := context.Background()

	created, err := repo.GetOrCreate(ctx, &auth.User{Email: "maria@example.com"})
	require.NoError(t, err)

	t.Run("case insensitive lookup", func(t *testing.T) {
		found, err := repo.FindByEmail(ctx, "  MARIA@Example.com ")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
	})

	t.Run("unknown address", func(t *testing.T) {
		_, err := repo.FindByEmail(ctx, "nobody@example.com")
		require.Error(t, err)
		assert.True(t, repository.IsRecordNotFound(err))
	})
}

func TestUsersSetRole(t *testing.T) {
	repo := setupUsersRepo(t)
	ctx := context.Background()

	created, err := repo.GetOrCreate(ctx, &auth.User{Email: "maria@example.com"})
	require.NoError(t, err)
	require.Equal(t, auth.RoleViewer, created.Role)

	updated, err := repo.SetRole(ctx, created.ID, auth.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, updated.Role)

	t.Run("write is persisted", func(t *testing.T) {
		found, err := repo.FindByEmail(ctx, created.Email)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, found.Role)
	})

	t.Run("idempotent re-apply", func(t *testing.T) {
		again, err := repo.SetRole(ctx, created.ID, auth.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, again.Role)
	})
}

func TestUsersDeterministicID(t *testing.T) {
	ctx := context.Background()

	first, err := setupUsersRepo(t).GetOrCreate(ctx, &auth.User{Email: "maria@example.com"})
	require.NoError(t, err)

	second, err := setupUsersRepo(t).GetOrCreate(ctx, &auth.User{Email: "Maria@Example.com"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "the id is derived from the normalized address")
}
