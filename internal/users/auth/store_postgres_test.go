// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/migration"
	"github.com/taibuivan/quill/internal/platform/postgres"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/users/auth"
)

var (
	testPoolOnce sync.Once
	testPool     *pgxpool.Pool
	testPoolErr  error
)

// postgresRepository connects to TEST_DATABASE_URL, migrates it once and
// returns a repository over an emptied schema. Skips when no database is set.
func postgresRepository(t *testing.T) (*auth.PostgresUserRepository, *pgxpool.Pool) {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("skipping: TEST_DATABASE_URL not set")
	}

	testPoolOnce.Do(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		if testPoolErr = migration.RunUp(dsn, "", false, logger); testPoolErr != nil {
			return
		}
		testPool, testPoolErr = postgres.NewPool(context.Background(), dsn, logger)
	})
	require.NoError(t, testPoolErr)

	_, err := testPool.Exec(context.Background(),
		"TRUNCATE content.comment, content.post, users.account RESTART IDENTITY CASCADE")
	require.NoError(t, err)

	return auth.NewUserRepository(testPool), testPool
}

func createUser(t *testing.T, repo *auth.PostgresUserRepository, email string) *auth.User {
	t.Helper()
	user := &auth.User{
		Email:            email,
		Name:             "Ada",
		Role:             sec.RoleUser,
		ExternalIdentity: &auth.ExternalIdentity{Provider: "google", ID: "g-" + email},
	}
	require.NoError(t, repo.Create(context.Background(), user))
	require.NotZero(t, user.ID)
	return user
}

/*
TestPostgresUserRepository_SaveGuardsWithdrawnRows never revives a withdrawn row
but accepts a save that keeps it withdrawn.
*/
func TestPostgresUserRepository_SaveGuardsWithdrawnRows(t *testing.T) {
	repo, _ := postgresRepository(t)
	ctx := context.Background()
	user := createUser(t, repo, "ada@example.com")

	// 1. Withdrawal itself is a save that keeps the row withdrawn
	user.MarkWithdrawn(time.Now())
	require.NoError(t, repo.Save(ctx, user))

	user.Name = "Still withdrawn"
	require.NoError(t, repo.Save(ctx, user))

	// 2. Reviving it is refused
	revived := *user
	revived.Role = sec.RoleUser
	revived.DeletedAt = nil
	assert.True(t, errors.Is(repo.Save(ctx, &revived), auth.ErrAccountWithdrawn))

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, sec.RoleWithdrawn, stored.Role)
	assert.NotNil(t, stored.DeletedAt)

	// 3. Withdrawn rows are invisible to email lookups, so the address is free again
	_, err = repo.FindByEmail(ctx, "ada@example.com")
	assert.True(t, apperr.IsNotFound(err))
	createUser(t, repo, "ada@example.com")

	// 4. Unknown ids are not found rather than withdrawn
	assert.True(t, apperr.IsNotFound(repo.Save(ctx, &auth.User{ID: 999_999, Role: sec.RoleUser})))
}

/*
TestPostgresUserRepository_CreateRejectsDuplicates maps unique violations.
*/
func TestPostgresUserRepository_CreateRejectsDuplicates(t *testing.T) {
	repo, _ := postgresRepository(t)
	createUser(t, repo, "ada@example.com")

	err := repo.Create(context.Background(), &auth.User{Email: "ada@example.com", Name: "Ada", Role: sec.RoleUser})
	assert.True(t, errors.Is(err, auth.ErrDuplicateIdentity))
}

/*
TestPostgresUserRepository_RefreshTokenWrites covers the live-only store and
the digest-conditioned clear.
*/
func TestPostgresUserRepository_RefreshTokenWrites(t *testing.T) {
	repo, _ := postgresRepository(t)
	ctx := context.Background()
	user := createUser(t, repo, "ada@example.com")
	expiresAt := time.Now().Add(time.Hour).Truncate(time.Microsecond)

	// 1. Stored as a digest and found by the raw value
	require.NoError(t, repo.UpdateRefreshToken(ctx, user.ID, "refresh-1", expiresAt))
	found, err := repo.FindByRefreshToken(ctx, "refresh-1")
	require.NoError(t, err)
	require.NotNil(t, found.RefreshToken)
	assert.Equal(t, sec.HashToken("refresh-1"), found.RefreshToken.Hash)
	assert.True(t, expiresAt.Equal(found.RefreshToken.ExpiresAt))

	// 2. Clearing a token that was replaced leaves the current one
	require.NoError(t, repo.UpdateRefreshToken(ctx, user.ID, "refresh-2", expiresAt))
	require.NoError(t, repo.ClearRefreshToken(ctx, user.ID, "refresh-1"))
	_, err = repo.FindByRefreshToken(ctx, "refresh-2")
	require.NoError(t, err)

	// 3. Clearing the current token removes the pair
	require.NoError(t, repo.ClearRefreshToken(ctx, user.ID, "refresh-2"))
	_, err = repo.FindByRefreshToken(ctx, "refresh-2")
	assert.True(t, apperr.IsNotFound(err))

	// 4. Revocation ignores the value
	require.NoError(t, repo.UpdateRefreshToken(ctx, user.ID, "refresh-3", expiresAt))
	require.NoError(t, repo.RevokeRefreshToken(ctx, user.ID))
	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.RefreshToken)

	// 5. A withdrawn row never receives a token
	stored.MarkWithdrawn(time.Now())
	require.NoError(t, repo.Save(ctx, stored))
	err = repo.UpdateRefreshToken(ctx, user.ID, "refresh-4", expiresAt)
	assert.True(t, errors.Is(err, auth.ErrAccountWithdrawn))
}

/*
TestPostgresUserRepository_GetSentinelConverges creates exactly one sentinel
when first accesses race.
*/
func TestPostgresUserRepository_GetSentinelConverges(t *testing.T) {
	repo, pool := postgresRepository(t)
	ctx := context.Background()

	const callers = 8
	ids := make([]int64, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sentinel, err := repo.GetSentinel(ctx)
			errs[i] = err
			if err == nil {
				ids[i] = sentinel.ID
			}
		}()
	}
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	var count int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM users.account WHERE issentinel").Scan(&count))
	assert.Equal(t, 1, count)

	sentinel, err := repo.GetSentinel(ctx)
	require.NoError(t, err)
	assert.Equal(t, auth.SentinelEmail, sentinel.Email)
	assert.True(t, sentinel.IsWithdrawn())
}

/*
TestPostgresUserRepository_LockByIDInTransaction reads through the bound
transaction and rolls back with it.
*/
func TestPostgresUserRepository_LockByIDInTransaction(t *testing.T) {
	repo, pool := postgresRepository(t)
	ctx := context.Background()
	user := createUser(t, repo, "ada@example.com")

	errRollback := errors.New("rollback")
	err := postgres.NewTransactor(pool).Run(ctx, postgres.TxNew, func(txContext context.Context) error {
		locked, err := repo.LockByID(txContext, user.ID)
		require.NoError(t, err)

		locked.MarkWithdrawn(time.Now())
		require.NoError(t, repo.Save(txContext, locked))
		return errRollback
	})
	require.ErrorIs(t, err, errRollback)

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, sec.RoleUser, stored.Role)
}
