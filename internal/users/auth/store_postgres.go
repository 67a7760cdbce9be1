// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/database/schema"
	"github.com/taibuivan/quill/internal/platform/dberr"
	"github.com/taibuivan/quill/internal/platform/postgres"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/pkg/pointer"
)

// userColumns is the select list understood by [scanUser].
var userColumns = strings.Join(schema.UserAccount.Columns(), ", ")

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to [apperr.AppError]
// types through [dberr.Wrap] to avoid leaking storage implementation details.
type PostgresUserRepository struct {
	pool postgres.DBTX
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool postgres.DBTX) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

func (repository *PostgresUserRepository) conn(context context.Context) postgres.DBTX {
	return postgres.Conn(context, repository.pool)
}

// FindByID retrieves an account by its identity, including withdrawn rows.
func (repository *PostgresUserRepository) FindByID(context context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users.account WHERE id = $1`

	user, err := scanUser(repository.conn(context).QueryRow(context, query, id))
	if err != nil {
		return nil, wrapLookup(err, "postgres_user_repo_find_by_id_failed")
	}
	return user, nil
}

/*
FindByEmail retrieves a live account by its unique email address.

Description: Soft-deleted accounts are filtered out; their addresses have been
anonymized anyway.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users.account WHERE email = $1 AND deletedat IS NULL`

	user, err := scanUser(repository.conn(context).QueryRow(context, query, email))
	if err != nil {
		return nil, wrapLookup(err, "postgres_user_repo_find_by_email_failed")
	}
	return user, nil
}

// FindByExternalIdentity retrieves the account linked to a provider-scoped id.
func (repository *PostgresUserRepository) FindByExternalIdentity(context context.Context, provider, externalID string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users.account WHERE snsprovider = $1 AND snsid = $2`

	user, err := scanUser(repository.conn(context).QueryRow(context, query, provider, externalID))
	if err != nil {
		return nil, wrapLookup(err, "postgres_user_repo_find_by_external_identity_failed")
	}
	return user, nil
}

// FindByRefreshToken retrieves the account whose stored digest matches refreshToken.
func (repository *PostgresUserRepository) FindByRefreshToken(context context.Context, refreshToken string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users.account WHERE refreshtokenhash = $1`

	user, err := scanUser(repository.conn(context).QueryRow(context, query, sec.HashToken(refreshToken)))
	if err != nil {
		return nil, wrapLookup(err, "postgres_user_repo_find_by_refresh_token_failed")
	}
	return user, nil
}

// LockByID retrieves an account with FOR UPDATE inside the bound transaction.
func (repository *PostgresUserRepository) LockByID(context context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users.account WHERE id = $1 FOR UPDATE`

	user, err := scanUser(repository.conn(context).QueryRow(context, query, id))
	if err != nil {
		return nil, wrapLookup(err, "postgres_user_repo_lock_by_id_failed")
	}
	return user, nil
}

/*
Create persists a new account into the users.account table.

Description: The identity column assigns the ID, which is written back to the
entity together with the stored timestamps.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: ErrDuplicateIdentity on a unique violation, or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (
			email, name, role, snsprovider, snsid, refreshtokenhash, refreshtokenexpiresat, deletedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, createdat, updatedat`

	provider, externalID := externalIdentityArgs(user.ExternalIdentity)
	tokenHash, tokenExpiresAt := refreshCredentialArgs(user.RefreshToken)

	err := repository.conn(context).QueryRow(context, query,
		user.Email,
		user.Name,
		string(user.Role),
		provider,
		externalID,
		tokenHash,
		tokenExpiresAt,
		user.DeletedAt,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return ErrDuplicateIdentity.WithCause(err)
		}
		return dberr.Wrap(err, "postgres_user_repo_create_failed")
	}

	return nil
}

/*
Save writes every mutable field of an existing account.

Description: A withdrawn row matches only when the saved role is WITHDRAWN as
well, so a stale copy of a live user can never overwrite a withdrawal.

Parameters:
  - context: context.Context
  - user: *User

Returns:
  - error: ErrAccountWithdrawn, apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) Save(context context.Context, user *User) error {
	const query = `
		UPDATE users.account SET
			email = $2,
			name = $3,
			role = $4,
			snsprovider = $5,
			snsid = $6,
			refreshtokenhash = $7,
			refreshtokenexpiresat = $8,
			deletedat = $9,
			updatedat = NOW()
		WHERE id = $1 AND (deletedat IS NULL OR $4::text = 'WITHDRAWN')
		RETURNING updatedat`

	provider, externalID := externalIdentityArgs(user.ExternalIdentity)
	tokenHash, tokenExpiresAt := refreshCredentialArgs(user.RefreshToken)

	err := repository.conn(context).QueryRow(context, query,
		user.ID,
		user.Email,
		user.Name,
		string(user.Role),
		provider,
		externalID,
		tokenHash,
		tokenExpiresAt,
		user.DeletedAt,
	).Scan(&user.UpdatedAt)

	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		if dberr.IsUniqueViolation(err) {
			return ErrDuplicateIdentity.WithCause(err)
		}
		return dberr.Wrap(err, "postgres_user_repo_save_failed")
	}

	// No row matched: either the id is unknown or the row is withdrawn.
	if _, lookupErr := repository.FindByID(context, user.ID); lookupErr != nil {
		return lookupErr
	}
	return ErrAccountWithdrawn
}

// UpdateRefreshToken stores the digest of refreshToken on a live account.
func (repository *PostgresUserRepository) UpdateRefreshToken(context context.Context, userID int64, refreshToken string, expiresAt time.Time) error {
	const query = `
		UPDATE users.account
		SET refreshtokenhash = $2, refreshtokenexpiresat = $3, updatedat = NOW()
		WHERE id = $1 AND deletedat IS NULL`

	tag, err := repository.conn(context).Exec(context, query, userID, sec.HashToken(refreshToken), expiresAt)
	if err != nil {
		return dberr.Wrap(err, "postgres_user_repo_update_refresh_token_failed")
	}

	if tag.RowsAffected() == 0 {
		return ErrAccountWithdrawn
	}
	return nil
}

// ClearRefreshToken nulls both refresh columns while the stored digest matches refreshToken.
func (repository *PostgresUserRepository) ClearRefreshToken(context context.Context, userID int64, refreshToken string) error {
	const query = `
		UPDATE users.account
		SET refreshtokenhash = NULL, refreshtokenexpiresat = NULL, updatedat = NOW()
		WHERE id = $1 AND refreshtokenhash = $2`

	if _, err := repository.conn(context).Exec(context, query, userID, sec.HashToken(refreshToken)); err != nil {
		return dberr.Wrap(err, "postgres_user_repo_clear_refresh_token_failed")
	}
	return nil
}

// RevokeRefreshToken nulls both refresh columns unconditionally. Revoking an empty pair is a no-op.
func (repository *PostgresUserRepository) RevokeRefreshToken(context context.Context, userID int64) error {
	const query = `
		UPDATE users.account
		SET refreshtokenhash = NULL, refreshtokenexpiresat = NULL, updatedat = NOW()
		WHERE id = $1 AND refreshtokenhash IS NOT NULL`

	if _, err := repository.conn(context).Exec(context, query, userID); err != nil {
		return dberr.Wrap(err, "postgres_user_repo_revoke_refresh_token_failed")
	}
	return nil
}

/*
GetSentinel returns the reserved owner of withdrawn content.

Description: The row is identified by the issentinel flag, backed by a partial
unique index, so concurrent first accesses converge on a single row.

Parameters:
  - context: context.Context

Returns:
  - *User: The sentinel account
  - error: Database errors
*/
func (repository *PostgresUserRepository) GetSentinel(context context.Context) (*User, error) {
	selectQuery := `SELECT ` + userColumns + ` FROM users.account WHERE issentinel`

	user, err := scanUser(repository.conn(context).QueryRow(context, selectQuery))
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, dberr.Wrap(err, "postgres_user_repo_get_sentinel_failed")
	}

	const insertQuery = `
		INSERT INTO users.account (email, name, role, issentinel, deletedat)
		VALUES ($1, $2, $3, TRUE, NOW())
		ON CONFLICT (issentinel) WHERE issentinel DO NOTHING`

	if _, err := repository.conn(context).Exec(context, insertQuery,
		SentinelEmail, SentinelName, string(sec.RoleWithdrawn),
	); err != nil {
		return nil, dberr.Wrap(err, "postgres_user_repo_create_sentinel_failed")
	}

	user, err = scanUser(repository.conn(context).QueryRow(context, selectQuery))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_user_repo_get_sentinel_failed")
	}
	return user, nil
}

// # Row Mapping

// scanUser hydrates a [User] from a row selected with userColumns.
func scanUser(row pgx.Row) (*User, error) {
	var (
		user           User
		provider       *string
		externalID     *string
		tokenHash      *string
		tokenExpiresAt *time.Time
	)

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&provider,
		&externalID,
		&tokenHash,
		&tokenExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	if provider != nil && externalID != nil {
		user.ExternalIdentity = &ExternalIdentity{Provider: pointer.Val(provider), ID: pointer.Val(externalID)}
	}
	if tokenHash != nil && tokenExpiresAt != nil {
		user.RefreshToken = &RefreshCredential{Hash: pointer.Val(tokenHash), ExpiresAt: pointer.Val(tokenExpiresAt)}
	}

	return &user, nil
}

func externalIdentityArgs(identity *ExternalIdentity) (provider, externalID *string) {
	if identity == nil {
		return nil, nil
	}
	return &identity.Provider, &identity.ID
}

func refreshCredentialArgs(credential *RefreshCredential) (hash *string, expiresAt *time.Time) {
	if credential == nil {
		return nil, nil
	}
	return &credential.Hash, &credential.ExpiresAt
}

// wrapLookup maps a missing row to a typed NOT_FOUND, everything else through dberr.
func wrapLookup(err error, action string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("User")
	}
	return dberr.Wrap(err, action)
}
