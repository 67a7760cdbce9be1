// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
//
// Lookups return an [apperr.AppError] with code NOT_FOUND when no record
// matches; callers branch on it with [apperr.IsNotFound]. Every method runs on
// the transaction bound to the context when there is one.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID, withdrawn or not.

		Parameters:
		  - context: context.Context
		  - id: int64

		Returns:
		  - *User: Hydrated entity
		  - error: NOT_FOUND or database retrieval failures
	*/
	FindByID(context context.Context, id int64) (*User, error)

	/*
		FindByEmail returns the live account registered with the given email.

		Parameters:
		  - context: context.Context
		  - email: string (normalized with [NormalizeEmail])

		Returns:
		  - *User: Hydrated entity
		  - error: NOT_FOUND or database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByExternalIdentity returns the account linked to a provider-scoped id.

		Parameters:
		  - context: context.Context
		  - provider: string
		  - externalID: string

		Returns:
		  - *User: Hydrated entity
		  - error: NOT_FOUND or database retrieval failures
	*/
	FindByExternalIdentity(context context.Context, provider, externalID string) (*User, error)

	/*
		FindByRefreshToken returns the account whose stored refresh token matches.

		Parameters:
		  - context: context.Context
		  - refreshToken: string (raw value as presented by the client)

		Returns:
		  - *User: Hydrated entity
		  - error: NOT_FOUND or database retrieval failures
	*/
	FindByRefreshToken(context context.Context, refreshToken string) (*User, error)

	/*
		LockByID returns the account and holds a row lock until the bound
		transaction ends.

		Parameters:
		  - context: context.Context (must carry a transaction)
		  - id: int64

		Returns:
		  - *User: Hydrated entity
		  - error: NOT_FOUND or database retrieval failures
	*/
	LockByID(context context.Context, id int64) (*User, error)

	/*
		Create persists a brand-new account and assigns its ID.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: [ErrDuplicateIdentity] on a unique violation, or persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		Save writes every mutable field of an existing account.

		A withdrawn row only accepts a save that keeps it withdrawn.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: [ErrAccountWithdrawn] when the save would revive a withdrawn row
	*/
	Save(context context.Context, user *User) error

	/*
		UpdateRefreshToken replaces the stored refresh token of a live account.

		Parameters:
		  - context: context.Context
		  - userID: int64
		  - refreshToken: string (raw value; only its digest is stored)
		  - expiresAt: time.Time

		Returns:
		  - error: [ErrAccountWithdrawn] when no live account matched
	*/
	UpdateRefreshToken(context context.Context, userID int64, refreshToken string, expiresAt time.Time) error

	/*
		ClearRefreshToken removes the stored refresh token and its expiry, but
		only while the stored digest still matches refreshToken. A token that
		was replaced in the meantime survives.

		Parameters:
		  - context: context.Context
		  - userID: int64
		  - refreshToken: string (raw value as presented by the client)

		Returns:
		  - error: Persistence failures
	*/
	ClearRefreshToken(context context.Context, userID int64, refreshToken string) error

	/*
		RevokeRefreshToken removes whatever refresh token the account holds.

		Parameters:
		  - context: context.Context
		  - userID: int64

		Returns:
		  - error: Persistence failures
	*/
	RevokeRefreshToken(context context.Context, userID int64) error

	/*
		GetSentinel returns the reserved owner of withdrawn users' content,
		creating it on first access.

		Parameters:
		  - context: context.Context

		Returns:
		  - *User: The sentinel account
		  - error: Persistence failures
	*/
	GetSentinel(context context.Context) (*User, error)
}
