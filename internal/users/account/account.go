// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account owns the terminal step of a user's lifecycle: withdrawal.

Withdrawal first ends the user's session in its own committed transaction,
then anonymizes the account and hands all of its posts and comments to the
sentinel owner in a second transaction. If the second part fails the user is
logged out but still active, and may log in again to retry.
*/
package account

import (
	"context"
	"net/http"

	"github.com/taibuivan/quill/internal/content"
	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/postgres"
	"github.com/taibuivan/quill/internal/users/auth"
)

// ErrWithdrawalFailed wraps any failure after the session was invalidated.
var ErrWithdrawalFailed = apperr.New(
	http.StatusInternalServerError,
	"WITHDRAWAL_FAILED",
	"You have been logged out but the withdrawal did not complete. Please log in and retry",
)

// ParamUserID names the account path parameter.
const ParamUserID = "userID"

// # Collaborators

// SessionRevoker ends sessions in transactions of its own. Satisfied by [auth.Service].
type SessionRevoker interface {
	Logout(ctx context.Context, refreshToken string) error
	RevokeSessions(ctx context.Context, userID int64) error
}

// UserStore is the part of [auth.UserRepository] withdrawal writes through.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (*auth.User, error)
	LockByID(ctx context.Context, id int64) (*auth.User, error)
	Save(ctx context.Context, user *auth.User) error
	GetSentinel(ctx context.Context) (*auth.User, error)
}

// ContentStore counts and moves authored content. Satisfied by
// [content.PostgresRepository].
type ContentStore interface {
	CountByAuthor(ctx context.Context, authorID int64, mode content.QueryMode) (content.Reassignment, error)
	ReassignAuthor(ctx context.Context, fromAuthorID, toAuthorID int64, mode content.QueryMode) (content.Reassignment, error)
}

// Transactor runs a unit of work in a transaction. Satisfied by [postgres.Transactor].
type Transactor interface {
	Run(ctx context.Context, mode postgres.TxMode, work func(ctx context.Context) error) error
}
