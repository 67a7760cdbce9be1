// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/quill/internal/content"
	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/ctxutil"
	"github.com/taibuivan/quill/internal/platform/postgres"
	"github.com/taibuivan/quill/internal/users/auth"
)

// # Service Layer

// Service coordinates account withdrawal.
type Service struct {
	sessions   SessionRevoker
	users      UserStore
	content    ContentStore
	transactor Transactor
	now        func() time.Time
}

// NewService constructs a new [Service] with its dependencies.
func NewService(
	sessions SessionRevoker,
	users UserStore,
	contentStore ContentStore,
	transactor Transactor,
) *Service {
	return &Service{
		sessions:   sessions,
		users:      users,
		content:    contentStore,
		transactor: transactor,
		now:        time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (service *Service) WithClock(now func() time.Time) *Service {
	service.now = now
	return service
}

/*
Withdraw ends the user's session, anonymizes the account and reassigns its content.

Description: Runs in two phases. The session phase commits on its own, so the
user is logged out even when the anonymization phase fails. The anonymization
phase is a single transaction holding the user row lock: either the account is
withdrawn and every post and comment (soft-deleted ones included) belongs to
the sentinel, or nothing changed.

Parameters:
  - ctx: context.Context
  - userID: int64
  - refreshToken: string (the caller's cookie value; may be empty)

Returns:
  - error: apperr.NotFound, auth.ErrAccountWithdrawn, or ErrWithdrawalFailed wrapping the cause
*/
func (service *Service) Withdraw(ctx context.Context, userID int64, refreshToken string) error {
	logger := ctxutil.GetLogger(ctx)

	// 1. Invalidate the session first
	if err := service.sessions.Logout(ctx, refreshToken); err != nil {
		return ErrWithdrawalFailed.WithCause(fmt.Errorf("account_service_withdraw_logout_failed: %w", err))
	}
	if err := service.sessions.RevokeSessions(ctx, userID); err != nil {
		return ErrWithdrawalFailed.WithCause(fmt.Errorf("account_service_withdraw_revoke_failed: %w", err))
	}

	// 2. Anonymize and reassign as one unit
	var moved content.Reassignment
	err := service.transactor.Run(ctx, postgres.TxNew, func(txContext context.Context) error {
		user, err := service.users.LockByID(txContext, userID)
		if err != nil {
			return err
		}

		if user.IsWithdrawn() {
			return auth.ErrAccountWithdrawn
		}

		user.MarkWithdrawn(service.now())
		if err := service.users.Save(txContext, user); err != nil {
			return fmt.Errorf("account_service_withdraw_save_failed: %w", err)
		}

		sentinel, err := service.users.GetSentinel(txContext)
		if err != nil {
			return fmt.Errorf("account_service_withdraw_sentinel_failed: %w", err)
		}

		moved, err = service.content.ReassignAuthor(txContext, userID, sentinel.ID, content.IncludeDeleted)
		if err != nil {
			return fmt.Errorf("account_service_withdraw_reassign_failed: %w", err)
		}

		// Nothing the user ever wrote may stay attributed to them.
		left, err := service.content.CountByAuthor(txContext, userID, content.IncludeDeleted)
		if err != nil {
			return fmt.Errorf("account_service_withdraw_count_failed: %w", err)
		}
		if left.Posts > 0 || left.Comments > 0 {
			return fmt.Errorf("account_service_withdraw_content_left: %d posts, %d comments", left.Posts, left.Comments)
		}

		return nil
	})

	if err != nil {
		if apperr.IsNotFound(err) || errors.Is(err, auth.ErrAccountWithdrawn) {
			return err
		}

		logger.ErrorContext(ctx, "user_withdrawal_failed",
			slog.Int64("user_id", userID),
			slog.Any("error", err),
		)
		return ErrWithdrawalFailed.WithCause(err)
	}

	logger.WarnContext(ctx, "user_withdrawn",
		slog.Int64("user_id", userID),
		slog.Int64("posts_reassigned", moved.Posts),
		slog.Int64("comments_reassigned", moved.Comments),
	)

	return nil
}

// ContentSummary is an account's authored content counted in both query modes.
type ContentSummary struct {
	User  *auth.User
	Live  content.Reassignment
	Total content.Reassignment
}

/*
Summarize counts the posts and comments attributed to an account.

Parameters:
  - context: context.Context
  - userID: int64

Returns:
  - *ContentSummary: Live and total counts
  - error: apperr.NotFound or storage errors
*/
func (service *Service) Summarize(context context.Context, userID int64) (*ContentSummary, error) {
	user, err := service.users.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	live, err := service.content.CountByAuthor(context, userID, content.LiveOnly)
	if err != nil {
		return nil, fmt.Errorf("account_service_summarize_live_failed: %w", err)
	}
	total, err := service.content.CountByAuthor(context, userID, content.IncludeDeleted)
	if err != nil {
		return nil, fmt.Errorf("account_service_summarize_total_failed: %w", err)
	}

	return &ContentSummary{User: user, Live: live, Total: total}, nil
}
