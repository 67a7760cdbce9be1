// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/ctxutil"
	"github.com/taibuivan/quill/internal/platform/postgres"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/platform/validate"
	"github.com/taibuivan/quill/internal/users/oauth"
)

// # Contracts & Types

// TokenIssuer mints signed tokens. Satisfied by [sec.TokenCodec].
type TokenIssuer interface {
	Issue(subject int64, role sec.Role, kind sec.TokenKind, validity time.Duration) (string, error)
}

// IdentityProvider turns an authorization code into a verified profile.
// Satisfied by [oauth.GoogleProvider].
type IdentityProvider interface {
	ExchangeCodeForProfile(ctx context.Context, code string) (*oauth.Profile, error)
}

// Transactor runs a unit of work in a transaction. Satisfied by [postgres.Transactor].
type Transactor interface {
	Run(ctx context.Context, mode postgres.TxMode, work func(ctx context.Context) error) error
}

// Settings carries the token validity windows.
type Settings struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// Service implements the session lifecycle: login, renewal and logout.
//
// # Consistency
//
// Every decision is taken on persisted state read in the same call. Nothing
// about a session is cached in memory.
type Service struct {
	userRepository   UserRepository
	identityProvider IdentityProvider
	tokenIssuer      TokenIssuer
	transactor       Transactor
	settings         Settings
	now              func() time.Time
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	provider IdentityProvider,
	issuer TokenIssuer,
	transactor Transactor,
	settings Settings,
) *Service {
	return &Service{
		userRepository:   userRepo,
		identityProvider: provider,
		tokenIssuer:      issuer,
		transactor:       transactor,
		settings:         settings,
		now:              time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (service *Service) WithClock(now func() time.Time) *Service {
	service.now = now
	return service
}

// LoginSession represents a successfully established user session.
type LoginSession struct {
	AccessToken           string
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	User                  *User
}

// # Authentication Flow

/*
LoginWithCode exchanges an authorization code for a profile and logs it in.

Parameters:
  - context: context.Context
  - code: string

Returns:
  - *LoginSession: Token pair and the account snapshot
  - error: oauth.ErrInvalidGrant, oauth.ErrUpstreamUnavailable, ErrAccountWithdrawn or storage errors
*/
func (service *Service) LoginWithCode(context context.Context, code string) (*LoginSession, error) {
	profile, err := service.identityProvider.ExchangeCodeForProfile(context, code)
	if err != nil {
		return nil, err
	}
	return service.Login(context, *profile)
}

/*
Login finds or creates the account for profile and issues a fresh token pair.

Description: The account is keyed on the normalized email. The refresh token is
stored before this call returns, so it can be renewed immediately.

Parameters:
  - context: context.Context
  - profile: oauth.Profile

Returns:
  - *LoginSession: Transport-ready session identifiers
  - error: ErrAccountWithdrawn, oauth.ErrInvalidGrant or internal failures
*/
func (service *Service) Login(context context.Context, profile oauth.Profile) (*LoginSession, error) {
	// The email keys the account, so a profile without a usable one cannot log in.
	email := NormalizeEmail(profile.Email)
	if err := (&validate.Validator{}).Email(FieldEmail, email).Err(); err != nil {
		return nil, oauth.ErrInvalidGrant.WithCause(err)
	}

	user, err := service.findOrCreate(context, profile, email)
	if err != nil {
		return nil, err
	}

	// Re-login must never resurrect a withdrawn identity.
	if user.IsWithdrawn() {
		return nil, ErrAccountWithdrawn
	}

	accessToken, err := service.tokenIssuer.Issue(user.ID, user.Role, sec.TokenAccess, service.settings.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	refreshToken, err := service.tokenIssuer.Issue(user.ID, user.Role, sec.TokenRefresh, service.settings.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	// Matches live rows only; a concurrent withdrawal makes this fail.
	expiresAt := service.now().Add(service.settings.RefreshTokenTTL)
	if err := service.userRepository.UpdateRefreshToken(context, user.ID, refreshToken, expiresAt); err != nil {
		if errors.Is(err, ErrAccountWithdrawn) {
			return nil, ErrAccountWithdrawn
		}
		return nil, fmt.Errorf("auth_service_store_refresh_token_failed: %w", err)
	}
	user.RefreshToken = &RefreshCredential{Hash: sec.HashToken(refreshToken), ExpiresAt: expiresAt}

	ctxutil.GetLogger(context).InfoContext(context, "auth_login_succeeded",
		slog.Int64("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)

	return &LoginSession{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: expiresAt,
		User:                  user,
	}, nil
}

// findOrCreate resolves the account for email, creating it on first login.
func (service *Service) findOrCreate(context context.Context, profile oauth.Profile, email string) (*User, error) {
	user, err := service.userRepository.FindByEmail(context, email)
	if err == nil {
		return service.linkIdentity(context, user, profile)
	}
	if !apperr.IsNotFound(err) {
		return nil, fmt.Errorf("auth_service_find_user_failed: %w", err)
	}

	candidate := &User{
		Email: email,
		Name:  displayName(profile, email),
		Role:  sec.RoleUser,
	}

	// The external identity is recorded only if no other account owns it.
	if identity := externalIdentityOf(profile); identity != nil {
		owner, lookupErr := service.userRepository.FindByExternalIdentity(context, identity.Provider, identity.ID)
		switch {
		case apperr.IsNotFound(lookupErr):
			candidate.ExternalIdentity = identity
		case lookupErr != nil:
			return nil, fmt.Errorf("auth_service_find_identity_failed: %w", lookupErr)
		case owner.IsWithdrawn():
			return nil, ErrAccountWithdrawn
		default:
			ctxutil.GetLogger(context).WarnContext(context, "auth_external_identity_conflict",
				slog.String("provider", identity.Provider),
			)
		}
	}

	err = service.userRepository.Create(context, candidate)
	if err == nil {
		ctxutil.GetLogger(context).InfoContext(context, "auth_user_created", slog.Int64("user_id", candidate.ID))
		return candidate, nil
	}

	// A concurrent login created the same account first.
	if errors.Is(err, ErrDuplicateIdentity) {
		user, lookupErr := service.userRepository.FindByEmail(context, email)
		if lookupErr != nil {
			return nil, fmt.Errorf("auth_service_find_user_after_conflict_failed: %w", lookupErr)
		}
		return user, nil
	}

	return nil, fmt.Errorf("auth_service_create_user_failed: %w", err)
}

// linkIdentity records the provider identity on an account that has none yet.
func (service *Service) linkIdentity(context context.Context, user *User, profile oauth.Profile) (*User, error) {
	identity := externalIdentityOf(profile)
	if identity == nil || user.ExternalIdentity != nil || user.IsWithdrawn() {
		return user, nil
	}

	if _, err := service.userRepository.FindByExternalIdentity(context, identity.Provider, identity.ID); !apperr.IsNotFound(err) {
		return user, nil
	}

	user.ExternalIdentity = identity
	if err := service.userRepository.Save(context, user); err != nil {
		if errors.Is(err, ErrAccountWithdrawn) {
			return nil, ErrAccountWithdrawn
		}
		return nil, fmt.Errorf("auth_service_link_identity_failed: %w", err)
	}

	return user, nil
}

// # Session Management

/*
RenewAccessToken mints a new access token from a stored refresh token.

Description: The refresh token is not rotated. An expired stored token is
cleared before the error is returned.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - string: New access token
  - error: ErrInvalidRefreshToken or ErrRefreshTokenExpired
*/
func (service *Service) RenewAccessToken(context context.Context, refreshToken string) (string, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return "", ErrInvalidRefreshToken
	}

	user, err := service.userRepository.FindByRefreshToken(context, refreshToken)
	if err != nil {
		if apperr.IsNotFound(err) {
			return "", ErrInvalidRefreshToken
		}
		return "", fmt.Errorf("auth_service_find_refresh_token_failed: %w", err)
	}

	if user.IsWithdrawn() {
		return "", ErrInvalidRefreshToken
	}

	if !user.HasLiveRefreshToken(service.now()) {
		// A login may have stored a newer token since the lookup; that one survives.
		if err := service.userRepository.ClearRefreshToken(context, user.ID, refreshToken); err != nil {
			return "", fmt.Errorf("auth_service_clear_expired_refresh_token_failed: %w", err)
		}
		ctxutil.GetLogger(context).InfoContext(context, "auth_refresh_expired", slog.Int64("user_id", user.ID))
		return "", ErrRefreshTokenExpired
	}

	accessToken, err := service.tokenIssuer.Issue(user.ID, user.Role, sec.TokenAccess, service.settings.AccessTokenTTL)
	if err != nil {
		return "", fmt.Errorf("auth_service_refresh_access_token_failed: %w", err)
	}

	return accessToken, nil
}

/*
Logout clears the stored refresh token that matches refreshToken.

Description: Runs in its own transaction, so the logout commits even when the
caller later fails. Unknown or empty tokens are a successful no-op, and a token
stored by a later login is left alone.

Parameters:
  - ctx: context.Context
  - refreshToken: string

Returns:
  - error: Storage failures only
*/
func (service *Service) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}

	return service.transactor.Run(ctx, postgres.TxNew, func(txContext context.Context) error {
		user, err := service.userRepository.FindByRefreshToken(txContext, refreshToken)
		if err != nil {
			if apperr.IsNotFound(err) {
				return nil
			}
			return fmt.Errorf("auth_service_logout_lookup_failed: %w", err)
		}

		if err := service.userRepository.ClearRefreshToken(txContext, user.ID, refreshToken); err != nil {
			return fmt.Errorf("auth_service_logout_failed: %w", err)
		}

		ctxutil.GetLogger(txContext).InfoContext(txContext, "auth_logout", slog.Int64("user_id", user.ID))
		return nil
	})
}

/*
RevokeSessions clears whatever refresh token the account holds, in its own transaction.

Parameters:
  - ctx: context.Context
  - userID: int64

Returns:
  - error: Storage failures only
*/
func (service *Service) RevokeSessions(ctx context.Context, userID int64) error {
	return service.transactor.Run(ctx, postgres.TxNew, func(txContext context.Context) error {
		if err := service.userRepository.RevokeRefreshToken(txContext, userID); err != nil {
			return fmt.Errorf("auth_service_revoke_sessions_failed: %w", err)
		}
		return nil
	})
}

/*
Profile returns the caller's account together with a fresh access token.

Description: Used by clients to restore their state after a page reload.

Parameters:
  - context: context.Context
  - userID: int64

Returns:
  - *LoginSession: AccessToken and User are set; refresh fields are empty
  - error: ErrAccountWithdrawn, apperr.NotFound or storage errors
*/
func (service *Service) Profile(context context.Context, userID int64) (*LoginSession, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	if user.IsWithdrawn() {
		return nil, ErrAccountWithdrawn
	}

	accessToken, err := service.tokenIssuer.Issue(user.ID, user.Role, sec.TokenAccess, service.settings.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_profile_token_failed: %w", err)
	}

	return &LoginSession{AccessToken: accessToken, User: user}, nil
}

// # Identity Resolution

/*
LoadIdentity resolves the persisted identity behind a verified token subject.

Description: Called by the authentication middleware on every request. The
stored role wins over the role claimed by the token.

Parameters:
  - context: context.Context
  - userID: int64

Returns:
  - *sec.Identity: The persisted identity
  - error: apperr.Unauthorized for unknown or withdrawn accounts, storage errors otherwise
*/
func (service *Service) LoadIdentity(context context.Context, userID int64) (*sec.Identity, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized("Account no longer exists")
		}
		return nil, fmt.Errorf("auth_service_load_identity_failed: %w", err)
	}

	if user.IsWithdrawn() {
		return nil, apperr.Unauthorized("Account has been withdrawn")
	}

	return &sec.Identity{UserID: user.ID, Role: user.Role}, nil
}

/*
EnsureSentinel provisions the reserved owner of withdrawn users' content.

Description: Called once at startup. Safe to run on every boot and from
several instances at once.

Parameters:
  - context: context.Context

Returns:
  - *User: The sentinel account
  - error: Storage failures
*/
func (service *Service) EnsureSentinel(context context.Context) (*User, error) {
	sentinel, err := service.userRepository.GetSentinel(context)
	if err != nil {
		return nil, fmt.Errorf("auth_service_ensure_sentinel_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "auth_sentinel_ready", slog.Int64("user_id", sentinel.ID))
	return sentinel, nil
}

// # Helpers

func externalIdentityOf(profile oauth.Profile) *ExternalIdentity {
	if profile.Provider == "" || profile.ExternalID == "" {
		return nil
	}
	return &ExternalIdentity{Provider: profile.Provider, ID: profile.ExternalID}
}

func displayName(profile oauth.Profile, email string) string {
	if name := strings.TrimSpace(profile.Name); name != "" {
		return name
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}
