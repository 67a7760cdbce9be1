// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/constants"
	"github.com/taibuivan/quill/internal/platform/ctxutil"
	"github.com/taibuivan/quill/internal/platform/respond"
	"github.com/taibuivan/quill/internal/platform/sec"
)

// TokenVerifier checks an access token's signature, expiry and kind.
type TokenVerifier interface {
	Verify(token string, kind sec.TokenKind) (*sec.Claims, error)
}

// IdentityLoader resolves the persisted identity behind a verified subject.
//
// Implementations must fail with a 401 [apperr.AppError] when the user no
// longer exists or has been withdrawn.
type IdentityLoader interface {
	LoadIdentity(ctx context.Context, userID int64) (*sec.Identity, error)
}

// Authenticate extracts and verifies the bearer token from the Authorization header.
//
// # Flow
//  1. Without an Authorization header the request proceeds as anonymous.
//  2. The header must read 'Bearer <token>'.
//  3. The token is verified as an access token. Expiry answers TOKEN_EXPIRED,
//     any other failure TOKEN_MALFORMED.
//  4. The subject is re-read from storage so the role comes from the database,
//     not from the token.
//  5. The [*sec.Identity] is bound to the request context.
func Authenticate(verifier TokenVerifier, identities IdentityLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			authHeader := request.Header.Get(constants.HeaderAuthorization)

			// ── 1. Anonymous Access ───────────────────────────────────────────
			if authHeader == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Format Validation ──────────────────────────────────────────
			scheme, token, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
				respond.Error(writer, request, apperr.Unauthorized("Invalid authorization format"))
				return
			}

			// ── 3. Token Verification ─────────────────────────────────────────
			claims, err := verifier.Verify(strings.TrimSpace(token), sec.TokenAccess)
			if err != nil {
				if errors.Is(err, sec.ErrTokenExpired) {
					respond.Error(writer, request, sec.ErrTokenExpired)
					return
				}
				respond.Error(writer, request, sec.ErrTokenMalformed)
				return
			}

			// ── 4. Identity Resolution ────────────────────────────────────────
			identity, err := identities.LoadIdentity(request.Context(), claims.UserID)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			// ── 5. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithIdentity(request.Context(), identity)
			ctx = ctxutil.WithLogAttrs(ctx, slog.Int64("user_id", identity.UserID))

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if GetUser(request.Context()) == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireRole blocks requests whose persisted role is below role.
//
// It implies [RequireAuth], so mounting both is unnecessary.
func RequireRole(role sec.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			identity := GetUser(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if identity == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if !identity.Role.AtLeast(role) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// GetUser returns the authenticated identity, or nil for anonymous requests.
func GetUser(ctx context.Context) *sec.Identity {
	return ctxutil.GetIdentity(ctx)
}
