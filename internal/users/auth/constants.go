// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/taibuivan/quill/internal/platform/apperr"
)

// # Anonymization

const (
	// WithdrawnEmailDomain is the reserved domain of anonymized addresses.
	WithdrawnEmailDomain = "withdrawn.invalid"

	// WithdrawnName replaces the display name of a withdrawn account.
	WithdrawnName = "Withdrawn user"

	// SentinelEmail is the reserved address of the sentinel account that owns
	// content left behind by withdrawn users.
	SentinelEmail = "withdrawn@quill.invalid"

	// SentinelName is the display name of the sentinel account.
	SentinelName = "Withdrawn user"
)

// # Field Identifiers

// Global field names for validation and response mapping in the authentication domain.
const (
	FieldCode  = "code"
	FieldEmail = "email"
)

// # Errors

var (
	// ErrInvalidRefreshToken is returned when the presented refresh token matches no account.
	ErrInvalidRefreshToken = apperr.New(http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Refresh token is invalid")

	// ErrRefreshTokenExpired is returned when the stored refresh token has passed its expiry.
	// The stored value is cleared before it is returned, so the client must log in again.
	ErrRefreshTokenExpired = apperr.New(http.StatusUnauthorized, "REFRESH_TOKEN_EXPIRED", "Refresh token has expired")

	// ErrAccountWithdrawn blocks login, renewal or mutation of a withdrawn account.
	ErrAccountWithdrawn = apperr.New(http.StatusForbidden, "ACCOUNT_WITHDRAWN", "Account has been withdrawn")

	// ErrDuplicateIdentity is returned by the directory when a create violates
	// the unique email or external identity constraint.
	ErrDuplicateIdentity = apperr.New(http.StatusConflict, "DUPLICATE_IDENTITY", "Identity is already registered")
)
