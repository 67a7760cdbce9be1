// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the user identity and session management layer.

It defines the core domain entity (User) and the session lifecycle built on it:
login from an external identity, access-token renewal from a stored refresh
token, and logout.

# Architecture

Entities defined here carry the account invariants. The refresh credential and
the external identity are modelled as optional pairs so that one half can never
be set without the other.
*/
package auth

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/pkg/pointer"
)

// # Domain Entities

// User represents an account of the Quill platform.
type User struct {
	ID               int64
	Email            string
	Name             string
	Role             sec.Role
	ExternalIdentity *ExternalIdentity
	RefreshToken     *RefreshCredential
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

// ExternalIdentity links an account to the identity provider that vouched for it.
type ExternalIdentity struct {
	Provider string
	ID       string
}

// RefreshCredential is the persisted form of the current refresh token.
//
// Only the digest is kept; the raw token lives in the client's cookie.
type RefreshCredential struct {
	Hash      string
	ExpiresAt time.Time
}

// IsWithdrawn reports whether the account reached its terminal state.
func (user *User) IsWithdrawn() bool {
	return user.Role.IsWithdrawn() || user.DeletedAt != nil
}

// HasLiveRefreshToken reports whether the stored refresh credential is still valid at now.
func (user *User) HasLiveRefreshToken(now time.Time) bool {
	return user.RefreshToken != nil && now.Before(user.RefreshToken.ExpiresAt)
}

/*
MarkWithdrawn moves the account into its terminal state.

Email, name and external identity are replaced with placeholders derived from
the id so the anonymized row never collides with a live account. The refresh
credential is dropped and the soft-delete timestamp set.
*/
func (user *User) MarkWithdrawn(now time.Time) {
	user.Role = sec.RoleWithdrawn
	user.Email = WithdrawnEmail(user.ID)
	user.Name = WithdrawnName
	user.ExternalIdentity = nil
	user.RefreshToken = nil
	user.DeletedAt = pointer.To(now)
	user.UpdatedAt = now
}

// UserProfile is the client-facing projection of a [User].
type UserProfile struct {
	ID    int64    `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Role  sec.Role `json:"role"`
}

// Profile returns the client-facing projection.
func (user *User) Profile() UserProfile {
	return UserProfile{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}
}

// # Normalization

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
// Simple lower-casing keeps distinct addresses distinct (ß stays ß).
func NormalizeEmail(email string) string {
	// A Caser is stateful and cannot be shared between goroutines.
	return cases.Lower(language.Und).String(strings.TrimSpace(email))
}

// WithdrawnEmail is the anonymized address assigned to a withdrawn account.
func WithdrawnEmail(id int64) string {
	return fmt.Sprintf("deleted_%d@%s", id, WithdrawnEmailDomain)
}
