// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"database/sql/driver"
	"fmt"
)

// # User Roles

// Role represents the authorization level granted to an account.
//
// The set is closed. Values coming from storage or from a token are parsed
// with [ParseRole] and anything outside the set is rejected.
type Role string

const (
	// Unrestricted system access
	RoleAdmin Role = "ADMIN"

	// Default role for standard registered users
	RoleUser Role = "USER"

	// Terminal state of an account after withdrawal. Never authenticates.
	RoleWithdrawn Role = "WITHDRAWN"
)

// ParseRole converts a raw value into a [Role], rejecting unknown values.
func ParseRole(raw string) (Role, error) {
	switch role := Role(raw); role {
	case RoleAdmin, RoleUser, RoleWithdrawn:
		return role, nil
	default:
		return "", fmt.Errorf("sec: unknown role %q", raw)
	}
}

// IsWithdrawn reports whether the role marks a withdrawn account.
func (r Role) IsWithdrawn() bool {
	return r == RoleWithdrawn
}

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
func (r Role) AtLeast(target Role) bool {
	return r.level() >= target.level()
}

// level maps a role to a numeric hierarchy level for comparison logic.
func (r Role) level() int {
	switch r {
	case RoleAdmin:
		return 40
	case RoleUser:
		return 10
	default:
		return 0
	}
}

// # Storage Boundary

// Scan implements [sql.Scanner] so a stored role is validated on read.
func (r *Role) Scan(src any) error {
	var raw string
	switch value := src.(type) {
	case string:
		raw = value
	case []byte:
		raw = string(value)
	default:
		return fmt.Errorf("sec: cannot scan %T into Role", src)
	}

	role, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Value implements [driver.Valuer].
func (r Role) Value() (driver.Value, error) {
	if _, err := ParseRole(string(r)); err != nil {
		return nil, err
	}
	return string(r), nil
}
