// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package uuid generates time-ordered identifiers.

Quill keys its rows with database identities, so these values are used for
correlation only: request ids and token ids (jti). Version 7 keeps them
sortable by creation time, which makes log scans easier.
*/
package uuid

import "github.com/google/uuid"

// New generates a new UUIDv7 string.
func New() string {

	// Create a new version 7 UUID (time-sortable)
	id, err := uuid.NewV7()

	// entropy failure is an unrecoverable system-level error
	if err != nil {
		panic("uuid: failed to generate UUIDv7: " + err.Error())
	}

	return id.String()
}
