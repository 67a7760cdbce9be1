// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxkey declares the keys Quill stores on a [context.Context].
//
// Values are read and written through ctxutil and postgres, never by key directly.
package ctxkey

import "fmt"

// Key identifies one context value. Keys of other packages never compare
// equal to a Key because context lookups match on type as well as value.
type Key int

const (
	// KeyRequestID holds the X-Request-ID correlation value.
	KeyRequestID Key = iota + 1

	// KeyUser holds the authenticated [sec.Identity].
	KeyUser

	// KeyLogger holds the per-request [*log/slog.Logger].
	KeyLogger

	// KeyTx holds the database transaction bound by the transactor.
	KeyTx
)

// String implements [fmt.Stringer].
func (k Key) String() string {
	switch k {
	case KeyRequestID:
		return "request_id"
	case KeyUser:
		return "user"
	case KeyLogger:
		return "logger"
	case KeyTx:
		return "tx"
	default:
		return fmt.Sprintf("ctxkey.Key(%d)", int(k))
	}
}
