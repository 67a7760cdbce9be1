// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil reads and writes the per-request values carried on a
// [context.Context]: correlation id, logger and authenticated identity.
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/quill/internal/platform/ctxkey"
	"github.com/taibuivan/quill/internal/platform/sec"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

// WithLogAttrs returns a context whose logger carries attrs on every record.
func WithLogAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return WithLogger(ctx, GetLogger(ctx).With(args...))
}

// # Identity & Access

// WithIdentity returns a new context with the verified identity attached.
func WithIdentity(ctx context.Context, identity *sec.Identity) context.Context {
	return context.WithValue(ctx, ctxkey.KeyUser, identity)
}

// GetIdentity returns the bound identity, or nil for anonymous requests.
func GetIdentity(ctx context.Context) *sec.Identity {
	identity, _ := ctx.Value(ctxkey.KeyUser).(*sec.Identity)
	return identity
}

// UserID returns the id of the bound identity.
func UserID(ctx context.Context) (int64, bool) {
	if identity := GetIdentity(ctx); identity != nil {
		return identity.UserID, true
	}
	return 0, false
}
