// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ctxutil_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/quill/internal/platform/ctxkey"
	"github.com/taibuivan/quill/internal/platform/ctxutil"
	"github.com/taibuivan/quill/internal/platform/sec"
)

/*
TestContext_RequestID verifies that Request IDs can be injected and retrieved.
*/
func TestContext_RequestID(t *testing.T) {
	ctx := context.Background()
	requestID := "test-request-id"

	// 1. Initially should be empty
	assert.Empty(t, ctxutil.GetRequestID(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithRequestID(ctx, requestID)
	assert.Equal(t, requestID, ctxutil.GetRequestID(ctx))
}

/*
TestContext_Logger verifies that a custom logger can be stored in context.
*/
func TestContext_Logger(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// 1. Initially should return the default logger
	assert.Equal(t, slog.Default(), ctxutil.GetLogger(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithLogger(ctx, logger)
	assert.Equal(t, logger, ctxutil.GetLogger(ctx))
}

/*
TestContext_Identity verifies that a verified identity can be stored in context.
*/
func TestContext_Identity(t *testing.T) {
	ctx := context.Background()
	identity := &sec.Identity{
		UserID: 123,
		Role:   sec.RoleAdmin,
	}

	// 1. Initially should be nil
	assert.Nil(t, ctxutil.GetIdentity(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithIdentity(ctx, identity)
	retrieved := ctxutil.GetIdentity(ctx)

	assert.NotNil(t, retrieved)
	assert.Equal(t, int64(123), retrieved.UserID)
	assert.Equal(t, sec.RoleAdmin, retrieved.Role)

	userID, ok := ctxutil.UserID(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(123), userID)

	_, ok = ctxutil.UserID(context.Background())
	assert.False(t, ok)
}

/*
TestContext_LogAttrs enriches the stored logger without touching the parent context.
*/
func TestContext_LogAttrs(t *testing.T) {
	var buffer bytes.Buffer
	parent := ctxutil.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buffer, nil)))

	child := ctxutil.WithLogAttrs(parent, slog.Int64("user_id", 42))
	ctxutil.GetLogger(child).Info("enriched")
	assert.Contains(t, buffer.String(), "user_id=42")

	buffer.Reset()
	ctxutil.GetLogger(parent).Info("plain")
	assert.NotContains(t, buffer.String(), "user_id")
}

/*
TestKey_String names every key.
*/
func TestKey_String(t *testing.T) {
	assert.Equal(t, "request_id", ctxkey.KeyRequestID.String())
	assert.Equal(t, "tx", ctxkey.KeyTx.String())
	assert.Equal(t, "ctxkey.Key(99)", ctxkey.Key(99).String())
}
