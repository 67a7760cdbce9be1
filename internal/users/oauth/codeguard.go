// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/quill/internal/platform/constants"
	"github.com/taibuivan/quill/internal/platform/sec"
)

// CodeGuard records authorization codes so a replayed code fails fast.
type CodeGuard interface {
	// Claim marks code as used. It fails with [ErrInvalidGrant] if the code was
	// already claimed and with [ErrUpstreamUnavailable] if the guard itself fails.
	Claim(ctx context.Context, code string) error
}

// NopCodeGuard accepts every code. Used when Redis is not configured.
type NopCodeGuard struct{}

// Claim implements [CodeGuard].
func (NopCodeGuard) Claim(context.Context, string) error { return nil }

// CodeStore is the slice of the Redis API the guard needs.
type CodeStore interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

// RedisCodeGuard claims codes with SET NX and a TTL in Redis.
//
// Keys hold the code digest, never the code itself.
type RedisCodeGuard struct {
	client CodeStore
	ttl    time.Duration
}

// NewRedisCodeGuard creates a guard. A non-positive ttl falls back to [constants.OAuthCodeTTL].
func NewRedisCodeGuard(client CodeStore, ttl time.Duration) *RedisCodeGuard {
	if ttl <= 0 {
		ttl = constants.OAuthCodeTTL
	}
	return &RedisCodeGuard{client: client, ttl: ttl}
}

// Claim implements [CodeGuard].
func (guard *RedisCodeGuard) Claim(ctx context.Context, code string) error {
	key := constants.RedisPrefixOAuthCode + sec.HashToken(code)

	claimed, err := guard.client.SetNX(ctx, key, 1, guard.ttl).Result()
	if err != nil {
		return ErrUpstreamUnavailable.WithCause(err)
	}

	if !claimed {
		return ErrInvalidGrant.WithCause(errors.New("oauth: authorization code already used"))
	}

	return nil
}
