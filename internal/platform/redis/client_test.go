// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package redis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisstore "github.com/taibuivan/quill/internal/platform/redis"
)

/*
TestParseOptions applies the defaults on top of the URL.
*/
func TestParseOptions(t *testing.T) {
	options, err := redisstore.ParseOptions("redis://:secret@cache:6380/2")
	require.NoError(t, err)

	assert.Equal(t, "cache:6380", options.Addr)
	assert.Equal(t, 2, options.DB)
	assert.Equal(t, "secret", options.Password)
	assert.Equal(t, "quill-api", options.ClientName)
	assert.Equal(t, 10, options.PoolSize)
	assert.Nil(t, options.TLSConfig)

	secure, err := redisstore.ParseOptions("rediss://cache:6380")
	require.NoError(t, err)
	assert.NotNil(t, secure.TLSConfig)
}

/*
TestParseOptions_Invalid rejects unknown schemes.
*/
func TestParseOptions_Invalid(t *testing.T) {
	_, err := redisstore.ParseOptions("http://cache:6379")
	assert.ErrorContains(t, err, "redis: invalid URL")
}
