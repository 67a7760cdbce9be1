// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/taibuivan/quill/internal/users/oauth"
)

// fakeGoogle serves the token and userinfo endpoints.
type fakeGoogle struct {
	tokenStatus    int
	tokenBody      string
	userInfoStatus int
	userInfoBody   string
	delay          time.Duration

	tokenCalls    atomic.Int32
	receivedCode  atomic.Value
	receivedToken atomic.Value
}

func newFakeGoogle() *fakeGoogle {
	return &fakeGoogle{
		tokenStatus:    http.StatusOK,
		tokenBody:      `{"access_token":"google-access","token_type":"Bearer","expires_in":3600}`,
		userInfoStatus: http.StatusOK,
		userInfoBody:   `{"id":"1098","email":"a@x.com","name":"A","verified_email":true}`,
	}
}

func (fake *fakeGoogle) start(t *testing.T) (*httptest.Server, oauth.GoogleConfig) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(writer http.ResponseWriter, request *http.Request) {
		fake.tokenCalls.Add(1)
		_ = request.ParseForm()
		fake.receivedCode.Store(request.PostForm.Get("code"))

		if fake.delay > 0 {
			select {
			case <-time.After(fake.delay):
			case <-request.Context().Done():
				return
			}
		}

		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(fake.tokenStatus)
		_, _ = writer.Write([]byte(fake.tokenBody))
	})
	mux.HandleFunc("/userinfo", func(writer http.ResponseWriter, request *http.Request) {
		fake.receivedToken.Store(request.Header.Get("Authorization"))
		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(fake.userInfoStatus)
		_, _ = writer.Write([]byte(fake.userInfoBody))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server, oauth.GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost/callback",
		Timeout:      2 * time.Second,
		Endpoint: oauth2.Endpoint{
			TokenURL:  server.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		UserInfoURL: server.URL + "/userinfo",
	}
}

/*
TestGoogleProvider_Exchange covers the happy path: code in, profile out.
*/
func TestGoogleProvider_Exchange(t *testing.T) {
	fake := newFakeGoogle()
	_, cfg := fake.start(t)
	provider := oauth.NewGoogleProvider(cfg, nil)

	profile, err := provider.ExchangeCodeForProfile(context.Background(), "auth-code")
	require.NoError(t, err)

	assert.Equal(t, "google", profile.Provider)
	assert.Equal(t, "1098", profile.ExternalID)
	assert.Equal(t, "a@x.com", profile.Email)
	assert.Equal(t, "A", profile.Name)

	assert.Equal(t, "auth-code", fake.receivedCode.Load())
	assert.Equal(t, "Bearer google-access", fake.receivedToken.Load())
}

/*
TestGoogleProvider_Errors maps provider failures onto InvalidGrant and UpstreamUnavailable.
*/
func TestGoogleProvider_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(fake *fakeGoogle)
		wantErr error
	}{
		{
			name: "invalid_grant",
			mutate: func(fake *fakeGoogle) {
				fake.tokenStatus = http.StatusBadRequest
				fake.tokenBody = `{"error":"invalid_grant","error_description":"Malformed auth code."}`
			},
			wantErr: oauth.ErrInvalidGrant,
		},
		{
			name: "token_endpoint_5xx",
			mutate: func(fake *fakeGoogle) {
				fake.tokenStatus = http.StatusServiceUnavailable
				fake.tokenBody = `{"error":"backend_error"}`
			},
			wantErr: oauth.ErrUpstreamUnavailable,
		},
		{
			name: "userinfo_rejects_token",
			mutate: func(fake *fakeGoogle) {
				fake.userInfoStatus = http.StatusUnauthorized
				fake.userInfoBody = `{"error":"invalid_token"}`
			},
			wantErr: oauth.ErrInvalidGrant,
		},
		{
			name: "userinfo_5xx",
			mutate: func(fake *fakeGoogle) {
				fake.userInfoStatus = http.StatusBadGateway
			},
			wantErr: oauth.ErrUpstreamUnavailable,
		},
		{
			name: "userinfo_garbage",
			mutate: func(fake *fakeGoogle) {
				fake.userInfoBody = `<html>`
			},
			wantErr: oauth.ErrUpstreamUnavailable,
		},
		{
			name: "profile_without_email",
			mutate: func(fake *fakeGoogle) {
				fake.userInfoBody = `{"id":"1098","name":"A"}`
			},
			wantErr: oauth.ErrInvalidGrant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeGoogle()
			tt.mutate(fake)
			_, cfg := fake.start(t)

			_, err := oauth.NewGoogleProvider(cfg, nil).ExchangeCodeForProfile(context.Background(), "auth-code")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

/*
TestGoogleProvider_Timeout verifies that a slow provider is cut off by the configured bound.
*/
func TestGoogleProvider_Timeout(t *testing.T) {
	fake := newFakeGoogle()
	fake.delay = 2 * time.Second
	_, cfg := fake.start(t)
	cfg.Timeout = 50 * time.Millisecond

	started := time.Now()
	_, err := oauth.NewGoogleProvider(cfg, nil).ExchangeCodeForProfile(context.Background(), "auth-code")

	require.Error(t, err)
	assert.True(t, errors.Is(err, oauth.ErrUpstreamUnavailable))
	assert.Less(t, time.Since(started), time.Second)
}

/*
TestGoogleProvider_ZeroTimeoutIsUnbounded treats an unset timeout as no deadline.
*/
func TestGoogleProvider_ZeroTimeoutIsUnbounded(t *testing.T) {
	fake := newFakeGoogle()
	_, cfg := fake.start(t)
	cfg.Timeout = 0

	profile, err := oauth.NewGoogleProvider(cfg, nil).ExchangeCodeForProfile(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", profile.Email)
}

/*
TestGoogleProvider_EmptyCode rejects a blank code without calling the provider.
*/
func TestGoogleProvider_EmptyCode(t *testing.T) {
	fake := newFakeGoogle()
	_, cfg := fake.start(t)

	_, err := oauth.NewGoogleProvider(cfg, nil).ExchangeCodeForProfile(context.Background(), "   ")
	assert.True(t, errors.Is(err, oauth.ErrInvalidGrant))
	assert.Zero(t, fake.tokenCalls.Load())
}

// fakeCodeStore emulates SET NX semantics in memory.
type fakeCodeStore struct {
	keys map[string]time.Duration
	err  error
}

func (store *fakeCodeStore) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if store.err != nil {
		return redis.NewBoolResult(false, store.err)
	}
	if _, exists := store.keys[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	store.keys[key] = expiration
	return redis.NewBoolResult(true, nil)
}

/*
TestRedisCodeGuard_RejectsReplay verifies a code is accepted once and the provider is not called again.
*/
func TestRedisCodeGuard_RejectsReplay(t *testing.T) {
	fake := newFakeGoogle()
	_, cfg := fake.start(t)

	store := &fakeCodeStore{keys: map[string]time.Duration{}}
	provider := oauth.NewGoogleProvider(cfg, oauth.NewRedisCodeGuard(store, time.Minute))

	_, err := provider.ExchangeCodeForProfile(context.Background(), "auth-code")
	require.NoError(t, err)

	_, err = provider.ExchangeCodeForProfile(context.Background(), "auth-code")
	assert.True(t, errors.Is(err, oauth.ErrInvalidGrant))
	assert.Equal(t, int32(1), fake.tokenCalls.Load())

	// Stored keys are digests with the configured TTL.
	require.Len(t, store.keys, 1)
	for key, ttl := range store.keys {
		assert.NotContains(t, key, "auth-code")
		assert.Equal(t, time.Minute, ttl)
	}
}

/*
TestRedisCodeGuard_StoreFailure surfaces a Redis outage as an upstream failure.
*/
func TestRedisCodeGuard_StoreFailure(t *testing.T) {
	guard := oauth.NewRedisCodeGuard(&fakeCodeStore{err: errors.New("connection refused")}, 0)

	err := guard.Claim(context.Background(), "auth-code")
	assert.True(t, errors.Is(err, oauth.ErrUpstreamUnavailable))
}
