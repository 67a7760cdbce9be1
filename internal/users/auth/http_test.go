// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quill/internal/platform/middleware"
	"github.com/taibuivan/quill/internal/platform/respond"
	"github.com/taibuivan/quill/internal/users/auth"
	"github.com/taibuivan/quill/internal/users/oauth"
)

func (h *harness) router() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.Authenticate(h.codec, h.service))
	router.Mount("/auth", auth.NewHandler(h.service, auth.CookieSettings{Secure: true, MaxAge: refreshTTL}).Routes())
	return router
}

func send(router http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, path, strings.NewReader(body))
	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func refreshCookieHeader(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	for _, header := range recorder.Header().Values("Set-Cookie") {
		if strings.HasPrefix(header, "refreshToken=") {
			return header
		}
	}
	t.Fatalf("no refreshToken cookie in %v", recorder.Header().Values("Set-Cookie"))
	return ""
}

func errorCodeOf(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope respond.ErrorEnvelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	return envelope.Code
}

type sessionEnvelope struct {
	Data struct {
		AccessToken string `json:"accessToken"`
		ID          int64  `json:"id"`
		Email       string `json:"email"`
		Name        string `json:"name"`
		Role        string `json:"role"`
	} `json:"data"`
}

/*
TestHandler_LoginSetsRefreshCookie checks the response body and every cookie attribute.
*/
func TestHandler_LoginSetsRefreshCookie(t *testing.T) {
	h := newHarness(t)
	h.provider.profiles["code-1"] = googleProfile("ada@example.com")

	recorder := send(h.router(), http.MethodPost, "/auth/login", `{"code":"code-1"}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	var envelope sessionEnvelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Data.AccessToken)
	assert.Equal(t, "ada@example.com", envelope.Data.Email)
	assert.Equal(t, "USER", envelope.Data.Role)
	assert.NotZero(t, envelope.Data.ID)

	header := refreshCookieHeader(t, recorder)
	assert.Contains(t, header, "Path=/")
	assert.Contains(t, header, "Max-Age=604800")
	assert.Contains(t, header, "HttpOnly")
	assert.Contains(t, header, "Secure")
	assert.Contains(t, header, "SameSite=Lax")
}

/*
TestHandler_LoginRejectsBadInput answers 400 before the provider is called.
*/
func TestHandler_LoginRejectsBadInput(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, http.StatusBadRequest, send(h.router(), http.MethodPost, "/auth/login", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, send(h.router(), http.MethodPost, "/auth/login", `{"code":""}`).Code)

	recorder := send(h.router(), http.MethodPost, "/auth/login", `{"code":"unknown"}`)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "INVALID_GRANT", errorCodeOf(t, recorder))

	h.provider.err = oauth.ErrUpstreamUnavailable
	recorder = send(h.router(), http.MethodPost, "/auth/login", `{"code":"unknown"}`)
	assert.Equal(t, http.StatusBadGateway, recorder.Code)
}

/*
TestHandler_Refresh covers a live cookie, a missing cookie and an expired one.
*/
func TestHandler_Refresh(t *testing.T) {
	h := newHarness(t)
	router := h.router()

	session, err := h.service.Login(t.Context(), googleProfile("ada@example.com"))
	require.NoError(t, err)
	cookie := &http.Cookie{Name: "refreshToken", Value: session.RefreshToken}

	// 1. Live cookie
	recorder := send(router, http.MethodPost, "/auth/refresh", "", cookie)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"accessToken"`)
	assert.Empty(t, recorder.Header().Values("Set-Cookie"))

	// 2. No cookie
	recorder = send(router, http.MethodPost, "/auth/refresh", "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", errorCodeOf(t, recorder))

	// 3. Expired cookie is cleared
	h.advance(refreshTTL)
	recorder = send(router, http.MethodPost, "/auth/refresh", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "REFRESH_TOKEN_EXPIRED", errorCodeOf(t, recorder))
	assert.Contains(t, refreshCookieHeader(t, recorder), "Max-Age=0")
}

/*
TestHandler_Logout always answers 200 and clears the cookie.
*/
func TestHandler_Logout(t *testing.T) {
	h := newHarness(t)
	router := h.router()

	session, err := h.service.Login(t.Context(), googleProfile("ada@example.com"))
	require.NoError(t, err)

	recorder := send(router, http.MethodPost, "/auth/logout", "", &http.Cookie{Name: "refreshToken", Value: session.RefreshToken})
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, refreshCookieHeader(t, recorder), "Max-Age=0")
	assert.Nil(t, h.users.Get(session.User.ID).RefreshToken)

	// Storage failures are logged, not surfaced.
	h.users.Failures["FindByRefreshToken"] = assert.AnError
	recorder = send(router, http.MethodPost, "/auth/logout", "", &http.Cookie{Name: "refreshToken", Value: "whatever"})
	assert.Equal(t, http.StatusOK, recorder.Code)

	// No cookie at all.
	recorder = send(router, http.MethodPost, "/auth/logout", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestHandler_Profile requires a bearer token and returns a fresh access token.
*/
func TestHandler_Profile(t *testing.T) {
	h := newHarness(t)
	router := h.router()

	assert.Equal(t, http.StatusUnauthorized, send(router, http.MethodGet, "/auth/profile", "").Code)

	session, err := h.service.Login(t.Context(), googleProfile("ada@example.com"))
	require.NoError(t, err)

	h.advance(time.Second)
	request := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	request.Header.Set("Authorization", "Bearer "+session.AccessToken)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	require.Equal(t, http.StatusOK, recorder.Code)

	var envelope sessionEnvelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Equal(t, session.User.ID, envelope.Data.ID)
	assert.NotEqual(t, session.AccessToken, envelope.Data.AccessToken)
}
