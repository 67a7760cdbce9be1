// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/quill/internal/platform/constants"
	"github.com/taibuivan/quill/internal/platform/ctxutil"
	"github.com/taibuivan/quill/internal/platform/middleware"
	requestutil "github.com/taibuivan/quill/internal/platform/request"
	"github.com/taibuivan/quill/internal/platform/respond"
	"github.com/taibuivan/quill/internal/platform/validate"
)

// # Refresh Cookie

// CookieSettings controls the refresh-token cookie attributes.
type CookieSettings struct {
	Secure bool
	MaxAge time.Duration
}

// SetRefreshCookie writes the refresh token as an HttpOnly cookie whose
// Max-Age equals the refresh validity.
func (settings CookieSettings) SetRefreshCookie(writer http.ResponseWriter, refreshToken string) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    refreshToken,
		Path:     constants.RefreshTokenCookiePath,
		MaxAge:   int(settings.MaxAge / time.Second),
		Secure:   settings.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearRefreshCookie instructs the client to drop the refresh cookie (Max-Age=0).
func (settings CookieSettings) ClearRefreshCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    "",
		Path:     constants.RefreshTokenCookiePath,
		MaxAge:   -1,
		Secure:   settings.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// RefreshTokenFrom reads the refresh cookie; empty when absent.
func RefreshTokenFrom(request *http.Request) string {
	cookie, err := request.Cookie(constants.RefreshTokenCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
type Handler struct {
	authService *Service
	cookies     CookieSettings
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service, cookies CookieSettings) *Handler {
	return &Handler{authService: service, cookies: cookies}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /login   : Exchanges an OAuth code for a token pair.
//   - POST /refresh : Mints a new access token from the refresh cookie.
//   - POST /logout  : Clears the stored refresh token and the cookie.
//   - GET  /profile : Returns the caller's profile with a fresh access token.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Post("/logout", handler.logout)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/profile", handler.profile)
	})

	return router
}

// # Request & Response Payloads

type loginRequest struct {
	Code string `json:"code"`
}

type sessionResponse struct {
	AccessToken string `json:"accessToken"`
	UserProfile
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

/*
Login authenticates a user through the identity provider.

POST /api/v1/auth/login

Request:
  - Body: loginRequest (Code)

Response:
  - 200: sessionResponse: Access token and profile; refresh token set as cookie
  - 400: ErrInvalidJSON: Bad input or missing code
  - 401: INVALID_GRANT: The provider rejected the code
  - 403: ACCOUNT_WITHDRAWN: The account was withdrawn
  - 502: UPSTREAM_UNAVAILABLE: The provider could not be reached
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCode, input.Code)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.LoginWithCode(request.Context(), input.Code)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cookies.SetRefreshCookie(writer, session.RefreshToken)

	respond.OK(writer, sessionResponse{
		AccessToken: session.AccessToken,
		UserProfile: session.User.Profile(),
	})
}

/*
Refresh issues a new access token using the refresh cookie.

POST /api/v1/auth/refresh

Response:
  - 200: accessTokenResponse: New access token
  - 401: INVALID_REFRESH_TOKEN or REFRESH_TOKEN_EXPIRED (cookie cleared)
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	refreshToken := RefreshTokenFrom(request)
	if refreshToken == "" {
		respond.Error(writer, request, ErrInvalidRefreshToken)
		return
	}

	accessToken, err := handler.authService.RenewAccessToken(request.Context(), refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenExpired) || errors.Is(err, ErrInvalidRefreshToken) {
			handler.cookies.ClearRefreshCookie(writer)
		}
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, accessTokenResponse{AccessToken: accessToken})
}

/*
Logout terminates the current session.

POST /api/v1/auth/logout

Description: Always succeeds from the client's point of view; storage
failures are logged and the cookie is cleared regardless.

Response:
  - 200: Session terminated
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	if err := handler.authService.Logout(request.Context(), RefreshTokenFrom(request)); err != nil {
		ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "auth_logout_failed",
			slog.Any("error", err),
		)
	}

	handler.cookies.ClearRefreshCookie(writer)
	respond.OK(writer, map[string]string{constants.FieldMessage: "Logged out"})
}

/*
Profile restores the caller's session state.

GET /api/v1/auth/profile

Response:
  - 200: sessionResponse: Profile with a fresh access token
  - 401: UNAUTHORIZED: Missing or invalid access token
*/
func (handler *Handler) profile(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Profile(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessionResponse{
		AccessToken: session.AccessToken,
		UserProfile: session.User.Profile(),
	})
}
