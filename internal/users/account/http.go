// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/quill/internal/content"
	"github.com/taibuivan/quill/internal/platform/middleware"
	requestutil "github.com/taibuivan/quill/internal/platform/request"
	"github.com/taibuivan/quill/internal/platform/respond"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/users/auth"
)

// Handler implements the HTTP layer for account management.
type Handler struct {
	accountService *Service
	cookies        auth.CookieSettings
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service, cookies auth.CookieSettings) *Handler {
	return &Handler{accountService: service, cookies: cookies}
}

// Routes returns a [chi.Router] configured with the account endpoints.
//
// # Endpoints
//   - DELETE /me : Withdraws the caller's account.
//   - GET /{userID}/content : Authored content counts (ADMIN).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Delete("/me", handler.deleteMe)
	})

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(sec.RoleAdmin))
		r.Get("/{userID}/content", handler.getContentSummary)
	})

	return router
}

/*
DELETE /api/v1/users/me.

Description: Withdraws the authenticated user. The refresh cookie is cleared
in every outcome, since the session is gone even when withdrawal fails.

Response:
  - 204: Account withdrawn
  - 401: ErrUnauthorized: Authentication required
  - 403: ACCOUNT_WITHDRAWN: Already withdrawn
  - 500: WITHDRAWAL_FAILED: Logged out, but the account is unchanged
*/
func (handler *Handler) deleteMe(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.accountService.Withdraw(request.Context(), userID, auth.RefreshTokenFrom(request))
	handler.cookies.ClearRefreshCookie(writer)

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

type contentCounts struct {
	Posts    int64 `json:"posts"`
	Comments int64 `json:"comments"`
}

type contentSummaryResponse struct {
	User  auth.UserProfile `json:"user"`
	Live  contentCounts    `json:"live"`
	Total contentCounts    `json:"total"`
}

func countsOf(reassignment content.Reassignment) contentCounts {
	return contentCounts{Posts: reassignment.Posts, Comments: reassignment.Comments}
}

/*
GET /api/v1/users/{userID}/content.

Description: Counts what an account authored, live and including soft-deleted
rows. A withdrawn account reports zero once its content moved to the sentinel.

Response:
  - 200: contentSummaryResponse
  - 401: ErrUnauthorized: Authentication required
  - 403: ErrForbidden: Caller is not an admin
  - 404: ErrNotFound: Unknown account
*/
func (handler *Handler) getContentSummary(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.ParamInt64(request, ParamUserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	summary, err := handler.accountService.Summarize(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, contentSummaryResponse{
		User:  summary.User.Profile(),
		Live:  countsOf(summary.Live),
		Total: countsOf(summary.Total),
	})
}
