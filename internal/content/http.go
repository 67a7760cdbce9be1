// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package content

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/quill/internal/platform/middleware"
	requestutil "github.com/taibuivan/quill/internal/platform/request"
	"github.com/taibuivan/quill/internal/platform/respond"
	"github.com/taibuivan/quill/internal/platform/validate"
	"github.com/taibuivan/quill/pkg/pagination"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the post endpoints.
//
// # Endpoints
//   - GET    /                : Public, paginated list of live posts.
//   - POST   /                : Creates a post for the caller.
//   - DELETE /{id}           : Soft-deletes a post (author or ADMIN).
//   - POST   /{id}/comments  : Comments on a live post.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public
	router.Get("/", handler.listPosts)

	// Authenticated
	router.Group(func(authed chi.Router) {
		authed.Use(middleware.RequireAuth)

		authed.Post("/", handler.createPost)
		authed.Delete("/{id}", handler.deletePost)
		authed.Post("/{id}/comments", handler.createComment)
	})

	return router
}

type postRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type commentRequest struct {
	Content string `json:"content"`
}

func (handler *Handler) listPosts(writer http.ResponseWriter, request *http.Request) {
	paginationParams := pagination.FromRequest(request)

	posts, total, err := handler.service.ListPosts(request.Context(), paginationParams.Limit, paginationParams.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, posts, pagination.NewMeta(paginationParams, total))
}

func (handler *Handler) createPost(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input postRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	post, err := handler.service.CreatePost(request.Context(), userID, PostInput{Title: input.Title, Content: input.Content})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, post)
}

func (handler *Handler) deletePost(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	postID, err := requestutil.ParamInt64(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.DeletePost(request.Context(), *identity, postID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

func (handler *Handler) createComment(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	postID, err := requestutil.ParamInt64(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input commentRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	comment, err := handler.service.CreateComment(request.Context(), userID, postID, input.Content)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, comment)
}
