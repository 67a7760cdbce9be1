// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/taibuivan/quill/internal/platform/ctxutil"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/platform/validate"
)

// Service applies authorship rules on top of [Repository].
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// PostInput is the writable part of a post.
type PostInput struct {
	Title   string
	Content string
}

func (service *Service) ListPosts(context context.Context, limit, offset int) ([]*Post, int, error) {
	return service.repo.ListPosts(context, limit, offset)
}

func (service *Service) CreatePost(context context.Context, authorID int64, input PostInput) (*Post, error) {
	post := &Post{
		AuthorID: authorID,
		Title:    strings.TrimSpace(input.Title),
		Content:  input.Content,
	}

	validator := &validate.Validator{}
	validator.Required(FieldTitle, post.Title).MaxLen(FieldTitle, post.Title, MaxTitleLength)
	validator.Required(FieldContent, post.Content).MaxLen(FieldContent, post.Content, MaxContentLength)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	if err := service.repo.CreatePost(context, post); err != nil {
		return nil, fmt.Errorf("content_service_create_post_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "post_created", slog.Int64("post_id", post.ID))
	return post, nil
}

/*
DeletePost soft-deletes a post on behalf of caller.

Description: Allowed for the post's author and for administrators.

Parameters:
  - context: context.Context
  - caller: sec.Identity
  - postID: int64

Returns:
  - error: ErrPostNotFound, ErrNotPostOwner or storage failures
*/
func (service *Service) DeletePost(context context.Context, caller sec.Identity, postID int64) error {
	post, err := service.repo.FindPost(context, postID)
	if err != nil {
		return err
	}

	if post.AuthorID != caller.UserID && !caller.Role.AtLeast(sec.RoleAdmin) {
		return ErrNotPostOwner
	}

	if err := service.repo.SoftDeletePost(context, postID); err != nil {
		return err
	}

	ctxutil.GetLogger(context).WarnContext(context, "post_deleted",
		slog.Int64("post_id", postID),
		slog.Int64("deleted_by", caller.UserID),
	)
	return nil
}

func (service *Service) CreateComment(context context.Context, authorID, postID int64, body string) (*Comment, error) {
	validator := &validate.Validator{}
	validator.Positive(FieldPostID, postID)
	validator.Required(FieldContent, body).MaxLen(FieldContent, body, MaxContentLength)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	comment := &Comment{PostID: postID, AuthorID: authorID, Content: body}
	if err := service.repo.CreateComment(context, comment); err != nil {
		return nil, err
	}

	return comment, nil
}
