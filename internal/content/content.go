// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package content holds the posts and comments users author.

It is deliberately small: creation, listing and soft deletion of posts, and
creation of comments. Its main consumer besides the HTTP layer is account
withdrawal, which hands every piece of a withdrawn user's content to the
sentinel account.
*/
package content

import (
	"net/http"
	"time"

	"github.com/taibuivan/quill/internal/platform/apperr"
)

// # Entities

// Post is a top-level article.
type Post struct {
	ID        int64      `json:"id"`
	AuthorID  int64      `json:"author_id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"` // soft-delete tracker
}

// Comment is a reply attached to a post.
type Comment struct {
	ID        int64      `json:"id"`
	PostID    int64      `json:"post_id"`
	AuthorID  int64      `json:"author_id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
}

// Reassignment reports how many rows changed owner.
type Reassignment struct {
	Posts    int64
	Comments int64
}

// # Query Modes

// QueryMode selects whether soft-deleted rows take part in a statement.
type QueryMode int

const (
	// LiveOnly restricts the statement to rows with no deletion timestamp.
	LiveOnly QueryMode = iota

	// IncludeDeleted bypasses the soft-delete filter.
	IncludeDeleted
)

func (mode QueryMode) String() string {
	if mode == IncludeDeleted {
		return "include_deleted"
	}
	return "live_only"
}

// # Validation

// Global field names for validation
const (
	FieldTitle   = "title"
	FieldContent = "content"
	FieldPostID  = "post_id"
)

const (
	MaxTitleLength   = 200
	MaxContentLength = 20000
)

var (
	// ErrPostNotFound is returned when a post does not exist or was deleted.
	ErrPostNotFound = apperr.NotFound("Post")

	// ErrNotPostOwner is returned when a caller deletes a post they did not write.
	ErrNotPostOwner = apperr.New(http.StatusForbidden, "NOT_POST_OWNER", "Only the author or an administrator may delete this post")
)
