// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package content

import "context"

// Repository is the data access contract for posts and comments.
//
// Every method runs on the transaction bound to the context when there is one.
type Repository interface {
	CreatePost(context context.Context, post *Post) error
	FindPost(context context.Context, id int64) (*Post, error)
	ListPosts(context context.Context, limit, offset int) ([]*Post, int, error)
	SoftDeletePost(context context.Context, id int64) error

	CreateComment(context context.Context, comment *Comment) error

	// CountByAuthor counts posts and comments owned by authorID.
	CountByAuthor(context context.Context, authorID int64, mode QueryMode) (Reassignment, error)

	// ReassignAuthor moves ownership of posts and comments from one account to another.
	ReassignAuthor(context context.Context, fromAuthorID, toAuthorID int64, mode QueryMode) (Reassignment, error)
}
