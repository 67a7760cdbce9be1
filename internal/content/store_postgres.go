// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/quill/internal/platform/database/schema"
	"github.com/taibuivan/quill/internal/platform/dberr"
	"github.com/taibuivan/quill/internal/platform/postgres"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	db postgres.DBTX
}

// NewPostgresRepository creates a new PostgreSQL implementation of [Repository].
func NewPostgresRepository(db postgres.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (repository *PostgresRepository) conn(context context.Context) postgres.DBTX {
	return postgres.Conn(context, repository.db)
}

// liveFilter returns the soft-delete predicate for mode, prefixed with AND.
func liveFilter(mode QueryMode, column string) string {
	if mode == IncludeDeleted {
		return ""
	}
	return fmt.Sprintf(" AND %s IS NULL", column)
}

// # Posts

func (repository *PostgresRepository) CreatePost(context context.Context, post *Post) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s)
		VALUES ($1, $2, $3)
		RETURNING %s, %s, %s
	`,
		schema.ContentPost.Table, schema.ContentPost.AuthorID, schema.ContentPost.Title, schema.ContentPost.Body,
		schema.ContentPost.ID, schema.ContentPost.CreatedAt, schema.ContentPost.UpdatedAt,
	)

	err := repository.conn(context).QueryRow(context, query, post.AuthorID, post.Title, post.Content).
		Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
	return dberr.Wrap(err, "create_post")
}

func (repository *PostgresRepository) FindPost(context context.Context, id int64) (*Post, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1 AND %s IS NULL
	`,
		schema.ContentPost.ID, schema.ContentPost.AuthorID, schema.ContentPost.Title, schema.ContentPost.Body,
		schema.ContentPost.CreatedAt, schema.ContentPost.UpdatedAt,
		schema.ContentPost.Table, schema.ContentPost.ID, schema.ContentPost.DeletedAt,
	)

	post := &Post{}
	err := repository.conn(context).QueryRow(context, query, id).Scan(
		&post.ID, &post.AuthorID, &post.Title, &post.Content, &post.CreatedAt, &post.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, dberr.Wrap(err, "find_post")
	}
	return post, nil
}

/*
ListPosts returns one page of live posts, newest first.

Description: The total is computed in the same statement with a window
function, so page and count always agree.

Parameters:
  - context: context.Context
  - limit: int
  - offset: int

Returns:
  - []*Post: The requested page
  - int: Total number of live posts
  - error: Database errors
*/
func (repository *PostgresRepository) ListPosts(context context.Context, limit, offset int) ([]*Post, int, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, COUNT(*) OVER()
		FROM %s
		WHERE %s IS NULL
		ORDER BY %s DESC, %s DESC
		LIMIT $1 OFFSET $2
	`,
		schema.ContentPost.ID, schema.ContentPost.AuthorID, schema.ContentPost.Title, schema.ContentPost.Body,
		schema.ContentPost.CreatedAt, schema.ContentPost.UpdatedAt,
		schema.ContentPost.Table, schema.ContentPost.DeletedAt,
		schema.ContentPost.CreatedAt, schema.ContentPost.ID,
	)

	rows, err := repository.conn(context).Query(context, query, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_posts")
	}
	defer rows.Close()

	var (
		posts = []*Post{}
		total int
	)
	for rows.Next() {
		post := &Post{}
		if err := rows.Scan(
			&post.ID, &post.AuthorID, &post.Title, &post.Content, &post.CreatedAt, &post.UpdatedAt, &total,
		); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_post")
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "list_posts")
	}

	return posts, total, nil
}

func (repository *PostgresRepository) SoftDeletePost(context context.Context, id int64) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = NOW(), %s = NOW() WHERE %s = $1 AND %s IS NULL`,
		schema.ContentPost.Table, schema.ContentPost.DeletedAt, schema.ContentPost.UpdatedAt,
		schema.ContentPost.ID, schema.ContentPost.DeletedAt,
	)

	cmd, err := repository.conn(context).Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, "soft_delete_post")
	}

	if cmd.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

// # Comments

// CreateComment inserts a comment only if its post is still live.
func (repository *PostgresRepository) CreateComment(context context.Context, comment *Comment) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s)
		SELECT $1, $2, $3
		WHERE EXISTS (SELECT 1 FROM %s WHERE %s = $1 AND %s IS NULL)
		RETURNING %s, %s, %s
	`,
		schema.ContentComment.Table, schema.ContentComment.PostID, schema.ContentComment.AuthorID, schema.ContentComment.Body,
		schema.ContentPost.Table, schema.ContentPost.ID, schema.ContentPost.DeletedAt,
		schema.ContentComment.ID, schema.ContentComment.CreatedAt, schema.ContentComment.UpdatedAt,
	)

	err := repository.conn(context).QueryRow(context, query, comment.PostID, comment.AuthorID, comment.Content).
		Scan(&comment.ID, &comment.CreatedAt, &comment.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrPostNotFound
	}
	return dberr.Wrap(err, "create_comment")
}

// # Ownership

func (repository *PostgresRepository) CountByAuthor(context context.Context, authorID int64, mode QueryMode) (Reassignment, error) {
	query := fmt.Sprintf(`
		SELECT
			(SELECT COUNT(*) FROM %s WHERE %s = $1%s),
			(SELECT COUNT(*) FROM %s WHERE %s = $1%s)
	`,
		schema.ContentPost.Table, schema.ContentPost.AuthorID, liveFilter(mode, schema.ContentPost.DeletedAt),
		schema.ContentComment.Table, schema.ContentComment.AuthorID, liveFilter(mode, schema.ContentComment.DeletedAt),
	)

	var counts Reassignment
	err := repository.conn(context).QueryRow(context, query, authorID).Scan(&counts.Posts, &counts.Comments)
	if err != nil {
		return Reassignment{}, dberr.Wrap(err, "count_content_by_author")
	}
	return counts, nil
}

/*
ReassignAuthor moves posts and comments from one author to another.

Description: Two bulk updates on the connection bound to the context. Callers
that need both to land together run this inside a transaction.

Parameters:
  - context: context.Context
  - fromAuthorID: int64
  - toAuthorID: int64
  - mode: QueryMode (IncludeDeleted also moves soft-deleted rows)

Returns:
  - Reassignment: Rows moved per table
  - error: Database errors
*/
func (repository *PostgresRepository) ReassignAuthor(context context.Context, fromAuthorID, toAuthorID int64, mode QueryMode) (Reassignment, error) {
	conn := repository.conn(context)

	postQuery := fmt.Sprintf(`UPDATE %s SET %s = $2 WHERE %s = $1%s`,
		schema.ContentPost.Table, schema.ContentPost.AuthorID, schema.ContentPost.AuthorID,
		liveFilter(mode, schema.ContentPost.DeletedAt),
	)
	posts, err := conn.Exec(context, postQuery, fromAuthorID, toAuthorID)
	if err != nil {
		return Reassignment{}, dberr.Wrap(err, "reassign_posts")
	}

	commentQuery := fmt.Sprintf(`UPDATE %s SET %s = $2 WHERE %s = $1%s`,
		schema.ContentComment.Table, schema.ContentComment.AuthorID, schema.ContentComment.AuthorID,
		liveFilter(mode, schema.ContentComment.DeletedAt),
	)
	comments, err := conn.Exec(context, commentQuery, fromAuthorID, toAuthorID)
	if err != nil {
		return Reassignment{}, dberr.Wrap(err, "reassign_comments")
	}

	return Reassignment{Posts: posts.RowsAffected(), Comments: comments.RowsAffected()}, nil
}
