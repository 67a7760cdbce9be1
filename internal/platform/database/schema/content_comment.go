package schema

// ContentCommentTable represents the 'content.comment' table
type ContentCommentTable struct {
	Table     string
	ID        string
	PostID    string
	AuthorID  string
	Body      string
	CreatedAt string
	UpdatedAt string
	DeletedAt string
}

// ContentComment is the schema definition for content.comment
var ContentComment = ContentCommentTable{
	Table:     "content.comment",
	ID:        "id",
	PostID:    "postid",
	AuthorID:  "authorid",
	Body:      "body",
	CreatedAt: "createdat",
	UpdatedAt: "updatedat",
	DeletedAt: "deletedat",
}

// Columns returns all standard column names
func (t ContentCommentTable) Columns() []string {
	return []string{
		t.ID, t.PostID, t.AuthorID, t.Body, t.CreatedAt, t.UpdatedAt, t.DeletedAt,
	}
}
