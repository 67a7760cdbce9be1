package schema

// ContentPostTable represents the 'content.post' table
type ContentPostTable struct {
	Table     string
	ID        string
	AuthorID  string
	Title     string
	Body      string
	CreatedAt string
	UpdatedAt string
	DeletedAt string
}

// ContentPost is the schema definition for content.post
var ContentPost = ContentPostTable{
	Table:     "content.post",
	ID:        "id",
	AuthorID:  "authorid",
	Title:     "title",
	Body:      "body",
	CreatedAt: "createdat",
	UpdatedAt: "updatedat",
	DeletedAt: "deletedat",
}

// Columns returns all standard column names
func (t ContentPostTable) Columns() []string {
	return []string{
		t.ID, t.AuthorID, t.Title, t.Body, t.CreatedAt, t.UpdatedAt, t.DeletedAt,
	}
}
