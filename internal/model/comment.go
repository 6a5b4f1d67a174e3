package model

// Comment is a reader's reply under a post. Text is sanitized HTML.
//
// The comments table does not declare author_id or post_id NOT NULL, so
// both are zero when the column is NULL.
type Comment struct {
	ID         int64  `json:"id"         db:"id"`
	Text       string `json:"text"       db:"text"`
	AuthorID   int64  `json:"authorId"   db:"author_id"`
	PostID     int64  `json:"postId"     db:"post_id"`
	AuthorName string `json:"authorName" db:"-"`
}
