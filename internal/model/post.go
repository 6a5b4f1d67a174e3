package model

// DateLayout is how a post's creation date is stored and shown.
const DateLayout = "01/02/2006"

// Post is a blog entry written by the admin.
//
// Date is a calendar date (see DateLayout) captured when the post is inserted;
// updates never change it. Body holds the editor's HTML as-is.
// AuthorName is filled by read queries and is not stored on the post row.
type Post struct {
	ID         int64  `json:"id"         db:"id"`
	Title      string `json:"title"      db:"title"`
	Subtitle   string `json:"subtitle"   db:"subtitle"`
	Date       string `json:"date"       db:"date"`
	Body       string `json:"body"       db:"body"`
	ImgURL     string `json:"imgUrl"     db:"img_url"`
	AuthorID   int64  `json:"authorId"   db:"author_id"`
	AuthorName string `json:"authorName" db:"-"`
}
