package entity

import "time"

// Post is a top-level forum thread. AuthorID references accounts.id.
type Post struct {
	ID        int64     `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
	AuthorID  int64     `db:"author_id" json:"author_id"`
	// ReplyCount is filled by list queries only.
	ReplyCount *int64 `db:"reply_count" json:"reply_count"`
}

// Reply answers a post. PostID references posts.id, AuthorID references accounts.id.
type Reply struct {
	ID        int64     `db:"id" json:"id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
	AuthorID  int64     `db:"author_id" json:"author_id"`
	PostID    int64     `db:"post_id" json:"post_id"`
}
