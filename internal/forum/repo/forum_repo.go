package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-forum-go-stdlib/internal/forum/entity"
	"github.com/ovaphlow/pitchfork/service-forum-go-stdlib/pkg/database"
)

var ErrNotFound = errors.New("not found")

// ForumRepo is the repository for posts and replies. Relations are plain
// foreign-key columns; joins happen in the queries below.
type ForumRepo struct {
	db *sqlx.DB
}

// NewForumRepo constructs a new ForumRepo with an existing connection.
func NewForumRepo(db *sqlx.DB) *ForumRepo {
	return &ForumRepo{db: db}
}

var postgresDDL = []string{
	`CREATE TABLE IF NOT EXISTS posts (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		author_id BIGINT NOT NULL REFERENCES accounts(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_author_id ON posts (author_id)`,
	`CREATE TABLE IF NOT EXISTS replies (
		id BIGSERIAL PRIMARY KEY,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		author_id BIGINT NOT NULL REFERENCES accounts(id),
		post_id BIGINT NOT NULL REFERENCES posts(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_replies_post_id ON replies (post_id)`,
}

var sqliteDDL = []string{
	`CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		author_id INTEGER NOT NULL REFERENCES accounts(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_author_id ON posts (author_id)`,
	`CREATE TABLE IF NOT EXISTS replies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		author_id INTEGER NOT NULL REFERENCES accounts(id),
		post_id INTEGER NOT NULL REFERENCES posts(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_replies_post_id ON replies (post_id)`,
}

// EnsureTable ensures the posts and replies tables and their indexes exist.
// The accounts table must exist first.
func (r *ForumRepo) EnsureTable(ctx context.Context) error {
	stmts := postgresDDL
	if r.db.DriverName() == database.DriverSQLite {
		stmts = sqliteDDL
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure forum tables: %w", err)
		}
	}
	return nil
}

// CreatePost inserts p and fills in its ID.
func (r *ForumRepo) CreatePost(ctx context.Context, p *entity.Post) error {
	q := r.db.Rebind(`INSERT INTO posts (title, content, created_at, updated_at, author_id)
		VALUES (?, ?, ?, ?, ?) RETURNING id`)
	return r.db.QueryRowxContext(ctx, q, p.Title, p.Content, p.CreatedAt, p.UpdatedAt, p.AuthorID).Scan(&p.ID)
}

// GetPost returns a post by id or ErrNotFound.
func (r *ForumRepo) GetPost(ctx context.Context, id int64) (*entity.Post, error) {
	var p entity.Post
	q := r.db.Rebind(`SELECT id, title, content, created_at, updated_at, author_id FROM posts WHERE id = ?`)
	if err := r.db.GetContext(ctx, &p, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListPosts returns posts ordered by id with their reply counts.
func (r *ForumRepo) ListPosts(ctx context.Context, limit, offset int) ([]*entity.Post, error) {
	q := r.db.Rebind(`SELECT p.id, p.title, p.content, p.created_at, p.updated_at, p.author_id,
			COUNT(rp.id) AS reply_count
		FROM posts p
		LEFT JOIN replies rp ON rp.post_id = p.id
		GROUP BY p.id, p.title, p.content, p.created_at, p.updated_at, p.author_id
		ORDER BY p.id
		LIMIT ? OFFSET ?`)
	posts := []*entity.Post{}
	if err := r.db.SelectContext(ctx, &posts, q, limit, offset); err != nil {
		return nil, err
	}
	return posts, nil
}

// CreateReply inserts rp and fills in its ID.
func (r *ForumRepo) CreateReply(ctx context.Context, rp *entity.Reply) error {
	q := r.db.Rebind(`INSERT INTO replies (content, created_at, updated_at, author_id, post_id)
		VALUES (?, ?, ?, ?, ?) RETURNING id`)
	return r.db.QueryRowxContext(ctx, q, rp.Content, rp.CreatedAt, rp.UpdatedAt, rp.AuthorID, rp.PostID).Scan(&rp.ID)
}

// ListReplies returns the replies of postID ordered by id.
func (r *ForumRepo) ListReplies(ctx context.Context, postID int64) ([]*entity.Reply, error) {
	q := r.db.Rebind(`SELECT id, content, created_at, updated_at, author_id, post_id
		FROM replies WHERE post_id = ? ORDER BY id`)
	replies := []*entity.Reply{}
	if err := r.db.SelectContext(ctx, &replies, q, postID); err != nil {
		return nil, err
	}
	return replies, nil
}
