package forum

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/ovaphlow/pitchfork/service-forum-go-stdlib/internal/forum/entity"
	"github.com/ovaphlow/pitchfork/service-forum-go-stdlib/internal/forum/repo"
)

// Store is the persistence the forum service needs. *repo.ForumRepo satisfies it.
type Store interface {
	CreatePost(ctx context.Context, p *entity.Post) error
	GetPost(ctx context.Context, id int64) (*entity.Post, error)
	ListPosts(ctx context.Context, limit, offset int) ([]*entity.Post, error)
	CreateReply(ctx context.Context, rp *entity.Reply) error
	ListReplies(ctx context.Context, postID int64) ([]*entity.Reply, error)
}

// Service encapsulates business logic for posts and replies.
type Service struct {
	store Store
	clock clockwork.Clock
}

// NewService constructs a Service. A nil clock means the real clock.
func NewService(store Store, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{store: store, clock: clock}
}

var ErrPostNotFound = errors.New("post not found")

// CreatePost stores a new post authored by authorID.
func (s *Service) CreatePost(ctx context.Context, authorID int64, title, content string) (*entity.Post, error) {
	now := s.clock.Now().UTC()
	p := &entity.Post{
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
		AuthorID:  authorID,
	}
	if err := s.store.CreatePost(ctx, p); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	var zero int64
	p.ReplyCount = &zero
	return p, nil
}

// ListPosts returns a page of posts with reply counts.
func (s *Service) ListPosts(ctx context.Context, skip, limit int) ([]*entity.Post, error) {
	return s.store.ListPosts(ctx, limit, skip)
}

// ListReplies returns the replies of a post, or ErrPostNotFound.
func (s *Service) ListReplies(ctx context.Context, postID int64) ([]*entity.Reply, error) {
	if err := s.ensurePost(ctx, postID); err != nil {
		return nil, err
	}
	return s.store.ListReplies(ctx, postID)
}

// CreateReply stores a reply to postID, or returns ErrPostNotFound.
func (s *Service) CreateReply(ctx context.Context, authorID, postID int64, content string) (*entity.Reply, error) {
	if err := s.ensurePost(ctx, postID); err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	rp := &entity.Reply{
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
		AuthorID:  authorID,
		PostID:    postID,
	}
	if err := s.store.CreateReply(ctx, rp); err != nil {
		return nil, fmt.Errorf("create reply: %w", err)
	}
	return rp, nil
}

func (s *Service) ensurePost(ctx context.Context, postID int64) error {
	_, err := s.store.GetPost(ctx, postID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrPostNotFound
	}
	return err
}
