package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	accrepo "github.com/ovaphlow/pitchfork/service-forum-go-stdlib/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-forum-go-stdlib/internal/auth"
	"github.com/ovaphlow/pitchfork/service-forum-go-stdlib/internal/config"
	"github.com/ovaphlow/pitchfork/service-forum-go-stdlib/internal/forum"
	forumrepo "github.com/ovaphlow/pitchfork/service-forum-go-stdlib/internal/forum/repo"
)

// MetricsNamespace prefixes every metric the service exports.
const MetricsNamespace = "forum"

// Services holds the wired components behind the HTTP routes.
type Services struct {
	Auth  *auth.Service
	Gate  *auth.Gate
	Forum *forum.Service

	accounts *accrepo.AccountRepo
	posts    *forumrepo.ForumRepo
}

// NewServices wires repositories, the token codec and the services on db.
// A nil clock means the real clock.
func NewServices(cfg config.Settings, db *sqlx.DB, clock clockwork.Clock, logger *zap.SugaredLogger, reg prometheus.Registerer) (*Services, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	codec, err := auth.NewTokenCodec(cfg.SecretKey, cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}
	accounts := accrepo.NewAccountRepo(db)
	posts := forumrepo.NewForumRepo(db)
	metrics := auth.NewMetrics(MetricsNamespace, reg)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost, logger)

	return &Services{
		Auth:     auth.NewService(accounts, hasher, codec, clock, logger, metrics),
		Gate:     auth.NewGate(codec, accounts, clock, logger, metrics),
		Forum:    forum.NewService(posts, clock),
		accounts: accounts,
		posts:    posts,
	}, nil
}

// EnsureSchema creates the accounts, posts and replies tables in dependency order.
func (s *Services) EnsureSchema(ctx context.Context) error {
	if err := s.accounts.EnsureTable(ctx); err != nil {
		return err
	}
	return s.posts.EnsureTable(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
