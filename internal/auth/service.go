package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-forum-go-stdlib/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-forum-go-stdlib/internal/account/repo"
)

// AccountDirectory is the account store the auth flows and the gate rely on.
// *repo.AccountRepo satisfies it.
type AccountDirectory interface {
	Create(ctx context.Context, a *entity.Account) error
	GetByID(ctx context.Context, id int64) (*entity.Account, error)
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// Service orchestrates registration and login.
type Service struct {
	dir     AccountDirectory
	hasher  PasswordHasher
	codec   *TokenCodec
	clock   clockwork.Clock
	logger  *zap.SugaredLogger
	metrics *Metrics

	dummyOnce sync.Once
	dummyHash string
}

func NewService(dir AccountDirectory, hasher PasswordHasher, codec *TokenCodec, clock clockwork.Clock, logger *zap.SugaredLogger, metrics *Metrics) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{dir: dir, hasher: hasher, codec: codec, clock: clock, logger: logger, metrics: metrics}
}

// NormalizeEmail is applied to every email before it reaches the store.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an active account and returns an access token for it.
// The email pre-check is a convenience; the store's unique constraint is
// authoritative and a violation on insert is reported the same way.
// Usernames are not pre-checked; a collision surfaces from the store as
// ErrDuplicateUsername.
func (s *Service) Register(ctx context.Context, email, username, password string) (string, error) {
	email = NormalizeEmail(email)
	username = strings.TrimSpace(username)

	exists, err := s.dir.ExistsByEmail(ctx, email)
	if err != nil {
		s.metrics.register("error")
		return "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		s.metrics.register("duplicate_email")
		return "", ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.metrics.register("error")
		return "", fmt.Errorf("hash password: %w", err)
	}
	acc := &entity.Account{
		Email:          email,
		Username:       username,
		HashedPassword: hash,
		IsActive:       true,
		CreatedAt:      s.clock.Now().UTC(),
	}
	if err := s.dir.Create(ctx, acc); err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicateEmail):
			s.metrics.register("duplicate_email")
			return "", ErrDuplicateEmail
		case errors.Is(err, repo.ErrDuplicateUsername):
			s.metrics.register("duplicate_username")
			return "", ErrDuplicateUsername
		}
		s.metrics.register("error")
		return "", fmt.Errorf("create account: %w", err)
	}

	token, err := s.codec.Issue(acc.ID, s.clock.Now())
	if err != nil {
		s.metrics.register("error")
		return "", fmt.Errorf("issue token: %w", err)
	}
	s.logger.Infow("account registered", "account_id", acc.ID)
	s.metrics.register("ok")
	return token, nil
}

// Login returns an access token when email and password match an account.
// An unknown email and a wrong password both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	acc, err := s.dir.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// burn the same bcrypt cost as a real comparison
			s.hasher.Verify(s.dummy(), password)
			s.metrics.login("invalid_credentials")
			return "", ErrInvalidCredentials
		}
		s.metrics.login("error")
		return "", fmt.Errorf("lookup account: %w", err)
	}
	if !s.hasher.Verify(acc.HashedPassword, password) {
		s.metrics.login("invalid_credentials")
		return "", ErrInvalidCredentials
	}

	token, err := s.codec.Issue(acc.ID, s.clock.Now())
	if err != nil {
		s.metrics.login("error")
		return "", fmt.Errorf("issue token: %w", err)
	}
	s.metrics.login("ok")
	return token, nil
}

// EnsureSuperuser creates the bootstrap account if no account holds email.
// The username is the local part of the email. It is a no-op when the
// account already exists.
func (s *Service) EnsureSuperuser(ctx context.Context, email, password string) (created bool, err error) {
	email = NormalizeEmail(email)
	if email == "" {
		return false, nil
	}
	exists, err := s.dir.ExistsByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("check superuser: %w", err)
	}
	if exists {
		return false, nil
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hash superuser password: %w", err)
	}
	username, _, _ := strings.Cut(email, "@")
	acc := &entity.Account{
		Email:          email,
		Username:       username,
		HashedPassword: hash,
		IsActive:       true,
		CreatedAt:      s.clock.Now().UTC(),
	}
	if err := s.dir.Create(ctx, acc); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return false, nil
		}
		return false, fmt.Errorf("create superuser: %w", err)
	}
	s.logger.Infow("superuser created", "account_id", acc.ID)
	return true, nil
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("timing-equaliser")
		if err != nil {
			s.logger.Warnw("dummy hash unavailable", "err", err)
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
