package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-forum-go-stdlib/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-forum-go-stdlib/internal/account/repo"
)

var (
	testSecret = []byte(strings.Repeat("s", 32))
	testEpoch  = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

const testTTL = 30 * time.Minute

// fakeDirectory is an in-memory AccountDirectory with the same uniqueness
// rules as the sql store.
type fakeDirectory struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]*entity.Account
	err      error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{accounts: map[int64]*entity.Account{}}
}

func (d *fakeDirectory) Create(_ context.Context, a *entity.Account) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	for _, existing := range d.accounts {
		if existing.Email == a.Email {
			return repo.ErrDuplicateEmail
		}
		if existing.Username == a.Username {
			return repo.ErrDuplicateUsername
		}
	}
	d.nextID++
	a.ID = d.nextID
	cp := *a
	d.accounts[a.ID] = &cp
	return nil
}

func (d *fakeDirectory) GetByID(_ context.Context, id int64) (*entity.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	a, ok := d.accounts[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (d *fakeDirectory) GetByEmail(_ context.Context, email string) (*entity.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	for _, a := range d.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (d *fakeDirectory) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := d.GetByEmail(ctx, email)
	if err == repo.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (d *fakeDirectory) setActive(id int64, active bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts[id].IsActive = active
}

type testEnv struct {
	dir     *fakeDirectory
	codec   *TokenCodec
	clock   *clockwork.FakeClock
	svc     *Service
	gate    *Gate
	metrics *Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	codec, err := NewTokenCodec(testSecret, testTTL)
	require.NoError(t, err)
	clock := clockwork.NewFakeClockAt(testEpoch)
	dir := newFakeDirectory()
	metrics := NewMetrics("test", prometheus.NewRegistry())
	hasher := NewBcryptHasher(bcrypt.MinCost, nil)
	return &testEnv{
		dir:     dir,
		codec:   codec,
		clock:   clock,
		svc:     NewService(dir, hasher, codec, clock, nil, metrics),
		gate:    NewGate(codec, dir, clock, nil, metrics),
		metrics: metrics,
	}
}
