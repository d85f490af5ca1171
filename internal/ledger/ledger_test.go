package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"earnquick-bot/internal/config"
	"earnquick-bot/internal/models"
	"earnquick-bot/internal/repository"
)

// memStore mirrors the guarded update semantics of repository.Users.
type memStore struct {
	mu    sync.Mutex
	users map[int64]models.User
	down  bool
}

func newMemStore() *memStore {
	return &memStore{users: make(map[int64]models.User)}
}

func (m *memStore) Get(_ context.Context, id int64) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return models.User{}, repository.ErrUnavailable
	}
	u, ok := m.users[id]
	if !ok {
		return models.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memStore) Create(_ context.Context, id int64, name string, referrerID *int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return false, repository.ErrUnavailable
	}
	if referrerID != nil && *referrerID == id {
		return false, repository.ErrSelfReferral
	}
	if _, ok := m.users[id]; ok {
		return false, nil
	}
	m.users[id] = models.User{ID: id, DisplayName: name, ReferrerID: referrerID, CreatedAt: time.Now()}
	return true, nil
}

func (m *memStore) IncrementBalance(_ context.Context, id int64, delta int64, claimDate *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return false, repository.ErrUnavailable
	}
	u, ok := m.users[id]
	if !ok || u.Balance+delta < 0 {
		return false, nil
	}
	if claimDate != nil {
		if u.LastClaimDate != nil && !u.LastClaimDate.Before(*claimDate) {
			return false, nil
		}
		d := *claimDate
		u.LastClaimDate = &d
	}
	u.Balance += delta
	m.users[id] = u
	return true, nil
}

func (m *memStore) Aggregate(_ context.Context) (repository.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s repository.Stats
	for _, u := range m.users {
		s.Users++
		s.TotalBalance += u.Balance
	}
	return s, nil
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestLedger(store Store) (*Ledger, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)}
	return New(store, config.DefaultPoints, time.UTC, WithClock(clock.Now)), clock
}

func balance(t *testing.T, s *memStore, id int64) int64 {
	t.Helper()
	u, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	return u.Balance
}

func TestReferralScenario(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	l, clock := newTestLedger(store)

	const a, b int64 = 100, 200

	_, created, err := l.Register(ctx, a, "A", "")
	require.NoError(t, err)
	require.True(t, created)

	_, err = l.ClaimDaily(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance(t, store, a))

	userB, created, err := l.Register(ctx, b, "B", "ref100")
	require.NoError(t, err)
	require.True(t, created)
	require.NotNil(t, userB.ReferrerID)
	assert.Equal(t, a, *userB.ReferrerID)
	assert.Equal(t, int64(60), balance(t, store, a))

	res, err := l.ClaimDaily(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, ClaimResult{Awarded: 10, Balance: 10, ReferrerPaid: true}, res)
	assert.Equal(t, int64(62), balance(t, store, a))

	_, err = l.ClaimDaily(ctx, b)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
	assert.Equal(t, int64(10), balance(t, store, b))
	assert.Equal(t, int64(62), balance(t, store, a))

	clock.now = clock.now.Add(24 * time.Hour)
	res, err = l.ClaimDaily(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, int64(20), res.Balance)
	assert.Equal(t, int64(64), balance(t, store, a))
}

func TestRegisterTwiceLeavesRecordUnchanged(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	l, _ := newTestLedger(store)

	_, _, err := l.Register(ctx, 1, "Ref", "")
	require.NoError(t, err)
	_, _, err = l.Register(ctx, 2, "New", "ref1")
	require.NoError(t, err)
	_, err = l.ClaimDaily(ctx, 2)
	require.NoError(t, err)

	before, err := store.Get(ctx, 2)
	require.NoError(t, err)
	refBefore := balance(t, store, 1)

	after, created, err := l.Register(ctx, 2, "Other name", "ref1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, before, after)
	assert.Equal(t, refBefore, balance(t, store, 1), "join bonus must not be paid twice")
}

func TestRegisterDropsInvalidReferrals(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	l, _ := newTestLedger(store)

	for i, payload := range []string{"", "ref", "refabc", "ref-3", "42", "ref7", "ref106"} {
		id := int64(100 + i)
		u, created, err := l.Register(ctx, id, "U", payload)
		require.NoError(t, err, payload)
		assert.True(t, created, payload)
		assert.Nil(t, u.ReferrerID, payload)
	}
}

func TestRegisterStoreDown(t *testing.T) {
	store := newMemStore()
	store.down = true
	l, _ := newTestLedger(store)

	_, _, err := l.Register(context.Background(), 1, "A", "")
	assert.ErrorIs(t, err, repository.ErrUnavailable)
}

func TestClaimDailyUsesClaimTimezone(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	loc := time.FixedZone("UTC+6", 6*60*60)
	clock := &fakeClock{now: time.Date(2026, 10, 17, 17, 30, 0, 0, time.UTC)} // 23:30 local
	l := New(store, config.DefaultPoints, loc, WithClock(clock.Now))

	_, _, err := l.Register(ctx, 1, "A", "")
	require.NoError(t, err)
	_, err = l.ClaimDaily(ctx, 1)
	require.NoError(t, err)

	clock.now = clock.now.Add(time.Hour) // 00:30 local, next day
	_, err = l.ClaimDaily(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(20), balance(t, store, 1))
}

func TestClaimDailyUnknownUser(t *testing.T) {
	l, _ := newTestLedger(newMemStore())
	_, err := l.ClaimDaily(context.Background(), 5)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCheckWithdrawal(t *testing.T) {
	l, _ := newTestLedger(newMemStore())

	e := l.CheckWithdrawal(999)
	assert.False(t, e.Allowed)
	assert.Equal(t, int64(1), e.Shortfall)

	e = l.CheckWithdrawal(1000)
	assert.True(t, e.Allowed)
	assert.Zero(t, e.Shortfall)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(newMemStore())
	_, _, err := l.Register(ctx, 1, "A", "")
	require.NoError(t, err)
	_, _, err = l.Register(ctx, 2, "B", "ref1")
	require.NoError(t, err)

	stats, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, repository.Stats{Users: 2, TotalBalance: 50}, stats)
}

func TestReferralLink(t *testing.T) {
	assert.Equal(t, "https://t.me/earn_bot?start=ref42", ReferralLink("earn_bot", 42))
}
