// Package ledger holds the points rules: registration with referral join bonus, the once-a-day claim
// with its referral commission, and withdrawal eligibility.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"earnquick-bot/internal/config"
	"earnquick-bot/internal/models"
	"earnquick-bot/internal/referral"
	"earnquick-bot/internal/repository"
)

// ErrAlreadyClaimed is returned by ClaimDaily when today's bonus was already paid.
var ErrAlreadyClaimed = errors.New("daily bonus already claimed today")

// Store is the user record store as the ledger uses it.
type Store interface {
	Get(ctx context.Context, id int64) (models.User, error)
	Create(ctx context.Context, id int64, displayName string, referrerID *int64) (bool, error)
	IncrementBalance(ctx context.Context, id int64, delta int64, claimDate *time.Time) (bool, error)
	Aggregate(ctx context.Context) (repository.Stats, error)
}

type ClaimResult struct {
	Awarded      int64
	Balance      int64
	ReferrerPaid bool
}

// Eligibility is the answer to a withdrawal request. Shortfall is zero when Allowed.
type Eligibility struct {
	Allowed   bool
	Balance   int64
	Minimum   int64
	Shortfall int64
}

type Ledger struct {
	store    Store
	resolver *referral.Resolver
	points   config.Points
	loc      *time.Location
	now      func() time.Time
}

type Option func(*Ledger)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func New(store Store, points config.Points, loc *time.Location, opts ...Option) *Ledger {
	if loc == nil {
		loc = time.UTC
	}
	l := &Ledger{
		store:    store,
		resolver: referral.NewResolver(store),
		points:   points,
		loc:      loc,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) Points() config.Points { return l.points }

// Today is the current calendar day in the claim timezone, as midnight UTC so that it
// round-trips through a DATE column unchanged.
func (l *Ledger) Today() time.Time {
	y, m, d := l.now().In(l.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CanClaim is true unless the user already claimed on today.
func CanClaim(user models.User, today time.Time) bool {
	return !user.ClaimedOn(today)
}

// Register makes sure a record exists for id. A new record gets the referrer resolved from payload,
// and that referrer is paid the join bonus once. Existing records are returned untouched.
func (l *Ledger) Register(ctx context.Context, id int64, displayName, payload string) (models.User, bool, error) {
	user, err := l.store.Get(ctx, id)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return models.User{}, false, err
	}

	referrerID := l.resolver.Resolve(ctx, id, payload)
	created, err := l.store.Create(ctx, id, displayName, referrerID)
	if err != nil {
		return models.User{}, false, err
	}

	if created && referrerID != nil {
		ok, err := l.store.IncrementBalance(ctx, *referrerID, l.points.ReferralJoinBonus, nil)
		switch {
		case err != nil:
			log.Printf("Failed to pay join bonus to %d for %d: %v", *referrerID, id, err)
		case !ok:
			log.Printf("Referrer %d vanished before join bonus for %d", *referrerID, id)
		default:
			log.Printf("User %d invited by %d", id, *referrerID)
		}
	}

	user, err = l.store.Get(ctx, id)
	if err != nil {
		return models.User{}, created, err
	}
	return user, created, nil
}

// ClaimDaily pays the daily bonus and, when the user was referred, the referrer's commission.
// The commission is best effort: a failure is logged and the claim stands.
func (l *Ledger) ClaimDaily(ctx context.Context, id int64) (ClaimResult, error) {
	user, err := l.store.Get(ctx, id)
	if err != nil {
		return ClaimResult{}, err
	}

	today := l.Today()
	if !CanClaim(user, today) {
		return ClaimResult{Balance: user.Balance}, ErrAlreadyClaimed
	}

	ok, err := l.store.IncrementBalance(ctx, id, l.points.DailyReward, &today)
	if err != nil {
		return ClaimResult{}, err
	}
	if !ok {
		// Lost a race with a concurrent claim for the same day.
		return ClaimResult{Balance: user.Balance}, ErrAlreadyClaimed
	}

	res := ClaimResult{Awarded: l.points.DailyReward, Balance: user.Balance + l.points.DailyReward}
	if user.ReferrerID != nil {
		paid, err := l.store.IncrementBalance(ctx, *user.ReferrerID, l.points.ReferralDaily, nil)
		if err != nil {
			log.Printf("Failed to pay daily commission to %d for %d: %v", *user.ReferrerID, id, err)
		}
		res.ReferrerPaid = paid
	}

	if fresh, err := l.store.Get(ctx, id); err == nil {
		res.Balance = fresh.Balance
	}
	return res, nil
}

// CheckWithdrawal applies the minimum balance gate. Nothing is debited.
func (l *Ledger) CheckWithdrawal(balance int64) Eligibility {
	e := Eligibility{Balance: balance, Minimum: l.points.MinWithdraw}
	if balance >= l.points.MinWithdraw {
		e.Allowed = true
		return e
	}
	e.Shortfall = l.points.MinWithdraw - balance
	return e
}

func (l *Ledger) Stats(ctx context.Context) (repository.Stats, error) {
	return l.store.Aggregate(ctx)
}

// ReferralLink is the deep link that credits id when a new user opens it.
func ReferralLink(botUsername string, id int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, referral.Payload(id))
}
