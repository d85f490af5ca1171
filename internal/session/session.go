// Package session keeps short-lived per-user state: the withdrawal prompt flag and a referral
// payload waiting for the user to join the channel.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store remembers which users are expected to reply with withdrawal details.
type Store interface {
	MarkAwaitingWithdrawal(ctx context.Context, userID int64) error
	// ConsumeAwaitingWithdrawal reports whether the flag was set and clears it.
	ConsumeAwaitingWithdrawal(ctx context.Context, userID int64) (bool, error)

	// SavePendingReferral keeps a /start payload while the user still has to join the channel.
	SavePendingReferral(ctx context.Context, userID int64, payload string) error
	// TakePendingReferral returns the kept payload, or "", and clears it.
	TakePendingReferral(ctx context.Context, userID int64) (string, error)
}

// PendingReferralTTL bounds how long a referral payload waits for the user to join.
const PendingReferralTTL = 24 * time.Hour

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func referralKey(userID int64) string {
	return fmt.Sprintf("pending_referral:%d", userID)
}

func withdrawalKey(userID int64) string {
	return fmt.Sprintf("awaiting_withdrawal:%d", userID)
}

func (s *RedisStore) MarkAwaitingWithdrawal(ctx context.Context, userID int64) error {
	if err := s.rdb.Set(ctx, withdrawalKey(userID), "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("set withdrawal flag: %w", err)
	}
	return nil
}

func (s *RedisStore) ConsumeAwaitingWithdrawal(ctx context.Context, userID int64) (bool, error) {
	_, err := s.rdb.GetDel(ctx, withdrawalKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("consume withdrawal flag: %w", err)
	}
	return true, nil
}

func (s *RedisStore) SavePendingReferral(ctx context.Context, userID int64, payload string) error {
	if err := s.rdb.Set(ctx, referralKey(userID), payload, PendingReferralTTL).Err(); err != nil {
		return fmt.Errorf("set pending referral: %w", err)
	}
	return nil
}

func (s *RedisStore) TakePendingReferral(ctx context.Context, userID int64) (string, error) {
	payload, err := s.rdb.GetDel(ctx, referralKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("take pending referral: %w", err)
	}
	return payload, nil
}
