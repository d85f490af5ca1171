// Package referral validates the referrer carried in a /start payload.
package referral

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"earnquick-bot/internal/models"
	"earnquick-bot/internal/repository"
)

// PayloadPrefix starts every referral payload, e.g. "ref12345".
const PayloadPrefix = "ref"

// Lookup is the part of the user store the resolver needs.
type Lookup interface {
	Get(ctx context.Context, id int64) (models.User, error)
}

type Resolver struct {
	users Lookup
}

func NewResolver(users Lookup) *Resolver {
	return &Resolver{users: users}
}

// ParsePayload extracts the candidate referrer id from a start payload.
func ParsePayload(payload string) (int64, bool) {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, PayloadPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(payload, PayloadPrefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Payload renders the start payload that credits id.
func Payload(id int64) string {
	return fmt.Sprintf("%s%d", PayloadPrefix, id)
}

// Resolve returns the referrer to attach to newUserID, or nil. Invalid payloads, self-referrals and
// unknown referrers are dropped silently; a store outage also yields nil and is not retried.
func (r *Resolver) Resolve(ctx context.Context, newUserID int64, payload string) *int64 {
	candidate, ok := ParsePayload(payload)
	if !ok || candidate == newUserID {
		return nil
	}

	if _, err := r.users.Get(ctx, candidate); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Printf("Failed to check referrer %d for user %d: %v", candidate, newUserID, err)
		}
		return nil
	}
	return &candidate
}
