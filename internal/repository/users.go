package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"earnquick-bot/internal/models"
)

var (
	// ErrNotFound means the store answered and there is no such user.
	ErrNotFound = errors.New("user not found")
	// ErrUnavailable means the store could not answer; the request may be retried later.
	ErrUnavailable = errors.New("user store unavailable")
	// ErrSelfReferral is returned when a user is created as their own referrer.
	ErrSelfReferral = errors.New("user cannot refer themselves")
)

// Stats is the aggregate view shown to the operator.
type Stats struct {
	Users        int64
	TotalBalance int64
}

// Users is the gorm-backed user record store. Every method touches at most one row,
// except ListIDs and Aggregate which scan the table.
type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users { return &Users{db: db} }

func (r *Users) Get(ctx context.Context, id int64) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, unavailable("get", err)
	}
	return user, nil
}

// Create inserts the user unless a row with the same id exists. created is false for the no-op case.
func (r *Users) Create(ctx context.Context, id int64, displayName string, referrerID *int64) (bool, error) {
	if referrerID != nil && *referrerID == id {
		return false, ErrSelfReferral
	}

	user := models.User{
		ID:          id,
		DisplayName: displayName,
		ReferrerID:  referrerID,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Omit(clause.Associations).
		Create(&user)
	if res.Error != nil {
		return false, unavailable("create", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// IncrementBalance adds delta to the balance as a single relative UPDATE.
// With a claim date the row only matches when the stored date is older, so the date never moves
// backwards and two claims for the same day cannot both succeed. A negative delta never takes the
// balance below zero. ok is false when no row matched.
func (r *Users) IncrementBalance(ctx context.Context, id int64, delta int64, claimDate *time.Time) (bool, error) {
	updates := map[string]interface{}{
		"balance": gorm.Expr("balance + ?", delta),
	}

	q := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id)
	if delta < 0 {
		q = q.Where("balance + ? >= 0", delta)
	}
	if claimDate != nil {
		updates["last_claim_date"] = *claimDate
		q = q.Where("(last_claim_date IS NULL OR last_claim_date < ?)", *claimDate)
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, unavailable("increment balance", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *Users) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, unavailable("list ids", err)
	}
	return ids, nil
}

func (r *Users) Aggregate(ctx context.Context) (Stats, error) {
	var row struct {
		Users        int64
		TotalBalance int64
	}
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Select("COUNT(id) AS users, COALESCE(SUM(balance), 0) AS total_balance").
		Scan(&row).Error
	if err != nil {
		return Stats{}, unavailable("aggregate", err)
	}
	return Stats{Users: row.Users, TotalBalance: row.TotalBalance}, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
