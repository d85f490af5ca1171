package models

import (
	"time"
)

// User is the single persisted record per participant, keyed by Telegram id.
type User struct {
	ID            int64      `gorm:"primaryKey;autoIncrement:false"`
	DisplayName   string     `gorm:"size:255"`
	Balance       int64      `gorm:"not null;default:0;check:balance_non_negative,balance >= 0"`
	LastClaimDate *time.Time `gorm:"type:date"`
	ReferrerID    *int64     `gorm:"index"`
	Referrer      *User      `gorm:"foreignKey:ReferrerID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	CreatedAt     time.Time
}

// ClaimedOn reports whether the last claim falls on the same calendar day as day.
func (u User) ClaimedOn(day time.Time) bool {
	if u.LastClaimDate == nil {
		return false
	}
	y1, m1, d1 := u.LastClaimDate.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
