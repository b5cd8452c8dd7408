package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MembershipStatusActive    = "active"
	MembershipStatusCancelled = "cancelled"
	MembershipStatusExpired   = "expired"
	MembershipStatusPaused    = "paused"
)

func IsValidMembershipStatus(status string) bool {
	switch status {
	case MembershipStatusActive, MembershipStatusCancelled, MembershipStatusExpired, MembershipStatusPaused:
		return true
	default:
		return false
	}
}

// Membership mirrors one Whop membership. Writes upsert on WhopMembershipID.
type Membership struct {
	ID               string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	WhopUserID       string     `gorm:"type:varchar(191);not null;index" json:"whop_user_id"`
	WhopMembershipID string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_memberships_whop_membership_id" json:"whop_membership_id"`
	CompanyID        string     `gorm:"type:varchar(191);not null;default:'';index" json:"company_id"`
	PlanID           string     `gorm:"type:varchar(191);not null;default:''" json:"plan_id"`
	Status           string     `gorm:"type:varchar(32);not null;default:'active';index" json:"status"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	ExpiresAt        *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	LastSyncedAt     time.Time  `gorm:"not null" json:"last_synced_at"`
}

func (m *Membership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = MembershipStatusActive
	}
	if m.LastSyncedAt.IsZero() {
		m.LastSyncedAt = time.Now()
	}
	return nil
}

func (m *Membership) IsActive() bool {
	return m.Status == MembershipStatusActive
}
