package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const UnknownEventType = "unknown"

// WebhookEvent is an append-only record of a verified inbound notification.
type WebhookEvent struct {
	ID               string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	EventType        string         `gorm:"type:varchar(100);not null;index" json:"event_type"`
	WhopUserID       *string        `gorm:"type:varchar(191);index" json:"whop_user_id"`
	WhopMembershipID *string        `gorm:"type:varchar(191);index" json:"whop_membership_id"`
	CompanyID        *string        `gorm:"type:varchar(191)" json:"company_id"`
	PlanID           *string        `gorm:"type:varchar(191)" json:"plan_id"`
	Payload          datatypes.JSON `gorm:"not null" json:"payload"`
	Processed        bool           `gorm:"not null;default:false" json:"processed"`
	CreatedAt        time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

func (e *WebhookEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.EventType == "" {
		e.EventType = UnknownEventType
	}
	return nil
}
