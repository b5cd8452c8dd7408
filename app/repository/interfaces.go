package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/MemberGate/app/models"
)

// UserProfileRepository defines the storage operations for user profiles
type UserProfileRepository interface {
	GetByWhopUserID(ctx context.Context, whopUserID string) (*models.UserProfile, error)
	CreateIfNotExists(ctx context.Context, profile *models.UserProfile) (bool, error)
	Upsert(ctx context.Context, profile *models.UserProfile) (*models.UserProfile, error)
	Update(ctx context.Context, whopUserID string, update ProfileUpdate) (*models.UserProfile, error)
}

// MembershipRepository defines the storage operations for memberships
type MembershipRepository interface {
	Upsert(ctx context.Context, membership *models.Membership) (*models.Membership, error)
	GetByWhopMembershipID(ctx context.Context, whopMembershipID string) (*models.Membership, error)
	ListByWhopUserID(ctx context.Context, whopUserID string) ([]models.Membership, error)
}

// WebhookEventRepository defines the storage operations for the webhook event log
type WebhookEventRepository interface {
	Create(ctx context.Context, event *models.WebhookEvent) error
	ListRecent(ctx context.Context, limit int) ([]models.WebhookEvent, error)
	ListForReplay(ctx context.Context, filter ReplayFilter) ([]models.WebhookEvent, error)
	ListSince(ctx context.Context, since time.Time) ([]models.WebhookEvent, error)
}

// ProfileUpdate carries the optional fields of a profile edit. Nil fields are left unchanged.
type ProfileUpdate struct {
	Username          *string
	ProfilePictureURL *string
}

// ReplayFilter narrows the events returned for replay. Zero values mean no restriction.
type ReplayFilter struct {
	EventType string
	Limit     int
}

// Repositories bundles every repository behind one value for injection.
type Repositories struct {
	Profiles    UserProfileRepository
	Memberships MembershipRepository
	Events      WebhookEventRepository
}

// NewRepositories builds the gorm-backed repositories for db
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Profiles:    NewUserProfileRepository(db),
		Memberships: NewMembershipRepository(db),
		Events:      NewWebhookEventRepository(db),
	}
}
