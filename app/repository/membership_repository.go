package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/MemberGate/app/models"
)

// membershipRepository implements the MembershipRepository interface
type membershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository creates a new membership repository instance
func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

// Upsert inserts or overwrites the membership keyed by its Whop membership id.
// Every write refreshes last_synced_at.
func (r *membershipRepository) Upsert(ctx context.Context, membership *models.Membership) (*models.Membership, error) {
	if membership == nil || membership.WhopMembershipID == "" {
		return nil, errors.New("whop membership id is required")
	}
	if membership.WhopUserID == "" {
		return nil, errors.New("whop user id is required")
	}
	if membership.Status == "" {
		membership.Status = models.MembershipStatusActive
	}
	membership.LastSyncedAt = time.Now()

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "whop_membership_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"whop_user_id",
			"company_id",
			"plan_id",
			"status",
			"expires_at",
			"last_synced_at",
		}),
	}).Create(membership).Error
	if err != nil {
		return nil, err
	}

	return r.GetByWhopMembershipID(ctx, membership.WhopMembershipID)
}

// GetByWhopMembershipID retrieves a membership by its Whop membership id
func (r *membershipRepository) GetByWhopMembershipID(ctx context.Context, whopMembershipID string) (*models.Membership, error) {
	var membership models.Membership
	err := r.db.WithContext(ctx).Where("whop_membership_id = ?", whopMembershipID).First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// ListByWhopUserID lists the stored memberships of a user, most recently synced first
func (r *membershipRepository) ListByWhopUserID(ctx context.Context, whopUserID string) ([]models.Membership, error) {
	var memberships []models.Membership
	err := r.db.WithContext(ctx).
		Where("whop_user_id = ?", whopUserID).
		Order("last_synced_at DESC").
		Find(&memberships).Error
	return memberships, err
}
