package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/MemberGate/app/models"
)

// userProfileRepository implements the UserProfileRepository interface
type userProfileRepository struct {
	db *gorm.DB
}

// NewUserProfileRepository creates a new user profile repository instance
func NewUserProfileRepository(db *gorm.DB) UserProfileRepository {
	return &userProfileRepository{db: db}
}

// GetByWhopUserID retrieves a profile by its Whop user id
func (r *userProfileRepository) GetByWhopUserID(ctx context.Context, whopUserID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := r.db.WithContext(ctx).Where("whop_user_id = ?", whopUserID).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// CreateIfNotExists inserts the profile unless one already exists for the same
// Whop user id. It reports whether a row was inserted.
func (r *userProfileRepository) CreateIfNotExists(ctx context.Context, profile *models.UserProfile) (bool, error) {
	if profile == nil || profile.WhopUserID == "" {
		return false, errors.New("whop user id is required")
	}

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "whop_user_id"}},
		DoNothing: true,
	}).Create(profile)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Upsert writes email, username and picture for the profile's Whop user id
func (r *userProfileRepository) Upsert(ctx context.Context, profile *models.UserProfile) (*models.UserProfile, error) {
	if profile == nil || profile.WhopUserID == "" {
		return nil, errors.New("whop user id is required")
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "whop_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "username", "profile_picture_url", "updated_at"}),
	}).Create(profile).Error
	if err != nil {
		return nil, err
	}

	// The generated id is discarded on conflict, so reload by the natural key.
	return r.GetByWhopUserID(ctx, profile.WhopUserID)
}

// Update applies the non-nil fields of update to an existing profile
func (r *userProfileRepository) Update(ctx context.Context, whopUserID string, update ProfileUpdate) (*models.UserProfile, error) {
	profile, err := r.GetByWhopUserID(ctx, whopUserID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{"updated_at": time.Now()}
	if update.Username != nil {
		updates["username"] = *update.Username
	}
	if update.ProfilePictureURL != nil {
		updates["profile_picture_url"] = *update.ProfilePictureURL
	}

	if err := r.db.WithContext(ctx).Model(&models.UserProfile{}).
		Where("id = ?", profile.ID).
		Updates(updates).Error; err != nil {
		return nil, err
	}
	return r.GetByWhopUserID(ctx, whopUserID)
}
