package webhook

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ManuelReschke/MemberGate/app/models"
	"github.com/ManuelReschke/MemberGate/app/repository"
	"github.com/ManuelReschke/MemberGate/internal/pkg/whop"
)

// Reconciler folds provider state into the local profile and membership tables.
// Every write is an upsert, so applying the same input twice is harmless.
type Reconciler struct {
	profiles    repository.UserProfileRepository
	memberships repository.MembershipRepository
	log         *zap.Logger
}

func NewReconciler(repos *repository.Repositories, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		profiles:    repos.Profiles,
		memberships: repos.Memberships,
		log:         log.Named("reconciler"),
	}
}

// ReconcileMembership writes the membership described by subject with status.
// A subject without user_id or id is skipped.
func (r *Reconciler) ReconcileMembership(ctx context.Context, subject Fields, status string) error {
	userID := subject.String("user_id")
	membershipID := subject.String("id")
	if userID == "" || membershipID == "" {
		r.log.Warn("skipping membership event without user_id or id",
			zap.String("user_id", userID),
			zap.String("membership_id", membershipID),
		)
		return nil
	}

	profile := &models.UserProfile{
		WhopUserID: userID,
		Email:      subject.String("user.email"),
		Username:   subject.String("user.username"),
	}
	if pic := subject.String("user.profile_picture_url"); pic != "" {
		profile.ProfilePictureURL = &pic
	}
	if _, err := r.profiles.CreateIfNotExists(ctx, profile); err != nil {
		// A missing profile does not block the membership write.
		r.log.Error("failed to ensure user profile", zap.String("user_id", userID), zap.Error(err))
	}

	membership := &models.Membership{
		WhopUserID:       userID,
		WhopMembershipID: membershipID,
		CompanyID:        subject.First("company_id", "company.id"),
		PlanID:           subject.First("plan_id", "plan.id"),
		Status:           status,
		ExpiresAt:        subject.Time("expires_at"),
	}
	if _, err := r.memberships.Upsert(ctx, membership); err != nil {
		return fmt.Errorf("upsert membership %s: %w", membershipID, err)
	}

	r.log.Info("membership reconciled",
		zap.String("user_id", userID),
		zap.String("membership_id", membershipID),
		zap.String("status", status),
	)
	return nil
}

// ReconcileUser merges the profile fields present in subject into the stored
// profile. Absent or empty fields keep their stored value.
func (r *Reconciler) ReconcileUser(ctx context.Context, subject Fields) error {
	userID := subject.String("id")
	if userID == "" {
		r.log.Warn("skipping user event without id")
		return nil
	}

	profile, err := r.profiles.GetByWhopUserID(ctx, userID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		profile = &models.UserProfile{
			WhopUserID: userID,
			Email:      models.UnknownEmail,
			Username:   models.UnknownUsername,
		}
	case err != nil:
		return fmt.Errorf("load profile %s: %w", userID, err)
	}

	if v := subject.String("email"); v != "" {
		profile.Email = v
	}
	if v := subject.String("username"); v != "" {
		profile.Username = v
	}
	if v := subject.String("profile_picture_url"); v != "" {
		profile.ProfilePictureURL = &v
	}

	if _, err := r.profiles.Upsert(ctx, profile); err != nil {
		return fmt.Errorf("upsert profile %s: %w", userID, err)
	}

	r.log.Info("user profile reconciled", zap.String("user_id", userID))
	return nil
}

// EnsureProfile returns the stored profile for user, creating it if absent.
func (r *Reconciler) EnsureProfile(ctx context.Context, user whop.User) (*models.UserProfile, error) {
	if user.ID == "" {
		return nil, errors.New("whop user id is required")
	}

	profile, err := r.profiles.GetByWhopUserID(ctx, user.ID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created := &models.UserProfile{
		WhopUserID: user.ID,
		Email:      user.Email,
		Username:   user.Username,
	}
	if user.ProfilePictureURL != "" {
		pic := user.ProfilePictureURL
		created.ProfilePictureURL = &pic
	}
	if _, err := r.profiles.CreateIfNotExists(ctx, created); err != nil {
		return nil, err
	}
	// Another request may have won the insert, so read back what is stored.
	return r.profiles.GetByWhopUserID(ctx, user.ID)
}

// SyncMembership upserts a membership fetched from the API for whopUserID.
func (r *Reconciler) SyncMembership(ctx context.Context, whopUserID string, m whop.Membership) (*models.Membership, error) {
	if m.ID == "" {
		return nil, errors.New("whop membership id is required")
	}
	if !models.IsValidMembershipStatus(m.Status) {
		return nil, fmt.Errorf("unknown membership status %q", m.Status)
	}

	return r.memberships.Upsert(ctx, &models.Membership{
		WhopUserID:       whopUserID,
		WhopMembershipID: m.ID,
		CompanyID:        m.CompanyID,
		PlanID:           m.PlanID,
		Status:           m.Status,
		ExpiresAt:        m.ExpiresAt.Ptr(),
	})
}
