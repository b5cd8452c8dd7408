package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ManuelReschke/MemberGate/app/models"
	"github.com/ManuelReschke/MemberGate/app/repository"
	"github.com/ManuelReschke/MemberGate/internal/pkg/usercontext"
	"github.com/ManuelReschke/MemberGate/internal/pkg/webhook"
	"github.com/ManuelReschke/MemberGate/internal/pkg/whop"
)

// MembershipChecker asks the provider whether a token holder has an active
// membership for a company, see whop.Client.
type MembershipChecker interface {
	HasActiveMembership(ctx context.Context, accessToken, companyID string) (bool, error)
}

type MembershipController struct {
	memberships repository.MembershipRepository
	reconciler  *webhook.Reconciler
	checker     MembershipChecker
	log         *zap.Logger
}

func NewMembershipController(memberships repository.MembershipRepository, reconciler *webhook.Reconciler, checker MembershipChecker, log *zap.Logger) *MembershipController {
	if log == nil {
		log = zap.NewNop()
	}
	return &MembershipController{
		memberships: memberships,
		reconciler:  reconciler,
		checker:     checker,
		log:         log.Named("membership"),
	}
}

// HandleCheck answers membership questions from the session snapshot.
// With live=true and a companyId the provider is asked instead; a failed
// live check falls back to the snapshot.
func (mc *MembershipController) HandleCheck(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	user := uc.User
	summary := fiber.Map{"id": user.ID, "email": user.Email, "username": user.Username}

	companyID := c.Query("companyId")
	if companyID == "" {
		memberships := user.Memberships
		if memberships == nil {
			memberships = []whop.Membership{}
		}
		return c.JSON(fiber.Map{
			"hasMembership": user.HasAnyActiveMembership(),
			"memberships":   memberships,
			"user":          summary,
		})
	}

	hasMembership := user.HasActiveMembership(companyID)
	if c.QueryBool("live") && mc.checker != nil && uc.AccessToken != "" {
		ctx, cancel := requestContext()
		defer cancel()

		live, err := mc.checker.HasActiveMembership(ctx, uc.AccessToken, companyID)
		if err != nil {
			mc.log.Warn("live membership check failed, using session snapshot",
				zap.String("user_id", user.ID),
				zap.String("company_id", companyID),
				zap.Error(err),
			)
		} else {
			hasMembership = live
		}
	}

	return c.JSON(fiber.Map{
		"hasMembership": hasMembership,
		"companyId":     companyID,
		"user":          summary,
	})
}

// HandleSync upserts every membership carried by the session.
func (mc *MembershipController) HandleSync(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c).User

	ctx, cancel := requestContext()
	defer cancel()

	synced := make([]models.Membership, 0, len(user.Memberships))
	for _, m := range user.Memberships {
		if m.ID == "" || !models.IsValidMembershipStatus(m.Status) {
			mc.log.Warn("skipping unsyncable membership",
				zap.String("membership_id", m.ID),
				zap.String("status", m.Status),
			)
			continue
		}
		owner := m.UserID
		if owner == "" {
			owner = user.ID
		}
		stored, err := mc.reconciler.SyncMembership(ctx, owner, m)
		if err != nil {
			mc.log.Error("failed to sync membership",
				zap.String("user_id", user.ID),
				zap.String("membership_id", m.ID),
				zap.Error(err),
			)
			return errorJSON(c, fiber.StatusInternalServerError, "Failed to sync memberships")
		}
		synced = append(synced, *stored)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"syncedCount": len(synced),
		"memberships": synced,
	})
}

// HandleListStored returns the memberships stored for the session user.
func (mc *MembershipController) HandleListStored(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c).User

	ctx, cancel := requestContext()
	defer cancel()

	memberships, err := mc.memberships.ListByWhopUserID(ctx, user.ID)
	if err != nil {
		mc.log.Error("failed to fetch memberships", zap.String("user_id", user.ID), zap.Error(err))
		memberships = nil
	}
	if memberships == nil {
		memberships = []models.Membership{}
	}

	return c.JSON(fiber.Map{"memberships": memberships})
}
