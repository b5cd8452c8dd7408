package controllers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ManuelReschke/MemberGate/app/repository"
	"github.com/ManuelReschke/MemberGate/internal/pkg/usercontext"
	"github.com/ManuelReschke/MemberGate/internal/pkg/webhook"
	"github.com/ManuelReschke/MemberGate/internal/pkg/whop"
)

// ProfileUpdateRequest is the body of PUT /api/user/profile.
type ProfileUpdateRequest struct {
	Username          *string `json:"username" validate:"omitempty,min=1,max=255"`
	ProfilePictureURL *string `json:"profile_picture_url" validate:"omitempty,url"`
}

type ProfileController struct {
	profiles   repository.UserProfileRepository
	reconciler *webhook.Reconciler
	validate   *validator.Validate
	log        *zap.Logger
}

func NewProfileController(profiles repository.UserProfileRepository, reconciler *webhook.Reconciler, log *zap.Logger) *ProfileController {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileController{
		profiles:   profiles,
		reconciler: reconciler,
		validate:   validator.New(),
		log:        log.Named("profile"),
	}
}

// HandleGet returns the stored profile, creating it from the session user if needed.
func (pc *ProfileController) HandleGet(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c).User

	ctx, cancel := requestContext()
	defer cancel()

	profile, err := pc.reconciler.EnsureProfile(ctx, whop.User{
		ID:                user.ID,
		Email:             user.Email,
		Username:          user.Username,
		ProfilePictureURL: user.ProfilePictureURL,
	})
	if err != nil {
		pc.log.Error("failed to get or create profile", zap.String("user_id", user.ID), zap.Error(err))
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to get/create profile")
	}
	return c.JSON(profile)
}

func (pc *ProfileController) HandleUpdate(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c).User

	var req ProfileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := pc.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid profile data",
			"details": validationDetails(err),
		})
	}

	ctx, cancel := requestContext()
	defer cancel()

	profile, err := pc.profiles.Update(ctx, user.ID, repository.ProfileUpdate{
		Username:          req.Username,
		ProfilePictureURL: req.ProfilePictureURL,
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errorJSON(c, fiber.StatusNotFound, "Profile not found")
	}
	if err != nil {
		pc.log.Error("failed to update profile", zap.String("user_id", user.ID), zap.Error(err))
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to update profile")
	}
	return c.JSON(profile)
}

// validationDetails maps each failing field to the tag it failed.
func validationDetails(err error) map[string]string {
	details := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
	}
	return details
}
