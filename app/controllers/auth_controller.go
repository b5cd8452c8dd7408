package controllers

import (
	"crypto/subtle"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/markbates/goth"
	"go.uber.org/zap"

	"github.com/ManuelReschke/MemberGate/internal/pkg/oauth"
	"github.com/ManuelReschke/MemberGate/internal/pkg/session"
	"github.com/ManuelReschke/MemberGate/internal/pkg/usercontext"
	"github.com/ManuelReschke/MemberGate/internal/pkg/webhook"
	"github.com/ManuelReschke/MemberGate/internal/pkg/whop"
)

// Callback error codes appended to the landing page redirect.
const (
	callbackErrOAuth        = "oauth_error"
	callbackErrNoCode       = "no_code"
	callbackErrInvalidState = "invalid_state"
	callbackErrCallback     = "callback_error"
)

// AuthController runs the browser OAuth flow and the session endpoints.
type AuthController struct {
	provider      goth.Provider
	codec         *session.Codec
	reconciler    *webhook.Reconciler
	secureCookies bool
	log           *zap.Logger
}

func NewAuthController(provider goth.Provider, codec *session.Codec, reconciler *webhook.Reconciler, secureCookies bool, log *zap.Logger) *AuthController {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthController{
		provider:      provider,
		codec:         codec,
		reconciler:    reconciler,
		secureCookies: secureCookies,
		log:           log.Named("auth"),
	}
}

// HandleLogin redirects to the provider consent screen with a fresh state.
func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	state, err := oauth.GenerateState()
	if err != nil {
		ac.log.Error("failed to generate oauth state", zap.Error(err))
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to start login")
	}

	sess, err := ac.provider.BeginAuth(state)
	if err != nil {
		ac.log.Error("failed to begin oauth", zap.Error(err))
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to start login")
	}
	authURL, err := sess.GetAuthURL()
	if err != nil {
		ac.log.Error("failed to build authorize url", zap.Error(err))
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to start login")
	}

	oauth.SetStateCookie(c, state, ac.secureCookies)
	return c.Redirect(authURL, fiber.StatusFound)
}

// HandleCallback completes the OAuth flow and issues the session cookie.
func (ac *AuthController) HandleCallback(c *fiber.Ctx) error {
	if providerErr := c.Query("error"); providerErr != "" {
		ac.log.Warn("provider returned oauth error", zap.String("error", providerErr))
		return ac.redirectWithError(c, callbackErrOAuth)
	}

	code := c.Query("code")
	if code == "" {
		return ac.redirectWithError(c, callbackErrNoCode)
	}

	state := c.Query("state")
	stored := oauth.StateFromCookie(c)
	if state == "" || stored == "" || subtle.ConstantTimeCompare([]byte(state), []byte(stored)) != 1 {
		ac.log.Warn("oauth state mismatch")
		return ac.redirectWithError(c, callbackErrInvalidState)
	}

	gothUser, err := ac.completeAuth(state, code)
	if err != nil {
		ac.log.Error("oauth callback failed", zap.Error(err))
		return ac.redirectWithError(c, callbackErrCallback)
	}

	whopUser := whop.UserFromGoth(gothUser)
	memberships := whop.MembershipsFromUser(gothUser)
	if memberships == nil {
		memberships = []whop.Membership{}
	}

	ctx, cancel := requestContext()
	defer cancel()
	if _, err := ac.reconciler.EnsureProfile(ctx, whopUser); err != nil {
		ac.log.Error("failed to ensure profile on login", zap.String("user_id", whopUser.ID), zap.Error(err))
	}

	token, err := ac.codec.Issue(session.User{
		ID:                whopUser.ID,
		Email:             whopUser.Email,
		Username:          whopUser.Username,
		ProfilePictureURL: whopUser.ProfilePictureURL,
		Memberships:       memberships,
	}, gothUser.AccessToken, gothUser.RefreshToken)
	if err != nil {
		ac.log.Error("failed to issue session token", zap.Error(err))
		return ac.redirectWithError(c, callbackErrCallback)
	}

	session.SetCookie(c, token, ac.secureCookies)
	oauth.ClearStateCookie(c, ac.secureCookies)
	ac.log.Info("user logged in", zap.String("user_id", whopUser.ID))
	return c.Redirect("/", fiber.StatusFound)
}

func (ac *AuthController) completeAuth(state, code string) (goth.User, error) {
	sess, err := ac.provider.BeginAuth(state)
	if err != nil {
		return goth.User{}, err
	}
	if _, err := sess.Authorize(ac.provider, url.Values{"code": {code}}); err != nil {
		return goth.User{}, err
	}
	return ac.provider.FetchUser(sess)
}

func (ac *AuthController) redirectWithError(c *fiber.Ctx, code string) error {
	oauth.ClearStateCookie(c, ac.secureCookies)
	return c.Redirect("/?error="+code, fiber.StatusFound)
}

// HandleMe returns the session user.
func (ac *AuthController) HandleMe(c *fiber.Ctx) error {
	return c.JSON(usercontext.GetUserContext(c).User)
}

func (ac *AuthController) HandleLogout(c *fiber.Ctx) error {
	session.ClearCookie(c, ac.secureCookies)
	return c.JSON(fiber.Map{"success": true})
}
