package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ManuelReschke/MemberGate/internal/pkg/whop"
)

const (
	CookieName = "whop_session"
	TTL        = 24 * time.Hour
)

var (
	ErrNoSession    = errors.New("no session")
	ErrInvalidToken = errors.New("invalid session token")
)

// User is the identity snapshot embedded in the session token.
type User struct {
	ID                string            `json:"id"`
	Email             string            `json:"email"`
	Username          string            `json:"username"`
	ProfilePictureURL string            `json:"profile_picture_url,omitempty"`
	Memberships       []whop.Membership `json:"memberships"`
}

// HasActiveMembership reports an active membership for companyID in the snapshot.
func (u User) HasActiveMembership(companyID string) bool {
	for _, m := range u.Memberships {
		if m.CompanyID == companyID && m.IsActive() {
			return true
		}
	}
	return false
}

func (u User) HasAnyActiveMembership() bool {
	for _, m := range u.Memberships {
		if m.IsActive() {
			return true
		}
	}
	return false
}

type Claims struct {
	User         User   `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	jwt.RegisteredClaims
}

// Codec issues and verifies HS256 session tokens.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("SESSION_SECRET is not configured")
	}
	return &Codec{secret: []byte(secret), ttl: TTL, now: time.Now}, nil
}

// Issue signs a token for user that expires after 24 hours.
func (c *Codec) Issue(user User, accessToken, refreshToken string) (string, error) {
	now := c.now()
	claims := Claims{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of token.
func (c *Codec) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &claims, nil
}

// SetCookie stores token in the session cookie.
func SetCookie(c *fiber.Ctx, token string, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(TTL.Seconds()),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func ClearCookie(c *fiber.Ctx, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// FromRequest decodes the session cookie of the request.
func (c *Codec) FromRequest(ctx *fiber.Ctx) (*Claims, error) {
	return c.Verify(ctx.Cookies(CookieName))
}
