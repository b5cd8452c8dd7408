package whop

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/markbates/goth"
	"golang.org/x/oauth2"
)

const (
	ProviderName = "whop"

	rawUserKey        = "user"
	rawMembershipsKey = "memberships"
	fetchTimeout      = 15 * time.Second
)

// Provider adapts Client to goth.Provider so the OAuth flow follows the
// same BeginAuth / Authorize / FetchUser steps as the other goth providers.
type Provider struct {
	client       *Client
	providerName string
	debug        bool
}

var _ goth.Provider = (*Provider)(nil)

func NewProvider(client *Client) *Provider {
	return &Provider{client: client, providerName: ProviderName}
}

func (p *Provider) Name() string {
	return p.providerName
}

func (p *Provider) SetName(name string) {
	p.providerName = name
}

func (p *Provider) Debug(debug bool) {
	p.debug = debug
}

// BeginAuth starts a session whose auth URL carries state.
func (p *Provider) BeginAuth(state string) (goth.Session, error) {
	return &Session{AuthURL: p.client.AuthorizeURL(state)}, nil
}

func (p *Provider) UnmarshalSession(data string) (goth.Session, error) {
	sess := &Session{}
	err := json.Unmarshal([]byte(data), sess)
	return sess, err
}

// FetchUser loads the user and their memberships with the session's access token.
// The memberships are exposed in RawData, see MembershipsFromUser.
func (p *Provider) FetchUser(session goth.Session) (goth.User, error) {
	sess, ok := session.(*Session)
	if !ok {
		return goth.User{}, errors.New("whop: unexpected session type")
	}
	user := goth.User{
		Provider:     p.Name(),
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		ExpiresAt:    sess.ExpiresAt,
	}
	if sess.AccessToken == "" {
		return user, errors.New("whop: cannot get user information without an access token")
	}

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	whopUser, err := p.client.GetUser(ctx, sess.AccessToken)
	if err != nil {
		return user, err
	}
	memberships, err := p.client.GetUserMemberships(ctx, sess.AccessToken)
	if err != nil {
		return user, err
	}

	user.UserID = whopUser.ID
	user.Email = whopUser.Email
	user.NickName = whopUser.Username
	user.Name = whopUser.Username
	user.AvatarURL = whopUser.ProfilePictureURL
	user.RawData = map[string]interface{}{
		rawUserKey:        *whopUser,
		rawMembershipsKey: memberships,
	}
	return user, nil
}

func (p *Provider) RefreshTokenAvailable() bool {
	return true
}

func (p *Provider) RefreshToken(refreshToken string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	return p.client.RefreshToken(ctx, refreshToken)
}

// MembershipsFromUser returns the memberships FetchUser stored on u.
func MembershipsFromUser(u goth.User) []Membership {
	memberships, _ := u.RawData[rawMembershipsKey].([]Membership)
	return memberships
}

// UserFromGoth rebuilds the Whop user from a goth user.
func UserFromGoth(u goth.User) User {
	if whopUser, ok := u.RawData[rawUserKey].(User); ok {
		return whopUser
	}
	return User{
		ID:                u.UserID,
		Email:             u.Email,
		Username:          u.NickName,
		ProfilePictureURL: u.AvatarURL,
	}
}

// Session is the goth session for the Whop provider.
type Session struct {
	AuthURL      string    `json:"auth_url"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

var _ goth.Session = (*Session)(nil)

func (s *Session) GetAuthURL() (string, error) {
	if s.AuthURL == "" {
		return "", errors.New(goth.NoAuthUrlErrorMessage)
	}
	return s.AuthURL, nil
}

func (s *Session) Marshal() string {
	b, _ := json.Marshal(s)
	return string(b)
}

// Authorize exchanges the callback code for tokens and stores them on the session.
func (s *Session) Authorize(provider goth.Provider, params goth.Params) (string, error) {
	p, ok := provider.(*Provider)
	if !ok {
		return "", errors.New("whop: unexpected provider type")
	}

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	token, err := p.client.ExchangeCode(ctx, params.Get("code"))
	if err != nil {
		return "", err
	}
	if !token.Valid() {
		return "", errors.New("whop: invalid token received from provider")
	}

	s.AccessToken = token.AccessToken
	s.RefreshToken = token.RefreshToken
	s.ExpiresAt = token.Expiry
	return token.AccessToken, nil
}
