package whop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/ManuelReschke/MemberGate/internal/pkg/config"
)

const (
	defaultHTTPTimeout      = 15 * time.Second
	defaultFailureThreshold = 5
	defaultOpenTimeout      = 30 * time.Second
	maxResponseBytes        = 1 << 20
)

var scopes = []string{"read:user", "read:memberships"}

// ErrCircuitOpen is returned while the breaker rejects calls to the Whop API.
var ErrCircuitOpen = errors.New("whop api circuit breaker is open")

// Options configures a Client. Empty URLs fall back to the public Whop endpoints.
type Options struct {
	APIKey        string
	ClientID      string
	ClientSecret  string
	RedirectURI   string
	WebhookSecret string

	APIBaseURL   string
	AuthorizeURL string
	TokenURL     string

	HTTPClient       *http.Client
	Logger           *zap.Logger
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// Client talks to the Whop OAuth endpoints and REST API.
type Client struct {
	oauth         *oauth2.Config
	apiKey        string
	apiBaseURL    string
	webhookSecret string
	httpClient    *http.Client
	breaker       *gobreaker.CircuitBreaker[[]byte]
	log           *zap.Logger
}

// apiStatusError is a non-2xx answer from the API.
type apiStatusError struct {
	StatusCode int
	Body       string
}

func (e *apiStatusError) Error() string {
	return fmt.Sprintf("whop api request failed: status=%d body=%s", e.StatusCode, e.Body)
}

func NewClient(opts Options) *Client {
	if opts.APIBaseURL == "" {
		opts.APIBaseURL = config.DefaultWhopAPIBaseURL
	}
	if opts.AuthorizeURL == "" {
		opts.AuthorizeURL = config.DefaultWhopAuthorizeURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = config.DefaultWhopTokenURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = defaultFailureThreshold
	}
	if opts.OpenTimeout == 0 {
		opts.OpenTimeout = defaultOpenTimeout
	}

	log := opts.Logger.Named("whop")
	threshold := opts.FailureThreshold

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "whop-api",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Client errors are the caller's fault and say nothing about API health.
		IsSuccessful: func(err error) bool {
			var statusErr *apiStatusError
			if errors.As(err, &statusErr) {
				return statusErr.StatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
	})

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   opts.AuthorizeURL,
				TokenURL:  opts.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: opts.RedirectURI,
			Scopes:      scopes,
		},
		apiKey:        opts.APIKey,
		apiBaseURL:    strings.TrimRight(opts.APIBaseURL, "/"),
		webhookSecret: opts.WebhookSecret,
		httpClient:    opts.HTTPClient,
		breaker:       breaker,
		log:           log,
	}
}

func NewClientFromConfig(cfg config.WhopConfig, log *zap.Logger) *Client {
	return NewClient(Options{
		APIKey:        cfg.APIKey,
		ClientID:      cfg.ClientID,
		ClientSecret:  cfg.ClientSecret,
		RedirectURI:   cfg.RedirectURI,
		WebhookSecret: cfg.WebhookSecret,
		APIBaseURL:    cfg.APIBaseURL,
		AuthorizeURL:  cfg.AuthorizeURL,
		TokenURL:      cfg.TokenURL,
		Logger:        log,
	})
}

// AuthorizeURL builds the provider consent URL carrying state.
func (c *Client) AuthorizeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("oauth code is required")
	}
	token, err := c.oauth.Exchange(c.oauthContext(ctx), strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code for access token: %w", err)
	}
	return token, nil
}

// RefreshToken obtains a new token from a refresh token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	src := c.oauth.TokenSource(c.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh access token: %w", err)
	}
	return token, nil
}

// GetUser returns the user behind accessToken.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	body, err := c.get(ctx, "/me", accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user information: %w", err)
	}
	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to fetch user information: %w", err)
	}
	return &user, nil
}

// GetUserMemberships lists the memberships of the user behind accessToken.
func (c *Client) GetUserMemberships(ctx context.Context, accessToken string) ([]Membership, error) {
	body, err := c.get(ctx, "/me/memberships", accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user memberships: %w", err)
	}
	var envelope membershipsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to fetch user memberships: %w", err)
	}
	if envelope.Data == nil {
		return []Membership{}, nil
	}
	return envelope.Data, nil
}

// HasActiveMembership asks the live API whether the user holds an active
// membership for companyID.
func (c *Client) HasActiveMembership(ctx context.Context, accessToken, companyID string) (bool, error) {
	memberships, err := c.GetUserMemberships(ctx, accessToken)
	if err != nil {
		return false, err
	}
	for _, m := range memberships {
		if m.CompanyID == companyID && m.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

// GetCompany fetches company details with the server API key.
func (c *Client) GetCompany(ctx context.Context, companyID string) (*Company, error) {
	if strings.TrimSpace(companyID) == "" {
		return nil, errors.New("company id is required")
	}
	if c.apiKey == "" {
		return nil, errors.New("WHOP_API_KEY is not configured")
	}
	body, err := c.get(ctx, "/companies/"+url.PathEscape(companyID), c.apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch company information: %w", err)
	}
	var company Company
	if err := json.Unmarshal(body, &company); err != nil {
		return nil, fmt.Errorf("failed to fetch company information: %w", err)
	}
	return &company, nil
}

// IsNotFound reports whether err came from a 404 API answer.
func IsNotFound(err error) bool {
	var statusErr *apiStatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

func (c *Client) get(ctx context.Context, path, bearer string) ([]byte, error) {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+bearer)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &apiStatusError{StatusCode: resp.StatusCode, Body: string(body)}
		}
		return body, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	return body, err
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}
