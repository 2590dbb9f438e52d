package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"

	"github.com/teemow/bookshelf/internal/instrumentation"
	"github.com/teemow/bookshelf/internal/logging"
)

var (
	// ErrProviderUnavailable is returned when the discovery document or the
	// userinfo endpoint cannot be fetched or decoded.
	ErrProviderUnavailable = errors.New("identity provider unavailable")

	// ErrTokenExchangeFailed is returned when the authorization code is
	// missing or rejected by the token endpoint.
	ErrTokenExchangeFailed = errors.New("token exchange failed")

	// ErrEmailUnverified is returned when the provider does not vouch for the
	// user's email address.
	ErrEmailUnverified = errors.New("email not available or not verified")
)

// authState is sent with every authorization request. It is not checked on
// the callback.
const authState = "bookshelf"

// Config configures a Client.
type Config struct {
	ClientID     string
	ClientSecret string

	// DiscoveryURL defaults to DefaultDiscoveryURL.
	DiscoveryURL string

	// HTTPClient is used for every call to the provider (default: http.DefaultClient).
	HTTPClient *http.Client

	// Logger defaults to the slog default logger.
	Logger logging.Logger

	// Metrics receives one oauth_auth_total sample per Exchange. Optional.
	Metrics *instrumentation.Metrics
}

// ProviderConfig holds the endpoints read from the discovery document.
type ProviderConfig struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
}

// Profile is the signed-in user as reported by the userinfo endpoint.
type Profile struct {
	ID      string
	Name    string
	Email   string
	Picture string
}

// userInfo is the subset of the OpenID userinfo response we read.
type userInfo struct {
	Sub           string      `json:"sub"`
	Email         string      `json:"email"`
	EmailVerified booleanFlag `json:"email_verified"`
	Name          string      `json:"name"`
	GivenName     string      `json:"given_name"`
	Picture       string      `json:"picture"`
}

// booleanFlag accepts both true and "true"; some providers send the
// verification flag as a string.
type booleanFlag bool

func (b *booleanFlag) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = booleanFlag(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("email_verified: %w", err)
	}
	parsed, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("email_verified: %w", err)
	}
	*b = booleanFlag(parsed)
	return nil
}

// Client runs the Authorization Code flow against one provider.
// It is safe for concurrent use.
type Client struct {
	clientID     string
	clientSecret string
	discoveryURL string
	httpClient   *http.Client
	logger       logging.Logger
	metrics      *instrumentation.Metrics
}

// NewClient creates a Client. No network calls are made until the first
// request.
func NewClient(cfg Config) *Client {
	c := &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		discoveryURL: cfg.DiscoveryURL,
		httpClient:   cfg.HTTPClient,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
	}
	if c.discoveryURL == "" {
		c.discoveryURL = DefaultDiscoveryURL
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = logging.NewSlogAdapter(logging.WithComponent(slog.Default(), "oauth"))
	}
	return c
}

// Discover fetches the provider's discovery document.
func (c *Client) Discover(ctx context.Context) (*ProviderConfig, error) {
	ctx, span := instrumentation.StartOAuthSpan(ctx, instrumentation.OAuthStepDiscover)
	defer span.End()

	cfg, err := c.discover(ctx)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	instrumentation.SetSpanSuccess(span)
	return cfg, nil
}

func (c *Client) discover(ctx context.Context) (*ProviderConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.discoveryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch discovery document: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: discovery document returned status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var cfg ProviderConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: decode discovery document: %v", ErrProviderUnavailable, err)
	}
	if cfg.AuthorizationEndpoint == "" || cfg.TokenEndpoint == "" || cfg.UserinfoEndpoint == "" {
		return nil, fmt.Errorf("%w: discovery document is missing endpoints", ErrProviderUnavailable)
	}
	return &cfg, nil
}

func (c *Client) oauthConfig(p *ProviderConfig, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   p.AuthorizationEndpoint,
			TokenURL:  p.TokenEndpoint,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
		RedirectURL: redirectURL,
		Scopes:      DefaultOAuthScopes,
	}
}

// AuthCodeURL returns the provider URL the browser is sent to. The provider
// redirects back to redirectURL with a code.
func (c *Client) AuthCodeURL(ctx context.Context, redirectURL string) (string, error) {
	p, err := c.Discover(ctx)
	if err != nil {
		return "", err
	}
	return c.oauthConfig(p, redirectURL).AuthCodeURL(authState), nil
}

// Exchange trades the authorization code for a token and fetches the user's
// profile with it. redirectURL must match the one given to AuthCodeURL.
func (c *Client) Exchange(ctx context.Context, code, redirectURL string) (*Profile, error) {
	profile, err := c.exchange(ctx, code, redirectURL)

	result := instrumentation.OAuthResultSuccess
	switch {
	case errors.Is(err, ErrEmailUnverified):
		result = instrumentation.OAuthResultUnverified
	case err != nil:
		result = instrumentation.OAuthResultFailure
	}
	if c.metrics != nil {
		c.metrics.RecordOAuthAuth(ctx, result)
	}
	if err != nil {
		c.logger.Warn("sign-in failed", "result", result, "code", logging.SanitizeToken(code), logging.KeyError, err.Error())
		return nil, err
	}
	c.logger.Debug("sign-in succeeded", logging.KeyUserHash, logging.AnonymizeEmail(profile.Email))
	return profile, nil
}

func (c *Client) exchange(ctx context.Context, code, redirectURL string) (*Profile, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", ErrTokenExchangeFailed)
	}

	p, err := c.Discover(ctx)
	if err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	conf := c.oauthConfig(p, redirectURL)

	token, err := c.fetchToken(ctx, conf, code)
	if err != nil {
		return nil, err
	}

	info, err := c.fetchUserInfo(ctx, conf, token, p.UserinfoEndpoint)
	if err != nil {
		return nil, err
	}
	if info.Sub == "" {
		return nil, fmt.Errorf("%w: userinfo has no subject", ErrProviderUnavailable)
	}

	if !bool(info.EmailVerified) || info.Email == "" {
		return nil, ErrEmailUnverified
	}

	name := info.GivenName
	if name == "" {
		name = info.Name
	}
	return &Profile{
		ID:      info.Sub,
		Name:    name,
		Email:   info.Email,
		Picture: info.Picture,
	}, nil
}

func (c *Client) fetchToken(ctx context.Context, conf *oauth2.Config, code string) (*oauth2.Token, error) {
	ctx, span := instrumentation.StartOAuthSpan(ctx, instrumentation.OAuthStepExchange)
	defer span.End()

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	instrumentation.SetSpanSuccess(span)
	return token, nil
}

func (c *Client) fetchUserInfo(ctx context.Context, conf *oauth2.Config, token *oauth2.Token, endpoint string) (*userInfo, error) {
	ctx, span := instrumentation.StartOAuthSpan(ctx, instrumentation.OAuthStepUserInfo)
	defer span.End()

	info, err := c.getUserInfo(ctx, conf.Client(ctx, token), endpoint)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	instrumentation.SetSpanSuccess(span)
	return info, nil
}

func (c *Client) getUserInfo(ctx context.Context, client *http.Client, endpoint string) (*userInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch user info: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo request failed with status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: decode user info: %v", ErrProviderUnavailable, err)
	}
	return &info, nil
}
