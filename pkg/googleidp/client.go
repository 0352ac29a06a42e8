// Package googleidp is a minimal client for Google's OpenID Connect
// provider: authorization URLs, the authorization-code exchange and
// ID-token verification against Google's published signing keys. It also
// carries the impersonating service-account credential used for
// domain-wide directory queries, kept deliberately separate from the end
// user's own token.
package googleidp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	// Scopes defaults to "openid email".
	Scopes []string
	// Issuer defaults to DefaultIssuer. Override for tests.
	Issuer string
}

// Client talks to the identity provider on behalf of one end user. It
// holds at most one user token at a time; service credentials live in
// ServiceAccount instead.
type Client struct {
	config            *Config
	discoveryDocument *DiscoveryDocument
	keyCache          *jwk.Cache
	tokenResponse     *TokenResponse
}

func NewClient(cfg *Config) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}
	if cfg.RedirectURI == "" {
		return nil, fmt.Errorf("redirect URI is required")
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"openid", "email"}
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}

	c := &Client{config: cfg}

	var err error
	discoveryDocumentUrl := cfg.Issuer + "/.well-known/openid-configuration"
	c.discoveryDocument, err = FetchDiscoveryDocument(discoveryDocumentUrl)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch discovery document from %s: %w", discoveryDocumentUrl, err)
	}

	// auto-refreshing signing key cache
	c.keyCache = jwk.NewCache(context.Background())
	c.keyCache.Register(c.discoveryDocument.JwksURI, jwk.WithMinRefreshInterval(15*time.Minute))
	_, err = c.keyCache.Refresh(context.Background(), c.discoveryDocument.JwksURI)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch signing keys: %w", err)
	}

	return c, nil
}

func (c *Client) ClientID() string {
	return c.config.ClientID
}

func (c *Client) Issuer() string {
	return c.discoveryDocument.Issuer
}

func (c *Client) DiscoveryDocument() *DiscoveryDocument {
	return c.discoveryDocument
}

// AuthCodeURL builds the provider login URL. state may be empty when the
// caller does not track one.
func (c *Client) AuthCodeURL(state string, opts ...ParameterOption) string {
	query := url.Values{}
	query.Add("client_id", c.config.ClientID)
	query.Add("redirect_uri", c.config.RedirectURI)
	query.Add("response_type", "code")
	query.Add("scope", strings.Join(c.config.Scopes, " "))
	if state != "" {
		query.Add("state", state)
	}

	for _, opt := range opts {
		opt(query)
	}

	return fmt.Sprintf("%s?%s", c.discoveryDocument.AuthorizationEndpoint, query.Encode())
}

// Exchange trades an authorization code for tokens. Provider-reported
// failures come back as *Error.
func (c *Client) Exchange(code string, opts ...ParameterOption) (*TokenResponse, error) {
	params := url.Values{}
	params.Set("client_id", c.config.ClientID)
	params.Set("client_secret", c.config.ClientSecret)
	params.Set("code", code)
	params.Set("redirect_uri", c.config.RedirectURI)
	params.Set("grant_type", "authorization_code")

	for _, opt := range opts {
		opt(params)
	}

	resp, err := http.PostForm(c.discoveryDocument.TokenEndpoint, params)
	if err != nil {
		return nil, fmt.Errorf("unable to exchange code for token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var oauthErr Error
		if err := json.Unmarshal(body, &oauthErr); err != nil {
			return nil, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
		}
		return nil, &oauthErr
	}

	var tokenResponse TokenResponse
	err = json.Unmarshal(body, &tokenResponse)
	if err != nil {
		return nil, fmt.Errorf("unable to decode token response: %w", err)
	}

	return &tokenResponse, nil
}

// SetTokenResponse loads a previously stored user token into the client.
func (c *Client) SetTokenResponse(tokenResponse *TokenResponse) {
	c.tokenResponse = tokenResponse
}

func (c *Client) TokenResponse() *TokenResponse {
	return c.tokenResponse
}

// VerifyIDToken parses and verifies the current token's id_token against
// the cached provider keys, checking signature, issuer, audience and
// expiry. The resulting claims are the only trusted source of identity.
func (c *Client) VerifyIDToken() (Claims, error) {
	if c.tokenResponse == nil || c.tokenResponse.IDToken == "" {
		return nil, fmt.Errorf("no id token present")
	}

	keySet, err := c.keyCache.Get(context.Background(), c.discoveryDocument.JwksURI)
	if err != nil {
		return nil, fmt.Errorf("unable to get key set: %w", err)
	}

	token, err := jwt.ParseString(
		c.tokenResponse.IDToken,
		jwt.WithKeySet(keySet),
		jwt.WithIssuer(c.discoveryDocument.Issuer),
		jwt.WithAudience(c.config.ClientID),
		jwt.WithRequiredClaim("exp"),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to parse id token: %w", err)
	}

	claims, err := token.AsMap(context.Background())
	if err != nil {
		return nil, fmt.Errorf("unable to read id token claims: %w", err)
	}

	return Claims(claims), nil
}
