package googleidp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Scopes for the Admin SDK Directory API.
const (
	ReadGroupScope = "https://www.googleapis.com/auth/admin.directory.group.readonly"
	ReadUserScope  = "https://www.googleapis.com/auth/admin.directory.user.readonly"
)

// DefaultTokenEndpoint is Google's OAuth2 token endpoint for the
// JWT-bearer assertion grant.
const DefaultTokenEndpoint = "https://oauth2.googleapis.com/token"

const assertionGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// expirySlack refreshes the credential slightly before the provider
// deadline so a token never expires mid-request.
const expirySlack = 30 * time.Second

type ServiceAccountConfig struct {
	// Email of the service account (iss of the assertion).
	Email string
	// Subject is the admin user the service account impersonates for
	// domain-wide queries.
	Subject string
	// PrivateKeyPath points to the signing key, PEM or JWK encoded.
	PrivateKeyPath string
	// Scopes defaults to the directory read scopes.
	Scopes []string
	// TokenEndpoint defaults to DefaultTokenEndpoint. Override for tests.
	TokenEndpoint string
}

// ServiceAccount is an impersonation credential for server-to-server
// calls. It mints short-lived access tokens from a signed assertion and
// refreshes them lazily at point of use. It never carries an end user's
// token.
type ServiceAccount struct {
	config *ServiceAccountConfig
	key    jwk.Key

	lock        sync.Mutex
	accessToken string
	expiry      time.Time
}

func NewServiceAccount(cfg *ServiceAccountConfig) (*ServiceAccount, error) {
	if cfg.Email == "" {
		return nil, fmt.Errorf("service account email is required")
	}
	if cfg.Subject == "" {
		return nil, fmt.Errorf("impersonated subject is required")
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{ReadGroupScope, ReadUserScope}
	}
	if cfg.TokenEndpoint == "" {
		cfg.TokenEndpoint = DefaultTokenEndpoint
	}

	data, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read key file: %w", err)
	}

	key, err := parsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("unable to parse key file %s: %w", cfg.PrivateKeyPath, err)
	}

	return &ServiceAccount{config: cfg, key: key}, nil
}

func parsePrivateKey(data []byte) (jwk.Key, error) {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("-----")) {
		return jwk.ParseKey(data, jwk.WithPEM(true))
	}
	return jwk.ParseKey(data)
}

func (sa *ServiceAccount) Email() string {
	return sa.config.Email
}

func (sa *ServiceAccount) Subject() string {
	return sa.config.Subject
}

// Token returns a valid access token, minting a fresh one when the cached
// token is missing or about to expire.
func (sa *ServiceAccount) Token() (string, error) {
	sa.lock.Lock()
	defer sa.lock.Unlock()

	if !sa.expired() {
		return sa.accessToken, nil
	}

	if err := sa.refresh(); err != nil {
		return "", err
	}

	return sa.accessToken, nil
}

// expired must be called with the lock held.
func (sa *ServiceAccount) expired() bool {
	if sa.accessToken == "" {
		return true
	}
	return !time.Now().Add(expirySlack).Before(sa.expiry)
}

// refresh exchanges a signed assertion for an access token. Must be
// called with the lock held.
func (sa *ServiceAccount) refresh() error {
	now := time.Now()
	assertion, err := jwt.NewBuilder().
		Issuer(sa.config.Email).
		Subject(sa.config.Subject).
		Audience([]string{sa.config.TokenEndpoint}).
		IssuedAt(now).
		Expiration(now.Add(time.Hour)).
		Claim("scope", strings.Join(sa.config.Scopes, " ")).
		Build()
	if err != nil {
		return fmt.Errorf("unable to build assertion: %w", err)
	}

	signed, err := jwt.Sign(assertion, jwt.WithKey(jwa.RS256, sa.key))
	if err != nil {
		return fmt.Errorf("unable to sign assertion: %w", err)
	}

	params := url.Values{}
	params.Set("grant_type", assertionGrantType)
	params.Set("assertion", string(signed))

	resp, err := http.PostForm(sa.config.TokenEndpoint, params)
	if err != nil {
		return fmt.Errorf("unable to exchange assertion for token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("unable to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var oauthErr Error
		if err := json.Unmarshal(body, &oauthErr); err != nil {
			return fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
		}
		return &oauthErr
	}

	var tokenResponse TokenResponse
	if err := json.Unmarshal(body, &tokenResponse); err != nil {
		return fmt.Errorf("unable to decode token response: %w", err)
	}

	sa.accessToken = tokenResponse.AccessToken
	sa.expiry = now.Add(time.Duration(tokenResponse.ExpiresIn) * time.Second)

	return nil
}
