// Package auth owns the login/logout lifecycle of one request: it turns
// an authorization-code callback into a stored access token, re-verifies
// stored tokens on every construction and exposes the current identity.
package auth

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gmo-common/google-auth-go/pkg/googleidp"
	"github.com/gmo-common/google-auth-go/pkg/nonce"
	"github.com/gmo-common/google-auth-go/pkg/sessionstore"
)

// AccessTokenField is the fixed session field holding the serialized
// token response.
const AccessTokenField = "userAccessToken"

// IdentityProvider is the slice of the provider client the session needs.
// *googleidp.Client satisfies it.
type IdentityProvider interface {
	AuthCodeURL(state string, opts ...googleidp.ParameterOption) string
	Exchange(code string, opts ...googleidp.ParameterOption) (*googleidp.TokenResponse, error)
	SetTokenResponse(tokenResponse *googleidp.TokenResponse)
	VerifyIDToken() (googleidp.Claims, error)
}

// Callback carries the authorization-callback query parameters. They are
// passed in explicitly rather than read from ambient request state so the
// session can be exercised without a live HTTP context.
type Callback struct {
	Code  string
	Error string
	State string
}

// Session resolves, once per construction, whether a login just
// completed, an existing token is still valid, or the visitor is
// anonymous. Instances are request-scoped and not safe for concurrent
// use.
type Session struct {
	store  sessionstore.Store
	client IdentityProvider
	nonces nonce.Service

	serviceAccount *googleidp.ServiceAccount
	loggedIn       bool
}

type Option func(s *Session)

// WithNonceService makes LoginURL carry a one-time state parameter and
// requires callbacks to redeem it before the code is exchanged.
func WithNonceService(nonces nonce.Service) Option {
	return func(s *Session) {
		s.nonces = nonces
	}
}

// New evaluates the login state machine in a fixed order: restore and
// re-verify any stored token, then -- only when no valid token exists --
// surface a provider-reported error or consume an authorization code. A
// live session therefore makes stray error and code parameters inert: no
// LoginError, no re-exchange.
func New(store sessionstore.Store, client IdentityProvider, callback Callback, opts ...Option) (*Session, error) {
	s := &Session{
		store:  store,
		client: client,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.restoreToken()

	if !s.loggedIn {
		if callback.Error != "" {
			return nil, &LoginError{Code: callback.Error}
		}
		if callback.Code != "" {
			if err := s.consumeCode(callback); err != nil {
				return nil, err
			}
		}
	}

	return s, nil
}

// restoreToken loads the stored token, if any, into the provider client
// and re-verifies it. Verification failure is a silent demotion to
// anonymous: the token is cleared, nothing is surfaced.
func (s *Session) restoreToken() {
	serialized, ok := s.store.Get(AccessTokenField)
	if !ok {
		return
	}

	var tokenResponse googleidp.TokenResponse
	if err := json.Unmarshal([]byte(serialized), &tokenResponse); err != nil {
		slog.Debug("clearing unreadable stored token", "error", err)
		s.clearToken()
		return
	}

	s.client.SetTokenResponse(&tokenResponse)

	if _, err := s.client.VerifyIDToken(); err != nil {
		slog.Debug("clearing stored token that failed verification", "error", err)
		s.clearToken()
		return
	}

	s.loggedIn = true
}

// consumeCode exchanges the authorization code and persists the token.
// Only reached when no valid token exists, which keeps consumption
// idempotent with respect to re-reading the same request.
func (s *Session) consumeCode(callback Callback) error {
	if s.nonces != nil {
		if err := s.nonces.Redeem(callback.State); err != nil {
			return &LoginError{Code: "invalid_state"}
		}
	}

	tokenResponse, err := s.client.Exchange(callback.Code)
	if err != nil {
		return fmt.Errorf("unable to exchange authorization code: %w", err)
	}

	serialized, err := json.Marshal(tokenResponse)
	if err != nil {
		return fmt.Errorf("unable to serialize token: %w", err)
	}
	if err := s.store.Set(AccessTokenField, string(serialized)); err != nil {
		return fmt.Errorf("unable to store token: %w", err)
	}

	s.client.SetTokenResponse(tokenResponse)
	s.loggedIn = true

	return nil
}

func (s *Session) clearToken() {
	if err := s.store.Delete(AccessTokenField); err != nil {
		slog.Warn("unable to clear stored token", "error", err)
	}
	s.client.SetTokenResponse(nil)
	s.loggedIn = false
}

// IsLoggedIn reports whether a verified token is present.
func (s *Session) IsLoggedIn() bool {
	return s.loggedIn
}

// LoginURL returns the provider login URL. Always available, regardless
// of state.
func (s *Session) LoginURL() string {
	var state string
	if s.nonces != nil {
		var err error
		state, err = s.nonces.Get()
		if err != nil {
			slog.Warn("unable to issue login state", "error", err)
			state = ""
		}
	}
	return s.client.AuthCodeURL(state)
}

// Logout removes the stored token. A no-op when already anonymous.
func (s *Session) Logout() error {
	if !s.loggedIn {
		return nil
	}
	if err := s.store.Delete(AccessTokenField); err != nil {
		return fmt.Errorf("unable to remove token: %w", err)
	}
	s.client.SetTokenResponse(nil)
	s.loggedIn = false
	return nil
}

// User derives the identity from the verified ID-token claims.
func (s *Session) User() (*User, error) {
	if !s.loggedIn {
		return nil, ErrUserNotLoggedIn
	}

	claims, err := s.client.VerifyIDToken()
	if err != nil {
		return nil, fmt.Errorf("unable to verify identity: %w", err)
	}

	return NewUser(claims), nil
}

// SetServiceAccount configures the impersonation credential used for
// directory queries. Calling it again replaces the prior credential; the
// user's own token is never touched.
func (s *Session) SetServiceAccount(email, privateKeyPath, impersonatedAdmin string) error {
	serviceAccount, err := googleidp.NewServiceAccount(&googleidp.ServiceAccountConfig{
		Email:          email,
		Subject:        impersonatedAdmin,
		PrivateKeyPath: privateKeyPath,
	})
	if err != nil {
		return fmt.Errorf("unable to configure service account: %w", err)
	}

	s.serviceAccount = serviceAccount
	return nil
}

// ServiceAccount returns the configured credential, or nil.
func (s *Session) ServiceAccount() *googleidp.ServiceAccount {
	return s.serviceAccount
}
