package googleidp

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestAuthCodeURL(t *testing.T) {
	p := newFakeProvider(t)
	client, err := NewClient(p.clientConfig())
	if err != nil {
		t.Fatal(err)
	}

	authURL := client.AuthCodeURL("state-1", WithParameter("prompt", "consent"))

	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(authURL, p.server.URL+"/auth?") {
		t.Errorf("expected authorization endpoint, got %s", authURL)
	}

	query := parsed.Query()
	for param, expected := range map[string]string{
		"client_id":     "client-1",
		"redirect_uri":  "https://app.example.com/callback",
		"response_type": "code",
		"scope":         "openid email",
		"state":         "state-1",
		"prompt":        "consent",
	} {
		if got := query.Get(param); got != expected {
			t.Errorf("param %s: expected %q, got %q", param, expected, got)
		}
	}
}

func TestExchange(t *testing.T) {
	p := newFakeProvider(t)

	var gotForm url.Values
	p.tokenFn = func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotForm = r.PostForm
		json.NewEncoder(w).Encode(TokenResponse{
			AccessToken: "ya29.test",
			TokenType:   "Bearer",
			ExpiresIn:   3600,
			IDToken:     p.issueIDToken(t, "client-1", "user@example.com", time.Now().Add(time.Hour)),
		})
	}

	client, err := NewClient(p.clientConfig())
	if err != nil {
		t.Fatal(err)
	}

	tokenResponse, err := client.Exchange("code-abc")
	if err != nil {
		t.Fatal(err)
	}
	if tokenResponse.AccessToken != "ya29.test" {
		t.Errorf("unexpected access token %q", tokenResponse.AccessToken)
	}

	for param, expected := range map[string]string{
		"client_id":     "client-1",
		"client_secret": "secret",
		"code":          "code-abc",
		"grant_type":    "authorization_code",
	} {
		if got := gotForm.Get(param); got != expected {
			t.Errorf("form %s: expected %q, got %q", param, expected, got)
		}
	}
}

func TestExchangeProviderError(t *testing.T) {
	p := newFakeProvider(t)
	p.tokenFn = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(Error{Code: "invalid_grant", Description: "code expired"})
	}

	client, err := NewClient(p.clientConfig())
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.Exchange("stale-code")
	var oauthErr *Error
	if !errors.As(err, &oauthErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if oauthErr.Code != "invalid_grant" {
		t.Errorf("unexpected error code %q", oauthErr.Code)
	}
}

func TestVerifyIDToken(t *testing.T) {
	p := newFakeProvider(t)
	client, err := NewClient(p.clientConfig())
	if err != nil {
		t.Fatal(err)
	}

	client.SetTokenResponse(&TokenResponse{
		AccessToken: "ya29.test",
		IDToken:     p.issueIDToken(t, "client-1", "user@example.com", time.Now().Add(time.Hour)),
	})

	claims, err := client.VerifyIDToken()
	if err != nil {
		t.Fatal(err)
	}
	if claims.Email() != "user@example.com" {
		t.Errorf("expected email claim, got %q", claims.Email())
	}
	if claims.Subject() == "" {
		t.Error("expected subject claim")
	}
}

func TestVerifyIDTokenRejectsWrongAudience(t *testing.T) {
	p := newFakeProvider(t)
	client, err := NewClient(p.clientConfig())
	if err != nil {
		t.Fatal(err)
	}

	client.SetTokenResponse(&TokenResponse{
		IDToken: p.issueIDToken(t, "some-other-client", "user@example.com", time.Now().Add(time.Hour)),
	})

	if _, err := client.VerifyIDToken(); err == nil {
		t.Fatal("expected verification to fail for a foreign audience")
	}
}

func TestVerifyIDTokenRejectsExpired(t *testing.T) {
	p := newFakeProvider(t)
	client, err := NewClient(p.clientConfig())
	if err != nil {
		t.Fatal(err)
	}

	client.SetTokenResponse(&TokenResponse{
		IDToken: p.issueIDToken(t, "client-1", "user@example.com", time.Now().Add(-time.Hour)),
	})

	if _, err := client.VerifyIDToken(); err == nil {
		t.Fatal("expected verification to fail for an expired token")
	}
}

func TestVerifyIDTokenWithoutToken(t *testing.T) {
	p := newFakeProvider(t)
	client, err := NewClient(p.clientConfig())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := client.VerifyIDToken(); err == nil {
		t.Fatal("expected error without a token")
	}
}

func TestClaimsEmailAbsent(t *testing.T) {
	claims := Claims{"sub": "1234"}
	if claims.Email() != "" {
		t.Errorf("expected empty email, got %q", claims.Email())
	}
}
