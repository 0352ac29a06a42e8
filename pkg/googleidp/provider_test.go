package googleidp

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// fakeProvider is an in-process OpenID provider: discovery document,
// JWKS and a programmable token endpoint.
type fakeProvider struct {
	server     *httptest.Server
	signingKey jwk.Key
	tokenFn    func(w http.ResponseWriter, r *http.Request)
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	signingKey, err := jwk.FromRaw(raw)
	if err != nil {
		t.Fatal(err)
	}
	signingKey.Set(jwk.KeyIDKey, "test-key")
	signingKey.Set(jwk.AlgorithmKey, jwa.RS256)

	p := &fakeProvider{signingKey: signingKey}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(DiscoveryDocument{
			Issuer:                p.server.URL,
			AuthorizationEndpoint: p.server.URL + "/auth",
			TokenEndpoint:         p.server.URL + "/token",
			JwksURI:               p.server.URL + "/jwks",
		})
	})
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, r *http.Request) {
		pub, err := p.signingKey.PublicKey()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		set := jwk.NewSet()
		set.AddKey(pub)
		json.NewEncoder(w).Encode(set)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if p.tokenFn == nil {
			http.Error(w, "no token handler", http.StatusInternalServerError)
			return
		}
		p.tokenFn(w, r)
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)

	return p
}

// issueIDToken signs an ID token for the given audience and email.
func (p *fakeProvider) issueIDToken(t *testing.T, audience, email string, expiry time.Time) string {
	t.Helper()

	now := time.Now()
	token, err := jwt.NewBuilder().
		Issuer(p.server.URL).
		Subject("110248495921238986420").
		Audience([]string{audience}).
		IssuedAt(now).
		Expiration(expiry).
		Claim("email", email).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256, p.signingKey))
	if err != nil {
		t.Fatal(err)
	}

	return string(signed)
}

func (p *fakeProvider) clientConfig() *Config {
	return &Config{
		ClientID:     "client-1",
		ClientSecret: "secret",
		RedirectURI:  "https://app.example.com/callback",
		Issuer:       p.server.URL,
	}
}
