package sessionstore

import (
	"net/http"
	"testing"

	"github.com/gmo-common/google-auth-go/pkg/sessiontoken"
)

func cookieConfig() CookieStoreConfig {
	return CookieStoreConfig{
		Name:   "gauth",
		Secret: "sesame",
	}
}

func TestCookieStoreSetEmitsCookie(t *testing.T) {
	var emitted *http.Cookie
	store := NewCookieStore(cookieConfig(), "", func(c *http.Cookie) { emitted = c })

	if err := store.Set("userAccessToken", "tok"); err != nil {
		t.Fatal(err)
	}

	if emitted == nil {
		t.Fatal("expected cookie to be emitted")
	}
	if emitted.Name != "gauth" {
		t.Errorf("expected cookie name gauth, got %q", emitted.Name)
	}
	if emitted.Path != "/" {
		t.Errorf("expected path /, got %q", emitted.Path)
	}
	if emitted.MaxAge != 0 || !emitted.Expires.IsZero() {
		t.Error("expected session cookie without explicit expiry")
	}

	record, err := sessiontoken.NewCodec("sesame").Decode(emitted.Value)
	if err != nil {
		t.Fatal(err)
	}
	if record["userAccessToken"] != "tok" {
		t.Errorf("expected stored value in cookie, got %v", record)
	}
}

func TestCookieStoreRoundTrip(t *testing.T) {
	var emitted *http.Cookie
	store := NewCookieStore(cookieConfig(), "", func(c *http.Cookie) { emitted = c })
	if err := store.Set("field", "value"); err != nil {
		t.Fatal(err)
	}

	// a second request carrying the emitted cookie sees the record
	reread := NewCookieStore(cookieConfig(), emitted.Value, func(*http.Cookie) {})
	value, ok := reread.Get("field")
	if !ok || value != "value" {
		t.Fatalf("expected value after round trip, got %q (present=%v)", value, ok)
	}
}

func TestCookieStoreBadCookieDegradesToEmpty(t *testing.T) {
	for _, raw := range []string{
		"",
		"garbage",
		"a.b.c",
	} {
		store := NewCookieStore(cookieConfig(), raw, func(*http.Cookie) {})
		if _, ok := store.Get("userAccessToken"); ok {
			t.Errorf("cookie %q: expected empty record", raw)
		}
	}
}

func TestCookieStoreWrongSecretDegradesToEmpty(t *testing.T) {
	var emitted *http.Cookie
	store := NewCookieStore(cookieConfig(), "", func(c *http.Cookie) { emitted = c })
	if err := store.Set("field", "value"); err != nil {
		t.Fatal(err)
	}

	other := NewCookieStore(CookieStoreConfig{Name: "gauth", Secret: "barley"}, emitted.Value, func(*http.Cookie) {})
	if _, ok := other.Get("field"); ok {
		t.Fatal("expected record signed with a different secret to be discarded")
	}
}

func TestCookieStoreDelete(t *testing.T) {
	var emits int
	store := NewCookieStore(cookieConfig(), "", func(*http.Cookie) { emits++ })

	if err := store.Set("field", "value"); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete("field"); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Get("field"); ok {
		t.Fatal("expected field to be deleted")
	}
	if emits != 2 {
		t.Fatalf("expected 2 cookie emissions, got %d", emits)
	}

	// deleting an absent field must not re-emit
	if err := store.Delete("missing"); err != nil {
		t.Fatal(err)
	}
	if emits != 2 {
		t.Fatalf("expected no emission for absent field, got %d", emits)
	}
}

func TestCookieStoreDomain(t *testing.T) {
	var emitted *http.Cookie
	cfg := cookieConfig()
	cfg.Domain = ".example.com"
	store := NewCookieStore(cfg, "", func(c *http.Cookie) { emitted = c })

	if err := store.Set("field", "value"); err != nil {
		t.Fatal(err)
	}
	if emitted.Domain != ".example.com" {
		t.Errorf("expected configured domain, got %q", emitted.Domain)
	}
}
