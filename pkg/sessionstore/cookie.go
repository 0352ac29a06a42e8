package sessionstore

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gmo-common/google-auth-go/pkg/sessiontoken"
)

// CookieWriter emits a cookie towards the client. The host web framework
// supplies this; the store itself never touches the response directly.
type CookieWriter func(cookie *http.Cookie)

// CookieStore keeps the whole session record inside one signed cookie.
// The inbound cookie value is passed in explicitly so the store can be
// exercised without a live HTTP context.
type CookieStore struct {
	name   string
	domain string
	codec  *sessiontoken.Codec
	writer CookieWriter
	record sessiontoken.Record
}

type CookieStoreConfig struct {
	// Name of the cookie holding the signed record.
	Name string
	// Secret signs and verifies the record token.
	Secret string
	// Domain is optional; when empty the browser scopes the cookie to
	// the origin host.
	Domain string
}

// NewCookieStore decodes rawCookie into the working record. A missing,
// malformed, expired or tampered cookie degrades to an empty record: the
// visitor is simply anonymous, the request itself never fails.
func NewCookieStore(cfg CookieStoreConfig, rawCookie string, writer CookieWriter) *CookieStore {
	codec := sessiontoken.NewCodec(cfg.Secret)

	record, err := codec.Decode(rawCookie)
	if err != nil {
		if rawCookie != "" {
			slog.Debug("discarding undecodable session cookie", "cookie", cfg.Name, "error", err)
		}
		record = sessiontoken.Record{}
	}

	return &CookieStore{
		name:   cfg.Name,
		domain: cfg.Domain,
		codec:  codec,
		writer: writer,
		record: record,
	}
}

func (s *CookieStore) Get(field string) (string, bool) {
	value, ok := s.record[field]
	return value, ok
}

func (s *CookieStore) Set(field, value string) error {
	s.record[field] = value
	return s.emit()
}

func (s *CookieStore) Delete(field string) error {
	if _, ok := s.record[field]; !ok {
		return nil
	}
	delete(s.record, field)
	return s.emit()
}

// emit re-encodes the full record and hands the replacement cookie to the
// writer. No explicit expiry is set, so the cookie lives for the browser
// session unless the transport layer overrides it.
func (s *CookieStore) emit() error {
	serialized, err := s.codec.Encode(s.record)
	if err != nil {
		return fmt.Errorf("unable to encode session cookie: %w", err)
	}

	s.writer(&http.Cookie{
		Name:     s.name,
		Value:    serialized,
		Path:     "/",
		Domain:   s.domain,
		HttpOnly: true,
	})

	return nil
}
