package sessionstore

import (
	"fmt"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

// EchoStore proxies to the host-managed session of a live echo request
// (echo-contrib session middleware over gorilla/sessions). The middleware
// keeps one session per visitor; Get below is idempotent, so the
// underlying session is started exactly once per request no matter how
// often the store is touched.
type EchoStore struct {
	c    echo.Context
	name string
}

// NewEchoStore requires session.Middleware to be registered on the route
// group, mirroring how the middleware is normally wired.
func NewEchoStore(c echo.Context, name string) *EchoStore {
	return &EchoStore{c: c, name: name}
}

func (s *EchoStore) session() (*sessions.Session, error) {
	sess, err := session.Get(s.name, s.c)
	if err != nil {
		return nil, fmt.Errorf("unable to get host session: %w", err)
	}
	if sess.Options == nil || sess.Options.Path == "" {
		sess.Options = &sessions.Options{
			Path:     "/",
			HttpOnly: true,
		}
	}
	return sess, nil
}

func (s *EchoStore) Get(field string) (string, bool) {
	sess, err := s.session()
	if err != nil {
		return "", false
	}
	value, ok := sess.Values[field].(string)
	return value, ok
}

func (s *EchoStore) Set(field, value string) error {
	sess, err := s.session()
	if err != nil {
		return err
	}
	sess.Values[field] = value
	if err := sess.Save(s.c.Request(), s.c.Response()); err != nil {
		return fmt.Errorf("unable to save host session: %w", err)
	}
	return nil
}

func (s *EchoStore) Delete(field string) error {
	sess, err := s.session()
	if err != nil {
		return err
	}
	if _, ok := sess.Values[field]; !ok {
		return nil
	}
	delete(sess.Values, field)
	if err := sess.Save(s.c.Request(), s.c.Response()); err != nil {
		return fmt.Errorf("unable to save host session: %w", err)
	}
	return nil
}
