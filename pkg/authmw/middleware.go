// Package authmw provides echo middleware that gates handlers on the
// authentication session and on directory group membership.
package authmw

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gmo-common/google-auth-go/pkg/auth"
	"github.com/gmo-common/google-auth-go/pkg/groups"
)

const (
	sessionContextKey = "authmw.session"
	userContextKey    = "authmw.user"
)

// SessionFunc builds the authentication session for the current request.
// Sessions are request-scoped, so the middleware asks for a fresh one on
// every invocation.
type SessionFunc func(c echo.Context) (*auth.Session, error)

// ResolverFunc builds a group resolver over the session's service
// credential.
type ResolverFunc func(session *auth.Session) (*groups.Resolver, error)

type Middleware struct {
	sessions SessionFunc
}

func New(sessions SessionFunc) *Middleware {
	return &Middleware{sessions: sessions}
}

// RequireLogin redirects anonymous visitors to the identity provider and
// stores the session and verified user on the echo context for handlers
// downstream.
func (m *Middleware) RequireLogin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session, err := m.sessions(c)
			if err != nil {
				return fmt.Errorf("unable to open authentication session: %w", err)
			}

			if !session.IsLoggedIn() {
				return c.Redirect(http.StatusFound, session.LoginURL())
			}

			user, err := session.User()
			if err != nil {
				// The stored token stopped verifying between session
				// construction and here. Treat it like an anonymous visit.
				return c.Redirect(http.StatusFound, session.LoginURL())
			}

			c.Set(sessionContextKey, session)
			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// RequireGroup behaves like RequireLogin and additionally denies users
// outside the resolver's configured policy groups.
func (m *Middleware) RequireGroup(resolvers ResolverFunc) echo.MiddlewareFunc {
	requireLogin := m.RequireLogin()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return requireLogin(func(c echo.Context) error {
			session := SessionFrom(c)
			user := UserFrom(c)

			resolver, err := resolvers(session)
			if err != nil {
				return fmt.Errorf("unable to build group resolver: %w", err)
			}

			authorized, err := resolver.IsUserAuthorized(c.Request().Context(), user)
			if err != nil {
				return fmt.Errorf("unable to resolve group membership: %w", err)
			}
			if !authorized {
				return echo.NewHTTPError(http.StatusForbidden, "not a member of a permitted group")
			}

			return next(c)
		})
	}
}

// SessionFrom returns the session stored by RequireLogin, or nil outside
// a gated handler.
func SessionFrom(c echo.Context) *auth.Session {
	session, _ := c.Get(sessionContextKey).(*auth.Session)
	return session
}

// UserFrom returns the verified user stored by RequireLogin, or nil
// outside a gated handler.
func UserFrom(c echo.Context) *auth.User {
	user, _ := c.Get(userContextKey).(*auth.User)
	return user
}
