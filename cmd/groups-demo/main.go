package main

import (
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/ksuid"

	"github.com/gmo-common/google-auth-go/config"
	"github.com/gmo-common/google-auth-go/pkg/auth"
	"github.com/gmo-common/google-auth-go/pkg/authmw"
	"github.com/gmo-common/google-auth-go/pkg/googleidp"
	"github.com/gmo-common/google-auth-go/pkg/groups"
	"github.com/gmo-common/google-auth-go/pkg/prettylog"
	"github.com/gmo-common/google-auth-go/pkg/sessionstore"
	"github.com/gmo-common/google-auth-go/pkg/util"
)

const (
	sessionIDCookie = "sid"
	sessionTTL      = 24 * time.Hour
)

// app keeps the session record server-side in redis; the browser only
// carries an opaque session ID.
type app struct {
	cfg   *config.Config
	redis *redis.Client
}

func (a *app) sessionID(c echo.Context) string {
	if cookie, err := c.Cookie(sessionIDCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	id := ksuid.New().String()
	c.SetCookie(&http.Cookie{
		Name:     sessionIDCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
	})
	return id
}

func (a *app) session(c echo.Context) (*auth.Session, error) {
	client, err := googleidp.NewClient(&googleidp.Config{
		ClientID:     a.cfg.OAuth.ClientID,
		ClientSecret: a.cfg.OAuth.ClientSecret,
		RedirectURI:  a.cfg.OAuth.RedirectURI,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create identity provider client: %w", err)
	}

	store := sessionstore.NewRedisStore(
		c.Request().Context(), a.redis, a.sessionID(c), sessionTTL)

	callback := auth.Callback{
		Code:  c.QueryParam("code"),
		Error: c.QueryParam("error"),
		State: c.QueryParam("state"),
	}

	session, err := auth.New(store, client, callback)
	if err != nil {
		return nil, err
	}

	sa := a.cfg.ServiceAccount
	if err := session.SetServiceAccount(sa.Email, sa.PrivateKeyPath, sa.ImpersonatedAdmin); err != nil {
		return nil, fmt.Errorf("unable to configure service account: %w", err)
	}
	return session, nil
}

func (a *app) resolver(session *auth.Session) (*groups.Resolver, error) {
	return groups.NewResolver(session, a.cfg.Domain, a.cfg.GroupEmails)
}

func (a *app) statePage(c echo.Context) error {
	session, err := a.session(c)

	var loginErr *auth.LoginError
	if errors.As(err, &loginErr) {
		return c.HTML(http.StatusOK, fmt.Sprintf(
			`<p>Login failed: %s</p><p><a href="/">Try again</a></p>`,
			html.EscapeString(loginErr.Code)))
	}
	if err != nil {
		return err
	}

	if !session.IsLoggedIn() {
		return c.HTML(http.StatusOK, fmt.Sprintf(
			`<p>You are not logged in.</p><p><a href="%s">Log in</a></p>`,
			session.LoginURL()))
	}

	user, err := session.User()
	if err != nil {
		return err
	}
	return c.HTML(http.StatusOK, fmt.Sprintf(
		`<p>Logged in as %s</p>
		<p><a href="/groups">My groups</a> | <a href="/protected">Protected area</a> | <a href="/logout">Log out</a></p>`,
		html.EscapeString(user.Email())))
}

func (a *app) groupsPage(c echo.Context) error {
	session := authmw.SessionFrom(c)
	user := authmw.UserFrom(c)

	resolver, err := a.resolver(session)
	if err != nil {
		return err
	}
	emails, err := resolver.GroupsForUser(c.Request().Context(), user)
	if err != nil {
		return err
	}
	return c.HTML(http.StatusOK, fmt.Sprintf(
		`<p>Groups of %s:</p><pre>%s</pre>`,
		html.EscapeString(user.Email()),
		html.EscapeString(strings.Join(emails, "\n"))))
}

func (a *app) protectedPage(c echo.Context) error {
	user := authmw.UserFrom(c)
	return c.HTML(http.StatusOK, fmt.Sprintf(
		`<p>Welcome to the protected area, %s.</p>`,
		html.EscapeString(user.Email())))
}

func (a *app) logout(c echo.Context) error {
	session, err := a.session(c)
	if err != nil {
		return err
	}
	if err := session.Logout(); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, "/")
}

func main() {
	godotenv.Load()
	slog.SetDefault(slog.New(prettylog.NewHandler(slog.LevelDebug)))

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("unable to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.ServiceAccount == nil {
		slog.Error("a service account is required for group authorization")
		os.Exit(1)
	}

	a := &app{
		cfg: cfg,
		redis: redis.NewClient(&redis.Options{
			Addr: util.GetEnv("REDIS_ADDR", "localhost:6379"),
		}),
	}

	mw := authmw.New(a.session)

	e := echo.New()
	e.GET("/", a.statePage)
	e.GET("/callback", a.statePage)
	e.GET("/logout", a.logout)
	e.GET("/groups", a.groupsPage, mw.RequireLogin())
	e.GET("/protected", a.protectedPage, mw.RequireGroup(a.resolver))

	slog.Info("starting groups demo", "addr", cfg.ListenAddr)
	if err := e.Start(cfg.ListenAddr); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
