package main

import (
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/gmo-common/google-auth-go/config"
	"github.com/gmo-common/google-auth-go/pkg/auth"
	"github.com/gmo-common/google-auth-go/pkg/googleidp"
	"github.com/gmo-common/google-auth-go/pkg/prettylog"
	"github.com/gmo-common/google-auth-go/pkg/sessionstore"
	"github.com/gmo-common/google-auth-go/pkg/util"
)

type app struct {
	cfg *config.Config
}

func (a *app) session(c echo.Context) (*auth.Session, *googleidp.Client, error) {
	client, err := googleidp.NewClient(&googleidp.Config{
		ClientID:     a.cfg.OAuth.ClientID,
		ClientSecret: a.cfg.OAuth.ClientSecret,
		RedirectURI:  a.cfg.OAuth.RedirectURI,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create identity provider client: %w", err)
	}

	var rawCookie string
	if cookie, err := c.Cookie(a.cfg.Cookie.Name); err == nil {
		rawCookie = cookie.Value
	}
	store := sessionstore.NewCookieStore(sessionstore.CookieStoreConfig{
		Name:   a.cfg.Cookie.Name,
		Secret: a.cfg.Cookie.Secret,
		Domain: a.cfg.Cookie.Domain,
	}, rawCookie, c.SetCookie)

	callback := auth.Callback{
		Code:  c.QueryParam("code"),
		Error: c.QueryParam("error"),
		State: c.QueryParam("state"),
	}

	session, err := auth.New(store, client, callback)
	return session, client, err
}

func (a *app) statePage(c echo.Context) error {
	session, client, err := a.session(c)

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

	var idToken string
	if tokenResponse := client.TokenResponse(); tokenResponse != nil {
		idToken = util.JWSToText(tokenResponse.IDToken)
	}
	return c.HTML(http.StatusOK, fmt.Sprintf(
		`<p>Logged in as %s</p><pre>%s</pre><p><a href="/logout">Log out</a></p>`,
		html.EscapeString(user.Email()),
		html.EscapeString(idToken)))
}

func (a *app) logout(c echo.Context) error {
	session, _, err := a.session(c)
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

	a := &app{cfg: cfg}

	e := echo.New()
	e.GET("/", a.statePage)
	e.GET("/callback", a.statePage)
	e.GET("/logout", a.logout)

	slog.Info("starting login demo", "addr", cfg.ListenAddr)
	if err := e.Start(cfg.ListenAddr); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
