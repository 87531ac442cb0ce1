package middleware_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campusshop/internal/middleware"
	"campusshop/internal/models"
	"campusshop/internal/repositories"
	"campusshop/internal/services"
	"campusshop/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*fiber.App, *services.AuthService, *session.Manager) {
	t.Helper()
	authService := services.NewAuthService(nil, "test_jwt_secret", time.Hour)
	sessions := session.NewManager(repositories.NewMockSessionRepository())

	app := fiber.New()
	api := app.Group("/api", middleware.SessionRequired(authService, sessions))
	api.Get("/whoami", func(c *fiber.Ctx) error {
		return c.SendString(middleware.State(c).ID)
	})
	api.Get("/private", middleware.LoginRequired(), func(c *fiber.Ctx) error {
		return c.SendString(middleware.State(c).Login().Email)
	})
	return app, authService, sessions
}

func get(t *testing.T, app *fiber.App, path, token string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestSessionRequired_IssuesAndResolvesToken(t *testing.T) {
	app, authService, sessions := setup(t)

	resp, id := get(t, app, "/api/whoami", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := resp.Header.Get(middleware.SessionTokenHeader)
	require.NotEmpty(t, token)

	sessionID, err := authService.SessionID(token)
	require.NoError(t, err)
	assert.Equal(t, id, sessionID)

	resp, again := get(t, app, "/api/whoami", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, again)
	assert.Equal(t, 1, sessions.Len())
}

func TestSessionRequired_RejectsForeignToken(t *testing.T) {
	app, _, _ := setup(t)
	other := services.NewAuthService(nil, "another_secret", time.Hour)
	token, err := other.IssueToken("whatever")
	require.NoError(t, err)

	resp, _ := get(t, app, "/api/whoami", token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginRequired(t *testing.T) {
	app, _, sessions := setup(t)

	resp, _ := get(t, app, "/api/whoami", "")
	token := resp.Header.Get(middleware.SessionTokenHeader)

	resp, body := get(t, app, "/api/private", token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, `"redirect":"/login"`)

	_, id := get(t, app, "/api/whoami", token)
	st, err := sessions.Get(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, sessions.Login(context.Background(), st, &models.Session{
		Token:       "remote",
		UserProfile: models.UserProfile{Name: "Mia", Email: "mia@campus.de"},
	}))

	resp, body = get(t, app, "/api/private", token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "mia@campus.de", body)
}
