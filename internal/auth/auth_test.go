package auth

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phoneme/workspace/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), store.DriverSQLite, filepath.Join(t.TempDir(), "auth.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTokens_IssueAndParse(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	u := &store.User{ID: "u1", Email: "a@co.com", Role: store.RoleAdmin}

	signed, exp, err := tokens.Issue(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "a@co.com", claims.Email)
	assert.Equal(t, store.RoleAdmin, claims.Role)
}

func TestTokens_Rejects(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	u := &store.User{ID: "u1"}

	other, _, err := NewTokens("other", time.Hour).Issue(u)
	require.NoError(t, err)
	_, err = tokens.Parse(other)
	assert.True(t, IsUnauthorized(err))

	expired := NewTokens("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue(u)
	require.NoError(t, err)
	_, err = tokens.Parse(old)
	assert.True(t, IsUnauthorized(err))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "u1"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tokens.Parse(noExp)
	assert.True(t, IsUnauthorized(err))

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": "u1", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tokens.Parse(none)
	assert.True(t, IsUnauthorized(err))

	_, err = tokens.Parse("garbage")
	assert.True(t, IsUnauthorized(err))
}

func testApp(t *testing.T, s *store.Store, tokens *Tokens) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if IsUnauthorized(err) {
				return c.SendStatus(fiber.StatusUnauthorized)
			}
			return c.SendStatus(fiber.StatusInternalServerError)
		},
	})
	app.Use(NewMiddleware(MiddlewareConfig{Tokens: tokens, Users: s, CookieName: "token", Logger: zerolog.Nop()}))
	app.Get("/me", func(c *fiber.Ctx) error {
		id, ok := FromContext(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(id)
	})
	return app
}

func TestMiddleware(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tokens := NewTokens("secret", time.Hour)

	active := &store.User{Name: "Ann", Email: "ann@co.com", Active: true}
	require.NoError(t, s.CreateUser(ctx, active))
	inactive := &store.User{Name: "Old", Email: "old@co.com", Active: false}
	require.NoError(t, s.CreateUser(ctx, inactive))

	app := testApp(t, s, tokens)
	good, _, err := tokens.Issue(active)
	require.NoError(t, err)
	stale, _, err := tokens.Issue(inactive)
	require.NoError(t, err)
	ghost, _, err := tokens.Issue(&store.User{ID: "ghost"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"no token", func(r *http.Request) {}, http.StatusUnauthorized},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: good}) }, http.StatusOK},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+good) }, http.StatusOK},
		{"basic scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic "+good) }, http.StatusUnauthorized},
		{"inactive user", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+stale) }, http.StatusUnauthorized},
		{"unknown user", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+ghost) }, http.StatusUnauthorized},
		{"bad token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/me", nil)
			tt.setup(req)
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestIdentity_Caller(t *testing.T) {
	id := Identity{UserID: "u1", Name: "Ann", Email: "ann@co.com", Role: "user"}
	c := id.Caller()
	assert.Equal(t, "u1", c.ID)
	assert.Equal(t, "Ann", c.Name)
	assert.Equal(t, "ann@co.com", c.Email)
	assert.Equal(t, "user", c.Role)
}
