// Package auth verifies session tokens issued by the main application and
// resolves them to workspace users.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	werrors "github.com/phoneme/workspace/internal/errors"
	"github.com/phoneme/workspace/internal/store"
	"github.com/phoneme/workspace/internal/tool"
)

const identityKey = "identity"

// Identity is the authenticated user attached to a request.
type Identity struct {
	UserID string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Caller converts the identity for tool execution.
func (i Identity) Caller() tool.Caller {
	return tool.Caller{ID: i.UserID, Name: i.Name, Email: i.Email, Role: i.Role}
}

// IdentityFromUser builds an Identity from a stored user.
func IdentityFromUser(u *store.User) Identity {
	return Identity{UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Claims are the session token claims.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a token signer/verifier.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue mints a session token for u.
func (t *Tokens) Issue(u *store.User) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies a token and returns its claims.
func (t *Tokens) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", werrors.ErrUnauthorized, err)
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("%w: invalid token claims", werrors.ErrUnauthorized)
	}
	return claims, nil
}

// UserLookup loads users by ID.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*store.User, error)
}

// MiddlewareConfig configures the session middleware.
type MiddlewareConfig struct {
	Tokens     *Tokens
	Users      UserLookup
	CookieName string
	Logger     zerolog.Logger
}

// tokenFromRequest reads the session cookie, falling back to a Bearer header.
func tokenFromRequest(c *fiber.Ctx, cookieName string) string {
	if cookieName != "" {
		if v := c.Cookies(cookieName); v != "" {
			return v
		}
	}
	header := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// NewMiddleware returns a Fiber middleware that requires a valid session for
// an active user and stores the Identity on the request.
func NewMiddleware(cfg MiddlewareConfig) fiber.Handler {
	logger := cfg.Logger.With().Str("component", "auth").Logger()

	return func(c *fiber.Ctx) error {
		raw := tokenFromRequest(c, cfg.CookieName)
		if raw == "" {
			return fmt.Errorf("%w: no session token", werrors.ErrUnauthorized)
		}

		claims, err := cfg.Tokens.Parse(raw)
		if err != nil {
			logger.Warn().Err(err).Str("path", c.Path()).Msg("rejected session token")
			return err
		}

		u, err := cfg.Users.GetUser(c.UserContext(), claims.UserID)
		if err != nil {
			return fmt.Errorf("load session user: %w", err)
		}
		if u == nil || !u.Active {
			logger.Warn().Str("user_id", claims.UserID).Msg("session for unknown or inactive user")
			return fmt.Errorf("%w: user is not active", werrors.ErrUnauthorized)
		}

		c.Locals(identityKey, IdentityFromUser(u))
		return c.Next()
	}
}

// FromContext returns the Identity set by the middleware.
func FromContext(c *fiber.Ctx) (Identity, bool) {
	id, ok := c.Locals(identityKey).(Identity)
	return id, ok
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, werrors.ErrUnauthorized)
}
