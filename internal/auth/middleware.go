package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	AccountID string
	Role      string
	Claims    *Claims
}

// AuthMiddleware validates bearer tokens.
type AuthMiddleware struct {
	tokens  *TokenManager
	revoked *Revocations
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, revoked *Revocations) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, revoked: revoked}
}

// Handle enforces authentication for protected routes. Every failure is a 401.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	claims, err := m.Authenticate(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}
	c.Locals(principalKey, &Principal{AccountID: claims.Subject, Role: claims.Role, Claims: claims})
	return c.Next()
}

// Authenticate parses an Authorization header value.
func (m *AuthMiddleware) Authenticate(header string) (*Claims, error) {
	if header == "" {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "invalid token")
	}
	if m.revoked != nil && m.revoked.IsRevoked(claims.ID) {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "token revoked")
	}
	return claims, nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
