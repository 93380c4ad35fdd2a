package middleware

import (
	"strings"

	"glauk-api/internal/domain"
	"glauk-api/internal/logger"
	"glauk-api/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	AuthorizationHeader = "Authorization"
	BearerSchema        = "Bearer "
	UserIDKey           = "userID" // Key for storing UserID in fiber.Ctx locals
	EmailKey            = "email"
)

// Protected rejects requests without a valid bearer token and stores the
// caller's id and email in the request locals.
func Protected(authService service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(AuthorizationHeader)
		if authHeader == "" {
			return domain.NewUnauthorizedError("authorization header is missing")
		}
		if !strings.HasPrefix(authHeader, BearerSchema) {
			return domain.NewUnauthorizedError("authorization scheme is not Bearer")
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, BearerSchema))
		if tokenString == "" {
			return domain.NewUnauthorizedError("token is empty")
		}

		claims, err := authService.ValidateJWT(c.UserContext(), tokenString)
		if err != nil {
			logger.Get().Debug("JWT validation failed", zap.Error(err), zap.String("path", c.Path()))
			return domain.NewUnauthorizedError("invalid or expired token")
		}

		c.Locals(UserIDKey, claims.UserID)
		c.Locals(EmailKey, claims.Email)
		return c.Next()
	}
}

// CallerEmail returns the authenticated email set by Protected.
func CallerEmail(c *fiber.Ctx) string {
	email, _ := c.Locals(EmailKey).(string)
	return email
}
