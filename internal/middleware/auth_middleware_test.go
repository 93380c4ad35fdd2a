package middleware_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"glauk-api/internal/dto"
	"glauk-api/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

// ManualMockAuthService lets each case decide how a token validates.
type ManualMockAuthService struct {
	ValidateJWTFunc func(ctx context.Context, tokenString string) (*dto.AuthClaims, error)
}

func (m *ManualMockAuthService) CreateJWT(ctx context.Context, userID, email string, ttl time.Duration) (string, error) {
	panic("not implemented in mock")
}

func (m *ManualMockAuthService) ValidateJWT(ctx context.Context, tokenString string) (*dto.AuthClaims, error) {
	if m.ValidateJWTFunc != nil {
		return m.ValidateJWTFunc(ctx, tokenString)
	}
	return nil, errors.New("ValidateJWTFunc not set on mock")
}

func TestProtected(t *testing.T) {
	tests := []struct {
		name             string
		authHeader       string
		validate         func(ctx context.Context, tokenString string) (*dto.AuthClaims, error)
		expectedStatus   int
		expectedEmail    interface{}
		expectNextCalled bool
	}{
		{
			name:           "No Auth Header",
			authHeader:     "",
			expectedStatus: fiber.StatusUnauthorized,
		},
		{
			name:       "Valid Token",
			authHeader: "Bearer valid_token",
			validate: func(ctx context.Context, tokenString string) (*dto.AuthClaims, error) {
				if tokenString != "valid_token" {
					return nil, errors.New("unexpected token")
				}
				return &dto.AuthClaims{UserID: "user123", Email: "jane@uni.edu"}, nil
			},
			expectedStatus:   fiber.StatusOK,
			expectedEmail:    "jane@uni.edu",
			expectNextCalled: true,
		},
		{
			name:       "Invalid Token",
			authHeader: "Bearer invalid_token",
			validate: func(ctx context.Context, tokenString string) (*dto.AuthClaims, error) {
				return nil, errors.New("signature is invalid")
			},
			expectedStatus: fiber.StatusUnauthorized,
		},
		{
			name:           "Malformed Auth Header - No Bearer",
			authHeader:     "Basic some_token",
			expectedStatus: fiber.StatusUnauthorized,
		},
		{
			name:           "Malformed Auth Header - Bearer No Token",
			authHeader:     "Bearer ",
			expectedStatus: fiber.StatusUnauthorized,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler()})
			authSvc := &ManualMockAuthService{ValidateJWTFunc: tc.validate}

			nextHandlerCalled := false
			var emailLocal, userIDLocal interface{}
			app.Get("/protected", middleware.Protected(authSvc), func(c *fiber.Ctx) error {
				nextHandlerCalled = true
				emailLocal = c.Locals(middleware.EmailKey)
				userIDLocal = c.Locals(middleware.UserIDKey)
				return c.SendStatus(fiber.StatusOK)
			})

			req := httptest.NewRequest("GET", "/protected", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			resp, err := app.Test(req, -1)

			assert.NoError(t, err, "app.Test should not return an error")
			if err == nil {
				assert.Equal(t, tc.expectedStatus, resp.StatusCode, "HTTP status code mismatch")
			}
			assert.Equal(t, tc.expectNextCalled, nextHandlerCalled)
			assert.Equal(t, tc.expectedEmail, emailLocal)
			if tc.expectNextCalled {
				assert.Equal(t, "user123", userIDLocal)
			}
		})
	}
}
