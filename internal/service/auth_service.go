package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"glauk-api/internal/dto"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var ErrInvalidJWTToken = errors.New("invalid JWT token")

// AuthService issues and validates HS256 access tokens.
type AuthService interface {
	CreateJWT(ctx context.Context, userID, email string, ttl time.Duration) (string, error)
	ValidateJWT(ctx context.Context, tokenString string) (*dto.AuthClaims, error)
}

type authServiceImpl struct {
	secret []byte
	logger *zap.Logger
}

func NewAuthService(secret string, logger *zap.Logger) (AuthService, error) {
	if secret == "" {
		return nil, errors.New("JWT secret key is not configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authServiceImpl{secret: []byte(secret), logger: logger}, nil
}

func (s *authServiceImpl) CreateJWT(ctx context.Context, userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := dto.AuthClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   userID,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *authServiceImpl) ValidateJWT(ctx context.Context, tokenString string) (*dto.AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &dto.AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.logger.Debug("JWT token expired", zap.Error(err))
		} else {
			s.logger.Warn("JWT validation failed", zap.Error(err))
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidJWTToken, err)
	}

	claims, ok := token.Claims.(*dto.AuthClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidJWTToken
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: email claim missing", ErrInvalidJWTToken)
	}
	return claims, nil
}
