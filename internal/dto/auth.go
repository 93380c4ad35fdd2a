package dto

import "github.com/golang-jwt/jwt/v5"

// AuthClaims are the claims carried by access tokens.
type AuthClaims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
