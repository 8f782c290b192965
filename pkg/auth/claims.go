package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/supawave/supawave-backend/pkg/enums"
)

// AccessTokenPayload is the identity carried by an access token.
type AccessTokenPayload struct {
	UserID     uuid.UUID
	BusinessID uuid.UUID
	Role       enums.UserRole
}

// AccessTokenClaims is the typed JWT presented by clients.
type AccessTokenClaims struct {
	UserID     uuid.UUID      `json:"user_id"`
	BusinessID uuid.UUID      `json:"business_id"`
	Role       enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}
