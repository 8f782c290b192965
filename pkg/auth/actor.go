package auth

import (
	"github.com/google/uuid"

	"github.com/supawave/supawave-backend/pkg/enums"
)

// Actor is the authenticated caller as seen by domain services. Every store,
// product and transfer lookup is scoped to BusinessID.
type Actor struct {
	UserID     uuid.UUID
	BusinessID uuid.UUID
	Role       enums.UserRole
}

// ActorFromClaims converts verified token claims.
func ActorFromClaims(claims *AccessTokenClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, BusinessID: claims.BusinessID, Role: claims.Role}
}

func (a Actor) IsOwner() bool {
	return a.Role == enums.UserRoleOwner
}

func (a Actor) IsManager() bool {
	return a.Role == enums.UserRoleManager
}
