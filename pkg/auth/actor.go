package auth

import (
	"github.com/google/uuid"

	"github.com/librisvault/librisvault-backend/pkg/enums"
)

// Actor is the authenticated principal a service call runs on behalf of.
// StoreID is set for sellers that own a store.
type Actor struct {
	UserID  uuid.UUID
	StoreID *uuid.UUID
	Role    enums.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.RoleAdmin
}

// OwnsStore reports whether the actor is the seller that owns storeID.
func (a Actor) OwnsStore(storeID uuid.UUID) bool {
	return a.Role == enums.RoleSeller && a.StoreID != nil && *a.StoreID == storeID
}

// CanManageStore is true for the owning seller and for operators.
func (a Actor) CanManageStore(storeID uuid.UUID) bool {
	return a.IsAdmin() || a.OwnsStore(storeID)
}
