package ledger

import (
	"github.com/google/uuid"

	"inventra-system/internal/database/models"
)

// Actor identifies the caller of an engine operation. It is supplied by the
// gateway after authentication; the engine never resolves identities itself.
type Actor struct {
	ID       uuid.UUID
	Username string
	Role     string
	BrandID  *uuid.UUID
}

// AuthorizeFunc decides whether an actor may act on balances of the given
// brand. Injected into the engine so role enumeration stays out of the ledger.
type AuthorizeFunc func(actor Actor, brandID uuid.UUID) bool

// BrandScoped is the default policy: system admins act on any brand, everyone
// else only on their own.
func BrandScoped(actor Actor, brandID uuid.UUID) bool {
	if actor.Role == models.RoleSystemAdmin {
		return true
	}
	return actor.BrandID != nil && *actor.BrandID == brandID
}

// IsSystemAdmin reports whether the actor holds the system admin role.
func (a Actor) IsSystemAdmin() bool {
	return a.Role == models.RoleSystemAdmin
}
