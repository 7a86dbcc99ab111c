package sessionauth

import (
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// deterministicUserID derives a stable principal id from the role-scoped
// identity, so re-running a seeded join produces the same UUID.
func deterministicUserID(role Role, providerKey string) (uuid.UUID, error) {
	return hashid.NewUUID(role.String() + ":" + providerKey)
}
