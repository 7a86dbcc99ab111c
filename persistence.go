package sessionauth

import (
	"github.com/goliatone/go-persistence-bun"
)

// RegisterModels makes the auth tables known to the persistence layer.
// Call once before building a persistence client so migrations and
// fixtures can resolve the models.
func RegisterModels() {
	persistence.RegisterModel((*User)(nil))
	persistence.RegisterModel((*Credential)(nil))
	persistence.RegisterModel((*Session)(nil))
}
