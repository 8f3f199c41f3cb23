package backend

import (
	"fmt"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/domain"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/events"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/tokenstore"
)

// Factory hands out a FirebaseBackend bound to the token store of a storage kind.
type Factory struct {
	Admin               AdminAuth
	Passwords           PasswordAuth
	Stores              map[domain.StorageKind]tokenstore.Store
	Events              events.Publisher
	RequireConfirmation bool
}

// ClientFor returns a backend whose session lives in the store for kind.
func (f *Factory) ClientFor(kind domain.StorageKind) (*FirebaseBackend, error) {
	store, ok := f.Stores[kind]
	if !ok {
		return nil, fmt.Errorf("no token store configured for %q", kind)
	}
	return NewFirebaseBackend(f.Admin, f.Passwords, store, f.Events, f.RequireConfirmation), nil
}
