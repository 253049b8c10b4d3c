package identity

import (
	"context"
	"errors"
)

var ErrUserNotFound = errors.New("user not found")

// Capability is a bitset of what a user is allowed to act as. The engine
// consumes this read-only view; granting and revoking happens in the
// identity system, not here.
type Capability uint8

const (
	CapProvider Capability = 1 << iota
	CapReceptionist
	CapAdmin
)

// User is the directory's view of an account: display identity plus
// capability flags. Immutable from the engine's perspective.
type User struct {
	ID           string
	Name         string
	Email        string
	Capabilities Capability
}

// Can reports whether the user holds at least one of the given capabilities.
// All authorization checks in the engine go through this single predicate.
func (u User) Can(caps Capability) bool {
	return u.Capabilities&caps != 0
}

// Directory resolves users and capability views. The default implementation
// reads the local users table; a deployment may swap in the gRPC-backed
// remote directory instead.
type Directory interface {
	Lookup(ctx context.Context, id string) (User, error)
	ListProviders(ctx context.Context) ([]User, error)
	ListClients(ctx context.Context) ([]User, error)
}
