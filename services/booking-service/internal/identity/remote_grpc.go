//go:build protogen

package identity

import (
	"context"
	"time"

	"github.com/matheuslc/horacerta/libs/grpcx"
	identityv1 "github.com/matheuslc/horacerta/protos/gen/identity/v1"
)

type remoteDirectory struct {
	client identityv1.IdentityServiceClient
}

// NewRemoteDirectory dials the identity service and returns a Directory
// backed by it. Returns nil when no address is configured.
func NewRemoteDirectory(addr string) (Directory, error) {
	if addr == "" {
		return nil, nil
	}
	conn, err := grpcx.Dial(context.Background(), addr, grpcx.DialOptions{Timeout: 3 * time.Second})
	if err != nil {
		return nil, err
	}
	return &remoteDirectory{client: identityv1.NewIdentityServiceClient(conn)}, nil
}

func (d *remoteDirectory) Lookup(ctx context.Context, id string) (User, error) {
	resp, err := d.client.GetUser(ctx, &identityv1.GetUserRequest{Id: id})
	if err != nil {
		return User{}, err
	}
	if resp.GetUser() == nil {
		return User{}, ErrUserNotFound
	}
	return userFromProto(resp.GetUser()), nil
}

func (d *remoteDirectory) ListProviders(ctx context.Context) ([]User, error) {
	resp, err := d.client.ListUsers(ctx, &identityv1.ListUsersRequest{Providers: true})
	if err != nil {
		return nil, err
	}
	return usersFromProto(resp.GetUsers()), nil
}

func (d *remoteDirectory) ListClients(ctx context.Context) ([]User, error) {
	resp, err := d.client.ListUsers(ctx, &identityv1.ListUsersRequest{Providers: false})
	if err != nil {
		return nil, err
	}
	return usersFromProto(resp.GetUsers()), nil
}

func userFromProto(u *identityv1.User) User {
	var caps Capability
	if u.GetProvider() {
		caps |= CapProvider
	}
	if u.GetReceptionist() {
		caps |= CapReceptionist
	}
	if u.GetAdmin() {
		caps |= CapAdmin
	}
	return User{
		ID:           u.GetId(),
		Name:         u.GetName(),
		Email:        u.GetEmail(),
		Capabilities: caps,
	}
}

func usersFromProto(in []*identityv1.User) []User {
	out := make([]User, 0, len(in))
	for _, u := range in {
		out = append(out, userFromProto(u))
	}
	return out
}
