package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/matheuslc/horacerta/libs/db"
	"github.com/matheuslc/horacerta/services/booking-service/internal/identity"
)

// UserRepository reads the local users table as a capability view. It is the
// default identity.Directory implementation.
type UserRepository struct {
	pool *db.Pool
}

func NewUserRepository(pool *db.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Lookup(ctx context.Context, id string) (identity.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, provider, receptionist, admin
		FROM users
		WHERE id = $1
	`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.User{}, identity.ErrUserNotFound
		}
		return identity.User{}, err
	}
	return user, nil
}

func (r *UserRepository) ListProviders(ctx context.Context) ([]identity.User, error) {
	return r.list(ctx, `
		SELECT id, name, email, provider, receptionist, admin
		FROM users
		WHERE provider
		ORDER BY name ASC
	`)
}

// ListClients returns the bookable client population: every account without
// the provider capability.
func (r *UserRepository) ListClients(ctx context.Context) ([]identity.User, error) {
	return r.list(ctx, `
		SELECT id, name, email, provider, receptionist, admin
		FROM users
		WHERE NOT provider
		ORDER BY name ASC
	`)
}

func (r *UserRepository) list(ctx context.Context, query string) ([]identity.User, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []identity.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return users, nil
}

func scanUser(row pgx.Row) (identity.User, error) {
	var user identity.User
	var provider, receptionist, admin bool
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &provider, &receptionist, &admin); err != nil {
		return identity.User{}, err
	}
	if provider {
		user.Capabilities |= identity.CapProvider
	}
	if receptionist {
		user.Capabilities |= identity.CapReceptionist
	}
	if admin {
		user.Capabilities |= identity.CapAdmin
	}
	return user, nil
}
