package catalog

import (
	"context"
	"fmt"
)

// Identity records users the first time they sign in.
type Identity struct {
	users UserStore
}

// NewIdentity creates an Identity backed by users.
func NewIdentity(users UserStore) *Identity {
	return &Identity{users: users}
}

// EnsureUser returns the stored user for u.ID, creating it from u when it
// does not exist yet. Existing users are never updated. created reports
// whether a row was inserted.
func (i *Identity) EnsureUser(ctx context.Context, u User) (user *User, created bool, err error) {
	existing, err := i.users.GetUser(ctx, u.ID)
	if err != nil {
		return nil, false, fmt.Errorf("get user: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}
	if err := i.users.CreateUser(ctx, u.ID, u.Name, u.Email, u.ProfilePic); err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return &u, true, nil
}

// Lookup returns the user with the given id, or nil when there is none.
func (i *Identity) Lookup(ctx context.Context, id string) (*User, error) {
	u, err := i.users.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
