package auth

import (
	"context"
	"errors"
	"fmt"
)

// UserLookup resolves the live user record behind a credential.
type UserLookup interface {
	UserByID(ctx context.Context, id int64) (User, error)
}

// Guard authenticates bearer credentials against the live user table, so a
// deactivated account loses access before its token expires.
type Guard struct {
	tokens *Tokens
	users  UserLookup
}

func NewGuard(tokens *Tokens, users UserLookup) *Guard {
	return &Guard{tokens: tokens, users: users}
}

// Authenticate returns the caller behind token. The role comes from the live
// record, so an admin role change applies immediately.
func (g *Guard) Authenticate(ctx context.Context, token string) (Identity, error) {
	claims, err := g.tokens.Parse(token)
	if err != nil {
		return Identity{}, err
	}
	u, err := g.users.UserByID(ctx, claims.UserID)
	if errors.Is(err, ErrNotFound) {
		return Identity{}, fmt.Errorf("%w: account no longer exists", ErrUnauthenticated)
	}
	if err != nil {
		return Identity{}, fmt.Errorf("load user %d: %w", claims.UserID, err)
	}
	if !u.IsActive {
		return Identity{}, fmt.Errorf("%w: account deactivated", ErrUnauthenticated)
	}
	return Identity{UserID: u.ID, Role: u.Role, Email: u.Email}, nil
}
