package auth

import (
	"context"
	"fmt"
)

// OwnershipResolver reports whether who owns record id of one resource type.
// Implementations decide which column carries ownership for who's role.
type OwnershipResolver func(ctx context.Context, who Identity, id int64) (bool, error)

// Authorizer combines the capability map with per-resource ownership
// resolvers. It holds no mutable state.
type Authorizer struct {
	resolvers map[Resource]OwnershipResolver
}

func NewAuthorizer(resolvers map[Resource]OwnershipResolver) *Authorizer {
	copied := make(map[Resource]OwnershipResolver, len(resolvers))
	for res, fn := range resolvers {
		if fn != nil {
			copied[res] = fn
		}
	}
	return &Authorizer{resolvers: copied}
}

// Authorize checks exactly action on resource. For "_own" actions the
// resolver must confirm ownership of id; id 0 stands for a record that does
// not exist yet and is created on behalf of the caller.
func (a *Authorizer) Authorize(ctx context.Context, who Identity, res Resource, action Action, id int64) error {
	if !Can(who.Role, res, action) {
		return fmt.Errorf("%w: %s may not %s %s", ErrForbidden, who.Role, action, res)
	}
	if !action.Owned() || id == 0 {
		return nil
	}
	resolve, ok := a.resolvers[res]
	if !ok {
		return fmt.Errorf("%w: no ownership rule for %s", ErrForbidden, res)
	}
	owns, err := resolve(ctx, who, id)
	if err != nil {
		return fmt.Errorf("resolve %s ownership: %w", res, err)
	}
	if !owns {
		return fmt.Errorf("%w: not the owner of %s %d", ErrForbidden, res, id)
	}
	return nil
}

// Allow grants action when the caller holds it unscoped, and otherwise falls
// back to its "_own" variant on record id.
func (a *Authorizer) Allow(ctx context.Context, who Identity, res Resource, action Action, id int64) error {
	if !action.Owned() && Can(who.Role, res, action) {
		return nil
	}
	return a.Authorize(ctx, who, res, action.Scoped(), id)
}

// Holds reports whether the caller has action in either form. Used by list
// endpoints that scope results instead of checking a single record.
func Holds(role Role, res Resource, action Action) bool {
	return Can(role, res, action) || Can(role, res, action.Scoped())
}
