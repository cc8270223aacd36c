package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

type lookupFunc func(ctx context.Context, id int64) (User, error)

func (f lookupFunc) UserByID(ctx context.Context, id int64) (User, error) { return f(ctx, id) }

func TestGuardAuthenticate(t *testing.T) {
	tokens, _ := NewTokens(testSecret)
	active := User{ID: 7, Email: "lect@example.com", Role: RoleLecturer, IsActive: true}
	raw, _, _ := tokens.Issue(active)

	g := NewGuard(tokens, lookupFunc(func(_ context.Context, id int64) (User, error) {
		if id != 7 {
			t.Fatalf("unexpected lookup id %d", id)
		}
		return active, nil
	}))
	id, err := g.Authenticate(context.Background(), raw)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if id.UserID != 7 || id.Role != RoleLecturer || id.Email != active.Email {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestGuardRevocationByDeactivation(t *testing.T) {
	tokens, _ := NewTokens(testSecret)
	u := User{ID: 3, Role: RoleStudent, IsActive: true}
	raw, _, _ := tokens.Issue(u)

	g := NewGuard(tokens, lookupFunc(func(context.Context, int64) (User, error) { return u, nil }))
	if _, err := g.Authenticate(context.Background(), raw); err != nil {
		t.Fatalf("expected active user to pass: %v", err)
	}

	u.IsActive = false
	if _, err := g.Authenticate(context.Background(), raw); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated after deactivation, got %v", err)
	}
}

func TestGuardUsesLiveRole(t *testing.T) {
	tokens, _ := NewTokens(testSecret)
	raw, _, _ := tokens.Issue(User{ID: 3, Role: RoleAdmin})
	g := NewGuard(tokens, lookupFunc(func(context.Context, int64) (User, error) {
		return User{ID: 3, Role: RoleStudent, IsActive: true}, nil
	}))
	id, err := g.Authenticate(context.Background(), raw)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if id.Role != RoleStudent {
		t.Fatalf("expected demoted role to apply, got %s", id.Role)
	}
}

func TestGuardFailures(t *testing.T) {
	tokens, _ := NewTokens(testSecret)
	expiredIssuer, _ := NewTokens(testSecret, WithTokenClock(fixedClock(time.Now().Add(-72*time.Hour))))
	valid, _, _ := tokens.Issue(User{ID: 1, Role: RoleStudent})
	expired, _, _ := expiredIssuer.Issue(User{ID: 1, Role: RoleStudent})
	storeDown := errors.New("connection refused")

	cases := []struct {
		name   string
		token  string
		lookup lookupFunc
		want   error
	}{
		{"missing", "", nil, ErrUnauthenticated},
		{"malformed", "abc.def", nil, ErrUnauthenticated},
		{"expired", expired, nil, ErrExpired},
		{"deleted user", valid, func(context.Context, int64) (User, error) { return User{}, ErrNotFound }, ErrUnauthenticated},
		{"store failure", valid, func(context.Context, int64) (User, error) { return User{}, storeDown }, storeDown},
	}
	for _, tc := range cases {
		lookup := tc.lookup
		if lookup == nil {
			lookup = func(context.Context, int64) (User, error) {
				t.Fatalf("%s: lookup must not run", tc.name)
				return User{}, nil
			}
		}
		_, err := NewGuard(tokens, lookup).Authenticate(context.Background(), tc.token)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}
