package auth

import (
	"context"
	"errors"
	"testing"
)

func TestCapabilityTable(t *testing.T) {
	cases := []struct {
		role   Role
		res    Resource
		action Action
		want   bool
	}{
		{RoleStudent, ResourceCourses, ActionRead, true},
		{RoleStudent, ResourceCourses, ActionCreate, false},
		{RoleStudent, ResourceEnrollments, ActionCreate, true},
		{RoleStudent, ResourceEnrollments, ActionReadOwn, true},
		{RoleStudent, ResourceEnrollments, ActionRead, false},
		{RoleStudent, ResourceSubmissions, ActionGrade, false},
		{RoleLecturer, ResourceCourses, ActionCreate, true},
		{RoleLecturer, ResourceCourses, ActionUpdateOwn, true},
		{RoleLecturer, ResourceCourses, ActionUpdate, false},
		{RoleLecturer, ResourceUsers, ActionRead, false},
		{RoleAdmin, ResourceCourses, ActionUpdate, true},
		{RoleAdmin, ResourceCourses, ActionDelete, false},
		{RoleAdmin, ResourceUsers, ActionUpdate, true},
		{Role("dean"), ResourceCourses, ActionRead, false},
	}
	for _, tc := range cases {
		if got := Can(tc.role, tc.res, tc.action); got != tc.want {
			t.Fatalf("Can(%s, %s, %s)=%v, want %v", tc.role, tc.res, tc.action, got, tc.want)
		}
	}
}

func TestCapabilitiesReturnsCopy(t *testing.T) {
	caps := Capabilities(RoleStudent)
	caps[ResourceCourses] = append(caps[ResourceCourses], ActionDelete)
	caps[ResourceUsers] = []Action{ActionCreate}
	if Can(RoleStudent, ResourceCourses, ActionDelete) || Can(RoleStudent, ResourceUsers, ActionCreate) {
		t.Fatal("mutating the returned map must not change the capability table")
	}
}

func TestActionScoped(t *testing.T) {
	if ActionUpdate.Scoped() != ActionUpdateOwn || ActionUpdateOwn.Scoped() != ActionUpdateOwn {
		t.Fatal("unexpected scoped action")
	}
	if ActionRead.Owned() || !ActionReadOwn.Owned() {
		t.Fatal("unexpected Owned result")
	}
}

func courseOwner(owners map[int64]int64) OwnershipResolver {
	return func(_ context.Context, who Identity, id int64) (bool, error) {
		return owners[id] == who.UserID, nil
	}
}

func TestAuthorizeOwnership(t *testing.T) {
	authz := NewAuthorizer(map[Resource]OwnershipResolver{
		ResourceCourses: courseOwner(map[int64]int64{100: 7, 200: 8}),
	})
	owner := Identity{UserID: 7, Role: RoleLecturer}
	ctx := context.Background()

	if err := authz.Authorize(ctx, owner, ResourceCourses, ActionUpdateOwn, 100); err != nil {
		t.Fatalf("owner should be allowed: %v", err)
	}
	err := authz.Authorize(ctx, owner, ResourceCourses, ActionUpdateOwn, 200)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-owner lecturer must be forbidden, got %v", err)
	}
	student := Identity{UserID: 7, Role: RoleStudent}
	if err := authz.Authorize(ctx, student, ResourceCourses, ActionUpdateOwn, 100); !errors.Is(err, ErrForbidden) {
		t.Fatalf("student lacks the capability, got %v", err)
	}
}

func TestAllowFallsBackToOwned(t *testing.T) {
	calls := 0
	authz := NewAuthorizer(map[Resource]OwnershipResolver{
		ResourceCourses: func(_ context.Context, who Identity, id int64) (bool, error) {
			calls++
			return id == 1 && who.UserID == 7, nil
		},
	})
	ctx := context.Background()
	admin := Identity{UserID: 1, Role: RoleAdmin}
	lecturer := Identity{UserID: 7, Role: RoleLecturer}

	if err := authz.Allow(ctx, admin, ResourceCourses, ActionUpdate, 1); err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if calls != 0 {
		t.Fatal("unscoped grant must not consult the resolver")
	}
	if err := authz.Allow(ctx, lecturer, ResourceCourses, ActionUpdate, 1); err != nil {
		t.Fatalf("owning lecturer update: %v", err)
	}
	if err := authz.Allow(ctx, lecturer, ResourceCourses, ActionUpdate, 2); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for foreign course, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected two resolver calls, got %d", calls)
	}
}

func TestAuthorizeWithoutResolverIsForbidden(t *testing.T) {
	authz := NewAuthorizer(nil)
	who := Identity{UserID: 2, Role: RoleStudent}
	err := authz.Authorize(context.Background(), who, ResourceEnrollments, ActionReadOwn, 5)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := authz.Authorize(context.Background(), who, ResourceSubmissions, ActionCreateOwn, 0); err != nil {
		t.Fatalf("creation on behalf of caller needs no resolver: %v", err)
	}
}

func TestAuthorizeResolverError(t *testing.T) {
	boom := errors.New("db gone")
	authz := NewAuthorizer(map[Resource]OwnershipResolver{
		ResourceEnrollments: func(context.Context, Identity, int64) (bool, error) { return false, boom },
	})
	err := authz.Authorize(context.Background(), Identity{UserID: 2, Role: RoleStudent}, ResourceEnrollments, ActionReadOwn, 5)
	if !errors.Is(err, boom) || errors.Is(err, ErrForbidden) {
		t.Fatalf("expected resolver error to propagate unclassified, got %v", err)
	}
}
