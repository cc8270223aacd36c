package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type memUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]User
}

func newMemUsers() *memUsers { return &memUsers{byID: map[int64]User{}} }

func (m *memUsers) UserByID(_ context.Context, id int64) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *memUsers) find(match func(User) bool) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if match(u) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memUsers) UserByEmail(_ context.Context, email string) (User, error) {
	return m.find(func(u User) bool { return strings.EqualFold(u.Email, email) })
}

func (m *memUsers) UserByGoogleID(_ context.Context, gid string) (User, error) {
	return m.find(func(u User) bool { return u.GoogleID != nil && *u.GoogleID == gid })
}

func (m *memUsers) CreateUser(_ context.Context, nu NewUser) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, nu.Email) {
			return User{}, ErrConflict
		}
	}
	m.nextID++
	u := User{
		ID: m.nextID, Email: nu.Email, Name: nu.Name, PasswordHash: nu.PasswordHash, Role: nu.Role,
		IsActive: true, GoogleID: nu.GoogleID, AuthProvider: nu.AuthProvider, EmailVerified: nu.EmailVerified,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.byID[u.ID] = u
	return u, nil
}

func (m *memUsers) UpdateUser(_ context.Context, id int64, p UserPatch) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.AvatarURL != nil {
		u.AvatarURL = p.AvatarURL
	}
	m.byID[id] = u
	return u, nil
}

func (m *memUsers) SetPassword(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = &hash
	m.byID[id] = u
	return nil
}

func (m *memUsers) LinkGoogle(_ context.Context, id int64, gid string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	u.GoogleID = &gid
	u.EmailVerified = true
	m.byID[id] = u
	return u, nil
}

func (m *memUsers) TouchLogin(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.byID[id]
	u.LastLogin = &at
	m.byID[id] = u
	return nil
}

func (m *memUsers) ListUsers(_ context.Context, f UserFilter) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []User
	for _, u := range m.byID {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

type stubGoogle struct {
	identity GoogleIdentity
	err      error
}

func (s stubGoogle) Verify(context.Context, string) (GoogleIdentity, error) { return s.identity, s.err }

func newTestService(t *testing.T, opts ...ServiceOption) (*Service, *memUsers) {
	t.Helper()
	tokens, err := NewTokens(testSecret)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	store := newMemUsers()
	svc, err := NewService(store, tokens, opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func TestSignupAndLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Signup(ctx, SignupInput{Name: "Grace Hopper", Email: "  Grace@Example.com ", Password: "Cobol1959x"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if sess.User.Email != "grace@example.com" || sess.User.Role != RoleStudent || sess.Token == "" {
		t.Fatalf("unexpected session %+v", sess)
	}

	if _, err := svc.Signup(ctx, SignupInput{Name: "Dup", Email: "grace@example.com", Password: "Cobol1959x"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	login, err := svc.Login(ctx, "GRACE@example.com", "Cobol1959x")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.User.LastLogin == nil {
		t.Fatal("expected last login to be recorded")
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	sess, err := svc.Signup(ctx, SignupInput{Name: "Alan", Email: "alan@example.com", Password: "Enigma1912x"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	inactive := false
	if _, err := store.UpdateUser(ctx, sess.User.ID, UserPatch{IsActive: &inactive}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	gid := "google-sub"
	if _, err := store.CreateUser(ctx, NewUser{Email: "fed@example.com", Name: "Fed", Role: RoleStudent, GoogleID: &gid}); err != nil {
		t.Fatalf("create federated: %v", err)
	}

	cases := map[string][2]string{
		"unknown email":  {"nobody@example.com", "Enigma1912x"},
		"inactive":       {"alan@example.com", "Enigma1912x"},
		"federated only": {"fed@example.com", "Whatever123"},
	}
	for name, c := range cases {
		_, err := svc.Login(ctx, c[0], c[1])
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%s: expected invalid credentials, got %v", name, err)
		}
	}
	activeAgain := true
	_, _ = store.UpdateUser(ctx, sess.User.ID, UserPatch{IsActive: &activeAgain})
	if _, err := svc.Login(ctx, "alan@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected invalid credentials, got %v", err)
	}
}

func TestSignupAdminRequiresCode(t *testing.T) {
	svc, _ := newTestService(t, WithAdminSignupCode("letmein"))
	ctx := context.Background()
	in := SignupInput{Name: "Root", Email: "root@example.com", Password: "R00tPassword", Role: "admin"}
	if _, err := svc.Signup(ctx, in); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden without code, got %v", err)
	}
	in.AdminCode = "letmein"
	sess, err := svc.Signup(ctx, in)
	if err != nil {
		t.Fatalf("Signup admin: %v", err)
	}
	if sess.User.Role != RoleAdmin {
		t.Fatalf("expected admin, got %s", sess.User.Role)
	}

	noCode, _ := newTestService(t)
	in.Email = "other@example.com"
	if _, err := noCode.Signup(ctx, in); !errors.Is(err, ErrForbidden) {
		t.Fatalf("admin signup must be closed without a configured code, got %v", err)
	}
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cases := []SignupInput{
		{Name: "", Email: "a@example.com", Password: "Passw0rdOk"},
		{Name: "A", Email: "not-an-email", Password: "Passw0rdOk"},
		{Name: "A", Email: "a@example.com", Password: "weak"},
		{Name: "A", Email: "a@example.com", Password: "Passw0rdOk", Role: "dean"},
	}
	for _, in := range cases {
		if _, err := svc.Signup(ctx, in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%+v: expected invalid input, got %v", in, err)
		}
	}
}

func TestGoogleSignInLinksAndCreates(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, WithGoogle(stubGoogle{identity: GoogleIdentity{Subject: "g-1", Email: "Linus@Example.com", EmailVerified: true, Name: "Linus"}}))

	existing, err := svc.Signup(ctx, SignupInput{Name: "Linus", Email: "linus@example.com", Password: "Kernel1991x"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	sess, err := svc.GoogleSignIn(ctx, "id-token")
	if err != nil {
		t.Fatalf("GoogleSignIn: %v", err)
	}
	if sess.User.ID != existing.User.ID {
		t.Fatalf("expected account to be linked, got new user %d", sess.User.ID)
	}
	linked, _ := store.UserByID(ctx, existing.User.ID)
	if linked.GoogleID == nil || *linked.GoogleID != "g-1" {
		t.Fatalf("google id not linked: %+v", linked)
	}

	fresh, _ := newTestService(t, WithGoogle(stubGoogle{identity: GoogleIdentity{Subject: "g-2", Email: "new@example.com", EmailVerified: true}}))
	created, err := fresh.GoogleSignIn(ctx, "id-token")
	if err != nil {
		t.Fatalf("GoogleSignIn create: %v", err)
	}
	if created.User.PasswordHash != nil || created.User.AuthProvider != ProviderGoogle || created.User.Role != RoleStudent {
		t.Fatalf("unexpected federated user %+v", created.User)
	}
}

func TestGoogleSignInRequiresVerifiedEmail(t *testing.T) {
	ctx := context.Background()
	unverified := GoogleIdentity{Subject: "g-3", Email: "dean@example.com", Name: "Dean"}
	svc, store := newTestService(t, WithGoogle(stubGoogle{identity: unverified}))

	existing, err := svc.Signup(ctx, SignupInput{Name: "Dean", Email: "dean@example.com", Password: "Faculty2024x"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if _, err := svc.GoogleSignIn(ctx, "id-token"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated for unverified email, got %v", err)
	}
	u, _ := store.UserByID(ctx, existing.User.ID)
	if u.GoogleID != nil {
		t.Fatalf("unverified google identity was linked: %q", *u.GoogleID)
	}

	fresh, freshStore := newTestService(t, WithGoogle(stubGoogle{identity: unverified}))
	if _, err := fresh.GoogleSignIn(ctx, "id-token"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated on create, got %v", err)
	}
	if _, err := freshStore.UserByEmail(ctx, "dean@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("account created from unverified email: %v", err)
	}
}

func TestGoogleSignInDisabledAndRejected(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	if _, err := svc.GoogleSignIn(ctx, "tok"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden when disabled, got %v", err)
	}
	rejecting, _ := newTestService(t, WithGoogle(stubGoogle{err: ErrUnauthenticated}))
	if _, err := rejecting.GoogleSignIn(ctx, "tok"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	sess, _ := svc.Signup(ctx, SignupInput{Name: "Barbara", Email: "barbara@example.com", Password: "Liskov1939x"})

	if err := svc.ChangePassword(ctx, sess.User.ID, "bad", "N3wPassword"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for wrong current password, got %v", err)
	}
	if err := svc.ChangePassword(ctx, sess.User.ID, "Liskov1939x", "N3wPassword"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := svc.Login(ctx, "barbara@example.com", "N3wPassword"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestAdminCannotLockThemselvesOut(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	admin, _ := store.CreateUser(ctx, NewUser{Email: "adm@example.com", Name: "Adm", Role: RoleAdmin})
	actor := Identity{UserID: admin.ID, Role: RoleAdmin}

	off := false
	if _, err := svc.UpdateUser(ctx, actor, admin.ID, UserPatch{IsActive: &off}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected self-deactivation to fail, got %v", err)
	}
	student := RoleStudent
	if _, err := svc.UpdateUser(ctx, actor, admin.ID, UserPatch{Role: &student}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected self-demotion to fail, got %v", err)
	}

	other, _ := store.CreateUser(ctx, NewUser{Email: "s@example.com", Name: "S", Role: RoleStudent})
	lecturer := RoleLecturer
	updated, err := svc.UpdateUser(ctx, actor, other.ID, UserPatch{Role: &lecturer, IsActive: &off})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.Role != RoleLecturer || updated.IsActive {
		t.Fatalf("unexpected update result %+v", updated)
	}
}
