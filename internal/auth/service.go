package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// UserStore persists accounts.
type UserStore interface {
	UserLookup
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByGoogleID(ctx context.Context, googleID string) (User, error)
	CreateUser(ctx context.Context, u NewUser) (User, error)
	UpdateUser(ctx context.Context, id int64, patch UserPatch) (User, error)
	SetPassword(ctx context.Context, id int64, hash string) error
	LinkGoogle(ctx context.Context, id int64, googleID string) (User, error)
	TouchLogin(ctx context.Context, id int64, at time.Time) error
	ListUsers(ctx context.Context, filter UserFilter) ([]User, error)
}

// Session is returned by every sign-in path.
type Session struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SignupInput is the self-registration payload.
type SignupInput struct {
	Name      string
	Email     string
	Password  string
	Role      string
	AdminCode string
}

// CreateUserInput is used by administrators.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// Service implements sign-up, sign-in and account administration.
type Service struct {
	store     UserStore
	tokens    *Tokens
	google    GoogleVerifier
	adminCode string
	now       func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithGoogle enables Google sign-in.
func WithGoogle(v GoogleVerifier) ServiceOption {
	return func(s *Service) error {
		s.google = v
		return nil
	}
}

// WithAdminSignupCode allows self-registration as admin for callers that
// present code. Without it admin accounts are created by other admins only.
func WithAdminSignupCode(code string) ServiceOption {
	return func(s *Service) error {
		s.adminCode = strings.TrimSpace(code)
		return nil
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs Service with optional configuration.
func NewService(store UserStore, tokens *Tokens, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: user store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token issuer is required")
	}
	s := &Service{store: store, tokens: tokens, now: time.Now}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// GoogleEnabled reports whether Google sign-in is configured.
func (s *Service) GoogleEnabled() bool { return s.google != nil }

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: email is malformed", ErrInvalidInput)
	}
	return email, nil
}

func normalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(name) > 255 {
		return "", fmt.Errorf("%w: name is too long", ErrInvalidInput)
	}
	return name, nil
}

// Signup registers an email/password account and signs it in.
func (s *Service) Signup(ctx context.Context, in SignupInput) (Session, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return Session{}, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return Session{}, err
	}
	role, err := ParseRole(in.Role)
	if err != nil {
		return Session{}, err
	}
	if role == RoleAdmin && !s.adminCodeMatches(in.AdminCode) {
		return Session{}, fmt.Errorf("%w: admin registration requires a valid code", ErrForbidden)
	}
	if err := CheckPassword(in.Password, email, name); err != nil {
		return Session{}, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.store.CreateUser(ctx, NewUser{
		Email:        email,
		Name:         name,
		PasswordHash: &hash,
		Role:         role,
		AuthProvider: ProviderEmail,
	})
	if err != nil {
		return Session{}, err
	}
	return s.session(u)
}

func (s *Service) adminCodeMatches(code string) bool {
	if s.adminCode == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(code)), []byte(s.adminCode)) == 1
}

// Login checks email and password. Unknown email, wrong password, inactive
// account and Google-only account are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Session{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	u, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !u.IsActive || u.PasswordHash == nil {
		return Session{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(*u.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	now := s.now().UTC()
	if err := s.store.TouchLogin(ctx, u.ID, now); err != nil {
		return Session{}, fmt.Errorf("record login: %w", err)
	}
	u.LastLogin = &now
	return s.session(u)
}

// GoogleSignIn verifies idToken and signs in the matching account, linking
// or creating it on first use. Linking and creation require a verified email.
func (s *Service) GoogleSignIn(ctx context.Context, idToken string) (Session, error) {
	if s.google == nil {
		return Session{}, fmt.Errorf("%w: google sign-in is not configured", ErrForbidden)
	}
	gid, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return Session{}, err
	}
	email := strings.ToLower(strings.TrimSpace(gid.Email))

	u, err := s.store.UserByGoogleID(ctx, gid.Subject)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		// An address Google has not verified cannot claim or create an account.
		if !gid.EmailVerified {
			return Session{}, fmt.Errorf("%w: google email is not verified", ErrUnauthenticated)
		}
		u, err = s.store.UserByEmail(ctx, email)
		switch {
		case err == nil:
			if u, err = s.store.LinkGoogle(ctx, u.ID, gid.Subject); err != nil {
				return Session{}, err
			}
		case errors.Is(err, ErrNotFound):
			name := strings.TrimSpace(gid.Name)
			if name == "" {
				name = email
			}
			subject := gid.Subject
			u, err = s.store.CreateUser(ctx, NewUser{
				Email:         email,
				Name:          name,
				Role:          RoleStudent,
				GoogleID:      &subject,
				AuthProvider:  ProviderGoogle,
				EmailVerified: true,
			})
			if err != nil {
				return Session{}, err
			}
		default:
			return Session{}, err
		}
	default:
		return Session{}, err
	}
	if !u.IsActive {
		return Session{}, ErrInvalidCredentials
	}
	now := s.now().UTC()
	if err := s.store.TouchLogin(ctx, u.ID, now); err != nil {
		return Session{}, fmt.Errorf("record login: %w", err)
	}
	u.LastLogin = &now
	return s.session(u)
}

func (s *Service) session(u User) (Session, error) {
	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, Token: token, ExpiresAt: exp}, nil
}

// Me returns the caller's own record.
func (s *Service) Me(ctx context.Context, id int64) (User, error) {
	return s.store.UserByID(ctx, id)
}

// UpdateProfile lets a user change their display name and avatar.
func (s *Service) UpdateProfile(ctx context.Context, id int64, name, avatarURL *string) (User, error) {
	var patch UserPatch
	if name != nil {
		n, err := normalizeName(*name)
		if err != nil {
			return User{}, err
		}
		patch.Name = &n
	}
	if avatarURL != nil {
		a := strings.TrimSpace(*avatarURL)
		patch.AvatarURL = &a
	}
	if patch.Empty() {
		return s.store.UserByID(ctx, id)
	}
	return s.store.UpdateUser(ctx, id, patch)
}

// ChangePassword requires the current password unless the account has none
// (Google-only), in which case it sets the first password.
func (s *Service) ChangePassword(ctx context.Context, id int64, current, next string) error {
	u, err := s.store.UserByID(ctx, id)
	if err != nil {
		return err
	}
	if u.PasswordHash != nil {
		if err := VerifyPassword(*u.PasswordHash, current); err != nil {
			return fmt.Errorf("%w: current password is incorrect", ErrInvalidInput)
		}
	}
	if err := CheckPassword(next, u.Email, u.Name); err != nil {
		return err
	}
	hash, err := HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.SetPassword(ctx, id, hash)
}

// ListUsers is an administrator listing.
func (s *Service) ListUsers(ctx context.Context, filter UserFilter) ([]User, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, filter.Role)
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.Search = strings.TrimSpace(filter.Search)
	return s.store.ListUsers(ctx, filter)
}

// GetUser returns any user by id.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.store.UserByID(ctx, id)
}

// CreateUser lets an administrator add an account with any role.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return User{}, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return User{}, err
	}
	role, err := ParseRole(in.Role)
	if err != nil {
		return User{}, err
	}
	if err := CheckPassword(in.Password, email, name); err != nil {
		return User{}, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	return s.store.CreateUser(ctx, NewUser{
		Email:        email,
		Name:         name,
		PasswordHash: &hash,
		Role:         role,
		AuthProvider: ProviderEmail,
	})
}

// UpdateUser applies an administrator change. Admins cannot demote or
// deactivate themselves, which keeps at least the acting admin in place.
func (s *Service) UpdateUser(ctx context.Context, actor Identity, id int64, patch UserPatch) (User, error) {
	if patch.Role != nil && !patch.Role.Valid() {
		return User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, *patch.Role)
	}
	if patch.Name != nil {
		n, err := normalizeName(*patch.Name)
		if err != nil {
			return User{}, err
		}
		patch.Name = &n
	}
	if actor.UserID == id {
		if patch.Role != nil && *patch.Role != actor.Role {
			return User{}, fmt.Errorf("%w: administrators cannot change their own role", ErrInvalidInput)
		}
		if patch.IsActive != nil && !*patch.IsActive {
			return User{}, fmt.Errorf("%w: administrators cannot deactivate themselves", ErrInvalidInput)
		}
	}
	if patch.Empty() {
		return s.store.UserByID(ctx, id)
	}
	return s.store.UpdateUser(ctx, id, patch)
}
