package auth

import (
	"fmt"
	"strings"
	"time"
)

// Role is the single role a user holds.
type Role string

const (
	RoleStudent  Role = "student"
	RoleLecturer Role = "lecturer"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleLecturer, RoleAdmin:
		return true
	}
	return false
}

// ParseRole normalizes s and validates it. An empty string yields the
// student role.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return RoleStudent, nil
	}
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
	}
	return r, nil
}

// Auth providers recorded on the user row.
const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

// User is a stored account. PasswordHash is nil for accounts that only sign
// in through Google.
type User struct {
	ID            int64      `json:"id" db:"id"`
	Email         string     `json:"email" db:"email"`
	Name          string     `json:"name" db:"name"`
	PasswordHash  *string    `json:"-" db:"password_hash"`
	Role          Role       `json:"role" db:"role"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	LastLogin     *time.Time `json:"last_login,omitempty" db:"last_login"`
	AvatarURL     *string    `json:"avatar_url,omitempty" db:"avatar_url"`
	GoogleID      *string    `json:"-" db:"google_id"`
	AuthProvider  string     `json:"auth_provider" db:"auth_provider"`
	EmailVerified bool       `json:"email_verified" db:"email_verified"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID int64
	Role   Role
	Email  string
}

// IsAdmin is a shorthand used by role-scoped queries.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// NewUser carries the fields needed to insert a user.
type NewUser struct {
	Email         string
	Name          string
	PasswordHash  *string
	Role          Role
	GoogleID      *string
	AuthProvider  string
	EmailVerified bool
	AvatarURL     *string
}

// UserPatch lists optional changes; nil fields are left untouched.
type UserPatch struct {
	Name      *string
	Role      *Role
	IsActive  *bool
	AvatarURL *string
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Role == nil && p.IsActive == nil && p.AvatarURL == nil
}

// UserFilter narrows ListUsers. Zero values mean no filter.
type UserFilter struct {
	Role   Role
	Active *bool
	Search string
	Limit  int
	Offset int
}
