package pg

import (
	"context"
	"strings"
	"time"

	"academihub.org/internal/auth"
)

var _ auth.UserStore = (*Store)(nil)

const userColumns = `id, email, name, password_hash, role, is_active, last_login, avatar_url, google_id, auth_provider, email_verified, created_at, updated_at`

func (s *Store) UserByID(ctx context.Context, id int64) (auth.User, error) {
	var u auth.User
	err := s.db.GetContext(ctx, &u, `select `+userColumns+` from users where id = $1`, id)
	if err != nil {
		return auth.User{}, notFound(err, auth.ErrNotFound)
	}
	return u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (auth.User, error) {
	var u auth.User
	err := s.db.GetContext(ctx, &u, `select `+userColumns+` from users where lower(email) = lower($1)`, email)
	if err != nil {
		return auth.User{}, notFound(err, auth.ErrNotFound)
	}
	return u, nil
}

func (s *Store) UserByGoogleID(ctx context.Context, googleID string) (auth.User, error) {
	var u auth.User
	err := s.db.GetContext(ctx, &u, `select `+userColumns+` from users where google_id = $1`, googleID)
	if err != nil {
		return auth.User{}, notFound(err, auth.ErrNotFound)
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, nu auth.NewUser) (auth.User, error) {
	provider := nu.AuthProvider
	if provider == "" {
		provider = auth.ProviderEmail
	}
	var u auth.User
	err := s.db.GetContext(ctx, &u, `
		insert into users (email, name, password_hash, role, google_id, auth_provider, email_verified, avatar_url)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning `+userColumns,
		strings.ToLower(nu.Email), nu.Name, nu.PasswordHash, string(nu.Role), nu.GoogleID, provider, nu.EmailVerified, nu.AvatarURL)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.User{}, auth.ErrConflict
		}
		return auth.User{}, invalidOnCheck(err, auth.ErrInvalidInput)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, id int64, patch auth.UserPatch) (auth.User, error) {
	if patch.Empty() {
		return s.UserByID(ctx, id)
	}
	var up sets
	if patch.Name != nil {
		up.set("name", *patch.Name)
	}
	if patch.Role != nil {
		up.set("role", string(*patch.Role))
	}
	if patch.IsActive != nil {
		up.set("is_active", *patch.IsActive)
	}
	if patch.AvatarURL != nil {
		up.set("avatar_url", *patch.AvatarURL)
	}
	args := append(up.args, id)
	q := s.db.Rebind(`update users set ` + up.sql() + `, updated_at = now() where id = ? returning ` + userColumns)
	var u auth.User
	if err := s.db.GetContext(ctx, &u, q, args...); err != nil {
		return auth.User{}, invalidOnCheck(notFound(err, auth.ErrNotFound), auth.ErrInvalidInput)
	}
	return u, nil
}

func (s *Store) SetPassword(ctx context.Context, id int64, hash string) error {
	res, err := s.db.ExecContext(ctx, `update users set password_hash = $1, updated_at = now() where id = $2`, hash, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *Store) LinkGoogle(ctx context.Context, id int64, googleID string) (auth.User, error) {
	var u auth.User
	err := s.db.GetContext(ctx, &u, `
		update users set google_id = $1, email_verified = true, updated_at = now()
		where id = $2
		returning `+userColumns, googleID, id)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.User{}, auth.ErrConflict
		}
		return auth.User{}, notFound(err, auth.ErrNotFound)
	}
	return u, nil
}

func (s *Store) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `update users set last_login = $1 where id = $2`, at, id)
	return err
}

func (s *Store) ListUsers(ctx context.Context, f auth.UserFilter) ([]auth.User, error) {
	var c conds
	if f.Role != "" {
		c.add("role = ?", string(f.Role))
	}
	if f.Active != nil {
		c.add("is_active = ?", *f.Active)
	}
	if strings.TrimSpace(f.Search) != "" {
		p := likePattern(f.Search)
		c.add("(name ilike ? or email ilike ?)", p, p)
	}
	q := s.db.Rebind(`select ` + userColumns + ` from users` + c.where() + ` order by created_at desc, id desc` + page(f.Limit, f.Offset))
	users := []auth.User{}
	if err := s.db.SelectContext(ctx, &users, q, c.args...); err != nil {
		return nil, err
	}
	return users, nil
}
