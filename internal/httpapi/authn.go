package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"academihub.org/internal/auth"
	"academihub.org/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/healthz",
	"/readyz",
	"/metrics",
	"/v1/info",
	"/v1/auth/signup",
	"/v1/auth/login",
	"/v1/auth/google",
}
var publicPrefixes = []string{
	"/swagger/",
}

// withAuth resolves the bearer credential for every non-public path. A
// missing or bad credential ends the request with 401.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if a.svc.Guard == nil {
			writeError(w, r, http.StatusServiceUnavailable, "authentication unavailable")
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			fail(w, r, err)
			return
		}
		who, err := a.svc.Guard.Authenticate(r.Context(), token)
		if err != nil {
			fail(w, r, err)
			return
		}

		ctx := auth.ContextWithIdentity(r.Context(), who)
		ctx = obs.WithPerson(ctx, who.UserID, who.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole admits only callers holding one of roles.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			who, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="academihub"`)
				writeError(w, r, http.StatusUnauthorized, "authentication required")
				return
			}
			for _, role := range roles {
				if who.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope"`)
			writeError(w, r, http.StatusForbidden, "insufficient role")
		})
	}
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", fmt.Errorf("%w: missing bearer token", auth.ErrUnauthenticated)
	}
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", fmt.Errorf("%w: invalid authorization scheme", auth.ErrUnauthenticated)
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", fmt.Errorf("%w: missing bearer token", auth.ErrUnauthenticated)
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// identity returns the authenticated caller or writes 401.
func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	who, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		fail(w, r, auth.ErrUnauthenticated)
		return auth.Identity{}, false
	}
	return who, true
}

// allow checks action on record id, falling back to its "_own" variant, and
// writes the error response when denied.
func (a *API) allow(w http.ResponseWriter, r *http.Request, who auth.Identity, res auth.Resource, action auth.Action, id int64) bool {
	if a.svc.Authz == nil {
		writeError(w, r, http.StatusServiceUnavailable, "authorization unavailable")
		return false
	}
	if err := a.svc.Authz.Allow(r.Context(), who, res, action, id); err != nil {
		fail(w, r, err)
		return false
	}
	return true
}

// require checks exactly action with no ownership fallback.
func (a *API) require(w http.ResponseWriter, r *http.Request, who auth.Identity, res auth.Resource, action auth.Action) bool {
	if a.svc.Authz == nil {
		writeError(w, r, http.StatusServiceUnavailable, "authorization unavailable")
		return false
	}
	if err := a.svc.Authz.Authorize(r.Context(), who, res, action, 0); err != nil {
		fail(w, r, err)
		return false
	}
	return true
}

// holds gates list endpoints whose results are scoped by role.
func holds(w http.ResponseWriter, r *http.Request, who auth.Identity, res auth.Resource, action auth.Action) bool {
	if !auth.Holds(who.Role, res, action) {
		fail(w, r, auth.ErrForbidden)
		return false
	}
	return true
}

func unavailable(w http.ResponseWriter, r *http.Request, what string) {
	writeError(w, r, http.StatusServiceUnavailable, what+" service unavailable")
}
