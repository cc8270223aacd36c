package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"academihub.org/internal/audit"
	"academihub.org/internal/auth"
)

type createUserRequest struct {
	Name     string `json:"name" validate:"required,notblank,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=128"`
	Role     string `json:"role" validate:"required,role"`
}

type updateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,notblank,max=100"`
	Role     *string `json:"role" validate:"omitempty,role"`
	IsActive *bool   `json:"is_active"`
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if a.svc.Auth == nil {
		unavailable(w, r, "auth")
		return
	}
	who, ok := identity(w, r)
	if !ok || !a.require(w, r, who, auth.ResourceUsers, auth.ActionRead) {
		return
	}
	q := r.URL.Query()
	f := auth.UserFilter{Search: strings.TrimSpace(q.Get("search"))}
	if raw := q.Get("role"); raw != "" {
		role, err := auth.ParseRole(raw)
		if err != nil {
			fail(w, r, err)
			return
		}
		f.Role = role
	}
	active, err := queryBool(r, "active")
	if err != nil {
		fail(w, r, err)
		return
	}
	f.Active = active
	if f.Limit, f.Offset, err = paging(r); err != nil {
		fail(w, r, err)
		return
	}
	users, err := a.svc.Auth.ListUsers(r.Context(), f)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if a.svc.Auth == nil {
		unavailable(w, r, "auth")
		return
	}
	who, ok := identity(w, r)
	if !ok || !a.require(w, r, who, auth.ResourceUsers, auth.ActionCreate) {
		return
	}
	var req createUserRequest
	if err := a.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	u, err := a.svc.Auth.CreateUser(r.Context(), auth.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.create", map[string]any{
		"target_id": u.ID,
		"role":      string(u.Role),
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/users/%d", u.ID))
	writeJSON(w, http.StatusCreated, u)
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	if a.svc.Auth == nil {
		unavailable(w, r, "auth")
		return
	}
	who, ok := identity(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if !a.allow(w, r, who, auth.ResourceUsers, auth.ActionRead, id) {
		return
	}
	u, err := a.svc.Auth.GetUser(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	if a.svc.Auth == nil {
		unavailable(w, r, "auth")
		return
	}
	who, ok := identity(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if !a.allow(w, r, who, auth.ResourceUsers, auth.ActionUpdate, id) {
		return
	}
	var req updateUserRequest
	if err := a.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	patch := auth.UserPatch{Name: req.Name, IsActive: req.IsActive}
	if req.Role != nil {
		role, err := auth.ParseRole(*req.Role)
		if err != nil {
			fail(w, r, err)
			return
		}
		patch.Role = &role
	}
	u, err := a.svc.Auth.UpdateUser(r.Context(), who, id, patch)
	if err != nil {
		fail(w, r, err)
		return
	}

	fields := map[string]any{"target_id": id}
	if patch.Role != nil {
		fields["role"] = string(*patch.Role)
	}
	if patch.IsActive != nil {
		fields["is_active"] = *patch.IsActive
	}
	_ = audit.LogEvent(r.Context(), "user.update", fields)
	writeJSON(w, http.StatusOK, u)
}
