package httpapi

import (
	"net/http"

	"academihub.org/internal/auth"
)

func (a *API) handleAdminOverview(w http.ResponseWriter, r *http.Request) {
	if a.svc.Stats == nil {
		unavailable(w, r, "stats")
		return
	}
	who, ok := identity(w, r)
	if !ok || !a.require(w, r, who, auth.ResourceStats, auth.ActionRead) {
		return
	}
	out, err := a.svc.Stats.AdminOverview(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleUserStats(w http.ResponseWriter, r *http.Request) {
	if a.svc.Stats == nil {
		unavailable(w, r, "stats")
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
	if !a.allow(w, r, who, auth.ResourceStats, auth.ActionRead, id) {
		return
	}
	out, err := a.svc.Stats.ForUser(r.Context(), who, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleUserActivity(w http.ResponseWriter, r *http.Request) {
	if a.svc.Stats == nil {
		unavailable(w, r, "stats")
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
	if !a.allow(w, r, who, auth.ResourceStats, auth.ActionRead, id) {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		fail(w, r, err)
		return
	}
	items, err := a.svc.Stats.Activity(r.Context(), who, id, limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": items})
}
