package httpapi

import (
	"fmt"
	"net/http"

	"academihub.org/internal/audit"
	"academihub.org/internal/auth"
	"academihub.org/internal/enrollment"
	"academihub.org/internal/events"
)

type enrollRequest struct {
	CourseID int64 `json:"course_id" validate:"required,gt=0"`
}

type updateEnrollmentRequest struct {
	Status     string   `json:"status" validate:"required,enrollment_status"`
	FinalGrade *float64 `json:"final_grade" validate:"omitempty,gte=0,lte=100"`
}

func (a *API) publish(typ string, data any) {
	if a.svc.Events != nil {
		a.svc.Events.Publish(events.Event{Type: typ, Data: data})
	}
}

// handleEnroll godoc
// @Summary Enroll the caller in a published course
// @Tags enrollments
// @Accept json
// @Produce json
// @Param body body enrollRequest true "Course to join"
// @Success 201 {object} enrollment.Enrollment
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /v1/enrollments [post]
func (a *API) handleEnroll(w http.ResponseWriter, r *http.Request) {
	if a.svc.Enrollments == nil {
		unavailable(w, r, "enrollment")
		return
	}
	who, ok := identity(w, r)
	if !ok || !a.allow(w, r, who, auth.ResourceEnrollments, auth.ActionCreate, 0) {
		return
	}
	var req enrollRequest
	if err := a.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	e, err := a.svc.Enrollments.Enroll(r.Context(), who, req.CourseID)
	if err != nil {
		fail(w, r, err)
		return
	}
	a.publish(events.EnrollmentCreated, e)
	w.Header().Set("Location", fmt.Sprintf("/v1/enrollments/%d", e.ID))
	writeJSON(w, http.StatusCreated, e)
}

func (a *API) handleListEnrollments(w http.ResponseWriter, r *http.Request) {
	if a.svc.Enrollments == nil {
		unavailable(w, r, "enrollment")
		return
	}
	who, ok := identity(w, r)
	if !ok || !holds(w, r, who, auth.ResourceEnrollments, auth.ActionRead) {
		return
	}
	f := enrollment.Filter{Status: enrollment.Status(r.URL.Query().Get("status"))}
	var err error
	if f.CourseID, err = queryID(r, "course_id"); err != nil {
		fail(w, r, err)
		return
	}
	if f.Limit, f.Offset, err = paging(r); err != nil {
		fail(w, r, err)
		return
	}
	list, err := a.svc.Enrollments.List(r.Context(), who, f)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"enrollments": list})
}

func (a *API) handleGetEnrollment(w http.ResponseWriter, r *http.Request) {
	if a.svc.Enrollments == nil {
		unavailable(w, r, "enrollment")
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
	if !a.allow(w, r, who, auth.ResourceEnrollments, auth.ActionRead, id) {
		return
	}
	e, err := a.svc.Enrollments.Get(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (a *API) handleUpdateEnrollment(w http.ResponseWriter, r *http.Request) {
	if a.svc.Enrollments == nil {
		unavailable(w, r, "enrollment")
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
	if !a.allow(w, r, who, auth.ResourceEnrollments, auth.ActionUpdate, id) {
		return
	}
	var req updateEnrollmentRequest
	if err := a.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	e, err := a.svc.Enrollments.UpdateStatus(r.Context(), id, enrollment.Status(req.Status), req.FinalGrade)
	if err != nil {
		fail(w, r, err)
		return
	}
	a.publish(events.EnrollmentUpdated, e)
	_ = audit.LogEvent(r.Context(), "enrollment.update", map[string]any{
		"enrollment_id": e.ID,
		"status":        string(e.Status),
	})
	writeJSON(w, http.StatusOK, e)
}

func (a *API) handleUnenroll(w http.ResponseWriter, r *http.Request) {
	if a.svc.Enrollments == nil {
		unavailable(w, r, "enrollment")
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
	if !a.allow(w, r, who, auth.ResourceEnrollments, auth.ActionDelete, id) {
		return
	}
	if err := a.svc.Enrollments.Unenroll(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
