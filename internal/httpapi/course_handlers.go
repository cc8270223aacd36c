package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"academihub.org/internal/auth"
	"academihub.org/internal/course"
)

type createCourseRequest struct {
	Code        string  `json:"code" validate:"required,course_code"`
	Title       string  `json:"title" validate:"required,notblank,max=200"`
	Description string  `json:"description" validate:"max=10000"`
	LecturerID  *int64  `json:"lecturer_id" validate:"omitempty,gt=0"`
	Semester    *string `json:"semester" validate:"omitempty,max=20"`
	Year        *int    `json:"year"`
	Credits     *int    `json:"credits"`
}

type updateCourseRequest struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string `json:"description" validate:"omitempty,max=10000"`
	Semester    *string `json:"semester" validate:"omitempty,max=20"`
	Year        *int    `json:"year"`
	Credits     *int    `json:"credits"`
	SyllabusURL *string `json:"syllabus_url" validate:"omitempty,max=500"`
}

type transitionRequest struct {
	Action string `json:"action" validate:"required"`
}

func (a *API) handleListCourses(w http.ResponseWriter, r *http.Request) {
	if a.svc.Courses == nil {
		unavailable(w, r, "course")
		return
	}
	who, ok := identity(w, r)
	if !ok || !holds(w, r, who, auth.ResourceCourses, auth.ActionRead) {
		return
	}
	q := r.URL.Query()
	f := course.Filter{
		Lifecycle: course.State(strings.ToUpper(strings.TrimSpace(q.Get("lifecycle")))),
		Search:    q.Get("search"),
	}
	var err error
	if f.LecturerID, err = queryID(r, "lecturer_id"); err != nil {
		fail(w, r, err)
		return
	}
	if q.Get("mine") == "true" && who.Role == auth.RoleLecturer {
		f.LecturerID = who.UserID
	}
	if f.Limit, f.Offset, err = paging(r); err != nil {
		fail(w, r, err)
		return
	}
	courses, err := a.svc.Courses.List(r.Context(), who, f)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"courses": courses})
}

func (a *API) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	if a.svc.Courses == nil {
		unavailable(w, r, "course")
		return
	}
	who, ok := identity(w, r)
	if !ok || !a.allow(w, r, who, auth.ResourceCourses, auth.ActionCreate, 0) {
		return
	}
	var req createCourseRequest
	if err := a.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	c, err := a.svc.Courses.Create(r.Context(), who, course.CreateInput{
		Code:        req.Code,
		Title:       req.Title,
		Description: req.Description,
		LecturerID:  req.LecturerID,
		Semester:    req.Semester,
		Year:        req.Year,
		Credits:     req.Credits,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/courses/%d", c.ID))
	writeJSON(w, http.StatusCreated, c)
}

func (a *API) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	if a.svc.Courses == nil {
		unavailable(w, r, "course")
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
	if !a.allow(w, r, who, auth.ResourceCourses, auth.ActionRead, id) {
		return
	}
	c, err := a.svc.Courses.Get(r.Context(), who, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) handleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	if a.svc.Courses == nil {
		unavailable(w, r, "course")
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
	if !a.allow(w, r, who, auth.ResourceCourses, auth.ActionUpdate, id) {
		return
	}
	var req updateCourseRequest
	if err := a.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	c, err := a.svc.Courses.Update(r.Context(), id, course.Patch{
		Title:       req.Title,
		Description: req.Description,
		Semester:    req.Semester,
		Year:        req.Year,
		Credits:     req.Credits,
		SyllabusURL: req.SyllabusURL,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleTransitionCourse godoc
// @Summary Move a course through its lifecycle
// @Description Actions: submitForReview, publish, archive, saveDraft.
// @Tags courses
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param body body transitionRequest true "Lifecycle action"
// @Success 200 {object} course.Course
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /v1/courses/{id}/transition [post]
func (a *API) handleTransitionCourse(w http.ResponseWriter, r *http.Request) {
	if a.svc.Lifecycle == nil {
		unavailable(w, r, "lifecycle")
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
	if !a.allow(w, r, who, auth.ResourceCourses, auth.ActionTransition, id) {
		return
	}
	var req transitionRequest
	if err := a.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	c, err := a.svc.Lifecycle.Transition(r.Context(), id, req.Action)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
