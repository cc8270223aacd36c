package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"academihub.org/internal/audit"
	"academihub.org/internal/auth"
	"academihub.org/internal/coursework"
	"academihub.org/internal/events"
)

type createAssignmentRequest struct {
	CourseID    int64     `json:"course_id" validate:"required,gt=0"`
	Title       string    `json:"title" validate:"required,notblank,max=200"`
	Description string    `json:"description" validate:"max=20000"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	MaxScore    *float64  `json:"max_score" validate:"omitempty,gt=0,lte=1000"`
	IsPublished *bool     `json:"is_published"`
}

type updateAssignmentRequest struct {
	Title       *string    `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=20000"`
	DueDate     *time.Time `json:"due_date"`
	MaxScore    *float64   `json:"max_score" validate:"omitempty,gt=0,lte=1000"`
	IsPublished *bool      `json:"is_published"`
}

type submitRequest struct {
	Content  string  `json:"content"`
	FilePath *string `json:"file_path" validate:"omitempty,max=500"`
}

type gradeRequest struct {
	Score    *float64 `json:"score" validate:"required,gte=0"`
	Feedback *string  `json:"feedback" validate:"omitempty,max=10000"`
}

func (a *API) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	if a.svc.Coursework == nil {
		unavailable(w, r, "coursework")
		return
	}
	who, ok := identity(w, r)
	if !ok || !holds(w, r, who, auth.ResourceAssignments, auth.ActionRead) {
		return
	}
	var (
		f   coursework.AssignmentFilter
		err error
	)
	if f.CourseID, err = queryID(r, "course_id"); err != nil {
		fail(w, r, err)
		return
	}
	if f.Limit, f.Offset, err = paging(r); err != nil {
		fail(w, r, err)
		return
	}
	list, err := a.svc.Coursework.ListAssignments(r.Context(), who, f)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assignments": list})
}

func (a *API) handleUpcomingAssignments(w http.ResponseWriter, r *http.Request) {
	if a.svc.Coursework == nil {
		unavailable(w, r, "coursework")
		return
	}
	who, ok := identity(w, r)
	if !ok || !holds(w, r, who, auth.ResourceAssignments, auth.ActionRead) {
		return
	}
	list, err := a.svc.Coursework.Upcoming(r.Context(), who)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assignments": list})
}

// handleCreateAssignment requires assignment creation rights plus update
// rights on the target course, so lecturers only add to courses they own.
func (a *API) handleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	if a.svc.Coursework == nil {
		unavailable(w, r, "coursework")
		return
	}
	who, ok := identity(w, r)
	if !ok || !a.allow(w, r, who, auth.ResourceAssignments, auth.ActionCreate, 0) {
		return
	}
	var req createAssignmentRequest
	if err := a.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if !a.allow(w, r, who, auth.ResourceCourses, auth.ActionUpdate, req.CourseID) {
		return
	}
	asg, err := a.svc.Coursework.CreateAssignment(r.Context(), who, coursework.AssignmentInput{
		CourseID:    req.CourseID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		MaxScore:    req.MaxScore,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/assignments/%d", asg.ID))
	writeJSON(w, http.StatusCreated, asg)
}

func (a *API) handleGetAssignment(w http.ResponseWriter, r *http.Request) {
	if a.svc.Coursework == nil {
		unavailable(w, r, "coursework")
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
	if !a.allow(w, r, who, auth.ResourceAssignments, auth.ActionRead, id) {
		return
	}
	asg, err := a.svc.Coursework.GetAssignment(r.Context(), who, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, asg)
}

func (a *API) handleUpdateAssignment(w http.ResponseWriter, r *http.Request) {
	if a.svc.Coursework == nil {
		unavailable(w, r, "coursework")
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
	if !a.allow(w, r, who, auth.ResourceAssignments, auth.ActionUpdate, id) {
		return
	}
	var req updateAssignmentRequest
	if err := a.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	asg, err := a.svc.Coursework.UpdateAssignment(r.Context(), id, coursework.AssignmentPatch{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		MaxScore:    req.MaxScore,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, asg)
}

func (a *API) handleDeleteAssignment(w http.ResponseWriter, r *http.Request) {
	if a.svc.Coursework == nil {
		unavailable(w, r, "coursework")
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
	if !a.allow(w, r, who, auth.ResourceAssignments, auth.ActionDelete, id) {
		return
	}
	if err := a.svc.Coursework.DeleteAssignment(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if a.svc.Coursework == nil {
		unavailable(w, r, "coursework")
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
	if !a.allow(w, r, who, auth.ResourceSubmissions, auth.ActionCreate, 0) {
		return
	}
	var req submitRequest
	if err := a.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	sub, err := a.svc.Coursework.Submit(r.Context(), who, coursework.SubmitInput{
		AssignmentID: id,
		Content:      req.Content,
		FilePath:     req.FilePath,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	a.publish(events.SubmissionCreated, sub)
	w.Header().Set("Location", fmt.Sprintf("/v1/submissions/%d", sub.ID))
	writeJSON(w, http.StatusCreated, sub)
}

func (a *API) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	if a.svc.Coursework == nil {
		unavailable(w, r, "coursework")
		return
	}
	who, ok := identity(w, r)
	if !ok || !holds(w, r, who, auth.ResourceSubmissions, auth.ActionRead) {
		return
	}
	f := coursework.SubmissionFilter{Status: coursework.SubmissionStatus(r.URL.Query().Get("status"))}
	var err error
	if f.AssignmentID, err = queryID(r, "assignment_id"); err != nil {
		fail(w, r, err)
		return
	}
	if f.Limit, f.Offset, err = paging(r); err != nil {
		fail(w, r, err)
		return
	}
	list, err := a.svc.Coursework.ListSubmissions(r.Context(), who, f)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": list})
}

func (a *API) handleMySubmissions(w http.ResponseWriter, r *http.Request) {
	if a.svc.Coursework == nil {
		unavailable(w, r, "coursework")
		return
	}
	who, ok := identity(w, r)
	if !ok {
		return
	}
	if who.Role != auth.RoleStudent {
		fail(w, r, fmt.Errorf("%w: only students have submissions", auth.ErrForbidden))
		return
	}
	list, err := a.svc.Coursework.Mine(r.Context(), who)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": list})
}

func (a *API) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	if a.svc.Coursework == nil {
		unavailable(w, r, "coursework")
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
	if !a.allow(w, r, who, auth.ResourceSubmissions, auth.ActionRead, id) {
		return
	}
	sub, err := a.svc.Coursework.GetSubmission(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (a *API) handleGrade(w http.ResponseWriter, r *http.Request) {
	if a.svc.Coursework == nil {
		unavailable(w, r, "coursework")
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
	if !a.allow(w, r, who, auth.ResourceSubmissions, auth.ActionGrade, id) {
		return
	}
	var req gradeRequest
	if err := a.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	sub, err := a.svc.Coursework.Grade(r.Context(), who, id, *req.Score, req.Feedback)
	if err != nil {
		fail(w, r, err)
		return
	}
	a.publish(events.SubmissionGraded, sub)
	_ = audit.LogEvent(r.Context(), "submission.grade", map[string]any{
		"submission_id": sub.ID,
		"score":         *req.Score,
	})
	writeJSON(w, http.StatusOK, sub)
}
