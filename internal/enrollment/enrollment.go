// Package enrollment manages student registrations in courses.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"academihub.org/internal/auth"
	"academihub.org/internal/course"
)

var (
	ErrNotFound      = errors.New("enrollment not found")
	ErrConflict      = errors.New("already enrolled in this course")
	ErrCourseNotOpen = errors.New("course is not open for enrollment")
	ErrInvalidInput  = errors.New("invalid input")
)

// Status is the enrollment state.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusDropped   Status = "dropped"
	StatusWithdrawn Status = "withdrawn"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusDropped, StatusWithdrawn:
		return true
	}
	return false
}

// Enrollment joins a student and a course. The name and title fields are
// filled by list queries.
type Enrollment struct {
	ID           int64     `json:"id" db:"id"`
	StudentID    int64     `json:"student_id" db:"student_id"`
	CourseID     int64     `json:"course_id" db:"course_id"`
	Status       Status    `json:"status" db:"status"`
	FinalGrade   *float64  `json:"final_grade,omitempty" db:"final_grade"`
	EnrolledAt   time.Time `json:"enrollment_date" db:"enrollment_date"`
	CourseCode   string    `json:"course_code,omitempty" db:"course_code"`
	CourseTitle  string    `json:"course_title,omitempty" db:"course_title"`
	StudentName  string    `json:"student_name,omitempty" db:"student_name"`
	StudentEmail string    `json:"student_email,omitempty" db:"student_email"`
}

// Filter narrows ListEnrollments. StudentID and LecturerID scope results to
// one student or to one lecturer's courses.
type Filter struct {
	StudentID  int64
	LecturerID int64
	CourseID   int64
	Status     Status
	Limit      int
	Offset     int
}

// Store persists enrollments. CreateEnrollment returns ErrConflict for a
// duplicate pair.
type Store interface {
	CreateEnrollment(ctx context.Context, studentID, courseID int64) (Enrollment, error)
	EnrollmentByID(ctx context.Context, id int64) (Enrollment, error)
	ListEnrollments(ctx context.Context, f Filter) ([]Enrollment, error)
	UpdateEnrollment(ctx context.Context, id int64, status Status, finalGrade *float64) (Enrollment, error)
	DeleteEnrollment(ctx context.Context, id int64) error
}

// Courses resolves the course an enrollment targets.
type Courses interface {
	CourseByID(ctx context.Context, id int64) (course.Course, error)
}

type Service struct {
	store   Store
	courses Courses
}

func NewService(store Store, courses Courses) *Service {
	return &Service{store: store, courses: courses}
}

// Enroll registers student in courseID. Only published courses accept
// enrollments.
func (s *Service) Enroll(ctx context.Context, student auth.Identity, courseID int64) (Enrollment, error) {
	if student.Role != auth.RoleStudent {
		return Enrollment{}, fmt.Errorf("%w: only students enroll", auth.ErrForbidden)
	}
	c, err := s.courses.CourseByID(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if c.Lifecycle != course.Published {
		return Enrollment{}, fmt.Errorf("%w: course %s is %s", ErrCourseNotOpen, c.Code, c.Lifecycle)
	}
	e, err := s.store.CreateEnrollment(ctx, student.UserID, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	e.CourseCode, e.CourseTitle = c.Code, c.Title
	return e, nil
}

// List scopes the listing by role: students see their own enrollments,
// lecturers those in their courses and admins everything.
func (s *Service) List(ctx context.Context, who auth.Identity, f Filter) ([]Enrollment, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, f.Status)
	}
	switch who.Role {
	case auth.RoleStudent:
		f.StudentID, f.LecturerID = who.UserID, 0
	case auth.RoleLecturer:
		f.LecturerID, f.StudentID = who.UserID, 0
	case auth.RoleAdmin:
	default:
		return nil, auth.ErrForbidden
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.store.ListEnrollments(ctx, f)
}

// Get returns one enrollment.
func (s *Service) Get(ctx context.Context, id int64) (Enrollment, error) {
	return s.store.EnrollmentByID(ctx, id)
}

// UpdateStatus sets status and, optionally, the final grade (0 to 100).
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status, finalGrade *float64) (Enrollment, error) {
	if !status.Valid() {
		return Enrollment{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if finalGrade != nil && (*finalGrade < 0 || *finalGrade > 100) {
		return Enrollment{}, fmt.Errorf("%w: final_grade must be between 0 and 100", ErrInvalidInput)
	}
	return s.store.UpdateEnrollment(ctx, id, status, finalGrade)
}

// Unenroll removes the enrollment.
func (s *Service) Unenroll(ctx context.Context, id int64) error {
	return s.store.DeleteEnrollment(ctx, id)
}
