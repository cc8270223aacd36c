// Package coursework covers assignments and the submissions students make
// against them.
package coursework

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound           = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrConflict           = errors.New("assignment already submitted")
	ErrInvalidInput       = errors.New("invalid input")
	// ErrNotPublished hides drafts from students as if they did not exist.
	ErrNotPublished = fmt.Errorf("%w: not published", ErrNotFound)
)

type SubmissionStatus string

const (
	StatusSubmitted SubmissionStatus = "submitted"
	StatusLate      SubmissionStatus = "late"
	StatusGraded    SubmissionStatus = "graded"
)

func (s SubmissionStatus) Valid() bool {
	return s == StatusSubmitted || s == StatusLate || s == StatusGraded
}

type Assignment struct {
	ID          int64     `json:"id" db:"id"`
	CourseID    int64     `json:"course_id" db:"course_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	DueDate     time.Time `json:"due_date" db:"due_date"`
	MaxScore    float64   `json:"max_score" db:"max_score"`
	IsPublished bool      `json:"is_published" db:"is_published"`
	CreatedBy   *int64    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
	CourseCode  string    `json:"course_code,omitempty" db:"course_code"`
	CourseTitle string    `json:"course_title,omitempty" db:"course_title"`
}

type Submission struct {
	ID              int64            `json:"id" db:"id"`
	AssignmentID    int64            `json:"assignment_id" db:"assignment_id"`
	StudentID       int64            `json:"student_id" db:"student_id"`
	Content         string           `json:"content" db:"submission_text"`
	FilePath        *string          `json:"file_path,omitempty" db:"file_path"`
	SubmittedAt     time.Time        `json:"submitted_at" db:"submitted_at"`
	Status          SubmissionStatus `json:"status" db:"status"`
	Score           *float64         `json:"score,omitempty" db:"score"`
	Feedback        *string          `json:"feedback,omitempty" db:"feedback"`
	GradedAt        *time.Time       `json:"graded_at,omitempty" db:"graded_at"`
	GradedBy        *int64           `json:"graded_by,omitempty" db:"graded_by"`
	AssignmentTitle string           `json:"assignment_title,omitempty" db:"assignment_title"`
	StudentName     string           `json:"student_name,omitempty" db:"student_name"`
	StudentEmail    string           `json:"student_email,omitempty" db:"student_email"`
}

type NewAssignment struct {
	CourseID    int64
	Title       string
	Description string
	DueDate     time.Time
	MaxScore    float64
	IsPublished bool
	CreatedBy   int64
}

type AssignmentPatch struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	MaxScore    *float64
	IsPublished *bool
}

func (p AssignmentPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.DueDate == nil &&
		p.MaxScore == nil && p.IsPublished == nil
}

// AssignmentFilter narrows ListAssignments. EnrolledStudentID limits results
// to courses the student is actively enrolled in; DueAfter keeps assignments
// due strictly later. Results are ordered by due date.
type AssignmentFilter struct {
	CourseID          int64
	LecturerID        int64
	EnrolledStudentID int64
	PublishedOnly     bool
	DueAfter          *time.Time
	Limit             int
	Offset            int
}

type NewSubmission struct {
	AssignmentID int64
	StudentID    int64
	Content      string
	FilePath     *string
	Status       SubmissionStatus
	SubmittedAt  time.Time
}

type SubmissionFilter struct {
	AssignmentID int64
	StudentID    int64
	LecturerID   int64
	Status       SubmissionStatus
	Limit        int
	Offset       int
}

// Grade is what the grader records on a submission.
type Grade struct {
	Score    float64
	Feedback *string
	GraderID int64
	At       time.Time
}

// Store persists coursework. CreateSubmission returns ErrConflict for a
// second submission by the same student.
type Store interface {
	CreateAssignment(ctx context.Context, a NewAssignment) (Assignment, error)
	AssignmentByID(ctx context.Context, id int64) (Assignment, error)
	ListAssignments(ctx context.Context, f AssignmentFilter) ([]Assignment, error)
	UpdateAssignment(ctx context.Context, id int64, p AssignmentPatch) (Assignment, error)
	DeleteAssignment(ctx context.Context, id int64) error

	CreateSubmission(ctx context.Context, s NewSubmission) (Submission, error)
	SubmissionByID(ctx context.Context, id int64) (Submission, error)
	ListSubmissions(ctx context.Context, f SubmissionFilter) ([]Submission, error)
	GradeSubmission(ctx context.Context, id int64, g Grade) (Submission, error)

	ActiveEnrollment(ctx context.Context, studentID, courseID int64) (bool, error)
}
