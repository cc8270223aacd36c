// Package course owns the Course entity and its lifecycle state machine.
package course

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("course not found")
	ErrInvalidAction     = errors.New("invalid lifecycle action")
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
	// ErrConflict reports a duplicate course code or a transition that lost
	// a race with a concurrent one.
	ErrConflict     = errors.New("course conflict")
	ErrArchived     = errors.New("course is archived")
	ErrInvalidInput = errors.New("invalid input")
)

// Course is a catalog entry. LecturerID is nil once the owner is deleted.
type Course struct {
	ID           int64     `json:"id" db:"id"`
	Code         string    `json:"code" db:"code"`
	Title        string    `json:"title" db:"title"`
	Description  string    `json:"description" db:"description"`
	LecturerID   *int64    `json:"lecturer_id" db:"lecturer_id"`
	LecturerName *string   `json:"lecturer_name,omitempty" db:"lecturer_name"`
	Semester     *string   `json:"semester,omitempty" db:"semester"`
	Year         *int      `json:"year,omitempty" db:"year"`
	Credits      int       `json:"credits" db:"credits"`
	SyllabusURL  *string   `json:"syllabus_url,omitempty" db:"syllabus_url"`
	Lifecycle    State     `json:"lifecycle" db:"lifecycle"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// OwnedBy reports whether userID is the course lecturer.
func (c Course) OwnedBy(userID int64) bool {
	return c.LecturerID != nil && *c.LecturerID == userID
}

// NewCourse is the insert payload; Lifecycle is always Draft.
type NewCourse struct {
	Code        string
	Title       string
	Description string
	LecturerID  *int64
	Semester    *string
	Year        *int
	Credits     int
}

// Patch lists optional changes; nil fields are left untouched. Lifecycle is
// deliberately absent: it only moves through Manager.Transition.
type Patch struct {
	Title       *string
	Description *string
	Semester    *string
	Year        *int
	Credits     *int
	SyllabusURL *string
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Semester == nil &&
		p.Year == nil && p.Credits == nil && p.SyllabusURL == nil
}

// Filter narrows List. Zero values mean no filter.
type Filter struct {
	Lifecycle  State
	LecturerID int64
	Search     string
	Limit      int
	Offset     int
}
