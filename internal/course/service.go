package course

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"academihub.org/internal/auth"
)

// Store persists courses.
type Store interface {
	TransitionStore
	CreateCourse(ctx context.Context, c NewCourse) (Course, error)
	CourseByID(ctx context.Context, id int64) (Course, error)
	ListCourses(ctx context.Context, f Filter) ([]Course, error)
	// UpdateCourse applies patch unless the course is archived, in which
	// case it returns ErrArchived.
	UpdateCourse(ctx context.Context, id int64, patch Patch) (Course, error)
}

// Service implements course CRUD. Lifecycle moves go through Manager.
type Service struct {
	store Store
	users auth.UserLookup
}

func NewService(store Store, users auth.UserLookup) *Service {
	return &Service{store: store, users: users}
}

// CreateInput is the course creation payload.
type CreateInput struct {
	Code        string
	Title       string
	Description string
	LecturerID  *int64
	Semester    *string
	Year        *int
	Credits     *int
}

const defaultCredits = 3

// Create inserts a Draft course. Lecturers own what they create; admins may
// assign any active lecturer or leave the course unassigned.
func (s *Service) Create(ctx context.Context, who auth.Identity, in CreateInput) (Course, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	title := strings.TrimSpace(in.Title)
	if code == "" || title == "" {
		return Course{}, fmt.Errorf("%w: code and title are required", ErrInvalidInput)
	}
	credits := defaultCredits
	if in.Credits != nil {
		credits = *in.Credits
	}
	if credits < 0 || credits > 30 {
		return Course{}, fmt.Errorf("%w: credits must be between 0 and 30", ErrInvalidInput)
	}
	if in.Year != nil && (*in.Year < 1900 || *in.Year > 2200) {
		return Course{}, fmt.Errorf("%w: year is out of range", ErrInvalidInput)
	}

	lecturer := in.LecturerID
	switch who.Role {
	case auth.RoleLecturer:
		self := who.UserID
		lecturer = &self
	case auth.RoleAdmin:
		if lecturer != nil {
			if err := s.checkLecturer(ctx, *lecturer); err != nil {
				return Course{}, err
			}
		}
	default:
		return Course{}, fmt.Errorf("%w: %s may not create courses", auth.ErrForbidden, who.Role)
	}

	return s.store.CreateCourse(ctx, NewCourse{
		Code:        code,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		LecturerID:  lecturer,
		Semester:    trimmed(in.Semester),
		Year:        in.Year,
		Credits:     credits,
	})
}

func (s *Service) checkLecturer(ctx context.Context, id int64) error {
	u, err := s.users.UserByID(ctx, id)
	if errors.Is(err, auth.ErrNotFound) {
		return fmt.Errorf("%w: lecturer %d does not exist", ErrInvalidInput, id)
	}
	if err != nil {
		return err
	}
	if u.Role != auth.RoleLecturer || !u.IsActive {
		return fmt.Errorf("%w: user %d is not an active lecturer", ErrInvalidInput, id)
	}
	return nil
}

// Get returns one course. Students only see published courses; anything
// else is reported as missing.
func (s *Service) Get(ctx context.Context, who auth.Identity, id int64) (Course, error) {
	c, err := s.store.CourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if who.Role == auth.RoleStudent && c.Lifecycle != Published {
		return Course{}, ErrNotFound
	}
	return c, nil
}

// List returns courses visible to who.
func (s *Service) List(ctx context.Context, who auth.Identity, f Filter) ([]Course, error) {
	if f.Lifecycle != "" && !f.Lifecycle.Valid() {
		return nil, fmt.Errorf("%w: unknown lifecycle %q", ErrInvalidInput, f.Lifecycle)
	}
	if who.Role == auth.RoleStudent {
		f.Lifecycle = Published
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Search = strings.TrimSpace(f.Search)
	return s.store.ListCourses(ctx, f)
}

// Update edits descriptive fields of a non-archived course.
func (s *Service) Update(ctx context.Context, id int64, p Patch) (Course, error) {
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		if t == "" {
			return Course{}, fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
		}
		p.Title = &t
	}
	if p.Credits != nil && (*p.Credits < 0 || *p.Credits > 30) {
		return Course{}, fmt.Errorf("%w: credits must be between 0 and 30", ErrInvalidInput)
	}
	if p.SyllabusURL != nil {
		raw := strings.TrimSpace(*p.SyllabusURL)
		if raw != "" {
			u, err := url.Parse(raw)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return Course{}, fmt.Errorf("%w: syllabus_url must be an http(s) URL", ErrInvalidInput)
			}
		}
		p.SyllabusURL = &raw
	}
	p.Semester = trimmed(p.Semester)
	if p.Empty() {
		return s.store.CourseByID(ctx, id)
	}
	return s.store.UpdateCourse(ctx, id, p)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
