package coursework

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"academihub.org/internal/auth"
	"academihub.org/internal/course"
	"academihub.org/internal/notify"
	"academihub.org/internal/obs"
)

const (
	defaultMaxScore = 100
	upcomingLimit   = 10
	maxContentBytes = 64 << 10
)

type Courses interface {
	CourseByID(ctx context.Context, id int64) (course.Course, error)
}

type Service struct {
	store   Store
	courses Courses
	users   auth.UserLookup
	mailer  notify.Mailer
	now     func() time.Time
	log     *slog.Logger
}

type Option func(*Service)

// WithMailer enables grade notifications.
func WithMailer(m notify.Mailer) Option {
	return func(s *Service) { s.mailer = m }
}

func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewService(store Store, courses Courses, users auth.UserLookup, opts ...Option) *Service {
	s := &Service{
		store:   store,
		courses: courses,
		users:   users,
		now:     func() time.Time { return time.Now().UTC() },
		log:     obs.Logger().With("component", "coursework"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AssignmentInput is the create payload. MaxScore defaults to 100 and
// IsPublished to false.
type AssignmentInput struct {
	CourseID    int64
	Title       string
	Description string
	DueDate     time.Time
	MaxScore    *float64
	IsPublished *bool
}

func (s *Service) writableCourse(ctx context.Context, id int64) (course.Course, error) {
	c, err := s.courses.CourseByID(ctx, id)
	if err != nil {
		return course.Course{}, err
	}
	if c.Lifecycle == course.Archived {
		return course.Course{}, fmt.Errorf("%w: %s", course.ErrArchived, c.Code)
	}
	return c, nil
}

func validScore(v float64) bool { return v > 0 && v <= 1000 }

func (s *Service) CreateAssignment(ctx context.Context, who auth.Identity, in AssignmentInput) (Assignment, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Assignment{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.DueDate.IsZero() {
		return Assignment{}, fmt.Errorf("%w: due_date is required", ErrInvalidInput)
	}
	maxScore := float64(defaultMaxScore)
	if in.MaxScore != nil {
		maxScore = *in.MaxScore
	}
	if !validScore(maxScore) {
		return Assignment{}, fmt.Errorf("%w: max_score must be in (0, 1000]", ErrInvalidInput)
	}
	c, err := s.writableCourse(ctx, in.CourseID)
	if err != nil {
		return Assignment{}, err
	}
	a, err := s.store.CreateAssignment(ctx, NewAssignment{
		CourseID:    c.ID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		DueDate:     in.DueDate.UTC(),
		MaxScore:    maxScore,
		IsPublished: in.IsPublished != nil && *in.IsPublished,
		CreatedBy:   who.UserID,
	})
	if err != nil {
		return Assignment{}, err
	}
	a.CourseCode, a.CourseTitle = c.Code, c.Title
	return a, nil
}

// GetAssignment hides unpublished assignments and assignments of courses the
// student is not actively enrolled in.
func (s *Service) GetAssignment(ctx context.Context, who auth.Identity, id int64) (Assignment, error) {
	a, err := s.store.AssignmentByID(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if who.Role == auth.RoleStudent {
		if !a.IsPublished {
			return Assignment{}, ErrNotFound
		}
		ok, err := s.store.ActiveEnrollment(ctx, who.UserID, a.CourseID)
		if err != nil {
			return Assignment{}, err
		}
		if !ok {
			return Assignment{}, ErrNotFound
		}
	}
	return a, nil
}

func scopeAssignments(who auth.Identity, f AssignmentFilter) (AssignmentFilter, error) {
	switch who.Role {
	case auth.RoleStudent:
		f.EnrolledStudentID, f.LecturerID, f.PublishedOnly = who.UserID, 0, true
	case auth.RoleLecturer:
		f.LecturerID, f.EnrolledStudentID = who.UserID, 0
	case auth.RoleAdmin:
	default:
		return f, auth.ErrForbidden
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f, nil
}

// ListAssignments scopes by role: students see published work of courses they
// are actively enrolled in, lecturers their own courses, admins everything.
func (s *Service) ListAssignments(ctx context.Context, who auth.Identity, f AssignmentFilter) ([]Assignment, error) {
	f, err := scopeAssignments(who, f)
	if err != nil {
		return nil, err
	}
	return s.store.ListAssignments(ctx, f)
}

// Upcoming returns the next assignments due for the caller.
func (s *Service) Upcoming(ctx context.Context, who auth.Identity) ([]Assignment, error) {
	now := s.now()
	f, err := scopeAssignments(who, AssignmentFilter{DueAfter: &now})
	if err != nil {
		return nil, err
	}
	f.Limit = upcomingLimit
	return s.store.ListAssignments(ctx, f)
}

func (s *Service) UpdateAssignment(ctx context.Context, id int64, p AssignmentPatch) (Assignment, error) {
	if p.Empty() {
		return Assignment{}, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		if t == "" {
			return Assignment{}, fmt.Errorf("%w: title must not be blank", ErrInvalidInput)
		}
		p.Title = &t
	}
	if p.MaxScore != nil && !validScore(*p.MaxScore) {
		return Assignment{}, fmt.Errorf("%w: max_score must be in (0, 1000]", ErrInvalidInput)
	}
	if p.DueDate != nil {
		d := p.DueDate.UTC()
		p.DueDate = &d
	}
	current, err := s.store.AssignmentByID(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if _, err := s.writableCourse(ctx, current.CourseID); err != nil {
		return Assignment{}, err
	}
	return s.store.UpdateAssignment(ctx, id, p)
}

func (s *Service) DeleteAssignment(ctx context.Context, id int64) error {
	current, err := s.store.AssignmentByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.writableCourse(ctx, current.CourseID); err != nil {
		return err
	}
	return s.store.DeleteAssignment(ctx, id)
}

// SubmitInput is what a student hands in.
type SubmitInput struct {
	AssignmentID int64
	Content      string
	FilePath     *string
}

// Submit records the caller's single submission. Submissions after the due
// date are accepted and marked late.
func (s *Service) Submit(ctx context.Context, student auth.Identity, in SubmitInput) (Submission, error) {
	if student.Role != auth.RoleStudent {
		return Submission{}, fmt.Errorf("%w: only students submit", auth.ErrForbidden)
	}
	content := strings.TrimSpace(in.Content)
	if content == "" && in.FilePath == nil {
		return Submission{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if len(content) > maxContentBytes {
		return Submission{}, fmt.Errorf("%w: content exceeds %d bytes", ErrInvalidInput, maxContentBytes)
	}
	a, err := s.store.AssignmentByID(ctx, in.AssignmentID)
	if err != nil {
		return Submission{}, err
	}
	enrolled, err := s.store.ActiveEnrollment(ctx, student.UserID, a.CourseID)
	if err != nil {
		return Submission{}, err
	}
	if !enrolled {
		return Submission{}, fmt.Errorf("%w: not enrolled in the course", auth.ErrForbidden)
	}
	if !a.IsPublished {
		return Submission{}, ErrNotPublished
	}
	now := s.now()
	status := StatusSubmitted
	if now.After(a.DueDate) {
		status = StatusLate
	}
	sub, err := s.store.CreateSubmission(ctx, NewSubmission{
		AssignmentID: a.ID,
		StudentID:    student.UserID,
		Content:      content,
		FilePath:     in.FilePath,
		Status:       status,
		SubmittedAt:  now,
	})
	if err != nil {
		return Submission{}, err
	}
	sub.AssignmentTitle = a.Title
	return sub, nil
}

func (s *Service) GetSubmission(ctx context.Context, id int64) (Submission, error) {
	return s.store.SubmissionByID(ctx, id)
}

// ListSubmissions scopes by role like ListAssignments.
func (s *Service) ListSubmissions(ctx context.Context, who auth.Identity, f SubmissionFilter) ([]Submission, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, f.Status)
	}
	switch who.Role {
	case auth.RoleStudent:
		f.StudentID, f.LecturerID = who.UserID, 0
	case auth.RoleLecturer:
		f.LecturerID = who.UserID
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
	return s.store.ListSubmissions(ctx, f)
}

// Mine lists the caller's own submissions.
func (s *Service) Mine(ctx context.Context, student auth.Identity) ([]Submission, error) {
	return s.store.ListSubmissions(ctx, SubmissionFilter{StudentID: student.UserID, Limit: 200})
}

// Grade scores a submission and notifies the student. Regrading overwrites
// the previous score. A failed notification is logged, never returned.
func (s *Service) Grade(ctx context.Context, grader auth.Identity, id int64, score float64, feedback *string) (Submission, error) {
	sub, err := s.store.SubmissionByID(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	a, err := s.store.AssignmentByID(ctx, sub.AssignmentID)
	if err != nil {
		return Submission{}, err
	}
	if score < 0 || score > a.MaxScore {
		return Submission{}, fmt.Errorf("%w: score must be between 0 and %g", ErrInvalidInput, a.MaxScore)
	}
	if feedback != nil {
		f := strings.TrimSpace(*feedback)
		feedback = &f
	}
	graded, err := s.store.GradeSubmission(ctx, id, Grade{
		Score:    score,
		Feedback: feedback,
		GraderID: grader.UserID,
		At:       s.now(),
	})
	if err != nil {
		return Submission{}, err
	}
	graded.AssignmentTitle = a.Title
	s.notifyGraded(ctx, graded, a)
	return graded, nil
}

func (s *Service) notifyGraded(ctx context.Context, sub Submission, a Assignment) {
	if s.mailer == nil || s.users == nil {
		return
	}
	student, err := s.users.UserByID(ctx, sub.StudentID)
	if err != nil {
		if !errors.Is(err, auth.ErrNotFound) {
			s.log.WarnContext(ctx, "grade notice: student lookup", "submission_id", sub.ID, "err", err)
		}
		return
	}
	code := a.CourseCode
	if code == "" {
		if c, err := s.courses.CourseByID(ctx, a.CourseID); err == nil {
			code = c.Code
		}
	}
	in := notify.GradeInput{
		StudentEmail:    student.Email,
		StudentName:     student.Name,
		CourseCode:      code,
		AssignmentTitle: a.Title,
		MaxScore:        a.MaxScore,
	}
	if sub.Score != nil {
		in.Score = *sub.Score
	}
	if sub.Feedback != nil {
		in.Feedback = *sub.Feedback
	}
	if err := s.mailer.Send(ctx, notify.GradeMessage(in)); err != nil {
		s.log.WarnContext(ctx, "grade notice not sent", "submission_id", sub.ID, "err", err)
	}
}
