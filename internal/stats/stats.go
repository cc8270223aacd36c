// Package stats aggregates dashboard figures per role.
package stats

import (
	"context"
	"fmt"
	"time"

	"academihub.org/internal/auth"
)

type AdminOverview struct {
	UsersByRole        map[string]int `json:"users_by_role"`
	CoursesByLifecycle map[string]int `json:"courses_by_lifecycle"`
	ActiveEnrollments  int            `json:"active_enrollments"`
	AwaitingGrading    int            `json:"submissions_awaiting_grading"`
}

type LecturerOverview struct {
	Courses          int `json:"total_courses" db:"total_courses"`
	PublishedCourses int `json:"published_courses" db:"published_courses"`
	ActiveStudents   int `json:"active_students" db:"active_students"`
	UngradedWork     int `json:"ungraded_submissions" db:"ungraded_submissions"`
}

type StudentOverview struct {
	TotalEnrollments     int     `json:"total_courses" db:"total_courses"`
	ActiveEnrollments    int     `json:"active_courses" db:"active_courses"`
	CompletedEnrollments int     `json:"completed_courses" db:"completed_courses"`
	AverageGrade         float64 `json:"average_grade" db:"average_grade"`
	PendingAssignments   int     `json:"pending_assignments" db:"pending_assignments"`
}

// ActivityItem is one row of the recent-activity feed.
type ActivityItem struct {
	ID          int64     `json:"id" db:"id"`
	Type        string    `json:"type" db:"type"`
	Description string    `json:"description" db:"description"`
	At          time.Time `json:"timestamp" db:"at"`
}

type Store interface {
	UsersByRole(ctx context.Context) (map[string]int, error)
	CourseCountsByLifecycle(ctx context.Context) (map[string]int, error)
	ActiveEnrollmentCount(ctx context.Context) (int, error)
	AwaitingGradingCount(ctx context.Context) (int, error)
	LecturerOverview(ctx context.Context, lecturerID int64) (LecturerOverview, error)
	StudentOverview(ctx context.Context, studentID int64, now time.Time) (StudentOverview, error)
	Activity(ctx context.Context, userID int64, limit int) ([]ActivityItem, error)
}

const (
	defaultActivity = 5
	maxActivity     = 50
)

type Service struct {
	store Store
	users auth.UserLookup
	now   func() time.Time
}

func NewService(store Store, users auth.UserLookup) *Service {
	return &Service{store: store, users: users, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) AdminOverview(ctx context.Context) (AdminOverview, error) {
	var out AdminOverview
	var err error
	if out.UsersByRole, err = s.store.UsersByRole(ctx); err != nil {
		return out, fmt.Errorf("users by role: %w", err)
	}
	if out.CoursesByLifecycle, err = s.store.CourseCountsByLifecycle(ctx); err != nil {
		return out, fmt.Errorf("courses by lifecycle: %w", err)
	}
	if out.ActiveEnrollments, err = s.store.ActiveEnrollmentCount(ctx); err != nil {
		return out, fmt.Errorf("active enrollments: %w", err)
	}
	if out.AwaitingGrading, err = s.store.AwaitingGradingCount(ctx); err != nil {
		return out, fmt.Errorf("awaiting grading: %w", err)
	}
	return out, nil
}

func selfOrAdmin(who auth.Identity, userID int64) error {
	if who.IsAdmin() || who.UserID == userID {
		return nil
	}
	return auth.ErrForbidden
}

// ForUser returns the overview matching the target user's role. Only the user
// or an admin may read it.
func (s *Service) ForUser(ctx context.Context, who auth.Identity, userID int64) (any, error) {
	if err := selfOrAdmin(who, userID); err != nil {
		return nil, err
	}
	role := who.Role
	if userID != who.UserID {
		u, err := s.users.UserByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		role = u.Role
	}
	switch role {
	case auth.RoleAdmin:
		return s.AdminOverview(ctx)
	case auth.RoleLecturer:
		return s.store.LecturerOverview(ctx, userID)
	default:
		return s.store.StudentOverview(ctx, userID, s.now())
	}
}

// Activity returns the user's latest submissions and enrollments, newest
// first.
func (s *Service) Activity(ctx context.Context, who auth.Identity, userID int64, limit int) ([]ActivityItem, error) {
	if err := selfOrAdmin(who, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultActivity
	}
	if limit > maxActivity {
		limit = maxActivity
	}
	items, err := s.store.Activity(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []ActivityItem{}
	}
	return items, nil
}
