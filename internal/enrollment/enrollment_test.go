package enrollment

import (
	"context"
	"errors"
	"testing"

	"academihub.org/internal/auth"
	"academihub.org/internal/course"
)

type coursesFunc func(context.Context, int64) (course.Course, error)

func (f coursesFunc) CourseByID(ctx context.Context, id int64) (course.Course, error) { return f(ctx, id) }

type recordingStore struct {
	pairs   map[[2]int64]bool
	filters []Filter
	updates []Status
}

func (s *recordingStore) CreateEnrollment(_ context.Context, studentID, courseID int64) (Enrollment, error) {
	if s.pairs == nil {
		s.pairs = map[[2]int64]bool{}
	}
	key := [2]int64{studentID, courseID}
	if s.pairs[key] {
		return Enrollment{}, ErrConflict
	}
	s.pairs[key] = true
	return Enrollment{ID: int64(len(s.pairs)), StudentID: studentID, CourseID: courseID, Status: StatusActive}, nil
}

func (s *recordingStore) EnrollmentByID(context.Context, int64) (Enrollment, error) {
	return Enrollment{}, ErrNotFound
}

func (s *recordingStore) ListEnrollments(_ context.Context, f Filter) ([]Enrollment, error) {
	s.filters = append(s.filters, f)
	return nil, nil
}

func (s *recordingStore) UpdateEnrollment(_ context.Context, id int64, st Status, _ *float64) (Enrollment, error) {
	s.updates = append(s.updates, st)
	return Enrollment{ID: id, Status: st}, nil
}

func (s *recordingStore) DeleteEnrollment(context.Context, int64) error { return nil }

func catalog() coursesFunc {
	return func(_ context.Context, id int64) (course.Course, error) {
		switch id {
		case 1:
			return course.Course{ID: 1, Code: "CS101", Lifecycle: course.Published}, nil
		case 2:
			return course.Course{ID: 2, Code: "CS102", Lifecycle: course.Draft}, nil
		case 3:
			return course.Course{ID: 3, Code: "CS103", Lifecycle: course.Archived}, nil
		}
		return course.Course{}, course.ErrNotFound
	}
}

func TestEnroll(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&recordingStore{}, catalog())
	student := auth.Identity{UserID: 10, Role: auth.RoleStudent}

	e, err := svc.Enroll(ctx, student, 1)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if e.Status != StatusActive || e.CourseCode != "CS101" {
		t.Fatalf("unexpected enrollment %+v", e)
	}
	if _, err := svc.Enroll(ctx, student, 1); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate: expected conflict, got %v", err)
	}
	for _, id := range []int64{2, 3} {
		if _, err := svc.Enroll(ctx, student, id); !errors.Is(err, ErrCourseNotOpen) {
			t.Fatalf("course %d: expected not open, got %v", id, err)
		}
	}
	if _, err := svc.Enroll(ctx, student, 404); !errors.Is(err, course.ErrNotFound) {
		t.Fatalf("missing course: expected not found, got %v", err)
	}
	if _, err := svc.Enroll(ctx, auth.Identity{UserID: 1, Role: auth.RoleLecturer}, 1); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("lecturer enroll: expected forbidden, got %v", err)
	}
}

func TestListScopesByRole(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{}
	svc := NewService(store, catalog())

	_, _ = svc.List(ctx, auth.Identity{UserID: 10, Role: auth.RoleStudent}, Filter{StudentID: 99, LecturerID: 5})
	_, _ = svc.List(ctx, auth.Identity{UserID: 5, Role: auth.RoleLecturer}, Filter{StudentID: 99})
	_, _ = svc.List(ctx, auth.Identity{UserID: 1, Role: auth.RoleAdmin}, Filter{CourseID: 7, Status: StatusDropped})

	if f := store.filters[0]; f.StudentID != 10 || f.LecturerID != 0 {
		t.Fatalf("student scope not applied: %+v", f)
	}
	if f := store.filters[1]; f.LecturerID != 5 || f.StudentID != 0 {
		t.Fatalf("lecturer scope not applied: %+v", f)
	}
	if f := store.filters[2]; f.CourseID != 7 || f.Status != StatusDropped || f.StudentID != 0 || f.LecturerID != 0 {
		t.Fatalf("admin filter altered: %+v", f)
	}
	if _, err := svc.List(ctx, auth.Identity{UserID: 1, Role: auth.RoleAdmin}, Filter{Status: "pending"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid status, got %v", err)
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{}
	svc := NewService(store, catalog())

	grade := 101.0
	if _, err := svc.UpdateStatus(ctx, 1, StatusCompleted, &grade); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected grade range error, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, 1, "approved", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected status error, got %v", err)
	}
	grade = 88.5
	e, err := svc.UpdateStatus(ctx, 1, StatusCompleted, &grade)
	if err != nil || e.Status != StatusCompleted {
		t.Fatalf("UpdateStatus: %+v %v", e, err)
	}
}
