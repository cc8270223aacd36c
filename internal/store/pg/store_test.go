package pg

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"academihub.org/internal/auth"
	"academihub.org/internal/course"
	"academihub.org/internal/coursework"
	"academihub.org/internal/enrollment"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		_ = db.Close()
	})
	return New(sqlx.NewDb(db, driverName)), mock
}

var ts = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

func courseRow(id int64, state course.State) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "code", "title", "description", "lecturer_id", "semester", "year", "credits", "syllabus_url", "lifecycle", "created_at", "updated_at"}).
		AddRow(id, "CS101", "Intro", "", int64(7), nil, nil, 3, nil, string(state), ts, ts)
}

func userRow(id int64, email string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "name", "password_hash", "role", "is_active", "last_login", "avatar_url", "google_id", "auth_provider", "email_verified", "created_at", "updated_at"}).
		AddRow(id, email, "Ada", "hash", "lecturer", true, nil, nil, nil, "email", false, ts, ts)
}

func TestUserByIDNotFound(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`from users where id = $1`)).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := s.UserByID(context.Background(), 42); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserByEmailScansRow(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`where lower(email) = lower($1)`)).
		WithArgs("ada@uni.edu").
		WillReturnRows(userRow(3, "ada@uni.edu"))

	u, err := s.UserByEmail(context.Background(), "ada@uni.edu")
	if err != nil {
		t.Fatalf("UserByEmail: %v", err)
	}
	if u.ID != 3 || u.Role != auth.RoleLecturer || u.PasswordHash == nil || *u.PasswordHash != "hash" {
		t.Fatalf("unexpected user %+v", u)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`insert into users`)).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	_, err := s.CreateUser(context.Background(), auth.NewUser{Email: "Ada@Uni.edu", Name: "Ada", Role: auth.RoleStudent})
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUpdateUserBuildsPartialSet(t *testing.T) {
	s, mock := newMock(t)
	active := false
	mock.ExpectQuery(regexp.QuoteMeta(`update users set is_active = $1, updated_at = now() where id = $2`)).
		WithArgs(false, int64(3)).
		WillReturnRows(userRow(3, "ada@uni.edu"))

	if _, err := s.UpdateUser(context.Background(), 3, auth.UserPatch{IsActive: &active}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
}

func TestListUsersFilters(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`from users where role = $1 and (name ilike $2 or email ilike $3) order by created_at desc, id desc limit 20 offset 0`)).
		WithArgs("student", "%50\\%%", "%50\\%%").
		WillReturnRows(userRow(3, "ada@uni.edu"))

	users, err := s.ListUsers(context.Background(), auth.UserFilter{Role: auth.RoleStudent, Search: "50%", Limit: 20})
	if err != nil || len(users) != 1 {
		t.Fatalf("ListUsers: %v %v", users, err)
	}
}

func TestTransitionCourseCommits(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`from courses where id = $1 for update`)).
		WithArgs(int64(1)).
		WillReturnRows(courseRow(1, course.Draft))
	mock.ExpectQuery(regexp.QuoteMeta(`update courses set lifecycle = $1, updated_at = now() where id = $2 and lifecycle = $3`)).
		WithArgs("PUBLISHED", int64(1), "DRAFT").
		WillReturnRows(courseRow(1, course.Published))
	mock.ExpectCommit()

	c, err := s.TransitionCourse(context.Background(), 1, func(cur course.Course) (course.State, error) {
		if cur.Lifecycle != course.Draft {
			t.Fatalf("decide saw %s", cur.Lifecycle)
		}
		return course.Published, nil
	})
	if err != nil {
		t.Fatalf("TransitionCourse: %v", err)
	}
	if c.Lifecycle != course.Published {
		t.Fatalf("expected PUBLISHED, got %s", c.Lifecycle)
	}
}

func TestTransitionCourseRejectedWritesNothing(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`for update`)).
		WithArgs(int64(1)).
		WillReturnRows(courseRow(1, course.Archived))
	mock.ExpectRollback()

	_, err := s.TransitionCourse(context.Background(), 1, func(cur course.Course) (course.State, error) {
		return course.Next(cur.Lifecycle, course.ActionPublish)
	})
	if !errors.Is(err, course.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTransitionCourseMissing(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`for update`)).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	called := false
	_, err := s.TransitionCourse(context.Background(), 9, func(course.Course) (course.State, error) {
		called = true
		return course.Published, nil
	})
	if !errors.Is(err, course.ErrNotFound) || called {
		t.Fatalf("expected ErrNotFound without decide, got %v called=%v", err, called)
	}
}

func TestTransitionCourseLostRace(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`for update`)).
		WithArgs(int64(1)).
		WillReturnRows(courseRow(1, course.PendingReview))
	mock.ExpectQuery(regexp.QuoteMeta(`update courses set lifecycle`)).
		WithArgs("PUBLISHED", int64(1), "PENDING_REVIEW").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := s.TransitionCourse(context.Background(), 1, func(course.Course) (course.State, error) {
		return course.Published, nil
	})
	if !errors.Is(err, course.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUpdateCourseArchivedIsReadOnly(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`for update`)).
		WithArgs(int64(1)).
		WillReturnRows(courseRow(1, course.Archived))
	mock.ExpectRollback()

	title := "New"
	if _, err := s.UpdateCourse(context.Background(), 1, course.Patch{Title: &title}); !errors.Is(err, course.ErrArchived) {
		t.Fatalf("expected ErrArchived, got %v", err)
	}
}

func TestUpdateCourseCreditsOutOfRange(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`for update`)).
		WithArgs(int64(1)).
		WillReturnRows(courseRow(1, course.Draft))
	mock.ExpectQuery(regexp.QuoteMeta(`update courses set credits = $1`)).
		WithArgs(99, int64(1)).
		WillReturnError(&pgconn.PgError{Code: pgErrCheckViolation, ConstraintName: "courses_credits_check"})
	mock.ExpectRollback()

	credits := 99
	_, err := s.UpdateCourse(context.Background(), 1, course.Patch{Credits: &credits})
	if !errors.Is(err, course.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestListCoursesFilters(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`where c.lifecycle = $1 and c.lecturer_id = $2 order by c.code limit 50 offset 10`)).
		WithArgs("PUBLISHED", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "lifecycle"}).AddRow(int64(1), "CS101", "PUBLISHED"))

	out, err := s.ListCourses(context.Background(), course.Filter{Lifecycle: course.Published, LecturerID: 7, Limit: 50, Offset: 10})
	if err != nil || len(out) != 1 || out[0].Code != "CS101" {
		t.Fatalf("ListCourses: %v %v", out, err)
	}
}

func TestCreateEnrollmentDuplicate(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`insert into enrollments`)).
		WithArgs(int64(10), int64(1), "active").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	if _, err := s.CreateEnrollment(context.Background(), 10, 1); !errors.Is(err, enrollment.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUpdateEnrollmentGradeOutOfRange(t *testing.T) {
	s, mock := newMock(t)
	grade := 140.0
	mock.ExpectQuery(regexp.QuoteMeta(`update enrollments set status = $1`)).
		WithArgs("completed", &grade, int64(3)).
		WillReturnError(&pgconn.PgError{Code: pgErrCheckViolation, ConstraintName: "enrollments_final_grade_check"})

	_, err := s.UpdateEnrollment(context.Background(), 3, enrollment.StatusCompleted, &grade)
	if !errors.Is(err, enrollment.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGradeSubmissionNegativeScore(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`update submissions set score = $1`)).
		WillReturnError(&pgconn.PgError{Code: pgErrCheckViolation})

	_, err := s.GradeSubmission(context.Background(), 4, coursework.Grade{Score: -1, GraderID: 7, At: ts})
	if !errors.Is(err, coursework.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDeleteEnrollmentMissing(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`delete from enrollments where id = $1`)).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.DeleteEnrollment(context.Background(), 5); !errors.Is(err, enrollment.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateSubmissionDuplicate(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`insert into submissions`)).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	_, err := s.CreateSubmission(context.Background(), coursework.NewSubmission{AssignmentID: 1, StudentID: 10, Content: "x", Status: coursework.StatusSubmitted, SubmittedAt: ts})
	if !errors.Is(err, coursework.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestListAssignmentsForStudent(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`e.student_id = $1 and e.status = 'active') and a.is_published and a.due_date > $2 order by a.due_date, a.id limit 10 offset 0`)).
		WithArgs(int64(10), ts).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "title"}).AddRow(int64(4), int64(1), "Lab"))

	out, err := s.ListAssignments(context.Background(), coursework.AssignmentFilter{EnrolledStudentID: 10, PublishedOnly: true, DueAfter: &ts, Limit: 10})
	if err != nil || len(out) != 1 {
		t.Fatalf("ListAssignments: %v %v", out, err)
	}
}

func TestMarkRemindedOnce(t *testing.T) {
	s, mock := newMock(t)
	q := regexp.QuoteMeta(`on conflict (assignment_id, student_id) do nothing`)
	mock.ExpectExec(q).WithArgs(int64(1), int64(10), ts).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(int64(1), int64(10), ts).WillReturnResult(sqlmock.NewResult(0, 0))

	first, err := s.MarkReminded(context.Background(), 1, 10, ts)
	if err != nil || !first {
		t.Fatalf("first mark: %v %v", first, err)
	}
	again, err := s.MarkReminded(context.Background(), 1, 10, ts)
	if err != nil || again {
		t.Fatalf("second mark: %v %v", again, err)
	}
}

func TestOwnershipResolversAreRoleAware(t *testing.T) {
	s, mock := newMock(t)
	res := s.Resolvers()
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`select exists (select 1 from enrollments where id = $1 and student_id = $2)`)).
		WithArgs(int64(3), int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta(`join courses c on c.id = e.course_id where e.id = $1 and c.lecturer_id = $2`)).
		WithArgs(int64(3), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := res[auth.ResourceEnrollments](ctx, auth.Identity{UserID: 10, Role: auth.RoleStudent}, 3)
	if err != nil || !ok {
		t.Fatalf("student owner: %v %v", ok, err)
	}
	ok, err = res[auth.ResourceEnrollments](ctx, auth.Identity{UserID: 7, Role: auth.RoleLecturer}, 3)
	if err != nil || ok {
		t.Fatalf("lecturer non-owner: %v %v", ok, err)
	}
	if ok, _ := res[auth.ResourceStats](ctx, auth.Identity{UserID: 7}, 7); !ok {
		t.Fatalf("stats self must be owned")
	}
}

func TestCourseCountsByLifecycle(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`select lifecycle, count(*) from courses group by lifecycle`)).
		WillReturnRows(sqlmock.NewRows([]string{"lifecycle", "count"}).AddRow("DRAFT", 2).AddRow("PUBLISHED", 5))

	counts, err := s.CourseCountsByLifecycle(context.Background())
	if err != nil || counts["PUBLISHED"] != 5 || counts["DRAFT"] != 2 {
		t.Fatalf("counts: %v %v", counts, err)
	}
}
