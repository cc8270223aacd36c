package pg

import (
	"context"

	"academihub.org/internal/enrollment"
)

var _ enrollment.Store = (*Store)(nil)

const enrollmentColumns = `id, student_id, course_id, status, final_grade, enrollment_date`

const enrollmentSelect = `select e.id, e.student_id, e.course_id, e.status, e.final_grade, e.enrollment_date, c.code as course_code, c.title as course_title, u.name as student_name, u.email as student_email from enrollments e join courses c on c.id = e.course_id join users u on u.id = e.student_id`

func (s *Store) CreateEnrollment(ctx context.Context, studentID, courseID int64) (enrollment.Enrollment, error) {
	var e enrollment.Enrollment
	err := s.db.GetContext(ctx, &e, `
		insert into enrollments (student_id, course_id, status)
		values ($1, $2, $3)
		returning `+enrollmentColumns,
		studentID, courseID, string(enrollment.StatusActive))
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return enrollment.Enrollment{}, enrollment.ErrConflict
		case isForeignKeyViolation(err):
			return enrollment.Enrollment{}, enrollment.ErrInvalidInput
		}
		return enrollment.Enrollment{}, invalidOnCheck(err, enrollment.ErrInvalidInput)
	}
	return e, nil
}

func (s *Store) EnrollmentByID(ctx context.Context, id int64) (enrollment.Enrollment, error) {
	var e enrollment.Enrollment
	if err := s.db.GetContext(ctx, &e, enrollmentSelect+` where e.id = $1`, id); err != nil {
		return enrollment.Enrollment{}, notFound(err, enrollment.ErrNotFound)
	}
	return e, nil
}

func (s *Store) ListEnrollments(ctx context.Context, f enrollment.Filter) ([]enrollment.Enrollment, error) {
	var w conds
	if f.StudentID != 0 {
		w.add("e.student_id = ?", f.StudentID)
	}
	if f.LecturerID != 0 {
		w.add("c.lecturer_id = ?", f.LecturerID)
	}
	if f.CourseID != 0 {
		w.add("e.course_id = ?", f.CourseID)
	}
	if f.Status != "" {
		w.add("e.status = ?", string(f.Status))
	}
	q := s.db.Rebind(enrollmentSelect + w.where() + ` order by e.enrollment_date desc, e.id desc` + page(f.Limit, f.Offset))
	out := []enrollment.Enrollment{}
	if err := s.db.SelectContext(ctx, &out, q, w.args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UpdateEnrollment(ctx context.Context, id int64, status enrollment.Status, finalGrade *float64) (enrollment.Enrollment, error) {
	var e enrollment.Enrollment
	err := s.db.GetContext(ctx, &e, `
		update enrollments set status = $1, final_grade = coalesce($2, final_grade)
		where id = $3
		returning `+enrollmentColumns, string(status), finalGrade, id)
	if err != nil {
		return enrollment.Enrollment{}, invalidOnCheck(notFound(err, enrollment.ErrNotFound), enrollment.ErrInvalidInput)
	}
	return e, nil
}

func (s *Store) DeleteEnrollment(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from enrollments where id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return enrollment.ErrNotFound
	}
	return nil
}
