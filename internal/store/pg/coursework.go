package pg

import (
	"context"

	"academihub.org/internal/coursework"
)

var _ coursework.Store = (*Store)(nil)

const assignmentColumns = `id, course_id, title, description, due_date, max_score, is_published, created_by, created_at, updated_at`

const assignmentSelect = `select a.id, a.course_id, a.title, a.description, a.due_date, a.max_score, a.is_published, a.created_by, a.created_at, a.updated_at, c.code as course_code, c.title as course_title from assignments a join courses c on c.id = a.course_id`

const submissionColumns = `id, assignment_id, student_id, submission_text, file_path, submitted_at, status, score, feedback, graded_at, graded_by`

const submissionSelect = `select s.id, s.assignment_id, s.student_id, s.submission_text, s.file_path, s.submitted_at, s.status, s.score, s.feedback, s.graded_at, s.graded_by, a.title as assignment_title, u.name as student_name, u.email as student_email from submissions s join assignments a on a.id = s.assignment_id join users u on u.id = s.student_id`

func (s *Store) CreateAssignment(ctx context.Context, na coursework.NewAssignment) (coursework.Assignment, error) {
	var createdBy *int64
	if na.CreatedBy != 0 {
		createdBy = &na.CreatedBy
	}
	var a coursework.Assignment
	err := s.db.GetContext(ctx, &a, `
		insert into assignments (course_id, title, description, due_date, max_score, is_published, created_by)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning `+assignmentColumns,
		na.CourseID, na.Title, na.Description, na.DueDate, na.MaxScore, na.IsPublished, createdBy)
	if err != nil {
		if isForeignKeyViolation(err) {
			return coursework.Assignment{}, coursework.ErrInvalidInput
		}
		return coursework.Assignment{}, invalidOnCheck(err, coursework.ErrInvalidInput)
	}
	return a, nil
}

func (s *Store) AssignmentByID(ctx context.Context, id int64) (coursework.Assignment, error) {
	var a coursework.Assignment
	if err := s.db.GetContext(ctx, &a, assignmentSelect+` where a.id = $1`, id); err != nil {
		return coursework.Assignment{}, invalidOnCheck(notFound(err, coursework.ErrNotFound), coursework.ErrInvalidInput)
	}
	return a, nil
}

func (s *Store) ListAssignments(ctx context.Context, f coursework.AssignmentFilter) ([]coursework.Assignment, error) {
	var w conds
	if f.CourseID != 0 {
		w.add("a.course_id = ?", f.CourseID)
	}
	if f.LecturerID != 0 {
		w.add("c.lecturer_id = ?", f.LecturerID)
	}
	if f.EnrolledStudentID != 0 {
		w.add("exists (select 1 from enrollments e where e.course_id = a.course_id and e.student_id = ? and e.status = 'active')", f.EnrolledStudentID)
	}
	if f.PublishedOnly {
		w.add("a.is_published")
	}
	if f.DueAfter != nil {
		w.add("a.due_date > ?", *f.DueAfter)
	}
	q := s.db.Rebind(assignmentSelect + w.where() + ` order by a.due_date, a.id` + page(f.Limit, f.Offset))
	out := []coursework.Assignment{}
	if err := s.db.SelectContext(ctx, &out, q, w.args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UpdateAssignment(ctx context.Context, id int64, p coursework.AssignmentPatch) (coursework.Assignment, error) {
	if p.Empty() {
		return s.AssignmentByID(ctx, id)
	}
	var up sets
	if p.Title != nil {
		up.set("title", *p.Title)
	}
	if p.Description != nil {
		up.set("description", *p.Description)
	}
	if p.DueDate != nil {
		up.set("due_date", *p.DueDate)
	}
	if p.MaxScore != nil {
		up.set("max_score", *p.MaxScore)
	}
	if p.IsPublished != nil {
		up.set("is_published", *p.IsPublished)
	}
	args := append(up.args, id)
	q := s.db.Rebind(`update assignments set ` + up.sql() + `, updated_at = now() where id = ? returning ` + assignmentColumns)
	var a coursework.Assignment
	if err := s.db.GetContext(ctx, &a, q, args...); err != nil {
		return coursework.Assignment{}, notFound(err, coursework.ErrNotFound)
	}
	return a, nil
}

func (s *Store) DeleteAssignment(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from assignments where id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return coursework.ErrNotFound
	}
	return nil
}

func (s *Store) CreateSubmission(ctx context.Context, ns coursework.NewSubmission) (coursework.Submission, error) {
	var sub coursework.Submission
	err := s.db.GetContext(ctx, &sub, `
		insert into submissions (assignment_id, student_id, submission_text, file_path, status, submitted_at)
		values ($1, $2, $3, $4, $5, $6)
		returning `+submissionColumns,
		ns.AssignmentID, ns.StudentID, ns.Content, ns.FilePath, string(ns.Status), ns.SubmittedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return coursework.Submission{}, coursework.ErrConflict
		}
		return coursework.Submission{}, invalidOnCheck(err, coursework.ErrInvalidInput)
	}
	return sub, nil
}

func (s *Store) SubmissionByID(ctx context.Context, id int64) (coursework.Submission, error) {
	var sub coursework.Submission
	if err := s.db.GetContext(ctx, &sub, submissionSelect+` where s.id = $1`, id); err != nil {
		return coursework.Submission{}, invalidOnCheck(notFound(err, coursework.ErrSubmissionNotFound), coursework.ErrInvalidInput)
	}
	return sub, nil
}

func (s *Store) ListSubmissions(ctx context.Context, f coursework.SubmissionFilter) ([]coursework.Submission, error) {
	var w conds
	if f.AssignmentID != 0 {
		w.add("s.assignment_id = ?", f.AssignmentID)
	}
	if f.StudentID != 0 {
		w.add("s.student_id = ?", f.StudentID)
	}
	if f.LecturerID != 0 {
		w.add("exists (select 1 from courses c where c.id = a.course_id and c.lecturer_id = ?)", f.LecturerID)
	}
	if f.Status != "" {
		w.add("s.status = ?", string(f.Status))
	}
	q := s.db.Rebind(submissionSelect + w.where() + ` order by s.submitted_at desc, s.id desc` + page(f.Limit, f.Offset))
	out := []coursework.Submission{}
	if err := s.db.SelectContext(ctx, &out, q, w.args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GradeSubmission(ctx context.Context, id int64, g coursework.Grade) (coursework.Submission, error) {
	var sub coursework.Submission
	err := s.db.GetContext(ctx, &sub, `
		update submissions set score = $1, feedback = $2, graded_at = $3, graded_by = $4, status = $5
		where id = $6
		returning `+submissionColumns,
		g.Score, g.Feedback, g.At, g.GraderID, string(coursework.StatusGraded), id)
	if err != nil {
		return coursework.Submission{}, notFound(err, coursework.ErrSubmissionNotFound)
	}
	return sub, nil
}

func (s *Store) ActiveEnrollment(ctx context.Context, studentID, courseID int64) (bool, error) {
	var ok bool
	err := s.db.GetContext(ctx, &ok, `
		select exists (select 1 from enrollments where student_id = $1 and course_id = $2 and status = 'active')`,
		studentID, courseID)
	return ok, err
}
