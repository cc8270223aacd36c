package pg

import (
	"context"
	"time"

	"academihub.org/internal/stats"
)

var _ stats.Store = (*Store)(nil)

func (s *Store) UsersByRole(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryxContext(ctx, `select role, count(*) from users where is_active group by role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var role string
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		out[role] = n
	}
	return out, rows.Err()
}

func (s *Store) ActiveEnrollmentCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `select count(*) from enrollments where status = 'active'`)
	return n, err
}

func (s *Store) AwaitingGradingCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `select count(*) from submissions where status <> 'graded'`)
	return n, err
}

func (s *Store) LecturerOverview(ctx context.Context, lecturerID int64) (stats.LecturerOverview, error) {
	var out stats.LecturerOverview
	err := s.db.GetContext(ctx, &out, `
		select
			count(distinct c.id) as total_courses,
			count(distinct c.id) filter (where c.lifecycle = 'PUBLISHED') as published_courses,
			count(distinct e.student_id) filter (where e.status = 'active') as active_students,
			(select count(*) from submissions s
				join assignments a on a.id = s.assignment_id
				join courses c2 on c2.id = a.course_id
				where c2.lecturer_id = $1 and s.status <> 'graded') as ungraded_submissions
		from courses c
		left join enrollments e on e.course_id = c.id
		where c.lecturer_id = $1`, lecturerID)
	return out, wrapScan("lecturer overview", err)
}

func (s *Store) StudentOverview(ctx context.Context, studentID int64, now time.Time) (stats.StudentOverview, error) {
	var out stats.StudentOverview
	err := s.db.GetContext(ctx, &out, `
		select
			count(*) as total_courses,
			count(*) filter (where e.status = 'active') as active_courses,
			count(*) filter (where e.status = 'completed') as completed_courses,
			coalesce(avg(e.final_grade), 0)::float8 as average_grade,
			(select count(*) from assignments a
				join enrollments e2 on e2.course_id = a.course_id and e2.student_id = $1 and e2.status = 'active'
				where a.is_published and a.due_date > $2
				and not exists (select 1 from submissions s where s.assignment_id = a.id and s.student_id = $1)) as pending_assignments
		from enrollments e
		where e.student_id = $1`, studentID, now)
	return out, wrapScan("student overview", err)
}

// Activity merges the latest submissions and enrollments of a user.
func (s *Store) Activity(ctx context.Context, userID int64, limit int) ([]stats.ActivityItem, error) {
	out := []stats.ActivityItem{}
	err := s.db.SelectContext(ctx, &out, `
		(select s.id, 'submission' as type, 'Submitted ' || a.title as description, s.submitted_at as at
			from submissions s join assignments a on a.id = s.assignment_id
			where s.student_id = $1 order by s.submitted_at desc limit $2)
		union all
		(select e.id, 'enrollment' as type, 'Enrolled in ' || c.code as description, e.enrollment_date as at
			from enrollments e join courses c on c.id = e.course_id
			where e.student_id = $1 order by e.enrollment_date desc limit $2)
		order by at desc
		limit $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	return out, nil
}
