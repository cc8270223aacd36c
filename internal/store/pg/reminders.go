package pg

import (
	"context"
	"time"

	"academihub.org/internal/notify"
)

var _ notify.ReminderStore = (*Store)(nil)

func (s *Store) DueReminders(ctx context.Context, now time.Time, window time.Duration) ([]notify.Reminder, error) {
	out := []notify.Reminder{}
	err := s.db.SelectContext(ctx, &out, `
		select a.id as assignment_id, u.id as student_id, u.email as student_email, u.name as student_name,
			a.title as assignment_title, c.code as course_code, a.due_date
		from assignments a
		join courses c on c.id = a.course_id
		join enrollments e on e.course_id = a.course_id and e.status = 'active'
		join users u on u.id = e.student_id and u.is_active
		where a.is_published
			and a.due_date > $1 and a.due_date <= $2
			and not exists (select 1 from submissions s where s.assignment_id = a.id and s.student_id = u.id)
			and not exists (select 1 from assignment_reminders r where r.assignment_id = a.id and r.student_id = u.id)
		order by a.due_date, u.id`, now, now.Add(window))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) MarkReminded(ctx context.Context, assignmentID, studentID int64, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		insert into assignment_reminders (assignment_id, student_id, sent_at)
		values ($1, $2, $3)
		on conflict (assignment_id, student_id) do nothing`, assignmentID, studentID, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
