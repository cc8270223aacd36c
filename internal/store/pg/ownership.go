package pg

import (
	"context"

	"academihub.org/internal/auth"
)

// Resolvers returns the ownership rules used by auth.Authorizer. Each query
// answers "does who own row id" for the caller's role; unknown ids are not
// owned, so the caller gets Forbidden rather than learning existence.
func (s *Store) Resolvers() map[auth.Resource]auth.OwnershipResolver {
	return map[auth.Resource]auth.OwnershipResolver{
		auth.ResourceCourses:     s.ownsCourse,
		auth.ResourceEnrollments: s.ownsEnrollment,
		auth.ResourceAssignments: s.ownsAssignment,
		auth.ResourceSubmissions: s.ownsSubmission,
		auth.ResourceStats: func(_ context.Context, who auth.Identity, id int64) (bool, error) {
			return who.UserID == id, nil
		},
	}
}

func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	err := s.db.GetContext(ctx, &ok, `select exists (`+query+`)`, args...)
	return ok, err
}

func (s *Store) ownsCourse(ctx context.Context, who auth.Identity, id int64) (bool, error) {
	return s.exists(ctx, `select 1 from courses where id = $1 and lecturer_id = $2`, id, who.UserID)
}

func (s *Store) ownsEnrollment(ctx context.Context, who auth.Identity, id int64) (bool, error) {
	if who.Role == auth.RoleStudent {
		return s.exists(ctx, `select 1 from enrollments where id = $1 and student_id = $2`, id, who.UserID)
	}
	return s.exists(ctx, `select 1 from enrollments e join courses c on c.id = e.course_id where e.id = $1 and c.lecturer_id = $2`, id, who.UserID)
}

func (s *Store) ownsAssignment(ctx context.Context, who auth.Identity, id int64) (bool, error) {
	return s.exists(ctx, `select 1 from assignments a join courses c on c.id = a.course_id where a.id = $1 and c.lecturer_id = $2`, id, who.UserID)
}

func (s *Store) ownsSubmission(ctx context.Context, who auth.Identity, id int64) (bool, error) {
	if who.Role == auth.RoleStudent {
		return s.exists(ctx, `select 1 from submissions where id = $1 and student_id = $2`, id, who.UserID)
	}
	return s.exists(ctx, `select 1 from submissions s join assignments a on a.id = s.assignment_id join courses c on c.id = a.course_id where s.id = $1 and c.lecturer_id = $2`, id, who.UserID)
}
