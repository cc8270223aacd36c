package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"academihub.org/internal/course"
)

var _ course.Store = (*Store)(nil)

const courseColumns = `id, code, title, description, lecturer_id, semester, year, credits, syllabus_url, lifecycle, created_at, updated_at`

const courseSelect = `select c.id, c.code, c.title, c.description, c.lecturer_id, u.name as lecturer_name, c.semester, c.year, c.credits, c.syllabus_url, c.lifecycle, c.created_at, c.updated_at from courses c left join users u on u.id = c.lecturer_id`

func (s *Store) CreateCourse(ctx context.Context, nc course.NewCourse) (course.Course, error) {
	var c course.Course
	err := s.db.GetContext(ctx, &c, `
		insert into courses (code, title, description, lecturer_id, semester, year, credits, lifecycle)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning `+courseColumns,
		nc.Code, nc.Title, nc.Description, nc.LecturerID, nc.Semester, nc.Year, nc.Credits, string(course.Draft))
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return course.Course{}, course.ErrConflict
		case isForeignKeyViolation(err):
			return course.Course{}, course.ErrInvalidInput
		}
		return course.Course{}, invalidOnCheck(err, course.ErrInvalidInput)
	}
	return c, nil
}

func (s *Store) CourseByID(ctx context.Context, id int64) (course.Course, error) {
	var c course.Course
	if err := s.db.GetContext(ctx, &c, courseSelect+` where c.id = $1`, id); err != nil {
		return course.Course{}, notFound(err, course.ErrNotFound)
	}
	return c, nil
}

func (s *Store) ListCourses(ctx context.Context, f course.Filter) ([]course.Course, error) {
	var w conds
	if f.Lifecycle != "" {
		w.add("c.lifecycle = ?", string(f.Lifecycle))
	}
	if f.LecturerID != 0 {
		w.add("c.lecturer_id = ?", f.LecturerID)
	}
	if strings.TrimSpace(f.Search) != "" {
		p := likePattern(f.Search)
		w.add("(c.code ilike ? or c.title ilike ?)", p, p)
	}
	q := s.db.Rebind(courseSelect + w.where() + ` order by c.code` + page(f.Limit, f.Offset))
	out := []course.Course{}
	if err := s.db.SelectContext(ctx, &out, q, w.args...); err != nil {
		return nil, err
	}
	return out, nil
}

func lockCourse(ctx context.Context, tx *sqlx.Tx, id int64) (course.Course, error) {
	var c course.Course
	err := tx.GetContext(ctx, &c, `select `+courseColumns+` from courses where id = $1 for update`, id)
	if err != nil {
		return course.Course{}, notFound(err, course.ErrNotFound)
	}
	return c, nil
}

func (s *Store) UpdateCourse(ctx context.Context, id int64, p course.Patch) (course.Course, error) {
	var out course.Course
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := lockCourse(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.Lifecycle == course.Archived {
			return course.ErrArchived
		}
		if p.Empty() {
			out = current
			return nil
		}
		var up sets
		if p.Title != nil {
			up.set("title", *p.Title)
		}
		if p.Description != nil {
			up.set("description", *p.Description)
		}
		if p.Semester != nil {
			up.set("semester", *p.Semester)
		}
		if p.Year != nil {
			up.set("year", *p.Year)
		}
		if p.Credits != nil {
			up.set("credits", *p.Credits)
		}
		if p.SyllabusURL != nil {
			up.set("syllabus_url", *p.SyllabusURL)
		}
		args := append(up.args, id)
		q := tx.Rebind(`update courses set ` + up.sql() + `, updated_at = now() where id = ? returning ` + courseColumns)
		return tx.GetContext(ctx, &out, q, args...)
	})
	if err != nil {
		return course.Course{}, invalidOnCheck(err, course.ErrInvalidInput)
	}
	return out, nil
}

// TransitionCourse locks the row, asks decide for the target and writes it
// only if the lifecycle is still the one decide saw.
func (s *Store) TransitionCourse(ctx context.Context, id int64, decide func(course.Course) (course.State, error)) (course.Course, error) {
	var out course.Course
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := lockCourse(ctx, tx, id)
		if err != nil {
			return err
		}
		to, err := decide(current)
		if err != nil {
			return err
		}
		err = tx.GetContext(ctx, &out, `
			update courses set lifecycle = $1, updated_at = now()
			where id = $2 and lifecycle = $3
			returning `+courseColumns, string(to), id, string(current.Lifecycle))
		if errors.Is(err, sql.ErrNoRows) {
			return course.ErrConflict
		}
		return err
	})
	if err != nil {
		return course.Course{}, err
	}
	return out, nil
}

func (s *Store) CourseCountsByLifecycle(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryxContext(ctx, `select lifecycle, count(*) from courses group by lifecycle`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		out[state] = n
	}
	return out, rows.Err()
}
