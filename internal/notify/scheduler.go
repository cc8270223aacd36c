package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"academihub.org/internal/course"
	"academihub.org/internal/obs"
)

// Reminder is one (assignment, student) pair that still has no submission.
type Reminder struct {
	AssignmentID    int64     `db:"assignment_id"`
	StudentID       int64     `db:"student_id"`
	StudentEmail    string    `db:"student_email"`
	StudentName     string    `db:"student_name"`
	AssignmentTitle string    `db:"assignment_title"`
	CourseCode      string    `db:"course_code"`
	DueDate         time.Time `db:"due_date"`
}

// ReminderStore finds published assignments due in (now, now+window] with
// actively enrolled students who have neither submitted nor been reminded.
// MarkReminded returns false when the pair was already recorded.
type ReminderStore interface {
	DueReminders(ctx context.Context, now time.Time, window time.Duration) ([]Reminder, error)
	MarkReminded(ctx context.Context, assignmentID, studentID int64, at time.Time) (bool, error)
}

type CourseCounter interface {
	CourseCountsByLifecycle(ctx context.Context) (map[string]int, error)
}

type SchedulerConfig struct {
	ReminderSchedule string
	ReminderWindow   time.Duration
	GaugeSchedule    string
	// Timeout bounds a single job run.
	Timeout time.Duration
}

type Scheduler struct {
	cron      *cron.Cron
	mailer    Mailer
	reminders ReminderStore
	counts    CourseCounter
	cfg       SchedulerConfig
	log       *slog.Logger
	now       func() time.Time
}

func NewScheduler(mailer Mailer, reminders ReminderStore, counts CourseCounter, cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.ReminderWindow <= 0 {
		cfg.ReminderWindow = 24 * time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	s := &Scheduler{
		cron:      cron.New(),
		mailer:    mailer,
		reminders: reminders,
		counts:    counts,
		cfg:       cfg,
		log:       obs.Logger().With("component", "scheduler"),
		now:       func() time.Time { return time.Now().UTC() },
	}
	if cfg.ReminderSchedule != "" && reminders != nil && mailer != nil {
		if _, err := s.cron.AddFunc(cfg.ReminderSchedule, s.job("reminders", func(ctx context.Context) error {
			_, err := s.SendReminders(ctx)
			return err
		})); err != nil {
			return nil, fmt.Errorf("reminder schedule %q: %w", cfg.ReminderSchedule, err)
		}
	}
	if cfg.GaugeSchedule != "" && counts != nil {
		if _, err := s.cron.AddFunc(cfg.GaugeSchedule, s.job("gauges", s.RefreshGauges)); err != nil {
			return nil, fmt.Errorf("gauge schedule %q: %w", cfg.GaugeSchedule, err)
		}
	}
	return s, nil
}

func (s *Scheduler) job(name string, run func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
		defer cancel()
		started := time.Now()
		if err := run(ctx); err != nil {
			s.log.Error("job failed", "job", name, "err", err)
			obs.ReportError(ctx, err, map[string]any{"job": name})
			return
		}
		s.log.Debug("job done", "job", name, "duration_ms", time.Since(started).Milliseconds())
	}
}

// Start runs the cron loop in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", "entries", len(s.cron.Entries()))
}

// Stop prevents new runs and waits for running jobs or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// SendReminders mails every pending reminder once and returns how many were
// sent. A failed delivery is not recorded so it is retried on the next run.
func (s *Scheduler) SendReminders(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.reminders.DueReminders(ctx, now, s.cfg.ReminderWindow)
	if err != nil {
		return 0, fmt.Errorf("due reminders: %w", err)
	}
	sent := 0
	for _, r := range due {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := s.mailer.Send(ctx, ReminderMessage(r, now)); err != nil {
			s.log.Warn("reminder not sent", "assignment_id", r.AssignmentID, "student_id", r.StudentID, "err", err)
			continue
		}
		fresh, err := s.reminders.MarkReminded(ctx, r.AssignmentID, r.StudentID, now)
		if err != nil {
			return sent, fmt.Errorf("mark reminded: %w", err)
		}
		if fresh {
			sent++
		}
	}
	if sent > 0 {
		s.log.Info("reminders sent", "count", sent)
	}
	return sent, nil
}

// RefreshGauges republishes courses_by_lifecycle from the database.
func (s *Scheduler) RefreshGauges(ctx context.Context) error {
	counts, err := s.counts.CourseCountsByLifecycle(ctx)
	if err != nil {
		return fmt.Errorf("course counts: %w", err)
	}
	states := make([]string, len(course.States))
	for i, st := range course.States {
		states[i] = string(st)
	}
	obs.SetCourseCounts(states, counts)
	return nil
}
