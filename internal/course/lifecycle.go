package course

import (
	"context"
	"errors"
	"fmt"
)

// State is a course lifecycle state.
type State string

const (
	Draft         State = "DRAFT"
	PendingReview State = "PENDING_REVIEW"
	Published     State = "PUBLISHED"
	Archived      State = "ARCHIVED"
)

// States lists every state in display order.
var States = []State{Draft, PendingReview, Published, Archived}

// Valid reports whether s is an enumerated state.
func (s State) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Action is a lifecycle request token.
type Action string

const (
	ActionSubmitForReview Action = "submitForReview"
	ActionPublish         Action = "publish"
	ActionArchive         Action = "archive"
	ActionSaveDraft       Action = "saveDraft"
)

var actionTargets = map[Action]State{
	ActionSubmitForReview: PendingReview,
	ActionPublish:         Published,
	ActionArchive:         Archived,
	ActionSaveDraft:       Draft,
}

// transitions maps each state to the targets reachable from it. Archived is
// terminal and there are no self-loops.
var transitions = map[State][]State{
	Draft:         {PendingReview, Published},
	PendingReview: {Draft, Published},
	Published:     {Archived},
	Archived:      {},
}

// TargetOf maps an action token to its target state.
func TargetOf(action Action) (State, error) {
	to, ok := actionTargets[action]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	return to, nil
}

// CanTransition reports whether from -> to is in the table.
func CanTransition(from, to State) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Allowed returns the targets reachable from s.
func Allowed(s State) []State {
	out := make([]State, len(transitions[s]))
	copy(out, transitions[s])
	return out
}

// TransitionError reports a rejected move and matches ErrInvalidTransition.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move course from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// Next validates action against the current state and returns the target.
func Next(from State, action Action) (State, error) {
	to, err := TargetOf(action)
	if err != nil {
		return "", err
	}
	if !CanTransition(from, to) {
		return "", &TransitionError{From: from, To: to}
	}
	return to, nil
}

// TransitionStore runs one transition atomically: it loads the course inside
// a transaction, lets decide pick the target, and writes it conditionally on
// the loaded state. A missing course is ErrNotFound; a lost race is
// ErrConflict. When decide fails nothing is written.
type TransitionStore interface {
	TransitionCourse(ctx context.Context, id int64, decide func(current Course) (State, error)) (Course, error)
}

// Result describes one Transition call for observers.
type Result struct {
	CourseID int64
	Action   Action
	From     State
	To       State
	Course   Course
	Err      error
}

// Outcome is a short label for metrics.
func (r Result) Outcome() string {
	switch {
	case r.Err == nil:
		return "ok"
	case errors.Is(r.Err, ErrNotFound):
		return "not_found"
	case errors.Is(r.Err, ErrInvalidAction):
		return "invalid_action"
	case errors.Is(r.Err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(r.Err, ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

// Observer is notified after every Transition attempt.
type Observer func(ctx context.Context, r Result)

// Manager validates and executes lifecycle transitions.
type Manager struct {
	store     TransitionStore
	observers []Observer
}

func NewManager(store TransitionStore, observers ...Observer) *Manager {
	return &Manager{store: store, observers: observers}
}

// Transition moves course id according to action. The order of checks is:
// the course must exist, the action must be known, then the move must be in
// the transition table for the stored state.
func (m *Manager) Transition(ctx context.Context, id int64, action string) (Course, error) {
	res := Result{CourseID: id, Action: Action(action)}
	updated, err := m.store.TransitionCourse(ctx, id, func(current Course) (State, error) {
		res.From = current.Lifecycle
		to, err := Next(current.Lifecycle, Action(action))
		res.To = to
		if err != nil {
			var te *TransitionError
			if errors.As(err, &te) {
				res.To = te.To
			}
		}
		return to, err
	})
	res.Course, res.Err = updated, err
	for _, obs := range m.observers {
		obs(ctx, res)
	}
	if err != nil {
		return Course{}, err
	}
	return updated, nil
}
