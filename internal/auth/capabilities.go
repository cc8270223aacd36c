package auth

import (
	"sort"
	"strings"
)

// Resource names a protected entity type.
type Resource string

const (
	ResourceCourses     Resource = "courses"
	ResourceEnrollments Resource = "enrollments"
	ResourceAssignments Resource = "assignments"
	ResourceSubmissions Resource = "submissions"
	ResourceUsers       Resource = "users"
	ResourceStats       Resource = "stats"
)

// Action is a capability verb. Actions ending in "_own" are scoped to
// records the caller owns.
type Action string

const (
	ActionCreate     Action = "create"
	ActionRead       Action = "read"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionTransition Action = "transition"
	ActionGrade      Action = "grade"

	ActionCreateOwn     Action = "create_own"
	ActionReadOwn       Action = "read_own"
	ActionUpdateOwn     Action = "update_own"
	ActionDeleteOwn     Action = "delete_own"
	ActionTransitionOwn Action = "transition_own"
	ActionGradeOwn      Action = "grade_own"
)

const ownSuffix = "_own"

// Owned reports whether a requires an ownership check.
func (a Action) Owned() bool { return strings.HasSuffix(string(a), ownSuffix) }

// Scoped returns the ownership-scoped variant of a.
func (a Action) Scoped() Action {
	if a.Owned() {
		return a
	}
	return a + ownSuffix
}

type grants map[Resource][]Action

// capabilityTable is the source of truth. It is compiled once into
// capabilities and never mutated afterwards.
var capabilityTable = map[Role]grants{
	RoleStudent: {
		ResourceCourses:     {ActionRead},
		ResourceEnrollments: {ActionCreate, ActionReadOwn, ActionDeleteOwn},
		ResourceAssignments: {ActionRead},
		ResourceSubmissions: {ActionCreateOwn, ActionReadOwn},
		ResourceStats:       {ActionReadOwn},
	},
	RoleLecturer: {
		ResourceCourses:     {ActionCreate, ActionRead, ActionUpdateOwn, ActionTransitionOwn},
		ResourceEnrollments: {ActionReadOwn, ActionUpdateOwn},
		ResourceAssignments: {ActionCreateOwn, ActionRead, ActionUpdateOwn, ActionDeleteOwn},
		ResourceSubmissions: {ActionReadOwn, ActionGradeOwn},
		ResourceStats:       {ActionReadOwn},
	},
	RoleAdmin: {
		ResourceCourses:     {ActionCreate, ActionRead, ActionUpdate, ActionTransition},
		ResourceEnrollments: {ActionRead, ActionUpdate, ActionDelete},
		ResourceAssignments: {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
		ResourceSubmissions: {ActionRead, ActionGrade},
		ResourceUsers:       {ActionCreate, ActionRead, ActionUpdate},
		ResourceStats:       {ActionRead},
	},
}

var capabilities = compile(capabilityTable)

func compile(table map[Role]grants) map[Role]map[Resource]map[Action]struct{} {
	out := make(map[Role]map[Resource]map[Action]struct{}, len(table))
	for role, byResource := range table {
		out[role] = make(map[Resource]map[Action]struct{}, len(byResource))
		for res, actions := range byResource {
			set := make(map[Action]struct{}, len(actions))
			for _, a := range actions {
				set[a] = struct{}{}
			}
			out[role][res] = set
		}
	}
	return out
}

// Can reports whether role holds action on resource, without any ownership
// consideration.
func Can(role Role, res Resource, action Action) bool {
	_, ok := capabilities[role][res][action]
	return ok
}

// Capabilities returns a copy of the grants for role, sorted for display.
func Capabilities(role Role) map[Resource][]Action {
	byResource := capabilities[role]
	out := make(map[Resource][]Action, len(byResource))
	for res, set := range byResource {
		actions := make([]Action, 0, len(set))
		for a := range set {
			actions = append(actions, a)
		}
		sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
		out[res] = actions
	}
	return out
}
