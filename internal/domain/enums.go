package domain

import "fmt"

// Role is the closed set of principal roles. It is resolved once per
// request by the auth layer and never re-derived from anything else.
type Role int

const (
	RoleAdmin Role = iota + 1
	RoleStaff
	RoleClient
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleStaff:
		return "staff"
	case RoleClient:
		return "client"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleClient:
		return true
	}
	return false
}

// ParseRole maps a stored role string to a Role. "user" is accepted as a
// legacy alias for staff.
func ParseRole(s string) (Role, error) {
	switch s {
	case "admin":
		return RoleAdmin, nil
	case "staff", "user":
		return RoleStaff, nil
	case "client":
		return RoleClient, nil
	}
	return 0, fmt.Errorf("unrecognized role %q", s)
}

// Action is a mutation or read kind passed through the gateway.
type Action int

const (
	ActionCreate Action = iota + 1
	ActionRead
	ActionList
	ActionUpdate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionRead:
		return "read"
	case ActionList:
		return "list"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// ResourceType identifies which aggregate an action targets.
type ResourceType int

const (
	ResourceClientAccount ResourceType = iota + 1
	ResourceProject
	ResourceSprint
	ResourceTask
	ResourceFile
	ResourceOrder
)

func (t ResourceType) String() string {
	switch t {
	case ResourceClientAccount:
		return "client_account"
	case ResourceProject:
		return "project"
	case ResourceSprint:
		return "sprint"
	case ResourceTask:
		return "task"
	case ResourceFile:
		return "file"
	case ResourceOrder:
		return "order"
	}
	return fmt.Sprintf("resource(%d)", int(t))
}

// Status enums keep their wire spellings; each has a Valid check and the
// lifecycle package owns which transitions between them are legal.

type ProjectStatus string

const (
	ProjectPending    ProjectStatus = "pending"
	ProjectInProgress ProjectStatus = "in-progress"
	ProjectOnHold     ProjectStatus = "on-hold"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPending, ProjectInProgress, ProjectOnHold, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

type SprintStatus string

const (
	SprintPending    SprintStatus = "pending"
	SprintInProgress SprintStatus = "in-progress"
	SprintDelayed    SprintStatus = "delayed"
	SprintFinished   SprintStatus = "finished"
)

func (s SprintStatus) Valid() bool {
	switch s {
	case SprintPending, SprintInProgress, SprintDelayed, SprintFinished:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in-progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskCancelled:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
