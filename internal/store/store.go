// Package store defines the persistence contract the gateway writes
// through, plus its Postgres and in-memory implementations. Every update
// carries a revision check; a failed check surfaces as domain.ErrConflict
// so callers can re-fetch and retry.
package store

import (
	"context"

	"github.com/atelierhq/portal-backend/internal/access"
	"github.com/atelierhq/portal-backend/internal/domain"
)

// Reader are the point reads shared by the request path and transactions.
type Reader interface {
	GetClientAccount(ctx context.Context, id string) (*domain.ClientAccount, error)
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	GetSprint(ctx context.Context, id string) (*domain.Sprint, error)
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	GetFile(ctx context.Context, id string) (*domain.File, error)
}

// Filters for list reads. Zero values mean "no constraint"; the access
// scope is applied on top and can never be omitted.
type ProjectFilter struct {
	ClientID string
	Status   domain.ProjectStatus
}

type SprintFilter struct {
	ProjectID string
	Status    domain.SprintStatus
}

type TaskFilter struct {
	ProjectID  string
	SprintID   string
	AssigneeID string
	Status     domain.TaskStatus
}

type FileFilter struct {
	ProjectID string
	SprintID  string
	Tag       string
}

type Lister interface {
	ListClientAccounts(ctx context.Context, scope access.Scope) ([]domain.ClientAccount, error)
	ListProjects(ctx context.Context, scope access.Scope, f ProjectFilter) ([]domain.Project, error)
	ListSprints(ctx context.Context, scope access.Scope, f SprintFilter) ([]domain.Sprint, error)
	ListTasks(ctx context.Context, scope access.Scope, f TaskFilter) ([]domain.Task, error)
	ListFiles(ctx context.Context, scope access.Scope, f FileFilter) ([]domain.File, error)
}

// Tx is the write surface available inside one transaction. All writes in
// a gateway mutation happen through a single Tx and commit together or
// not at all.
type Tx interface {
	Reader

	// Locked point reads for read-modify-write sections.
	GetProjectForUpdate(ctx context.Context, id string) (*domain.Project, error)
	GetSprintForUpdate(ctx context.Context, id string) (*domain.Sprint, error)

	CreateClientAccount(ctx context.Context, a *domain.ClientAccount) error
	UpdateClientAccount(ctx context.Context, a *domain.ClientAccount) error

	CreateProject(ctx context.Context, p *domain.Project) error
	UpdateProject(ctx context.Context, p *domain.Project) error
	DeleteProject(ctx context.Context, id string) error
	// DeleteProjectChildren removes every task, file, and sprint under the
	// project so a project delete never strands children behind a foreign
	// key or, on the in-memory store, as orphans.
	DeleteProjectChildren(ctx context.Context, projectID string) error
	// SetMilestoneCompleted updates exactly one milestone row; concurrent
	// toggles on different milestones of the same project never collide.
	SetMilestoneCompleted(ctx context.Context, projectID, milestoneID string, completed bool) error

	CreateSprint(ctx context.Context, s *domain.Sprint) error
	UpdateSprint(ctx context.Context, s *domain.Sprint) error
	DeleteSprint(ctx context.Context, id string) error
	// DetachSprintChildren returns the sprint's tasks and files to the
	// project backlog (sprint reference cleared) ahead of a sprint delete.
	DetachSprintChildren(ctx context.Context, sprintID string) error

	CreateTask(ctx context.Context, t *domain.Task) error
	UpdateTask(ctx context.Context, t *domain.Task) error
	DeleteTask(ctx context.Context, id string) error

	CreateFile(ctx context.Context, f *domain.File) error
	UpdateFile(ctx context.Context, f *domain.File) error
	DeleteFile(ctx context.Context, id string) error

	// CountSprintTasks recounts from current child state at call time; the
	// aggregation engine pairs it with UpdateSprintCounters inside the same
	// transaction as the triggering task write.
	CountSprintTasks(ctx context.Context, sprintID string) (total, completed int, err error)
	UpdateSprintCounters(ctx context.Context, sprintID string, total, completed int) error
}

type Store interface {
	Reader
	Lister
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}
