package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atelierhq/portal-backend/internal/aggregate"
	"github.com/atelierhq/portal-backend/internal/domain"
	"github.com/atelierhq/portal-backend/internal/lifecycle"
	"github.com/atelierhq/portal-backend/internal/store"
)

type CreateTaskInput struct {
	ProjectID      string
	SprintID       *string
	AssigneeID     string
	Title          string
	Priority       domain.TaskPriority
	DueDate        *time.Time
	EstimatedHours *float64
}

// checkTaskLineage validates, inside the same transaction as the write,
// that the task's sprint belongs to the task's project. Tenant lineage is
// transitive through the project, so this single check rules out
// cross-tenant references.
func checkTaskLineage(ctx context.Context, tx storeTx, projectID string, sprintID *string) error {
	if _, err := tx.GetProject(ctx, projectID); err != nil {
		return domain.Validationf("project_id", "unknown project")
	}
	if sprintID == nil || *sprintID == "" {
		return nil
	}
	sp, err := tx.GetSprint(ctx, *sprintID)
	if err != nil {
		return domain.Validationf("sprint_id", "unknown sprint")
	}
	if sp.ProjectID != projectID {
		return domain.Validationf("sprint_id", "sprint belongs to a different project")
	}
	return nil
}

func (g *Gateway) CreateTask(ctx context.Context, p domain.Principal, in CreateTaskInput) (*domain.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, domain.Validationf("title", "required")
	}
	if in.ProjectID == "" {
		return nil, domain.Validationf("project_id", "required")
	}
	if in.AssigneeID == "" {
		return nil, domain.Validationf("assignee_id", "required")
	}
	priority := in.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.Valid() {
		return nil, domain.Validationf("priority", "unknown priority %q", priority)
	}

	task := &domain.Task{
		ID:             uuid.NewString(),
		ProjectID:      in.ProjectID,
		SprintID:       in.SprintID,
		AssigneeID:     in.AssigneeID,
		Title:          strings.TrimSpace(in.Title),
		Status:         domain.TaskPending,
		Priority:       priority,
		DueDate:        in.DueDate,
		EstimatedHours: in.EstimatedHours,
	}
	err := g.store.RunInTx(ctx, func(tx storeTx) error {
		if err := authorize(ctx, tx, p, domain.ActionCreate, domain.ResourceTask, nil); err != nil {
			return err
		}
		if err := checkTaskLineage(ctx, tx, in.ProjectID, in.SprintID); err != nil {
			return err
		}
		if p.Role == domain.RoleStaff {
			ref := domain.ResourceRef{Type: domain.ResourceProject, ID: in.ProjectID}
			if err := authorize(ctx, tx, p, domain.ActionUpdate, domain.ResourceProject, &ref); err != nil {
				return err
			}
		}
		if err := tx.CreateTask(ctx, task); err != nil {
			return err
		}
		return aggregate.RecountForTaskChange(ctx, tx, nil, task)
	})
	if err != nil {
		return nil, err
	}
	g.publish(ctx, domain.ResourceTask, domain.ActionCreate, task.ID)
	return task, nil
}

// UpdateTaskInput patches descriptive fields and sprint membership.
// Status moves go through UpdateTaskStatus. CompletedAt is absent on
// purpose: it is engine-maintained and not part of the mutable surface.
type UpdateTaskInput struct {
	SprintID       *string // empty string detaches from the sprint
	AssigneeID     *string
	Title          *string
	Priority       *domain.TaskPriority
	DueDate        *time.Time
	EstimatedHours *float64
	ActualHours    *float64
}

func (g *Gateway) UpdateTask(ctx context.Context, p domain.Principal, id string, in UpdateTaskInput) (*domain.Task, error) {
	var out *domain.Task
	err := g.store.RunInTx(ctx, func(tx storeTx) error {
		ref := domain.ResourceRef{Type: domain.ResourceTask, ID: id}
		if err := authorize(ctx, tx, p, domain.ActionUpdate, domain.ResourceTask, &ref); err != nil {
			return err
		}
		task, err := tx.GetTask(ctx, id)
		if err != nil {
			return err
		}
		before := *task
		if in.SprintID != nil {
			if *in.SprintID == "" {
				task.SprintID = nil
			} else {
				v := *in.SprintID
				task.SprintID = &v
			}
		}
		if in.AssigneeID != nil {
			if *in.AssigneeID == "" {
				return domain.Validationf("assignee_id", "required")
			}
			task.AssigneeID = *in.AssigneeID
		}
		if in.Title != nil {
			if strings.TrimSpace(*in.Title) == "" {
				return domain.Validationf("title", "required")
			}
			task.Title = strings.TrimSpace(*in.Title)
		}
		if in.Priority != nil {
			if !in.Priority.Valid() {
				return domain.Validationf("priority", "unknown priority %q", *in.Priority)
			}
			task.Priority = *in.Priority
		}
		if in.DueDate != nil {
			task.DueDate = in.DueDate
		}
		if in.EstimatedHours != nil {
			task.EstimatedHours = in.EstimatedHours
		}
		if in.ActualHours != nil {
			task.ActualHours = in.ActualHours
		}
		if err := checkTaskLineage(ctx, tx, task.ProjectID, task.SprintID); err != nil {
			return err
		}
		if err := tx.UpdateTask(ctx, task); err != nil {
			return err
		}
		if err := aggregate.RecountForTaskChange(ctx, tx, &before, task); err != nil {
			return err
		}
		out = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	g.publish(ctx, domain.ResourceTask, domain.ActionUpdate, id)
	return out, nil
}

// UpdateTaskStatus runs the task state machine and the synchronous sprint
// recount in one transaction.
func (g *Gateway) UpdateTaskStatus(ctx context.Context, p domain.Principal, id string, to domain.TaskStatus) (*domain.Task, error) {
	var out *domain.Task
	err := g.store.RunInTx(ctx, func(tx storeTx) error {
		ref := domain.ResourceRef{Type: domain.ResourceTask, ID: id}
		if err := authorize(ctx, tx, p, domain.ActionUpdate, domain.ResourceTask, &ref); err != nil {
			return err
		}
		task, err := tx.GetTask(ctx, id)
		if err != nil {
			return err
		}
		before := *task
		if err := lifecycle.CheckTaskTransition(p.Role, task.Status, to); err != nil {
			return err
		}
		lifecycle.ApplyTaskStatus(task, to, g.now())
		if err := tx.UpdateTask(ctx, task); err != nil {
			return err
		}
		if err := aggregate.RecountForTaskChange(ctx, tx, &before, task); err != nil {
			return err
		}
		out = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	g.publish(ctx, domain.ResourceTask, domain.ActionUpdate, id)
	return out, nil
}

func (g *Gateway) DeleteTask(ctx context.Context, p domain.Principal, id string) error {
	err := g.store.RunInTx(ctx, func(tx storeTx) error {
		ref := domain.ResourceRef{Type: domain.ResourceTask, ID: id}
		if err := authorize(ctx, tx, p, domain.ActionDelete, domain.ResourceTask, &ref); err != nil {
			return err
		}
		task, err := tx.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteTask(ctx, id); err != nil {
			return err
		}
		return aggregate.RecountForTaskChange(ctx, tx, task, nil)
	})
	if err != nil {
		return err
	}
	g.publish(ctx, domain.ResourceTask, domain.ActionDelete, id)
	return nil
}

func (g *Gateway) GetTask(ctx context.Context, p domain.Principal, id string) (*domain.Task, error) {
	if err := g.readAuthorized(ctx, p, domain.ResourceTask, id); err != nil {
		return nil, err
	}
	return g.store.GetTask(ctx, id)
}

func (g *Gateway) ListTasks(ctx context.Context, p domain.Principal, f store.TaskFilter) ([]domain.Task, error) {
	scope, err := scopeFor(ctx, p, domain.ResourceTask)
	if err != nil {
		return nil, err
	}
	return g.store.ListTasks(ctx, scope, f)
}
