package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atelierhq/portal-backend/internal/domain"
	"github.com/atelierhq/portal-backend/internal/lifecycle"
	"github.com/atelierhq/portal-backend/internal/store"
)

type MilestoneInput struct {
	Title       string
	Date        time.Time
	Completed   bool
	Description string
}

type CreateProjectInput struct {
	ClientID         string
	Name             string
	AssignedTo       []string
	StartDate        time.Time
	ProjectedEndDate time.Time
	Milestones       []MilestoneInput
	BudgetAmount     int64
	Currency         string
}

func (g *Gateway) CreateProject(ctx context.Context, p domain.Principal, in CreateProjectInput) (*domain.Project, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.Validationf("name", "required")
	}
	if in.ClientID == "" {
		return nil, domain.Validationf("client_id", "required")
	}
	if !in.ProjectedEndDate.IsZero() && !in.StartDate.IsZero() && !in.ProjectedEndDate.After(in.StartDate) {
		return nil, domain.Validationf("projected_end_date", "must be after start_date")
	}
	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}

	proj := &domain.Project{
		ID:               uuid.NewString(),
		ClientID:         in.ClientID,
		Name:             strings.TrimSpace(in.Name),
		Status:           domain.ProjectPending,
		AssignedTo:       append([]string{}, in.AssignedTo...),
		StartDate:        in.StartDate,
		ProjectedEndDate: in.ProjectedEndDate,
		BudgetAmount:     in.BudgetAmount,
		Currency:         currency,
	}
	for i, m := range in.Milestones {
		proj.Milestones = append(proj.Milestones, domain.Milestone{
			ID:          uuid.NewString(),
			Seq:         i,
			Title:       m.Title,
			Date:        m.Date,
			Completed:   m.Completed,
			Description: m.Description,
		})
	}

	err := g.store.RunInTx(ctx, func(tx storeTx) error {
		if err := authorize(ctx, tx, p, domain.ActionCreate, domain.ResourceProject, nil); err != nil {
			return err
		}
		// The owning account must exist; a dangling client_id is a payload
		// error, not a 500.
		if _, err := tx.GetClientAccount(ctx, in.ClientID); err != nil {
			return domain.Validationf("client_id", "unknown client account")
		}
		return tx.CreateProject(ctx, proj)
	})
	if err != nil {
		return nil, err
	}
	g.publish(ctx, domain.ResourceProject, domain.ActionCreate, proj.ID)
	return proj, nil
}

// UpdateProjectInput patches descriptive fields. Status is not here:
// status moves go through UpdateProjectStatus so lifecycle effects are
// never skipped. ClientID is immutable.
type UpdateProjectInput struct {
	Name             *string
	AssignedTo       *[]string
	StartDate        *time.Time
	ProjectedEndDate *time.Time
	Milestones       *[]MilestoneInput
	BudgetAmount     *int64
	Currency         *string
}

func (g *Gateway) UpdateProject(ctx context.Context, p domain.Principal, id string, in UpdateProjectInput) (*domain.Project, error) {
	var out *domain.Project
	err := g.store.RunInTx(ctx, func(tx storeTx) error {
		ref := domain.ResourceRef{Type: domain.ResourceProject, ID: id}
		if err := authorize(ctx, tx, p, domain.ActionUpdate, domain.ResourceProject, &ref); err != nil {
			return err
		}
		proj, err := tx.GetProjectForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if in.Name != nil {
			if strings.TrimSpace(*in.Name) == "" {
				return domain.Validationf("name", "required")
			}
			proj.Name = strings.TrimSpace(*in.Name)
		}
		if in.AssignedTo != nil {
			proj.AssignedTo = append([]string{}, (*in.AssignedTo)...)
		}
		if in.StartDate != nil {
			proj.StartDate = *in.StartDate
		}
		if in.ProjectedEndDate != nil {
			proj.ProjectedEndDate = *in.ProjectedEndDate
		}
		if !proj.ProjectedEndDate.IsZero() && !proj.StartDate.IsZero() && !proj.ProjectedEndDate.After(proj.StartDate) {
			return domain.Validationf("projected_end_date", "must be after start_date")
		}
		if in.BudgetAmount != nil {
			proj.BudgetAmount = *in.BudgetAmount
		}
		if in.Currency != nil {
			proj.Currency = *in.Currency
		}
		if in.Milestones != nil {
			// Full milestone rewrite is an explicit project edit; toggles go
			// through ToggleMilestone and touch single rows.
			ms := make([]domain.Milestone, 0, len(*in.Milestones))
			for i, m := range *in.Milestones {
				ms = append(ms, domain.Milestone{
					ID:          uuid.NewString(),
					Seq:         i,
					Title:       m.Title,
					Date:        m.Date,
					Completed:   m.Completed,
					Description: m.Description,
				})
			}
			proj.Milestones = ms
		}
		if err := tx.UpdateProject(ctx, proj); err != nil {
			return err
		}
		out = proj
		return nil
	})
	if err != nil {
		return nil, err
	}
	g.publish(ctx, domain.ResourceProject, domain.ActionUpdate, id)
	return out, nil
}

// UpdateProjectStatus runs the project state machine. ActualEndDate is
// stamped exactly on entry to completed.
func (g *Gateway) UpdateProjectStatus(ctx context.Context, p domain.Principal, id string, to domain.ProjectStatus) (*domain.Project, error) {
	var out *domain.Project
	err := g.store.RunInTx(ctx, func(tx storeTx) error {
		ref := domain.ResourceRef{Type: domain.ResourceProject, ID: id}
		if err := authorize(ctx, tx, p, domain.ActionUpdate, domain.ResourceProject, &ref); err != nil {
			return err
		}
		proj, err := tx.GetProjectForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := lifecycle.CheckProjectTransition(p.Role, proj.Status, to); err != nil {
			return err
		}
		lifecycle.ApplyProjectStatus(proj, to, g.now())
		if err := tx.UpdateProject(ctx, proj); err != nil {
			return err
		}
		out = proj
		return nil
	})
	if err != nil {
		return nil, err
	}
	g.publish(ctx, domain.ResourceProject, domain.ActionUpdate, id)
	return out, nil
}

// ToggleMilestone flips one milestone addressed by display index. The
// index is resolved to the milestone's stable id under the project row
// lock, then a single milestone row is updated, so concurrent toggles on
// different indices both land.
func (g *Gateway) ToggleMilestone(ctx context.Context, p domain.Principal, projectID string, index int) (*domain.Project, error) {
	var out *domain.Project
	err := g.store.RunInTx(ctx, func(tx storeTx) error {
		ref := domain.ResourceRef{Type: domain.ResourceProject, ID: projectID}
		if err := authorize(ctx, tx, p, domain.ActionUpdate, domain.ResourceProject, &ref); err != nil {
			return err
		}
		proj, err := tx.GetProjectForUpdate(ctx, projectID)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(proj.Milestones) {
			return domain.Validationf("index", "milestone index %d out of range", index)
		}
		m := proj.Milestones[index]
		if err := tx.SetMilestoneCompleted(ctx, projectID, m.ID, !m.Completed); err != nil {
			return err
		}
		proj.Milestones[index].Completed = !m.Completed
		out = proj
		return nil
	})
	if err != nil {
		return nil, err
	}
	g.publish(ctx, domain.ResourceProject, domain.ActionUpdate, projectID)
	return out, nil
}

func (g *Gateway) DeleteProject(ctx context.Context, p domain.Principal, id string) error {
	err := g.store.RunInTx(ctx, func(tx storeTx) error {
		ref := domain.ResourceRef{Type: domain.ResourceProject, ID: id}
		if err := authorize(ctx, tx, p, domain.ActionDelete, domain.ResourceProject, &ref); err != nil {
			return err
		}
		// Children go with the project; leaving them behind would strand
		// tasks and files pointing at a row that no longer exists.
		if err := tx.DeleteProjectChildren(ctx, id); err != nil {
			return err
		}
		return tx.DeleteProject(ctx, id)
	})
	if err != nil {
		return err
	}
	g.publish(ctx, domain.ResourceProject, domain.ActionDelete, id)
	return nil
}

func (g *Gateway) GetProject(ctx context.Context, p domain.Principal, id string) (*domain.Project, error) {
	if err := g.readAuthorized(ctx, p, domain.ResourceProject, id); err != nil {
		return nil, err
	}
	return g.store.GetProject(ctx, id)
}

func (g *Gateway) ListProjects(ctx context.Context, p domain.Principal, f store.ProjectFilter) ([]domain.Project, error) {
	scope, err := scopeFor(ctx, p, domain.ResourceProject)
	if err != nil {
		return nil, err
	}
	return g.store.ListProjects(ctx, scope, f)
}
