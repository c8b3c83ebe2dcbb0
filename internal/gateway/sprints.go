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

type CreateSprintInput struct {
	ProjectID string
	Name      string
	StartDate time.Time
	EndDate   time.Time
}

func (g *Gateway) CreateSprint(ctx context.Context, p domain.Principal, in CreateSprintInput) (*domain.Sprint, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.Validationf("name", "required")
	}
	if in.ProjectID == "" {
		return nil, domain.Validationf("project_id", "required")
	}
	if !in.EndDate.IsZero() && !in.StartDate.IsZero() && !in.EndDate.After(in.StartDate) {
		return nil, domain.Validationf("end_date", "must be after start_date")
	}

	sp := &domain.Sprint{
		ID:        uuid.NewString(),
		ProjectID: in.ProjectID,
		Name:      strings.TrimSpace(in.Name),
		Status:    domain.SprintPending,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
	}
	err := g.store.RunInTx(ctx, func(tx storeTx) error {
		if err := authorize(ctx, tx, p, domain.ActionCreate, domain.ResourceSprint, nil); err != nil {
			return err
		}
		if _, err := tx.GetProject(ctx, in.ProjectID); err != nil {
			return domain.Validationf("project_id", "unknown project")
		}
		// Staff create requires reach into the target project.
		if p.Role == domain.RoleStaff {
			ref := domain.ResourceRef{Type: domain.ResourceProject, ID: in.ProjectID}
			if err := authorize(ctx, tx, p, domain.ActionUpdate, domain.ResourceProject, &ref); err != nil {
				return err
			}
		}
		return tx.CreateSprint(ctx, sp)
	})
	if err != nil {
		return nil, err
	}
	g.publish(ctx, domain.ResourceSprint, domain.ActionCreate, sp.ID)
	return sp, nil
}

type UpdateSprintInput struct {
	Name      *string
	StartDate *time.Time
	EndDate   *time.Time
}

func (g *Gateway) UpdateSprint(ctx context.Context, p domain.Principal, id string, in UpdateSprintInput) (*domain.Sprint, error) {
	var out *domain.Sprint
	err := g.store.RunInTx(ctx, func(tx storeTx) error {
		ref := domain.ResourceRef{Type: domain.ResourceSprint, ID: id}
		if err := authorize(ctx, tx, p, domain.ActionUpdate, domain.ResourceSprint, &ref); err != nil {
			return err
		}
		sp, err := tx.GetSprintForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if in.Name != nil {
			if strings.TrimSpace(*in.Name) == "" {
				return domain.Validationf("name", "required")
			}
			sp.Name = strings.TrimSpace(*in.Name)
		}
		if in.StartDate != nil {
			sp.StartDate = *in.StartDate
		}
		if in.EndDate != nil {
			sp.EndDate = *in.EndDate
		}
		if !sp.EndDate.IsZero() && !sp.StartDate.IsZero() && !sp.EndDate.After(sp.StartDate) {
			return domain.Validationf("end_date", "must be after start_date")
		}
		if err := tx.UpdateSprint(ctx, sp); err != nil {
			return err
		}
		out = sp
		return nil
	})
	if err != nil {
		return nil, err
	}
	g.publish(ctx, domain.ResourceSprint, domain.ActionUpdate, id)
	return out, nil
}

func (g *Gateway) UpdateSprintStatus(ctx context.Context, p domain.Principal, id string, to domain.SprintStatus) (*domain.Sprint, error) {
	var out *domain.Sprint
	err := g.store.RunInTx(ctx, func(tx storeTx) error {
		ref := domain.ResourceRef{Type: domain.ResourceSprint, ID: id}
		if err := authorize(ctx, tx, p, domain.ActionUpdate, domain.ResourceSprint, &ref); err != nil {
			return err
		}
		sp, err := tx.GetSprintForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := lifecycle.CheckSprintTransition(p.Role, sp.Status, to); err != nil {
			return err
		}
		sp.Status = to
		if err := tx.UpdateSprint(ctx, sp); err != nil {
			return err
		}
		out = sp
		return nil
	})
	if err != nil {
		return nil, err
	}
	g.publish(ctx, domain.ResourceSprint, domain.ActionUpdate, id)
	return out, nil
}

func (g *Gateway) DeleteSprint(ctx context.Context, p domain.Principal, id string) error {
	err := g.store.RunInTx(ctx, func(tx storeTx) error {
		ref := domain.ResourceRef{Type: domain.ResourceSprint, ID: id}
		if err := authorize(ctx, tx, p, domain.ActionDelete, domain.ResourceSprint, &ref); err != nil {
			return err
		}
		// Tasks and files fall back to the project backlog; only the
		// sprint row itself is removed.
		if err := tx.DetachSprintChildren(ctx, id); err != nil {
			return err
		}
		return tx.DeleteSprint(ctx, id)
	})
	if err != nil {
		return err
	}
	g.publish(ctx, domain.ResourceSprint, domain.ActionDelete, id)
	return nil
}

func (g *Gateway) GetSprint(ctx context.Context, p domain.Principal, id string) (*domain.Sprint, error) {
	if err := g.readAuthorized(ctx, p, domain.ResourceSprint, id); err != nil {
		return nil, err
	}
	return g.store.GetSprint(ctx, id)
}

func (g *Gateway) ListSprints(ctx context.Context, p domain.Principal, f store.SprintFilter) ([]domain.Sprint, error) {
	scope, err := scopeFor(ctx, p, domain.ResourceSprint)
	if err != nil {
		return nil, err
	}
	return g.store.ListSprints(ctx, scope, f)
}
