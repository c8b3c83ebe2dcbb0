package gateway

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/atelierhq/portal-backend/internal/domain"
	"github.com/atelierhq/portal-backend/internal/store"
)

type CreateFileInput struct {
	ProjectID  *string
	SprintID   *string
	Name       string
	FileType   string
	Version    string
	Tags       []string
	StorageKey string
}

func checkFileLineage(ctx context.Context, tx storeTx, projectID, sprintID *string) error {
	if projectID != nil && *projectID != "" {
		if _, err := tx.GetProject(ctx, *projectID); err != nil {
			return domain.Validationf("project_id", "unknown project")
		}
	}
	if sprintID != nil && *sprintID != "" {
		sp, err := tx.GetSprint(ctx, *sprintID)
		if err != nil {
			return domain.Validationf("sprint_id", "unknown sprint")
		}
		if projectID == nil || *projectID == "" {
			return domain.Validationf("project_id", "required when sprint_id is set")
		}
		if sp.ProjectID != *projectID {
			return domain.Validationf("sprint_id", "sprint belongs to a different project")
		}
	}
	return nil
}

func (g *Gateway) CreateFile(ctx context.Context, p domain.Principal, in CreateFileInput) (*domain.File, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.Validationf("name", "required")
	}
	if strings.TrimSpace(in.FileType) == "" {
		return nil, domain.Validationf("file_type", "required")
	}
	f := &domain.File{
		ID:         uuid.NewString(),
		ProjectID:  in.ProjectID,
		SprintID:   in.SprintID,
		Name:       strings.TrimSpace(in.Name),
		FileType:   in.FileType,
		Version:    in.Version,
		Tags:       append([]string{}, in.Tags...),
		StorageKey: in.StorageKey,
	}
	if f.StorageKey == "" {
		f.StorageKey = "files/" + f.ID
	}
	err := g.store.RunInTx(ctx, func(tx storeTx) error {
		if err := authorize(ctx, tx, p, domain.ActionCreate, domain.ResourceFile, nil); err != nil {
			return err
		}
		if err := checkFileLineage(ctx, tx, in.ProjectID, in.SprintID); err != nil {
			return err
		}
		if p.Role == domain.RoleStaff && in.ProjectID != nil && *in.ProjectID != "" {
			ref := domain.ResourceRef{Type: domain.ResourceProject, ID: *in.ProjectID}
			if err := authorize(ctx, tx, p, domain.ActionUpdate, domain.ResourceProject, &ref); err != nil {
				return err
			}
		}
		return tx.CreateFile(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	g.publish(ctx, domain.ResourceFile, domain.ActionCreate, f.ID)
	return f, nil
}

type UpdateFileInput struct {
	ProjectID *string // empty string detaches
	SprintID  *string // empty string detaches
	Name      *string
	FileType  *string
	Version   *string
	Tags      *[]string
}

func (g *Gateway) UpdateFile(ctx context.Context, p domain.Principal, id string, in UpdateFileInput) (*domain.File, error) {
	var out *domain.File
	err := g.store.RunInTx(ctx, func(tx storeTx) error {
		ref := domain.ResourceRef{Type: domain.ResourceFile, ID: id}
		if err := authorize(ctx, tx, p, domain.ActionUpdate, domain.ResourceFile, &ref); err != nil {
			return err
		}
		f, err := tx.GetFile(ctx, id)
		if err != nil {
			return err
		}
		if in.ProjectID != nil {
			if *in.ProjectID == "" {
				f.ProjectID = nil
			} else {
				v := *in.ProjectID
				f.ProjectID = &v
			}
		}
		if in.SprintID != nil {
			if *in.SprintID == "" {
				f.SprintID = nil
			} else {
				v := *in.SprintID
				f.SprintID = &v
			}
		}
		if in.Name != nil {
			if strings.TrimSpace(*in.Name) == "" {
				return domain.Validationf("name", "required")
			}
			f.Name = strings.TrimSpace(*in.Name)
		}
		if in.FileType != nil {
			f.FileType = *in.FileType
		}
		if in.Version != nil {
			f.Version = *in.Version
		}
		if in.Tags != nil {
			f.Tags = append([]string{}, (*in.Tags)...)
		}
		if err := checkFileLineage(ctx, tx, f.ProjectID, f.SprintID); err != nil {
			return err
		}
		if err := tx.UpdateFile(ctx, f); err != nil {
			return err
		}
		out = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	g.publish(ctx, domain.ResourceFile, domain.ActionUpdate, id)
	return out, nil
}

func (g *Gateway) DeleteFile(ctx context.Context, p domain.Principal, id string) error {
	err := g.store.RunInTx(ctx, func(tx storeTx) error {
		ref := domain.ResourceRef{Type: domain.ResourceFile, ID: id}
		if err := authorize(ctx, tx, p, domain.ActionDelete, domain.ResourceFile, &ref); err != nil {
			return err
		}
		return tx.DeleteFile(ctx, id)
	})
	if err != nil {
		return err
	}
	g.publish(ctx, domain.ResourceFile, domain.ActionDelete, id)
	return nil
}

func (g *Gateway) GetFile(ctx context.Context, p domain.Principal, id string) (*domain.File, error) {
	if err := g.readAuthorized(ctx, p, domain.ResourceFile, id); err != nil {
		return nil, err
	}
	return g.store.GetFile(ctx, id)
}

func (g *Gateway) ListFiles(ctx context.Context, p domain.Principal, f store.FileFilter) ([]domain.File, error) {
	scope, err := scopeFor(ctx, p, domain.ResourceFile)
	if err != nil {
		return nil, err
	}
	return g.store.ListFiles(ctx, scope, f)
}
