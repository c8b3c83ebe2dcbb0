// Package relations answers "how is this principal related to this
// resource" questions over the tenancy tree. A Graph is built per request
// and memoizes every record it loads for the life of that request only;
// assignment can change between requests, so nothing here is cached
// across them.
package relations

import (
	"context"
	"fmt"

	"github.com/atelierhq/portal-backend/internal/domain"
)

// Reader is the narrow read view the graph needs. The store satisfies it.
type Reader interface {
	GetClientAccount(ctx context.Context, id string) (*domain.ClientAccount, error)
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	GetSprint(ctx context.Context, id string) (*domain.Sprint, error)
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	GetFile(ctx context.Context, id string) (*domain.File, error)
}

type Graph struct {
	r Reader

	accounts map[string]*domain.ClientAccount
	projects map[string]*domain.Project
	sprints  map[string]*domain.Sprint
	tasks    map[string]*domain.Task
	files    map[string]*domain.File
}

func NewGraph(r Reader) *Graph {
	return &Graph{
		r:        r,
		accounts: map[string]*domain.ClientAccount{},
		projects: map[string]*domain.Project{},
		sprints:  map[string]*domain.Sprint{},
		tasks:    map[string]*domain.Task{},
		files:    map[string]*domain.File{},
	}
}

func (g *Graph) account(ctx context.Context, id string) (*domain.ClientAccount, error) {
	if a, ok := g.accounts[id]; ok {
		return a, nil
	}
	a, err := g.r.GetClientAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	g.accounts[id] = a
	return a, nil
}

func (g *Graph) project(ctx context.Context, id string) (*domain.Project, error) {
	if p, ok := g.projects[id]; ok {
		return p, nil
	}
	p, err := g.r.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	g.projects[id] = p
	return p, nil
}

func (g *Graph) sprint(ctx context.Context, id string) (*domain.Sprint, error) {
	if s, ok := g.sprints[id]; ok {
		return s, nil
	}
	s, err := g.r.GetSprint(ctx, id)
	if err != nil {
		return nil, err
	}
	g.sprints[id] = s
	return s, nil
}

func (g *Graph) task(ctx context.Context, id string) (*domain.Task, error) {
	if t, ok := g.tasks[id]; ok {
		return t, nil
	}
	t, err := g.r.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	g.tasks[id] = t
	return t, nil
}

func (g *Graph) file(ctx context.Context, id string) (*domain.File, error) {
	if f, ok := g.files[id]; ok {
		return f, nil
	}
	f, err := g.r.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}
	g.files[id] = f
	return f, nil
}

// Ancestors returns the lineage of a resource, nearest first, ending at
// its client account. A client account has no ancestors.
func (g *Graph) Ancestors(ctx context.Context, ref domain.ResourceRef) ([]domain.ResourceRef, error) {
	switch ref.Type {
	case domain.ResourceClientAccount:
		return nil, nil

	case domain.ResourceProject:
		p, err := g.project(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return []domain.ResourceRef{{Type: domain.ResourceClientAccount, ID: p.ClientID}}, nil

	case domain.ResourceSprint:
		s, err := g.sprint(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		rest, err := g.Ancestors(ctx, domain.ResourceRef{Type: domain.ResourceProject, ID: s.ProjectID})
		if err != nil {
			return nil, err
		}
		return append([]domain.ResourceRef{{Type: domain.ResourceProject, ID: s.ProjectID}}, rest...), nil

	case domain.ResourceTask:
		t, err := g.task(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		out := []domain.ResourceRef{}
		if t.SprintID != nil {
			out = append(out, domain.ResourceRef{Type: domain.ResourceSprint, ID: *t.SprintID})
		}
		rest, err := g.Ancestors(ctx, domain.ResourceRef{Type: domain.ResourceProject, ID: t.ProjectID})
		if err != nil {
			return nil, err
		}
		out = append(out, domain.ResourceRef{Type: domain.ResourceProject, ID: t.ProjectID})
		return append(out, rest...), nil

	case domain.ResourceFile:
		f, err := g.file(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		out := []domain.ResourceRef{}
		if f.SprintID != nil {
			out = append(out, domain.ResourceRef{Type: domain.ResourceSprint, ID: *f.SprintID})
		}
		if f.ProjectID != nil {
			rest, err := g.Ancestors(ctx, domain.ResourceRef{Type: domain.ResourceProject, ID: *f.ProjectID})
			if err != nil {
				return nil, err
			}
			out = append(out, domain.ResourceRef{Type: domain.ResourceProject, ID: *f.ProjectID})
			out = append(out, rest...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("ancestors: unknown resource type %v", ref.Type)
}

// OwnerAccount resolves the client account a resource is transitively
// scoped to. Files with no project link own no account.
func (g *Graph) OwnerAccount(ctx context.Context, ref domain.ResourceRef) (string, error) {
	if ref.Type == domain.ResourceClientAccount {
		return ref.ID, nil
	}
	anc, err := g.Ancestors(ctx, ref)
	if err != nil {
		return "", err
	}
	for _, a := range anc {
		if a.Type == domain.ResourceClientAccount {
			return a.ID, nil
		}
	}
	return "", nil
}

// OwnerClientUser resolves the portal login recognized as the client
// identity of the resource's owning account. Empty when the account has
// no linked login or the resource has no owning account.
func (g *Graph) OwnerClientUser(ctx context.Context, ref domain.ResourceRef) (string, error) {
	acctID, err := g.OwnerAccount(ctx, ref)
	if err != nil {
		return "", err
	}
	if acctID == "" {
		return "", nil
	}
	a, err := g.account(ctx, acctID)
	if err != nil {
		return "", err
	}
	return a.ClientUserID, nil
}

// IsAssigned reports whether the principal is assigned at the resource's
// own level: a task's single assignee, or membership in the assigned_to
// set of a project or client account. Sprints and files carry no
// assignment of their own and always report false here; callers fall back
// to the lineage via IsAssignedInLineage.
func (g *Graph) IsAssigned(ctx context.Context, principalID string, ref domain.ResourceRef) (bool, error) {
	switch ref.Type {
	case domain.ResourceClientAccount:
		a, err := g.account(ctx, ref.ID)
		if err != nil {
			return false, err
		}
		return contains(a.AssignedTo, principalID), nil

	case domain.ResourceProject:
		p, err := g.project(ctx, ref.ID)
		if err != nil {
			return false, err
		}
		return contains(p.AssignedTo, principalID), nil

	case domain.ResourceTask:
		t, err := g.task(ctx, ref.ID)
		if err != nil {
			return false, err
		}
		return t.AssigneeID == principalID, nil

	case domain.ResourceSprint, domain.ResourceFile:
		return false, nil
	}
	return false, fmt.Errorf("is-assigned: unknown resource type %v", ref.Type)
}

// IsAssignedInLineage walks from the resource up through its ancestors and
// reports whether any level carries an assignment for the principal. An
// empty assignment set at every level means nobody but admins sees the
// resource.
func (g *Graph) IsAssignedInLineage(ctx context.Context, principalID string, ref domain.ResourceRef) (bool, error) {
	ok, err := g.IsAssigned(ctx, principalID, ref)
	if err != nil || ok {
		return ok, err
	}
	anc, err := g.Ancestors(ctx, ref)
	if err != nil {
		return false, err
	}
	for _, a := range anc {
		ok, err := g.IsAssigned(ctx, principalID, a)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
