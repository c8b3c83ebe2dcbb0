package gateway

import (
	"context"

	"github.com/atelierhq/portal-backend/internal/domain"
)

// ResolveOrderContext authorizes draft-order creation for a project and
// returns the entities the order gateway needs. The Shopify call itself
// happens outside any transaction, after this resolution, and cannot roll
// anything back.
func (g *Gateway) ResolveOrderContext(ctx context.Context, p domain.Principal, projectID string) (*domain.Project, *domain.ClientAccount, error) {
	if err := authorize(ctx, g.store, p, domain.ActionCreate, domain.ResourceOrder, nil); err != nil {
		return nil, nil, err
	}
	// Staff need reach into the project the order bills against.
	ref := domain.ResourceRef{Type: domain.ResourceProject, ID: projectID}
	if err := authorize(ctx, g.store, p, domain.ActionRead, domain.ResourceProject, &ref); err != nil {
		return nil, nil, err
	}
	project, err := g.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	// The billing account is read through the project's lineage, not the
	// caller's account-level grants: billing a project you manage must not
	// require account assignment.
	account, err := g.store.GetClientAccount(ctx, project.ClientID)
	if err != nil {
		return nil, nil, err
	}
	return project, account, nil
}
