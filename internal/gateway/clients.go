package gateway

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/atelierhq/portal-backend/internal/domain"
)

type CreateClientAccountInput struct {
	Name           string
	Email          string
	Company        string
	ClientUserID   string
	AccountBalance int64
	AssignedTo     []string
}

func (in *CreateClientAccountInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.Validationf("name", "required")
	}
	if strings.TrimSpace(in.Email) == "" {
		return domain.Validationf("email", "required")
	}
	return nil
}

func (g *Gateway) CreateClientAccount(ctx context.Context, p domain.Principal, in CreateClientAccountInput) (*domain.ClientAccount, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	a := &domain.ClientAccount{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(in.Name),
		Email:          strings.TrimSpace(in.Email),
		Company:        strings.TrimSpace(in.Company),
		ClientUserID:   in.ClientUserID,
		AccountBalance: in.AccountBalance,
		AssignedTo:     append([]string{}, in.AssignedTo...),
	}
	err := g.store.RunInTx(ctx, func(tx storeTx) error {
		if err := authorize(ctx, tx, p, domain.ActionCreate, domain.ResourceClientAccount, nil); err != nil {
			return err
		}
		return tx.CreateClientAccount(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	g.publish(ctx, domain.ResourceClientAccount, domain.ActionCreate, a.ID)
	return a, nil
}

// UpdateClientAccountInput patches; nil fields are left unchanged.
type UpdateClientAccountInput struct {
	Name           *string
	Email          *string
	Company        *string
	ClientUserID   *string
	AccountBalance *int64
	AssignedTo     *[]string
}

func (g *Gateway) UpdateClientAccount(ctx context.Context, p domain.Principal, id string, in UpdateClientAccountInput) (*domain.ClientAccount, error) {
	var out *domain.ClientAccount
	err := g.store.RunInTx(ctx, func(tx storeTx) error {
		ref := domain.ResourceRef{Type: domain.ResourceClientAccount, ID: id}
		if err := authorize(ctx, tx, p, domain.ActionUpdate, domain.ResourceClientAccount, &ref); err != nil {
			return err
		}
		a, err := tx.GetClientAccount(ctx, id)
		if err != nil {
			return err
		}
		if in.Name != nil {
			if strings.TrimSpace(*in.Name) == "" {
				return domain.Validationf("name", "required")
			}
			a.Name = strings.TrimSpace(*in.Name)
		}
		if in.Email != nil {
			if strings.TrimSpace(*in.Email) == "" {
				return domain.Validationf("email", "required")
			}
			a.Email = strings.TrimSpace(*in.Email)
		}
		if in.Company != nil {
			a.Company = strings.TrimSpace(*in.Company)
		}
		if in.ClientUserID != nil {
			a.ClientUserID = *in.ClientUserID
		}
		if in.AccountBalance != nil {
			a.AccountBalance = *in.AccountBalance
		}
		if in.AssignedTo != nil {
			a.AssignedTo = append([]string{}, (*in.AssignedTo)...)
		}
		if err := tx.UpdateClientAccount(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	g.publish(ctx, domain.ResourceClientAccount, domain.ActionUpdate, id)
	return out, nil
}

func (g *Gateway) GetClientAccount(ctx context.Context, p domain.Principal, id string) (*domain.ClientAccount, error) {
	if err := g.readAuthorized(ctx, p, domain.ResourceClientAccount, id); err != nil {
		return nil, err
	}
	return g.store.GetClientAccount(ctx, id)
}

func (g *Gateway) ListClientAccounts(ctx context.Context, p domain.Principal) ([]domain.ClientAccount, error) {
	scope, err := scopeFor(ctx, p, domain.ResourceClientAccount)
	if err != nil {
		return nil, err
	}
	return g.store.ListClientAccounts(ctx, scope)
}
