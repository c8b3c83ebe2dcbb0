// Package access is the predicate engine: pure evaluation of
// (principal, action, resource) into Allow, Deny, or a scope filter for
// list reads. Role handling is a closed enum with exhaustive switches; a
// role outside the enum denies everything.
package access

import (
	"context"

	"github.com/atelierhq/portal-backend/internal/domain"
)

type Effect int

const (
	Deny Effect = iota
	Allow
	// Scoped is returned for list/query operations: the caller must apply
	// Decision.Scope to the collection. Omitting it is not an option; the
	// gateway composes it into every query.
	Scoped
)

// Scope narrows a collection to what the principal may see. Exactly one
// of the fields is meaningful per decision.
type Scope struct {
	// All: no narrowing (admin).
	All bool
	// StaffID: rows whose assignment lineage (own assignment, project,
	// or client account) contains this staff principal.
	StaffID string
	// ClientUserID: rows under client accounts whose linked client login
	// is this principal.
	ClientUserID string
}

type Decision struct {
	Effect Effect
	Scope  *Scope
}

func allow() Decision { return Decision{Effect: Allow} }
func deny() Decision  { return Decision{Effect: Deny} }
func scoped(s Scope) Decision {
	return Decision{Effect: Scoped, Scope: &s}
}

// Relationships is the slice of the relationship graph the engine
// consumes. relations.Graph satisfies it.
type Relationships interface {
	IsAssignedInLineage(ctx context.Context, principalID string, ref domain.ResourceRef) (bool, error)
	OwnerClientUser(ctx context.Context, ref domain.ResourceRef) (string, error)
}

// Evaluate decides one action. For ActionList ref is ignored and the
// result is Scoped (or Deny). For everything else ref must identify the
// target resource, except ActionCreate where ref may be nil.
func Evaluate(ctx context.Context, rel Relationships, p domain.Principal, action domain.Action, rt domain.ResourceType, ref *domain.ResourceRef) (Decision, error) {
	switch p.Role {
	case domain.RoleAdmin:
		if action == domain.ActionList {
			return scoped(Scope{All: true}), nil
		}
		return allow(), nil

	case domain.RoleStaff:
		return evaluateStaff(ctx, rel, p, action, rt, ref)

	case domain.RoleClient:
		return evaluateClient(ctx, rel, p, action, rt, ref)
	}
	// Unrecognized role: default-deny.
	return deny(), nil
}

func evaluateStaff(ctx context.Context, rel Relationships, p domain.Principal, action domain.Action, rt domain.ResourceType, ref *domain.ResourceRef) (Decision, error) {
	switch action {
	case domain.ActionCreate:
		// Staff may create everything except nothing here is staff-barred;
		// client accounts are explicitly admin/staff-created.
		return allow(), nil

	case domain.ActionList:
		return scoped(Scope{StaffID: p.ID}), nil

	case domain.ActionRead, domain.ActionUpdate:
		if ref == nil {
			return deny(), nil
		}
		ok, err := rel.IsAssignedInLineage(ctx, p.ID, *ref)
		if err != nil {
			return deny(), err
		}
		if ok {
			return allow(), nil
		}
		return deny(), nil

	case domain.ActionDelete:
		// Irreversible structural changes require admin.
		return deny(), nil
	}
	return deny(), nil
}

func evaluateClient(ctx context.Context, rel Relationships, p domain.Principal, action domain.Action, rt domain.ResourceType, ref *domain.ResourceRef) (Decision, error) {
	switch action {
	case domain.ActionList:
		return scoped(Scope{ClientUserID: p.ID}), nil

	case domain.ActionRead:
		if ref == nil {
			return deny(), nil
		}
		owner, err := rel.OwnerClientUser(ctx, *ref)
		if err != nil {
			return deny(), err
		}
		if owner != "" && owner == p.ID {
			return allow(), nil
		}
		return deny(), nil

	case domain.ActionCreate, domain.ActionUpdate, domain.ActionDelete:
		return deny(), nil
	}
	return deny(), nil
}

// DenialError maps a denial to the error the caller is shown. Staff and
// admin callers get Forbidden for audit clarity; client callers get
// NotFound so existence never leaks across tenants.
func DenialError(p domain.Principal) error {
	if p.Role == domain.RoleClient {
		return domain.ErrNotFound
	}
	return domain.ErrForbidden
}
