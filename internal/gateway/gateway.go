// Package gateway is the single write path. Every mutation resolves the
// principal's access first, validates payload invariants, applies the
// write with its lifecycle side effects, recounts affected aggregates,
// and commits all of it in one transaction. Reads compose the caller's
// filter with the access scope so scoping cannot be bypassed.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/atelierhq/portal-backend/internal/access"
	"github.com/atelierhq/portal-backend/internal/domain"
	"github.com/atelierhq/portal-backend/internal/relations"
	"github.com/atelierhq/portal-backend/internal/store"
)

// Publisher receives post-commit change notifications. Failures there are
// the publisher's problem; they never roll back the mutation.
type Publisher interface {
	EntityChanged(ctx context.Context, rt domain.ResourceType, action domain.Action, id string)
}

// storeTx keeps the per-entity files free of a second store import.
type storeTx = store.Tx

type Gateway struct {
	store store.Store
	pub   Publisher
	now   func() time.Time
}

type Option func(*Gateway)

func WithPublisher(p Publisher) Option {
	return func(g *Gateway) { g.pub = p }
}

func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

func New(s store.Store, opts ...Option) *Gateway {
	g := &Gateway{store: s, now: time.Now}
	for _, o := range opts {
		o(g)
	}
	return g
}

// authorize evaluates one action against the given reader (the pool for
// reads, the open transaction for writes so the check and the write are
// atomic). A denial maps per role: Forbidden for staff/admin, NotFound
// for clients.
func authorize(ctx context.Context, r relations.Reader, p domain.Principal, action domain.Action, rt domain.ResourceType, ref *domain.ResourceRef) error {
	graph := relations.NewGraph(r)
	dec, err := access.Evaluate(ctx, graph, p, action, rt, ref)
	if err != nil {
		// A missing record during the relationship walk is true absence.
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	if dec.Effect != access.Allow {
		return access.DenialError(p)
	}
	return nil
}

// scopeFor resolves the list scope for a principal. Never returns an
// unscoped result for non-admins.
func scopeFor(ctx context.Context, p domain.Principal, rt domain.ResourceType) (access.Scope, error) {
	dec, err := access.Evaluate(ctx, nil, p, domain.ActionList, rt, nil)
	if err != nil {
		return access.Scope{}, err
	}
	if dec.Effect != access.Scoped || dec.Scope == nil {
		return access.Scope{}, access.DenialError(p)
	}
	return *dec.Scope, nil
}

func (g *Gateway) publish(ctx context.Context, rt domain.ResourceType, action domain.Action, id string) {
	if g.pub != nil {
		g.pub.EntityChanged(ctx, rt, action, id)
	}
}

// readOne is the shared single-record read path: fetch, then authorize
// against the fetched record's lineage.
func (g *Gateway) readAuthorized(ctx context.Context, p domain.Principal, rt domain.ResourceType, id string) error {
	ref := domain.ResourceRef{Type: rt, ID: id}
	return authorize(ctx, g.store, p, domain.ActionRead, rt, &ref)
}
