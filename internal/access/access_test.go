package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierhq/portal-backend/internal/domain"
)

// fakeRelationships answers lineage questions from fixed maps, keyed by
// resource id.
type fakeRelationships struct {
	assigned map[string]bool   // "<principal>/<id>" -> assigned somewhere in lineage
	owners   map[string]string // resource id -> owning client login
}

func (f *fakeRelationships) IsAssignedInLineage(ctx context.Context, principalID string, ref domain.ResourceRef) (bool, error) {
	return f.assigned[principalID+"/"+ref.ID], nil
}

func (f *fakeRelationships) OwnerClientUser(ctx context.Context, ref domain.ResourceRef) (string, error) {
	return f.owners[ref.ID], nil
}

func TestEvaluateAdmin(t *testing.T) {
	admin := domain.Principal{ID: "adm-1", Role: domain.RoleAdmin}

	for _, action := range []domain.Action{domain.ActionCreate, domain.ActionRead, domain.ActionUpdate, domain.ActionDelete} {
		dec, err := Evaluate(context.Background(), nil, admin, action, domain.ResourceProject, &domain.ResourceRef{Type: domain.ResourceProject, ID: "p1"})
		require.NoError(t, err)
		assert.Equal(t, Allow, dec.Effect, "admin %s must be allowed", action)
	}

	dec, err := Evaluate(context.Background(), nil, admin, domain.ActionList, domain.ResourceTask, nil)
	require.NoError(t, err)
	require.Equal(t, Scoped, dec.Effect)
	assert.True(t, dec.Scope.All)
}

func TestEvaluateStaff(t *testing.T) {
	staff := domain.Principal{ID: "staff-1", Role: domain.RoleStaff}
	rel := &fakeRelationships{
		assigned: map[string]bool{
			"staff-1/p-mine": true,
		},
	}

	t.Run("create is allowed", func(t *testing.T) {
		dec, err := Evaluate(context.Background(), rel, staff, domain.ActionCreate, domain.ResourceTask, nil)
		require.NoError(t, err)
		assert.Equal(t, Allow, dec.Effect)
	})

	t.Run("read and update gated by lineage assignment", func(t *testing.T) {
		mine := domain.ResourceRef{Type: domain.ResourceProject, ID: "p-mine"}
		other := domain.ResourceRef{Type: domain.ResourceProject, ID: "p-other"}

		for _, action := range []domain.Action{domain.ActionRead, domain.ActionUpdate} {
			dec, err := Evaluate(context.Background(), rel, staff, action, domain.ResourceProject, &mine)
			require.NoError(t, err)
			assert.Equal(t, Allow, dec.Effect)

			dec, err = Evaluate(context.Background(), rel, staff, action, domain.ResourceProject, &other)
			require.NoError(t, err)
			assert.Equal(t, Deny, dec.Effect)
		}
	})

	t.Run("delete is denied", func(t *testing.T) {
		ref := domain.ResourceRef{Type: domain.ResourceProject, ID: "p-mine"}
		dec, err := Evaluate(context.Background(), rel, staff, domain.ActionDelete, domain.ResourceProject, &ref)
		require.NoError(t, err)
		assert.Equal(t, Deny, dec.Effect)
	})

	t.Run("list is scoped to the staff id", func(t *testing.T) {
		dec, err := Evaluate(context.Background(), rel, staff, domain.ActionList, domain.ResourceTask, nil)
		require.NoError(t, err)
		require.Equal(t, Scoped, dec.Effect)
		assert.Equal(t, "staff-1", dec.Scope.StaffID)
		assert.False(t, dec.Scope.All)
	})

	t.Run("missing ref denies", func(t *testing.T) {
		dec, err := Evaluate(context.Background(), rel, staff, domain.ActionRead, domain.ResourceProject, nil)
		require.NoError(t, err)
		assert.Equal(t, Deny, dec.Effect)
	})
}

func TestEvaluateClient(t *testing.T) {
	client := domain.Principal{ID: "login-1", Role: domain.RoleClient}
	rel := &fakeRelationships{
		owners: map[string]string{
			"p-mine":     "login-1",
			"p-other":    "login-2",
			"p-unlinked": "",
		},
	}

	t.Run("read within own account", func(t *testing.T) {
		ref := domain.ResourceRef{Type: domain.ResourceProject, ID: "p-mine"}
		dec, err := Evaluate(context.Background(), rel, client, domain.ActionRead, domain.ResourceProject, &ref)
		require.NoError(t, err)
		assert.Equal(t, Allow, dec.Effect)
	})

	t.Run("read in another tenant denied", func(t *testing.T) {
		ref := domain.ResourceRef{Type: domain.ResourceProject, ID: "p-other"}
		dec, err := Evaluate(context.Background(), rel, client, domain.ActionRead, domain.ResourceProject, &ref)
		require.NoError(t, err)
		assert.Equal(t, Deny, dec.Effect)
	})

	t.Run("unlinked account denies even its own resources", func(t *testing.T) {
		ref := domain.ResourceRef{Type: domain.ResourceProject, ID: "p-unlinked"}
		dec, err := Evaluate(context.Background(), rel, client, domain.ActionRead, domain.ResourceProject, &ref)
		require.NoError(t, err)
		assert.Equal(t, Deny, dec.Effect)
	})

	t.Run("all writes denied", func(t *testing.T) {
		ref := domain.ResourceRef{Type: domain.ResourceProject, ID: "p-mine"}
		for _, action := range []domain.Action{domain.ActionCreate, domain.ActionUpdate, domain.ActionDelete} {
			dec, err := Evaluate(context.Background(), rel, client, action, domain.ResourceProject, &ref)
			require.NoError(t, err)
			assert.Equal(t, Deny, dec.Effect, "client %s must be denied", action)
		}
	})

	t.Run("list is scoped to the client login", func(t *testing.T) {
		dec, err := Evaluate(context.Background(), rel, client, domain.ActionList, domain.ResourceProject, nil)
		require.NoError(t, err)
		require.Equal(t, Scoped, dec.Effect)
		assert.Equal(t, "login-1", dec.Scope.ClientUserID)
	})
}

func TestEvaluateUnrecognizedRole(t *testing.T) {
	p := domain.Principal{ID: "x", Role: domain.Role(99)}
	dec, err := Evaluate(context.Background(), nil, p, domain.ActionRead, domain.ResourceProject, &domain.ResourceRef{Type: domain.ResourceProject, ID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, Deny, dec.Effect)
}

func TestDenialError(t *testing.T) {
	assert.ErrorIs(t, DenialError(domain.Principal{Role: domain.RoleStaff}), domain.ErrForbidden)
	assert.ErrorIs(t, DenialError(domain.Principal{Role: domain.RoleAdmin}), domain.ErrForbidden)
	// Clients must not learn whether the record exists.
	assert.ErrorIs(t, DenialError(domain.Principal{Role: domain.RoleClient}), domain.ErrNotFound)
}
