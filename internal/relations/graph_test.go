package relations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierhq/portal-backend/internal/domain"
)

// countingReader serves fixtures and counts loads so memoization is
// observable.
type countingReader struct {
	accounts map[string]*domain.ClientAccount
	projects map[string]*domain.Project
	sprints  map[string]*domain.Sprint
	tasks    map[string]*domain.Task
	files    map[string]*domain.File
	loads    int
}

func (r *countingReader) GetClientAccount(ctx context.Context, id string) (*domain.ClientAccount, error) {
	r.loads++
	if a, ok := r.accounts[id]; ok {
		return a, nil
	}
	return nil, domain.ErrNotFound
}

func (r *countingReader) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	r.loads++
	if p, ok := r.projects[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (r *countingReader) GetSprint(ctx context.Context, id string) (*domain.Sprint, error) {
	r.loads++
	if s, ok := r.sprints[id]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

func (r *countingReader) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	r.loads++
	if t, ok := r.tasks[id]; ok {
		return t, nil
	}
	return nil, domain.ErrNotFound
}

func (r *countingReader) GetFile(ctx context.Context, id string) (*domain.File, error) {
	r.loads++
	if f, ok := r.files[id]; ok {
		return f, nil
	}
	return nil, domain.ErrNotFound
}

func fixtureReader() *countingReader {
	sprintID := "s1"
	return &countingReader{
		accounts: map[string]*domain.ClientAccount{
			"a1": {ID: "a1", ClientUserID: "login-1", AssignedTo: []string{"staff-acct"}},
		},
		projects: map[string]*domain.Project{
			"p1": {ID: "p1", ClientID: "a1", AssignedTo: []string{"staff-proj"}},
		},
		sprints: map[string]*domain.Sprint{
			"s1": {ID: "s1", ProjectID: "p1"},
		},
		tasks: map[string]*domain.Task{
			"t1": {ID: "t1", ProjectID: "p1", SprintID: &sprintID, AssigneeID: "staff-task"},
		},
		files: map[string]*domain.File{
			"f1": {ID: "f1"},
		},
	}
}

func TestAncestors(t *testing.T) {
	r := fixtureReader()
	g := NewGraph(r)

	t.Run("task walks sprint, project, account", func(t *testing.T) {
		anc, err := g.Ancestors(context.Background(), domain.ResourceRef{Type: domain.ResourceTask, ID: "t1"})
		require.NoError(t, err)
		require.Len(t, anc, 3)
		assert.Equal(t, domain.ResourceSprint, anc[0].Type)
		assert.Equal(t, "s1", anc[0].ID)
		assert.Equal(t, domain.ResourceProject, anc[1].Type)
		assert.Equal(t, domain.ResourceClientAccount, anc[2].Type)
		assert.Equal(t, "a1", anc[2].ID)
	})

	t.Run("account has no ancestors", func(t *testing.T) {
		anc, err := g.Ancestors(context.Background(), domain.ResourceRef{Type: domain.ResourceClientAccount, ID: "a1"})
		require.NoError(t, err)
		assert.Empty(t, anc)
	})

	t.Run("unlinked file has no ancestors", func(t *testing.T) {
		anc, err := g.Ancestors(context.Background(), domain.ResourceRef{Type: domain.ResourceFile, ID: "f1"})
		require.NoError(t, err)
		assert.Empty(t, anc)
	})
}

func TestGraphMemoizes(t *testing.T) {
	r := fixtureReader()
	g := NewGraph(r)
	ref := domain.ResourceRef{Type: domain.ResourceTask, ID: "t1"}

	_, err := g.Ancestors(context.Background(), ref)
	require.NoError(t, err)
	first := r.loads

	// Every question after the first walk is answered from the memo.
	_, err = g.Ancestors(context.Background(), ref)
	require.NoError(t, err)
	_, err = g.OwnerAccount(context.Background(), ref)
	require.NoError(t, err)
	ok, err := g.IsAssignedInLineage(context.Background(), "staff-proj", ref)
	require.NoError(t, err)
	assert.True(t, ok)

	// OwnerClientUser loads the account once; everything else is memoized.
	_, err = g.OwnerClientUser(context.Background(), ref)
	require.NoError(t, err)

	assert.Equal(t, first+1, r.loads)
}

func TestIsAssignedInLineage(t *testing.T) {
	ref := domain.ResourceRef{Type: domain.ResourceTask, ID: "t1"}

	cases := []struct {
		name      string
		principal string
		want      bool
	}{
		{"task assignee", "staff-task", true},
		{"project member", "staff-proj", true},
		{"account member", "staff-acct", true},
		{"stranger", "staff-none", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGraph(fixtureReader())
			ok, err := g.IsAssignedInLineage(context.Background(), tc.principal, ref)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestOwnerClientUser(t *testing.T) {
	g := NewGraph(fixtureReader())

	owner, err := g.OwnerClientUser(context.Background(), domain.ResourceRef{Type: domain.ResourceSprint, ID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "login-1", owner)

	owner, err = g.OwnerClientUser(context.Background(), domain.ResourceRef{Type: domain.ResourceFile, ID: "f1"})
	require.NoError(t, err)
	assert.Equal(t, "", owner)
}

func TestGraphMissingRecord(t *testing.T) {
	g := NewGraph(fixtureReader())
	_, err := g.Ancestors(context.Background(), domain.ResourceRef{Type: domain.ResourceTask, ID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
