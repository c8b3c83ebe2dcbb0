package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierhq/portal-backend/internal/domain"
	"github.com/atelierhq/portal-backend/internal/store"
)

var (
	admin    = domain.Principal{ID: "adm-1", Role: domain.RoleAdmin}
	staff    = domain.Principal{ID: "staff-1", Role: domain.RoleStaff}
	outsider = domain.Principal{ID: "staff-2", Role: domain.RoleStaff}
	client   = domain.Principal{ID: "login-1", Role: domain.RoleClient}
)

type fixture struct {
	gw      *Gateway
	account *domain.ClientAccount
	project *domain.Project
	sprint  *domain.Sprint
}

// newFixture seeds one account owned by client login-1 with staff-1
// assigned to its project, plus one sprint.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	gw := New(store.NewMemory())

	account, err := gw.CreateClientAccount(ctx, admin, CreateClientAccountInput{
		Name:         "Acme",
		Email:        "ops@acme.test",
		ClientUserID: client.ID,
	})
	require.NoError(t, err)

	project, err := gw.CreateProject(ctx, admin, CreateProjectInput{
		ClientID:   account.ID,
		Name:       "Website relaunch",
		AssignedTo: []string{staff.ID},
		Milestones: []MilestoneInput{
			{Title: "kickoff", Date: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)},
			{Title: "beta", Date: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)},
			{Title: "launch", Date: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)},
		},
	})
	require.NoError(t, err)

	sprint, err := gw.CreateSprint(ctx, admin, CreateSprintInput{
		ProjectID: project.ID,
		Name:      "Sprint 1",
	})
	require.NoError(t, err)

	return &fixture{gw: gw, account: account, project: project, sprint: sprint}
}

func (f *fixture) newTask(t *testing.T, sprintID *string) *domain.Task {
	t.Helper()
	task, err := f.gw.CreateTask(context.Background(), admin, CreateTaskInput{
		ProjectID:  f.project.ID,
		SprintID:   sprintID,
		AssigneeID: staff.ID,
		Title:      "build the thing",
	})
	require.NoError(t, err)
	return task
}

func TestAccessScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("assigned staff reads the project", func(t *testing.T) {
		got, err := f.gw.GetProject(ctx, staff, f.project.ID)
		require.NoError(t, err)
		assert.Equal(t, f.project.ID, got.ID)
	})

	t.Run("unassigned staff gets forbidden", func(t *testing.T) {
		_, err := f.gw.GetProject(ctx, outsider, f.project.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("client reads within its account", func(t *testing.T) {
		got, err := f.gw.GetProject(ctx, client, f.project.ID)
		require.NoError(t, err)
		assert.Equal(t, f.project.ID, got.ID)
	})

	t.Run("foreign client sees not-found, never forbidden", func(t *testing.T) {
		other := domain.Principal{ID: "login-2", Role: domain.RoleClient}
		_, err := f.gw.GetProject(ctx, other, f.project.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("client cannot mutate anything", func(t *testing.T) {
		_, err := f.gw.UpdateProjectStatus(ctx, client, f.project.ID, domain.ProjectInProgress)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = f.gw.CreateTask(ctx, client, CreateTaskInput{
			ProjectID: f.project.ID, AssigneeID: staff.ID, Title: "x",
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("staff cannot delete", func(t *testing.T) {
		err := f.gw.DeleteProject(ctx, staff, f.project.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("staff cannot create a task in a project out of reach", func(t *testing.T) {
		_, err := f.gw.CreateTask(ctx, outsider, CreateTaskInput{
			ProjectID: f.project.ID, AssigneeID: outsider.ID, Title: "sneak in",
		})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("lists are scoped per principal", func(t *testing.T) {
		f.newTask(t, nil)

		mine, err := f.gw.ListProjects(ctx, staff, store.ProjectFilter{})
		require.NoError(t, err)
		assert.Len(t, mine, 1)

		none, err := f.gw.ListProjects(ctx, outsider, store.ProjectFilter{})
		require.NoError(t, err)
		assert.Empty(t, none)

		theirs, err := f.gw.ListProjects(ctx, client, store.ProjectFilter{})
		require.NoError(t, err)
		assert.Len(t, theirs, 1)
	})
}

func TestSprintRecount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	counters := func() (int, int) {
		sp, err := f.gw.GetSprint(ctx, admin, f.sprint.ID)
		require.NoError(t, err)
		return sp.CompletedTasksCount, sp.TotalTasksCount
	}

	t.Run("create and complete", func(t *testing.T) {
		t1 := f.newTask(t, &f.sprint.ID)
		f.newTask(t, &f.sprint.ID)

		done, total := counters()
		assert.Equal(t, 0, done)
		assert.Equal(t, 2, total)

		got, err := f.gw.UpdateTaskStatus(ctx, staff, t1.ID, domain.TaskCompleted)
		require.NoError(t, err)
		require.NotNil(t, got.CompletedAt)

		done, total = counters()
		assert.Equal(t, 1, done)
		assert.Equal(t, 2, total)
	})

	t.Run("reopening a task decrements", func(t *testing.T) {
		t3 := f.newTask(t, &f.sprint.ID)
		_, err := f.gw.UpdateTaskStatus(ctx, staff, t3.ID, domain.TaskCompleted)
		require.NoError(t, err)

		got, err := f.gw.UpdateTaskStatus(ctx, staff, t3.ID, domain.TaskInProgress)
		require.NoError(t, err)
		assert.Nil(t, got.CompletedAt)

		done, total := counters()
		assert.Equal(t, 1, done)
		assert.Equal(t, 3, total)
	})

	t.Run("deleting a completed task decrements both", func(t *testing.T) {
		t4 := f.newTask(t, &f.sprint.ID)
		_, err := f.gw.UpdateTaskStatus(ctx, staff, t4.ID, domain.TaskCompleted)
		require.NoError(t, err)

		require.NoError(t, f.gw.DeleteTask(ctx, admin, t4.ID))

		done, total := counters()
		assert.Equal(t, 1, done)
		assert.Equal(t, 3, total)
	})

	t.Run("moving a task recounts both sprints", func(t *testing.T) {
		second, err := f.gw.CreateSprint(ctx, admin, CreateSprintInput{
			ProjectID: f.project.ID, Name: "Sprint 2",
		})
		require.NoError(t, err)

		t5 := f.newTask(t, &f.sprint.ID)
		_, err = f.gw.UpdateTaskStatus(ctx, staff, t5.ID, domain.TaskCompleted)
		require.NoError(t, err)

		_, err = f.gw.UpdateTask(ctx, staff, t5.ID, UpdateTaskInput{SprintID: &second.ID})
		require.NoError(t, err)

		done, total := counters()
		assert.Equal(t, 1, done)
		assert.Equal(t, 3, total)

		sp2, err := f.gw.GetSprint(ctx, admin, second.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, sp2.CompletedTasksCount)
		assert.Equal(t, 1, sp2.TotalTasksCount)
	})

	t.Run("detaching a task removes it from the count", func(t *testing.T) {
		t6 := f.newTask(t, &f.sprint.ID)
		detach := ""
		_, err := f.gw.UpdateTask(ctx, staff, t6.ID, UpdateTaskInput{SprintID: &detach})
		require.NoError(t, err)

		done, total := counters()
		assert.Equal(t, 1, done)
		assert.Equal(t, 3, total)
	})
}

func TestDeleteProjectRemovesChildren(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.newTask(t, &f.sprint.ID)
	file, err := f.gw.CreateFile(ctx, admin, CreateFileInput{
		ProjectID: &f.project.ID,
		Name:      "brief.pdf",
		FileType:  "pdf",
	})
	require.NoError(t, err)

	require.NoError(t, f.gw.DeleteProject(ctx, admin, f.project.ID))

	_, err = f.gw.GetSprint(ctx, admin, f.sprint.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.gw.GetTask(ctx, admin, task.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.gw.GetFile(ctx, admin, file.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteSprintDetachesChildren(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.newTask(t, &f.sprint.ID)
	file, err := f.gw.CreateFile(ctx, admin, CreateFileInput{
		ProjectID: &f.project.ID,
		SprintID:  &f.sprint.ID,
		Name:      "burndown.png",
		FileType:  "png",
	})
	require.NoError(t, err)

	require.NoError(t, f.gw.DeleteSprint(ctx, admin, f.sprint.ID))

	got, err := f.gw.GetTask(ctx, admin, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got.SprintID)

	gotFile, err := f.gw.GetFile(ctx, admin, file.ID)
	require.NoError(t, err)
	assert.Nil(t, gotFile.SprintID)

	// The backlogged task stays editable.
	title := "build the thing, regroomed"
	upd, err := f.gw.UpdateTask(ctx, admin, task.ID, UpdateTaskInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, upd.Title)
}

func TestConcurrentCompletions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 100
	ids := make([]string, n)
	for i := range ids {
		ids[i] = f.newTask(t, &f.sprint.ID).ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.gw.UpdateTaskStatus(ctx, admin, id, domain.TaskCompleted)
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	sp, err := f.gw.GetSprint(ctx, admin, f.sprint.ID)
	require.NoError(t, err)
	assert.Equal(t, n, sp.CompletedTasksCount)
	assert.Equal(t, n, sp.TotalTasksCount)
}

func TestTaskLifecycleRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.newTask(t, nil)
	_, err := f.gw.UpdateTaskStatus(ctx, staff, task.ID, domain.TaskCancelled)
	require.NoError(t, err)

	t.Run("staff cannot reopen cancelled", func(t *testing.T) {
		_, err := f.gw.UpdateTaskStatus(ctx, staff, task.ID, domain.TaskPending)
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("admin override reopens", func(t *testing.T) {
		got, err := f.gw.UpdateTaskStatus(ctx, admin, task.ID, domain.TaskPending)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskPending, got.Status)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		_, err := f.gw.UpdateTaskStatus(ctx, admin, task.ID, domain.TaskStatus("archived"))
		assert.True(t, domain.IsValidation(err))
	})
}

func TestProjectLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("completion stamps the end date once", func(t *testing.T) {
		_, err := f.gw.UpdateProjectStatus(ctx, staff, f.project.ID, domain.ProjectInProgress)
		require.NoError(t, err)

		done, err := f.gw.UpdateProjectStatus(ctx, staff, f.project.ID, domain.ProjectCompleted)
		require.NoError(t, err)
		require.NotNil(t, done.ActualEndDate)
		stamp := *done.ActualEndDate

		// Admin reopens and completes again; the stamp moves with the new
		// completion, but reopening alone leaves it.
		reopened, err := f.gw.UpdateProjectStatus(ctx, admin, f.project.ID, domain.ProjectInProgress)
		require.NoError(t, err)
		require.NotNil(t, reopened.ActualEndDate)
		assert.Equal(t, stamp, *reopened.ActualEndDate)
	})

	t.Run("illegal move rejected for staff", func(t *testing.T) {
		_, err := f.gw.UpdateProjectStatus(ctx, staff, f.project.ID, domain.ProjectPending)
		assert.True(t, domain.IsValidation(err))
	})
}

func TestToggleMilestone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("toggle by index", func(t *testing.T) {
		got, err := f.gw.ToggleMilestone(ctx, staff, f.project.ID, 1)
		require.NoError(t, err)
		assert.True(t, got.Milestones[1].Completed)
		assert.False(t, got.Milestones[0].Completed)

		got, err = f.gw.ToggleMilestone(ctx, staff, f.project.ID, 1)
		require.NoError(t, err)
		assert.False(t, got.Milestones[1].Completed)
	})

	t.Run("out of range index", func(t *testing.T) {
		_, err := f.gw.ToggleMilestone(ctx, staff, f.project.ID, 7)
		assert.True(t, domain.IsValidation(err))
		_, err = f.gw.ToggleMilestone(ctx, staff, f.project.ID, -1)
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("concurrent toggles on different indices both land", func(t *testing.T) {
		var wg sync.WaitGroup
		for _, idx := range []int{0, 2} {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				_, err := f.gw.ToggleMilestone(ctx, staff, f.project.ID, idx)
				assert.NoError(t, err)
			}(idx)
		}
		wg.Wait()

		got, err := f.gw.GetProject(ctx, admin, f.project.ID)
		require.NoError(t, err)
		assert.True(t, got.Milestones[0].Completed)
		assert.True(t, got.Milestones[2].Completed)
	})
}

func TestLineageValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	otherAccount, err := f.gw.CreateClientAccount(ctx, admin, CreateClientAccountInput{
		Name: "Globex", Email: "ops@globex.test",
	})
	require.NoError(t, err)
	otherProject, err := f.gw.CreateProject(ctx, admin, CreateProjectInput{
		ClientID: otherAccount.ID, Name: "Other",
	})
	require.NoError(t, err)
	otherSprint, err := f.gw.CreateSprint(ctx, admin, CreateSprintInput{
		ProjectID: otherProject.ID, Name: "S1",
	})
	require.NoError(t, err)

	t.Run("task cannot reference a sprint of another project", func(t *testing.T) {
		_, err := f.gw.CreateTask(ctx, admin, CreateTaskInput{
			ProjectID:  f.project.ID,
			SprintID:   &otherSprint.ID,
			AssigneeID: staff.ID,
			Title:      "cross-tenant",
		})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("moving a task across projects via sprint is rejected", func(t *testing.T) {
		task := f.newTask(t, &f.sprint.ID)
		_, err := f.gw.UpdateTask(ctx, admin, task.ID, UpdateTaskInput{SprintID: &otherSprint.ID})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("unknown project rejected", func(t *testing.T) {
		_, err := f.gw.CreateTask(ctx, admin, CreateTaskInput{
			ProjectID: "missing", AssigneeID: staff.ID, Title: "x",
		})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("file sprint link requires matching project", func(t *testing.T) {
		_, err := f.gw.CreateFile(ctx, admin, CreateFileInput{
			Name:      "deck.pdf",
			FileType:  "pdf",
			ProjectID: &f.project.ID,
			SprintID:  &otherSprint.ID,
		})
		assert.True(t, domain.IsValidation(err))
	})
}

func TestValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("missing required fields", func(t *testing.T) {
		_, err := f.gw.CreateClientAccount(ctx, admin, CreateClientAccountInput{Email: "x@y.test"})
		assert.True(t, domain.IsValidation(err))

		_, err = f.gw.CreateProject(ctx, admin, CreateProjectInput{Name: "no client"})
		assert.True(t, domain.IsValidation(err))

		_, err = f.gw.CreateTask(ctx, admin, CreateTaskInput{
			ProjectID: f.project.ID, Title: "no assignee",
		})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("date ordering", func(t *testing.T) {
		start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
		_, err := f.gw.CreateProject(ctx, admin, CreateProjectInput{
			ClientID:         f.account.ID,
			Name:             "backwards",
			StartDate:        start,
			ProjectedEndDate: start.AddDate(0, -1, 0),
		})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("unknown priority", func(t *testing.T) {
		_, err := f.gw.CreateTask(ctx, admin, CreateTaskInput{
			ProjectID:  f.project.ID,
			AssigneeID: staff.ID,
			Title:      "x",
			Priority:   domain.TaskPriority("blocker"),
		})
		assert.True(t, domain.IsValidation(err))
	})
}

// recordingPublisher captures post-commit notifications.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) EntityChanged(ctx context.Context, rt domain.ResourceType, action domain.Action, id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, rt.String()+":"+action.String())
}

func TestPublisherFiresOnCommitOnly(t *testing.T) {
	pub := &recordingPublisher{}
	gw := New(store.NewMemory(), WithPublisher(pub))
	ctx := context.Background()

	_, err := gw.CreateClientAccount(ctx, admin, CreateClientAccountInput{
		Name: "Acme", Email: "ops@acme.test",
	})
	require.NoError(t, err)

	// A rejected mutation publishes nothing.
	_, err = gw.CreateProject(ctx, admin, CreateProjectInput{ClientID: "missing", Name: "x"})
	require.Error(t, err)

	assert.Equal(t, []string{"client_account:create"}, pub.events)
}
