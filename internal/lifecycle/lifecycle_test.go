package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierhq/portal-backend/internal/domain"
)

func TestCheckTaskTransition(t *testing.T) {
	cases := []struct {
		name string
		role domain.Role
		from domain.TaskStatus
		to   domain.TaskStatus
		ok   bool
	}{
		{"staff pending to in-progress", domain.RoleStaff, domain.TaskPending, domain.TaskInProgress, true},
		{"staff pending straight to completed", domain.RoleStaff, domain.TaskPending, domain.TaskCompleted, true},
		{"staff completed back to in-progress", domain.RoleStaff, domain.TaskCompleted, domain.TaskInProgress, true},
		{"staff cannot leave cancelled", domain.RoleStaff, domain.TaskCancelled, domain.TaskPending, false},
		{"admin may leave cancelled", domain.RoleAdmin, domain.TaskCancelled, domain.TaskPending, true},
		{"admin forces any defined status", domain.RoleAdmin, domain.TaskCompleted, domain.TaskCancelled, true},
		{"same status is a no-op", domain.RoleStaff, domain.TaskCancelled, domain.TaskCancelled, true},
		{"unknown status rejected for admin too", domain.RoleAdmin, domain.TaskPending, domain.TaskStatus("archived"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckTaskTransition(tc.role, tc.from, tc.to)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.True(t, domain.IsValidation(err))
			}
		})
	}
}

func TestCheckSprintTransition(t *testing.T) {
	cases := []struct {
		name string
		role domain.Role
		from domain.SprintStatus
		to   domain.SprintStatus
		ok   bool
	}{
		{"pending to in-progress", domain.RoleStaff, domain.SprintPending, domain.SprintInProgress, true},
		{"in-progress to finished", domain.RoleStaff, domain.SprintInProgress, domain.SprintFinished, true},
		{"in-progress to delayed", domain.RoleStaff, domain.SprintInProgress, domain.SprintDelayed, true},
		{"delayed resumes", domain.RoleStaff, domain.SprintDelayed, domain.SprintInProgress, true},
		{"pending cannot skip to finished", domain.RoleStaff, domain.SprintPending, domain.SprintFinished, false},
		{"finished is terminal for staff", domain.RoleStaff, domain.SprintFinished, domain.SprintInProgress, false},
		{"admin reopens finished", domain.RoleAdmin, domain.SprintFinished, domain.SprintInProgress, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckSprintTransition(tc.role, tc.from, tc.to)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCheckProjectTransition(t *testing.T) {
	cases := []struct {
		name string
		role domain.Role
		from domain.ProjectStatus
		to   domain.ProjectStatus
		ok   bool
	}{
		{"pending to in-progress", domain.RoleStaff, domain.ProjectPending, domain.ProjectInProgress, true},
		{"in-progress to completed", domain.RoleStaff, domain.ProjectInProgress, domain.ProjectCompleted, true},
		{"on-hold resumes", domain.RoleStaff, domain.ProjectOnHold, domain.ProjectInProgress, true},
		{"pending cannot complete directly", domain.RoleStaff, domain.ProjectPending, domain.ProjectCompleted, false},
		{"completed is terminal for staff", domain.RoleStaff, domain.ProjectCompleted, domain.ProjectInProgress, false},
		{"cancelled is terminal for staff", domain.RoleStaff, domain.ProjectCancelled, domain.ProjectPending, false},
		{"admin reopens completed", domain.RoleAdmin, domain.ProjectCompleted, domain.ProjectInProgress, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckProjectTransition(tc.role, tc.from, tc.to)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestApplyTaskStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("entering completed stamps CompletedAt", func(t *testing.T) {
		task := &domain.Task{Status: domain.TaskInProgress}
		ApplyTaskStatus(task, domain.TaskCompleted, now)
		require.NotNil(t, task.CompletedAt)
		assert.Equal(t, now, *task.CompletedAt)
	})

	t.Run("leaving completed clears CompletedAt", func(t *testing.T) {
		at := now
		task := &domain.Task{Status: domain.TaskCompleted, CompletedAt: &at}
		ApplyTaskStatus(task, domain.TaskInProgress, now.Add(time.Hour))
		assert.Nil(t, task.CompletedAt)
	})

	t.Run("completed to completed keeps original stamp", func(t *testing.T) {
		at := now
		task := &domain.Task{Status: domain.TaskCompleted, CompletedAt: &at}
		ApplyTaskStatus(task, domain.TaskCompleted, now.Add(time.Hour))
		require.NotNil(t, task.CompletedAt)
		assert.Equal(t, now, *task.CompletedAt)
	})

	t.Run("cancelling a completed task clears CompletedAt", func(t *testing.T) {
		at := now
		task := &domain.Task{Status: domain.TaskCompleted, CompletedAt: &at}
		ApplyTaskStatus(task, domain.TaskCancelled, now.Add(time.Hour))
		assert.Nil(t, task.CompletedAt)
	})
}

func TestApplyProjectStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("entering completed stamps ActualEndDate", func(t *testing.T) {
		p := &domain.Project{Status: domain.ProjectInProgress}
		ApplyProjectStatus(p, domain.ProjectCompleted, now)
		require.NotNil(t, p.ActualEndDate)
		assert.Equal(t, now, *p.ActualEndDate)
	})

	t.Run("reopening leaves the stamp in place", func(t *testing.T) {
		at := now
		p := &domain.Project{Status: domain.ProjectCompleted, ActualEndDate: &at}
		ApplyProjectStatus(p, domain.ProjectInProgress, now.Add(time.Hour))
		require.NotNil(t, p.ActualEndDate)
		assert.Equal(t, now, *p.ActualEndDate)
	})

	t.Run("cancelling never stamps", func(t *testing.T) {
		p := &domain.Project{Status: domain.ProjectInProgress}
		ApplyProjectStatus(p, domain.ProjectCancelled, now)
		assert.Nil(t, p.ActualEndDate)
	})
}

func TestToggleMilestone(t *testing.T) {
	p := &domain.Project{
		Milestones: []domain.Milestone{
			{ID: "m1", Seq: 0, Title: "kickoff"},
			{ID: "m2", Seq: 1, Title: "beta", Completed: true},
		},
	}

	assert.True(t, ToggleMilestone(p, "m1"))
	assert.True(t, p.Milestones[0].Completed)

	assert.True(t, ToggleMilestone(p, "m2"))
	assert.False(t, p.Milestones[1].Completed)

	assert.False(t, ToggleMilestone(p, "missing"))
}
