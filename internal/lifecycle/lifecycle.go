// Package lifecycle owns the entity state machines and their transition
// side effects. Transition checks are pure; Apply* helpers mutate the
// entity in memory and the gateway persists the result atomically with
// any aggregate recounts.
package lifecycle

import (
	"time"

	"github.com/atelierhq/portal-backend/internal/domain"
)

// taskEdges enumerates legal task transitions. cancelled is terminal for
// staff; an admin override may leave it.
var taskEdges = map[domain.TaskStatus][]domain.TaskStatus{
	domain.TaskPending:    {domain.TaskInProgress, domain.TaskCompleted, domain.TaskCancelled},
	domain.TaskInProgress: {domain.TaskPending, domain.TaskCompleted, domain.TaskCancelled},
	domain.TaskCompleted:  {domain.TaskPending, domain.TaskInProgress, domain.TaskCancelled},
	domain.TaskCancelled:  {},
}

var sprintEdges = map[domain.SprintStatus][]domain.SprintStatus{
	domain.SprintPending:    {domain.SprintInProgress},
	domain.SprintInProgress: {domain.SprintFinished, domain.SprintDelayed},
	domain.SprintDelayed:    {domain.SprintInProgress},
	domain.SprintFinished:   {},
}

var projectEdges = map[domain.ProjectStatus][]domain.ProjectStatus{
	domain.ProjectPending:    {domain.ProjectInProgress, domain.ProjectOnHold, domain.ProjectCancelled},
	domain.ProjectInProgress: {domain.ProjectCompleted, domain.ProjectOnHold, domain.ProjectCancelled},
	domain.ProjectOnHold:     {domain.ProjectPending, domain.ProjectInProgress, domain.ProjectCancelled},
	domain.ProjectCompleted:  {},
	domain.ProjectCancelled:  {},
}

func edgeAllowed[S comparable](edges map[S][]S, from, to S) bool {
	for _, next := range edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTaskTransition validates from→to for the given role. Admins may
// additionally leave cancelled (the uncancel override) and may force any
// defined status from any status.
func CheckTaskTransition(role domain.Role, from, to domain.TaskStatus) error {
	if !to.Valid() {
		return domain.Validationf("status", "unknown task status %q", to)
	}
	if from == to {
		return nil
	}
	if role == domain.RoleAdmin {
		return nil
	}
	if from == domain.TaskCancelled {
		return domain.Validationf("status", "task is cancelled; only an admin may reopen it")
	}
	if !edgeAllowed(taskEdges, from, to) {
		return domain.Validationf("status", "cannot move task from %q to %q", from, to)
	}
	return nil
}

// ApplyTaskStatus moves the task and keeps CompletedAt in lockstep:
// non-nil iff completed, stamped on entry, cleared on any exit.
func ApplyTaskStatus(t *domain.Task, to domain.TaskStatus, now time.Time) {
	from := t.Status
	t.Status = to
	switch {
	case to == domain.TaskCompleted && from != domain.TaskCompleted:
		at := now.UTC()
		t.CompletedAt = &at
	case to != domain.TaskCompleted:
		t.CompletedAt = nil
	}
}

func CheckSprintTransition(role domain.Role, from, to domain.SprintStatus) error {
	if !to.Valid() {
		return domain.Validationf("status", "unknown sprint status %q", to)
	}
	if from == to {
		return nil
	}
	if role == domain.RoleAdmin {
		return nil
	}
	if !edgeAllowed(sprintEdges, from, to) {
		return domain.Validationf("status", "cannot move sprint from %q to %q", from, to)
	}
	return nil
}

func CheckProjectTransition(role domain.Role, from, to domain.ProjectStatus) error {
	if !to.Valid() {
		return domain.Validationf("status", "unknown project status %q", to)
	}
	if from == to {
		return nil
	}
	if role == domain.RoleAdmin {
		return nil
	}
	if !edgeAllowed(projectEdges, from, to) {
		return domain.Validationf("status", "cannot move project from %q to %q", from, to)
	}
	return nil
}

// ApplyProjectStatus moves the project. ActualEndDate is stamped exactly
// on entry to completed and otherwise left untouched; correcting it later
// is a separate admin edit, not a lifecycle effect.
func ApplyProjectStatus(p *domain.Project, to domain.ProjectStatus, now time.Time) {
	from := p.Status
	p.Status = to
	if to == domain.ProjectCompleted && from != domain.ProjectCompleted {
		at := now.UTC()
		p.ActualEndDate = &at
	}
}

// ToggleMilestone flips completion of the milestone with the given stable
// id. Reports false when the id is not part of the project.
func ToggleMilestone(p *domain.Project, milestoneID string) bool {
	for i := range p.Milestones {
		if p.Milestones[i].ID == milestoneID {
			p.Milestones[i].Completed = !p.Milestones[i].Completed
			return true
		}
	}
	return false
}
