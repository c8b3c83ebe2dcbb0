package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/atelierhq/portal-backend/internal/access"
	"github.com/atelierhq/portal-backend/internal/domain"
)

// Memory is an in-process Store used by tests and local development. A
// transaction holds the store lock for its whole body and restores a
// snapshot on error, so commits are all-or-nothing and concurrent
// transactions serialize the same way row locks do in Postgres.
type Memory struct {
	mu sync.Mutex

	accounts map[string]*domain.ClientAccount
	projects map[string]*domain.Project
	sprints  map[string]*domain.Sprint
	tasks    map[string]*domain.Task
	files    map[string]*domain.File
}

func NewMemory() *Memory {
	return &Memory{
		accounts: map[string]*domain.ClientAccount{},
		projects: map[string]*domain.Project{},
		sprints:  map[string]*domain.Sprint{},
		tasks:    map[string]*domain.Task{},
		files:    map[string]*domain.File{},
	}
}

// --- copies -----------------------------------------------------------

func copyAccount(a *domain.ClientAccount) *domain.ClientAccount {
	c := *a
	c.AssignedTo = append([]string(nil), a.AssignedTo...)
	return &c
}

func copyProject(p *domain.Project) *domain.Project {
	c := *p
	c.AssignedTo = append([]string(nil), p.AssignedTo...)
	c.Milestones = append([]domain.Milestone(nil), p.Milestones...)
	if p.ActualEndDate != nil {
		d := *p.ActualEndDate
		c.ActualEndDate = &d
	}
	return &c
}

func copySprint(s *domain.Sprint) *domain.Sprint {
	c := *s
	return &c
}

func copyTask(t *domain.Task) *domain.Task {
	c := *t
	if t.SprintID != nil {
		v := *t.SprintID
		c.SprintID = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	if t.DueDate != nil {
		v := *t.DueDate
		c.DueDate = &v
	}
	if t.EstimatedHours != nil {
		v := *t.EstimatedHours
		c.EstimatedHours = &v
	}
	if t.ActualHours != nil {
		v := *t.ActualHours
		c.ActualHours = &v
	}
	return &c
}

func copyFile(f *domain.File) *domain.File {
	c := *f
	if f.ProjectID != nil {
		v := *f.ProjectID
		c.ProjectID = &v
	}
	if f.SprintID != nil {
		v := *f.SprintID
		c.SprintID = &v
	}
	c.Tags = append([]string(nil), f.Tags...)
	return &c
}

func (m *Memory) snapshot() *Memory {
	s := NewMemory()
	for k, v := range m.accounts {
		s.accounts[k] = copyAccount(v)
	}
	for k, v := range m.projects {
		s.projects[k] = copyProject(v)
	}
	for k, v := range m.sprints {
		s.sprints[k] = copySprint(v)
	}
	for k, v := range m.tasks {
		s.tasks[k] = copyTask(v)
	}
	for k, v := range m.files {
		s.files[k] = copyFile(v)
	}
	return s
}

func (m *Memory) restore(s *Memory) {
	m.accounts = s.accounts
	m.projects = s.projects
	m.sprints = s.sprints
	m.tasks = s.tasks
	m.files = s.files
}

// --- reads ------------------------------------------------------------

func (m *Memory) GetClientAccount(ctx context.Context, id string) (*domain.ClientAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getAccountLocked(id)
}

func (m *Memory) getAccountLocked(id string) (*domain.ClientAccount, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyAccount(a), nil
}

func (m *Memory) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getProjectLocked(id)
}

func (m *Memory) getProjectLocked(id string) (*domain.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyProject(p), nil
}

func (m *Memory) GetSprint(ctx context.Context, id string) (*domain.Sprint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getSprintLocked(id)
}

func (m *Memory) getSprintLocked(id string) (*domain.Sprint, error) {
	s, ok := m.sprints[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copySprint(s), nil
}

func (m *Memory) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getTaskLocked(id)
}

func (m *Memory) getTaskLocked(id string) (*domain.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyTask(t), nil
}

func (m *Memory) GetFile(ctx context.Context, id string) (*domain.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getFileLocked(id)
}

func (m *Memory) getFileLocked(id string) (*domain.File, error) {
	f, ok := m.files[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyFile(f), nil
}

// --- scope evaluation -------------------------------------------------

func memberOf(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (m *Memory) accountVisibleLocked(scope access.Scope, a *domain.ClientAccount) bool {
	switch {
	case scope.All:
		return true
	case scope.StaffID != "":
		return memberOf(a.AssignedTo, scope.StaffID)
	case scope.ClientUserID != "":
		return a.ClientUserID != "" && a.ClientUserID == scope.ClientUserID
	}
	return false
}

func (m *Memory) projectVisibleLocked(scope access.Scope, p *domain.Project) bool {
	switch {
	case scope.All:
		return true
	case scope.StaffID != "":
		if memberOf(p.AssignedTo, scope.StaffID) {
			return true
		}
		if a, ok := m.accounts[p.ClientID]; ok {
			return memberOf(a.AssignedTo, scope.StaffID)
		}
		return false
	case scope.ClientUserID != "":
		a, ok := m.accounts[p.ClientID]
		return ok && a.ClientUserID != "" && a.ClientUserID == scope.ClientUserID
	}
	return false
}

func (m *Memory) taskVisibleLocked(scope access.Scope, t *domain.Task) bool {
	if scope.All {
		return true
	}
	if scope.StaffID != "" && t.AssigneeID == scope.StaffID {
		return true
	}
	p, ok := m.projects[t.ProjectID]
	if !ok {
		return false
	}
	return m.projectVisibleLocked(scope, p)
}

func (m *Memory) sprintVisibleLocked(scope access.Scope, s *domain.Sprint) bool {
	if scope.All {
		return true
	}
	p, ok := m.projects[s.ProjectID]
	if !ok {
		return false
	}
	return m.projectVisibleLocked(scope, p)
}

func (m *Memory) fileVisibleLocked(scope access.Scope, f *domain.File) bool {
	if scope.All {
		return true
	}
	if f.ProjectID == nil {
		// Unlinked files have no assignment lineage: admin-only.
		return false
	}
	p, ok := m.projects[*f.ProjectID]
	if !ok {
		return false
	}
	return m.projectVisibleLocked(scope, p)
}

// --- lists ------------------------------------------------------------

func (m *Memory) ListClientAccounts(ctx context.Context, scope access.Scope) ([]domain.ClientAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.ClientAccount{}
	for _, a := range m.accounts {
		if m.accountVisibleLocked(scope, a) {
			out = append(out, *copyAccount(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ListProjects(ctx context.Context, scope access.Scope, f ProjectFilter) ([]domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Project{}
	for _, p := range m.projects {
		if f.ClientID != "" && p.ClientID != f.ClientID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if m.projectVisibleLocked(scope, p) {
			out = append(out, *copyProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ListSprints(ctx context.Context, scope access.Scope, f SprintFilter) ([]domain.Sprint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Sprint{}
	for _, s := range m.sprints {
		if f.ProjectID != "" && s.ProjectID != f.ProjectID {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if m.sprintVisibleLocked(scope, s) {
			out = append(out, *copySprint(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (m *Memory) ListTasks(ctx context.Context, scope access.Scope, f TaskFilter) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Task{}
	for _, t := range m.tasks {
		if f.ProjectID != "" && t.ProjectID != f.ProjectID {
			continue
		}
		if f.SprintID != "" && (t.SprintID == nil || *t.SprintID != f.SprintID) {
			continue
		}
		if f.AssigneeID != "" && t.AssigneeID != f.AssigneeID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if m.taskVisibleLocked(scope, t) {
			out = append(out, *copyTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ListFiles(ctx context.Context, scope access.Scope, f FileFilter) ([]domain.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.File{}
	for _, file := range m.files {
		if f.ProjectID != "" && (file.ProjectID == nil || *file.ProjectID != f.ProjectID) {
			continue
		}
		if f.SprintID != "" && (file.SprintID == nil || *file.SprintID != f.SprintID) {
			continue
		}
		if f.Tag != "" && !memberOf(file.Tags, f.Tag) {
			continue
		}
		if m.fileVisibleLocked(scope, file) {
			out = append(out, *copyFile(file))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- transactions -----------------------------------------------------

type memTx struct {
	m *Memory
}

func (m *Memory) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snapshot()
	if err := fn(&memTx{m: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (t *memTx) GetClientAccount(ctx context.Context, id string) (*domain.ClientAccount, error) {
	return t.m.getAccountLocked(id)
}
func (t *memTx) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	return t.m.getProjectLocked(id)
}
func (t *memTx) GetSprint(ctx context.Context, id string) (*domain.Sprint, error) {
	return t.m.getSprintLocked(id)
}
func (t *memTx) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return t.m.getTaskLocked(id)
}
func (t *memTx) GetFile(ctx context.Context, id string) (*domain.File, error) {
	return t.m.getFileLocked(id)
}

// Under the store mutex every read is already exclusive.
func (t *memTx) GetProjectForUpdate(ctx context.Context, id string) (*domain.Project, error) {
	return t.m.getProjectLocked(id)
}
func (t *memTx) GetSprintForUpdate(ctx context.Context, id string) (*domain.Sprint, error) {
	return t.m.getSprintLocked(id)
}

func (t *memTx) CreateClientAccount(ctx context.Context, a *domain.ClientAccount) error {
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt, a.Revision = now, now, 1
	t.m.accounts[a.ID] = copyAccount(a)
	return nil
}

func (t *memTx) UpdateClientAccount(ctx context.Context, a *domain.ClientAccount) error {
	cur, ok := t.m.accounts[a.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Revision != a.Revision {
		return domain.ErrConflict
	}
	a.Revision++
	a.UpdatedAt = time.Now().UTC()
	t.m.accounts[a.ID] = copyAccount(a)
	return nil
}

func (t *memTx) CreateProject(ctx context.Context, p *domain.Project) error {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt, p.Revision = now, now, 1
	t.m.projects[p.ID] = copyProject(p)
	return nil
}

func (t *memTx) UpdateProject(ctx context.Context, p *domain.Project) error {
	cur, ok := t.m.projects[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Revision != p.Revision {
		return domain.ErrConflict
	}
	p.Revision++
	p.UpdatedAt = time.Now().UTC()
	t.m.projects[p.ID] = copyProject(p)
	return nil
}

func (t *memTx) DeleteProjectChildren(ctx context.Context, projectID string) error {
	for id, task := range t.m.tasks {
		if task.ProjectID == projectID {
			delete(t.m.tasks, id)
		}
	}
	for id, f := range t.m.files {
		if f.ProjectID != nil && *f.ProjectID == projectID {
			delete(t.m.files, id)
		}
	}
	for id, s := range t.m.sprints {
		if s.ProjectID == projectID {
			delete(t.m.sprints, id)
		}
	}
	return nil
}

func (t *memTx) DeleteProject(ctx context.Context, id string) error {
	if _, ok := t.m.projects[id]; !ok {
		return domain.ErrNotFound
	}
	delete(t.m.projects, id)
	return nil
}

func (t *memTx) SetMilestoneCompleted(ctx context.Context, projectID, milestoneID string, completed bool) error {
	p, ok := t.m.projects[projectID]
	if !ok {
		return domain.ErrNotFound
	}
	for i := range p.Milestones {
		if p.Milestones[i].ID == milestoneID {
			p.Milestones[i].Completed = completed
			p.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return domain.ErrNotFound
}

func (t *memTx) CreateSprint(ctx context.Context, s *domain.Sprint) error {
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt, s.Revision = now, now, 1
	t.m.sprints[s.ID] = copySprint(s)
	return nil
}

func (t *memTx) UpdateSprint(ctx context.Context, s *domain.Sprint) error {
	cur, ok := t.m.sprints[s.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Revision != s.Revision {
		return domain.ErrConflict
	}
	// Counters are not writable through the generic update path.
	s.CompletedTasksCount = cur.CompletedTasksCount
	s.TotalTasksCount = cur.TotalTasksCount
	s.Revision++
	s.UpdatedAt = time.Now().UTC()
	t.m.sprints[s.ID] = copySprint(s)
	return nil
}

func (t *memTx) DetachSprintChildren(ctx context.Context, sprintID string) error {
	now := time.Now().UTC()
	for _, task := range t.m.tasks {
		if task.SprintID != nil && *task.SprintID == sprintID {
			task.SprintID = nil
			task.Revision++
			task.UpdatedAt = now
		}
	}
	for _, f := range t.m.files {
		if f.SprintID != nil && *f.SprintID == sprintID {
			f.SprintID = nil
			f.Revision++
			f.UpdatedAt = now
		}
	}
	return nil
}

func (t *memTx) DeleteSprint(ctx context.Context, id string) error {
	if _, ok := t.m.sprints[id]; !ok {
		return domain.ErrNotFound
	}
	delete(t.m.sprints, id)
	return nil
}

func (t *memTx) CreateTask(ctx context.Context, task *domain.Task) error {
	now := time.Now().UTC()
	task.CreatedAt, task.UpdatedAt, task.Revision = now, now, 1
	t.m.tasks[task.ID] = copyTask(task)
	return nil
}

func (t *memTx) UpdateTask(ctx context.Context, task *domain.Task) error {
	cur, ok := t.m.tasks[task.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Revision != task.Revision {
		return domain.ErrConflict
	}
	task.Revision++
	task.UpdatedAt = time.Now().UTC()
	t.m.tasks[task.ID] = copyTask(task)
	return nil
}

func (t *memTx) DeleteTask(ctx context.Context, id string) error {
	if _, ok := t.m.tasks[id]; !ok {
		return domain.ErrNotFound
	}
	delete(t.m.tasks, id)
	return nil
}

func (t *memTx) CreateFile(ctx context.Context, f *domain.File) error {
	now := time.Now().UTC()
	f.CreatedAt, f.UpdatedAt, f.Revision = now, now, 1
	t.m.files[f.ID] = copyFile(f)
	return nil
}

func (t *memTx) UpdateFile(ctx context.Context, f *domain.File) error {
	cur, ok := t.m.files[f.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Revision != f.Revision {
		return domain.ErrConflict
	}
	f.Revision++
	f.UpdatedAt = time.Now().UTC()
	t.m.files[f.ID] = copyFile(f)
	return nil
}

func (t *memTx) DeleteFile(ctx context.Context, id string) error {
	if _, ok := t.m.files[id]; !ok {
		return domain.ErrNotFound
	}
	delete(t.m.files, id)
	return nil
}

func (t *memTx) CountSprintTasks(ctx context.Context, sprintID string) (total, completed int, err error) {
	for _, task := range t.m.tasks {
		if task.SprintID != nil && *task.SprintID == sprintID {
			total++
			if task.Status == domain.TaskCompleted {
				completed++
			}
		}
	}
	return total, completed, nil
}

func (t *memTx) UpdateSprintCounters(ctx context.Context, sprintID string, total, completed int) error {
	s, ok := t.m.sprints[sprintID]
	if !ok {
		return domain.ErrNotFound
	}
	s.TotalTasksCount = total
	s.CompletedTasksCount = completed
	s.UpdatedAt = time.Now().UTC()
	return nil
}
