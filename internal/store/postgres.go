package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelierhq/portal-backend/internal/access"
	"github.com/atelierhq/portal-backend/internal/domain"
)

// Postgres implements Store on pgx. Transactions set a bounded
// lock_timeout; lock contention and serialization failures surface as
// domain.ErrConflict so callers can re-fetch and retry.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func mapPgErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03", "40001", "40P01": // lock timeout, serialization, deadlock
			return domain.ErrConflict
		case "23503": // foreign key violation: a concurrent write raced the delete sweep
			return domain.ErrConflict
		case "08000", "08003", "08006", "57P01": // connection failures
			return fmt.Errorf("%w: %v", domain.ErrFatal, err)
		}
	}
	return err
}

// --- client accounts --------------------------------------------------

const accountCols = `id, name, email, coalesce(company, ''), coalesce(client_user_id, ''), account_balance, assigned_to, revision, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.ClientAccount, error) {
	var a domain.ClientAccount
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Company, &a.ClientUserID,
		&a.AccountBalance, &a.AssignedTo, &a.Revision, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapPgErr(err)
	}
	if a.AssignedTo == nil {
		a.AssignedTo = []string{}
	}
	return &a, nil
}

func getClientAccount(ctx context.Context, q querier, id string) (*domain.ClientAccount, error) {
	query := `select ` + accountCols + ` from client_accounts where id = $1;`
	return scanAccount(q.QueryRow(ctx, query, id))
}

func (s *Postgres) GetClientAccount(ctx context.Context, id string) (*domain.ClientAccount, error) {
	return getClientAccount(ctx, s.db, id)
}

// --- projects ---------------------------------------------------------

const projectCols = `id, client_id, name, status, assigned_to, start_date, projected_end_date, actual_end_date, budget_amount, currency, revision, created_at, updated_at`

func scanProject(row pgx.Row) (*domain.Project, error) {
	var p domain.Project
	err := row.Scan(&p.ID, &p.ClientID, &p.Name, &p.Status, &p.AssignedTo,
		&p.StartDate, &p.ProjectedEndDate, &p.ActualEndDate,
		&p.BudgetAmount, &p.Currency, &p.Revision, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapPgErr(err)
	}
	if p.AssignedTo == nil {
		p.AssignedTo = []string{}
	}
	return &p, nil
}

func loadMilestones(ctx context.Context, q querier, projectID string) ([]domain.Milestone, error) {
	const query = `
select id, seq, title, date, completed, coalesce(description, '')
from project_milestones
where project_id = $1
order by seq;
`
	rows, err := q.Query(ctx, query, projectID)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	out := []domain.Milestone{}
	for rows.Next() {
		var m domain.Milestone
		if err := rows.Scan(&m.ID, &m.Seq, &m.Title, &m.Date, &m.Completed, &m.Description); err != nil {
			return nil, mapPgErr(err)
		}
		out = append(out, m)
	}
	return out, mapPgErr(rows.Err())
}

func getProject(ctx context.Context, q querier, id string, forUpdate bool) (*domain.Project, error) {
	query := `select ` + projectCols + ` from projects where id = $1`
	if forUpdate {
		query += ` for update`
	}
	p, err := scanProject(q.QueryRow(ctx, query+`;`, id))
	if err != nil {
		return nil, err
	}
	ms, err := loadMilestones(ctx, q, id)
	if err != nil {
		return nil, err
	}
	p.Milestones = ms
	return p, nil
}

func (s *Postgres) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	return getProject(ctx, s.db, id, false)
}

// --- sprints ----------------------------------------------------------

const sprintCols = `id, project_id, name, status, start_date, end_date, completed_tasks_count, total_tasks_count, revision, created_at, updated_at`

func scanSprint(row pgx.Row) (*domain.Sprint, error) {
	var sp domain.Sprint
	err := row.Scan(&sp.ID, &sp.ProjectID, &sp.Name, &sp.Status, &sp.StartDate, &sp.EndDate,
		&sp.CompletedTasksCount, &sp.TotalTasksCount, &sp.Revision, &sp.CreatedAt, &sp.UpdatedAt)
	if err != nil {
		return nil, mapPgErr(err)
	}
	return &sp, nil
}

func getSprint(ctx context.Context, q querier, id string, forUpdate bool) (*domain.Sprint, error) {
	query := `select ` + sprintCols + ` from sprints where id = $1`
	if forUpdate {
		query += ` for update`
	}
	return scanSprint(q.QueryRow(ctx, query+`;`, id))
}

func (s *Postgres) GetSprint(ctx context.Context, id string) (*domain.Sprint, error) {
	return getSprint(ctx, s.db, id, false)
}

// --- tasks ------------------------------------------------------------

const taskCols = `id, project_id, sprint_id, assignee_id, title, status, priority, due_date, completed_at, estimated_hours, actual_hours, revision, created_at, updated_at`

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	err := row.Scan(&t.ID, &t.ProjectID, &t.SprintID, &t.AssigneeID, &t.Title, &t.Status,
		&t.Priority, &t.DueDate, &t.CompletedAt, &t.EstimatedHours, &t.ActualHours,
		&t.Revision, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapPgErr(err)
	}
	return &t, nil
}

func getTask(ctx context.Context, q querier, id string) (*domain.Task, error) {
	query := `select ` + taskCols + ` from tasks where id = $1;`
	return scanTask(q.QueryRow(ctx, query, id))
}

func (s *Postgres) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return getTask(ctx, s.db, id)
}

// --- files ------------------------------------------------------------

const fileCols = `id, project_id, sprint_id, name, file_type, coalesce(version, ''), tags, coalesce(storage_key, ''), revision, created_at, updated_at`

func scanFile(row pgx.Row) (*domain.File, error) {
	var f domain.File
	err := row.Scan(&f.ID, &f.ProjectID, &f.SprintID, &f.Name, &f.FileType, &f.Version,
		&f.Tags, &f.StorageKey, &f.Revision, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, mapPgErr(err)
	}
	if f.Tags == nil {
		f.Tags = []string{}
	}
	return &f, nil
}

func getFile(ctx context.Context, q querier, id string) (*domain.File, error) {
	query := `select ` + fileCols + ` from files where id = $1;`
	return scanFile(q.QueryRow(ctx, query, id))
}

func (s *Postgres) GetFile(ctx context.Context, id string) (*domain.File, error) {
	return getFile(ctx, s.db, id)
}

// --- scope fragments --------------------------------------------------

// Each fragment references the aliased row and appends one bind arg. An
// empty scope (no role matched) yields "false": default-deny.

func accountScopeSQL(scope access.Scope, args *[]any) string {
	switch {
	case scope.All:
		return "true"
	case scope.StaffID != "":
		*args = append(*args, scope.StaffID)
		return fmt.Sprintf("$%d = any(a.assigned_to)", len(*args))
	case scope.ClientUserID != "":
		*args = append(*args, scope.ClientUserID)
		return fmt.Sprintf("a.client_user_id = $%d", len(*args))
	}
	return "false"
}

// projectScopeSQL assumes the project row is aliased p.
func projectScopeSQL(scope access.Scope, args *[]any) string {
	switch {
	case scope.All:
		return "true"
	case scope.StaffID != "":
		*args = append(*args, scope.StaffID)
		n := len(*args)
		return fmt.Sprintf(`($%d = any(p.assigned_to) or exists (
			select 1 from client_accounts a where a.id = p.client_id and $%d = any(a.assigned_to)))`, n, n)
	case scope.ClientUserID != "":
		*args = append(*args, scope.ClientUserID)
		return fmt.Sprintf(`exists (
			select 1 from client_accounts a where a.id = p.client_id and a.client_user_id = $%d)`, len(*args))
	}
	return "false"
}

// projectLineageSQL scopes a child row by the project identified by the
// given column expression.
func projectLineageSQL(projectIDExpr string, scope access.Scope, args *[]any) string {
	inner := projectScopeSQL(scope, args)
	if inner == "true" || inner == "false" {
		return inner
	}
	return fmt.Sprintf(`exists (select 1 from projects p where p.id = %s and %s)`, projectIDExpr, inner)
}

// --- lists ------------------------------------------------------------

func (s *Postgres) ListClientAccounts(ctx context.Context, scope access.Scope) ([]domain.ClientAccount, error) {
	args := []any{}
	query := `select ` + accountCols + ` from client_accounts a where ` +
		accountScopeSQL(scope, &args) + ` order by created_at desc;`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	out := []domain.ClientAccount{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, mapPgErr(rows.Err())
}

func (s *Postgres) ListProjects(ctx context.Context, scope access.Scope, f ProjectFilter) ([]domain.Project, error) {
	args := []any{}
	where := projectScopeSQL(scope, &args)
	if f.ClientID != "" {
		args = append(args, f.ClientID)
		where += fmt.Sprintf(" and p.client_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where += fmt.Sprintf(" and p.status = $%d", len(args))
	}
	query := `select ` + projectCols + ` from projects p where ` + where + ` order by created_at desc;`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	out := []domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgErr(err)
	}
	for i := range out {
		ms, err := loadMilestones(ctx, s.db, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Milestones = ms
	}
	return out, nil
}

func (s *Postgres) ListSprints(ctx context.Context, scope access.Scope, f SprintFilter) ([]domain.Sprint, error) {
	args := []any{}
	where := projectLineageSQL("s.project_id", scope, &args)
	if f.ProjectID != "" {
		args = append(args, f.ProjectID)
		where += fmt.Sprintf(" and s.project_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where += fmt.Sprintf(" and s.status = $%d", len(args))
	}
	query := `select ` + sprintCols + ` from sprints s where ` + where + ` order by start_date;`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	out := []domain.Sprint{}
	for rows.Next() {
		sp, err := scanSprint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sp)
	}
	return out, mapPgErr(rows.Err())
}

func (s *Postgres) ListTasks(ctx context.Context, scope access.Scope, f TaskFilter) ([]domain.Task, error) {
	args := []any{}
	where := projectLineageSQL("t.project_id", scope, &args)
	// Task-level assignment supersedes project scoping for staff reads.
	if scope.StaffID != "" {
		args = append(args, scope.StaffID)
		where = fmt.Sprintf("(t.assignee_id = $%d or %s)", len(args), where)
	}
	if f.ProjectID != "" {
		args = append(args, f.ProjectID)
		where += fmt.Sprintf(" and t.project_id = $%d", len(args))
	}
	if f.SprintID != "" {
		args = append(args, f.SprintID)
		where += fmt.Sprintf(" and t.sprint_id = $%d", len(args))
	}
	if f.AssigneeID != "" {
		args = append(args, f.AssigneeID)
		where += fmt.Sprintf(" and t.assignee_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where += fmt.Sprintf(" and t.status = $%d", len(args))
	}
	query := `select ` + taskCols + ` from tasks t where ` + where + ` order by created_at desc;`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	out := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, mapPgErr(rows.Err())
}

func (s *Postgres) ListFiles(ctx context.Context, scope access.Scope, f FileFilter) ([]domain.File, error) {
	args := []any{}
	var where string
	if scope.All {
		where = "true"
	} else {
		// Unlinked files have no lineage: visible only to admins.
		where = "f.project_id is not null and " + projectLineageSQL("f.project_id", scope, &args)
	}
	if f.ProjectID != "" {
		args = append(args, f.ProjectID)
		where += fmt.Sprintf(" and f.project_id = $%d", len(args))
	}
	if f.SprintID != "" {
		args = append(args, f.SprintID)
		where += fmt.Sprintf(" and f.sprint_id = $%d", len(args))
	}
	if f.Tag != "" {
		args = append(args, f.Tag)
		where += fmt.Sprintf(" and $%d = any(f.tags)", len(args))
	}
	query := `select ` + fileCols + ` from files f where ` + where + ` order by created_at desc;`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	out := []domain.File{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *file)
	}
	return out, mapPgErr(rows.Err())
}

// --- transactions -----------------------------------------------------

type pgTx struct {
	tx pgx.Tx
}

func (s *Postgres) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin: %v", domain.ErrFatal, err)
	}
	defer tx.Rollback(ctx)

	// Bounded lock wait: contention comes back as ErrConflict, never a
	// partially applied mutation.
	if _, err := tx.Exec(ctx, `set local lock_timeout = '3s';`); err != nil {
		return mapPgErr(err)
	}

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPgErr(err)
	}
	return nil
}

func (t *pgTx) GetClientAccount(ctx context.Context, id string) (*domain.ClientAccount, error) {
	return getClientAccount(ctx, t.tx, id)
}
func (t *pgTx) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	return getProject(ctx, t.tx, id, false)
}
func (t *pgTx) GetProjectForUpdate(ctx context.Context, id string) (*domain.Project, error) {
	return getProject(ctx, t.tx, id, true)
}
func (t *pgTx) GetSprint(ctx context.Context, id string) (*domain.Sprint, error) {
	return getSprint(ctx, t.tx, id, false)
}
func (t *pgTx) GetSprintForUpdate(ctx context.Context, id string) (*domain.Sprint, error) {
	return getSprint(ctx, t.tx, id, true)
}
func (t *pgTx) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return getTask(ctx, t.tx, id)
}
func (t *pgTx) GetFile(ctx context.Context, id string) (*domain.File, error) {
	return getFile(ctx, t.tx, id)
}

func (t *pgTx) CreateClientAccount(ctx context.Context, a *domain.ClientAccount) error {
	const q = `
insert into client_accounts (id, name, email, company, client_user_id, account_balance, assigned_to, revision)
values ($1, $2, $3, nullif($4,''), nullif($5,''), $6, $7, 1)
returning revision, created_at, updated_at;
`
	err := t.tx.QueryRow(ctx, q, a.ID, a.Name, a.Email, a.Company, a.ClientUserID,
		a.AccountBalance, a.AssignedTo).Scan(&a.Revision, &a.CreatedAt, &a.UpdatedAt)
	return mapPgErr(err)
}

// occNoRows disambiguates a revision-checked update that matched no rows:
// a vanished row is NotFound, a stale revision is Conflict.
func (t *pgTx) occNoRows(ctx context.Context, table, id string) error {
	var exists bool
	if err := t.tx.QueryRow(ctx, `select exists (select 1 from `+table+` where id = $1);`, id).Scan(&exists); err != nil {
		return mapPgErr(err)
	}
	if exists {
		return domain.ErrConflict
	}
	return domain.ErrNotFound
}

func (t *pgTx) UpdateClientAccount(ctx context.Context, a *domain.ClientAccount) error {
	const q = `
update client_accounts
set name = $3, email = $4, company = nullif($5,''), client_user_id = nullif($6,''),
    account_balance = $7, assigned_to = $8, revision = revision + 1, updated_at = now()
where id = $1 and revision = $2
returning revision, updated_at;
`
	err := t.tx.QueryRow(ctx, q, a.ID, a.Revision, a.Name, a.Email, a.Company, a.ClientUserID,
		a.AccountBalance, a.AssignedTo).Scan(&a.Revision, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return t.occNoRows(ctx, "client_accounts", a.ID)
	}
	return mapPgErr(err)
}

func (t *pgTx) CreateProject(ctx context.Context, p *domain.Project) error {
	const q = `
insert into projects (id, client_id, name, status, assigned_to, start_date, projected_end_date, budget_amount, currency, revision)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
returning revision, created_at, updated_at;
`
	err := t.tx.QueryRow(ctx, q, p.ID, p.ClientID, p.Name, p.Status, p.AssignedTo,
		p.StartDate, p.ProjectedEndDate, p.BudgetAmount, p.Currency).
		Scan(&p.Revision, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return mapPgErr(err)
	}
	return t.replaceMilestones(ctx, p)
}

func (t *pgTx) replaceMilestones(ctx context.Context, p *domain.Project) error {
	if _, err := t.tx.Exec(ctx, `delete from project_milestones where project_id = $1;`, p.ID); err != nil {
		return mapPgErr(err)
	}
	const q = `
insert into project_milestones (id, project_id, seq, title, date, completed, description)
values ($1, $2, $3, $4, $5, $6, nullif($7,''));
`
	for i := range p.Milestones {
		m := &p.Milestones[i]
		m.Seq = i
		if _, err := t.tx.Exec(ctx, q, m.ID, p.ID, m.Seq, m.Title, m.Date, m.Completed, m.Description); err != nil {
			return mapPgErr(err)
		}
	}
	return nil
}

func (t *pgTx) UpdateProject(ctx context.Context, p *domain.Project) error {
	const q = `
update projects
set name = $3, status = $4, assigned_to = $5, start_date = $6, projected_end_date = $7,
    actual_end_date = $8, budget_amount = $9, currency = $10, revision = revision + 1, updated_at = now()
where id = $1 and revision = $2
returning revision, updated_at;
`
	err := t.tx.QueryRow(ctx, q, p.ID, p.Revision, p.Name, p.Status, p.AssignedTo,
		p.StartDate, p.ProjectedEndDate, p.ActualEndDate, p.BudgetAmount, p.Currency).
		Scan(&p.Revision, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return t.occNoRows(ctx, "projects", p.ID)
	}
	if err != nil {
		return mapPgErr(err)
	}
	return t.replaceMilestones(ctx, p)
}

func (t *pgTx) DeleteProjectChildren(ctx context.Context, projectID string) error {
	// Tasks and files first, then sprints; milestones cascade with the
	// project row itself.
	stmts := []string{
		`delete from tasks where project_id = $1;`,
		`delete from files where project_id = $1;`,
		`delete from sprints where project_id = $1;`,
	}
	for _, q := range stmts {
		if _, err := t.tx.Exec(ctx, q, projectID); err != nil {
			return mapPgErr(err)
		}
	}
	return nil
}

func (t *pgTx) DeleteProject(ctx context.Context, id string) error {
	ct, err := t.tx.Exec(ctx, `delete from projects where id = $1;`, id)
	if err != nil {
		return mapPgErr(err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *pgTx) SetMilestoneCompleted(ctx context.Context, projectID, milestoneID string, completed bool) error {
	const q = `
update project_milestones
set completed = $3
where project_id = $1 and id = $2;
`
	ct, err := t.tx.Exec(ctx, q, projectID, milestoneID, completed)
	if err != nil {
		return mapPgErr(err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *pgTx) CreateSprint(ctx context.Context, sp *domain.Sprint) error {
	const q = `
insert into sprints (id, project_id, name, status, start_date, end_date, completed_tasks_count, total_tasks_count, revision)
values ($1, $2, $3, $4, $5, $6, 0, 0, 1)
returning completed_tasks_count, total_tasks_count, revision, created_at, updated_at;
`
	err := t.tx.QueryRow(ctx, q, sp.ID, sp.ProjectID, sp.Name, sp.Status, sp.StartDate, sp.EndDate).
		Scan(&sp.CompletedTasksCount, &sp.TotalTasksCount, &sp.Revision, &sp.CreatedAt, &sp.UpdatedAt)
	return mapPgErr(err)
}

func (t *pgTx) UpdateSprint(ctx context.Context, sp *domain.Sprint) error {
	// Counters are deliberately absent: only the recount path writes them.
	const q = `
update sprints
set name = $3, status = $4, start_date = $5, end_date = $6, revision = revision + 1, updated_at = now()
where id = $1 and revision = $2
returning completed_tasks_count, total_tasks_count, revision, updated_at;
`
	err := t.tx.QueryRow(ctx, q, sp.ID, sp.Revision, sp.Name, sp.Status, sp.StartDate, sp.EndDate).
		Scan(&sp.CompletedTasksCount, &sp.TotalTasksCount, &sp.Revision, &sp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return t.occNoRows(ctx, "sprints", sp.ID)
	}
	return mapPgErr(err)
}

func (t *pgTx) DetachSprintChildren(ctx context.Context, sprintID string) error {
	const qTasks = `
update tasks
set sprint_id = null, revision = revision + 1, updated_at = now()
where sprint_id = $1;
`
	if _, err := t.tx.Exec(ctx, qTasks, sprintID); err != nil {
		return mapPgErr(err)
	}
	const qFiles = `
update files
set sprint_id = null, revision = revision + 1, updated_at = now()
where sprint_id = $1;
`
	_, err := t.tx.Exec(ctx, qFiles, sprintID)
	return mapPgErr(err)
}

func (t *pgTx) DeleteSprint(ctx context.Context, id string) error {
	ct, err := t.tx.Exec(ctx, `delete from sprints where id = $1;`, id)
	if err != nil {
		return mapPgErr(err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *pgTx) CreateTask(ctx context.Context, task *domain.Task) error {
	const q = `
insert into tasks (id, project_id, sprint_id, assignee_id, title, status, priority, due_date, completed_at, estimated_hours, actual_hours, revision)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1)
returning revision, created_at, updated_at;
`
	err := t.tx.QueryRow(ctx, q, task.ID, task.ProjectID, task.SprintID, task.AssigneeID,
		task.Title, task.Status, task.Priority, task.DueDate, task.CompletedAt,
		task.EstimatedHours, task.ActualHours).
		Scan(&task.Revision, &task.CreatedAt, &task.UpdatedAt)
	return mapPgErr(err)
}

func (t *pgTx) UpdateTask(ctx context.Context, task *domain.Task) error {
	const q = `
update tasks
set sprint_id = $3, assignee_id = $4, title = $5, status = $6, priority = $7,
    due_date = $8, completed_at = $9, estimated_hours = $10, actual_hours = $11,
    revision = revision + 1, updated_at = now()
where id = $1 and revision = $2
returning revision, updated_at;
`
	err := t.tx.QueryRow(ctx, q, task.ID, task.Revision, task.SprintID, task.AssigneeID,
		task.Title, task.Status, task.Priority, task.DueDate, task.CompletedAt,
		task.EstimatedHours, task.ActualHours).
		Scan(&task.Revision, &task.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return t.occNoRows(ctx, "tasks", task.ID)
	}
	return mapPgErr(err)
}

func (t *pgTx) DeleteTask(ctx context.Context, id string) error {
	ct, err := t.tx.Exec(ctx, `delete from tasks where id = $1;`, id)
	if err != nil {
		return mapPgErr(err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *pgTx) CreateFile(ctx context.Context, f *domain.File) error {
	const q = `
insert into files (id, project_id, sprint_id, name, file_type, version, tags, storage_key, revision)
values ($1, $2, $3, $4, $5, nullif($6,''), $7, nullif($8,''), 1)
returning revision, created_at, updated_at;
`
	err := t.tx.QueryRow(ctx, q, f.ID, f.ProjectID, f.SprintID, f.Name, f.FileType,
		f.Version, f.Tags, f.StorageKey).
		Scan(&f.Revision, &f.CreatedAt, &f.UpdatedAt)
	return mapPgErr(err)
}

func (t *pgTx) UpdateFile(ctx context.Context, f *domain.File) error {
	const q = `
update files
set project_id = $3, sprint_id = $4, name = $5, file_type = $6, version = nullif($7,''),
    tags = $8, revision = revision + 1, updated_at = now()
where id = $1 and revision = $2
returning revision, updated_at;
`
	err := t.tx.QueryRow(ctx, q, f.ID, f.Revision, f.ProjectID, f.SprintID, f.Name,
		f.FileType, f.Version, f.Tags).
		Scan(&f.Revision, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return t.occNoRows(ctx, "files", f.ID)
	}
	return mapPgErr(err)
}

func (t *pgTx) DeleteFile(ctx context.Context, id string) error {
	ct, err := t.tx.Exec(ctx, `delete from files where id = $1;`, id)
	if err != nil {
		return mapPgErr(err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *pgTx) CountSprintTasks(ctx context.Context, sprintID string) (total, completed int, err error) {
	const q = `
select count(*), count(*) filter (where status = 'completed')
from tasks
where sprint_id = $1;
`
	err = t.tx.QueryRow(ctx, q, sprintID).Scan(&total, &completed)
	return total, completed, mapPgErr(err)
}

func (t *pgTx) UpdateSprintCounters(ctx context.Context, sprintID string, total, completed int) error {
	const q = `
update sprints
set total_tasks_count = $2, completed_tasks_count = $3, updated_at = now()
where id = $1;
`
	ct, err := t.tx.Exec(ctx, q, sprintID, total, completed)
	if err != nil {
		return mapPgErr(err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
