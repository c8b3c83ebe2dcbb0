package reconcile

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Drift is one sprint whose stored counters disagree with the task table.
type Drift struct {
	SprintID    string
	StoredDone  int
	StoredTotal int
	ActualDone  int
	ActualTotal int
}

// Store runs the counter sweep over database/sql. It is deliberately
// separate from the request-path pool so a slow sweep never starves the API.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open reconcile db: %w", err)
	}
	db.SetMaxOpenConns(2)
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// FindDrift returns sprints whose counters no longer match a live recount.
func (s *Store) FindDrift(ctx context.Context) ([]Drift, error) {
	const q = `
		select s.id,
		       s.completed_tasks_count,
		       s.total_tasks_count,
		       coalesce(t.done, 0),
		       coalesce(t.total, 0)
		from sprints s
		left join (
			select sprint_id,
			       count(*) filter (where status = 'completed') as done,
			       count(*) as total
			from tasks
			where sprint_id is not null
			group by sprint_id
		) t on t.sprint_id = s.id
		where s.completed_tasks_count <> coalesce(t.done, 0)
		   or s.total_tasks_count <> coalesce(t.total, 0)`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("find drift: %w", err)
	}
	defer rows.Close()

	var out []Drift
	for rows.Next() {
		var d Drift
		if err := rows.Scan(&d.SprintID, &d.StoredDone, &d.StoredTotal, &d.ActualDone, &d.ActualTotal); err != nil {
			return nil, fmt.Errorf("scan drift: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Repair rewrites one sprint's counters from a recount taken inside the
// same statement, so a task write landing between detection and repair
// still ends with correct numbers.
func (s *Store) Repair(ctx context.Context, sprintID string) error {
	const q = `
		update sprints s
		set completed_tasks_count = c.done,
		    total_tasks_count    = c.total,
		    updated_at           = now()
		from (
			select count(*) filter (where status = 'completed') as done,
			       count(*) as total
			from tasks
			where sprint_id = $1
		) c
		where s.id = $1`

	if _, err := s.db.ExecContext(ctx, q, sprintID); err != nil {
		return fmt.Errorf("repair sprint %s: %w", sprintID, err)
	}
	return nil
}
