package domain

import "time"

// Principal is the already-authenticated caller handed to this engine by
// the auth layer: a stable identity plus one of the three roles.
type Principal struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// ResourceRef points at one record of a given type.
type ResourceRef struct {
	Type ResourceType
	ID   string
}

// ClientAccount is a tenancy root: a customer organization and everything
// under its projects belongs to it.
type ClientAccount struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Company        string    `json:"company,omitempty"`
	ClientUserID   string    `json:"client_user_id,omitempty"` // portal login that owns this account's client view
	AccountBalance int64     `json:"account_balance"`          // minor currency units; positive means the customer owes
	AssignedTo     []string  `json:"assigned_to"`
	Revision       int64     `json:"revision"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Project is the second tenancy root level. ClientID is required and
// treated as immutable after creation.
type Project struct {
	ID               string        `json:"id"`
	ClientID         string        `json:"client_id"`
	Name             string        `json:"name"`
	Status           ProjectStatus `json:"status"`
	AssignedTo       []string      `json:"assigned_to"`
	StartDate        time.Time     `json:"start_date"`
	ProjectedEndDate time.Time     `json:"projected_end_date"`
	ActualEndDate    *time.Time    `json:"actual_end_date,omitempty"`
	Milestones       []Milestone   `json:"milestones"`
	BudgetAmount     int64         `json:"budget_amount"`
	Currency         string        `json:"currency"`
	Revision         int64         `json:"revision"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Milestone rows carry a stable ID so toggles address one record and can
// never race on array positions. Seq preserves insertion order and is the
// order every read returns them in.
type Milestone struct {
	ID          string    `json:"id"`
	Seq         int       `json:"seq"`
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Completed   bool      `json:"completed"`
	Description string    `json:"description,omitempty"`
}

// Sprint belongs to exactly one project. The two counters are derived
// projections maintained by the aggregation recount; no request payload
// ever binds them.
type Sprint struct {
	ID                  string       `json:"id"`
	ProjectID           string       `json:"project_id"`
	Name                string       `json:"name"`
	Status              SprintStatus `json:"status"`
	StartDate           time.Time    `json:"start_date"`
	EndDate             time.Time    `json:"end_date"`
	CompletedTasksCount int          `json:"completed_tasks_count"`
	TotalTasksCount     int          `json:"total_tasks_count"`
	Revision            int64        `json:"revision"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// Task belongs to exactly one project, at most one sprint, and exactly one
// staff assignee. CompletedAt is engine-maintained: non-nil iff Status is
// completed.
type Task struct {
	ID             string       `json:"id"`
	ProjectID      string       `json:"project_id"`
	SprintID       *string      `json:"sprint_id,omitempty"`
	AssigneeID     string       `json:"assignee_id"`
	Title          string       `json:"title"`
	Status         TaskStatus   `json:"status"`
	Priority       TaskPriority `json:"priority"`
	DueDate        *time.Time   `json:"due_date,omitempty"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
	EstimatedHours *float64     `json:"estimated_hours,omitempty"`
	ActualHours    *float64     `json:"actual_hours,omitempty"`
	Revision       int64        `json:"revision"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// File is metadata about a stored blob, optionally linked to a project
// and/or sprint. Version here is the document version label, not a
// concurrency token.
type File struct {
	ID         string    `json:"id"`
	ProjectID  *string   `json:"project_id,omitempty"`
	SprintID   *string   `json:"sprint_id,omitempty"`
	Name       string    `json:"name"`
	FileType   string    `json:"file_type"`
	Version    string    `json:"version,omitempty"`
	Tags       []string  `json:"tags"`
	StorageKey string    `json:"storage_key,omitempty"`
	Revision   int64     `json:"revision"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Ref helpers used by the relationship graph and access engine.

func (c *ClientAccount) Ref() ResourceRef { return ResourceRef{Type: ResourceClientAccount, ID: c.ID} }
func (p *Project) Ref() ResourceRef { return ResourceRef{Type: ResourceProject, ID: p.ID} }
func (s *Sprint) Ref() ResourceRef { return ResourceRef{Type: ResourceSprint, ID: s.ID} }
func (t *Task) Ref() ResourceRef { return ResourceRef{Type: ResourceTask, ID: t.ID} }
func (f *File) Ref() ResourceRef { return ResourceRef{Type: ResourceFile, ID: f.ID} }
