package users

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

type UpsertUser struct {
	ExternalUID string
	Email       string
	DisplayName string
}

// EnsureUser upserts by external UID and returns the stable user id plus
// the stored role string. New users land as clients; promotion to staff
// or admin is an administrative edit, never something a request can grant
// itself.
func (r *Repo) EnsureUser(ctx context.Context, u UpsertUser) (id, role string, err error) {
	if u.ExternalUID == "" {
		return "", "", fmt.Errorf("external_uid required")
	}

	const q = `
insert into users (external_uid, email, display_name, role, updated_at)
values ($1, nullif($2,''), nullif($3,''), 'client', now())
on conflict (external_uid) do update
set
  email = coalesce(excluded.email, users.email),
  display_name = coalesce(excluded.display_name, users.display_name),
  updated_at = now()
returning id::text, role;
`
	if err := r.db.QueryRow(ctx, q, u.ExternalUID, u.Email, u.DisplayName).Scan(&id, &role); err != nil {
		return "", "", err
	}
	return id, role, nil
}
