package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo persists security events via database/sql (pgx stdlib driver).
//
// Expected schema:
//
//	CREATE TABLE security_events (
//	    id            uuid PRIMARY KEY,
//	    type          text NOT NULL,
//	    service       text NOT NULL DEFAULT '',
//	    ip_address    text NOT NULL DEFAULT '',
//	    method        text NOT NULL DEFAULT '',
//	    path          text NOT NULL DEFAULT '',
//	    request_id    text NOT NULL DEFAULT '',
//	    actor_user_id text NOT NULL DEFAULT '',
//	    actor_role    text NOT NULL DEFAULT '',
//	    message       text NOT NULL DEFAULT '',
//	    created_at    timestamptz NOT NULL
//	);

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const insertEventSQL = `
INSERT INTO security_events
    (id, type, service, ip_address, method, path, request_id, actor_user_id, actor_role, message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx, insertEventSQL,
		e.ID,
		string(e.Type),
		e.Service,
		e.IPAddress,
		e.Method,
		e.Path,
		e.RequestID,
		e.ActorUserID,
		e.ActorRole,
		e.Message,
		e.CreatedAt,
	)
	return err
}
