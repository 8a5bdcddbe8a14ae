package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresRepo stores events in function_call_events. The *sql.DB is expected
// to use the pgx stdlib driver.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const schema = `
CREATE TABLE IF NOT EXISTS function_call_events (
	id              UUID PRIMARY KEY,
	function_name   TEXT NOT NULL,
	call_id         TEXT NOT NULL DEFAULT '',
	conversation_id TEXT NOT NULL DEFAULT '',
	status          INTEGER NOT NULL,
	ok              BOOLEAN NOT NULL,
	error_code      TEXT NOT NULL DEFAULT '',
	booking_id      TEXT NOT NULL DEFAULT '',
	duration_ms     BIGINT NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS function_call_events_created_at_idx ON function_call_events (created_at DESC);
`

// EnsureSchema creates the table if missing.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("audit: ensure schema: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO function_call_events
	(id, function_name, call_id, conversation_id, status, ok, error_code, booking_id, duration_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.FunctionName,
		e.CallID,
		e.ConversationID,
		e.Status,
		e.OK,
		e.ErrorCode,
		e.BookingID,
		e.DurationMS,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: insert event: %w", err)
	}
	return nil
}

func (r *PostgresRepo) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	const q = `
SELECT id, function_name, call_id, conversation_id, status, ok, error_code, booking_id, duration_ms, created_at
FROM function_call_events
ORDER BY created_at DESC
LIMIT $1
`
	rows, err := r.db.QueryContext(ctx, q, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("audit: list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID,
			&e.FunctionName,
			&e.CallID,
			&e.ConversationID,
			&e.Status,
			&e.OK,
			&e.ErrorCode,
			&e.BookingID,
			&e.DurationMS,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
