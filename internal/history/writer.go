package history

import (
	"context"
	"database/sql"
	"time"

	"ekanban/internal/domain"
)

// Writer appends kanban transition history inside the caller's transaction.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

func (w Writer) Append(ctx context.Context, tx *sql.Tx, kanbanID, previousStatus, nextStatus int64, role domain.Role, actorID string) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx,
		`INSERT INTO kanban_histories(kanban_id,previous_status,next_status,actor_role,actor_id,recorded_at) VALUES (?,?,?,?,?,?)`,
		kanbanID, previousStatus, nextStatus, int(role), nullable(actorID), ts)
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
