package postgres

import (
	"context"

	"github.com/cwrk-planet/signal-relay/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the part of *pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type EventRepository struct {
	db DB
}

func NewEventRepository(db DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Save(ctx context.Context, ev *domain.RoomEvent) error {
	query := `
		INSERT INTO room_events (room_id, participant_id, kind, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	return r.db.QueryRow(ctx, query, ev.RoomID, ev.ParticipantID, string(ev.Kind), ev.CreatedAt).Scan(&ev.ID)
}

// List returns events newest first. roomID filters when non-empty.
func (r *EventRepository) List(ctx context.Context, roomID string, limit int, cursorStr string) ([]domain.RoomEvent, string, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	cur, err := DecodeCursor(cursorStr)
	if err != nil {
		return nil, "", err
	}

	query := `
		SELECT id, room_id, participant_id, kind, created_at
		FROM room_events
		WHERE ($1 = '' OR room_id = $1)
		  AND ($2::timestamptz IS NULL OR created_at < $2
		       OR (created_at = $2 AND id < $3))
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	var createdAt, id any
	if cur != nil {
		createdAt = cur.CreatedAt
		id = cur.ID
	}

	rows, err := r.db.Query(ctx, query, roomID, createdAt, id, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var out []domain.RoomEvent
	for rows.Next() {
		var (
			ev   domain.RoomEvent
			kind string
		)
		if err := rows.Scan(&ev.ID, &ev.RoomID, &ev.ParticipantID, &kind, &ev.CreatedAt); err != nil {
			return nil, "", err
		}
		ev.Kind = domain.EventKind(kind)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var next string
	if len(out) == limit {
		last := out[len(out)-1]
		next, _ = EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return out, next, nil
}
