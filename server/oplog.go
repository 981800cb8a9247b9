package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OpLog stores every frame a room accepted, in arrival order.
type OpLog interface {
	Append(ctx context.Context, room string, origin uuid.UUID, frame []byte) error
	Frames(ctx context.Context, room string) ([][]byte, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS edit_batches (
	id         BIGSERIAL PRIMARY KEY,
	room       TEXT NOT NULL,
	origin     TEXT NOT NULL,
	frame      BYTEA NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS edit_batches_room_id ON edit_batches (room, id);
`

// pgOpLog implements OpLog on PostgreSQL.
type pgOpLog struct {
	pool *pgxpool.Pool
}

func newPgOpLog(ctx context.Context, pool *pgxpool.Pool) (*pgOpLog, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("create op log schema: %w", err)
	}
	return &pgOpLog{pool: pool}, nil
}

func (l *pgOpLog) Append(ctx context.Context, room string, origin uuid.UUID, frame []byte) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO edit_batches (room, origin, frame) VALUES ($1, $2, $3)`,
		room, origin.String(), frame)
	if err != nil {
		return fmt.Errorf("append to op log of %q: %w", room, err)
	}
	return nil
}

func (l *pgOpLog) Frames(ctx context.Context, room string) ([][]byte, error) {
	rows, err := l.pool.Query(ctx, `SELECT frame FROM edit_batches WHERE room = $1 ORDER BY id`, room)
	if err != nil {
		return nil, fmt.Errorf("read op log of %q: %w", room, err)
	}
	frames, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("read op log of %q: %w", room, err)
	}
	return frames, nil
}
