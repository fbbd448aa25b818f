package audit

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert appends one activity record.
func (r *PGRepository) Insert(ctx context.Context, entry Entry) error {
	meta := []byte("{}")
	if entry.Meta != nil {
		data, err := json.Marshal(entry.Meta)
		if err != nil {
			return err
		}
		meta = data
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO activity_log (actor_id, action, entity, entity_id, meta, at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ActorID, entry.Action, entry.Entity, entry.EntityID, meta,
		pgtype.Timestamptz{Time: entry.At, Valid: true})
	return err
}

// Window returns one ordered slice of the timeline.
func (r *PGRepository) Window(ctx context.Context, filters TimelineFilters, limit, offset int) ([]Entry, error) {
	query := `SELECT actor_id, action, entity, entity_id, meta, at FROM activity_log WHERE 1=1`
	args := []any{}
	if !filters.From.IsZero() {
		args = append(args, filters.From)
		query += ` AND at >= $` + itoa(len(args))
	}
	if !filters.To.IsZero() {
		args = append(args, filters.To)
		query += ` AND at <= $` + itoa(len(args))
	}
	if filters.ActorID != 0 {
		args = append(args, filters.ActorID)
		query += ` AND actor_id = $` + itoa(len(args))
	}
	if filters.Action != "" {
		args = append(args, filters.Action)
		query += ` AND action = $` + itoa(len(args))
	}
	args = append(args, limit)
	query += ` ORDER BY at DESC LIMIT $` + itoa(len(args))
	args = append(args, offset)
	query += ` OFFSET $` + itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var meta []byte
		var at pgtype.Timestamptz
		if err := rows.Scan(&e.ActorID, &e.Action, &e.Entity, &e.EntityID, &meta, &at); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &e.Meta)
		}
		if at.Valid {
			e.At = at.Time
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
