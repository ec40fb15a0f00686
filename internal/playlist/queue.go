package playlist

import (
	"context"
	"database/sql"
	"fmt"
)

// Queue is the persistent playback queue: one ordered list of track IDs
// consumed head-first by the player.
type Queue struct {
	db *sql.DB
}

// NewQueue creates the queue over the shared database.
func NewQueue(db *sql.DB) *Queue {
	return &Queue{db: db}
}

// Add appends track IDs to the tail of the queue, atomically. With
// skipDuplicates set, IDs already queued are silently dropped.
func (q *Queue) Add(ctx context.Context, trackIDs []string, skipDuplicates bool) (added int, err error) {
	if len(trackIDs) == 0 {
		return 0, nil
	}

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	existing := make(map[string]struct{})
	if skipDuplicates {
		rows, err := tx.QueryContext(ctx, `SELECT track_id FROM queue_tracks`)
		if err != nil {
			return 0, fmt.Errorf("listing queue: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close() //nolint:errcheck
				return 0, fmt.Errorf("scanning queue entry: %w", err)
			}
			existing[id] = struct{}{}
		}
		rows.Close() //nolint:errcheck
		if err := rows.Err(); err != nil {
			return 0, err
		}
	}

	var next int
	row := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), -1) + 1 FROM queue_tracks`)
	if err := row.Scan(&next); err != nil {
		return 0, fmt.Errorf("reading queue position: %w", err)
	}

	for _, trackID := range trackIDs {
		if _, dup := existing[trackID]; dup {
			continue
		}
		existing[trackID] = struct{}{}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO queue_tracks (track_id, position) VALUES (?, ?)`, trackID, next)
		if err != nil {
			return 0, fmt.Errorf("enqueueing track %s: %w", trackID, err)
		}
		next++
		added++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing queue: %w", err)
	}
	return added, nil
}

// Clear empties the queue.
func (q *Queue) Clear(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM queue_tracks`); err != nil {
		return fmt.Errorf("clearing queue: %w", err)
	}
	return nil
}

// Remaining returns how many tracks are queued.
func (q *Queue) Remaining(ctx context.Context) (int, error) {
	var n int
	row := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queue_tracks`)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("counting queue: %w", err)
	}
	return n, nil
}

// TrackIDs returns the queued track IDs in play order.
func (q *Queue) TrackIDs(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT track_id FROM queue_tracks ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("listing queue: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning queue entry: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Pop removes and returns the head of the queue, or "" when empty.
func (q *Queue) Pop(ctx context.Context) (string, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var id string
	var pos int
	row := tx.QueryRowContext(ctx, `SELECT track_id, position FROM queue_tracks ORDER BY position LIMIT 1`)
	if err := row.Scan(&id, &pos); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("reading queue head: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM queue_tracks WHERE position = ?`, pos); err != nil {
		return "", fmt.Errorf("popping queue: %w", err)
	}
	return id, tx.Commit()
}
