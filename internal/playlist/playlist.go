// Package playlist provides persistent playlists and the playback queue
// over SQLite. Playlist population is transactional: a generation run
// either commits a fully populated playlist or leaves no trace.
package playlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Playlist is one named, ordered track collection.
type Playlist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store provides playlist persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a playlist store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// FindByName returns the playlist with the given name, or nil, nil.
func (s *Store) FindByName(ctx context.Context, name string) (*Playlist, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(parent_id, ''), created_at FROM playlists WHERE name = ?`, name)
	p, err := scanPlaylist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding playlist: %w", err)
	}
	return p, nil
}

// Create inserts a new playlist, optionally under a named parent folder.
// A missing parent is created on the fly.
func (s *Store) Create(ctx context.Context, name, parentName string) (*Playlist, error) {
	if name == "" {
		return nil, fmt.Errorf("playlist name is required")
	}

	var parentID string
	if parentName != "" {
		parent, err := s.FindByName(ctx, parentName)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			parent, err = s.Create(ctx, parentName, "")
			if err != nil {
				return nil, err
			}
		}
		parentID = parent.ID
	}

	p := &Playlist{
		ID:        uuid.New().String(),
		Name:      name,
		ParentID:  parentID,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO playlists (id, name, parent_id, created_at) VALUES (?, ?, NULLIF(?, ''), ?)`,
		p.ID, p.Name, p.ParentID, p.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("creating playlist: %w", err)
	}
	return p, nil
}

// AddTracks appends track IDs to the playlist in order, atomically. On
// any failure nothing is appended.
func (s *Store) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var next int
	row := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM playlist_tracks WHERE playlist_id = ?`, playlistID)
	if err := row.Scan(&next); err != nil {
		return fmt.Errorf("reading playlist position: %w", err)
	}

	for i, trackID := range trackIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO playlist_tracks (playlist_id, track_id, position) VALUES (?, ?, ?)`,
			playlistID, trackID, next+i)
		if err != nil {
			return fmt.Errorf("adding track %s: %w", trackID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing playlist tracks: %w", err)
	}
	return nil
}

// Clear removes all tracks from the playlist, keeping the playlist itself.
func (s *Store) Clear(ctx context.Context, playlistID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM playlist_tracks WHERE playlist_id = ?`, playlistID)
	if err != nil {
		return fmt.Errorf("clearing playlist: %w", err)
	}
	return nil
}

// Delete removes the playlist and its track entries.
func (s *Store) Delete(ctx context.Context, playlistID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_tracks WHERE playlist_id = ?`, playlistID); err != nil {
		return fmt.Errorf("deleting playlist tracks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, playlistID); err != nil {
		return fmt.Errorf("deleting playlist: %w", err)
	}
	return tx.Commit()
}

// TrackIDs returns the playlist's track IDs in position order.
func (s *Store) TrackIDs(ctx context.Context, playlistID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT track_id FROM playlist_tracks WHERE playlist_id = ? ORDER BY position`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("listing playlist tracks: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning playlist track: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlaylist(row rowScanner) (*Playlist, error) {
	var p Playlist
	var createdAt string
	if err := row.Scan(&p.ID, &p.Name, &p.ParentID, &createdAt); err != nil {
		return nil, err
	}
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		p.CreatedAt = ts
	}
	return &p, nil
}
