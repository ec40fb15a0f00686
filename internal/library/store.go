package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const trackColumns = `id, path, artist, album_artist, album, title, genre, rating, bitrate, added_at`

// Store provides track persistence over SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a track store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Upsert inserts a track or updates the row with the same path. A missing
// ID is generated. The ID of an existing row is preserved.
func (s *Store) Upsert(ctx context.Context, t *Track) error {
	if t.Path == "" {
		return fmt.Errorf("track path is required")
	}
	if t.Title == "" {
		return fmt.Errorf("track title is required")
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.AddedAt.IsZero() {
		t.AddedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tracks (id, path, artist, album_artist, album, title, genre, rating, bitrate, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			artist = excluded.artist,
			album_artist = excluded.album_artist,
			album = excluded.album,
			title = excluded.title,
			genre = excluded.genre,
			bitrate = excluded.bitrate
	`,
		t.ID, t.Path, t.Artist, t.AlbumArtist, t.Album, t.Title,
		t.Genre, t.Rating, t.Bitrate, t.AddedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting track: %w", err)
	}
	return nil
}

// GetByID retrieves a track by primary key. Returns nil, nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Track, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id)
	t, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting track by id: %w", err)
	}
	return t, nil
}

// GetByPath retrieves a track by filesystem path. Returns nil, nil when absent.
func (s *Store) GetByPath(ctx context.Context, path string) (*Track, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE path = ?`, path)
	t, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting track by path: %w", err)
	}
	return t, nil
}

// All returns every track, ordered by artist then title.
func (s *Store) All(ctx context.Context) ([]Track, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+trackColumns+` FROM tracks ORDER BY artist COLLATE NOCASE, title COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("listing tracks: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var tracks []Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning track: %w", err)
		}
		tracks = append(tracks, *t)
	}
	return tracks, rows.Err()
}

// SetRating updates the rating for a track (0 clears it to unrated).
func (s *Store) SetRating(ctx context.Context, id string, rating int) error {
	if rating < 0 || rating > 5 {
		return fmt.Errorf("rating must be 0-5, got %d", rating)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE tracks SET rating = ? WHERE id = ?`, rating, id)
	if err != nil {
		return fmt.Errorf("setting rating: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("track not found: %s", id)
	}
	return nil
}

// DeleteMissing removes tracks whose paths are not in the keep set.
// Used after a scan to drop files deleted from disk.
func (s *Store) DeleteMissing(ctx context.Context, keep map[string]struct{}) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM tracks`)
	if err != nil {
		return 0, fmt.Errorf("listing paths: %w", err)
	}
	var stale []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close() //nolint:errcheck
			return 0, fmt.Errorf("scanning path: %w", err)
		}
		if _, ok := keep[p]; !ok {
			stale = append(stale, p)
		}
	}
	rows.Close() //nolint:errcheck
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, p := range stale {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM tracks WHERE path = ?`, p); err != nil {
			return 0, fmt.Errorf("deleting stale track: %w", err)
		}
	}
	return len(stale), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(row rowScanner) (*Track, error) {
	var t Track
	var addedAt string
	err := row.Scan(&t.ID, &t.Path, &t.Artist, &t.AlbumArtist, &t.Album,
		&t.Title, &t.Genre, &t.Rating, &t.Bitrate, &addedAt)
	if err != nil {
		return nil, err
	}
	if ts, err := time.Parse(time.RFC3339, addedAt); err == nil {
		t.AddedAt = ts
	}
	return &t, nil
}
