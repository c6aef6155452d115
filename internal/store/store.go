package store

import (
	"context"
	"fmt"
	"time"

	"github.com/andresmejia3/facetrack/internal/types"
	"github.com/jackc/pgx/v5"
)

// Store manages the PostgreSQL connection holding stored face tracks.
type Store struct {
	conn *pgx.Conn
}

// TrackSummary describes one stored video.
type TrackSummary struct {
	VideoID   string
	Path      string
	IndexedAt time.Time
	types.TrackStats
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// initSchema creates the tables if they don't exist (Auto-Migration).
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS video_metadata (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			indexed_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS face_track_frames (
			video_id TEXT NOT NULL REFERENCES video_metadata(id) ON DELETE CASCADE,
			frame_index INT NOT NULL,
			x INT,
			y INT,
			width INT,
			height INT,
			PRIMARY KEY (video_id, frame_index)
		);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// SaveTrack registers the video and replaces its stored frames with t in one transaction.
func (s *Store) SaveTrack(ctx context.Context, videoID, path string, t types.FaceTrack) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Clean up old data so a re-store doesn't duplicate frames
	if _, err := tx.Exec(ctx, "DELETE FROM face_track_frames WHERE video_id = $1", videoID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO video_metadata (id, path, indexed_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET indexed_at = NOW(), path = EXCLUDED.path
	`, videoID, path); err != nil {
		return err
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"face_track_frames"},
		[]string{"video_id", "frame_index", "x", "y", "width", "height"},
		pgx.CopyFromSlice(len(t), func(i int) ([]any, error) {
			b := t[i]
			if b == nil {
				return []any{videoID, i, nil, nil, nil, nil}, nil
			}
			return []any{videoID, i, b.X, b.Y, b.Width, b.Height}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy frames: %w", err)
	}

	return tx.Commit(ctx)
}

// GetTrack rebuilds the stored FaceTrack for a video in frame order.
func (s *Store) GetTrack(ctx context.Context, videoID string) (types.FaceTrack, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT x, y, width, height
		FROM face_track_frames
		WHERE video_id = $1
		ORDER BY frame_index ASC
	`, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	t := types.FaceTrack{}
	for rows.Next() {
		var x, y, w, h *int
		if err := rows.Scan(&x, &y, &w, &h); err != nil {
			return nil, err
		}
		if x == nil || y == nil || w == nil || h == nil {
			t = append(t, nil)
			continue
		}
		t = append(t, &types.BoundingBox{X: *x, Y: *y, Width: *w, Height: *h})
	}
	return t, rows.Err()
}

// ListTracks returns every stored video with its coverage, newest first.
func (s *Store) ListTracks(ctx context.Context) ([]TrackSummary, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT v.id, v.path, v.indexed_at, COUNT(f.frame_index), COUNT(f.x)
		FROM video_metadata v
		LEFT JOIN face_track_frames f ON f.video_id = v.id
		GROUP BY v.id, v.path, v.indexed_at
		ORDER BY v.indexed_at DESC
	`)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TrackSummary, error) {
		var ts TrackSummary
		err := row.Scan(&ts.VideoID, &ts.Path, &ts.IndexedAt, &ts.Frames, &ts.WithFace)
		return ts, err
	})
}

// Reset drops all application tables to clear the database state.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		DROP TABLE IF EXISTS face_track_frames CASCADE;
		DROP TABLE IF EXISTS video_metadata CASCADE;
	`)
	return err
}
