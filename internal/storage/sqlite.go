package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jwebster45206/storyarc/pkg/story"
	"github.com/jwebster45206/storyarc/pkg/storage"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS stories (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL DEFAULT '',
	share_token  TEXT,
	is_shareable INTEGER NOT NULL DEFAULT 0,
	updated_at   INTEGER NOT NULL,
	title          TEXT NOT NULL DEFAULT '',
	character_name TEXT NOT NULL DEFAULT '',
	setting        TEXT NOT NULL DEFAULT '',
	progress_stage TEXT NOT NULL DEFAULT '',
	data         BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_stories_user ON stories(user_id, updated_at DESC);
CREATE UNIQUE INDEX IF NOT EXISTS idx_stories_share ON stories(share_token) WHERE share_token IS NOT NULL;
`

// SQLiteStorage keeps stories in a single SQLite table, the story JSON in a
// blob column next to the columns used for listing and share lookups.
type SQLiteStorage struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ storage.Storage = (*SQLiteStorage)(nil)

// OpenSQLite opens (creating if needed) a SQLite store at path. ":memory:"
// is accepted for tests.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStorage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single connection: SQLite allows one writer, and each connection to
	// :memory: sees its own database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLiteStorage{db: db, logger: logger}, nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) SaveStory(ctx context.Context, st *story.Story) error {
	if st == nil {
		return errors.New("story cannot be nil")
	}
	data, err := encodeStory(st)
	if err != nil {
		return err
	}
	var shareToken sql.NullString
	if st.ShareToken != "" {
		shareToken = sql.NullString{String: st.ShareToken, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO stories (id, user_id, share_token, is_shareable, updated_at, title, character_name, setting, progress_stage, data)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	user_id = excluded.user_id,
	share_token = excluded.share_token,
	is_shareable = excluded.is_shareable,
	updated_at = excluded.updated_at,
	title = excluded.title,
	character_name = excluded.character_name,
	setting = excluded.setting,
	progress_stage = excluded.progress_stage,
	data = excluded.data`,
		st.ID, st.UserID, shareToken, st.IsShareable, toMillis(st.LastUpdated),
		st.Title, st.CharacterName, st.Setting, st.ProgressStage, data,
	)
	if err != nil {
		s.logger.Error("Failed to save story", "story_id", st.ID, "error", err)
		return fmt.Errorf("failed to save story: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) LoadStory(ctx context.Context, id string) (*story.Story, error) {
	return s.loadOne(ctx, `SELECT data FROM stories WHERE id = ?`, id)
}

func (s *SQLiteStorage) DeleteStory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM stories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) ListStories(ctx context.Context, userID string) ([]story.Metadata, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, title, character_name, setting, updated_at, progress_stage, user_id
FROM stories WHERE user_id = ? ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	defer rows.Close()

	out := []story.Metadata{}
	for rows.Next() {
		var (
			md        story.Metadata
			updatedAt int64
		)
		if err := rows.Scan(&md.ID, &md.Title, &md.CharacterName, &md.Setting, &updatedAt, &md.ProgressStage, &md.UserID); err != nil {
			return nil, fmt.Errorf("failed to scan story row: %w", err)
		}
		md.LastUpdated = fromMillis(updatedAt)
		out = append(out, md)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	return out, nil
}

func (s *SQLiteStorage) LoadStoryByShareToken(ctx context.Context, token string) (*story.Story, error) {
	if token == "" {
		return nil, storage.ErrNotFound
	}
	return s.loadOne(ctx, `SELECT data FROM stories WHERE share_token = ? AND is_shareable = 1`, token)
}

func (s *SQLiteStorage) loadOne(ctx context.Context, query string, arg string) (*story.Story, error) {
	var data []byte
	if err := s.db.QueryRowContext(ctx, query, arg).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load story: %w", err)
	}
	return decodeStory(data)
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}
