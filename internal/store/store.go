// Package store persists translated stories and comments in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"hnlingo/internal/model"
)

// ErrNotFound is returned by point lookups that match no row.
var ErrNotFound = errors.New("store: not found")

// DB wraps the SQLite database holding stories, comments and their links.
type DB struct {
	sql *sql.DB
	now func() time.Time
}

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// a single connection keeps :memory: databases coherent and serializes writers
	d.SetMaxOpenConns(1)
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA foreign_keys=ON;`); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("store: pragma: %w", err)
	}
	db := &DB{sql: d, now: time.Now}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS stories (
	  id INTEGER PRIMARY KEY,
	  type TEXT NOT NULL,
	  by TEXT,
	  time INTEGER NOT NULL,
	  title TEXT,
	  title_translated TEXT,
	  text TEXT,
	  text_translated TEXT,
	  url TEXT,
	  score INTEGER NOT NULL DEFAULT 0,
	  descendants INTEGER NOT NULL DEFAULT 0,
	  kids TEXT NOT NULL DEFAULT '[]',
	  last_fetched INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_stories_time ON stories(time);
	CREATE INDEX IF NOT EXISTS idx_stories_score ON stories(score);
	CREATE TABLE IF NOT EXISTS comments (
	  id INTEGER PRIMARY KEY,
	  by TEXT,
	  time INTEGER NOT NULL,
	  text TEXT,
	  text_translated TEXT,
	  parent INTEGER,
	  kids TEXT NOT NULL DEFAULT '[]',
	  last_fetched INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS story_comments (
	  story_id INTEGER NOT NULL,
	  comment_id INTEGER NOT NULL,
	  PRIMARY KEY (story_id, comment_id)
	);
	CREATE INDEX IF NOT EXISTS idx_story_comments_comment ON story_comments(comment_id);
	`)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// UpsertStory inserts or refreshes a story keyed on its id.
func (d *DB) UpsertStory(ctx context.Context, s model.Story, translatedTitle, translatedText string) error {
	kids, err := encodeKids(s.Kids)
	if err != nil {
		return err
	}
	query, args, err := sq.Insert("stories").
		Columns("id", "type", "by", "time", "title", "title_translated", "text", "text_translated",
			"url", "score", "descendants", "kids", "last_fetched").
		Values(s.ID, s.Type, s.By, s.Time, s.Title, nullable(translatedTitle), s.Text, nullable(translatedText),
			s.URL, s.ScoreOrZero(), s.DescendantsOrZero(), kids, d.now().Unix()).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
		  type=excluded.type, by=excluded.by, time=excluded.time,
		  title=excluded.title, title_translated=excluded.title_translated,
		  text=excluded.text, text_translated=excluded.text_translated,
		  url=excluded.url, score=excluded.score, descendants=excluded.descendants,
		  kids=excluded.kids, last_fetched=excluded.last_fetched`).
		ToSql()
	if err != nil {
		return fmt.Errorf("store: build story upsert: %w", err)
	}
	if _, err := d.sql.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store: upsert story %d: %w", s.ID, err)
	}
	return nil
}

// UpsertComment inserts or refreshes a comment keyed on its id.
func (d *DB) UpsertComment(ctx context.Context, c model.Comment, translatedText string) error {
	kids, err := encodeKids(c.Kids)
	if err != nil {
		return err
	}
	query, args, err := sq.Insert("comments").
		Columns("id", "by", "time", "text", "text_translated", "parent", "kids", "last_fetched").
		Values(c.ID, c.By, c.Time, c.Text, nullable(translatedText), c.Parent, kids, d.now().Unix()).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
		  by=excluded.by, time=excluded.time, text=excluded.text,
		  text_translated=excluded.text_translated, parent=excluded.parent,
		  kids=excluded.kids, last_fetched=excluded.last_fetched`).
		ToSql()
	if err != nil {
		return fmt.Errorf("store: build comment upsert: %w", err)
	}
	if _, err := d.sql.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store: upsert comment %d: %w", c.ID, err)
	}
	return nil
}

// LinkCommentsToStory records that every id in ids belongs to storyID.
// Existing links are kept.
func (d *DB) LinkCommentsToStory(ctx context.Context, storyID int, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	b := sq.Insert("story_comments").Columns("story_id", "comment_id")
	for _, id := range ids {
		b = b.Values(storyID, id)
	}
	query, args, err := b.Suffix("ON CONFLICT(story_id, comment_id) DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("store: build link: %w", err)
	}
	if _, err := d.sql.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store: link comments to story %d: %w", storyID, err)
	}
	return nil
}

func encodeKids(kids []int) (string, error) {
	if kids == nil {
		kids = []int{}
	}
	b, err := json.Marshal(kids)
	if err != nil {
		return "", fmt.Errorf("store: encode kids: %w", err)
	}
	return string(b), nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
