package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// StoredStory is a persisted story row.
type StoredStory struct {
	ID              int
	Type            string
	By              string
	Time            time.Time
	Title           string
	TitleTranslated string
	Text            string
	TextTranslated  string
	URL             string
	Score           int
	Descendants     int
	Kids            []int
	LastFetched     time.Time
}

// StoredComment is a persisted comment row.
type StoredComment struct {
	ID             int
	By             string
	Time           time.Time
	Text           string
	TextTranslated string
	Parent         int
	Kids           []int
	LastFetched    time.Time
}

// Order selects the sort of a story listing.
type Order string

const (
	OrderLatest Order = "latest"
	OrderTop    Order = "top"
)

var storyColumns = []string{
	"id", "type", "by", "time", "title", "title_translated", "text", "text_translated",
	"url", "score", "descendants", "kids", "last_fetched",
}

// LatestStories returns stories newest first.
func (d *DB) LatestStories(ctx context.Context, limit, offset int) ([]StoredStory, error) {
	return d.Stories(ctx, OrderLatest, limit, offset)
}

// TopStories returns stories by descending score.
func (d *DB) TopStories(ctx context.Context, limit, offset int) ([]StoredStory, error) {
	return d.Stories(ctx, OrderTop, limit, offset)
}

// Stories lists stored stories in the given order. limit <= 0 means no limit.
func (d *DB) Stories(ctx context.Context, order Order, limit, offset int) ([]StoredStory, error) {
	b := sq.Select(storyColumns...).From("stories")
	switch order {
	case OrderTop:
		b = b.OrderBy("score DESC", "id DESC")
	case OrderLatest, "":
		b = b.OrderBy("time DESC", "id DESC")
	default:
		return nil, fmt.Errorf("store: unknown order %q", order)
	}
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	if offset > 0 {
		if limit <= 0 {
			b = b.Limit(uint64(1<<62))
		}
		b = b.Offset(uint64(offset))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build stories query: %w", err)
	}
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query stories: %w", err)
	}
	defer rows.Close()
	var out []StoredStory
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Story returns one story or ErrNotFound.
func (d *DB) Story(ctx context.Context, id int) (StoredStory, error) {
	query, args, err := sq.Select(storyColumns...).From("stories").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return StoredStory{}, fmt.Errorf("store: build story query: %w", err)
	}
	s, err := scanStory(d.sql.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return StoredStory{}, fmt.Errorf("%w: story %d", ErrNotFound, id)
	}
	return s, err
}

// StoryComments returns the comments linked to storyID, oldest first.
func (d *DB) StoryComments(ctx context.Context, storyID int) ([]StoredComment, error) {
	query, args, err := sq.Select("c.id", "c.by", "c.time", "c.text", "c.text_translated", "c.parent", "c.kids", "c.last_fetched").
		From("comments c").
		Join("story_comments sc ON sc.comment_id = c.id").
		Where(sq.Eq{"sc.story_id": storyID}).
		OrderBy("c.time ASC", "c.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build comments query: %w", err)
	}
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query comments: %w", err)
	}
	defer rows.Close()
	var out []StoredComment
	for rows.Next() {
		var (
			c                StoredComment
			by, text, tr     sql.NullString
			parent           sql.NullInt64
			kids             string
			created, fetched int64
		)
		if err := rows.Scan(&c.ID, &by, &created, &text, &tr, &parent, &kids, &fetched); err != nil {
			return nil, fmt.Errorf("store: scan comment: %w", err)
		}
		c.By, c.Text, c.TextTranslated = by.String, text.String, tr.String
		c.Parent = int(parent.Int64)
		c.Time = time.Unix(created, 0).UTC()
		c.LastFetched = time.Unix(fetched, 0).UTC()
		if c.Kids, err = decodeKids(kids); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStory(row scanner) (StoredStory, error) {
	var (
		s                                StoredStory
		by, title, titleTr, text, textTr sql.NullString
		url                              sql.NullString
		kids                             string
		created, fetched                 int64
	)
	err := row.Scan(&s.ID, &s.Type, &by, &created, &title, &titleTr, &text, &textTr,
		&url, &s.Score, &s.Descendants, &kids, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return s, err
	}
	if err != nil {
		return s, fmt.Errorf("store: scan story: %w", err)
	}
	s.By, s.Title, s.TitleTranslated = by.String, title.String, titleTr.String
	s.Text, s.TextTranslated, s.URL = text.String, textTr.String, url.String
	s.Time = time.Unix(created, 0).UTC()
	s.LastFetched = time.Unix(fetched, 0).UTC()
	if s.Kids, err = decodeKids(kids); err != nil {
		return s, err
	}
	return s, nil
}

func decodeKids(raw string) ([]int, error) {
	var kids []int
	if raw == "" {
		return kids, nil
	}
	if err := json.Unmarshal([]byte(raw), &kids); err != nil {
		return nil, fmt.Errorf("store: decode kids: %w", err)
	}
	return kids, nil
}

// Counts reports how many stories and comments are stored.
func (d *DB) Counts(ctx context.Context) (stories, comments int, err error) {
	row := d.sql.QueryRowContext(ctx, `SELECT (SELECT COUNT(*) FROM stories), (SELECT COUNT(*) FROM comments)`)
	if err := row.Scan(&stories, &comments); err != nil {
		return 0, 0, fmt.Errorf("store: count: %w", err)
	}
	return stories, comments, nil
}
