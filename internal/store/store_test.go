package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hnlingo/internal/model"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	db.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return db
}

func intp(v int) *int { return &v }

func story(id int, t int64, score int, title string) model.Story {
	return model.Story{Item: model.Item{
		ID: id, Type: model.TypeStory, By: "pg", Time: t, Title: title,
		URL: "https://example.com", Score: intp(score), Descendants: intp(2), Kids: []int{id * 10},
	}}
}

func TestUpsertStoryIsIdempotent(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	s := story(1, 100, 5, "Hello")
	require.NoError(t, db.UpsertStory(ctx, s, "你好", ""))
	s.Score = intp(42)
	require.NoError(t, db.UpsertStory(ctx, s, "你好!", ""))

	got, err := db.Story(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 42, got.Score)
	assert.Equal(t, "Hello", got.Title)
	assert.Equal(t, "你好!", got.TitleTranslated)
	assert.Empty(t, got.TextTranslated)
	assert.Equal(t, []int{10}, got.Kids)
	assert.Equal(t, int64(1_700_000_000), got.LastFetched.Unix())

	n, _, err := db.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStoryNotFound(t *testing.T) {
	db := openTest(t)
	_, err := db.Story(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoryListings(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	require.NoError(t, db.UpsertStory(ctx, story(1, 100, 50, "old popular"), "", ""))
	require.NoError(t, db.UpsertStory(ctx, story(2, 300, 1, "new quiet"), "", ""))
	require.NoError(t, db.UpsertStory(ctx, story(3, 200, 10, "middle"), "", ""))

	ids := func(ss []StoredStory) []int {
		out := make([]int, len(ss))
		for i, s := range ss {
			out[i] = s.ID
		}
		return out
	}

	latest, err := db.LatestStories(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 1}, ids(latest))

	top, err := db.TopStories(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, ids(top))

	page, err := db.TopStories(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, ids(page))

	rest, err := db.Stories(ctx, OrderLatest, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1}, ids(rest))

	_, err = db.Stories(ctx, Order("random"), 1, 0)
	assert.Error(t, err)
}

func TestCommentsAndLinks(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	require.NoError(t, db.UpsertStory(ctx, story(1, 100, 1, "s"), "", ""))

	c1 := model.Comment{Item: model.Item{ID: 11, Type: model.TypeComment, By: "a", Time: 200, Text: "first", Parent: 1, Kids: []int{12}}}
	c2 := model.Comment{Item: model.Item{ID: 12, Type: model.TypeComment, By: "b", Time: 150, Text: "reply", Parent: 11}}
	require.NoError(t, db.UpsertComment(ctx, c1, "第一"))
	require.NoError(t, db.UpsertComment(ctx, c2, ""))
	require.NoError(t, db.UpsertComment(ctx, c2, "回复"))

	require.NoError(t, db.LinkCommentsToStory(ctx, 1, []int{11, 12}))
	require.NoError(t, db.LinkCommentsToStory(ctx, 1, []int{12}))
	require.NoError(t, db.LinkCommentsToStory(ctx, 1, nil))

	cs, err := db.StoryComments(ctx, 1)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, 12, cs[0].ID)
	assert.Equal(t, "回复", cs[0].TextTranslated)
	assert.Equal(t, 11, cs[0].Parent)
	assert.Equal(t, 11, cs[1].ID)
	assert.Equal(t, []int{12}, cs[1].Kids)

	none, err := db.StoryComments(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, comments, err := db.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, comments)
}
