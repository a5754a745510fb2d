package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hnlingo/internal/fetch"
	"hnlingo/internal/hn"
	"hnlingo/internal/model"
	"hnlingo/internal/translate"
)

// upper uppercases every line except batch delimiters.
var upper = translate.Func(func(_ context.Context, text, _ string) (string, error) {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if !strings.HasPrefix(l, "===DIVIDER_") {
			lines[i] = strings.ToUpper(l)
		}
	}
	return strings.Join(lines, "\n"), nil
})

func newItemServer(t *testing.T, listings map[string]string, items map[int]string) *hn.Client {
	t.Helper()
	mux := http.NewServeMux()
	for name, body := range listings {
		mux.HandleFunc("/"+name+"stories.json", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, body)
		})
	}
	mux.HandleFunc("/item/", func(w http.ResponseWriter, r *http.Request) {
		var id int
		if _, err := fmt.Sscanf(r.URL.Path, "/item/%d.json", &id); err != nil {
			http.NotFound(w, r)
			return
		}
		body, ok := items[id]
		if !ok {
			fmt.Fprint(w, "null")
			return
		}
		fmt.Fprint(w, body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return hn.NewClient(srv.URL, fetch.New(fetch.Config{Timeout: time.Second}, srv.Client()))
}

func newPipeline(client *hn.Client, st Store) *Pipeline {
	return newPipelineDepth(client, st, 2)
}

func newPipelineDepth(client *hn.Client, st Store, depth int) *Pipeline {
	return NewPipeline(Deps{
		Source:     client,
		Walker:     hn.NewWalker(client, hn.WalkerConfig{WaveSize: 10}),
		Translator: translate.NewBatcher(upper, translate.DefaultMaxChars),
		Store:      st,
	}, Options{TargetLanguage: "Chinese", CommentDepth: depth})
}

func TestRunAskListingDropsFlaggedItems(t *testing.T) {
	client := newItemServer(t,
		map[string]string{"ask": "[101, 102, 103]"},
		map[int]string{
			101: `{"id":101,"type":"story","by":"alice","time":1700000000,"title":"Ask HN: test?"}`,
			102: `{"id":102,"type":"story","by":"bob","time":1700000001,"title":"flagged","dead":true}`,
		})
	rec := NewRecorder()

	rep, err := newPipeline(client, rec).Run(context.Background(), model.Listing{Name: "ask", Limit: 2, Comments: true})
	require.NoError(t, err)

	assert.Equal(t, Report{Listing: "ask", IDs: 2, Stories: 1, Duration: rep.Duration}, rep)
	require.Len(t, rec.Stories, 1)
	got := rec.Stories[101]
	assert.Equal(t, "ASK HN: TEST?", got.TranslatedTitle)
	assert.Empty(t, got.TranslatedText)
	assert.NotContains(t, rec.Stories, 102)
	assert.Empty(t, rec.Comments)
}

func TestRunTranslatesAndLinksCommentTree(t *testing.T) {
	client := newItemServer(t,
		map[string]string{"top": "[1]"},
		map[int]string{
			1:  `{"id":1,"type":"story","by":"a","time":10,"title":"Go 2","text":"<p>body</p>","kids":[11,12]}`,
			11: `{"id":11,"type":"comment","by":"b","time":11,"text":"nice","parent":1,"kids":[21]}`,
			12: `{"id":12,"type":"comment","by":"c","time":12,"deleted":true,"parent":1}`,
			21: `{"id":21,"type":"comment","by":"d","time":13,"text":"agreed","parent":11,"kids":[31]}`,
			31: `{"id":31,"type":"comment","by":"e","time":14,"text":"too deep","parent":21}`,
		})
	rec := NewRecorder()

	rep, err := newPipeline(client, rec).Run(context.Background(), model.Listing{Name: "top", Limit: 30, Comments: true})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Stories)
	assert.Equal(t, 2, rep.Comments)

	assert.Equal(t, "GO 2", rec.Stories[1].TranslatedTitle)
	assert.Equal(t, "<P>BODY</P>", rec.Stories[1].TranslatedText)
	assert.Equal(t, "NICE", rec.Comments[11].TranslatedText)
	assert.Equal(t, "AGREED", rec.Comments[21].TranslatedText)
	assert.NotContains(t, rec.Comments, 12)
	assert.NotContains(t, rec.Comments, 31)
	assert.Equal(t, []int{11, 21}, rec.Links[1])
}

func TestRunSkipsCommentsWhenListingDisablesThem(t *testing.T) {
	client := newItemServer(t,
		map[string]string{"new": "[1]"},
		map[int]string{
			1:  `{"id":1,"type":"story","by":"a","time":10,"title":"fresh","kids":[11]}`,
			11: `{"id":11,"type":"comment","by":"b","time":11,"text":"hi","parent":1}`,
		})
	rec := NewRecorder()

	rep, err := newPipeline(client, rec).Run(context.Background(), model.Listing{Name: "new", Limit: 30})
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Comments)
	assert.Empty(t, rec.Comments)
	assert.Len(t, rec.Stories, 1)
}

func TestRunZeroDepthWalksNoComments(t *testing.T) {
	client := newItemServer(t,
		map[string]string{"top": "[1]"},
		map[int]string{
			1:  `{"id":1,"type":"story","by":"a","time":10,"title":"shallow","kids":[11]}`,
			11: `{"id":11,"type":"comment","by":"b","time":11,"text":"hi","parent":1}`,
		})
	rec := NewRecorder()

	rep, err := newPipelineDepth(client, rec, 0).Run(context.Background(), model.Listing{Name: "top", Limit: 30, Comments: true})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Stories)
	assert.Equal(t, 0, rep.Comments)
	assert.Empty(t, rec.Comments)
	assert.Empty(t, rec.Links[1])
	assert.Equal(t, "SHALLOW", rec.Stories[1].TranslatedTitle)
}

func TestRunPropagatesFetchFailure(t *testing.T) {
	client := newItemServer(t, map[string]string{}, nil)
	rec := NewRecorder()

	_, err := newPipeline(client, rec).Run(context.Background(), model.Listing{Name: "top", Limit: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, fetch.ErrFetchFailed)
	assert.Empty(t, rec.Stories)
}

type failingStore struct {
	*Recorder
	err error
}

func (f failingStore) UpsertComment(context.Context, model.Comment, string) error { return f.err }

func TestRunPropagatesPersistenceFailure(t *testing.T) {
	client := newItemServer(t,
		map[string]string{"top": "[1]"},
		map[int]string{
			1:  `{"id":1,"type":"story","by":"a","time":10,"title":"t","kids":[11]}`,
			11: `{"id":11,"type":"comment","by":"b","time":11,"text":"hi","parent":1}`,
		})
	boom := errors.New("disk full")
	st := failingStore{Recorder: NewRecorder(), err: boom}

	rep, err := newPipeline(client, st).Run(context.Background(), model.Listing{Name: "top", Limit: 1, Comments: true})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, rep.Stories)
	assert.Empty(t, st.Links)
}

func TestRecorderLinksAreIdempotent(t *testing.T) {
	rec := NewRecorder()
	ctx := context.Background()
	require.NoError(t, rec.LinkCommentsToStory(ctx, 1, []int{3, 4}))
	require.NoError(t, rec.LinkCommentsToStory(ctx, 1, []int{4, 5}))
	assert.Equal(t, []int{3, 4, 5}, rec.Links[1])
}
