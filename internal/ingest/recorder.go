package ingest

import (
	"context"
	"sync"

	"hnlingo/internal/model"
)

// StoredStory is what a Recorder keeps for one story.
type StoredStory struct {
	Story           model.Story
	TranslatedTitle string
	TranslatedText  string
}

// StoredComment is what a Recorder keeps for one comment.
type StoredComment struct {
	Comment        model.Comment
	TranslatedText string
}

// Recorder is an in-memory Store used for dry runs. Upserts replace by id.
type Recorder struct {
	mu       sync.Mutex
	Stories  map[int]StoredStory
	Comments map[int]StoredComment
	Links    map[int][]int
}

func NewRecorder() *Recorder {
	return &Recorder{
		Stories:  map[int]StoredStory{},
		Comments: map[int]StoredComment{},
		Links:    map[int][]int{},
	}
}

func (r *Recorder) UpsertStory(_ context.Context, s model.Story, title, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Stories[s.ID] = StoredStory{Story: s, TranslatedTitle: title, TranslatedText: text}
	return nil
}

func (r *Recorder) UpsertComment(_ context.Context, c model.Comment, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Comments[c.ID] = StoredComment{Comment: c, TranslatedText: text}
	return nil
}

func (r *Recorder) LinkCommentsToStory(_ context.Context, storyID int, ids []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[int]bool{}
	for _, id := range r.Links[storyID] {
		seen[id] = true
	}
	for _, id := range ids {
		if !seen[id] {
			r.Links[storyID] = append(r.Links[storyID], id)
			seen[id] = true
		}
	}
	return nil
}
