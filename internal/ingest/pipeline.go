// Package ingest runs one listing through fetch, translation and persistence.
package ingest

import (
	"context"
	"fmt"
	"time"

	"hnlingo/internal/hn"
	"hnlingo/internal/logging"
	"hnlingo/internal/metrics"
	"hnlingo/internal/model"
	"hnlingo/internal/util"
)

// Source resolves listing ids and fetches stories.
type Source interface {
	ListingIDs(ctx context.Context, listing string, limit int) ([]int, error)
	Stories(ctx context.Context, ids []int) ([]model.Story, error)
}

// CommentWalker expands a story's kids into a comment tree.
type CommentWalker interface {
	Walk(ctx context.Context, ids []int, maxDepth int) (*hn.Tree, error)
}

// BatchTranslator returns exactly one pair per input text, in input order.
type BatchTranslator interface {
	Pairs(ctx context.Context, texts []string, targetLang string) []model.TranslatedPair
}

// Store is the persistence collaborator. Every method must be idempotent
// for a given id.
type Store interface {
	UpsertStory(ctx context.Context, s model.Story, translatedTitle, translatedText string) error
	UpsertComment(ctx context.Context, c model.Comment, translatedText string) error
	LinkCommentsToStory(ctx context.Context, storyID int, ids []int) error
}

// Deps wires the pipeline's collaborators.
type Deps struct {
	Source     Source
	Walker     CommentWalker
	Translator BatchTranslator
	Store      Store
}

// Options tune a pipeline. A CommentDepth of 0 walks no comments.
type Options struct {
	TargetLanguage string
	CommentDepth   int
}

// Report summarizes one listing run.
type Report struct {
	Listing  string       `json:"listing"`
	IDs      int          `json:"ids"`
	Stories  int          `json:"stories"`
	Comments int          `json:"comments"`
	Duration util.Seconds `json:"duration"`
}

// Pipeline composes fetching, translation and persistence for a listing.
type Pipeline struct {
	source     Source
	walker     CommentWalker
	translator BatchTranslator
	store      Store
	opts       Options
}

func NewPipeline(deps Deps, opts Options) *Pipeline {
	return &Pipeline{
		source:     deps.Source,
		walker:     deps.Walker,
		translator: deps.Translator,
		store:      deps.Store,
		opts:       opts,
	}
}

// Run ingests one listing. Fetch and persistence errors abort the run and
// are returned; translation never fails it.
func (p *Pipeline) Run(ctx context.Context, l model.Listing) (Report, error) {
	start := time.Now()
	rep := Report{Listing: l.Name}
	metrics.IngestRuns.WithLabelValues(l.Name).Inc()
	defer metrics.ObserveIngestDuration(l.Name, start)

	err := p.run(ctx, l, &rep)
	rep.Duration = util.Seconds(time.Since(start))
	if err != nil {
		metrics.IngestErrors.WithLabelValues(l.Name).Inc()
		logging.Error("ingest_listing_failed", map[string]any{"listing": l.Name, "error": err.Error(), "stories": rep.Stories})
		return rep, err
	}
	logging.Info("ingest_listing", map[string]any{
		"listing": l.Name, "ids": rep.IDs, "stories": rep.Stories,
		"comments": rep.Comments, "duration_ms": time.Duration(rep.Duration).Milliseconds(),
	})
	return rep, nil
}

func (p *Pipeline) run(ctx context.Context, l model.Listing, rep *Report) error {
	ids, err := p.source.ListingIDs(ctx, l.Name, l.Limit)
	if err != nil {
		return fmt.Errorf("resolve %s ids: %w", l.Name, err)
	}
	rep.IDs = len(ids)
	stories, err := p.source.Stories(ctx, ids)
	if err != nil {
		return fmt.Errorf("fetch %s stories: %w", l.Name, err)
	}

	titles := make([]string, len(stories))
	texts := make([]string, len(stories))
	for i, s := range stories {
		titles[i], texts[i] = s.Title, s.Text
	}
	trTitles := p.translator.Pairs(ctx, titles, p.opts.TargetLanguage)
	trTexts := p.translator.Pairs(ctx, texts, p.opts.TargetLanguage)

	for i, s := range stories {
		if err := p.store.UpsertStory(ctx, s, trTitles[i].Target, trTexts[i].Target); err != nil {
			return fmt.Errorf("persist story %d: %w", s.ID, err)
		}
		metrics.ItemsPersisted.WithLabelValues(model.TypeStory).Inc()
		rep.Stories++
	}

	if !l.Comments || p.walker == nil || p.opts.CommentDepth <= 0 {
		return nil
	}
	for _, s := range stories {
		if len(s.Kids) == 0 {
			continue
		}
		n, err := p.comments(ctx, s)
		rep.Comments += n
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) comments(ctx context.Context, s model.Story) (int, error) {
	tree, err := p.walker.Walk(ctx, s.Kids, p.opts.CommentDepth)
	if err != nil {
		return 0, fmt.Errorf("walk comments of %d: %w", s.ID, err)
	}
	comments := tree.Comments()
	if len(comments) == 0 {
		return 0, nil
	}
	texts := make([]string, len(comments))
	for i, c := range comments {
		texts[i] = c.Text
	}
	translated := p.translator.Pairs(ctx, texts, p.opts.TargetLanguage)

	ids := make([]int, 0, len(comments))
	for i, c := range comments {
		if err := p.store.UpsertComment(ctx, c, translated[i].Target); err != nil {
			return len(ids), fmt.Errorf("persist comment %d: %w", c.ID, err)
		}
		metrics.ItemsPersisted.WithLabelValues(model.TypeComment).Inc()
		ids = append(ids, c.ID)
	}
	if err := p.store.LinkCommentsToStory(ctx, s.ID, ids); err != nil {
		return len(ids), fmt.Errorf("link comments to %d: %w", s.ID, err)
	}
	logging.Debug("ingest_comments", map[string]any{"story": s.ID, "comments": len(ids), "waves": tree.Waves})
	return len(ids), nil
}
