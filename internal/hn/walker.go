package hn

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"hnlingo/internal/model"
)

// CommentSource fetches one wave of comments, already filtered.
type CommentSource interface {
	Comments(ctx context.Context, ids []int) ([]model.Comment, error)
}

// WalkerConfig bounds the request rate of a traversal.
type WalkerConfig struct {
	WaveSize  int
	WaveDelay time.Duration
}

// DefaultWalkerConfig fetches 10 comments per wave with 1s between waves.
func DefaultWalkerConfig() WalkerConfig {
	return WalkerConfig{WaveSize: 10, WaveDelay: time.Second}
}

// TreeNode is a fetched comment and its fetched replies. Depth is 1 for
// the comments whose ids were passed to Walk.
type TreeNode struct {
	Comment  model.Comment
	Depth    int
	Children []*TreeNode
}

// Tree is the result of a walk.
type Tree struct {
	Roots []*TreeNode
	Waves int
}

// Comments flattens the tree pre-order: every comment precedes its replies.
func (t *Tree) Comments() []model.Comment {
	var out []model.Comment
	var visit func(nodes []*TreeNode)
	visit = func(nodes []*TreeNode) {
		for _, n := range nodes {
			out = append(out, n.Comment)
			visit(n.Children)
		}
	}
	visit(t.Roots)
	return out
}

// Len counts the comments in the tree.
func (t *Tree) Len() int { return len(t.Comments()) }

// IDs returns the comment ids in Comments order.
func (t *Tree) IDs() []int {
	cs := t.Comments()
	ids := make([]int, len(cs))
	for i, c := range cs {
		ids[i] = c.ID
	}
	return ids
}

// Walker expands comment ids into a depth-bounded tree, fetching in
// fixed-size waves separated by a fixed delay. The delay applies between
// any two consecutive waves issued by the same Walker, so successive walks
// share one pace.
type Walker struct {
	src    CommentSource
	cfg    WalkerConfig
	sleep  func(ctx context.Context, d time.Duration) error
	issued atomic.Bool
}

func NewWalker(src CommentSource, cfg WalkerConfig) *Walker {
	if cfg.WaveSize <= 0 {
		cfg.WaveSize = DefaultWalkerConfig().WaveSize
	}
	return &Walker{src: src, cfg: cfg, sleep: sleepCtx}
}

type walkTask struct {
	ids       []int
	remaining int
	depth     int
	parent    *TreeNode
}

// Walk fetches ids and their replies down to maxDepth levels. Ids past
// maxDepth are not traversed. The worklist is processed breadth-first so
// stack use does not grow with the depth of the thread.
func (w *Walker) Walk(ctx context.Context, ids []int, maxDepth int) (*Tree, error) {
	tree := &Tree{}
	if len(ids) == 0 || maxDepth <= 0 {
		return tree, nil
	}
	queue := []walkTask{{ids: ids, remaining: maxDepth, depth: 1}}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]

		var nodes []*TreeNode
		for start := 0; start < len(t.ids); start += w.cfg.WaveSize {
			end := min(start+w.cfg.WaveSize, len(t.ids))
			if w.issued.Swap(true) {
				if err := w.sleep(ctx, w.cfg.WaveDelay); err != nil {
					return nil, fmt.Errorf("hn: walk: %w", err)
				}
			}
			tree.Waves++
			comments, err := w.src.Comments(ctx, t.ids[start:end])
			if err != nil {
				return nil, fmt.Errorf("hn: walk depth %d: %w", t.depth, err)
			}
			for _, c := range comments {
				nodes = append(nodes, &TreeNode{Comment: c, Depth: t.depth})
			}
		}

		if t.parent == nil {
			tree.Roots = nodes
		} else {
			t.parent.Children = nodes
		}
		if t.remaining <= 1 {
			continue
		}
		for _, n := range nodes {
			if len(n.Comment.Kids) == 0 {
				continue
			}
			queue = append(queue, walkTask{ids: n.Comment.Kids, remaining: t.remaining - 1, depth: t.depth + 1, parent: n})
		}
	}
	return tree, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
