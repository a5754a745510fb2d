package hn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"hnlingo/internal/model"
)

// DefaultBaseURL is the public item API.
const DefaultBaseURL = "https://hacker-news.firebaseio.com/v0"

// Getter performs a resilient GET and returns the body.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Client resolves listings and items against the item API.
type Client struct {
	baseURL string
	getter  Getter
}

func NewClient(baseURL string, getter Getter) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), getter: getter}
}

// ListingIDs returns up to limit identifiers of the named listing, in
// upstream order. A non-positive limit yields no ids and no request.
func (c *Client) ListingIDs(ctx context.Context, listing string, limit int) ([]int, error) {
	if !model.IsKnownListing(listing) {
		return nil, fmt.Errorf("hn: unknown listing %q", listing)
	}
	if limit <= 0 {
		return []int{}, nil
	}
	body, err := c.getter.Get(ctx, fmt.Sprintf("%s/%sstories.json", c.baseURL, listing))
	if err != nil {
		return nil, fmt.Errorf("hn: listing %s: %w", listing, err)
	}
	var ids []int
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, fmt.Errorf("hn: decode listing %s: %w", listing, err)
	}
	if limit < len(ids) {
		ids = ids[:limit]
	}
	return ids, nil
}

// Item fetches one item. A null body means the item does not exist and
// yields (nil, nil).
func (c *Client) Item(ctx context.Context, id int) (*model.Item, error) {
	body, err := c.getter.Get(ctx, fmt.Sprintf("%s/item/%d.json", c.baseURL, id))
	if err != nil {
		return nil, fmt.Errorf("hn: item %d: %w", id, err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}
	var it model.Item
	if err := json.Unmarshal(body, &it); err != nil {
		return nil, fmt.Errorf("hn: decode item %d: %w", id, err)
	}
	return &it, nil
}

// Items fetches every id concurrently and drops missing, removed and
// flagged items. Survivors keep the order of ids.
func (c *Client) Items(ctx context.Context, ids []int) ([]model.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	fetched := make([]*model.Item, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			it, err := c.Item(gctx, id)
			if err != nil {
				return err
			}
			fetched[i] = it
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]model.Item, 0, len(ids))
	for _, it := range fetched {
		if it == nil || it.Excluded() {
			continue
		}
		out = append(out, *it)
	}
	return out, nil
}

// Stories is Items narrowed to stories.
func (c *Client) Stories(ctx context.Context, ids []int) ([]model.Story, error) {
	items, err := c.Items(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]model.Story, len(items))
	for i, it := range items {
		out[i] = it.AsStory()
	}
	return out, nil
}

// Comments is Items narrowed to comments.
func (c *Client) Comments(ctx context.Context, ids []int) ([]model.Comment, error) {
	items, err := c.Items(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]model.Comment, len(items))
	for i, it := range items {
		out[i] = it.AsComment()
	}
	return out, nil
}
