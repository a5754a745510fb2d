package model

import "time"

// Item types reported by the item API.
const (
	TypeStory   = "story"
	TypeComment = "comment"
	TypeJob     = "job"
	TypePoll    = "poll"
)

// Item is the shape shared by stories and comments as served by the item API.
type Item struct {
	ID      int    `json:"id"`
	Type    string `json:"type"`
	By      string `json:"by,omitempty"`
	Time    int64  `json:"time"`
	Text    string `json:"text,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
	Dead    bool   `json:"dead,omitempty"`
	Parent  int    `json:"parent,omitempty"`
	Kids    []int  `json:"kids,omitempty"`

	// Story-only fields.
	Title       string `json:"title,omitempty"`
	URL         string `json:"url,omitempty"`
	Score       *int   `json:"score,omitempty"`
	Descendants *int   `json:"descendants,omitempty"`
}

// Removed reports whether the item was deleted upstream.
func (i Item) Removed() bool { return i.Deleted }

// Flagged reports whether the item was killed by moderation or flags.
func (i Item) Flagged() bool { return i.Dead }

// Excluded reports whether the item must be dropped before any downstream stage.
func (i Item) Excluded() bool { return i.Removed() || i.Flagged() }

// CreatedAt converts the epoch-seconds timestamp.
func (i Item) CreatedAt() time.Time { return time.Unix(i.Time, 0).UTC() }

// Story is a top-level item that carries a title.
type Story struct {
	Item
}

// Comment is an item attached to a parent item.
type Comment struct {
	Item
}

// AsStory narrows an item to a Story.
func (i Item) AsStory() Story { return Story{Item: i} }

// AsComment narrows an item to a Comment.
func (i Item) AsComment() Comment { return Comment{Item: i} }

// ScoreOrZero returns the score, 0 when upstream omitted it.
func (s Story) ScoreOrZero() int {
	if s.Score == nil {
		return 0
	}
	return *s.Score
}

// DescendantsOrZero returns the descendant count, 0 when omitted.
func (s Story) DescendantsOrZero() int {
	if s.Descendants == nil {
		return 0
	}
	return *s.Descendants
}

// TranslatedPair couples a source text with its translation. Target equals
// Source when translation failed and is empty when Source was blank.
type TranslatedPair struct {
	Source string
	Target string
}

// Listing names a ranked list of story identifiers.
type Listing struct {
	Name     string
	Limit    int
	Comments bool
}

// Listings known to the item API.
var KnownListings = []string{"top", "new", "best", "ask", "show", "job"}

// IsKnownListing reports whether name is served by the item API.
func IsKnownListing(name string) bool {
	for _, l := range KnownListings {
		if l == name {
			return true
		}
	}
	return false
}
