// Package feed fetches, normalizes, and caches Stacker News territory feeds.
package feed

import "time"

// UnknownAuthor is the sentinel used when no author can be derived.
const UnknownAuthor = "unknown"

// Item is one normalized post from a territory feed.
type Item struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	PublishedAt string `json:"publishedAt,omitempty"`
	Points      int    `json:"points"`
	Author      string `json:"author"`
	Comments    int    `json:"commentCount,omitempty"`
	Description string `json:"description,omitempty"`

	// Published is the parsed form of PublishedAt; zero when unparseable.
	Published time.Time `json:"-"`
}

// Feed is the ordered item list for one territory at one fetch time.
// Items preserve document order. An empty Items slice is a valid feed,
// distinct from a failed fetch (which returns an error instead).
type Feed struct {
	Territory string
	Items     []Item
	FetchedAt time.Time
}
