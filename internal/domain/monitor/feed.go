// Package monitor defines the feed monitoring domain: feeds, articles and the
// pure rules that decide identity, filtering, health and retention.
package monitor

import "time"

// Item represents a single entry of a parsed feed.
// Published is the raw feed value; Date is set when the transport already
// parsed it.
type Item struct {
	GUID        string
	Title       string
	Link        string
	Description string
	Published   string
	Date        time.Time
}

// PubDate returns the publication time of the item, falling back to now.
func (i Item) PubDate(now time.Time) time.Time {
	if !i.Date.IsZero() {
		return i.Date
	}
	return ParsePubDate(i.Published, now)
}

// ParsedFeed represents a successfully parsed syndication feed.
type ParsedFeed struct {
	URL   string
	Title string
	Items []Item
}

// Subscription is a configured feed with its optional keyword filter.
type Subscription struct {
	URL     string `yaml:"url"`
	Keyword string `yaml:"keyword,omitempty"`
}

// FeedState is the persisted health of a feed.
type FeedState struct {
	URL          string
	LastChecked  time.Time
	FailureCount int
}

// Article is a stored feed entry. Content is empty when extraction failed.
type Article struct {
	FeedURL     string
	Identifier  string
	Title       string
	Link        string
	Description string
	Content     string
	PubDate     time.Time
}

// Body returns the text shown for the article in a notification.
func (a Article) Body() string {
	if a.Content != "" {
		return a.Content
	}
	return a.Description
}
