// Package feed provides functionality to fetch and parse RSS/Atom feeds.
package feed

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/tesso57/feedwatch/internal/domain/monitor"
)

const (
	userAgent        = "feedwatch/1.0"
	feedAcceptHeader = "application/atom+xml, application/rss+xml, application/feed+json, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5"
)

type acceptTransport struct {
	base http.RoundTripper
}

func (t acceptTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	clone := req.Clone(req.Context())
	if clone.Header.Get("Accept") == "" {
		clone.Header.Set("Accept", feedAcceptHeader)
	}
	return base.RoundTrip(clone)
}

// ParserFunc is exposed for testing.
// It allows mocking the feed parsing logic.
var ParserFunc = defaultParser

func defaultParser(ctx context.Context, url string) (*gofeed.Feed, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = userAgent
	fp.Client = &http.Client{Transport: acceptTransport{base: http.DefaultTransport}}
	return fp.ParseURLWithContext(url, ctx)
}

// Fetcher parses feeds over HTTP. Timeout bounds a single fetch; zero means
// the caller's context is the only bound.
type Fetcher struct {
	Timeout time.Duration
}

// NewFetcher creates a Fetcher with the given per-feed timeout.
func NewFetcher(timeout time.Duration) Fetcher {
	return Fetcher{Timeout: timeout}
}

// Fetch parses the feed at url. Any error means the feed was unreachable or
// malformed.
func (f Fetcher) Fetch(ctx context.Context, url string) (*monitor.ParsedFeed, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("feed url is empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	parsed, err := ParserFunc(ctx, url)
	if err != nil {
		return nil, err
	}
	if parsed == nil {
		return nil, errors.New("feed parser returned no feed")
	}

	out := new(monitor.ParsedFeed{
		URL:   url,
		Title: parsed.Title,
		Items: make([]monitor.Item, 0, len(parsed.Items)),
	})
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		out.Items = append(out.Items, toItem(item))
	}
	return out, nil
}

func toItem(item *gofeed.Item) monitor.Item {
	var date time.Time
	if item.PublishedParsed != nil {
		date = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		date = *item.UpdatedParsed
	}

	return monitor.Item{
		GUID:        item.GUID,
		Title:       item.Title,
		Link:        item.Link,
		Description: item.Description,
		Published:   item.Published,
		Date:        date,
	}
}
