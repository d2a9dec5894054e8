// Package usecase contains application-level services.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tesso57/feedwatch/internal/domain/monitor"
)

const (
	missingTitle       = "No title"
	missingLink        = "No link"
	missingDescription = "No description"
)

// FeedFetcher abstracts feed fetching and parsing.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (*monitor.ParsedFeed, error)
}

// ContentExtractor returns the readable text of a page, or "" on failure.
type ContentExtractor interface {
	Extract(ctx context.Context, link string) string
}

// ArticleRepository abstracts feed health and article persistence.
type ArticleRepository interface {
	EnsureFeeds(ctx context.Context, urls []string, now time.Time) error
	RecordSuccess(ctx context.Context, url string, now time.Time) error
	RecordFailure(ctx context.Context, url string) (int, error)
	KnownIdentifiers(ctx context.Context, feedURL string) (map[string]struct{}, error)
	InsertArticles(ctx context.Context, articles []monitor.Article) error
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Notifier delivers a message.
type Notifier interface {
	Send(ctx context.Context, msg monitor.Message) error
}

// MonitorConfig holds the static options of a pass.
type MonitorConfig struct {
	Feeds         []monitor.Subscription
	RetentionDays int
	Health        monitor.HealthPolicy
}

// FeedReport describes the outcome of one feed within a pass.
type FeedReport struct {
	URL          string
	NewArticles  int
	Filtered     int
	Expired      int
	Failed       bool
	FailureCount int
	Alerted      bool
	NotifyFailed bool
	Err          error
}

// PassReport summarizes a pass.
type PassReport struct {
	Started  time.Time
	Finished time.Time
	Feeds    []FeedReport
	Pruned   int64
}

// NewArticles returns the number of articles stored during the pass.
func (r PassReport) NewArticles() int {
	n := 0
	for _, f := range r.Feeds {
		n += f.NewArticles
	}
	return n
}

// MonitorService runs polling passes over the configured feeds.
type MonitorService struct {
	Config    MonitorConfig
	Fetcher   FeedFetcher
	Extractor ContentExtractor
	Store     ArticleRepository
	Digests   Notifier
	Alerts    Notifier
	Logger    *slog.Logger
	Now       func() time.Time
}

// RunPass polls every configured feed once, in order, and prunes the archive.
// A failing feed never stops the pass. The returned error is non-nil only for
// storage failures, which include duplicate inserts.
func (s MonitorService) RunPass(ctx context.Context) (PassReport, error) {
	log := s.logger()
	report := PassReport{Started: s.now()}

	urls := make([]string, 0, len(s.Config.Feeds))
	for _, f := range s.Config.Feeds {
		urls = append(urls, f.URL)
	}
	if err := s.Store.EnsureFeeds(ctx, urls, report.Started); err != nil {
		report.Finished = s.now()
		return report, fmt.Errorf("ensure feeds: %w", err)
	}

	var errs []error
	for _, sub := range s.Config.Feeds {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		fr, err := s.pollFeed(ctx, sub)
		if err != nil {
			fr.Err = err
			log.Error("feed storage failure", "feed", sub.URL, "error", err)
			errs = append(errs, fmt.Errorf("feed %s: %w", sub.URL, err))
		}
		report.Feeds = append(report.Feeds, fr)
	}

	cutoff := monitor.RetentionCutoff(s.now(), s.Config.RetentionDays)
	pruned, err := s.Store.Prune(ctx, cutoff)
	if err != nil {
		log.Error("prune failed", "error", err)
		errs = append(errs, fmt.Errorf("prune: %w", err))
	} else {
		report.Pruned = pruned
		log.Info("pruned old articles", "cutoff", cutoff, "deleted", pruned)
	}

	report.Finished = s.now()
	return report, errors.Join(errs...)
}

func (s MonitorService) pollFeed(ctx context.Context, sub monitor.Subscription) (FeedReport, error) {
	log := s.logger().With("feed", sub.URL)
	fr := FeedReport{URL: sub.URL}
	log.Debug("checking feed", "filter", sub.Keyword)

	parsed, fetchErr := s.Fetcher.Fetch(ctx, sub.URL)
	if fetchErr == nil && parsed == nil {
		fetchErr = errors.New("fetcher returned no feed")
	}
	if fetchErr != nil {
		fr.Failed = true
		count, err := s.Store.RecordFailure(ctx, sub.URL)
		if err != nil {
			return fr, err
		}
		fr.FailureCount = count
		log.Warn("feed fetch failed", "failures", count, "error", fetchErr)
		if s.Config.Health.Alerting(count) {
			fr.Alerted = true
			if err := s.Alerts.Send(ctx, monitor.ComposeAlert(sub.URL, count, fetchErr)); err != nil {
				fr.NotifyFailed = true
				log.Error("alert dispatch failed", "error", err)
			}
		}
		return fr, nil
	}

	if err := s.Store.RecordSuccess(ctx, sub.URL, s.now()); err != nil {
		return fr, err
	}

	seen, err := s.Store.KnownIdentifiers(ctx, sub.URL)
	if err != nil {
		return fr, err
	}

	now := s.now()
	cutoff := monitor.RetentionCutoff(now, s.Config.RetentionDays)
	var accepted []monitor.Article
	for _, item := range parsed.Items {
		id := monitor.Identifier(item)
		if _, ok := seen[id]; ok {
			continue
		}
		// Articles past the cutoff are never stored, so pruning cannot make
		// them unseen again.
		pub := item.PubDate(now)
		if pub.Before(cutoff) {
			fr.Expired++
			log.Debug("skipping article outside retention window", "id", id, "published", pub)
			continue
		}
		var content string
		if item.Link != "" {
			content = s.Extractor.Extract(ctx, item.Link)
		}
		if !monitor.Matches(item.Title, item.Description, content, sub.Keyword) {
			fr.Filtered++
			continue
		}
		accepted = append(accepted, monitor.Article{
			FeedURL:     sub.URL,
			Identifier:  id,
			Title:       orDefault(item.Title, missingTitle),
			Link:        orDefault(item.Link, missingLink),
			Description: orDefault(item.Description, missingDescription),
			Content:     content,
			PubDate:     pub,
		})
		seen[id] = struct{}{}
	}

	if err := s.Store.InsertArticles(ctx, accepted); err != nil {
		return fr, err
	}
	fr.NewArticles = len(accepted)
	log.Debug("feed checked", "items", len(parsed.Items), "new", fr.NewArticles, "filtered", fr.Filtered, "expired", fr.Expired)

	msg, ok := monitor.ComposeDigest(parsed.Title, sub.URL, accepted)
	if !ok {
		return fr, nil
	}
	if err := s.Digests.Send(ctx, msg); err != nil {
		fr.NotifyFailed = true
		log.Error("notification dispatch failed", "error", err)
	} else {
		log.Info("notification sent", "subject", msg.Subject, "articles", len(accepted))
	}
	return fr, nil
}

func (s MonitorService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s MonitorService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
