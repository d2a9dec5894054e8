package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/tesso57/feedwatch/internal/application/settings"
	"github.com/tesso57/feedwatch/internal/application/usecase"
	"github.com/tesso57/feedwatch/internal/domain/monitor"
	"github.com/tesso57/feedwatch/internal/infrastructure/config"
	"github.com/tesso57/feedwatch/internal/infrastructure/extract"
	"github.com/tesso57/feedwatch/internal/infrastructure/feed"
	"github.com/tesso57/feedwatch/internal/infrastructure/lock"
	"github.com/tesso57/feedwatch/internal/infrastructure/logger"
	"github.com/tesso57/feedwatch/internal/infrastructure/mail"
	"github.com/tesso57/feedwatch/internal/infrastructure/metrics"
	"github.com/tesso57/feedwatch/internal/infrastructure/store"
)

type runCmd struct {
	DryRun bool `help:"Print notifications to stdout instead of sending mail." name:"dry-run"`
}

func (c *runCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(g.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	s := cfg.Settings
	log := logger.New(g.Stderr, g.Verbose || s.Verbose).With("pass", uuid.NewString())

	lk, err := lock.Acquire(lock.PathFor(s.DatabasePath))
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = lk.Release() }()

	st, err := store.Open(s.DatabasePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	notifier := newNotifier(s, c.DryRun, g)
	svc := usecase.MonitorService{
		Config: usecase.MonitorConfig{
			Feeds:         s.Feeds,
			RetentionDays: s.RetentionDays,
			Health:        monitor.HealthPolicy{Threshold: s.ErrorThreshold},
		},
		Fetcher:   feed.NewFetcher(s.FeedTimeout()),
		Extractor: extract.New(s.RequestTimeout(), log),
		Store:     st,
		Digests:   notifier,
		Alerts:    notifier,
		Logger:    log,
	}

	report, passErr := svc.RunPass(ctx)
	log.Info("pass finished",
		"feeds", len(report.Feeds),
		"new", report.NewArticles(),
		"pruned", report.Pruned,
		"duration", report.Finished.Sub(report.Started),
	)

	if s.MetricsFile != "" {
		rec := metrics.NewRecorder()
		rec.Observe(report, passErr)
		if err := rec.WriteFile(s.MetricsFile); err != nil {
			log.Warn("metrics write failed", "path", s.MetricsFile, "error", err)
		}
	}
	return passErr
}

func newNotifier(s settings.Settings, dryRun bool, g *Globals) usecase.Notifier {
	if dryRun || !s.SMTP.Enabled() {
		return mail.WriterNotifier{W: g.Stdout}
	}
	return &mail.SMTPNotifier{
		Host:      s.SMTP.Host,
		Port:      s.SMTP.Port,
		Username:  s.SMTP.Username,
		Password:  s.SMTP.Password,
		Sender:    s.SMTP.Sender,
		Recipient: s.SMTP.Recipient,
	}
}

type feedsCmd struct {
	List   feedsListCmd   `cmd:"" default:"1" help:"List subscriptions."`
	Add    feedsAddCmd    `cmd:"" help:"Subscribe to a feed."`
	Remove feedsRemoveCmd `cmd:"" help:"Unsubscribe from a feed."`
}

type feedsListCmd struct{}

func (feedsListCmd) Run(g *Globals) error {
	svc, err := subscriptions(g)
	if err != nil {
		return err
	}
	subs, err := svc.List()
	if err != nil {
		return err
	}
	printSubscriptions(g, subs)
	return nil
}

type feedsAddCmd struct {
	URL     string `arg:"" help:"Feed URL."`
	Keyword string `help:"Only report articles containing this text." short:"k"`
}

func (c *feedsAddCmd) Run(g *Globals) error {
	svc, err := subscriptions(g)
	if err != nil {
		return err
	}
	subs, err := svc.Add(c.URL, c.Keyword)
	if err != nil {
		return err
	}
	printSubscriptions(g, subs)
	return nil
}

type feedsRemoveCmd struct {
	Index int `arg:"" help:"Position shown by 'feeds list'."`
}

func (c *feedsRemoveCmd) Run(g *Globals) error {
	svc, err := subscriptions(g)
	if err != nil {
		return err
	}
	subs, err := svc.Remove(c.Index - 1)
	if err != nil {
		return err
	}
	printSubscriptions(g, subs)
	return nil
}

func subscriptions(g *Globals) (usecase.SubscriptionService, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return usecase.SubscriptionService{}, fmt.Errorf("load config: %w", err)
	}
	return usecase.NewSubscriptionService(cfg), nil
}

func printSubscriptions(g *Globals, subs []monitor.Subscription) {
	w := tabwriter.NewWriter(g.Stdout, 0, 4, 2, ' ', 0)
	for i, sub := range subs {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, sub.URL, sub.Keyword)
	}
	_ = w.Flush()
}

type statusCmd struct{}

func (statusCmd) Run(g *Globals) error {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	s := cfg.Settings
	if _, err := os.Stat(s.DatabasePath); errors.Is(err, os.ErrNotExist) {
		_, _ = fmt.Fprintln(g.Stdout, "no passes recorded yet")
		return nil
	}

	st, err := store.Open(s.DatabasePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	ctx := context.Background()
	states, err := st.Feeds(ctx)
	if err != nil {
		return err
	}
	policy := monitor.HealthPolicy{Threshold: s.ErrorThreshold}
	w := tabwriter.NewWriter(g.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FEED\tLAST CHECKED\tFAILURES\tARTICLES\tSTATUS")
	for _, state := range states {
		n, err := st.CountArticles(ctx, state.URL)
		if err != nil {
			return err
		}
		status := "ok"
		switch {
		case policy.Alerting(state.FailureCount):
			status = "alerting"
		case state.FailureCount > 0:
			status = "failing"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			state.URL, state.LastChecked.Local().Format(time.DateTime), state.FailureCount, n, status)
	}
	return w.Flush()
}
