// Package settings defines application-level configuration data.
package settings

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tesso57/feedwatch/internal/domain/monitor"
)

// DefaultFeedURL is written to a freshly created configuration file.
const DefaultFeedURL = "https://news.opensuse.org/feed/"

// SMTPConfig defines the outbound mail settings.
type SMTPConfig struct {
	Host      string `yaml:"host" kong:"help='SMTP host; notifications are printed to stdout when empty'"`
	Port      int    `yaml:"port" kong:"help='SMTP port (implicit TLS)',default='465'"`
	Username  string `yaml:"username" kong:"help='SMTP username'"`
	Password  string `yaml:"password" kong:"help='SMTP password'"`
	Sender    string `yaml:"sender" kong:"help='Sender address'"`
	Recipient string `yaml:"recipient" kong:"help='Recipient address'"`
}

// Enabled reports whether mail delivery is configured.
func (c SMTPConfig) Enabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

// Settings represents the application configuration.
type Settings struct {
	Feeds                 []monitor.Subscription `yaml:"feeds" kong:"-"`
	DatabasePath          string                 `yaml:"database_path" kong:"help='SQLite database path'"`
	RetentionDays         int                    `yaml:"retention_days" kong:"help='Days to keep archived articles',default='30'"`
	ErrorThreshold        int                    `yaml:"error_threshold" kong:"help='Consecutive feed failures before alerting',default='3'"`
	RequestTimeoutSeconds int                    `yaml:"request_timeout_seconds" kong:"help='Article content fetch timeout in seconds',default='10'"`
	FeedTimeoutSeconds    int                    `yaml:"feed_timeout_seconds" kong:"help='Feed fetch timeout in seconds',default='30'"`
	Verbose               bool                   `yaml:"verbose" kong:"help='Verbose logging',default='false'"`
	MetricsFile           string                 `yaml:"metrics_file" kong:"help='Prometheus textfile to write after each pass'"`
	SMTP                  SMTPConfig             `yaml:"smtp" kong:"embed,prefix='smtp.'"`
}

// FeedURLs returns the configured feed URLs in order.
func (s Settings) FeedURLs() []string {
	urls := make([]string, 0, len(s.Feeds))
	for _, f := range s.Feeds {
		urls = append(urls, f.URL)
	}
	return urls
}

// RequestTimeout returns the article content fetch timeout.
func (s Settings) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// FeedTimeout returns the feed fetch timeout.
func (s Settings) FeedTimeout() time.Duration {
	return time.Duration(s.FeedTimeoutSeconds) * time.Second
}

// Validate checks option ranges and feed URLs.
func (s Settings) Validate() error {
	var errs []error
	if s.RetentionDays <= 0 {
		errs = append(errs, errors.New("retention_days must be positive"))
	}
	if s.ErrorThreshold <= 0 {
		errs = append(errs, errors.New("error_threshold must be positive"))
	}
	if s.RequestTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("request_timeout_seconds must be positive"))
	}
	if s.FeedTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("feed_timeout_seconds must be positive"))
	}
	seen := make(map[string]int, len(s.Feeds))
	for i, f := range s.Feeds {
		if err := ValidateFeedURL(f.URL); err != nil {
			errs = append(errs, fmt.Errorf("feeds[%d]: %w", i, err))
			continue
		}
		if first, ok := seen[f.URL]; ok {
			errs = append(errs, fmt.Errorf("feeds[%d]: duplicate of feeds[%d] (%s)", i, first, f.URL))
			continue
		}
		seen[f.URL] = i
	}
	if s.SMTP.Enabled() {
		if s.SMTP.Port <= 0 || s.SMTP.Port > 65535 {
			errs = append(errs, errors.New("smtp.port out of range"))
		}
		if s.SMTP.Sender == "" || s.SMTP.Recipient == "" {
			errs = append(errs, errors.New("smtp.sender and smtp.recipient are required when smtp.host is set"))
		}
	}
	return errors.Join(errs...)
}

// ValidateFeedURL rejects empty URLs and URLs containing whitespace.
func ValidateFeedURL(url string) error {
	if strings.TrimSpace(url) == "" {
		return errors.New("feed url is empty")
	}
	if strings.ContainsAny(url, " \t\r\n") {
		return errors.New("feed url contains whitespace")
	}
	return nil
}
