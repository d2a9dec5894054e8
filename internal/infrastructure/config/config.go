// Package config handles configuration loading and saving.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/tesso57/feedwatch/internal/application/settings"
	"github.com/tesso57/feedwatch/internal/domain/monitor"
	"gopkg.in/yaml.v3"
)

// PasswordEnv overrides smtp.password when set.
const PasswordEnv = "FEEDWATCH_SMTP_PASSWORD"

// Store manages persisted application settings.
type Store struct {
	Settings   settings.Settings
	configPath string

	filePassword    string
	passwordFromEnv bool
}

// DefaultPath returns the configuration file used when none is given.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "feedwatch", "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "feedwatch", "config.yaml"), nil
}

// Load loads the configuration from the specified path or default location.
// A missing file is created with default settings.
func Load(customPath ...string) (*Store, error) {
	var configPath string
	if len(customPath) > 0 && customPath[0] != "" {
		configPath = customPath[0]
	} else {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		configPath = p
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	_, statErr := os.Stat(configPath)
	exists := statErr == nil

	cfg := settings.Settings{}
	var options []kong.Option
	if exists {
		options = append(options, kong.Configuration(yamlKongLoader, configPath))
	}

	parser, err := kong.New(&cfg, options...)
	if err != nil {
		return nil, err
	}
	if _, err := parser.Parse([]string{}); err != nil {
		return nil, err
	}

	if exists {
		feeds, err := readFeeds(configPath)
		if err != nil {
			return nil, err
		}
		cfg.Feeds = feeds
	} else {
		cfg.Feeds = []monitor.Subscription{{URL: settings.DefaultFeedURL}}
	}

	store := &Store{Settings: cfg, configPath: configPath}
	store.Settings.Feeds = normalizeFeeds(store.Settings.Feeds)
	store.Settings.DatabasePath = strings.TrimSpace(store.Settings.DatabasePath)
	if store.Settings.DatabasePath == "" {
		store.Settings.DatabasePath = filepath.Join(defaultDataHome(), "feedwatch", "feedwatch.db")
	}

	if !exists {
		if err := store.Save(); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
	}

	if pw := os.Getenv(PasswordEnv); pw != "" {
		store.filePassword = store.Settings.SMTP.Password
		store.Settings.SMTP.Password = pw
		store.passwordFromEnv = true
	}

	if err := store.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return store, nil
}

// Path returns the configuration file path.
func (s *Store) Path() string {
	return s.configPath
}

// feedEntry accepts either a bare URL or a {url, keyword} mapping.
type feedEntry monitor.Subscription

func (e *feedEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.URL = node.Value
		return nil
	}
	var sub struct {
		URL     string `yaml:"url"`
		Keyword string `yaml:"keyword"`
	}
	if err := node.Decode(&sub); err != nil {
		return err
	}
	e.URL = sub.URL
	e.Keyword = sub.Keyword
	return nil
}

func readFeeds(path string) ([]monitor.Subscription, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var doc struct {
		Feeds []feedEntry `yaml:"feeds"`
	}
	if err := yaml.NewDecoder(f).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse feeds: %w", err)
	}
	feeds := make([]monitor.Subscription, 0, len(doc.Feeds))
	for _, entry := range doc.Feeds {
		feeds = append(feeds, monitor.Subscription(entry))
	}
	return feeds, nil
}

func normalizeFeeds(feeds []monitor.Subscription) []monitor.Subscription {
	if len(feeds) == 0 {
		return feeds
	}
	normalized := make([]monitor.Subscription, 0, len(feeds))
	for _, feed := range feeds {
		url := strings.TrimSpace(feed.URL)
		if url == "" {
			continue
		}
		normalized = append(normalized, monitor.Subscription{
			URL:     url,
			Keyword: strings.TrimSpace(feed.Keyword),
		})
	}
	return normalized
}

func defaultDataHome() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome != "" {
		return dataHome
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

func yamlKongLoader(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil {
		if err == io.EOF {
			return nil, nil // Return nil resolver (no op)
		}
		return nil, err
	}

	var f kong.ResolverFunc = func(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
		names := []string{flag.Name, strings.ReplaceAll(flag.Name, "-", "_")}
		for _, name := range names {
			if v, ok := values[name]; ok {
				return v, nil
			}

			// smtp.host and friends live in a nested mapping.
			parts := strings.Split(name, ".")
			if len(parts) > 1 {
				curr := values
				for i, part := range parts {
					if i == len(parts)-1 {
						if v, ok := curr[part]; ok {
							return v, nil
						}
					} else {
						if nextMap, ok := curr[part].(map[string]any); ok {
							curr = nextMap
						} else {
							break
						}
					}
				}
			}
		}
		return nil, nil
	}
	return f, nil
}

// List returns the configured feeds.
func (s *Store) List() ([]monitor.Subscription, error) {
	feeds := make([]monitor.Subscription, len(s.Settings.Feeds))
	copy(feeds, s.Settings.Feeds)
	return feeds, nil
}

// Add appends a feed and saves the configuration.
func (s *Store) Add(sub monitor.Subscription) error {
	s.Settings.Feeds = append(s.Settings.Feeds, sub)
	return s.Save()
}

// Remove deletes a feed by index and saves the configuration.
func (s *Store) Remove(index int) error {
	if index < 0 || index >= len(s.Settings.Feeds) {
		return fmt.Errorf("invalid feed index: %d", index)
	}
	s.Settings.Feeds = append(s.Settings.Feeds[:index], s.Settings.Feeds[index+1:]...)
	return s.Save()
}

// Save writes the current settings to the config file. A password taken from
// the environment is never written back.
func (s *Store) Save() error {
	out := s.Settings
	if s.passwordFromEnv {
		out.SMTP.Password = s.filePassword
	}

	f, err := os.OpenFile(s.configPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return yaml.NewEncoder(f).Encode(out)
}
