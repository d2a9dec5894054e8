// Package store persists feed health and the article archive in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tesso57/feedwatch/internal/domain/monitor"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrDuplicateArticle is returned when an article with the same feed and
	// identifier is already stored. Seeing it means deduplication failed.
	ErrDuplicateArticle = errors.New("duplicate article")
	// ErrFeedNotFound is returned for feeds without a row.
	ErrFeedNotFound = errors.New("feed not found")
)

// Store owns the feeds and articles tables.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS feeds (
			feed_url TEXT PRIMARY KEY,
			last_checked TIMESTAMP,
			failure_count INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS articles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			feed_url TEXT NOT NULL,
			identifier TEXT NOT NULL,
			title TEXT,
			link TEXT,
			description TEXT,
			fetched_content TEXT,
			pub_date TIMESTAMP NOT NULL,
			UNIQUE(feed_url, identifier)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_articles_pub_date ON articles(pub_date);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Timestamps are fixed-width UTC text so SQL string comparison is
// chronological.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000") + "Z"
}

func parseTime(v string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, v)
}

// EnsureFeeds creates a row for every feed that does not have one yet.
func (s *Store) EnsureFeeds(ctx context.Context, urls []string, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO feeds (feed_url, last_checked, failure_count) VALUES (?, ?, 0)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	checked := formatTime(now)
	for _, url := range urls {
		if _, err := stmt.ExecContext(ctx, url, checked); err != nil {
			return fmt.Errorf("ensure feed %s: %w", url, err)
		}
	}
	return tx.Commit()
}

// Feed returns the persisted state of one feed.
func (s *Store) Feed(ctx context.Context, url string) (monitor.FeedState, error) {
	row := s.db.QueryRowContext(ctx, `SELECT feed_url, last_checked, failure_count FROM feeds WHERE feed_url = ?`, url)
	state, err := scanFeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return monitor.FeedState{}, fmt.Errorf("%w: %s", ErrFeedNotFound, url)
	}
	return state, err
}

// Feeds returns every known feed ordered by URL.
func (s *Store) Feeds(ctx context.Context) ([]monitor.FeedState, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT feed_url, last_checked, failure_count FROM feeds ORDER BY feed_url`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []monitor.FeedState
	for rows.Next() {
		state, err := scanFeed(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, state)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFeed(row scanner) (monitor.FeedState, error) {
	var (
		state   monitor.FeedState
		checked sql.NullString
	)
	if err := row.Scan(&state.URL, &checked, &state.FailureCount); err != nil {
		return monitor.FeedState{}, err
	}
	if checked.Valid && checked.String != "" {
		t, err := parseTime(checked.String)
		if err != nil {
			return monitor.FeedState{}, fmt.Errorf("feed %s last_checked: %w", state.URL, err)
		}
		state.LastChecked = t
	}
	return state, nil
}

// RecordSuccess resets the failure counter and stamps the check time.
func (s *Store) RecordSuccess(ctx context.Context, url string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE feeds SET failure_count = 0, last_checked = ? WHERE feed_url = ?`, formatTime(now), url)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrFeedNotFound, url)
	}
	return nil
}

// RecordFailure increments the failure counter and returns its new value.
func (s *Store) RecordFailure(ctx context.Context, url string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`UPDATE feeds SET failure_count = failure_count + 1 WHERE feed_url = ? RETURNING failure_count`, url,
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrFeedNotFound, url)
	}
	return count, err
}

// KnownIdentifiers loads every stored identifier of a feed in one query.
func (s *Store) KnownIdentifiers(ctx context.Context, feedURL string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT identifier FROM articles WHERE feed_url = ?`, feedURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	seen := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		seen[id] = struct{}{}
	}
	return seen, rows.Err()
}

// InsertArticles stores a batch in a single transaction. If any article is
// already stored the whole batch is rolled back and ErrDuplicateArticle is
// returned.
func (s *Store) InsertArticles(ctx context.Context, articles []monitor.Article) error {
	if len(articles) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO articles (feed_url, identifier, title, link, description, fetched_content, pub_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, a := range articles {
		content := sql.NullString{String: a.Content, Valid: a.Content != ""}
		_, err := stmt.ExecContext(ctx, a.FeedURL, a.Identifier, a.Title, a.Link, a.Description, content, formatTime(a.PubDate))
		if err != nil {
			if isConstraintViolation(err) {
				return fmt.Errorf("%w: feed=%s identifier=%s", ErrDuplicateArticle, a.FeedURL, a.Identifier)
			}
			return fmt.Errorf("insert article %s: %w", a.Identifier, err)
		}
	}
	return tx.Commit()
}

func isConstraintViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

// Articles returns the stored articles of a feed, oldest first.
func (s *Store) Articles(ctx context.Context, feedURL string) ([]monitor.Article, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT feed_url, identifier, title, link, description, fetched_content, pub_date
		FROM articles WHERE feed_url = ? ORDER BY pub_date, id`, feedURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []monitor.Article
	for rows.Next() {
		var (
			a                       monitor.Article
			title, link, desc, body sql.NullString
			pub                     string
		)
		if err := rows.Scan(&a.FeedURL, &a.Identifier, &title, &link, &desc, &body, &pub); err != nil {
			return nil, err
		}
		a.Title, a.Link, a.Description, a.Content = title.String, link.String, desc.String, body.String
		if a.PubDate, err = parseTime(pub); err != nil {
			return nil, fmt.Errorf("article %s pub_date: %w", a.Identifier, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountArticles returns the number of stored articles for a feed.
func (s *Store) CountArticles(ctx context.Context, feedURL string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles WHERE feed_url = ?`, feedURL).Scan(&n)
	return n, err
}

// Prune deletes every article published before cutoff, across all feeds.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE pub_date < ?`, formatTime(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
