// Package extract turns an article page into readable plain text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html/charset"
)

const (
	// DefaultTimeout bounds a page fetch when none is configured.
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 4 << 20
	userAgent    = "feedwatch/1.0"
)

var errNoContent = errors.New("no readable content")

// Extractor fetches article pages. Failures never propagate: Extract returns
// an empty string instead.
type Extractor struct {
	client *http.Client
	policy *bluemonday.Policy
	logger *slog.Logger
}

// New creates an Extractor whose page fetches are bounded by timeout.
func New(timeout time.Duration, logger *slog.Logger) *Extractor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		client: &http.Client{Timeout: timeout},
		policy: newStripPolicy(),
		logger: logger,
	}
}

func newStripPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}

// Extract returns the main text of the page at link, or "" when the page
// cannot be fetched or yields no content.
func (e *Extractor) Extract(ctx context.Context, link string) string {
	text, err := e.extract(ctx, link)
	if err != nil {
		e.logger.Info("content extraction failed", "url", link, "error", err)
		return ""
	}
	return text
}

func (e *Extractor) extract(ctx context.Context, link string) (string, error) {
	pageURL, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return "", err
	}
	if pageURL.Scheme != "http" && pageURL.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", pageURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("decode charset: %w", err)
	}

	fragment, err := mainContent(body, pageURL)
	if err != nil {
		return "", err
	}
	text := e.StripMarkup(fragment)
	if text == "" {
		return "", errNoContent
	}
	return text, nil
}

// mainContent drops obvious boilerplate and returns the readability HTML
// fragment of the page.
func mainContent(r io.Reader, pageURL *url.URL) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript, template, iframe, embed, object, nav, footer, form").Remove()

	cleaned, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(cleaned), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	var buf strings.Builder
	if err := article.RenderHTML(&buf); err != nil {
		return "", fmt.Errorf("readability render: %w", err)
	}
	return buf.String(), nil
}

// StripMarkup removes every tag from fragment and returns whitespace-normalized
// plain text.
func (e *Extractor) StripMarkup(fragment string) string {
	sanitized := e.policy.Sanitize(fragment)
	return strings.Join(strings.Fields(html.UnescapeString(sanitized)), " ")
}
