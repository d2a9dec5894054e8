package monitor

import (
	"fmt"
	"strings"
)

// Message is a plain-text notification.
type Message struct {
	Subject string
	Body    string
}

// ComposeDigest builds one message listing every new article of a feed.
// It returns false when there is nothing to send.
func ComposeDigest(feedTitle, feedURL string, articles []Article) (Message, bool) {
	if len(articles) == 0 {
		return Message{}, false
	}
	title := strings.TrimSpace(feedTitle)
	if title == "" {
		title = feedURL
	}

	var b strings.Builder
	fmt.Fprintf(&b, "New articles in %s:\n\n", title)
	for _, a := range articles {
		fmt.Fprintf(&b, "Title: %s\nLink: %s\nContent: %s\n\n", a.Title, a.Link, a.Body())
	}
	return Message{
		Subject: "New RSS Articles: " + title,
		Body:    b.String(),
	}, true
}

// ComposeAlert builds the health alert for a failing feed.
func ComposeAlert(feedURL string, failureCount int, cause error) Message {
	reason := "unknown error"
	if cause != nil {
		reason = cause.Error()
	}
	return Message{
		Subject: "RSS Monitor Error: " + feedURL,
		Body:    fmt.Sprintf("Failed to parse feed %s %d times. Error: %s", feedURL, failureCount, reason),
	}
}
