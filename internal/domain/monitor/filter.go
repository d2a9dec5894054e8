package monitor

import "strings"

// Matches reports whether keyword occurs, ignoring case, in the combined
// title, description and content. An empty keyword matches everything.
func Matches(title, description, content, keyword string) bool {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return true
	}
	haystack := strings.ToLower(title + description + content)
	return strings.Contains(haystack, strings.ToLower(keyword))
}
