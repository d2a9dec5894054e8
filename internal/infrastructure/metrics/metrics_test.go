package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tesso57/feedwatch/internal/application/usecase"
)

func TestRecorder_WriteFile(t *testing.T) {
	started := time.Date(2026, 3, 31, 8, 0, 0, 0, time.UTC)
	report := usecase.PassReport{
		Started:  started,
		Finished: started.Add(1500 * time.Millisecond),
		Pruned:   4,
		Feeds: []usecase.FeedReport{
			{URL: "https://example.com/a.xml", NewArticles: 2, Filtered: 1, Expired: 5},
			{URL: "https://example.com/b.xml", Failed: true, FailureCount: 3, Alerted: true},
		},
	}

	r := NewRecorder()
	r.Observe(report, nil)
	path := filepath.Join(t.TempDir(), "feedwatch.prom")
	require.NoError(t, r.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	for _, want := range []string{
		`feedwatch_pass_new_articles{feed="https://example.com/a.xml"} 2`,
		`feedwatch_pass_filtered_articles{feed="https://example.com/a.xml"} 1`,
		`feedwatch_pass_expired_articles{feed="https://example.com/a.xml"} 5`,
		`feedwatch_feed_consecutive_failures{feed="https://example.com/b.xml"} 3`,
		`feedwatch_feed_up{feed="https://example.com/a.xml"} 1`,
		`feedwatch_feed_up{feed="https://example.com/b.xml"} 0`,
		"feedwatch_pass_alerts 1",
		"feedwatch_pass_pruned_articles 4",
		"feedwatch_last_pass_duration_seconds 1.5",
		"feedwatch_last_pass_success 1",
	} {
		assert.True(t, strings.Contains(out, want), "missing %q in:\n%s", want, out)
	}
}

func TestRecorder_StorageFailureMarksPassFailed(t *testing.T) {
	r := NewRecorder()
	r.Observe(usecase.PassReport{}, errors.New("duplicate article"))
	path := filepath.Join(t.TempDir(), "feedwatch.prom")
	require.NoError(t, r.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "feedwatch_last_pass_success 0")
}

func TestRecorder_WriteFileMissingDirectory(t *testing.T) {
	r := NewRecorder()
	err := r.WriteFile(filepath.Join(t.TempDir(), "missing", "feedwatch.prom"))
	assert.Error(t, err)
}
