package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ADEMSU/insight-flow-rss/internal/infra/notifier"
	"github.com/ADEMSU/insight-flow-rss/internal/usecase/llm"
)

// buildStories pairs summaries with their source posts in delivery order.
// A summary whose post disappeared in the final similarity pass is skipped.
func buildStories(summaries []llm.Summary, postsByID map[string]string) []notifier.Story {
	stories := make([]notifier.Story, 0, len(summaries))
	for _, s := range summaries {
		url, ok := postsByID[s.PostID]
		if !ok {
			continue
		}
		stories = append(stories, notifier.Story{
			Index:   len(stories) + 1,
			Title:   s.Title,
			Summary: s.Summary,
			URL:     url,
		})
	}
	return stories
}

// archiveDigest writes the composed digest to `digest_YYYY-MM-DD.txt` before
// delivery, so a failed delivery still leaves the digest on disk.
func archiveDigest(logsDir string, at time.Time, stories []notifier.Story) error {
	if logsDir == "" {
		return nil
	}

	lines := []string{
		fmt.Sprintf("Дайджест за %s", at.In(moscow).Format("2006-01-02")),
		"",
	}
	for _, story := range stories {
		lines = append(lines,
			fmt.Sprintf("Сюжет %d: %s", story.Index, story.Title),
			fmt.Sprintf("Содержание: %s", story.Summary),
			fmt.Sprintf("Источник: %s", story.URL),
			"")
	}

	if err := os.MkdirAll(logsDir, 0o750); err != nil {
		return fmt.Errorf("archiveDigest: %w", err)
	}
	name := fmt.Sprintf("digest_%s.txt", at.In(moscow).Format("2006-01-02"))
	path := filepath.Join(logsDir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o640); err != nil {
		return fmt.Errorf("archiveDigest: %w", err)
	}
	return nil
}
