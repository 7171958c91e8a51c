// Package config loads the feed source roster the worker crawls.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ADEMSU/insight-flow-rss/internal/domain/entity"
	appconfig "github.com/ADEMSU/insight-flow-rss/pkg/config"
)

// DefaultSourcesFile is used when SOURCES_FILE is not set.
const DefaultSourcesFile = "sources.yaml"

type sourcesFile struct {
	Sources []sourceEntry `yaml:"sources"`
}

// sourceEntry mirrors one roster row. Priority stays a string so both the
// named levels and bare integers parse; timeout is in seconds.
type sourceEntry struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
	Priority string `yaml:"priority"`
	Timeout  int    `yaml:"timeout"`
}

// LoadSources reads the roster from SOURCES_FILE, falling back to the
// RSS_SOURCES environment variable when the file is absent. An empty roster
// is an error: the worker has nothing to do without sources.
func LoadSources() ([]entity.FeedSource, error) {
	path := appconfig.GetEnvString("SOURCES_FILE", DefaultSourcesFile)

	sources, err := LoadSourcesFromFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("LoadSources: %w", err)
		}
		slog.Warn("sources file not found, falling back to RSS_SOURCES",
			slog.String("path", path))
		sources = ParseSourcesEnv(os.Getenv("RSS_SOURCES"))
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("LoadSources: no feed sources configured")
	}
	slog.Info("feed sources loaded", slog.Int("count", len(sources)))
	return sources, nil
}

// LoadSourcesFromFile parses a YAML or JSON roster file. YAML is a superset
// of JSON, so one decoder covers both. Malformed entries are skipped with a
// warning; a malformed file is an error.
func LoadSourcesFromFile(path string) ([]entity.FeedSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file sourcesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("LoadSourcesFromFile: parse %s: %w", path, err)
	}

	sources := make([]entity.FeedSource, 0, len(file.Sources))
	for _, entry := range file.Sources {
		src, err := entry.toFeedSource()
		if err != nil {
			slog.Warn("skipping feed source",
				slog.String("name", entry.Name),
				slog.Any("error", err))
			continue
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func (e sourceEntry) toFeedSource() (entity.FeedSource, error) {
	priority, err := entity.ParsePriority(e.Priority)
	if err != nil {
		return entity.FeedSource{}, err
	}
	if e.Timeout < 0 {
		return entity.FeedSource{}, fmt.Errorf("toFeedSource: negative timeout %d: %w", e.Timeout, entity.ErrInvalidInput)
	}

	src := entity.FeedSource{
		Name:     strings.TrimSpace(e.Name),
		URL:      strings.TrimSpace(e.URL),
		Category: e.Category,
		Priority: priority,
		Timeout:  time.Duration(e.Timeout) * time.Second,
	}
	if err := src.Validate(); err != nil {
		return entity.FeedSource{}, err
	}
	if !strings.HasPrefix(src.URL, "http://") && !strings.HasPrefix(src.URL, "https://") {
		return entity.FeedSource{}, fmt.Errorf("toFeedSource: url %q is not http(s): %w", src.URL, entity.ErrInvalidInput)
	}
	return src, nil
}

// ParseSourcesEnv parses the "Name1:url1,Name2:url2" compact roster format.
// Entries without a valid http(s) url are skipped.
func ParseSourcesEnv(raw string) []entity.FeedSource {
	var sources []entity.FeedSource
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, url, found := strings.Cut(pair, ":")
		if !found {
			slog.Warn("skipping malformed RSS_SOURCES entry", slog.String("entry", pair))
			continue
		}
		src := entity.FeedSource{
			Name:     strings.TrimSpace(name),
			URL:      strings.TrimSpace(url),
			Priority: entity.PriorityMedium,
		}
		if src.Name == "" || !strings.HasPrefix(src.URL, "http://") && !strings.HasPrefix(src.URL, "https://") {
			slog.Warn("skipping malformed RSS_SOURCES entry", slog.String("entry", pair))
			continue
		}
		sources = append(sources, src)
	}
	return sources
}
