package entity

import (
	"fmt"
	"strconv"
	"time"
)

// FeedSource represents one configured RSS feed.
// Priority is an integer where a lower value means higher priority; the
// configuration file may spell it as "high"/"medium"/"low" which map to
// 1/5/10.
type FeedSource struct {
	ID       int64
	Name     string        `yaml:"name" json:"name"`
	URL      string        `yaml:"url" json:"url"`
	Category string        `yaml:"category" json:"category"`
	Priority int           `yaml:"-" json:"-"`
	Timeout  time.Duration `yaml:"-" json:"-"`
}

// Named priority levels accepted in the sources file.
const (
	PriorityHigh   = 1
	PriorityMedium = 5
	PriorityLow    = 10
)

// ParsePriority converts a configured priority value into its integer form.
// Accepts the named levels and plain integers; anything else is an error.
func ParsePriority(raw string) (int, error) {
	switch raw {
	case "", "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	case "low":
		return PriorityLow, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("ParsePriority: invalid priority %q: %w", raw, ErrInvalidInput)
	}
	return n, nil
}

// Validate validates the FeedSource fields.
func (s *FeedSource) Validate() error {
	if s.Name == "" {
		return &ValidationError{Field: "name", Message: "must not be empty"}
	}
	if s.URL == "" {
		return &ValidationError{Field: "url", Message: "must not be empty"}
	}
	if s.Priority <= 0 {
		return &ValidationError{Field: "priority", Message: "must be positive"}
	}
	if s.Timeout < 0 {
		return &ValidationError{Field: "timeout", Message: "must not be negative"}
	}
	return nil
}
