package fetcher

import (
	"fmt"
	"time"

	appconfig "github.com/ADEMSU/insight-flow-rss/pkg/config"
)

// ContentFetchConfig controls the full-article content fetcher. The crawl
// service decides WHEN to fetch (Threshold); the fetcher enforces the
// security and resource limits.
type ContentFetchConfig struct {
	// Enabled toggles content enhancement without redeployment.
	Enabled bool

	// Threshold is the minimum feed-supplied content length; shorter bodies
	// trigger a full-article fetch.
	Threshold int

	// Timeout bounds one HTTP request.
	Timeout time.Duration

	// MaxBodySize is the response size limit in bytes.
	MaxBodySize int64

	// MaxRedirects bounds the redirect chain; every target is revalidated.
	MaxRedirects int

	// DenyPrivateIPs blocks URLs resolving to private addresses.
	// Always true in production.
	DenyPrivateIPs bool
}

// DefaultConfig returns production content-fetch settings.
func DefaultConfig() ContentFetchConfig {
	return ContentFetchConfig{
		Enabled:        true,
		Threshold:      500,
		Timeout:        10 * time.Second,
		MaxBodySize:    10 * 1024 * 1024,
		MaxRedirects:   5,
		DenyPrivateIPs: true,
	}
}

// LoadConfigFromEnv reads CONTENT_FETCH_* variables over the defaults and
// validates the result.
func LoadConfigFromEnv() (ContentFetchConfig, error) {
	def := DefaultConfig()
	cfg := ContentFetchConfig{
		Enabled:        appconfig.GetEnvBool("CONTENT_FETCH_ENABLED", def.Enabled),
		Threshold:      appconfig.GetEnvInt("CONTENT_FETCH_THRESHOLD", def.Threshold),
		Timeout:        appconfig.GetEnvDuration("CONTENT_FETCH_TIMEOUT", def.Timeout),
		MaxBodySize:    int64(appconfig.GetEnvInt("CONTENT_FETCH_MAX_BODY_SIZE", int(def.MaxBodySize))),
		MaxRedirects:   appconfig.GetEnvInt("CONTENT_FETCH_MAX_REDIRECTS", def.MaxRedirects),
		DenyPrivateIPs: appconfig.GetEnvBool("CONTENT_FETCH_DENY_PRIVATE_IPS", def.DenyPrivateIPs),
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("LoadConfigFromEnv: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings that would weaken the resource limits.
func (c *ContentFetchConfig) Validate() error {
	if c.Threshold < 0 {
		return fmt.Errorf("threshold must be non-negative, got %d", c.Threshold)
	}
	if err := appconfig.ValidatePositiveDuration(c.Timeout); err != nil {
		return fmt.Errorf("timeout: %w", err)
	}
	minBodySize := int64(1024)
	maxBodySize := int64(100 * 1024 * 1024)
	if c.MaxBodySize < minBodySize || c.MaxBodySize > maxBodySize {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBodySize, maxBodySize, c.MaxBodySize)
	}
	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}
	return nil
}
