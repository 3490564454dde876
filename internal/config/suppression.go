package config

import (
	"fmt"
	"time"
)

// SuppressionConfig configures the suppression engine's scan strategies
// and pacing. Selector defaults track the maintained pattern set; they
// change when the search page layout does.
type SuppressionConfig struct {
	ContainerSelector   string   `yaml:"container_selector"`
	HeadingSelector     string   `yaml:"heading_selector"`
	BoundaryAttrs       []string `yaml:"boundary_attrs"`
	MaxAscend           int      `yaml:"max_ascend"`
	RelatedSelector     string   `yaml:"related_selector"`
	RelatedAscendLevels int      `yaml:"related_ascend_levels"`
	InlineCardTag       string   `yaml:"inline_card_tag"`
	TabSelector         string   `yaml:"tab_selector"`
	ScanIntervalMs      int      `yaml:"scan_interval_ms"`
	PollIntervalMs      int      `yaml:"poll_interval_ms"`
}

// DefaultSuppressionConfig returns the maintained selector set.
func DefaultSuppressionConfig() SuppressionConfig {
	return SuppressionConfig{
		ContainerSelector:   "#search",
		HeadingSelector:     "h1, h2",
		BoundaryAttrs:       []string{"jscontroller", "data-async-context"},
		MaxAscend:           8,
		RelatedSelector:     "div[data-q]",
		RelatedAscendLevels: 3,
		InlineCardTag:       "ai-overview",
		TabSelector:         "a[role=tab]",
		ScanIntervalMs:      200,
		PollIntervalMs:      250,
	}
}

// ScanInterval returns the minimum spacing between scans.
func (c SuppressionConfig) ScanInterval() time.Duration {
	if c.ScanIntervalMs <= 0 {
		return 200 * time.Millisecond
	}
	return time.Duration(c.ScanIntervalMs) * time.Millisecond
}

// PollInterval returns the live-page mutation poll spacing.
func (c SuppressionConfig) PollInterval() time.Duration {
	if c.PollIntervalMs <= 0 {
		return 250 * time.Millisecond
	}
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// Validate checks the selector set is usable.
func (c SuppressionConfig) Validate() error {
	if c.ContainerSelector == "" {
		return fmt.Errorf("suppression: container_selector required")
	}
	if c.HeadingSelector == "" {
		return fmt.Errorf("suppression: heading_selector required")
	}
	if c.RelatedAscendLevels < 0 {
		return fmt.Errorf("suppression: related_ascend_levels must be >= 0")
	}
	return nil
}
