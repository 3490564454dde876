package config

import (
	"fmt"
	"time"
)

// MessagingConfig configures the content-side messenger's timeout and
// retry policy. The round-trip timeout is the decided answer to the
// host-hang gap: a stalled native channel costs one timeout per attempt,
// never an unbounded wait.
type MessagingConfig struct {
	TimeoutMs      int `yaml:"timeout_ms"`
	StatsRetries   int `yaml:"stats_retries"`
	StatsBackoffMs int `yaml:"stats_backoff_ms"`
}

// DefaultMessagingConfig returns the default messaging policy.
func DefaultMessagingConfig() MessagingConfig {
	return MessagingConfig{
		TimeoutMs:      3000,
		StatsRetries:   2,
		StatsBackoffMs: 250,
	}
}

// Timeout returns the per-round-trip deadline.
func (c MessagingConfig) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// StatsBackoff returns the fixed delay between stats report attempts.
func (c MessagingConfig) StatsBackoff() time.Duration {
	if c.StatsBackoffMs <= 0 {
		return 250 * time.Millisecond
	}
	return time.Duration(c.StatsBackoffMs) * time.Millisecond
}

// Validate checks the retry policy.
func (c MessagingConfig) Validate() error {
	if c.StatsRetries < 0 {
		return fmt.Errorf("messaging: stats_retries must be >= 0")
	}
	return nil
}
