// Package review drives the live review of pending catalog items: the
// per-item state machine, batch navigation and run-level recovery.
package review

import (
	"github.com/Veraticus/catalog-steward/internal/config"
)

// Options configures one review run.
type Options struct {
	RunID         string
	ScreenshotDir string
	Defaults      config.FieldDefaults
	Timing        config.TimingConfig
	Limits        config.LimitsConfig
	Limit         int // processed items before the run stops; zero uses Limits.MaxItemsPerRun
	DryRun        bool
	PauseEach     bool
}

// OptionsFromConfig builds run options from the resolved configuration.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		ScreenshotDir: cfg.Files.ScreenshotsDir,
		Defaults:      cfg.Defaults,
		Timing:        cfg.Timing,
		Limits:        cfg.Limits,
	}
}

func (o Options) itemLimit() int {
	switch {
	case o.Limit > 0:
		return o.Limit
	case o.Limits.MaxItemsPerRun > 0:
		return o.Limits.MaxItemsPerRun
	default:
		return 500
	}
}

func (o Options) errorCap() int {
	if o.Limits.MaxConsecutiveErrors > 0 {
		return o.Limits.MaxConsecutiveErrors
	}
	return 5
}

func (o Options) stuckCap() int {
	if o.Limits.MaxConsecutiveStuck > 0 {
		return o.Limits.MaxConsecutiveStuck
	}
	return 3
}
