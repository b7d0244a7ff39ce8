package config

import (
	"fmt"
	"net/url"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Validate checks the configuration for errors.
// Returns nil if valid, or ValidationErrors if invalid.
func Validate(cfg Config) error {
	var errs ValidationErrors

	// FEED_URL is required
	if cfg.FeedURL == "" {
		errs = append(errs, ValidationError{
			Field:   "FEED_URL",
			Message: "required",
		})
	} else if u, err := url.Parse(cfg.FeedURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "FEED_URL",
			Message: fmt.Sprintf("must be an absolute URL, got %q", cfg.FeedURL),
		})
	}

	// DEVICE_ADDR is required
	if cfg.DeviceAddr == "" {
		errs = append(errs, ValidationError{
			Field:   "DEVICE_ADDR",
			Message: "required",
		})
	}

	durations := []struct {
		field string
		raw   string
	}{
		{"TICK_INTERVAL", cfg.TickIntervalStr},
		{"FEED_POLL_INTERVAL", cfg.FeedPollIntervalStr},
		{"CLOCK_POLL_INTERVAL", cfg.ClockPollIntervalStr},
		{"FIRE_TOLERANCE", cfg.FireToleranceStr},
		{"CATCHUP_WINDOW", cfg.CatchupWindowStr},
		{"SENDING_STALE_AFTER", cfg.SendingStaleAfterStr},
		{"ARTIFACT_DELAY", cfg.ArtifactDelayStr},
		{"DEVICE_TIMEOUT", cfg.DeviceTimeoutStr},
		{"HTTP_SHUTDOWN_TIMEOUT", cfg.HTTPShutdownTimeoutStr},
		{"DISPATCHER_DRAIN_TIMEOUT", cfg.DispatcherDrainTimeoutStr},
		{"CIRCUIT_BREAKER_COOLDOWN", cfg.CircuitBreakerCooldownStr},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		dur, err := time.ParseDuration(d.raw)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   d.field,
				Message: fmt.Sprintf("invalid duration: %v", err),
			})
		} else if dur <= 0 {
			errs = append(errs, ValidationError{
				Field:   d.field,
				Message: "must be positive",
			})
		}
	}

	// The catch-up window must cover at least the fire tolerance, otherwise
	// a briefly stalled clock skips events instead of catching up.
	if cfg.CatchupWindow > 0 && cfg.FireTolerance > 0 && cfg.CatchupWindow < cfg.FireTolerance {
		errs = append(errs, ValidationError{
			Field:   "CATCHUP_WINDOW",
			Message: "must not be smaller than FIRE_TOLERANCE",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
