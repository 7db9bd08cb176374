package ratelimit

import (
	"time"
)

// Config interface for rate limiting configuration
type Config interface {
	GetDisableRateLimit() bool
}

// Result contains the outcome of a rate limit check
type Result struct {
	ShouldBlock   bool
	RemainingTime time.Duration
	Reason        string
}

// CheckRunRateLimit checks if a report run should be rate limited. Both the
// manual API trigger and the CLI go through this; scheduled runs never do.
func CheckRunRateLimit(cfg Config, lastRunAt *time.Time, isForced bool) Result {
	// Never rate limit if rate limiting is disabled
	if cfg.GetDisableRateLimit() {
		return Result{
			ShouldBlock: false,
			Reason:      "rate_limiting_disabled",
		}
	}

	// Never rate limit forced runs
	if isForced {
		return Result{
			ShouldBlock: false,
			Reason:      "forced_run",
		}
	}

	// Never rate limit if no previous run exists
	if lastRunAt == nil {
		return Result{
			ShouldBlock: false,
			Reason:      "no_previous_run",
		}
	}

	rateLimit := GetRateLimitDuration()
	timeSinceLastRun := time.Since(*lastRunAt)

	if timeSinceLastRun < rateLimit {
		return Result{
			ShouldBlock:   true,
			RemainingTime: rateLimit - timeSinceLastRun,
			Reason:        "rate_limit_active",
		}
	}

	return Result{
		ShouldBlock: false,
		Reason:      "rate_limit_passed",
	}
}

// GetRateLimitDuration returns the minimum interval between unforced runs
func GetRateLimitDuration() time.Duration {
	return 5 * time.Minute
}
