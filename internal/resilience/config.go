package resilience

import (
	"time"
)

// FromRetryConfig converts the YAML retry.* settings (spec.md §6) into a
// RetryConfig, applying DefaultRetryConfig's values for any count,
// duration or multiplier left at zero so a partial config file still
// produces sane backoff. A jitterFraction of zero disables jitter; only a
// negative one keeps the default.
func FromRetryConfig(maxAttempts, initialBackoffMs, maxBackoffMs int, multiplier, jitterFraction float64) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if initialBackoffMs > 0 {
		cfg.InitialBackoff = time.Duration(initialBackoffMs) * time.Millisecond
	}
	if maxBackoffMs > 0 {
		cfg.MaxBackoff = time.Duration(maxBackoffMs) * time.Millisecond
	}
	if multiplier > 0 {
		cfg.Multiplier = multiplier
	}
	if jitterFraction >= 0 {
		cfg.JitterFraction = jitterFraction
	}
	return cfg
}

// FromCircuitConfig converts the YAML breaker.* settings (spec.md §6)
// into a CircuitBreakerConfig. Callers still set HalfOpenMaxProbes
// themselves, since the config key for it (breaker.success_threshold)
// doubles as the probe count, not a breaker constructor argument here.
func FromCircuitConfig(failureThreshold, resetTimeoutSecs int) CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig()
	if failureThreshold > 0 {
		cfg.FailureThreshold = failureThreshold
	}
	if resetTimeoutSecs > 0 {
		cfg.ResetTimeout = time.Duration(resetTimeoutSecs) * time.Second
	}
	return cfg
}
