package cordon

import (
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
)

type (
	// configFile is the top-level JSON structure.
	configFile struct {
		Policies map[string]PolicyConfig `json:"policies"`
	}

	// PolicyConfig holds the decoded configuration for one named policy
	// bundle. Export it to embed in your own app config structs for JSON
	// unmarshaling, then call [BuildOptions] to obtain option descriptors
	// for [Wrap].
	PolicyConfig struct {
		// CircuitBreaker configures the circuit breaker policy.
		// Optional. Example: {"failure_threshold": 3}.
		CircuitBreaker *BreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
		// Retry configures the retry policy.
		// Optional. Example: {"max_retries": 3, "backoff": "exponential"}.
		Retry *RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
		// RateLimit configures the sliding-window rate limiter.
		// Optional. Example: {"limit": 2, "window": "100ms"}.
		RateLimit *RateLimitConfig `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
		// Cache configures TTL caching.
		// Optional. Example: {"ttl": "1m"}.
		Cache *CachedConfig `json:"cache,omitempty" yaml:"cache,omitempty"`
		// Timeout is the maximum duration for a single call.
		// Optional. Parsed via time.ParseDuration. Example: "2s".
		Timeout *string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
		// Debounce is the quiet delay before a burst of calls executes.
		// Optional. Parsed via time.ParseDuration. Example: "250ms".
		Debounce *string `json:"debounce,omitempty" yaml:"debounce,omitempty"`
		// Throttle is the minimum interval between executions.
		// Optional. Parsed via time.ParseDuration. Example: "1s".
		Throttle *string `json:"throttle,omitempty" yaml:"throttle,omitempty"`
	}

	// BreakerConfig holds circuit breaker configuration values.
	BreakerConfig struct {
		// ResetTimeout is the duration the breaker stays open.
		// Optional. Parsed via time.ParseDuration. Example: "30s".
		ResetTimeout *string `json:"reset_timeout,omitempty" yaml:"reset_timeout,omitempty"`
		// FailureThreshold is the number of failures before opening.
		// Optional. Example: 5.
		FailureThreshold *int `json:"failure_threshold,omitempty" yaml:"failure_threshold,omitempty"`
	}

	// RetryConfig holds retry configuration values.
	RetryConfig struct {
		// Backoff is the backoff strategy name.
		// Required. One of: "fixed", "exponential".
		Backoff *string `json:"backoff,omitempty" yaml:"backoff,omitempty"`
		// BaseDelay is the base delay for backoff calculation.
		// Required. Parsed via time.ParseDuration. Example: "100ms".
		BaseDelay *string `json:"base_delay,omitempty" yaml:"base_delay,omitempty"`
		// MaxRetries is the number of additional attempts after the first.
		// Required. Example: 3.
		MaxRetries *int `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
	}

	// RateLimitConfig holds rate limiter configuration values.
	RateLimitConfig struct {
		// Window is the sliding window duration.
		// Required. Parsed via time.ParseDuration. Example: "100ms".
		Window *string `json:"window,omitempty" yaml:"window,omitempty"`
		// Limit is the number of calls admitted per window.
		// Required. Example: 2.
		Limit *int `json:"limit,omitempty" yaml:"limit,omitempty"`
	}

	// CachedConfig holds cache configuration values.
	CachedConfig struct {
		// TTL is the entry time-to-live; empty or "0s" means no expiry.
		// Optional. Parsed via time.ParseDuration. Example: "1m".
		TTL *string `json:"ttl,omitempty" yaml:"ttl,omitempty"`
		// SingleFlight coalesces concurrent misses for the same key.
		// Optional. Default false.
		SingleFlight bool `json:"single_flight,omitempty" yaml:"single_flight,omitempty"`
	}
)

// LoadConfig reads a JSON configuration file and returns its named policy
// configurations. Every entry is validated eagerly so errors surface at
// load time, not at first use.
//
// Duration values (timeout, reset_timeout, base_delay, window, ttl,
// debounce, throttle) are parsed using [time.ParseDuration].
func LoadConfig(path string) (map[string]PolicyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cordon: read config: %w", err)
	}

	var cfg configFile
	if err = json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cordon: parse config: %w", err)
	}

	for name, pc := range cfg.Policies {
		if _, buildErr := BuildOptions(&pc); buildErr != nil {
			return nil, fmt.Errorf("cordon: policy %q: %w", name, buildErr)
		}
	}

	return cfg.Policies, nil
}

// BuildOptions converts a [PolicyConfig] into a slice of option descriptors
// suitable for [Wrap]. Use this when you embed [PolicyConfig] in your own
// config struct and want to build a wrapped operation without going through
// [LoadConfig].
func BuildOptions(pc *PolicyConfig) ([]any, error) {
	var opts []any

	if pc.Timeout != nil {
		d, err := time.ParseDuration(*pc.Timeout)
		if err != nil {
			return nil, fmt.Errorf("timeout: %w", err)
		}

		opts = append(opts, WithTimeout(d))
	}

	if pc.CircuitBreaker != nil {
		var cbOpts []BreakerOption

		if pc.CircuitBreaker.FailureThreshold != nil {
			cbOpts = append(cbOpts, FailureThreshold(*pc.CircuitBreaker.FailureThreshold))
		}

		if pc.CircuitBreaker.ResetTimeout != nil {
			d, err := time.ParseDuration(*pc.CircuitBreaker.ResetTimeout)
			if err != nil {
				return nil, fmt.Errorf("circuit_breaker.reset_timeout: %w", err)
			}

			cbOpts = append(cbOpts, ResetTimeout(d))
		}

		opts = append(opts, WithCircuitBreaker(cbOpts...))
	}

	if pc.Retry != nil {
		strategy, err := parseBackoffStrategy(pc.Retry.Backoff, pc.Retry.BaseDelay)
		if err != nil {
			return nil, fmt.Errorf("retry: %w", err)
		}

		maxRetries := 0
		if pc.Retry.MaxRetries != nil {
			maxRetries = *pc.Retry.MaxRetries
		}

		opts = append(opts, WithRetry(maxRetries, strategy))
	}

	if pc.RateLimit != nil {
		if pc.RateLimit.Limit == nil {
			return nil, fmt.Errorf("rate_limit: limit is required")
		}

		if pc.RateLimit.Window == nil {
			return nil, fmt.Errorf("rate_limit: window is required")
		}

		window, err := time.ParseDuration(*pc.RateLimit.Window)
		if err != nil {
			return nil, fmt.Errorf("rate_limit.window: %w", err)
		}

		opts = append(opts, WithRateLimit(*pc.RateLimit.Limit, window))
	}

	if pc.Cache != nil {
		var ttl time.Duration

		if pc.Cache.TTL != nil {
			d, err := time.ParseDuration(*pc.Cache.TTL)
			if err != nil {
				return nil, fmt.Errorf("cache.ttl: %w", err)
			}

			ttl = d
		}

		var cacheOpts []CacheOption
		if pc.Cache.SingleFlight {
			cacheOpts = append(cacheOpts, SingleFlight())
		}

		opts = append(opts, WithCache(ttl, cacheOpts...))
	}

	if pc.Debounce != nil {
		d, err := time.ParseDuration(*pc.Debounce)
		if err != nil {
			return nil, fmt.Errorf("debounce: %w", err)
		}

		opts = append(opts, WithDebounce(d))
	}

	if pc.Throttle != nil {
		d, err := time.ParseDuration(*pc.Throttle)
		if err != nil {
			return nil, fmt.Errorf("throttle: %w", err)
		}

		opts = append(opts, WithThrottle(d))
	}

	return opts, nil
}

// parseBackoffStrategy maps a backoff name + base delay to a
// BackoffStrategy. Both fields are required pointers; nil values produce an
// error.
func parseBackoffStrategy(name, baseDelayStr *string) (BackoffStrategy, error) {
	const errCtx = "parsing backoff strategy"

	if name == nil {
		return nil, fmt.Errorf("%s: backoff is required", errCtx)
	}

	if baseDelayStr == nil {
		return nil, fmt.Errorf("%s: base_delay is required", errCtx)
	}

	base, err := time.ParseDuration(*baseDelayStr)
	if err != nil {
		return nil, fmt.Errorf("%s: base_delay: %w", errCtx, err)
	}

	switch *name {
	case "fixed":
		return FixedBackoff(base), nil
	case "exponential":
		return ExponentialBackoff(base), nil
	default:
		return nil, fmt.Errorf("%s: unknown strategy %q", errCtx, *name)
	}
}
