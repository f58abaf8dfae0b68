package config

import "time"

// RateLimitConfig controls the per-client limiter in front of the booking
// endpoint.  A client may send Burst requests back to back and earns one
// more every Every.
type RateLimitConfig struct {
	Enabled  bool
	Burst    int
	Every    time.Duration
	PerRoute bool // key by client and route rather than client alone
	Prefix   string
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:  envBool("RATE_LIMIT_ENABLED", true),
		Burst:    envInt("RATE_LIMIT_BURST", 20),
		Every:    envDur("RATE_LIMIT_EVERY", time.Second),
		PerRoute: envBool("RATE_LIMIT_PER_ROUTE", true),
		Prefix:   getenv("RATE_LIMIT_PREFIX", "rl:booking"),
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.Every < time.Millisecond {
		cfg.Every = time.Second
	}
	return cfg
}
