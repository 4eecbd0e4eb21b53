// Package limits defines the resource ceilings the engine and
// transports enforce: concurrent sessions, inbound message size, and
// per-session request rate.
package limits

// ResourceLimits bundles the enforced ceilings. A zero value for any
// field disables that check.
type ResourceLimits struct {
	// MaxSessions caps concurrently tracked sessions.
	MaxSessions int
	// MaxMessageSize caps a single inbound message in bytes,
	// checked by the transports before parsing.
	MaxMessageSize int
	// RequestsPerMinute is the sustained per-session request rate.
	RequestsPerMinute int
	// Burst is the per-session token bucket capacity.
	Burst int
}

// Default returns the ceilings suitable for a typical deployment.
func Default() ResourceLimits {
	return ResourceLimits{
		MaxSessions:       1000,
		MaxMessageSize:    10 * 1024 * 1024,
		RequestsPerMinute: 600,
		Burst:             100,
	}
}

// Strict returns tight ceilings for exposed or multi-tenant servers.
func Strict() ResourceLimits {
	return ResourceLimits{
		MaxSessions:       100,
		MaxMessageSize:    1 * 1024 * 1024,
		RequestsPerMinute: 60,
		Burst:             10,
	}
}

// Unlimited disables every check.
func Unlimited() ResourceLimits {
	return ResourceLimits{}
}

// RateLimitEnabled reports whether the rate limit fields describe an
// active limit.
func (l ResourceLimits) RateLimitEnabled() bool {
	return l.RequestsPerMinute > 0 && l.Burst > 0
}
