package health

import (
	"context"
	"time"
)

// CheckType identifies how a Checker reaches a host's container daemon.
type CheckType string

// CheckTypeTCP is the only check type this package implements: a raw TCP
// dial against the daemon address engine.MonitorHosts derives from a
// host's DaemonURL via portalloc.Address.
const CheckTypeTCP CheckType = "tcp"

// Result is the outcome of a single probe against a host's daemon.
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker probes a host's daemon and reports back a Result. TCPChecker is
// the only implementation; the interface exists so the monitoring loop
// doesn't need to know how the probe is performed.
type Checker interface {
	Check(ctx context.Context) Result
	Type() CheckType
}

// Config tunes how engine.MonitorHosts turns a stream of Results into a
// debounced Status for a host.
type Config struct {
	// Interval is the time between health checks.
	Interval time.Duration

	// Timeout bounds a single check's duration.
	Timeout time.Duration

	// Retries is the number of consecutive failures required before a
	// host flips from healthy to unhealthy.
	Retries int

	// StartPeriod is a grace period after a host first appears during
	// which failures don't yet count against it, to cover a daemon
	// that hasn't finished starting up.
	StartPeriod time.Duration
}

// DefaultConfig returns the Config engine.New seeds every host with.
func DefaultConfig() Config {
	return Config{
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		Retries:     3,
		StartPeriod: 0,
	}
}

// Status tracks a host's reachability over time with hysteresis, so a
// single dropped TCP dial doesn't flip a host to unhealthy ahead of
// Config.Retries consecutive failures.
type Status struct {
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	LastCheck            time.Time
	LastResult           Result
	Healthy              bool
	StartedAt            time.Time
}

// NewStatus returns a Status for a host that has not yet been checked,
// optimistic until proven otherwise.
func NewStatus() *Status {
	return &Status{
		Healthy:   true,
		StartedAt: time.Now(),
	}
}

// Update folds result into the running status.
func (s *Status) Update(result Result, config Config) {
	s.LastCheck = result.CheckedAt
	s.LastResult = result

	if result.Healthy {
		s.ConsecutiveSuccesses++
		s.ConsecutiveFailures = 0
		s.Healthy = true
	} else {
		s.ConsecutiveFailures++
		s.ConsecutiveSuccesses = 0
		if s.ConsecutiveFailures >= config.Retries {
			s.Healthy = false
		}
	}
}

// InStartPeriod reports whether a host is still within its post-start
// grace period and should not yet be judged unhealthy.
func (s *Status) InStartPeriod(config Config) bool {
	if config.StartPeriod == 0 {
		return false
	}
	return time.Since(s.StartedAt) < config.StartPeriod
}
