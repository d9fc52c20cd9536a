/*
Package health implements TCP reachability checks used to monitor a
cluster pool host's container daemon.

# Architecture

	┌──────────────────────────────┐
	│       Checker Interface      │
	│  • Check(ctx) Result         │
	│  • Type() CheckType          │
	└───────────────┬──────────────┘
	                │
	                ▼
	          ┌───────────┐
	          │ TCPChecker │
	          └───────────┘
	                │
	                ▼
	         Dial daemon addr

# Monitoring Flow

 1. engine.MonitorHosts ticks on an interval
 2. For each active host, it builds a dial address and runs a TCPChecker
 3. The Result folds into that host's Status, which applies hysteresis
    so one dropped dial doesn't flip the host unhealthy
 4. The debounced state feeds pkg/metrics.UpdateComponent keyed by host id
 5. /health and /ready read the aggregated component state back out

# Core Components

## Checker Interface

	type Checker interface {
		Check(ctx context.Context) Result
		Type() CheckType
	}

## Result Structure

	type Result struct {
		Healthy   bool
		Message   string
		CheckedAt time.Time
		Duration  time.Duration
	}

## Status Tracking

Status tracks reachability over time with hysteresis, so a single
transient failure doesn't flip a host to unhealthy:

	type Status struct {
		ConsecutiveFailures  int
		ConsecutiveSuccesses int
		LastCheck            time.Time
		LastResult           Result
		Healthy              bool
		StartedAt            time.Time
	}

# Usage

	checker := health.NewTCPChecker(addr) // "ip:port", from portalloc.Address
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result := checker.Check(ctx)

	status.Update(result, health.DefaultConfig())
	metrics.UpdateComponent(fmt.Sprintf("host:%s", host.ID), status.Healthy, result.Message)

A host that fails enough consecutive checks shows up as degraded on the
/health endpoint, without waiting for the next lease attempt to discover
the daemon is gone; /ready goes not-ready only once no probed daemon is
reachable.

# See Also

  - pkg/engine/monitor.go - runs TCPChecker against every active host on a ticker
  - pkg/metrics - stores and exposes the resulting component health
*/
package health
