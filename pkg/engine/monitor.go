package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/clusterpool/pkg/health"
	"github.com/cuemby/clusterpool/pkg/metrics"
	"github.com/cuemby/clusterpool/pkg/portalloc"
)

// MonitorHosts periodically TCP-checks every active host's daemon and
// publishes the result through pkg/metrics' component health tracking, so
// /health can report a host daemon going dark (degraded) without waiting
// for the next Create or Apply to hit it; the core "backend" component, and
// with it /ready, goes unhealthy only when no probed daemon is reachable.
// It blocks until ctx is cancelled.
func (e *Engine) MonitorHosts(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		e.checkHosts(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (e *Engine) checkHosts(ctx context.Context) {
	hosts, err := e.registry.ListActive()
	if err != nil {
		e.log.Error().Err(err).Msg("failed to list active hosts for monitoring")
		return
	}

	probed, reachable := 0, 0
	for _, host := range hosts {
		addr, err := portalloc.Address(host.DaemonURL)
		if err != nil {
			e.log.Warn().Err(err).Str("host_id", host.ID).Msg("cannot parse daemon address for health check")
			continue
		}
		probed++
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		result := health.NewTCPChecker(addr).Check(checkCtx)
		cancel()

		healthy := e.recordHostCheck(host.ID, result)
		metrics.UpdateComponent(fmt.Sprintf("host:%s", host.ID), healthy, result.Message)
		if healthy {
			reachable++
		} else {
			e.log.Warn().Str("host_id", host.ID).Str("addr", addr).Msg("host daemon failed health check")
		}
	}

	// A single dark host only degrades health through its own host:<id>
	// component; the core backend component fails once no daemon answers.
	metrics.UpdateComponent("backend", probed == 0 || reachable > 0, "")
}

// recordHostCheck folds result into the host's running Status and returns
// the debounced healthy state, so a single dropped TCP dial doesn't flip a
// host to unhealthy ahead of e.healthConfig.Retries consecutive failures.
func (e *Engine) recordHostCheck(hostID string, result health.Result) bool {
	e.healthMu.Lock()
	defer e.healthMu.Unlock()

	st, ok := e.hostHealth[hostID]
	if !ok {
		st = health.NewStatus()
		e.hostHealth[hostID] = st
	}
	if !result.Healthy && st.InStartPeriod(e.healthConfig) {
		// A daemon that just appeared gets its grace period: record the
		// probe but don't count it toward the failure threshold.
		st.LastCheck = result.CheckedAt
		st.LastResult = result
		return st.Healthy
	}
	st.Update(result, e.healthConfig)
	return st.Healthy
}
