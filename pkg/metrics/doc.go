/*
Package metrics provides Prometheus metrics collection and exposition for
the cluster pool control plane.

Metrics cover pool-level state (ClustersTotal, by host and status) and
per-operation latency (CreateDuration, ApplyDuration, ReleaseDuration,
DeleteDuration, RecycleDuration), plus counters for the two conditions
callers most want alerting on: LeaseConflictsTotal (apply found nothing
idle) and CapacityExceededTotal (create found no room on the host).
RecycleDroppedTotal tracks replenish jobs dropped under backpressure.

Handler returns the standard promhttp handler for mounting at /metrics.
Timer is a small helper for recording operation latency:

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.CreateDuration)

Package-level health tracking (RegisterComponent/GetHealth/GetReadiness
and the corresponding HTTP handlers) is a separate, simpler concern from
the Prometheus metrics above; it exists for liveness/readiness probes
rather than time-series observability.
*/
package metrics
