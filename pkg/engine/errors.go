package engine

import "errors"

var (
	// ErrHostNotFound is returned when Create names a host the registry
	// does not know about.
	ErrHostNotFound = errors.New("host not found")
	// ErrCapacityExceeded is returned when a host already carries as many
	// clusters as its configured capacity.
	ErrCapacityExceeded = errors.New("host at capacity")
	// ErrDaemonUnreachable is returned when the host's daemon fails Ping.
	ErrDaemonUnreachable = errors.New("daemon unreachable")
	// ErrNoActiveHost is returned by Apply when the registry lists no host
	// with HostStatusActive that still has room for another cluster.
	ErrNoActiveHost = errors.New("no active host")
	// ErrNoAvailableResource is returned by Apply when no idle cluster
	// matches the requested condition.
	ErrNoAvailableResource = errors.New("no available resource")
	// ErrLeaseConflict is returned when an operation targets a leased
	// cluster that it is not allowed to touch.
	ErrLeaseConflict = errors.New("cluster is leased")
	// ErrInvalidState is returned when a maintenance verb (start/stop/
	// restart) is called against a cluster in a status it does not accept.
	ErrInvalidState = errors.New("cluster not in a valid state for this operation")
	// ErrClusterNotFound is returned when a lookup by id or predicate
	// matches no record.
	ErrClusterNotFound = errors.New("cluster not found")
)
