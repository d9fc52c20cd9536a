/*
Package log provides structured logging for the cluster pool control
plane using zerolog.

A single package-level Logger is initialized once via Init and shared by
every package in the module. Output is JSON in production and zerolog's
console format in development, selected by Config.JSONOutput. Levels
follow zerolog's ordering: Debug < Info < Warn < Error < Fatal, with
Fatal terminating the process.

# Usage

Initialize once in main, before anything logs:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
	})

Long-lived components take a child logger carrying their component name:

	engineLog := log.WithComponent("engine")
	engineLog.Info().Str("host_id", hostID).Msg("monitoring hosts")

Cluster and host ids are added per call site with .Str("cluster_id", ...)
and .Str("host_id", ...) rather than baked into a child logger, since
they change per log line rather than per component.

The package-level helpers (Info, Warn, Error, Fatal, ...) cover the
simple message-only case in cmd/poolctl; anything with fields goes
through Logger or a component logger directly.

# Output

JSON, one object per line:

	{"level":"info","component":"engine","cluster_id":"c-123","time":"2026-07-30T10:30:00Z","message":"cluster created"}

Console, for interactive use:

	2026-07-30T10:30:00Z INF cluster created cluster_id=c-123 component=engine

# Conventions

Errors are always attached with .Err(err), never interpolated into the
message. Messages are lowercase, stable strings; anything variable goes
in a typed field so log queries like component="engine" level="error"
stay cheap. The release path's recycle failures are the one place where
errors appear at Error level without a caller ever seeing them — the
release caller has already been answered by the time the recycle runs,
so the log line is the only record of the failure.
*/
package log
