/*
Package types defines the core data structures shared by the cluster pool
control plane: Cluster, Host, and the shapes used to request a new cluster.

# Core Types

Cluster is the unit of lease: a named composition of containers running on
one Host, claimed by a user_id via apply and released back to the pool via
release. ClusterStatus is the explicit lifecycle field driving engine
predicates; UserID's UnassignedUser sentinel is kept for storage
compatibility with callers that still key off it.

Host is a container daemon with fixed lease capacity; its Clusters slice is
mutated exclusively through pkg/registry's atomic attach/detach.

# Thread Safety

Values are read-safe across goroutines; mutation must go through
pkg/store or pkg/registry, which serialize writes through BoltDB.
*/
package types
