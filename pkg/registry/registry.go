// Package registry owns Host records and their capacity accounting.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cuemby/clusterpool/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	ErrNotFound         = errors.New("host not found")
	ErrCapacityExceeded = errors.New("host is at capacity")
)

var bucketHosts = []byte("hosts")

// Registry is a BoltDB-backed HostRegistry.
type Registry struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the host database under dataDir.
func Open(dataDir string) (*Registry, error) {
	dbPath := filepath.Join(dataDir, "hosts.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open host database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketHosts)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Registry{db: db}, nil
}

// Close closes the underlying database.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Put inserts or overwrites a host record.
func (r *Registry) Put(h *types.Host) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHosts)
		data, err := json.Marshal(h)
		if err != nil {
			return err
		}
		return b.Put([]byte(h.ID), data)
	})
}

// Get returns the host with the given id.
func (r *Registry) Get(id string) (*types.Host, error) {
	var h types.Host
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHosts)
		data := b.Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &h)
	})
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// ListActive returns every host with HostStatusActive that still has room
// for another cluster.
func (r *Registry) ListActive() ([]*types.Host, error) {
	var hosts []*types.Host
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHosts)
		return b.ForEach(func(k, v []byte) error {
			var h types.Host
			if err := json.Unmarshal(v, &h); err != nil {
				return err
			}
			if h.Status == types.HostStatusActive && len(h.Clusters) < h.Capacity {
				hosts = append(hosts, &h)
			}
			return nil
		})
	})
	return hosts, err
}

// AttachCluster appends clusterID to the host's clusters list if absent.
// Runs inside one BoltDB write transaction, closing the read-modify-write
// race that a naive "read, append, write back" sequence would have under
// concurrent callers, and re-checks capacity inside that same transaction:
// a capacity check performed by the caller before calling AttachCluster
// would be stale by the time this write lands, letting two concurrent
// attaches both pass a capacity-1 host.
func (r *Registry) AttachCluster(hostID, clusterID string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHosts)
		data := b.Get([]byte(hostID))
		if data == nil {
			return ErrNotFound
		}
		var h types.Host
		if err := json.Unmarshal(data, &h); err != nil {
			return err
		}
		for _, id := range h.Clusters {
			if id == clusterID {
				return nil
			}
		}
		if len(h.Clusters) >= h.Capacity {
			return fmt.Errorf("%w: host %s", ErrCapacityExceeded, hostID)
		}
		h.Clusters = append(h.Clusters, clusterID)
		updated, err := json.Marshal(&h)
		if err != nil {
			return err
		}
		return b.Put([]byte(hostID), updated)
	})
}

// DetachCluster removes clusterID from the host's clusters list if present.
func (r *Registry) DetachCluster(hostID, clusterID string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHosts)
		data := b.Get([]byte(hostID))
		if data == nil {
			return ErrNotFound
		}
		var h types.Host
		if err := json.Unmarshal(data, &h); err != nil {
			return err
		}
		out := h.Clusters[:0]
		for _, id := range h.Clusters {
			if id != clusterID {
				out = append(out, id)
			}
		}
		h.Clusters = out
		updated, err := json.Marshal(&h)
		if err != nil {
			return err
		}
		return b.Put([]byte(hostID), updated)
	})
}
