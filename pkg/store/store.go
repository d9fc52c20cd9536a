// Package store persists Cluster records in two BoltDB buckets, one per
// collection named in the lifecycle design: active and released.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cuemby/clusterpool/pkg/types"
	bolt "go.etcd.io/bbolt"
)

// ErrNotFound is returned by FindOne and FindOneAndUpdate when no record
// in the collection matches the given predicate.
var ErrNotFound = errors.New("cluster not found")

// Collection names an active or released bucket.
type Collection string

const (
	Active   Collection = "cluster_active"
	Released Collection = "cluster_released"
)

var buckets = []Collection{Active, Released}

// Predicate is the dynamic condition dictionary used by Find and
// FindOneAndUpdate. Zero-value fields are not matched against; use the
// *Set variants to match against an empty string explicitly.
type Predicate struct {
	ID              string
	Name            string
	HostID          string
	UserID          string
	UserIDSet       bool
	UserIDNotEmpty  bool
	ReleaseTSEmpty  bool
	ConsensusPlugin string
	ConsensusMode   string
	Size            int
	SizeSet         bool
	Status          types.ClusterStatus
	StatusSet       bool
}

// Match reports whether c satisfies p.
func (p Predicate) Match(c *types.Cluster) bool {
	if p.ID != "" && c.ID != p.ID {
		return false
	}
	if p.Name != "" && c.Name != p.Name {
		return false
	}
	if p.HostID != "" && c.HostID != p.HostID {
		return false
	}
	if p.UserIDSet && c.UserID != p.UserID {
		return false
	}
	if p.UserIDNotEmpty && c.UserID == "" {
		return false
	}
	if p.ReleaseTSEmpty && !c.ReleaseTS.IsZero() {
		return false
	}
	if p.ConsensusPlugin != "" && c.ConsensusPlugin != p.ConsensusPlugin {
		return false
	}
	if p.ConsensusMode != "" && c.ConsensusMode != p.ConsensusMode {
		return false
	}
	if p.SizeSet && c.Size != p.Size {
		return false
	}
	if p.StatusSet && c.Status != p.Status {
		return false
	}
	return true
}

// Store is a BoltDB-backed ClusterStore.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the cluster database under dataDir.
func Open(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "clusterpool.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open cluster database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(b)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert writes a new cluster record into the given collection.
func (s *Store) Insert(col Collection, c *types.Cluster) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(col))
		if b == nil {
			return fmt.Errorf("unknown collection: %s", col)
		}
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		return b.Put([]byte(c.ID), data)
	})
}

// FindOne returns the first cluster in col matching p.
func (s *Store) FindOne(col Collection, p Predicate) (*types.Cluster, error) {
	var found *types.Cluster
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(col))
		if b == nil {
			return fmt.Errorf("unknown collection: %s", col)
		}
		return b.ForEach(func(k, v []byte) error {
			if found != nil {
				return nil
			}
			var c types.Cluster
			if err := json.Unmarshal(v, &c); err != nil {
				return err
			}
			if p.Match(&c) {
				found = &c
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// Find returns every cluster in col matching p, in bucket iteration order.
func (s *Store) Find(col Collection, p Predicate) ([]*types.Cluster, error) {
	var out []*types.Cluster
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(col))
		if b == nil {
			return fmt.Errorf("unknown collection: %s", col)
		}
		return b.ForEach(func(k, v []byte) error {
			var c types.Cluster
			if err := json.Unmarshal(v, &c); err != nil {
				return err
			}
			if p.Match(&c) {
				out = append(out, &c)
			}
			return nil
		})
	})
	return out, err
}

// UpdateOne overwrites the stored record for c.ID with c.
func (s *Store) UpdateOne(col Collection, c *types.Cluster) error {
	return s.Insert(col, c)
}

// DeleteOne removes the record with the given id from col.
func (s *Store) DeleteOne(col Collection, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(col))
		if b == nil {
			return fmt.Errorf("unknown collection: %s", col)
		}
		return b.Delete([]byte(id))
	})
}

// Mutate is applied to the matched record inside FindOneAndUpdate's write
// transaction. It returns the mutated record, or an error to abort.
type Mutate func(*types.Cluster) (*types.Cluster, error)

// FindOneAndUpdate atomically scans col for a record matching p and
// applies fn to it, persisting the result in the same BoltDB write
// transaction. This is the primitive the apply and release operations
// depend on for correctness under concurrent callers: BoltDB admits only
// one writer at a time, so the scan-then-patch sequence below can never
// interleave with another FindOneAndUpdate or Insert/UpdateOne/DeleteOne
// call against the same database.
func (s *Store) FindOneAndUpdate(col Collection, p Predicate, fn Mutate) (*types.Cluster, error) {
	var result *types.Cluster
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(col))
		if b == nil {
			return fmt.Errorf("unknown collection: %s", col)
		}

		var matchKey []byte
		var match types.Cluster
		cur := b.Cursor()
		for k, v := cur.First(); k != nil; k, v = cur.Next() {
			var c types.Cluster
			if err := json.Unmarshal(v, &c); err != nil {
				return err
			}
			if p.Match(&c) {
				matchKey = append([]byte(nil), k...)
				match = c
				break
			}
		}
		if matchKey == nil {
			return ErrNotFound
		}

		updated, err := fn(&match)
		if err != nil {
			return err
		}
		data, err := json.Marshal(updated)
		if err != nil {
			return err
		}
		if err := b.Put(matchKey, data); err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
