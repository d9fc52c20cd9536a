package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/cuemby/clusterpool/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestPutAndGet(t *testing.T) {
	r := openTestRegistry(t)
	h := &types.Host{ID: "h1", DaemonURL: "tcp://10.0.0.1:2375", Status: types.HostStatusActive, Capacity: 4}
	require.NoError(t, r.Put(h))

	got, err := r.Get("h1")
	require.NoError(t, err)
	assert.Equal(t, "tcp://10.0.0.1:2375", got.DaemonURL)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListActiveFiltersByStatusAndCapacity(t *testing.T) {
	r := openTestRegistry(t)
	require.NoError(t, r.Put(&types.Host{ID: "h1", Status: types.HostStatusActive, Capacity: 4}))
	require.NoError(t, r.Put(&types.Host{ID: "h2", Status: types.HostStatusInactive, Capacity: 4}))
	require.NoError(t, r.Put(&types.Host{ID: "h3", Status: types.HostStatusActive, Capacity: 1, Clusters: []string{"c1"}}))

	hosts, err := r.ListActive()
	require.NoError(t, err)
	require.Len(t, hosts, 1, "inactive and full-capacity hosts must be excluded")
	assert.Equal(t, "h1", hosts[0].ID)
}

func TestAttachAndDetachCluster(t *testing.T) {
	r := openTestRegistry(t)
	require.NoError(t, r.Put(&types.Host{ID: "h1", Capacity: 2}))

	require.NoError(t, r.AttachCluster("h1", "c1"))
	require.NoError(t, r.AttachCluster("h1", "c1")) // idempotent

	h, err := r.Get("h1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, h.Clusters)

	require.NoError(t, r.DetachCluster("h1", "c1"))
	h, err = r.Get("h1")
	require.NoError(t, err)
	assert.Empty(t, h.Clusters)
}

// TestAttachClusterIsAtomicUnderConcurrency races many attaches against a
// single host and expects every one of them to land, closing the
// read-modify-write race a naive "read, append, write back" would have.
func TestAttachClusterIsAtomicUnderConcurrency(t *testing.T) {
	r := openTestRegistry(t)
	require.NoError(t, r.Put(&types.Host{ID: "h1", Capacity: 100}))

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = r.AttachCluster("h1", string(rune('a'+i)))
		}(i)
	}
	wg.Wait()

	h, err := r.Get("h1")
	require.NoError(t, err)
	assert.Len(t, h.Clusters, n)
}

// TestAttachClusterEnforcesCapacityUnderConcurrency races many attaches
// against a capacity-1 host and expects exactly one to win, with the
// rest rejected by ErrCapacityExceeded from inside AttachCluster's own
// transaction rather than a stale pre-check.
func TestAttachClusterEnforcesCapacityUnderConcurrency(t *testing.T) {
	r := openTestRegistry(t)
	require.NoError(t, r.Put(&types.Host{ID: "h1", Capacity: 1}))

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = r.AttachCluster("h1", string(rune('a'+i)))
		}(i)
	}
	wg.Wait()

	attached, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			attached++
		case errors.Is(err, ErrCapacityExceeded):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, attached)
	assert.Equal(t, n-1, rejected)

	h, err := r.Get("h1")
	require.NoError(t, err)
	assert.Len(t, h.Clusters, 1)
}
