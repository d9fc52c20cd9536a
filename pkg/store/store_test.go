package store

import (
	"sync"
	"testing"

	"github.com/cuemby/clusterpool/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestInsertAndFindOne(t *testing.T) {
	st := openTestStore(t)

	c := &types.Cluster{ID: "c1", Name: "fabric-a", HostID: "h1", Status: types.ClusterStatusIdle}
	require.NoError(t, st.Insert(Active, c))

	got, err := st.FindOne(Active, Predicate{ID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "fabric-a", got.Name)

	_, err = st.FindOne(Active, Predicate{ID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindMatchesPredicate(t *testing.T) {
	st := openTestStore(t)

	require.NoError(t, st.Insert(Active, &types.Cluster{ID: "c1", HostID: "h1", Status: types.ClusterStatusIdle, Size: 4}))
	require.NoError(t, st.Insert(Active, &types.Cluster{ID: "c2", HostID: "h1", Status: types.ClusterStatusLeased, Size: 4}))
	require.NoError(t, st.Insert(Active, &types.Cluster{ID: "c3", HostID: "h2", Status: types.ClusterStatusIdle, Size: 7}))

	idle, err := st.Find(Active, Predicate{HostID: "h1", Status: types.ClusterStatusIdle, StatusSet: true})
	require.NoError(t, err)
	require.Len(t, idle, 1)
	assert.Equal(t, "c1", idle[0].ID)
}

func TestFindOneAndUpdateAppliesMutation(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.Insert(Active, &types.Cluster{ID: "c1", UserID: "", Status: types.ClusterStatusIdle}))

	result, err := st.FindOneAndUpdate(Active, Predicate{Status: types.ClusterStatusIdle, StatusSet: true}, func(c *types.Cluster) (*types.Cluster, error) {
		c.UserID = "alice"
		c.Status = types.ClusterStatusLeased
		return c, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", result.UserID)

	stored, err := st.FindOne(Active, Predicate{ID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, types.ClusterStatusLeased, stored.Status)
}

func TestFindOneAndUpdateNoMatch(t *testing.T) {
	st := openTestStore(t)
	_, err := st.FindOneAndUpdate(Active, Predicate{ID: "nope"}, func(c *types.Cluster) (*types.Cluster, error) {
		return c, nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestFindOneAndUpdateIsAtomicUnderConcurrency claims the same idle cluster
// from many goroutines at once; exactly one must win, mirroring the race
// apply's atomic claim is required to close.
func TestFindOneAndUpdateIsAtomicUnderConcurrency(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.Insert(Active, &types.Cluster{ID: "c1", Status: types.ClusterStatusIdle}))

	const attempts = 20
	var wg sync.WaitGroup
	wins := make([]bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := st.FindOneAndUpdate(Active, Predicate{Status: types.ClusterStatusIdle, StatusSet: true}, func(c *types.Cluster) (*types.Cluster, error) {
				c.Status = types.ClusterStatusLeased
				c.UserID = "winner"
				return c, nil
			})
			wins[i] = err == nil && result != nil
		}(i)
	}
	wg.Wait()

	winCount := 0
	for _, w := range wins {
		if w {
			winCount++
		}
	}
	assert.Equal(t, 1, winCount, "exactly one concurrent claim should succeed")
}

func TestDeleteOne(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.Insert(Active, &types.Cluster{ID: "c1"}))
	require.NoError(t, st.DeleteOne(Active, "c1"))

	_, err := st.FindOne(Active, Predicate{ID: "c1"})
	assert.ErrorIs(t, err, ErrNotFound)
}
