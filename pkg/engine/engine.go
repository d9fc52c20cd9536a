// Package engine implements the cluster pool's lifecycle operations:
// create, delete, apply, release, start/stop/restart, and the filter/list
// facade. It holds no cross-call mutex of its own — correctness under
// concurrent callers rests on the atomic primitives pkg/store and
// pkg/registry provide, not on serializing access here.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/clusterpool/pkg/backend"
	"github.com/cuemby/clusterpool/pkg/health"
	"github.com/cuemby/clusterpool/pkg/metrics"
	"github.com/cuemby/clusterpool/pkg/portalloc"
	"github.com/cuemby/clusterpool/pkg/registry"
	"github.com/cuemby/clusterpool/pkg/replenish"
	"github.com/cuemby/clusterpool/pkg/store"
	"github.com/cuemby/clusterpool/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine is the lifecycle engine. It is safe for concurrent use.
type Engine struct {
	store     *store.Store
	registry  *registry.Registry
	backend   backend.Interface
	template  backend.Template
	portStart int
	log       zerolog.Logger
	pool      *replenish.Pool

	healthConfig health.Config
	healthMu     sync.Mutex
	hostHealth   map[string]*health.Status
}

// New constructs an Engine and starts its replenish pool. Close must be
// called to stop the pool's workers.
func New(st *store.Store, reg *registry.Registry, be backend.Interface, tmpl backend.Template, portStart, replenishWorkers, replenishQueueDepth int, logger zerolog.Logger) *Engine {
	e := &Engine{
		store:        st,
		registry:     reg,
		backend:      be,
		template:     tmpl,
		portStart:    portStart,
		log:          logger,
		healthConfig: health.DefaultConfig(),
		hostHealth:   make(map[string]*health.Status),
	}
	e.pool = replenish.New(replenishWorkers, replenishQueueDepth, e, logger)

	metrics.RegisterComponent("store", true, "")
	metrics.RegisterComponent("registry", true, "")
	metrics.RegisterComponent("backend", true, "")

	return e
}

// Close stops the replenish pool, waiting for in-flight recycles to finish.
func (e *Engine) Close() {
	e.pool.Stop()
}

// now is a seam so tests can control timestamps.
var now = time.Now

// Create provisions a new cluster on hostID and attaches it to the pool.
// api_port and user_id may be supplied via CreateOption; otherwise a port
// is allocated and the cluster starts unassigned to any user.
func (e *Engine) Create(ctx context.Context, name, hostID string, shape types.ClusterShape, opts ...CreateOption) (string, error) {
	cfg := createOpts{}
	for _, o := range opts {
		o(&cfg)
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.CreateDuration)

	host, err := e.registry.Get(hostID)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrHostNotFound, hostID)
	}
	if len(host.Clusters) >= host.Capacity {
		metrics.CapacityExceededTotal.Inc()
		return "", fmt.Errorf("%w: host %s", ErrCapacityExceeded, hostID)
	}
	if err := e.backend.Ping(ctx, host.DaemonURL); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDaemonUnreachable, err)
	}

	port, err := e.allocatePort(host, cfg.apiPort)
	if err != nil {
		return "", err
	}
	ip, err := portalloc.HostIP(host.DaemonURL)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	c := &types.Cluster{
		ID:              id,
		Name:            name,
		HostID:          hostID,
		APIURL:          fmt.Sprintf("http://%s:%d", ip, port),
		APIPort:         port,
		UserID:          types.UnassignedUser,
		ConsensusPlugin: shape.ConsensusPlugin,
		ConsensusMode:   shape.ConsensusMode,
		Size:            shape.Size,
		Status:          types.ClusterStatusProvisioning,
		CreateTS:        now(),
	}
	if err := e.store.Insert(store.Active, c); err != nil {
		return "", fmt.Errorf("failed to insert cluster record: %w", err)
	}

	containerIDs, err := e.backend.StartComposition(ctx, host.DaemonURL, id, port, e.template)
	if err != nil || len(containerIDs) == 0 {
		_ = e.store.DeleteOne(store.Active, id)
		if err == nil {
			err = fmt.Errorf("composition started no containers")
		}
		return "", fmt.Errorf("failed to start composition: %w", err)
	}

	// AttachCluster re-checks capacity inside its own transaction, since the
	// check above is stale the moment two Create calls race the same host;
	// a failure here, capacity or otherwise, must roll back the composition
	// just started, not merely log and leave an unattached cluster running.
	if err := e.registry.AttachCluster(hostID, id); err != nil {
		_ = e.backend.StopComposition(ctx, host.DaemonURL, containerIDs)
		_ = e.store.DeleteOne(store.Active, id)
		if errors.Is(err, registry.ErrCapacityExceeded) {
			metrics.CapacityExceededTotal.Inc()
			return "", fmt.Errorf("%w: host %s", ErrCapacityExceeded, hostID)
		}
		return "", fmt.Errorf("failed to attach cluster to host: %w", err)
	}

	c.NodeContainers = containerIDs
	c.Status = types.ClusterStatusIdle
	c.UserID = cfg.userID
	if cfg.userID != "" {
		c.Status = types.ClusterStatusLeased
		c.ApplyTS = now()
	}
	if err := e.store.UpdateOne(store.Active, c); err != nil {
		return "", fmt.Errorf("failed to finalize cluster record: %w", err)
	}

	metrics.ClustersTotal.WithLabelValues(hostID, string(c.Status)).Inc()
	return id, nil
}

func (e *Engine) allocatePort(host *types.Host, explicit *int) (int, error) {
	if explicit != nil {
		return *explicit, nil
	}
	active, err := e.store.Find(store.Active, store.Predicate{HostID: host.ID})
	if err != nil {
		return 0, fmt.Errorf("failed to list host's clusters for port allocation: %w", err)
	}
	used := make([]int, 0, len(active))
	for _, c := range active {
		if c.APIPort != 0 {
			used = append(used, c.APIPort)
		}
	}
	return portalloc.AllocateOne(e.portStart, used)
}

// Delete removes a cluster record from col. In Active without forced, any
// cluster that is not Idle is refused: a Leased one with ErrLeaseConflict,
// any other status with ErrInvalidState.
func (e *Engine) Delete(ctx context.Context, id string, col store.Collection, archive, forced bool) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DeleteDuration)

	rec, err := e.store.FindOne(col, store.Predicate{ID: id})
	if err != nil {
		return fmt.Errorf("%w: %s", ErrClusterNotFound, id)
	}
	// Without forced, only an Idle cluster may be deleted: a Leased one
	// belongs to a user, and a Provisioning or Releasing one is mid-flight
	// and still being wired to (or torn away from) its host.
	if col == store.Active && !forced && rec.Status != types.ClusterStatusIdle {
		if rec.Status == types.ClusterStatusLeased {
			return fmt.Errorf("%w: cluster %s", ErrLeaseConflict, id)
		}
		return fmt.Errorf("%w: cluster %s is %s", ErrInvalidState, id, rec.Status)
	}

	if col == store.Active {
		host, hostErr := e.registry.Get(rec.HostID)
		if hostErr == nil {
			if err := e.backend.StopComposition(ctx, host.DaemonURL, rec.NodeContainers); err != nil {
				e.log.Error().Err(err).Str("cluster_id", id).Msg("stop composition failed during delete")
			}
			if err := e.backend.CleanExited(ctx, host.DaemonURL); err != nil {
				e.log.Error().Err(err).Str("cluster_id", id).Msg("clean exited failed during delete")
			}
			if err := e.backend.CleanImages(ctx, host.DaemonURL, id); err != nil {
				e.log.Error().Err(err).Str("cluster_id", id).Msg("clean images failed during delete")
			}
			if err := e.registry.DetachCluster(host.ID, id); err != nil {
				e.log.Error().Err(err).Str("cluster_id", id).Msg("detach from host failed during delete")
			}
		}

		if archive {
			if rec.ReleaseTS.IsZero() {
				rec.ReleaseTS = now()
			}
			rec.Status = types.ClusterStatusStopped
			if err := e.store.Insert(store.Released, rec); err != nil {
				e.log.Error().Err(err).Str("cluster_id", id).Msg("archive insert failed, ignoring duplicate")
			}
		}
	}

	if err := e.store.DeleteOne(col, id); err != nil {
		return fmt.Errorf("failed to delete cluster record: %w", err)
	}
	return nil
}

// Apply claims a cluster for userID. Unless allowMultiple is set, an
// existing unreleased lease for userID, on whichever host it lives, is
// returned idempotently instead of claiming a second cluster. The second return
// value is the claimed cluster's host daemon_url, looked up from the
// registry so callers don't have to make a second trip to learn where
// the cluster they were just handed actually lives.
func (e *Engine) Apply(ctx context.Context, userID string, cond store.Predicate, allowMultiple bool) (*types.Cluster, string, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ApplyDuration)

	hosts, err := e.registry.ListActive()
	if err != nil {
		return nil, "", fmt.Errorf("failed to list active hosts: %w", err)
	}
	if len(hosts) == 0 {
		return nil, "", ErrNoActiveHost
	}

	if !allowMultiple {
		existing, err := e.store.FindOne(store.Active, store.Predicate{
			UserID: userID, UserIDSet: true, ReleaseTSEmpty: true,
		})
		if err == nil {
			return existing, e.hostDaemonURL(existing.HostID), nil
		}
	}

	// Claim keys off Status == Idle, not a string comparison against
	// UserID, so a still-provisioning record (whose UserID holds the
	// UnassignedUser sentinel) can never be claimed by accident.
	claim := cond
	claim.Status = types.ClusterStatusIdle
	claim.StatusSet = true

	result, err := e.store.FindOneAndUpdate(store.Active, claim, func(c *types.Cluster) (*types.Cluster, error) {
		c.UserID = userID
		c.ApplyTS = now()
		c.Status = types.ClusterStatusLeased
		return c, nil
	})
	if err != nil || result.UserID != userID || result.Status != types.ClusterStatusLeased {
		metrics.LeaseConflictsTotal.Inc()
		return nil, "", ErrNoAvailableResource
	}
	return result, e.hostDaemonURL(result.HostID), nil
}

// hostDaemonURL looks up hostID's daemon_url, returning "" if the host
// can no longer be found rather than failing the caller's operation over
// what is, at that point, purely informational.
func (e *Engine) hostDaemonURL(hostID string) string {
	host, err := e.registry.Get(hostID)
	if err != nil {
		return ""
	}
	return host.DaemonURL
}

// ReleaseByClusterID releases the named cluster.
func (e *Engine) ReleaseByClusterID(ctx context.Context, clusterID string) error {
	return e.release(ctx, store.Predicate{ID: clusterID})
}

// ReleaseByUserID releases the unreleased active cluster leased to userID.
func (e *Engine) ReleaseByUserID(ctx context.Context, userID string) error {
	return e.release(ctx, store.Predicate{UserID: userID, UserIDSet: true})
}

func (e *Engine) release(ctx context.Context, pred store.Predicate) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ReleaseDuration)

	pred.ReleaseTSEmpty = true
	rec, err := e.store.FindOneAndUpdate(store.Active, pred, func(c *types.Cluster) (*types.Cluster, error) {
		c.ReleaseTS = now()
		c.Status = types.ClusterStatusReleasing
		return c, nil
	})
	if err != nil || rec.ReleaseTS.IsZero() {
		return fmt.Errorf("%w: no unreleased cluster matching selector", ErrClusterNotFound)
	}

	e.pool.Enqueue(replenish.Job{
		ClusterID: rec.ID,
		Name:      rec.Name,
		HostID:    rec.HostID,
		Shape: types.ClusterShape{
			ConsensusPlugin: rec.ConsensusPlugin,
			ConsensusMode:   rec.ConsensusMode,
			Size:            rec.Size,
		},
	})
	return nil
}

// Recycle implements replenish.Recycler: archive-delete the released
// cluster, then recreate one with the same shape. No error is returned to
// a waiting caller, since none is waiting by the time this runs.
func (e *Engine) Recycle(ctx context.Context, job replenish.Job) error {
	if err := e.Delete(ctx, job.ClusterID, store.Active, true, true); err != nil {
		e.log.Error().Err(err).Str("cluster_id", job.ClusterID).Msg("recycle delete failed")
	}
	if _, err := e.Create(ctx, job.Name, job.HostID, job.Shape); err != nil {
		e.log.Error().Err(err).Str("host_id", job.HostID).Msg("recycle recreate failed")
		return err
	}
	return nil
}

func maintenanceGuard(rec *types.Cluster, want types.ClusterStatus) error {
	if rec.Status == types.ClusterStatusProvisioning {
		return fmt.Errorf("%w: cluster %s is provisioning", ErrInvalidState, rec.ID)
	}
	if rec.Status == types.ClusterStatusLeased {
		return fmt.Errorf("%w: cluster %s is leased", ErrLeaseConflict, rec.ID)
	}
	if rec.Status != want {
		return fmt.Errorf("%w: cluster %s is %s, want %s", ErrInvalidState, rec.ID, rec.Status, want)
	}
	return nil
}

// Stop calls stop_composition for an idle cluster and marks it Stopped.
func (e *Engine) Stop(ctx context.Context, clusterID string) error {
	rec, err := e.store.FindOne(store.Active, store.Predicate{ID: clusterID})
	if err != nil {
		return fmt.Errorf("%w: %s", ErrClusterNotFound, clusterID)
	}
	if err := maintenanceGuard(rec, types.ClusterStatusIdle); err != nil {
		return err
	}
	host, err := e.registry.Get(rec.HostID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrHostNotFound, rec.HostID)
	}
	if err := e.backend.StopComposition(ctx, host.DaemonURL, rec.NodeContainers); err != nil {
		return fmt.Errorf("failed to stop composition: %w", err)
	}
	rec.Status = types.ClusterStatusStopped
	return e.store.UpdateOne(store.Active, rec)
}

// Start calls start_composition for a stopped cluster and marks it Idle.
func (e *Engine) Start(ctx context.Context, clusterID string) error {
	rec, err := e.store.FindOne(store.Active, store.Predicate{ID: clusterID})
	if err != nil {
		return fmt.Errorf("%w: %s", ErrClusterNotFound, clusterID)
	}
	if err := maintenanceGuard(rec, types.ClusterStatusStopped); err != nil {
		return err
	}
	host, err := e.registry.Get(rec.HostID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrHostNotFound, rec.HostID)
	}
	containerIDs, err := e.backend.StartComposition(ctx, host.DaemonURL, rec.ID, rec.APIPort, e.template)
	if err != nil {
		return fmt.Errorf("failed to start composition: %w", err)
	}
	rec.NodeContainers = containerIDs
	rec.Status = types.ClusterStatusIdle
	return e.store.UpdateOne(store.Active, rec)
}

// Restart stops then starts an idle cluster; callers never observe the
// intermediate Stopped state.
func (e *Engine) Restart(ctx context.Context, clusterID string) error {
	rec, err := e.store.FindOne(store.Active, store.Predicate{ID: clusterID})
	if err != nil {
		return fmt.Errorf("%w: %s", ErrClusterNotFound, clusterID)
	}
	if err := maintenanceGuard(rec, types.ClusterStatusIdle); err != nil {
		return err
	}
	host, err := e.registry.Get(rec.HostID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrHostNotFound, rec.HostID)
	}
	if err := e.backend.StopComposition(ctx, host.DaemonURL, rec.NodeContainers); err != nil {
		return fmt.Errorf("failed to stop composition: %w", err)
	}
	containerIDs, err := e.backend.StartComposition(ctx, host.DaemonURL, rec.ID, rec.APIPort, e.template)
	if err != nil {
		return fmt.Errorf("failed to start composition: %w", err)
	}
	rec.NodeContainers = containerIDs
	return e.store.UpdateOne(store.Active, rec)
}

// Get returns a single cluster record by id from col.
func (e *Engine) Get(id string, col store.Collection) (*types.Cluster, error) {
	rec, err := e.store.FindOne(col, store.Predicate{ID: id})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrClusterNotFound, id)
	}
	return rec, nil
}

// List returns every cluster in col matching pred.
func (e *Engine) List(pred store.Predicate, col store.Collection) ([]*types.Cluster, error) {
	return e.store.Find(col, pred)
}

// CreateOption customizes Create's defaulted fields.
type CreateOption func(*createOpts)

type createOpts struct {
	apiPort *int
	userID  string
}

// WithAPIPort pins the allocated port instead of deriving one from the
// host's current usage.
func WithAPIPort(port int) CreateOption {
	return func(o *createOpts) { o.apiPort = &port }
}

// WithUserID pre-assigns the cluster to a user at creation time, instead
// of leaving it idle for a later Apply.
func WithUserID(userID string) CreateOption {
	return func(o *createOpts) { o.userID = userID }
}
