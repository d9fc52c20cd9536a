// Package replenish runs the bounded background worker pool that recycles
// released clusters: archive the released record, then recreate a fresh
// one with the same shape so the pool stays full.
package replenish

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/clusterpool/pkg/metrics"
	"github.com/cuemby/clusterpool/pkg/types"
	"github.com/rs/zerolog"
)

// Job describes one recycle: delete the released cluster and recreate one
// with the same name, host, and shape.
type Job struct {
	ClusterID string
	Name      string
	HostID    string
	Shape     types.ClusterShape
}

// Recycler performs the delete-then-create recycle for a single Job. The
// engine implements this; replenish never imports it directly, so there is
// no import cycle between the two packages.
type Recycler interface {
	Recycle(ctx context.Context, job Job) error
}

// enqueueTimeout bounds how long Enqueue will block trying to hand a job
// to a saturated pool before giving up and dropping it.
const enqueueTimeout = 2 * time.Second

// recycleTimeout bounds how long a single worker spends on one job.
const recycleTimeout = 2 * time.Minute

// Pool is a fixed set of long-lived goroutines draining a buffered job
// channel. It exists so a release burst cannot spawn unbounded goroutines;
// Enqueue never blocks the caller beyond enqueueTimeout.
type Pool struct {
	jobs     chan Job
	recycler Recycler
	log      zerolog.Logger
	wg       sync.WaitGroup
	stopCh   chan struct{}
}

// New starts a Pool with the given number of workers and queue depth.
func New(workers, queueDepth int, recycler Recycler, logger zerolog.Logger) *Pool {
	p := &Pool{
		jobs:     make(chan Job, queueDepth),
		recycler: recycler,
		log:      logger,
		stopCh:   make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.recycle(job)
		case <-p.stopCh:
			return
		}
	}
}

func (p *Pool) recycle(job Job) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RecycleDuration)

	ctx, cancel := context.WithTimeout(context.Background(), recycleTimeout)
	defer cancel()

	if err := p.recycler.Recycle(ctx, job); err != nil {
		p.log.Error().Err(err).Str("cluster_id", job.ClusterID).Str("host_id", job.HostID).
			Msg("recycle failed")
	}
}

// Enqueue hands job to a worker. If the pool is saturated, it waits up to
// enqueueTimeout and then drops the job rather than stall the caller —
// there is intentionally no retry; a subsequent release re-triggers.
func (p *Pool) Enqueue(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()

	select {
	case p.jobs <- job:
	case <-ctx.Done():
		metrics.RecycleDroppedTotal.Inc()
		p.log.Warn().Str("cluster_id", job.ClusterID).Str("host_id", job.HostID).
			Msg("recycle queue saturated, dropping job")
	}
}

// Stop waits for in-flight jobs to finish and stops accepting new ones.
func (p *Pool) Stop() {
	close(p.stopCh)
	p.wg.Wait()
}
