// Package backend adapts the cluster engine's five composition verbs onto
// containerd, dialed per host daemon address. Every call takes its
// project, network, and port parameters explicitly — never through
// process environment variables — so that concurrent calls against
// different hosts (or different projects on the same host) cannot
// clobber one another.
package backend

import (
	"context"
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/containerd/containerd"
	"github.com/containerd/containerd/cio"
	"github.com/containerd/containerd/namespaces"
	"github.com/containerd/containerd/oci"
)

const namespace = "clusterpool"

// ContainerSpec describes one container in a composition template.
type ContainerSpec struct {
	Name  string
	Image string
	Env   []string
	Ports []int
}

// Template is the parsed composition template loaded from
// COMPOSE_FILE_PATH, parameterized per call by Backend.
type Template struct {
	Containers []ContainerSpec
}

// Backend dials and caches one containerd client per daemon address.
type Backend struct {
	mu      sync.Mutex
	clients map[string]*containerd.Client
	dial    func(addr string) (*containerd.Client, error)
}

// New creates a Backend using the default containerd dial function.
func New() *Backend {
	return &Backend{
		clients: make(map[string]*containerd.Client),
		dial: func(addr string) (*containerd.Client, error) {
			return containerd.New(addr)
		},
	}
}

func (b *Backend) client(daemonAddr string) (*containerd.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.clients[daemonAddr]; ok {
		return c, nil
	}
	c, err := b.dial(daemonAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon %s: %w", daemonAddr, err)
	}
	b.clients[daemonAddr] = c
	return c, nil
}

// Close closes every cached client connection.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var firstErr error
	for addr, c := range b.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close client for %s: %w", addr, err)
		}
	}
	b.clients = make(map[string]*containerd.Client)
	return firstErr
}

// Ping verifies the daemon at daemonAddr is reachable.
func (b *Backend) Ping(ctx context.Context, daemonAddr string) error {
	c, err := b.client(daemonAddr)
	if err != nil {
		return err
	}
	ctx = namespaces.WithNamespace(ctx, namespace)
	if _, err := c.Version(ctx); err != nil {
		return fmt.Errorf("daemon %s unreachable: %w", daemonAddr, err)
	}
	return nil
}

// StartComposition pulls and starts every container in tmpl under the
// given project name, returning the container ids it created. project
// and apiPort are baked into each container's environment rather than
// into process-wide state, so two concurrent StartComposition calls
// against different projects on the same daemon never interfere.
func (b *Backend) StartComposition(ctx context.Context, daemonAddr, project string, apiPort int, tmpl Template) ([]string, error) {
	c, err := b.client(daemonAddr)
	if err != nil {
		return nil, err
	}
	ctx = namespaces.WithNamespace(ctx, namespace)

	var started []string
	for _, cs := range tmpl.Containers {
		id := fmt.Sprintf("%s-%s", project, cs.Name)

		image, err := c.Pull(ctx, cs.Image, containerd.WithPullUnpack)
		if err != nil {
			return started, fmt.Errorf("failed to pull image %s: %w", cs.Image, err)
		}

		env := append([]string{}, cs.Env...)
		env = append(env, fmt.Sprintf("CLUSTERPOOL_PROJECT=%s", project))
		env = append(env, fmt.Sprintf("CLUSTERPOOL_API_PORT=%d", apiPort))

		opts := []oci.SpecOpts{
			oci.WithImageConfig(image),
			oci.WithEnv(env),
		}

		ctr, err := c.NewContainer(ctx, id,
			containerd.WithImage(image),
			containerd.WithNewSnapshot(id+"-snapshot", image),
			containerd.WithNewSpec(opts...),
		)
		if err != nil {
			return started, fmt.Errorf("failed to create container %s: %w", id, err)
		}

		task, err := ctr.NewTask(ctx, cio.NullIO)
		if err != nil {
			return started, fmt.Errorf("failed to create task for %s: %w", id, err)
		}
		if err := task.Start(ctx); err != nil {
			return started, fmt.Errorf("failed to start task for %s: %w", id, err)
		}

		started = append(started, id)
	}
	return started, nil
}

// StopComposition stops and deletes every container previously returned
// by StartComposition for this project.
func (b *Backend) StopComposition(ctx context.Context, daemonAddr string, containerIDs []string) error {
	c, err := b.client(daemonAddr)
	if err != nil {
		return err
	}
	ctx = namespaces.WithNamespace(ctx, namespace)

	var firstErr error
	for _, id := range containerIDs {
		if err := stopAndDelete(ctx, c, id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func stopAndDelete(ctx context.Context, c *containerd.Client, containerID string) error {
	ctr, err := c.LoadContainer(ctx, containerID)
	if err != nil {
		return nil
	}

	task, err := ctr.Task(ctx, nil)
	if err == nil {
		stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_ = task.Kill(stopCtx, syscall.SIGTERM)
		statusC, waitErr := task.Wait(stopCtx)
		if waitErr == nil {
			select {
			case <-statusC:
			case <-stopCtx.Done():
				_ = task.Kill(ctx, syscall.SIGKILL)
			}
		}
		cancel()
		_, _ = task.Delete(ctx)
	}

	if err := ctr.Delete(ctx, containerd.WithSnapshotCleanup); err != nil {
		return fmt.Errorf("failed to delete container %s: %w", containerID, err)
	}
	return nil
}

// CleanExited removes exited containers left behind by a previous
// composition teardown on this daemon. Best-effort: failures are
// returned but callers should not abort cleanup on the first error.
func (b *Backend) CleanExited(ctx context.Context, daemonAddr string) error {
	c, err := b.client(daemonAddr)
	if err != nil {
		return err
	}
	ctx = namespaces.WithNamespace(ctx, namespace)

	containers, err := c.Containers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list containers on %s: %w", daemonAddr, err)
	}

	var firstErr error
	for _, ctr := range containers {
		task, err := ctr.Task(ctx, nil)
		if err != nil {
			continue
		}
		status, err := task.Status(ctx)
		if err != nil || status.Status == containerd.Running {
			continue
		}
		if err := stopAndDelete(ctx, c, ctr.ID()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// CleanImages removes cached images whose ref carries namePrefix, freeing
// space after a composition with that project name has been torn down.
func (b *Backend) CleanImages(ctx context.Context, daemonAddr, namePrefix string) error {
	c, err := b.client(daemonAddr)
	if err != nil {
		return err
	}
	ctx = namespaces.WithNamespace(ctx, namespace)

	images, err := c.ImageService().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list images on %s: %w", daemonAddr, err)
	}

	var firstErr error
	for _, img := range images {
		if namePrefix != "" && !hasPrefix(img.Name, namePrefix) {
			continue
		}
		if err := c.ImageService().Delete(ctx, img.Name); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to delete image %s: %w", img.Name, err)
		}
	}
	return firstErr
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// Interface is the seam the engine depends on, satisfied by *Backend and
// swappable for a fake in tests.
type Interface interface {
	Ping(ctx context.Context, daemonAddr string) error
	StartComposition(ctx context.Context, daemonAddr, project string, apiPort int, tmpl Template) ([]string, error)
	StopComposition(ctx context.Context, daemonAddr string, containerIDs []string) error
	CleanExited(ctx context.Context, daemonAddr string) error
	CleanImages(ctx context.Context, daemonAddr, namePrefix string) error
}

var _ Interface = (*Backend)(nil)
