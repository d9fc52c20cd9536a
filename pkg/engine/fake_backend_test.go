package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/cuemby/clusterpool/pkg/backend"
)

// fakeBackend is an in-memory backend.Interface for testing: no real
// containerd daemon is dialed, it just hands back synthetic container ids.
type fakeBackend struct {
	mu sync.Mutex

	pingErr  error
	startErr error

	started map[string][]string // project -> container ids
	nextID  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{started: make(map[string][]string)}
}

func (f *fakeBackend) Ping(ctx context.Context, daemonAddr string) error {
	return f.pingErr
}

func (f *fakeBackend) StartComposition(ctx context.Context, daemonAddr, project string, apiPort int, tmpl backend.Template) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.startErr != nil {
		return nil, f.startErr
	}
	ids := make([]string, 0, len(tmpl.Containers))
	for range tmpl.Containers {
		f.nextID++
		ids = append(ids, fmt.Sprintf("%s-container-%d", project, f.nextID))
	}
	if len(ids) == 0 {
		ids = []string{fmt.Sprintf("%s-container-%d", project, 1)}
	}
	f.started[project] = ids
	return ids, nil
}

func (f *fakeBackend) StopComposition(ctx context.Context, daemonAddr string, containerIDs []string) error {
	return nil
}

func (f *fakeBackend) CleanExited(ctx context.Context, daemonAddr string) error {
	return nil
}

func (f *fakeBackend) CleanImages(ctx context.Context, daemonAddr, namePrefix string) error {
	return nil
}

var _ backend.Interface = (*fakeBackend)(nil)
