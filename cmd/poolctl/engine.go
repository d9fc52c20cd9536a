package main

import (
	"fmt"
	"os"

	"github.com/cuemby/clusterpool/pkg/backend"
	"github.com/cuemby/clusterpool/pkg/engine"
	"github.com/cuemby/clusterpool/pkg/log"
	"github.com/cuemby/clusterpool/pkg/registry"
	"github.com/cuemby/clusterpool/pkg/store"
	"gopkg.in/yaml.v3"
)

// templateFile is the on-disk shape of the composition template this
// module starts for every cluster.
type templateFile struct {
	Containers []struct {
		Name  string   `yaml:"name"`
		Image string   `yaml:"image"`
		Env   []string `yaml:"env"`
		Ports []int    `yaml:"ports"`
	} `yaml:"containers"`
}

func loadTemplate(path string) (backend.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return backend.Template{}, fmt.Errorf("failed to read compose file: %w", err)
	}
	var tf templateFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return backend.Template{}, fmt.Errorf("failed to parse compose file: %w", err)
	}

	tmpl := backend.Template{Containers: make([]backend.ContainerSpec, 0, len(tf.Containers))}
	for _, c := range tf.Containers {
		tmpl.Containers = append(tmpl.Containers, backend.ContainerSpec{
			Name:  c.Name,
			Image: c.Image,
			Env:   c.Env,
			Ports: c.Ports,
		})
	}
	return tmpl, nil
}

// openEngine wires the store, registry, backend, and template for the
// loaded config into a running LifecycleEngine. Callers must Close it.
func openEngine() (*engine.Engine, func(), error) {
	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open cluster store: %w", err)
	}
	reg, err := registry.Open(cfg.DataDir)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("failed to open host registry: %w", err)
	}
	tmpl, err := loadTemplate(cfg.ComposeFilePath)
	if err != nil {
		st.Close()
		reg.Close()
		return nil, nil, err
	}

	be := backend.New()
	eng := engine.New(st, reg, be, tmpl, cfg.ClusterAPIPortStart, cfg.ReplenishWorkers, cfg.ReplenishQueueDepth, log.WithComponent("engine"))

	closeFn := func() {
		eng.Close()
		be.Close()
		reg.Close()
		st.Close()
	}
	return eng, closeFn, nil
}
