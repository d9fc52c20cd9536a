package engine

import (
	"time"

	"github.com/cuemby/clusterpool/pkg/types"
)

// Projection is the canonical external view of a Cluster: every key is
// always present, missing string and timestamp fields render as "" and a
// record without containers renders node_containers as null, so callers
// can depend on the key set staying fixed across versions.
type Projection struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	UserID         string   `json:"user_id"`
	HostID         string   `json:"host_id"`
	APIURL         string   `json:"api_url"`
	CreateTS       string   `json:"create_ts"`
	ApplyTS        string   `json:"apply_ts"`
	ReleaseTS      string   `json:"release_ts"`
	NodeContainers []string `json:"node_containers"`

	// DaemonURL is the claimed cluster's host daemon address. Project
	// and ProjectAll leave it empty, since a bare Cluster record doesn't
	// carry its host's daemon_url; Apply populates it via the registry
	// lookup it already performs to return the value to its own caller.
	DaemonURL string `json:"daemon_url"`
}

// Project converts a stored Cluster to its canonical projection.
func Project(c *types.Cluster) Projection {
	return Projection{
		ID:             c.ID,
		Name:           c.Name,
		UserID:         c.UserID,
		HostID:         c.HostID,
		APIURL:         c.APIURL,
		CreateTS:       formatTS(c.CreateTS),
		ApplyTS:        formatTS(c.ApplyTS),
		ReleaseTS:      formatTS(c.ReleaseTS),
		NodeContainers: c.NodeContainers,
	}
}

// ProjectAll converts a slice of stored Clusters to their projections.
func ProjectAll(cs []*types.Cluster) []Projection {
	out := make([]Projection, len(cs))
	for i, c := range cs {
		out[i] = Project(c)
	}
	return out
}

func formatTS(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
