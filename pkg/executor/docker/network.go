package docker

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"

	"github.com/datagrep/datagrep/pkg/executor"
)

// Resolver maps a logical network name onto the name the daemon actually
// knows. Deployment tooling prefixes network names (docker-compose uses
// the project directory), so the exact name is probed first, then the
// common variants.
type Resolver struct {
	cli    *client.Client
	logger *slog.Logger
}

var _ executor.NetworkResolver = (*Resolver)(nil)

// NetworkResolver returns a resolver sharing this runtime's daemon
// connection.
func (r *Runtime) NetworkResolver() *Resolver {
	return &Resolver{cli: r.cli, logger: r.logger}
}

// Resolve probes the daemon's networks for the logical name and its
// deployment variants. An empty return means no match: the execution then
// proceeds without a named network and any in-sandbox database connection
// fails as an ordinary execution error.
func (rv *Resolver) Resolve(ctx context.Context, name string) string {
	if name == "" {
		return ""
	}

	nets, err := rv.cli.NetworkList(ctx, network.ListOptions{})
	if err != nil {
		rv.logger.Warn("listing networks failed; executing without a named network", "error", err)
		return ""
	}

	known := make(map[string]bool, len(nets))
	for _, n := range nets {
		known[n.Name] = true
	}

	for _, candidate := range candidateNetworkNames(name) {
		if known[candidate] {
			return candidate
		}
	}

	rv.logger.Debug("no matching network; database connections will fail inside the sandbox", "network", name)
	return ""
}

// candidateNetworkNames returns the probe order for a logical name: the
// exact name, the compose project prefix used by the stock deployment,
// and the current directory's compose prefix.
func candidateNetworkNames(name string) []string {
	candidates := []string{name, "datagrep_" + name}
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Base(wd)+"_"+name)
	}
	return candidates
}
