package executor

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/datagrep/datagrep/pkg/config"
)

// sandboxDataDir is the fixed directory under which input files appear
// inside the sandbox.
const sandboxDataDir = "/data"

// MountPlan is the derived, per-execution set of resources made visible to
// a sandbox: read-only file bindings, environment variables, and the
// network to attach. It is discarded once the sandbox is destroyed.
type MountPlan struct {
	Binds   []Bind
	Env     []string
	Network string
}

// Planner maps requested input files and database credentials onto
// sandbox-visible resources.
type Planner struct {
	defaults config.DatabaseConfig
	network  string
	resolver NetworkResolver
	logger   *slog.Logger
}

// NewPlanner creates a mount planner. defaults supplies the connection
// fields a request may omit; network is the logical database network name;
// resolver may be nil when no backend network lookup is available.
func NewPlanner(defaults config.DatabaseConfig, network string, resolver NetworkResolver, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		defaults: defaults,
		network:  network,
		resolver: resolver,
		logger:   logger,
	}
}

// Plan builds the mount plan for one execution.
//
// Input files that do not exist on the host are silently skipped: the
// generated code that references them fails inside the sandbox instead,
// which surfaces as an ordinary execution error rather than a planning
// error. Database env vars and a named network are attached only when db
// is non-nil; otherwise the sandbox runs under the backend's default
// isolation policy.
func (p *Planner) Plan(ctx context.Context, inputFiles []string, db *DatabaseConfig) MountPlan {
	var plan MountPlan

	for _, path := range inputFiles {
		if _, err := os.Stat(path); err != nil {
			p.logger.Debug("skipping missing input file", "path", path)
			continue
		}
		plan.Binds = append(plan.Binds, Bind{
			HostPath:    path,
			SandboxPath: filepath.Join(sandboxDataDir, filepath.Base(path)),
		})
	}

	if db == nil {
		return plan
	}

	plan.Env = p.databaseEnv(db)
	if p.resolver != nil {
		plan.Network = p.resolver.Resolve(ctx, p.network)
	}
	return plan
}

// databaseEnv renders the connection environment for the sandbox, filling
// omitted fields from the service-wide defaults.
func (p *Planner) databaseEnv(db *DatabaseConfig) []string {
	host := db.Host
	if host == "" {
		host = p.defaults.Host
	}
	port := db.Port
	if port == 0 {
		port = p.defaults.Port
	}
	name := db.Database
	if name == "" {
		name = p.defaults.Name
	}
	user := db.User
	if user == "" {
		user = p.defaults.User
	}
	password := db.Password
	if password == "" {
		password = p.defaults.Password
	}

	return []string{
		"POSTGRES_HOST=" + host,
		"POSTGRES_PORT=" + strconv.Itoa(port),
		"POSTGRES_DB=" + name,
		"POSTGRES_USER=" + user,
		"POSTGRES_PASSWORD=" + password,
	}
}
