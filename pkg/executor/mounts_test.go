package executor

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/datagrep/datagrep/pkg/config"
)

// staticResolver returns a fixed resolution and records lookups.
type staticResolver struct {
	resolved string
	calls    int
}

func (r *staticResolver) Resolve(_ context.Context, name string) string {
	r.calls++
	return r.resolved
}

func testDefaults() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:     "db",
		Port:     5432,
		Name:     "datagrep",
		User:     "datagrep",
		Password: "datagrep_dev",
	}
}

func TestPlanBindsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "salaries.csv")
	if err := os.WriteFile(existing, []byte("name,salary\n"), 0644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "nope.csv")

	p := NewPlanner(testDefaults(), "datagrep-network", nil, nil)
	plan := p.Plan(context.Background(), []string{existing, missing}, nil)

	if len(plan.Binds) != 1 {
		t.Fatalf("got %d binds, want 1 (missing files are skipped)", len(plan.Binds))
	}
	want := Bind{HostPath: existing, SandboxPath: "/data/salaries.csv"}
	if plan.Binds[0] != want {
		t.Errorf("bind = %+v, want %+v", plan.Binds[0], want)
	}
	if len(plan.Env) != 0 {
		t.Errorf("env = %v, want empty without database config", plan.Env)
	}
	if plan.Network != "" {
		t.Errorf("network = %q, want empty without database config", plan.Network)
	}
}

func TestPlanDatabaseEnvFallbacks(t *testing.T) {
	tests := []struct {
		name string
		db   *DatabaseConfig
		want []string
	}{
		{
			name: "all fields supplied",
			db: &DatabaseConfig{
				Host: "pg.internal", Port: 5433, Database: "sales", User: "alice", Password: "s3cret",
			},
			want: []string{
				"POSTGRES_HOST=pg.internal",
				"POSTGRES_PORT=5433",
				"POSTGRES_DB=sales",
				"POSTGRES_USER=alice",
				"POSTGRES_PASSWORD=s3cret",
			},
		},
		{
			name: "omitted fields fall back to defaults",
			db:   &DatabaseConfig{Database: "sales"},
			want: []string{
				"POSTGRES_HOST=db",
				"POSTGRES_PORT=5432",
				"POSTGRES_DB=sales",
				"POSTGRES_USER=datagrep",
				"POSTGRES_PASSWORD=datagrep_dev",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPlanner(testDefaults(), "datagrep-network", nil, nil)
			plan := p.Plan(context.Background(), nil, tt.db)
			if !reflect.DeepEqual(plan.Env, tt.want) {
				t.Errorf("env = %v, want %v", plan.Env, tt.want)
			}
		})
	}
}

func TestPlanNetworkResolution(t *testing.T) {
	resolver := &staticResolver{resolved: "datagrep_datagrep-network"}
	p := NewPlanner(testDefaults(), "datagrep-network", resolver, nil)

	// No database: the resolver must not even be consulted.
	plan := p.Plan(context.Background(), nil, nil)
	if resolver.calls != 0 {
		t.Errorf("resolver consulted %d times without database config", resolver.calls)
	}
	if plan.Network != "" {
		t.Errorf("network = %q, want empty", plan.Network)
	}

	// Database requested: attach whatever the resolver finds.
	plan = p.Plan(context.Background(), nil, &DatabaseConfig{})
	if resolver.calls != 1 {
		t.Errorf("resolver consulted %d times, want 1", resolver.calls)
	}
	if plan.Network != "datagrep_datagrep-network" {
		t.Errorf("network = %q, want resolved name", plan.Network)
	}
}

func TestPlanNoNetworkMatch(t *testing.T) {
	resolver := &staticResolver{resolved: ""}
	p := NewPlanner(testDefaults(), "datagrep-network", resolver, nil)

	// An unresolvable network is not a planning error: the execution
	// proceeds unattached and the in-sandbox connection fails naturally.
	plan := p.Plan(context.Background(), nil, &DatabaseConfig{})
	if plan.Network != "" {
		t.Errorf("network = %q, want empty on no match", plan.Network)
	}
	if len(plan.Env) == 0 {
		t.Error("env should still carry connection variables")
	}
}
