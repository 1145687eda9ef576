// Package docker implements executor.Runtime on the Docker Engine API.
//
// Every sandbox instance is a one-shot container created from a fixed
// image, with read-only bind mounts, a fixed memory ceiling and CPU quota,
// and force removal on destroy. The daemon connection is established once
// and shared by concurrent executions; the daemon serializes access to its
// own state.
package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/datagrep/datagrep/pkg/executor"
)

// Fixed resource policy for arbitrary generated code. Not caller-tunable.
const (
	memoryLimitBytes = 512 << 20 // 512 MiB
	cpuPeriod        = 100000
	cpuQuota         = 50000 // half a CPU
)

// Runtime is a Docker-backed executor.Runtime.
type Runtime struct {
	cli       *client.Client
	stopGrace time.Duration
	logger    *slog.Logger
}

var _ executor.Runtime = (*Runtime)(nil)

// New connects to the Docker daemon and verifies it is reachable. An
// unreachable daemon is surfaced here, at acquisition time, rather than
// deferred to the first execution.
func New(ctx context.Context, stopGrace time.Duration, logger *slog.Logger) (*Runtime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("docker daemon unreachable: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if stopGrace <= 0 {
		stopGrace = 2 * time.Second
	}
	return &Runtime{cli: cli, stopGrace: stopGrace, logger: logger}, nil
}

// Close releases the daemon connection.
func (r *Runtime) Close() error {
	return r.cli.Close()
}

// CreateAndStart creates and starts one sandbox container.
func (r *Runtime) CreateAndStart(ctx context.Context, spec executor.RunSpec) (executor.Handle, error) {
	binds := make([]string, 0, len(spec.Binds))
	for _, b := range spec.Binds {
		binds = append(binds, fmt.Sprintf("%s:%s:ro", b.HostPath, b.SandboxPath))
	}

	cfg := &container.Config{
		Image: spec.Image,
		Cmd:   spec.Command,
		Env:   spec.Env,
	}
	hostCfg := &container.HostConfig{
		Binds: binds,
		Resources: container.Resources{
			Memory:    memoryLimitBytes,
			CPUPeriod: cpuPeriod,
			CPUQuota:  cpuQuota,
		},
	}
	var netCfg *network.NetworkingConfig
	if spec.Network != "" {
		netCfg = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				spec.Network: {},
			},
		}
	}

	created, err := r.cli.ContainerCreate(ctx, cfg, hostCfg, netCfg, nil, spec.Name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return executor.Handle{}, fmt.Errorf("image %q: %w", spec.Image, executor.ErrImageNotFound)
		}
		return executor.Handle{}, fmt.Errorf("creating container: %w", err)
	}

	h := executor.Handle{ID: created.ID}
	if err := r.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		r.Destroy(h)
		return executor.Handle{}, fmt.Errorf("starting container: %w", executor.ErrContainerFailed)
	}
	return h, nil
}

// Wait blocks until the container reaches a terminal state or the context
// deadline fires. On deadline the container is actively stopped before
// context.DeadlineExceeded is returned; the daemon does not enforce the
// deadline on its own.
func (r *Runtime) Wait(ctx context.Context, h executor.Handle) (int64, error) {
	statusCh, errCh := r.cli.ContainerWait(ctx, h.ID, container.WaitConditionNotRunning)

	select {
	case status := <-statusCh:
		if status.Error != nil {
			return status.StatusCode, fmt.Errorf("%s: %w", status.Error.Message, executor.ErrContainerFailed)
		}
		return status.StatusCode, nil
	case err := <-errCh:
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			r.stop(h)
			return 0, context.DeadlineExceeded
		}
		return 0, fmt.Errorf("waiting for container: %w", err)
	}
}

// Logs fetches the container's combined stdout and stderr, demuxed from
// the daemon's multiplexed stream into one interleaved buffer.
func (r *Runtime) Logs(ctx context.Context, h executor.Handle) ([]byte, error) {
	rc, err := r.cli.ContainerLogs(ctx, h.ID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching container logs: %w", err)
	}
	defer rc.Close()

	var combined bytes.Buffer
	if _, err := stdcopy.StdCopy(&combined, &combined, rc); err != nil {
		return nil, fmt.Errorf("demuxing container logs: %w", err)
	}
	return combined.Bytes(), nil
}

// Destroy force-removes the container. It is idempotent and never fails
// upward: removal problems are logged so they cannot mask the execution's
// primary result.
func (r *Runtime) Destroy(h executor.Handle) {
	if h.ID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := r.cli.ContainerRemove(ctx, h.ID, container.RemoveOptions{Force: true})
	if err != nil && !client.IsErrNotFound(err) {
		r.logger.Warn("failed to remove container", "container_id", shortID(h.ID), "error", err)
	}
}

// stop signals a running container to stop, detached from the caller's
// already-expired context.
func (r *Runtime) stop(h executor.Handle) {
	ctx, cancel := context.WithTimeout(context.Background(), r.stopGrace+10*time.Second)
	defer cancel()

	grace := int(r.stopGrace.Seconds())
	err := r.cli.ContainerStop(ctx, h.ID, container.StopOptions{Timeout: &grace})
	if err != nil && !client.IsErrNotFound(err) {
		r.logger.Warn("failed to stop container", "container_id", shortID(h.ID), "error", err)
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
