package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/datagrep/datagrep/pkg/config"
	"github.com/datagrep/datagrep/pkg/observability"
)

const (
	// sandboxCodePath is where the request's code appears inside the
	// sandbox; the run command is fixed to the interpreter plus this path.
	sandboxCodePath = "/code/script.py"

	containerNamePrefix = "datagrep-exec-"
)

// Executor is the execution orchestrator. It drives one sandbox instance
// per request through its full lifecycle and converts every outcome into a
// Result; no backend fault propagates past Execute.
//
// An Executor holds no cross-request mutable state and is safe for
// concurrent use.
type Executor struct {
	runtime Runtime
	planner *Planner
	cfg     config.SandboxConfig
	logger  *slog.Logger
}

// New creates an executor on the given isolation runtime.
func New(runtime Runtime, planner *Planner, cfg config.SandboxConfig, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		runtime: runtime,
		planner: planner,
		cfg:     cfg,
		logger:  logger,
	}
}

// Execute runs one request to completion and returns its normalized
// result. The sandbox instance and the transient code file are destroyed
// before Execute returns, on every path.
func (e *Executor) Execute(ctx context.Context, req Request) Result {
	start := time.Now()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.cfg.DefaultTimeout
	}

	observability.SandboxesActive.Inc()
	defer observability.SandboxesActive.Dec()

	result := e.execute(ctx, req, timeout, start)

	observability.ExecutionsTotal.WithLabelValues(string(result.Status)).Inc()
	observability.ExecutionDuration.Observe(result.ExecutionTime)

	e.logger.Info("execution finished",
		"status", result.Status,
		"execution_time", result.ExecutionTime,
		"output_len", len(result.Output),
	)
	return result
}

func (e *Executor) execute(ctx context.Context, req Request, timeout time.Duration, start time.Time) Result {
	plan := e.planner.Plan(ctx, req.InputFiles, req.Database)

	codePath, err := writeCodeFile(req.Code)
	if err != nil {
		return e.failure(start, fmt.Sprintf("preparing code: %v", err))
	}
	defer func() {
		if err := os.Remove(codePath); err != nil && !os.IsNotExist(err) {
			e.logger.Warn("failed to remove transient code file", "path", codePath, "error", err)
		}
	}()

	spec := RunSpec{
		Image:   e.cfg.Image,
		Command: []string{"python", sandboxCodePath},
		Binds:   append([]Bind{{HostPath: codePath, SandboxPath: sandboxCodePath}}, plan.Binds...),
		Env:     plan.Env,
		Network: plan.Network,
		Name:    containerNamePrefix + uuid.NewString(),
	}

	handle, err := e.runtime.CreateAndStart(ctx, spec)
	if err != nil {
		if errors.Is(err, ErrImageNotFound) {
			return e.failure(start, fmt.Sprintf(
				"sandbox image %q not provisioned; build the sandbox image before executing pipelines", e.cfg.Image))
		}
		return e.failure(start, fmt.Sprintf("starting sandbox: %v", err))
	}
	defer e.runtime.Destroy(handle)

	e.logger.Debug("sandbox started",
		"name", spec.Name,
		"binds", len(spec.Binds),
		"network", spec.Network,
		"timeout", timeout,
	)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	exitCode, err := e.runtime.Wait(waitCtx, handle)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// Output produced up to the stop is discarded: the instance
			// may have been mid-write when it was stopped.
			return Result{
				Status:        StatusTimeout,
				Error:         fmt.Sprintf("execution timed out after %d seconds", int(timeout.Seconds())),
				ExecutionTime: elapsedSeconds(start),
			}
		}
		if errors.Is(err, ErrContainerFailed) {
			return e.containerFailure(ctx, handle, start, err)
		}
		return e.failure(start, fmt.Sprintf("waiting for sandbox: %v", err))
	}

	raw, err := e.runtime.Logs(ctx, handle)
	if err != nil {
		return e.failure(start, fmt.Sprintf("collecting output: %v", err))
	}
	output := string(raw)

	if exitCode != 0 {
		e.logger.Debug("generated code exited non-zero", "exit_code", exitCode)
	}

	return Result{
		Status:        StatusSuccess,
		Output:        output,
		ExecutionTime: elapsedSeconds(start),
		Data:          Interpret(output),
	}
}

// containerFailure reports a backend-signalled container error, preferring
// the captured logs as the error detail and falling back to the raw error
// text when logs are unavailable.
func (e *Executor) containerFailure(ctx context.Context, h Handle, start time.Time, cause error) Result {
	detail := cause.Error()
	if raw, err := e.runtime.Logs(ctx, h); err == nil && len(raw) > 0 {
		detail = string(raw)
	}
	return e.failure(start, detail)
}

func (e *Executor) failure(start time.Time, msg string) Result {
	return Result{
		Status:        StatusError,
		Error:         msg,
		ExecutionTime: elapsedSeconds(start),
	}
}

// writeCodeFile materializes the code text at a transient host location so
// it can be bind-mounted read-only into the sandbox.
func writeCodeFile(code string) (string, error) {
	f, err := os.CreateTemp("", "datagrep-code-*.py")
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(code); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// elapsedSeconds is wall-clock time since start, rounded to two decimals.
func elapsedSeconds(start time.Time) float64 {
	return math.Round(time.Since(start).Seconds()*100) / 100
}
