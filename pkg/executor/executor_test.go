package executor

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/datagrep/datagrep/pkg/config"
)

// fakeRuntime is an in-memory Runtime that records the full lifecycle of
// every sandbox instance so tests can verify the cleanup guarantees.
type fakeRuntime struct {
	mu        sync.Mutex
	created   []RunSpec
	code      map[string]string // handle ID -> code content at create time
	running   map[string]bool
	destroyed []string

	startErr error
	waitErr  error
	exitCode int64
	logs     []byte
	logsErr  error

	// runFor simulates the wall-clock runtime of the code; zero returns
	// immediately. Code containing "while True" never finishes on its own.
	runFor time.Duration
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		code:    make(map[string]string),
		running: make(map[string]bool),
	}
}

func (f *fakeRuntime) CreateAndStart(_ context.Context, spec RunSpec) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.startErr != nil {
		return Handle{}, f.startErr
	}

	// The transient code file must exist while the instance is alive.
	content, err := os.ReadFile(spec.Binds[0].HostPath)
	if err != nil {
		return Handle{}, fmt.Errorf("code bind not readable: %w", err)
	}

	f.created = append(f.created, spec)
	h := Handle{ID: spec.Name}
	f.code[h.ID] = string(content)
	f.running[h.ID] = true
	return h, nil
}

func (f *fakeRuntime) Wait(ctx context.Context, h Handle) (int64, error) {
	if f.waitErr != nil {
		return 0, f.waitErr
	}

	f.mu.Lock()
	infinite := strings.Contains(f.code[h.ID], "while True")
	f.mu.Unlock()

	d := f.runFor
	if infinite {
		d = time.Hour
	}

	select {
	case <-time.After(d):
		f.mu.Lock()
		f.running[h.ID] = false
		f.mu.Unlock()
		return f.exitCode, nil
	case <-ctx.Done():
		// Mirror the real runtime: stop the instance before reporting.
		f.mu.Lock()
		f.running[h.ID] = false
		f.mu.Unlock()
		return 0, ctx.Err()
	}
}

func (f *fakeRuntime) Logs(_ context.Context, h Handle) ([]byte, error) {
	if f.logsErr != nil {
		return nil, f.logsErr
	}
	if f.logs != nil {
		return f.logs, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return []byte("ran: " + f.code[h.ID]), nil
}

func (f *fakeRuntime) Destroy(h Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = append(f.destroyed, h.ID)
	delete(f.running, h.ID)
}

func (f *fakeRuntime) anyRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, running := range f.running {
		if running {
			return true
		}
	}
	return false
}

func testExecutor(rt Runtime) *Executor {
	cfg := config.SandboxConfig{
		Image:          "datagrep-sandbox:latest",
		Network:        "datagrep-network",
		DefaultTimeout: 60 * time.Second,
		StopGrace:      2 * time.Second,
	}
	planner := NewPlanner(testDefaults(), cfg.Network, nil, nil)
	return New(rt, planner, cfg, nil)
}

func TestExecuteSuccess(t *testing.T) {
	rt := newFakeRuntime()
	rt.logs = []byte("Hello\n")

	res := testExecutor(rt).Execute(context.Background(), Request{
		Code:    `print("Hello")`,
		Timeout: 5 * time.Second,
	})

	if res.Status != StatusSuccess {
		t.Fatalf("status = %q, want success (error: %s)", res.Status, res.Error)
	}
	if !strings.Contains(res.Output, "Hello") {
		t.Errorf("output = %q, want it to contain Hello", res.Output)
	}
	if res.Data != nil {
		t.Errorf("result data = %#v, want nil for textual output", res.Data)
	}
	if res.Error != "" {
		t.Errorf("error = %q, want empty", res.Error)
	}
	if res.ExecutionTime < 0 {
		t.Errorf("execution time = %v, want non-negative", res.ExecutionTime)
	}
	if len(rt.destroyed) != 1 {
		t.Errorf("destroyed %d instances, want 1", len(rt.destroyed))
	}
}

func TestExecuteTimeout(t *testing.T) {
	rt := newFakeRuntime()

	start := time.Now()
	res := testExecutor(rt).Execute(context.Background(), Request{
		Code:    "while True:\n    pass",
		Timeout: 1 * time.Second,
	})
	elapsed := time.Since(start)

	if res.Status != StatusTimeout {
		t.Fatalf("status = %q, want timeout", res.Status)
	}
	if !strings.Contains(res.Error, "1 second") {
		t.Errorf("error = %q, want it to name the configured timeout", res.Error)
	}
	if res.Output != "" {
		t.Errorf("output = %q, want partial output discarded on timeout", res.Output)
	}
	if res.ExecutionTime < 1.0 || res.ExecutionTime >= 2.0 {
		t.Errorf("execution time = %v, want within [1.0, 2.0)", res.ExecutionTime)
	}
	if elapsed > 2*time.Second {
		t.Errorf("Execute blocked %v past the deadline", elapsed)
	}
	if len(rt.destroyed) != 1 {
		t.Errorf("destroyed %d instances, want 1", len(rt.destroyed))
	}
	if rt.anyRunning() {
		t.Error("a timed-out instance was left running")
	}
}

func TestExecuteImageNotProvisioned(t *testing.T) {
	rt := newFakeRuntime()
	rt.startErr = fmt.Errorf("image \"datagrep-sandbox:latest\": %w", ErrImageNotFound)

	res := testExecutor(rt).Execute(context.Background(), Request{Code: "print(1)"})

	if res.Status != StatusError {
		t.Fatalf("status = %q, want error", res.Status)
	}
	if !strings.Contains(res.Error, "not provisioned") {
		t.Errorf("error = %q, want a \"not provisioned\" message distinct from code failures", res.Error)
	}
	if len(rt.destroyed) != 0 {
		t.Errorf("destroyed %d instances, want 0 (nothing was created)", len(rt.destroyed))
	}
}

func TestExecuteContainerFailure(t *testing.T) {
	rt := newFakeRuntime()
	rt.waitErr = fmt.Errorf("exec format error: %w", ErrContainerFailed)
	rt.logs = []byte("Traceback (most recent call last):\nValueError: bad column\n")

	res := testExecutor(rt).Execute(context.Background(), Request{Code: "boom"})

	if res.Status != StatusError {
		t.Fatalf("status = %q, want error", res.Status)
	}
	if !strings.Contains(res.Error, "ValueError") {
		t.Errorf("error = %q, want the captured logs as detail", res.Error)
	}
	if len(rt.destroyed) != 1 {
		t.Errorf("destroyed %d instances, want 1", len(rt.destroyed))
	}
}

func TestExecuteContainerFailureWithoutLogs(t *testing.T) {
	rt := newFakeRuntime()
	rt.waitErr = fmt.Errorf("exec format error: %w", ErrContainerFailed)
	rt.logsErr = fmt.Errorf("no such container")

	res := testExecutor(rt).Execute(context.Background(), Request{Code: "boom"})

	if res.Status != StatusError {
		t.Fatalf("status = %q, want error", res.Status)
	}
	// Falls back to the raw error text when logs are unavailable.
	if !strings.Contains(res.Error, "exec format error") {
		t.Errorf("error = %q, want the wait error as fallback detail", res.Error)
	}
}

func TestExecuteNonZeroExitIsSuccess(t *testing.T) {
	rt := newFakeRuntime()
	rt.exitCode = 3
	rt.logs = []byte("partial work\n")

	res := testExecutor(rt).Execute(context.Background(), Request{Code: "import sys; sys.exit(3)"})

	// A non-zero exit without a backend container-error signal is still
	// a completed execution; the output speaks for itself.
	if res.Status != StatusSuccess {
		t.Errorf("status = %q, want success", res.Status)
	}
}

func TestExecuteResultData(t *testing.T) {
	rt := newFakeRuntime()
	rt.logs = []byte("computing\n{\"a\": 1}\n")

	res := testExecutor(rt).Execute(context.Background(), Request{
		Code: `import json; print(json.dumps({"a": 1}))`,
	})

	if res.Status != StatusSuccess {
		t.Fatalf("status = %q, want success", res.Status)
	}
	data, ok := res.Data.(map[string]any)
	if !ok {
		t.Fatalf("result data = %#v, want a map", res.Data)
	}
	if data["a"] != float64(1) {
		t.Errorf("result data a = %v, want 1", data["a"])
	}
}

func TestExecuteRemovesCodeFile(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(*fakeRuntime)
	}{
		{"on success", func(f *fakeRuntime) {}},
		{"on start failure", func(f *fakeRuntime) { f.startErr = fmt.Errorf("daemon hiccup") }},
		{"on wait failure", func(f *fakeRuntime) { f.waitErr = fmt.Errorf("conn reset") }},
		{"on logs failure", func(f *fakeRuntime) { f.logsErr = fmt.Errorf("gone") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newFakeRuntime()
			tt.prepare(rt)

			testExecutor(rt).Execute(context.Background(), Request{Code: "print(1)"})

			// Whatever the outcome, no transient code file may survive.
			for _, spec := range rt.created {
				if _, err := os.Stat(spec.Binds[0].HostPath); !os.IsNotExist(err) {
					t.Errorf("code file %s still exists (stat err: %v)", spec.Binds[0].HostPath, err)
				}
			}
		})
	}
}

func TestExecuteAlwaysDestroys(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(*fakeRuntime)
	}{
		{"on success", func(f *fakeRuntime) {}},
		{"on wait failure", func(f *fakeRuntime) { f.waitErr = fmt.Errorf("conn reset") }},
		{"on logs failure", func(f *fakeRuntime) { f.logsErr = fmt.Errorf("gone") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newFakeRuntime()
			tt.prepare(rt)

			testExecutor(rt).Execute(context.Background(), Request{Code: "print(1)"})

			if len(rt.created) != 1 || len(rt.destroyed) != 1 {
				t.Errorf("created %d, destroyed %d; want 1 and 1", len(rt.created), len(rt.destroyed))
			}
			if rt.anyRunning() {
				t.Error("an instance was left running after Execute returned")
			}
		})
	}
}

func TestExecuteAppliesDefaultTimeout(t *testing.T) {
	rt := newFakeRuntime()

	cfg := config.SandboxConfig{
		Image:          "datagrep-sandbox:latest",
		DefaultTimeout: 500 * time.Millisecond,
		StopGrace:      time.Second,
	}
	planner := NewPlanner(testDefaults(), "", nil, nil)
	e := New(rt, planner, cfg, nil)

	res := e.Execute(context.Background(), Request{Code: "while True:\n    pass"})

	if res.Status != StatusTimeout {
		t.Errorf("status = %q, want timeout from the default deadline", res.Status)
	}
}

func TestExecuteConcurrentIsolation(t *testing.T) {
	rt := newFakeRuntime()
	rt.runFor = 50 * time.Millisecond
	e := testExecutor(rt)

	type outcome struct {
		res Result
	}
	var fast, slow outcome
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		slow.res = e.Execute(context.Background(), Request{
			Code:    "while True:\n    pass",
			Timeout: 1 * time.Second,
		})
	}()
	go func() {
		defer wg.Done()
		fast.res = e.Execute(context.Background(), Request{
			Code:    `print("fast done")`,
			Timeout: 5 * time.Second,
		})
	}()
	wg.Wait()

	if slow.res.Status != StatusTimeout {
		t.Errorf("slow status = %q, want timeout", slow.res.Status)
	}
	if fast.res.Status != StatusSuccess {
		t.Errorf("fast status = %q, want success", fast.res.Status)
	}
	// Each result reflects only its own instance's output.
	if !strings.Contains(fast.res.Output, "fast done") {
		t.Errorf("fast output = %q, want its own code echoed", fast.res.Output)
	}
	if slow.res.Output != "" {
		t.Errorf("slow output = %q, want empty", slow.res.Output)
	}
	if len(rt.destroyed) != 2 {
		t.Errorf("destroyed %d instances, want 2", len(rt.destroyed))
	}
	if rt.destroyed[0] == rt.destroyed[1] {
		t.Error("both executions destroyed the same handle")
	}
}
