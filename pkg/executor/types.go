package executor

import "time"

// Status is the terminal classification of one execution attempt.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
)

// DatabaseConfig carries the connection parameters exposed to the sandbox
// when the generated code needs database access. Zero-valued fields fall
// back to the service-wide defaults.
type DatabaseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// Request describes one execution: the code to run, the host files it may
// read, optional database connectivity, and the wall-clock budget. It is
// owned exclusively by the orchestrator for the duration of the call and
// never persisted.
type Request struct {
	Code       string
	InputFiles []string
	Database   *DatabaseConfig

	// Timeout bounds the execution. Non-positive values are replaced by
	// the configured default.
	Timeout time.Duration
}

// Result is the normalized outcome returned to the caller. Exactly one of
// the three statuses is set; Error is populated whenever Status is not
// success, and callers never see a raw backend fault.
type Result struct {
	Status Status `json:"status"`

	// Output is the sandbox's combined stdout and stderr, interleaved in
	// arrival order. Empty on error and timeout paths.
	Output string `json:"output"`

	Error string `json:"error,omitempty"`

	// ExecutionTime is wall-clock seconds from the start of the call to
	// the moment the outcome was determined, rounded to two decimals.
	ExecutionTime float64 `json:"execution_time"`

	// Data is the structured value opportunistically recovered from
	// Output; nil when the output was purely textual.
	Data any `json:"result_data,omitempty"`
}
