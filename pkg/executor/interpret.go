package executor

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// Interpret attempts to recover a structured value from captured text
// output. The last non-empty line is tried as a self-contained JSON value
// first (generated code prints a final JSON line by convention when
// structured results are wanted), then the whole output. A nil return is
// the normal outcome for purely textual output, not an error.
func Interpret(output string) any {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return nil
	}

	lines := strings.Split(trimmed, "\n")
	last := strings.TrimSpace(lines[len(lines)-1])

	var v any
	if err := json.Unmarshal([]byte(last), &v); err == nil {
		return v
	}
	if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
		return v
	}

	// A line that opens like JSON but fails to parse is worth a trace:
	// it usually means the generated code truncated its final print.
	if strings.HasPrefix(last, "{") || strings.HasPrefix(last, "[") {
		slog.Debug("output ends with a JSON-like line that did not parse", "line_len", len(last))
	}
	return nil
}
