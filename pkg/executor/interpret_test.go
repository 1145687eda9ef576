package executor

import (
	"reflect"
	"testing"
)

func TestInterpret(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   any
	}{
		{
			name:   "last line is a JSON object",
			output: "loading data\ncomputing\n{\"a\": 1}\n",
			want:   map[string]any{"a": float64(1)},
		},
		{
			name:   "last line is a JSON array",
			output: "[1, 2, 3]\n",
			want:   []any{float64(1), float64(2), float64(3)},
		},
		{
			name:   "whole output is pretty-printed JSON",
			output: "{\n  \"rows\": 10\n}\n",
			want:   map[string]any{"rows": float64(10)},
		},
		{
			name:   "purely textual output",
			output: "Hello\nprocessed 5 rows\n",
			want:   nil,
		},
		{
			name:   "empty output",
			output: "",
			want:   nil,
		},
		{
			name:   "whitespace only",
			output: "  \n\n  ",
			want:   nil,
		},
		{
			name:   "bare number on last line",
			output: "average salary:\n42.5\n",
			want:   float64(42.5),
		},
		{
			name:   "truncated JSON on last line",
			output: "{\"a\": 1, \"b\":",
			want:   nil,
		},
		{
			name:   "trailing blank lines ignored",
			output: "{\"ok\": true}\n\n\n",
			want:   map[string]any{"ok": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Interpret(tt.output)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Interpret(%q) = %#v, want %#v", tt.output, got, tt.want)
			}
		})
	}
}
