package docker

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCandidateNetworkNames(t *testing.T) {
	got := candidateNetworkNames("datagrep-network")

	if len(got) < 2 {
		t.Fatalf("expected at least 2 candidates, got %v", got)
	}
	if got[0] != "datagrep-network" {
		t.Errorf("first candidate = %q, want exact name", got[0])
	}
	if got[1] != "datagrep_datagrep-network" {
		t.Errorf("second candidate = %q, want compose-prefixed name", got[1])
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Skip("working directory unavailable")
	}
	want := filepath.Base(wd) + "_datagrep-network"
	if got[len(got)-1] != want {
		t.Errorf("last candidate = %q, want %q", got[len(got)-1], want)
	}
}
