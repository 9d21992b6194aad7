package buildinfo

import (
	"runtime"
	"testing"
)

func TestResolve_OSMatchesRuntime(t *testing.T) {
	id := Resolve()
	if id.OS != runtime.GOOS {
		t.Errorf("OS = %q, want %q", id.OS, runtime.GOOS)
	}
}

func TestResolve_NeverEmpty(t *testing.T) {
	id := Resolve()
	if id.Type == "" {
		t.Errorf("Type is empty")
	}
	if id.ID == "" {
		t.Errorf("ID is empty")
	}
}

func TestResolve_Cached(t *testing.T) {
	a := Resolve()
	b := Resolve()
	if a != b {
		t.Errorf("Resolve not stable: %+v vs %+v", a, b)
	}
}
