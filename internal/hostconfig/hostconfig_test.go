package hostconfig

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsZeroState(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Applied {
		t.Fatalf("Applied = true, want false for missing file")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	want := &State{
		TunName: "tun0",
		FWMark:  19988,
		Applied: true,
		Routes:  []string{"10.10.0.1/32", "10.10.0.2/32"},
	}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.TunName != want.TunName || got.FWMark != want.FWMark || got.Applied != want.Applied {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
	if len(got.Routes) != len(want.Routes) {
		t.Fatalf("routes len = %d, want %d", len(got.Routes), len(want.Routes))
	}
}

func TestClearIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	if err := Clear(path); err != nil {
		t.Fatalf("Clear on missing file: %v", err)
	}
	if err := Save(path, &State{Applied: true}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := Clear(path); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := Clear(path); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}
