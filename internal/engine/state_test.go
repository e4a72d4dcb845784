package engine

import (
	"testing"

	"github.com/jjbbllkk/acidgen/internal/pattern"
)

func TestSnapshotRoundTrip(t *testing.T) {
	e := New(12345)
	e.ToggleMute(3)
	e.ToggleMute(60)
	e.step = 7
	e.slideActive = true
	e.pitch = 0.5
	e.slideTarget = 0.75
	e.slideRate = 0.0001

	data, err := e.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	restored := New(1)
	if err := restored.Restore(data); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if restored.Seed() != 12345 {
		t.Errorf("seed = %d, want 12345", restored.Seed())
	}
	if restored.Step() != 7 {
		t.Errorf("step = %d, want 7", restored.Step())
	}
	if *restored.Master() != *e.Master() {
		t.Error("restored pattern differs from the original")
	}
	if !restored.Master().Muted[3] || !restored.Master().Muted[60] {
		t.Error("mute flags were not restored")
	}
	if !restored.slideActive {
		t.Error("slide-active flag was not restored")
	}
	if restored.pitch != 0.5 || restored.slideTarget != 0.75 || restored.slideRate != 0.0001 {
		t.Errorf("portamento state = %v/%v/%v, want 0.5/0.75/0.0001",
			restored.pitch, restored.slideTarget, restored.slideRate)
	}
}

func TestRestoreLegacyRegeneratesFromSeed(t *testing.T) {
	// Version 1 predates the pattern snapshot; the pattern must come
	// back deterministically from the stored seed.
	raw := []byte(`{"version":1,"seed":12345,"currentStep":3}`)

	e := New(777)
	if err := e.Restore(raw); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if e.Seed() != 12345 {
		t.Errorf("seed = %d, want 12345", e.Seed())
	}
	if e.Step() != 3 {
		t.Errorf("step = %d, want 3", e.Step())
	}

	want := pattern.NewMaster()
	want.Generate(12345)
	if *e.Master() != *want {
		t.Error("pattern was not regenerated from the stored seed")
	}
}

func TestRestoreMissingSnapshotRegenerates(t *testing.T) {
	// Version 3 but no pattern field: same fallback path.
	raw := []byte(`{"version":3,"seed":555}`)

	e := New(1)
	if err := e.Restore(raw); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	want := pattern.NewMaster()
	want.Generate(555)
	if *e.Master() != *want {
		t.Error("pattern was not regenerated from the stored seed")
	}
}

func TestRestorePartialKeepsDefaults(t *testing.T) {
	e := New(42)
	e.pitch = 0.25

	if err := e.Restore([]byte(`{"version":3}`)); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if e.Seed() != 42 {
		t.Errorf("missing seed overwrote existing value: %d", e.Seed())
	}
	if e.pitch != 0.25 {
		t.Errorf("missing pitch overwrote existing value: %v", e.pitch)
	}
}

func TestRestoreRejectsGarbage(t *testing.T) {
	e := New(1)
	if err := e.Restore([]byte(`{not json`)); err == nil {
		t.Error("expected an error for malformed input")
	}
}
