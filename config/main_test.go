package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"nyiyui.ca/hato/unten/sched"
	"nyiyui.ca/hato/unten/tal/layout"
	"nyiyui.ca/hato/unten/world"
)

func TestLoadMissing(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	if !cmp.Equal(c, Default()) {
		t.Fatalf("diff: %s", cmp.Diff(c, Default()))
	}
}

func TestLoadPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"max-conductors": 2, "default-speed": "Fwd_Med", "enable-template-triggers": {"TrainStation": true}, "unknown-field": 1}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %s", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	if c.MaxConductors != 2 || c.Unlimited() {
		t.Fatalf("max-conductors %d", c.MaxConductors)
	}
	if got := c.GetDefaultSpeed(); got != world.FwdMed {
		t.Fatalf("default speed %s", got)
	}
	if got := c.GetDefaultTrackSelection(); got != layout.TrackLeft {
		t.Fatalf("default track selection %s", got)
	}
	if !c.TemplateTriggersEnabled("trainstation") || c.TemplateTriggersEnabled("LootTunnel") {
		t.Fatal("template trigger enablement wrong")
	}
	if c.DefaultStopDuration.Duration() != 30*time.Second {
		t.Fatalf("stop duration %s", c.DefaultStopDuration.Duration())
	}
	if len(c.Cars.Kinds) == 0 {
		t.Fatal("cars not defaulted")
	}
}

func TestInvalidEnums(t *testing.T) {
	c := Default()
	c.DefaultSpeed = "Warp"
	c.DefaultTrackSelection = "Up"
	if got := c.GetDefaultSpeed(); got != world.FwdHi {
		t.Fatalf("default speed %s", got)
	}
	if got := c.GetDefaultTrackSelection(); got != layout.TrackLeft {
		t.Fatalf("default track selection %s", got)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	c := Default()
	c.BulldozeOffendingUnits = true
	if err := c.Save(path); err != nil {
		t.Fatalf("Save: %s", err)
	}
	c2, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	if !c2.BulldozeOffendingUnits {
		t.Fatal("bulldoze not saved")
	}
}

func TestLoadNonPositiveIntervals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"save-interval": 0, "fixed-step": 0, "snapshot-interval": -1, "spawn-interval": 0, "chill-duration": 5}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %s", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	d := Default()
	if c.FixedStep != d.FixedStep || c.SaveInterval != d.SaveInterval || c.SnapshotInterval != d.SnapshotInterval || c.SpawnInterval != d.SpawnInterval {
		t.Fatalf("intervals not defaulted: %+v", c)
	}
	if c.ChillDuration != 5 {
		t.Fatalf("chill-duration %v", c.ChillDuration)
	}

	s := sched.New(c.FixedStep.Duration())
	saves := 0
	s.Every(c.SaveInterval.Duration(), c.SaveInterval.Duration(), func() { saves++ })
	s.Every(0, c.SnapshotInterval.Duration(), func() {})
	s.EveryFixed(func() {})
	s.Advance(25 * time.Second)
	if saves != 2 {
		t.Fatalf("expected 2 saves, got %d", saves)
	}
}
