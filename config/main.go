// Package config holds the automation's tunables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"nyiyui.ca/hato/unten/tal/cars"
	"nyiyui.ca/hato/unten/tal/layout"
	"nyiyui.ca/hato/unten/world"
)

// Seconds is a duration stored as (fractional) seconds.
type Seconds float64

func (s Seconds) Duration() time.Duration {
	return time.Duration(float64(s) * float64(time.Second))
}

type Config struct {
	// DefaultSpeed is the throttle an automated train starts with when it has none saved.
	DefaultSpeed          string `json:"default-speed"`
	DefaultTrackSelection string `json:"default-track-selection"`
	// BulldozeOffendingUnits destroys unautomated trains in an automated train's way.
	BulldozeOffendingUnits bool `json:"bulldoze-offending-units"`
	EnableMapTriggers      bool `json:"enable-map-triggers"`
	// EnableTemplateTriggers is keyed by template type (e.g. TrainStation). Missing types are disabled.
	EnableTemplateTriggers map[string]bool `json:"enable-template-triggers"`
	// MaxConductors caps automated trains that count towards the limit. Negative means unlimited.
	MaxConductors int `json:"max-conductors"`

	DefaultStopDuration Seconds `json:"default-stop-duration"`
	ChillDuration       Seconds `json:"chill-duration"`
	BrakeTolerance      float64 `json:"brake-tolerance"`
	SettleDelayMin      Seconds `json:"settle-delay-min"`
	SettleDelayMax      Seconds `json:"settle-delay-max"`
	SpawnInterval       Seconds `json:"spawn-interval"`
	MaxSpawnedTrains    int     `json:"max-spawned-trains"`
	FixedStep           Seconds `json:"fixed-step"`
	SaveInterval        Seconds `json:"save-interval"`
	SnapshotInterval    Seconds `json:"snapshot-interval"`

	Cars cars.Data `json:"cars"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		DefaultSpeed:           world.FwdHi.String(),
		DefaultTrackSelection:  layout.TrackLeft.String(),
		EnableMapTriggers:      true,
		EnableTemplateTriggers: map[string]bool{},
		MaxConductors:          -1,
		DefaultStopDuration:    30,
		ChillDuration:          3,
		BrakeTolerance:         0.1,
		SettleDelayMin:         1,
		SettleDelayMax:         2,
		SpawnInterval:          30,
		MaxSpawnedTrains:       1,
		FixedStep:              0.02,
		SaveInterval:           10,
		SnapshotInterval:       1,
		Cars:                   cars.Default(),
	}
}

// Load reads a JSON config from path. Fields missing from the file keep their defaults, and a missing file yields Default().
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		zap.S().Infow("no config file, using defaults", "path", path)
		return c, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	err = json.Unmarshal(data, &c)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if len(c.Cars.Kinds) == 0 {
		c.Cars = cars.Default()
	}
	if c.EnableTemplateTriggers == nil {
		c.EnableTemplateTriggers = map[string]bool{}
	}
	c.fixIntervals()
	return c, nil
}

// fixIntervals replaces non-positive intervals with their defaults.
func (c *Config) fixIntervals() {
	d := Default()
	for _, f := range []struct {
		name  string
		value *Seconds
		def   Seconds
	}{
		{"fixed-step", &c.FixedStep, d.FixedStep},
		{"save-interval", &c.SaveInterval, d.SaveInterval},
		{"snapshot-interval", &c.SnapshotInterval, d.SnapshotInterval},
		{"spawn-interval", &c.SpawnInterval, d.SpawnInterval},
	} {
		if *f.value > 0 {
			continue
		}
		zap.S().Errorw("non-positive interval, using default",
			"field", f.name,
			"value", float64(*f.value),
			"default", float64(f.def))
		*f.value = f.def
	}
}

// Save writes c to path as indented JSON.
func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "\t")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// GetDefaultSpeed parses DefaultSpeed, falling back to Fwd_Hi.
func (c Config) GetDefaultSpeed() world.Throttle {
	t, err := world.ParseThrottle(c.DefaultSpeed)
	if err != nil {
		zap.S().Errorw("invalid default-speed, using Fwd_Hi", "error", err)
		return world.FwdHi
	}
	return t
}

// GetDefaultTrackSelection parses DefaultTrackSelection, falling back to Left.
func (c Config) GetDefaultTrackSelection() layout.TrackSelection {
	ts, err := layout.ParseTrackSelection(c.DefaultTrackSelection)
	if err != nil {
		zap.S().Errorw("invalid default-track-selection, using Left", "error", err)
		return layout.TrackLeft
	}
	return ts
}

// TemplateTriggersEnabled reports whether triggers of the named template type are enabled.
func (c Config) TemplateTriggersEnabled(templateType string) bool {
	for k, v := range c.EnableTemplateTriggers {
		if strings.EqualFold(k, templateType) {
			return v
		}
	}
	return false
}

// Unlimited reports whether MaxConductors imposes no cap.
func (c Config) Unlimited() bool { return c.MaxConductors < 0 }
