// Package trigger holds the user-placed trigger points that instruct automated trains, and the spawners that create them.
package trigger

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"nyiyui.ca/hato/unten"
	"nyiyui.ca/hato/unten/tal/cars"
)

// Namespace separates trigger IDs: map triggers and template triggers are numbered independently.
type Namespace string

const (
	NamespaceMap      Namespace = "map"
	NamespaceTemplate Namespace = "template"
)

// Definition is the persisted form of a trigger. Instruction tokens are kept as strings so that data written by a newer version survives a round trip.
type Definition struct {
	ID int `json:"id"`
	// Position is in world space for map triggers, and relative to the template occurrence otherwise.
	Position      unten.Vec3 `json:"position"`
	RotationAngle float64    `json:"rotation-angle,omitempty"`
	Enabled       bool       `json:"enabled"`
	// Template is the template type this trigger belongs to, or empty for a map trigger.
	Template string `json:"template,omitempty"`
	Route    string `json:"route,omitempty"`

	AddConductor   bool     `json:"add-conductor,omitempty"`
	Brake          bool     `json:"brake,omitempty"`
	Destroy        bool     `json:"destroy,omitempty"`
	Speed          string   `json:"speed,omitempty"`
	DepartureSpeed string   `json:"departure-speed,omitempty"`
	Direction      string   `json:"direction,omitempty"`
	TrackSelection string   `json:"track-selection,omitempty"`
	StopDuration   float64  `json:"stop-duration,omitempty"`
	Commands       []string `json:"commands,omitempty"`
	// Units lists car aliases to spawn, front first. A non-empty list makes the trigger a spawner.
	Units []string `json:"units,omitempty"`

	instr *Instructions
}

type definitionJSON Definition

// UnmarshalJSON defaults Enabled to true and converts fields written by older versions.
func (d *Definition) UnmarshalJSON(data []byte) error {
	raw := struct {
		*definitionJSON
		Spawner bool     `json:"spawner"`
		Wagons  []string `json:"wagons"`
	}{definitionJSON: (*definitionJSON)(d)}
	d.Enabled = true
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Spawner && len(d.Units) == 0 {
		d.Units = []string{cars.WorkcartAlias}
		d.Units = append(d.Units, raw.Wagons...)
	}
	d.instr = nil
	return nil
}

func (d *Definition) Namespace() Namespace {
	if d.Template == "" {
		return NamespaceMap
	}
	return NamespaceTemplate
}

// IsSpawner reports whether the trigger spawns trains.
func (d *Definition) IsSpawner() bool { return len(d.Units) > 0 }

// StartsAutomation reports whether a train without a conductor entering the trigger is automated.
func (d *Definition) StartsAutomation() bool { return d.AddConductor || d.IsSpawner() }

// MatchesRoute reports whether a train on route reacts to the trigger. A trigger without a route matches every train.
func (d *Definition) MatchesRoute(route string) bool {
	return d.Route == "" || strings.EqualFold(d.Route, route)
}

// Clone returns a deep copy of d.
func (d *Definition) Clone() *Definition {
	c := *d
	c.Commands = append([]string(nil), d.Commands...)
	c.Units = append([]string(nil), d.Units...)
	c.instr = nil
	return &c
}

// Instructions is the parsed form of a Definition's instruction tokens. Absent instructions are nil.
type Instructions struct {
	Speed          *SpeedInstruction
	DepartureSpeed SpeedInstruction
	Direction      *DirectionInstruction
	TrackSelection *TrackSelectionInstruction
	// StopDuration is zero when the trigger doesn't set one.
	StopDuration time.Duration
	AddConductor bool
	Brake        bool
	Destroy      bool
	Commands     []string
}

// Instructions parses the instruction tokens of d. Unknown tokens are logged and treated as absent.
func (d *Definition) Instructions() *Instructions {
	if d.instr != nil {
		return d.instr
	}
	in := &Instructions{
		DepartureSpeed: SpeedMed,
		AddConductor:   d.AddConductor,
		Brake:          d.Brake,
		Destroy:        d.Destroy,
		Commands:       d.Commands,
	}
	if d.StopDuration > 0 {
		in.StopDuration = time.Duration(d.StopDuration * float64(time.Second))
	}
	if d.Speed != "" {
		s, err := ParseSpeed(d.Speed)
		if err != nil {
			d.logInvalid("speed", err)
		} else {
			in.Speed = &s
		}
	}
	if in.Speed == nil && d.Brake {
		s := SpeedZero
		in.Speed = &s
	}
	if d.DepartureSpeed != "" {
		s, err := ParseSpeed(d.DepartureSpeed)
		if err != nil {
			d.logInvalid("departure-speed", err)
		} else {
			in.DepartureSpeed = s
		}
	}
	if d.Direction != "" {
		dir, err := ParseDirection(d.Direction)
		if err != nil {
			d.logInvalid("direction", err)
		} else {
			in.Direction = &dir
		}
	}
	if d.TrackSelection != "" {
		ts, err := ParseTrackSelection(d.TrackSelection)
		if err != nil {
			d.logInvalid("track-selection", err)
		} else {
			in.TrackSelection = &ts
		}
	}
	d.instr = in
	return in
}

func (d *Definition) logInvalid(field string, err error) {
	zap.S().Errorw("invalid trigger instruction", "namespace", d.Namespace(), "id", d.ID, "field", field, "err", err)
}

// RGB is a colour with components in [0, 1].
type RGB struct {
	R, G, B float64
}

func (c RGB) Hex() string {
	const digits = "0123456789abcdef"
	b := []byte{'#'}
	for _, v := range []float64{c.R, c.G, c.B} {
		n := int(math.Round(math.Max(0, math.Min(1, v)) * 255))
		b = append(b, digits[n>>4], digits[n&0xf])
	}
	return string(b)
}

func hsv(h, s, v float64) RGB {
	h = math.Mod(h, 1) * 6
	i := math.Floor(h)
	f := h - i
	p, q, t := v*(1-s), v*(1-s*f), v*(1-s*(1-f))
	switch int(i) {
	case 0:
		return RGB{v, t, p}
	case 1:
		return RGB{q, v, p}
	case 2:
		return RGB{p, v, t}
	case 3:
		return RGB{p, q, v}
	case 4:
		return RGB{t, p, v}
	default:
		return RGB{v, p, q}
	}
}

var (
	colorGrey    = RGB{0.5, 0.5, 0.5}
	colorRed     = RGB{1, 0, 0}
	colorSpawner = RGB{0, 1, 0.75}
	colorCyan    = RGB{0, 1, 1}
	colorWhite   = RGB{1, 1, 1}
	colorMagenta = RGB{1, 0, 1}
)

// Color is the colour the trigger is drawn with, for a viewer following route.
func (d *Definition) Color(route string) RGB {
	if !d.Enabled || (route != "" && !d.MatchesRoute(route)) {
		return colorGrey
	}
	if d.Destroy {
		return colorRed
	}
	if d.IsSpawner() {
		return colorSpawner
	}
	if d.AddConductor {
		return colorCyan
	}
	in := d.Instructions()
	if d.Brake {
		sat := 0.6
		switch *in.Speed {
		case SpeedZero:
			sat = 1
		case SpeedLo:
			sat = 0.8
		}
		return hsv(0.5/6, sat, 1)
	}
	if in.Speed != nil && *in.Speed == SpeedZero {
		return colorWhite
	}
	if in.Speed == nil && in.Direction == nil && in.TrackSelection != nil {
		return colorMagenta
	}
	hue := 1.0 / 6
	if in.Direction != nil {
		switch *in.Direction {
		case DirectionFwd:
			hue = 1.0 / 3
		case DirectionRev:
			hue = 0
		case DirectionInvert:
			hue = 0.5 / 6
		}
	}
	sat := 1.0
	if in.Speed != nil {
		switch *in.Speed {
		case SpeedMed:
			sat = 0.8
		case SpeedLo:
			sat = 0.6
		}
	}
	return hsv(hue, sat, 1)
}
