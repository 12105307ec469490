package trigger

import (
	"fmt"
	"strings"

	"nyiyui.ca/hato/unten/tal/layout"
	"nyiyui.ca/hato/unten/world"
)

type SpeedInstruction int

const (
	SpeedZero SpeedInstruction = iota
	SpeedLo
	SpeedMed
	SpeedHi
)

var speedNames = []string{"Zero", "Lo", "Med", "Hi"}

func (s SpeedInstruction) String() string {
	if s < 0 || int(s) >= len(speedNames) {
		return fmt.Sprintf("SpeedInstruction(%d)", int(s))
	}
	return speedNames[s]
}

type DirectionInstruction int

const (
	DirectionFwd DirectionInstruction = iota
	DirectionRev
	DirectionInvert
)

var directionNames = []string{"Fwd", "Rev", "Invert"}

func (d DirectionInstruction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return fmt.Sprintf("DirectionInstruction(%d)", int(d))
	}
	return directionNames[d]
}

type TrackSelectionInstruction int

const (
	TrackSelectionDefault TrackSelectionInstruction = iota
	TrackSelectionLeft
	TrackSelectionRight
	TrackSelectionSwap
)

var trackSelectionNames = []string{"Default", "Left", "Right", "Swap"}

func (t TrackSelectionInstruction) String() string {
	if t < 0 || int(t) >= len(trackSelectionNames) {
		return fmt.Sprintf("TrackSelectionInstruction(%d)", int(t))
	}
	return trackSelectionNames[t]
}

func parseEnum(names []string, s string) (int, error) {
	for i, name := range names {
		if strings.EqualFold(name, s) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown token %q (want one of %s)", s, strings.Join(names, ", "))
}

func ParseSpeed(s string) (SpeedInstruction, error) {
	i, err := parseEnum(speedNames, s)
	return SpeedInstruction(i), err
}

func ParseDirection(s string) (DirectionInstruction, error) {
	i, err := parseEnum(directionNames, s)
	return DirectionInstruction(i), err
}

func ParseTrackSelection(s string) (TrackSelectionInstruction, error) {
	i, err := parseEnum(trackSelectionNames, s)
	return TrackSelectionInstruction(i), err
}

func abs(t world.Throttle) world.Throttle {
	if t < 0 {
		return -t
	}
	return t
}

// ApplySpeed keeps throttle's direction (zero counts as forward) and replaces its magnitude.
func ApplySpeed(throttle world.Throttle, speed SpeedInstruction) world.Throttle {
	sign := world.Throttle(1)
	if throttle < 0 {
		sign = -1
	}
	return sign * world.Throttle(speed)
}

func ApplyDirection(throttle world.Throttle, direction DirectionInstruction) world.Throttle {
	switch direction {
	case DirectionFwd:
		return abs(throttle)
	case DirectionRev:
		return -abs(throttle)
	case DirectionInvert:
		return -throttle
	}
	return throttle
}

// ApplySpeedAndDirection applies the optional speed, then the optional direction.
func ApplySpeedAndDirection(throttle world.Throttle, speed *SpeedInstruction, direction *DirectionInstruction) world.Throttle {
	if speed != nil {
		throttle = ApplySpeed(throttle, *speed)
	}
	if direction != nil {
		throttle = ApplyDirection(throttle, *direction)
	}
	return throttle
}

// ApplyTrackSelection applies an optional instruction to the current selection.
func ApplyTrackSelection(current layout.TrackSelection, instr *TrackSelectionInstruction) layout.TrackSelection {
	if instr == nil {
		return current
	}
	switch *instr {
	case TrackSelectionDefault:
		return layout.TrackDefault
	case TrackSelectionLeft:
		return layout.TrackLeft
	case TrackSelectionRight:
		return layout.TrackRight
	case TrackSelectionSwap:
		return Swap(current)
	}
	return current
}

// Swap exchanges left and right, leaving Default alone.
func Swap(ts layout.TrackSelection) layout.TrackSelection {
	switch ts {
	case layout.TrackLeft:
		return layout.TrackRight
	case layout.TrackRight:
		return layout.TrackLeft
	}
	return ts
}
