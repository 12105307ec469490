package trigger

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"nyiyui.ca/hato/unten/tal/cars"
	"nyiyui.ca/hato/unten/tal/layout"
	"nyiyui.ca/hato/unten/world"
)

func sp(s SpeedInstruction) *SpeedInstruction { return &s }

func dp(d DirectionInstruction) *DirectionInstruction { return &d }

func tp(t TrackSelectionInstruction) *TrackSelectionInstruction { return &t }

func TestApplySpeedAndDirection(t *testing.T) {
	type testCase struct {
		from      world.Throttle
		speed     *SpeedInstruction
		direction *DirectionInstruction
		expected  world.Throttle
	}
	testCases := []testCase{
		{world.FwdLo, sp(SpeedHi), nil, world.FwdHi},
		{world.RevLo, sp(SpeedMed), nil, world.RevMed},
		{world.Zero, sp(SpeedLo), nil, world.FwdLo},
		{world.FwdMed, sp(SpeedZero), nil, world.Zero},
		{world.FwdHi, nil, dp(DirectionRev), world.RevHi},
		{world.RevMed, nil, dp(DirectionFwd), world.FwdMed},
		{world.RevMed, nil, dp(DirectionInvert), world.FwdMed},
		{world.FwdHi, sp(SpeedLo), dp(DirectionInvert), world.RevLo},
		{world.Zero, nil, dp(DirectionRev), world.Zero},
		{world.RevHi, nil, nil, world.RevHi},
	}
	for i, tc := range testCases {
		got := ApplySpeedAndDirection(tc.from, tc.speed, tc.direction)
		if got != tc.expected {
			t.Fatalf("case %d: expected %s, got %s", i, tc.expected, got)
		}
	}
}

func TestApplyTrackSelection(t *testing.T) {
	type testCase struct {
		current  layout.TrackSelection
		instr    *TrackSelectionInstruction
		expected layout.TrackSelection
	}
	testCases := []testCase{
		{layout.TrackLeft, nil, layout.TrackLeft},
		{layout.TrackLeft, tp(TrackSelectionDefault), layout.TrackDefault},
		{layout.TrackDefault, tp(TrackSelectionRight), layout.TrackRight},
		{layout.TrackLeft, tp(TrackSelectionSwap), layout.TrackRight},
		{layout.TrackRight, tp(TrackSelectionSwap), layout.TrackLeft},
		{layout.TrackDefault, tp(TrackSelectionSwap), layout.TrackDefault},
	}
	for i, tc := range testCases {
		got := ApplyTrackSelection(tc.current, tc.instr)
		if got != tc.expected {
			t.Fatalf("case %d: expected %s, got %s", i, tc.expected, got)
		}
	}
}

func TestInstructions(t *testing.T) {
	d := &Definition{Brake: true, Direction: "sideways", TrackSelection: "swap", StopDuration: 5}
	in := d.Instructions()
	if in.Speed == nil || *in.Speed != SpeedZero {
		t.Fatalf("brake without speed: expected Zero, got %v", in.Speed)
	}
	if in.Direction != nil {
		t.Fatalf("unknown direction: expected absent, got %s", *in.Direction)
	}
	if in.TrackSelection == nil || *in.TrackSelection != TrackSelectionSwap {
		t.Fatalf("track selection: got %v", in.TrackSelection)
	}
	if in.DepartureSpeed != SpeedMed {
		t.Fatalf("departure speed: expected Med, got %s", in.DepartureSpeed)
	}
	if in.StopDuration.Seconds() != 5 {
		t.Fatalf("stop duration: got %s", in.StopDuration)
	}

	d = &Definition{Speed: "lo", DepartureSpeed: "Hi"}
	in = d.Instructions()
	if in.Speed == nil || *in.Speed != SpeedLo || in.DepartureSpeed != SpeedHi {
		t.Fatalf("got %+v", in)
	}
	if in.StopDuration != 0 {
		t.Fatalf("stop duration: expected unset, got %s", in.StopDuration)
	}
}

func TestDefinitionJSON(t *testing.T) {
	var d Definition
	err := json.Unmarshal([]byte(`{"id": 3, "spawner": true, "wagons": ["WagonA", "Caboose"], "speed": "Hi"}`), &d)
	if err != nil {
		t.Fatalf("Unmarshal: %s", err)
	}
	if !d.Enabled {
		t.Fatalf("Enabled should default to true")
	}
	expected := []string{cars.WorkcartAlias, "WagonA", "Caboose"}
	if diff := cmp.Diff(expected, d.Units); diff != "" {
		t.Fatalf("units: diff: %s", diff)
	}

	data, err := json.Marshal(&d)
	if err != nil {
		t.Fatalf("Marshal: %s", err)
	}
	var d2 Definition
	if err := json.Unmarshal(data, &d2); err != nil {
		t.Fatalf("Unmarshal: %s", err)
	}
	if diff := cmp.Diff(d.Units, d2.Units); diff != "" {
		t.Fatalf("round trip: diff: %s", diff)
	}

	var d3 Definition
	if err := json.Unmarshal([]byte(`{"id": 1, "enabled": false, "template": "TrainStation"}`), &d3); err != nil {
		t.Fatalf("Unmarshal: %s", err)
	}
	if d3.Enabled || d3.Namespace() != NamespaceTemplate {
		t.Fatalf("got %+v", d3)
	}
}

func TestColor(t *testing.T) {
	type testCase struct {
		d        Definition
		route    string
		expected string
	}
	testCases := []testCase{
		{Definition{Enabled: false}, "", "#808080"},
		{Definition{Enabled: true, Route: "a"}, "b", "#808080"},
		{Definition{Enabled: true, Destroy: true}, "", "#ff0000"},
		{Definition{Enabled: true, Units: []string{"Workcart"}}, "", "#00ffbf"},
		{Definition{Enabled: true, AddConductor: true}, "", "#00ffff"},
		{Definition{Enabled: true, Speed: "Zero"}, "", "#ffffff"},
		{Definition{Enabled: true, TrackSelection: "Left"}, "", "#ff00ff"},
		{Definition{Enabled: true, Direction: "Fwd", Speed: "Hi"}, "", "#00ff00"},
		{Definition{Enabled: true, Direction: "Rev", Speed: "Hi"}, "", "#ff0000"},
		{Definition{Enabled: true, Brake: true}, "", "#ff8000"},
	}
	for i, tc := range testCases {
		got := tc.d.Color(tc.route).Hex()
		if got != tc.expected {
			t.Fatalf("case %d: expected %s, got %s", i, tc.expected, got)
		}
	}
}
