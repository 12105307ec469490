package train

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"nyiyui.ca/hato/unten/config"
	"nyiyui.ca/hato/unten/tal/layout"
	"nyiyui.ca/hato/unten/tal/trigger"
	"nyiyui.ca/hato/unten/world"
)

func TestStopTrigger(t *testing.T) {
	f := newFixture(t, nil)
	tr := f.compose(t, f.spawn(t, "Workcart", 10, true), nil)
	require.Equal(t, world.FwdHi, tr.Throttle())

	tr.HandleTrigger(&trigger.Definition{Speed: "Zero", StopDuration: 10, DepartureSpeed: "Hi"})
	require.Equal(t, "Stopped", tr.StateName())
	require.Equal(t, world.Zero, tr.Throttle())
	require.Equal(t, world.FwdHi, tr.DepartureThrottle())

	f.s.Advance(9 * time.Second)
	require.Equal(t, "Stopped", tr.StateName())
	f.s.Advance(2 * time.Second)
	require.Equal(t, runningName, tr.StateName())
	require.Equal(t, world.FwdHi, tr.Throttle())
}

func TestStopDefaults(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.DefaultStopDuration = 20 })
	tr := f.compose(t, f.spawn(t, "Workcart", 10, true), &UnitData{Throttle: world.RevHi})
	tr.HandleTrigger(&trigger.Definition{Speed: "Zero"})
	f.s.Advance(19 * time.Second)
	require.Equal(t, "Stopped", tr.StateName())
	f.s.Advance(time.Second)
	require.Equal(t, runningName, tr.StateName())
	// departure speed defaults to Med and keeps the direction
	require.Equal(t, world.RevMed, tr.Throttle())
}

func TestBrakeToSpeed(t *testing.T) {
	f := newFixture(t, nil)
	f.simulate()
	lead := f.spawn(t, "Workcart", 10, true)
	tr := f.compose(t, lead, nil)
	f.s.Advance(4 * time.Second)
	require.InDelta(t, 12, lead.TrackSpeed, 1e-9)

	tr.HandleTrigger(&trigger.Definition{Brake: true, Speed: "Lo"})
	require.Equal(t, "Braking", tr.StateName())
	require.Equal(t, world.RevLo, tr.Throttle())
	require.Equal(t, world.FwdLo, tr.DepartureThrottle())

	f.s.Advance(time.Second)
	require.Equal(t, "Braking", tr.StateName())
	f.s.Advance(2 * time.Second)
	require.Equal(t, runningName, tr.StateName())
	require.Equal(t, world.FwdLo, tr.Throttle())
	require.InDelta(t, 2.4, lead.TrackSpeed, 0.2)
}

func TestBrakeToStop(t *testing.T) {
	f := newFixture(t, nil)
	f.simulate()
	lead := f.spawn(t, "Workcart", 10, true)
	tr := f.compose(t, lead, nil)
	f.s.Advance(4 * time.Second)

	tr.HandleTrigger(&trigger.Definition{Brake: true, StopDuration: 5, DepartureSpeed: "Hi"})
	require.Equal(t, "Braking", tr.StateName())
	f.s.Advance(4 * time.Second)
	require.Equal(t, "Stopped", tr.StateName())
	require.Equal(t, world.Zero, tr.Throttle())
	require.InDelta(t, 0, lead.TrackSpeed, 1e-9)
	f.s.Advance(5 * time.Second)
	require.Equal(t, runningName, tr.StateName())
	require.Equal(t, world.FwdHi, tr.Throttle())
}

func TestPendingThrottle(t *testing.T) {
	f := newFixture(t, nil)
	tr := f.compose(t, f.spawn(t, "Workcart", 10, true), nil)
	tr.HandleTrigger(&trigger.Definition{Speed: "Zero", StopDuration: 10})
	tr.HandleTrigger(&trigger.Definition{Speed: "Lo", Direction: "Rev"})
	require.Equal(t, "Stopped", tr.StateName())
	require.Equal(t, world.Zero, tr.Throttle())
	require.Equal(t, world.RevLo, tr.DepartureThrottle())
	f.s.Advance(10 * time.Second)
	require.Equal(t, world.RevLo, tr.Throttle())

	tr.HandleTrigger(&trigger.Definition{Direction: "Invert", TrackSelection: "Swap"})
	require.Equal(t, world.FwdLo, tr.Throttle())
	require.Equal(t, layout.TrackRight, tr.TrackSelection())
}

func TestLiveness(t *testing.T) {
	defs := []trigger.Definition{
		{Brake: true},
		{Brake: true, Speed: "Lo"},
		{Brake: true, Speed: "Med", Direction: "Rev"},
		{Speed: "Zero", StopDuration: 45},
		{Speed: "Zero"},
	}
	for i, d := range defs {
		d := d
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			f := newFixture(t, nil)
			f.simulate()
			tr := f.compose(t, f.spawn(t, "Workcart", 10, true), nil)
			f.s.Advance(2 * time.Second)
			tr.HandleTrigger(&d)
			require.NotNil(t, tr.State())
			f.s.Advance(time.Minute)
			require.Equal(t, runningName, tr.StateName())
		})
	}
	t.Run("chilling", func(t *testing.T) {
		f := newFixture(t, nil)
		tr := f.compose(t, f.spawn(t, "Workcart", 10, true), nil)
		tr.StartChilling()
		require.Equal(t, "Chilling", tr.StateName())
		require.Equal(t, world.Zero, tr.Throttle())
		f.s.Advance(3 * time.Second)
		require.Equal(t, runningName, tr.StateName())
		require.Equal(t, world.FwdHi, tr.Throttle())
	})
}

func TestRouteFilter(t *testing.T) {
	f := newFixture(t, nil)
	a := f.compose(t, f.spawn(t, "Workcart", 10, true), &UnitData{Route: "A", Throttle: world.FwdHi})
	none := f.compose(t, f.spawn(t, "Workcart", 60, true), nil)

	b := &trigger.Definition{Route: "B", Speed: "Lo"}
	a.HandleTrigger(b)
	none.HandleTrigger(b)
	require.Equal(t, world.FwdHi, a.Throttle())
	require.Equal(t, world.FwdHi, none.Throttle())

	a.HandleTrigger(&trigger.Definition{Route: "a", Speed: "Med"})
	require.Equal(t, world.FwdMed, a.Throttle())
	a.HandleTrigger(&trigger.Definition{Speed: "Lo"})
	require.Equal(t, world.FwdLo, a.Throttle())
}

func TestCommands(t *testing.T) {
	f := newFixture(t, nil)
	lead := f.spawn(t, "Workcart", 10, true)
	tr := f.compose(t, lead, nil)
	tr.HandleTrigger(&trigger.Definition{Commands: []string{"say $ID arrived", "  ", "horn $id $id"}})
	id := fmt.Sprint(uint64(lead.ID))
	require.Equal(t, cmdRecorder{"say " + id + " arrived", "horn " + id + " " + id}, *f.cmds)
	require.Equal(t, world.FwdHi, tr.Throttle())
}

func TestDestroyTrigger(t *testing.T) {
	f := newFixture(t, nil)
	lead := f.spawn(t, "Workcart", 40, true)
	wagon := f.spawn(t, "WagonA", 40-3.7-8, true)
	require.NoError(t, f.w.Couple(lead.ID, world.Rear, wagon.ID, world.Front))
	tr := f.compose(t, lead, nil)
	tr.HandleTrigger(&trigger.Definition{Destroy: true, Speed: "Lo"})
	require.NotNil(t, f.w.Get(lead.ID))
	f.s.Advance(0)
	require.Nil(t, f.w.Get(lead.ID))
	require.Nil(t, f.w.Get(wagon.ID))
	require.True(t, tr.Killed())
	require.Equal(t, 1, f.stopped)
}
