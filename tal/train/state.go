package train

import (
	"time"

	"nyiyui.ca/hato/unten/sched"
	"nyiyui.ca/hato/unten/tal/trigger"
	"nyiyui.ca/hato/unten/world"
)

// State is a timed state a train is in. A train with no State is running.
//
// SwitchState always runs the old state's exit before the new state's enter.
type State interface {
	Name() string
	// Next is the throttle the train resumes with when the state exits.
	Next() world.Throttle
	SetNext(th world.Throttle)
	enter(t *Train)
	exit(t *Train)
	// cancel drops the state's pending task without exiting.
	cancel()
}

const runningName = "Running"

type timed struct {
	next world.Throttle
	task *sched.Task
}

func (s *timed) Next() world.Throttle { return s.next }

func (s *timed) SetNext(th world.Throttle) { s.next = th }

func (s *timed) cancel() { s.task.Cancel() }

// Braking slows the train until it is near the target speed, then either stops for StopDuration or runs at the next throttle.
type Braking struct {
	timed
	// StopDuration is zero when the train doesn't stop after braking.
	StopDuration time.Duration
}

func NewBraking(next world.Throttle, stopDuration time.Duration) *Braking {
	return &Braking{timed: timed{next: next}, StopDuration: stopDuration}
}

func (b *Braking) Name() string { return "Braking" }

func (b *Braking) stopping() bool { return b.StopDuration > 0 }

func (b *Braking) enter(t *Train) {
	lo, invert := trigger.SpeedLo, trigger.DirectionInvert
	t.SetThrottle(trigger.ApplySpeedAndDirection(t.DepartureThrottle(), &lo, &invert))
	b.task = t.m.s.EveryFixed(func() { b.check(t) })
}

func (b *Braking) check(t *Train) {
	target := b.next
	if b.stopping() {
		target = world.Zero
	}
	if !t.isNearSpeed(target) {
		return
	}
	if b.stopping() {
		t.SwitchState(NewStopped(b.next, b.StopDuration))
		return
	}
	t.SwitchState(nil)
}

func (b *Braking) exit(t *Train) {
	b.cancel()
	t.SetThrottle(b.next)
}

// Stopped holds the train still for Duration.
type Stopped struct {
	timed
	Duration time.Duration
}

func NewStopped(next world.Throttle, d time.Duration) *Stopped {
	return &Stopped{timed: timed{next: next}, Duration: d}
}

func (s *Stopped) Name() string { return "Stopped" }

func (s *Stopped) enter(t *Train) {
	t.SetThrottle(world.Zero)
	s.task = t.m.s.After(s.Duration, func() { t.SwitchState(nil) })
}

func (s *Stopped) exit(t *Train) {
	s.cancel()
	t.SetThrottle(s.next)
}

// Chilling holds a train that is too close to the one ahead of it for Duration.
type Chilling struct {
	timed
	Duration time.Duration
}

func NewChilling(next world.Throttle, d time.Duration) *Chilling {
	return &Chilling{timed: timed{next: next}, Duration: d}
}

func (c *Chilling) Name() string { return "Chilling" }

func (c *Chilling) enter(t *Train) {
	t.SetThrottle(world.Zero)
	c.task = t.m.s.After(c.Duration, func() { t.SwitchState(nil) })
}

func (c *Chilling) exit(t *Train) {
	c.cancel()
	t.SetThrottle(c.next)
}
