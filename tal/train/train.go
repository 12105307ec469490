package train

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nyiyui.ca/hato/unten"
	"nyiyui.ca/hato/unten/sched"
	"nyiyui.ca/hato/unten/tal/layout"
	"nyiyui.ca/hato/unten/tal/trigger"
	"nyiyui.ca/hato/unten/world"
)

// idPattern is the placeholder in trigger commands replaced with the lead unit's ID.
var idPattern = regexp.MustCompile(`(?i)\$id`)

type engine struct {
	id unten.UnitID
	// reverse is whether the engine faces against the lead.
	// It is judged by the dot product of forward vectors, so it may be wrong on tight curves.
	reverse bool
}

// Train is an automated composition of coupled rail units.
type Train struct {
	ID uuid.UUID
	m  *Manager
	// units is in coupling order.
	units   []unten.UnitID
	engines []engine
	// counts is whether the train counts towards the conductor limit.
	counts bool
	// spawned is whether a spawner created the lead; spawned trains aren't persisted.
	spawned        bool
	data           UnitData
	trackSelection layout.TrackSelection
	state          State
	zones          []*world.Zone
	// collided tracks the units each zone has already reacted to.
	collided   map[world.ZoneID]map[unten.UnitID]struct{}
	settle     *sched.Task
	destroying bool
	killed     bool
}

// Lead returns the primary engine's ID.
func (t *Train) Lead() unten.UnitID { return t.engines[0].id }

func (t *Train) lead() *world.Unit { return t.m.w.Get(t.Lead()) }

// Units returns the member units in coupling order.
func (t *Train) Units() []unten.UnitID { return append([]unten.UnitID(nil), t.units...) }

func (t *Train) Route() string { return t.data.Route }

func (t *Train) Counts() bool { return t.counts }

func (t *Train) Killed() bool { return t.killed }

func (t *Train) TrackSelection() layout.TrackSelection { return t.trackSelection }

// State returns the active timed state, or nil while running.
func (t *Train) State() State { return t.state }

func (t *Train) StateName() string {
	if t.state == nil {
		return runningName
	}
	return t.state.Name()
}

// SetThrottle sets every engine's throttle, inverting it for engines that face against the lead.
func (t *Train) SetThrottle(th world.Throttle) {
	for _, e := range t.engines {
		u := t.m.w.Get(e.id)
		if u == nil {
			continue
		}
		if e.reverse {
			u.Throttle = -th
		} else {
			u.Throttle = th
		}
	}
}

// Throttle returns the lead's current throttle.
func (t *Train) Throttle() world.Throttle {
	if l := t.lead(); l != nil {
		return l.Throttle
	}
	return world.Zero
}

// SetTrackSelection sets every engine's track selection, swapping left and right for engines that face against the lead.
func (t *Train) SetTrackSelection(ts layout.TrackSelection) {
	t.trackSelection = ts
	for _, e := range t.engines {
		u := t.m.w.Get(e.id)
		if u == nil {
			continue
		}
		if e.reverse {
			u.TrackSelection = trigger.Swap(ts)
		} else {
			u.TrackSelection = ts
		}
	}
}

// DepartureThrottle is the throttle the train wants to run at, ignoring braking, stops and chilling.
func (t *Train) DepartureThrottle() world.Throttle {
	if t.state != nil {
		return t.state.Next()
	}
	return t.Throttle()
}

// Forward is the direction the train wants to travel in.
func (t *Train) Forward() unten.Vec3 {
	l := t.lead()
	if l == nil {
		return unten.Vec3{}
	}
	f := t.m.w.Forward(l)
	if t.DepartureThrottle() < 0 {
		return f.Neg()
	}
	return f
}

// SwitchState exits the current state (if any), then enters s. A nil s means running.
func (t *Train) SwitchState(s State) {
	if t.killed {
		return
	}
	if old := t.state; old != nil {
		old.exit(t)
	}
	t.state = s
	if s != nil {
		s.enter(t)
	}
	zap.S().Debugw("train state", "train", t.ID, "state", t.StateName())
}

// StartChilling holds the train for a short while, resuming at its departure throttle.
func (t *Train) StartChilling() {
	t.SwitchState(NewChilling(t.DepartureThrottle(), t.m.conf.Config.ChillDuration.Duration()))
}

// DepartEarly ends any braking, stop or chill immediately.
func (t *Train) DepartEarly() {
	t.SwitchState(nil)
}

func (t *Train) isNearSpeed(target world.Throttle) bool {
	l := t.lead()
	if l == nil {
		return true
	}
	leeway := t.m.conf.Config.BrakeTolerance
	current := t.m.w.Forward(l).Dot(t.m.w.Velocity(l))
	desired := l.Model.MaxSpeed * target.Fraction()
	if desired < 0 || (desired == 0 && l.Throttle.Fraction() > 0) {
		return current+leeway >= desired
	}
	return current-leeway <= desired
}

func (t *Train) stopDuration(in *trigger.Instructions) time.Duration {
	if in.StopDuration > 0 {
		return in.StopDuration
	}
	return t.m.conf.Config.DefaultStopDuration.Duration()
}

// HandleTrigger applies a trigger's instructions to the train, unless the trigger is for a different route.
func (t *Train) HandleTrigger(d *trigger.Definition) {
	if t.killed || !d.MatchesRoute(t.data.Route) {
		return
	}
	in := d.Instructions()
	t.runCommands(in.Commands)
	if in.Destroy {
		zap.S().Warnw("destroying train as instructed by trigger", "train", t.ID, "trigger", d.ID)
		t.scheduleDestroy()
		return
	}
	t.SetTrackSelection(trigger.ApplyTrackSelection(t.trackSelection, in.TrackSelection))

	departure := t.DepartureThrottle()
	newDeparture := trigger.ApplySpeedAndDirection(departure, &in.DepartureSpeed, in.Direction)
	if in.Brake {
		if *in.Speed == trigger.SpeedZero {
			t.SwitchState(NewBraking(newDeparture, t.stopDuration(in)))
			return
		}
		t.SwitchState(NewBraking(trigger.ApplySpeedAndDirection(departure, in.Speed, in.Direction), 0))
		return
	}
	if in.Speed != nil && *in.Speed == trigger.SpeedZero {
		t.SwitchState(NewStopped(newDeparture, t.stopDuration(in)))
		return
	}
	next := trigger.ApplySpeedAndDirection(departure, in.Speed, in.Direction)
	if t.state != nil {
		t.state.SetNext(next)
		return
	}
	t.SetThrottle(next)
}

func (t *Train) runCommands(cmds []string) {
	if len(cmds) == 0 || t.m.conf.Commands == nil {
		return
	}
	id := strconv.FormatUint(uint64(t.Lead()), 10)
	for _, cmd := range cmds {
		full := idPattern.ReplaceAllLiteralString(cmd, id)
		if strings.TrimSpace(full) == "" {
			continue
		}
		t.m.conf.Commands.Run(full)
	}
}

// conductorTrigger stops a freshly automated train and applies d after it settles.
func (t *Train) conductorTrigger(d *trigger.Definition) {
	t.SetThrottle(world.Zero)
	t.settle.Cancel()
	t.settle = t.m.s.After(t.m.settleDelay(), func() { t.HandleTrigger(d) })
}

// destroy destroys every member unit still in the world.
func (t *Train) destroy() {
	for _, id := range t.units {
		if t.m.w.Get(id) == nil {
			continue
		}
		if err := t.m.w.Destroy(id); err != nil {
			zap.S().Errorw("failed to destroy unit", "id", id, "err", err)
		}
	}
}

// scheduleDestroy marks the train as being destroyed and destroys it on the next tick.
func (t *Train) scheduleDestroy() {
	t.destroying = true
	t.m.s.After(0, t.destroy)
}

// Kill stops automating the train, leaving its units in the world.
func (t *Train) Kill() { t.m.Kill(t) }
