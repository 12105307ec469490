// Package train automates compositions of coupled rail units: it composes them, drives them through timed states as they pass triggers, and resolves encounters between them.
package train

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nyiyui.ca/hato/unten"
	"nyiyui.ca/hato/unten/config"
	"nyiyui.ca/hato/unten/notify"
	"nyiyui.ca/hato/unten/sched"
	"nyiyui.ca/hato/unten/tal/layout"
	"nyiyui.ca/hato/unten/tal/trigger"
	"nyiyui.ca/hato/unten/world"
)

var (
	ErrAlreadyAutomated = errors.New("unit is already part of an automated train")
	ErrVetoed           = errors.New("automation vetoed")
	ErrOwned            = errors.New("unit is owned by a player")
	ErrCapacity         = errors.New("conductor limit reached")
	ErrNoEngine         = errors.New("no engine to drive the train")
	ErrDestroyed        = errors.New("unit destroyed")
)

// Decision is a policy's answer on whether a unit may be automated.
type Decision int

const (
	NoOpinion Decision = iota
	Allow
	Deny
)

// Policy may veto automating an engine. NoOpinion and Allow are treated alike.
type Policy interface {
	CanAutomate(u *world.Unit) Decision
}

type PolicyFunc func(u *world.Unit) Decision

func (f PolicyFunc) CanAutomate(u *world.Unit) Decision { return f(u) }

// DenyScripted refuses to automate units driven by world events.
var DenyScripted = PolicyFunc(func(u *world.Unit) Decision {
	if u.Scripted {
		return Deny
	}
	return NoOpinion
})

// CommandRunner executes trigger commands. Commands are opaque to the automation.
type CommandRunner interface {
	Run(cmd string)
}

// LogRunner logs commands instead of running them.
type LogRunner struct{}

func (LogRunner) Run(cmd string) {
	zap.S().Infow("trigger command", "cmd", cmd)
}

// Persister saves per-engine automation data.
type Persister interface {
	SaveUnit(id unten.UnitID, d UnitData) error
	DeleteUnit(id unten.UnitID) error
}

// Spawns reports which units a spawner created.
type Spawns interface {
	IsSpawned(id unten.UnitID) bool
}

type Conf struct {
	World  *world.World
	Sched  *sched.Scheduler
	Config config.Config
	// All following fields are optional.
	Policy    Policy
	Commands  CommandRunner
	Persister Persister
	Spawns    Spawns
	Rand      *rand.Rand
	Snapshots *notify.MultiplexerSender[Snapshot]
	OnStarted func(t *Train)
	OnStopped func(t *Train)
}

// UnitData is what is remembered about an automated engine across restarts.
type UnitData struct {
	Route    string         `json:"route,omitempty"`
	Throttle world.Throttle `json:"throttle"`
	// TrackSelection is nil to use the configured default.
	TrackSelection *layout.TrackSelection `json:"track-selection,omitempty"`
}

func (d UnitData) equal(o UnitData) bool {
	if d.Route != o.Route || d.Throttle != o.Throttle {
		return false
	}
	if (d.TrackSelection == nil) != (o.TrackSelection == nil) {
		return false
	}
	return d.TrackSelection == nil || *d.TrackSelection == *o.TrackSelection
}

// Manager is the registry of automated trains.
type Manager struct {
	conf   Conf
	w      *world.World
	s      *sched.Scheduler
	rand   *rand.Rand
	trains map[uuid.UUID]*Train
	byUnit map[unten.UnitID]*Train
	// saved is the data last persisted for each engine.
	saved map[unten.UnitID]UnitData
}

func NewManager(conf Conf) *Manager {
	m := &Manager{
		conf:   conf,
		w:      conf.World,
		s:      conf.Sched,
		rand:   conf.Rand,
		trains: map[uuid.UUID]*Train{},
		byUnit: map[unten.UnitID]*Train{},
		saved:  map[unten.UnitID]UnitData{},
	}
	if m.rand == nil {
		m.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	m.w.OnDestroy(func(u *world.Unit) {
		if t := m.byUnit[u.ID]; t != nil {
			zap.S().Infow("unit of automated train destroyed", "train", t.ID, "unit", u.ID)
			m.Kill(t)
		}
	})
	return m
}

func (m *Manager) settleDelay() time.Duration {
	lo := m.conf.Config.SettleDelayMin.Duration()
	hi := m.conf.Config.SettleDelayMax.Duration()
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(m.rand.Int63n(int64(hi-lo)))
}

// Get returns the train unit id belongs to.
func (m *Manager) Get(id unten.UnitID) (*Train, bool) {
	t, ok := m.byUnit[id]
	return t, ok
}

// Trains returns every train, ordered by lead unit.
func (m *Manager) Trains() []*Train {
	res := make([]*Train, 0, len(m.trains))
	for _, t := range m.trains {
		res = append(res, t)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Lead() < res[j].Lead() })
	return res
}

// CountedConductors returns the number of trains counting towards the conductor limit.
func (m *Manager) CountedConductors() int {
	n := 0
	for _, t := range m.trains {
		if t.counts {
			n++
		}
	}
	return n
}

// CanHaveMoreConductors reports whether another counted train may be composed.
func (m *Manager) CanHaveMoreConductors() bool {
	return m.conf.Config.Unlimited() || m.CountedConductors() < m.conf.Config.MaxConductors
}

// LeadEngine returns the engine that would lead u's train: u itself if it is an engine, otherwise the first engine from the train's front in its direction of travel.
func (m *Manager) LeadEngine(u *world.Unit) *world.Unit {
	if u.Model.Engine {
		return u
	}
	units := m.w.TrainOf(u.ID)
	if len(units) == 0 {
		return nil
	}
	if m.w.Primary(units) == units[0] {
		for _, c := range units {
			if c.Model.Engine {
				return c
			}
		}
		return nil
	}
	for i := len(units) - 1; i >= 0; i-- {
		if units[i].Model.Engine {
			return units[i]
		}
	}
	return nil
}

// Compose automates the train lead belongs to, led by lead.
// d is the trigger that started it (or nil), and data the saved state of lead (or nil).
// Nothing changes if Compose fails.
func (m *Manager) Compose(lead *world.Unit, d *trigger.Definition, data *UnitData, counts bool) (*Train, error) {
	if lead.Destroyed || m.w.Get(lead.ID) == nil {
		return nil, fmt.Errorf("compose %s: %w", lead.ID, ErrDestroyed)
	}
	if !lead.Model.Engine {
		return nil, fmt.Errorf("compose %s: %w", lead.ID, ErrNoEngine)
	}
	units := m.w.TrainOf(lead.ID)
	if world.Owned(units) {
		return nil, fmt.Errorf("compose %s: %w", lead.ID, ErrOwned)
	}
	for _, u := range units {
		if _, ok := m.byUnit[u.ID]; ok {
			return nil, fmt.Errorf("compose %s: %s: %w", lead.ID, u.ID, ErrAlreadyAutomated)
		}
		if u.Model.Engine && m.conf.Policy != nil && m.conf.Policy.CanAutomate(u) == Deny {
			return nil, fmt.Errorf("compose %s: %s: %w", lead.ID, u.ID, ErrVetoed)
		}
	}
	if counts && !m.CanHaveMoreConductors() {
		return nil, fmt.Errorf("compose %s: %w", lead.ID, ErrCapacity)
	}

	t := &Train{
		ID:       uuid.New(),
		m:        m,
		counts:   counts,
		collided: map[world.ZoneID]map[unten.UnitID]struct{}{},
	}
	if data != nil {
		t.data = *data
	} else if d != nil {
		t.data = UnitData{Route: d.Route}
	}
	if m.conf.Spawns != nil {
		t.spawned = m.conf.Spawns.IsSpawned(lead.ID)
	}
	t.engines = append(t.engines, engine{id: lead.ID})
	for _, u := range units {
		t.units = append(t.units, u.ID)
		if u.Model.Engine && u != lead {
			t.engines = append(t.engines, engine{id: u.ID, reverse: !m.w.SameFacing(lead, u)})
		}
	}
	for _, id := range t.units {
		m.byUnit[id] = t
	}
	m.trains[t.ID] = t
	t.start(units)
	if !t.spawned {
		m.persist(t)
	}
	zap.S().Infow("composed train", "train", t.ID, "lead", lead.ID, "units", t.units, "counts", counts, "route", t.data.Route)
	if m.conf.OnStarted != nil {
		m.conf.OnStarted(t)
	}
	return t, nil
}

// outerEnd returns the end of units[i] facing away from the rest of the train.
func outerEnd(units []*world.Unit, i int) []world.End {
	if len(units) == 1 {
		return []world.End{world.Front, world.Rear}
	}
	neighbour := units[1].ID
	if i != 0 {
		neighbour = units[i-1].ID
	}
	if units[i].Couplings[world.Front].Partner == neighbour {
		return []world.End{world.Rear}
	}
	return []world.End{world.Front}
}

func (t *Train) start(units []*world.Unit) {
	for _, i := range []int{0, len(units) - 1} {
		for _, e := range outerEnd(units, i) {
			units[i].Couplings[e].Allowed = false
		}
	}
	for _, u := range units {
		u.Invulnerable = true
		if u.Model.Engine {
			u.Conductor = true
		}
	}
	th := t.data.Throttle
	if th == world.Zero {
		th = t.m.conf.Config.GetDefaultSpeed()
	}
	ts := t.m.conf.Config.GetDefaultTrackSelection()
	if t.data.TrackSelection != nil {
		ts = *t.data.TrackSelection
	}
	t.SetThrottle(th)
	t.SetTrackSelection(ts)
	t.addZones(units)
}

// Kill stops automating t and forgets its saved data. Killing a train twice does nothing.
func (m *Manager) Kill(t *Train) {
	m.kill(t, true)
}

func (m *Manager) kill(t *Train, forget bool) {
	if t.killed {
		return
	}
	if t.state != nil {
		t.state.cancel()
		t.state = nil
	}
	t.settle.Cancel()
	t.killed = true
	for _, z := range t.zones {
		m.w.RemoveZone(z.ID)
	}
	t.zones = nil
	for _, id := range t.units {
		delete(m.byUnit, id)
		u := m.w.Get(id)
		if u == nil {
			continue
		}
		u.Invulnerable = false
		u.Conductor = false
		u.Throttle = world.Zero
		u.Couplings[world.Front].Allowed = true
		u.Couplings[world.Rear].Allowed = true
	}
	delete(m.trains, t.ID)
	if forget {
		for _, e := range t.engines {
			m.forget(e.id)
		}
	}
	zap.S().Infow("killed train", "train", t.ID, "lead", t.Lead())
	if m.conf.OnStopped != nil {
		m.conf.OnStopped(t)
	}
}

// ResetAll kills every train that counts towards the conductor limit.
func (m *Manager) ResetAll() {
	for _, t := range m.Trains() {
		if t.counts {
			m.Kill(t)
		}
	}
}

// Shutdown kills every train but keeps saved data, so that Restore resumes them.
func (m *Manager) Shutdown() {
	m.SaveChanged()
	for _, t := range m.Trains() {
		m.kill(t, false)
	}
}

// HandleTrigger reacts to u entering a trigger instance.
func (m *Manager) HandleTrigger(in *trigger.Instance, u *world.Unit) {
	if u.Kind != world.KindRailUnit {
		return
	}
	d := in.Definition()
	t := m.byUnit[u.ID]
	if t == nil {
		m.automate(in, d, u)
		return
	}
	units := m.w.TrainOf(u.ID)
	if m.w.Primary(units) != u {
		return
	}
	t.HandleTrigger(d)
}

func (m *Manager) automate(in *trigger.Instance, d *trigger.Definition, u *world.Unit) {
	if !d.StartsAutomation() || d.Destroy {
		return
	}
	lead := m.LeadEngine(u)
	if lead == nil || lead.Owner != 0 {
		return
	}
	spawnedHere := in.DidSpawn(lead.ID)
	if !spawnedHere {
		// spawners only automate their own trains
		if d.IsSpawner() || !m.CanHaveMoreConductors() {
			return
		}
	}
	t, err := m.Compose(lead, d, nil, !spawnedHere)
	if err != nil {
		zap.S().Debugw("trigger could not automate train", "trigger", d.ID, "unit", u.ID, "err", err)
		return
	}
	t.conductorTrigger(d)
}
