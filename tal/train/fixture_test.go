package train

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"nyiyui.ca/hato/unten"
	"nyiyui.ca/hato/unten/config"
	"nyiyui.ca/hato/unten/sched"
	"nyiyui.ca/hato/unten/tal/layout"
	"nyiyui.ca/hato/unten/tal/trigger"
	"nyiyui.ca/hato/unten/world"
)

type memPersister struct {
	data    map[unten.UnitID]UnitData
	saves   int
	deleted []unten.UnitID
}

func (p *memPersister) SaveUnit(id unten.UnitID, d UnitData) error {
	p.data[id] = d
	p.saves++
	return nil
}

func (p *memPersister) DeleteUnit(id unten.UnitID) error {
	delete(p.data, id)
	p.deleted = append(p.deleted, id)
	return nil
}

type cmdRecorder []string

func (r *cmdRecorder) Run(cmd string) { *r = append(*r, cmd) }

type fixture struct {
	cfg     config.Config
	w       *world.World
	s       *sched.Scheduler
	tm      *trigger.Manager
	m       *Manager
	p       *memPersister
	cmds    *cmdRecorder
	started int
	stopped int
}

func newFixture(t *testing.T, edit func(c *config.Config)) *fixture {
	y, err := layout.InitTestbench1()
	require.NoError(t, err)
	f := &fixture{
		cfg:  config.Default(),
		p:    &memPersister{data: map[unten.UnitID]UnitData{}},
		cmds: &cmdRecorder{},
	}
	if edit != nil {
		edit(&f.cfg)
	}
	f.w = world.New(y)
	f.s = sched.New(f.cfg.FixedStep.Duration())
	f.tm = trigger.NewManager(trigger.Conf{
		World:  f.w,
		Sched:  f.s,
		Config: f.cfg,
		Rand:   rand.New(rand.NewSource(1)),
	})
	f.m = NewManager(Conf{
		World:     f.w,
		Sched:     f.s,
		Config:    f.cfg,
		Policy:    DenyScripted,
		Commands:  f.cmds,
		Persister: f.p,
		Spawns:    f.tm,
		Rand:      rand.New(rand.NewSource(2)),
		OnStarted: func(*Train) { f.started++ },
		OnStopped: func(*Train) { f.stopped++ },
	})
	f.tm.SetHandler(f.m)
	return f
}

// simulate makes the world move on every fixed tick.
func (f *fixture) simulate() {
	f.s.EveryFixed(func() { f.w.Step(f.s.FixedStep) })
}

// spawn places a unit on the second segment of the testbench, which runs along +Z from z=30.
func (f *fixture) spawn(t *testing.T, alias string, d float64, ascending bool) *world.Unit {
	spec, ok := f.cfg.Cars.Find(alias)
	require.True(t, ok, alias)
	u, err := f.w.Spawn(spec, layout.Position{SegmentI: 1, Distance: d, Ascending: ascending})
	require.NoError(t, err)
	return u
}

func (f *fixture) compose(t *testing.T, lead *world.Unit, data *UnitData) *Train {
	tr, err := f.m.Compose(lead, nil, data, true)
	require.NoError(t, err)
	return tr
}

func (f *fixture) addTrigger(t *testing.T, d trigger.Definition) *trigger.Controller {
	d.Enabled = true
	c, err := f.tm.Add(d)
	require.NoError(t, err)
	return c
}
