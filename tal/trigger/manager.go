package trigger

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"nyiyui.ca/hato/unten"
	"nyiyui.ca/hato/unten/config"
	"nyiyui.ca/hato/unten/notify"
	"nyiyui.ca/hato/unten/sched"
	"nyiyui.ca/hato/unten/world"
)

var (
	ErrNotFound            = errors.New("trigger not found")
	ErrExists              = errors.New("trigger already exists")
	ErrUnsupportedTemplate = errors.New("unsupported template type")
	ErrTemplateDisabled    = errors.New("template triggers disabled for this type")
	ErrMapTriggersDisabled = errors.New("map triggers disabled")
)

// Handler reacts to rail units entering trigger instances.
type Handler interface {
	HandleTrigger(in *Instance, u *world.Unit)
}

// Persister saves trigger definitions as they change.
type Persister interface {
	SaveTrigger(ns Namespace, d *Definition) error
	DeleteTrigger(ns Namespace, id int) error
}

type Conf struct {
	World  *world.World
	Sched  *sched.Scheduler
	Config config.Config
	// Placer enumerates template occurrences. It may be nil if template triggers aren't used.
	Placer Placer
	// Persister may be nil.
	Persister Persister
	Rand      *rand.Rand
	// Snapshots receives Publish's snapshots. It may be nil.
	Snapshots *notify.MultiplexerSender[[]Snapshot]
}

type key struct {
	ns Namespace
	id int
}

// Controller owns a definition and every instance placed from it.
type Controller struct {
	m         *Manager
	def       *Definition
	instances []*Instance
}

// Definition returns a copy of the controller's definition.
func (c *Controller) Definition() *Definition { return c.def.Clone() }

func (c *Controller) Instances() []*Instance { return c.instances }

// Manager owns every trigger controller.
type Manager struct {
	conf        Conf
	w           *world.World
	s           *sched.Scheduler
	rand        *rand.Rand
	handler     Handler
	controllers map[key]*Controller
	// spawned maps every unit a spawner created to its instance.
	spawned map[unten.UnitID]*Instance
}

func NewManager(conf Conf) *Manager {
	m := &Manager{
		conf:        conf,
		w:           conf.World,
		s:           conf.Sched,
		rand:        conf.Rand,
		controllers: map[key]*Controller{},
		spawned:     map[unten.UnitID]*Instance{},
	}
	if m.rand == nil {
		m.rand = newRand()
	}
	m.w.OnDestroy(func(u *world.Unit) {
		delete(m.spawned, u.ID)
	})
	return m
}

// SetHandler sets who is told about units entering triggers.
func (m *Manager) SetHandler(h Handler) { m.handler = h }

// IsSpawned reports whether a spawner created unit id.
func (m *Manager) IsSpawned(id unten.UnitID) bool {
	_, ok := m.spawned[id]
	return ok
}

func (m *Manager) save(c *Controller) {
	if m.conf.Persister == nil {
		return
	}
	if err := m.conf.Persister.SaveTrigger(c.def.Namespace(), c.def); err != nil {
		zap.S().Errorw("failed to save trigger", "namespace", c.def.Namespace(), "id", c.def.ID, "err", err)
	}
}

func (m *Manager) nextID(ns Namespace) int {
	max := 0
	for k := range m.controllers {
		if k.ns == ns && k.id > max {
			max = k.id
		}
	}
	return max + 1
}

func (m *Manager) occurrences(d *Definition) ([]*Occurrence, error) {
	if d.Namespace() == NamespaceMap {
		if !m.conf.Config.EnableMapTriggers {
			return nil, ErrMapTriggersDisabled
		}
		return []*Occurrence{nil}, nil
	}
	t := ParseTemplateType(d.Template)
	if t == Unsupported {
		return nil, fmt.Errorf("%q: %w", d.Template, ErrUnsupportedTemplate)
	}
	if !m.conf.Config.TemplateTriggersEnabled(string(t)) {
		return nil, fmt.Errorf("%s: %w", t, ErrTemplateDisabled)
	}
	if m.conf.Placer == nil {
		return nil, nil
	}
	var res []*Occurrence
	for _, o := range m.conf.Placer.Occurrences(t) {
		o := o
		res = append(res, &o)
	}
	return res, nil
}

func (m *Manager) add(def Definition, persist bool) (*Controller, error) {
	d := def.Clone()
	if d.Namespace() == NamespaceTemplate {
		d.Template = string(ParseTemplateType(d.Template))
	}
	occs, err := m.occurrences(d)
	if err != nil {
		return nil, err
	}
	if d.ID == 0 {
		d.ID = m.nextID(d.Namespace())
	}
	k := key{d.Namespace(), d.ID}
	if _, ok := m.controllers[k]; ok {
		return nil, fmt.Errorf("%s trigger %d: %w", k.ns, k.id, ErrExists)
	}
	c := &Controller{m: m, def: d}
	for _, occ := range occs {
		in := &Instance{c: c, occ: occ}
		in.create()
		c.instances = append(c.instances, in)
	}
	m.controllers[k] = c
	if persist {
		m.save(c)
	}
	zap.S().Debugw("added trigger", "namespace", k.ns, "id", k.id, "instances", len(c.instances))
	return c, nil
}

// Add creates a trigger, assigning it the next free ID in its namespace if def.ID is zero.
func (m *Manager) Add(def Definition) (*Controller, error) {
	return m.add(def, true)
}

// AddAt creates a trigger at a world point. If the point lies within a template occurrence whose type has template triggers enabled, the trigger becomes a template trigger relative to it.
func (m *Manager) AddAt(def Definition, point unten.Vec3, yaw unten.Yaw) (*Controller, error) {
	def.Template = ""
	def.Position = point
	def.RotationAngle = float64(yaw)
	if m.conf.Placer != nil {
		if o, ok := FindOccurrence(m.conf.Placer, point); ok && m.conf.Config.TemplateTriggersEnabled(string(o.Type)) {
			def.Template = string(o.Type)
			def.Position = o.Local(point)
			def.RotationAngle = float64(yaw - o.Transform.Rotation)
		}
	}
	return m.Add(def)
}

// CreateAll creates loaded triggers without persisting them again. Triggers that can't be created are logged and skipped.
func (m *Manager) CreateAll(defs []Definition) {
	for _, d := range defs {
		if _, err := m.add(d, false); err != nil {
			zap.S().Infow("skipped trigger", "namespace", d.Namespace(), "id", d.ID, "err", err)
		}
	}
}

// DestroyAll removes every instance from the world, leaving definitions saved.
func (m *Manager) DestroyAll() {
	for k, c := range m.controllers {
		for _, in := range c.instances {
			in.destroy()
		}
		delete(m.controllers, k)
	}
}

func (m *Manager) Find(ns Namespace, id int) (*Controller, bool) {
	c, ok := m.controllers[key{ns, id}]
	return c, ok
}

func (m *Manager) find(ns Namespace, id int) (*Controller, error) {
	c, ok := m.Find(ns, id)
	if !ok {
		return nil, fmt.Errorf("%s trigger %d: %w", ns, id, ErrNotFound)
	}
	return c, nil
}

// Controllers returns every controller, ordered by namespace then ID.
func (m *Manager) Controllers() []*Controller {
	res := make([]*Controller, 0, len(m.controllers))
	for _, c := range m.controllers {
		res = append(res, c)
	}
	sort.Slice(res, func(i, j int) bool {
		a, b := res[i].def, res[j].def
		if a.Namespace() != b.Namespace() {
			return a.Namespace() < b.Namespace()
		}
		return a.ID < b.ID
	})
	return res
}

// Update replaces a trigger's definition with a mutated copy and applies whatever changed.
func (m *Manager) Update(ns Namespace, id int, mutate func(d *Definition)) error {
	c, err := m.find(ns, id)
	if err != nil {
		return err
	}
	old := c.def
	d := old.Clone()
	mutate(d)
	d.ID, d.Template = old.ID, old.Template
	enabledChanged := d.Enabled != old.Enabled
	spawnerChanged := d.IsSpawner() != old.IsSpawner()
	unitsChanged := !slices.Equal(d.Units, old.Units)
	moved := d.Position != old.Position || d.RotationAngle != old.RotationAngle
	c.def = d
	for _, in := range c.instances {
		if moved {
			in.onMove()
		}
		if enabledChanged {
			in.onEnabledToggled()
		}
		if spawnerChanged {
			in.onSpawnerToggled()
		} else if unitsChanged {
			in.respawn()
		}
	}
	m.save(c)
	return nil
}

// Move moves a trigger. For template triggers, pos is relative to each occurrence.
func (m *Manager) Move(ns Namespace, id int, pos unten.Vec3) error {
	return m.Update(ns, id, func(d *Definition) { d.Position = pos })
}

func (m *Manager) Rotate(ns Namespace, id int, angle float64) error {
	return m.Update(ns, id, func(d *Definition) { d.RotationAngle = angle })
}

// AddCommand appends cmd unless the trigger already has it (ignoring case).
func (m *Manager) AddCommand(ns Namespace, id int, cmd string) error {
	c, err := m.find(ns, id)
	if err != nil {
		return err
	}
	for _, have := range c.def.Commands {
		if strings.EqualFold(have, cmd) {
			return nil
		}
	}
	return m.Update(ns, id, func(d *Definition) { d.Commands = append(d.Commands, cmd) })
}

// RemoveCommand removes the command at index i.
func (m *Manager) RemoveCommand(ns Namespace, id int, i int) error {
	c, err := m.find(ns, id)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(c.def.Commands) {
		return fmt.Errorf("%s trigger %d has no command %d", ns, id, i)
	}
	return m.Update(ns, id, func(d *Definition) { d.Commands = slices.Delete(d.Commands, i, i+1) })
}

// Respawn destroys a spawner's trains and spawns a new one at every instance.
func (m *Manager) Respawn(ns Namespace, id int) error {
	c, err := m.find(ns, id)
	if err != nil {
		return err
	}
	for _, in := range c.instances {
		in.respawn()
	}
	return nil
}

// Remove destroys a trigger's instances and deletes its definition.
func (m *Manager) Remove(ns Namespace, id int) error {
	c, err := m.find(ns, id)
	if err != nil {
		return err
	}
	for _, in := range c.instances {
		in.destroy()
	}
	delete(m.controllers, key{ns, id})
	if m.conf.Persister != nil {
		if err := m.conf.Persister.DeleteTrigger(ns, id); err != nil {
			return fmt.Errorf("delete %s trigger %d: %w", ns, id, err)
		}
	}
	return nil
}

// FindNearest returns the instance closest to point, within maxDist. A non-positive maxDist uses a default of 3.
func (m *Manager) FindNearest(point unten.Vec3, maxDist float64) (*Instance, bool) {
	if maxDist <= 0 {
		maxDist = defaultFindRange
	}
	var best *Instance
	bestSq := maxDist * maxDist
	for _, c := range m.Controllers() {
		for _, in := range c.instances {
			sq := in.transform.Position.Sub(point).SqrLen()
			if sq <= bestSq {
				best, bestSq = in, sq
			}
		}
	}
	return best, best != nil
}
