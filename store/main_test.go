package store

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/buntdb"
	"nyiyui.ca/hato/unten"
	"nyiyui.ca/hato/unten/tal/layout"
	"nyiyui.ca/hato/unten/tal/train"
	"nyiyui.ca/hato/unten/tal/trigger"
	"nyiyui.ca/hato/unten/world"
)

func open(t *testing.T) *Store {
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var _ trigger.Persister = (*Store)(nil)
var _ train.Persister = (*Store)(nil)

func TestTriggers(t *testing.T) {
	s := open(t)
	defs, saved, err := s.LoadTriggers(trigger.NamespaceTemplate)
	require.NoError(t, err)
	require.False(t, saved)
	require.Empty(t, defs)

	a := trigger.Definition{ID: 2, Position: unten.Vec3{X: 1, Z: 2}, Enabled: true, Speed: "Lo", Route: "east"}
	b := trigger.Definition{ID: 10, Enabled: false, Units: []string{"Workcart", "Flatcar"}}
	require.NoError(t, s.SaveTrigger(trigger.NamespaceMap, &b))
	require.NoError(t, s.SaveTrigger(trigger.NamespaceMap, &a))

	defs, saved, err = s.LoadTriggers(trigger.NamespaceMap)
	require.NoError(t, err)
	require.True(t, saved)
	if diff := cmp.Diff([]trigger.Definition{a, b}, defs, cmpopts.IgnoreUnexported(trigger.Definition{})); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	// namespaces are separate
	defs, saved, err = s.LoadTriggers(trigger.NamespaceTemplate)
	require.NoError(t, err)
	require.False(t, saved)
	require.Empty(t, defs)

	require.NoError(t, s.DeleteTrigger(trigger.NamespaceMap, 2))
	require.NoError(t, s.DeleteTrigger(trigger.NamespaceMap, 2))
	defs, _, err = s.LoadTriggers(trigger.NamespaceMap)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	require.Equal(t, 10, defs[0].ID)
}

func TestTemplateNamespaceSaved(t *testing.T) {
	s := open(t)
	require.NoError(t, s.SaveTriggers(trigger.NamespaceTemplate, trigger.DefaultTemplateDefinitions()))
	for _, d := range trigger.DefaultTemplateDefinitions() {
		require.NoError(t, s.DeleteTrigger(trigger.NamespaceTemplate, d.ID))
	}
	defs, saved, err := s.LoadTriggers(trigger.NamespaceTemplate)
	require.NoError(t, err)
	require.True(t, saved, "deleting every template trigger must not bring the defaults back")
	require.Empty(t, defs)
}

func TestBadEntriesSkipped(t *testing.T) {
	s := open(t)
	require.NoError(t, s.db.Update(func(tx *buntdb.Tx) error {
		tx.Set("trigger:map:1", "{not json", nil)
		tx.Set("trigger:map:2", `{"id":2,"speed":"Hi"}`, nil)
		tx.Set("unit:abc:data", `{}`, nil)
		tx.Set("unit:5:data", `{"throttle":"Warp"}`, nil)
		tx.Set("unit:3:data", `[]`, nil)
		tx.Set("unit:4:data", `{"route":"west","throttle":"Rev_Med"}`, nil)
		return nil
	}))
	defs, _, err := s.LoadTriggers(trigger.NamespaceMap)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	require.Equal(t, "Hi", defs[0].Speed)
	require.True(t, defs[0].Enabled)

	units, err := s.LoadUnits()
	require.NoError(t, err)
	require.Equal(t, map[unten.UnitID]train.UnitData{4: {Route: "west", Throttle: world.RevMed}}, units)
}

func TestUnits(t *testing.T) {
	s := open(t)
	left := layout.TrackLeft
	require.NoError(t, s.SaveUnit(1, train.UnitData{Route: "a", Throttle: world.FwdHi}))
	require.NoError(t, s.SaveUnit(2, train.UnitData{Throttle: world.RevLo, TrackSelection: &left}))
	require.NoError(t, s.SaveUnit(3, train.UnitData{Throttle: world.FwdMed}))

	units, err := s.LoadUnits()
	require.NoError(t, err)
	if diff := cmp.Diff(map[unten.UnitID]train.UnitData{
		1: {Route: "a", Throttle: world.FwdHi},
		2: {Throttle: world.RevLo, TrackSelection: &left},
		3: {Throttle: world.FwdMed},
	}, units); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, s.DeleteUnit(3))
	require.NoError(t, s.DeleteUnit(3))
	n, err := s.TrimUnits(func(id unten.UnitID) bool { return id == 1 })
	require.NoError(t, err)
	require.Equal(t, 1, n)
	units, err = s.LoadUnits()
	require.NoError(t, err)
	require.Len(t, units, 1)
	require.Contains(t, units, unten.UnitID(1))
}
