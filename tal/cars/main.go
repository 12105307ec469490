// Package cars is the catalog of rail unit kinds that can be spawned.
package cars

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// WorkcartAlias is the kind spawned by legacy spawner definitions.
const WorkcartAlias = "Workcart"

// reverseSuffix on an alias spawns the kind facing backwards.
const reverseSuffix = "_R"

type Data struct {
	Kinds map[string]Kind `json:"kinds"`
}

type dataJSON struct {
	Kinds map[string]Kind `json:"kinds"`
}

func (d *Data) UnmarshalJSON(data []byte) error {
	var d3 dataJSON
	err := json.Unmarshal(data, &d3)
	if err != nil {
		return err
	}
	d2 := Data{Kinds: map[string]Kind{}}
	for alias, k := range d3.Kinds {
		if strings.HasSuffix(alias, reverseSuffix) {
			return fmt.Errorf("kind %s: alias must not end in %s", alias, reverseSuffix)
		}
		if k.Length <= 0 {
			return fmt.Errorf("kind %s: length must be positive", alias)
		}
		d2.Kinds[alias] = k
	}
	*d = d2
	return nil
}

// Kind is one kind of rail unit.
type Kind struct {
	Comment string `json:"comment"`
	// Engine is whether the unit is powered and has a driver seat.
	Engine bool `json:"engine"`
	// Length from front coupling to rear coupling.
	Length float64 `json:"length"`
	// MaxSpeed is the track speed reached at full throttle.
	MaxSpeed float64 `json:"max-speed"`
}

// Spec is a resolved alias.
type Spec struct {
	Alias string
	Kind  Kind
	// Reverse is whether the unit faces backwards relative to the one it is coupled behind.
	Reverse bool
}

// Find resolves an alias case-insensitively. An alias ending in _R resolves to the reversed kind.
func (d Data) Find(alias string) (Spec, bool) {
	reverse := false
	base := alias
	if len(alias) > len(reverseSuffix) && strings.EqualFold(alias[len(alias)-len(reverseSuffix):], reverseSuffix) {
		reverse = true
		base = alias[:len(alias)-len(reverseSuffix)]
	}
	for name, k := range d.Kinds {
		if strings.EqualFold(name, base) {
			return Spec{Alias: alias, Kind: k, Reverse: reverse}, true
		}
	}
	return Spec{}, false
}

// Aliases lists every accepted alias, sorted.
func (d Data) Aliases() []string {
	res := make([]string, 0, 2*len(d.Kinds))
	for name := range d.Kinds {
		res = append(res, name, name+reverseSuffix)
	}
	sort.Strings(res)
	return res
}

// Default returns the built-in catalog.
func Default() Data {
	return Data{Kinds: map[string]Kind{
		"Locomotive":      {Comment: "diesel locomotive", Engine: true, Length: 19, MaxSpeed: 25},
		"Sedan":           {Comment: "rail sedan", Engine: true, Length: 5, MaxSpeed: 10},
		WorkcartAlias:     {Comment: "open workcart", Engine: true, Length: 7.4, MaxSpeed: 12},
		"WorkcartCovered": {Comment: "covered workcart", Engine: true, Length: 7.4, MaxSpeed: 12},
		"WagonA":          {Length: 16},
		"WagonB":          {Length: 16},
		"WagonC":          {Length: 16},
		"WagonFuel":       {Comment: "unloadable fuel wagon", Length: 16},
		"WagonLoot":       {Comment: "unloadable loot wagon", Length: 16},
		"WagonResource":   {Comment: "unloadable resource wagon", Length: 16},
		"Caboose":         {Length: 12},
	}}
}
