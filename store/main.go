// Package store persists trigger definitions and automated units' data in a buntdb database.
//
// Values are JSON. Keys are trigger:<namespace>:<id> and unit:<id>:data.
package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/buntdb"
	"go.uber.org/zap"
	"nyiyui.ca/hato/unten"
	"nyiyui.ca/hato/unten/tal/train"
	"nyiyui.ca/hato/unten/tal/trigger"
)

type Store struct {
	db *buntdb.DB
}

// Open opens (or creates) the database at path. ":memory:" opens an in-memory database.
func Open(path string) (*Store, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func triggerKey(ns trigger.Namespace, id int) string {
	return fmt.Sprintf("trigger:%s:%d", ns, id)
}

func namespaceKey(ns trigger.Namespace) string {
	return fmt.Sprintf("namespace:%s:saved", ns)
}

func unitKey(id unten.UnitID) string {
	return fmt.Sprintf("unit:%d:data", uint64(id))
}

// LoadTriggers returns the definitions saved in ns, ordered by ID.
// saved is false if nothing was ever saved in ns, so that callers can install defaults.
// Entries that fail to parse are logged and skipped.
func (s *Store) LoadTriggers(ns trigger.Namespace) (defs []trigger.Definition, saved bool, err error) {
	err = s.db.View(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(namespaceKey(ns)); err == nil {
			saved = true
		} else if err != buntdb.ErrNotFound {
			return err
		}
		prefix := fmt.Sprintf("trigger:%s:", ns)
		return tx.AscendKeys(prefix+"*", func(key, value string) bool {
			var d trigger.Definition
			if err := json.Unmarshal([]byte(value), &d); err != nil {
				zap.S().Errorw("unmarshalling trigger failed",
					"key", key,
					"value", value,
					"err", err)
				return true
			}
			if id, err := strconv.Atoi(strings.TrimPrefix(key, prefix)); err == nil {
				d.ID = id
			}
			defs = append(defs, d)
			saved = true
			return true
		})
	})
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return
}

// SaveTrigger saves d in ns, replacing any definition with the same ID.
func (s *Store) SaveTrigger(ns trigger.Namespace, d *trigger.Definition) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		if _, _, err := tx.Set(namespaceKey(ns), "1", nil); err != nil {
			return err
		}
		_, _, err := tx.Set(triggerKey(ns, d.ID), string(data), nil)
		return err
	})
}

// SaveTriggers saves every definition in defs at once.
func (s *Store) SaveTriggers(ns trigger.Namespace, defs []trigger.Definition) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		if _, _, err := tx.Set(namespaceKey(ns), "1", nil); err != nil {
			return err
		}
		for i := range defs {
			data, err := json.Marshal(&defs[i])
			if err != nil {
				return err
			}
			if _, _, err := tx.Set(triggerKey(ns, defs[i].ID), string(data), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteTrigger deletes a definition. Deleting a missing definition is not an error.
func (s *Store) DeleteTrigger(ns trigger.Namespace, id int) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(triggerKey(ns, id))
		if err == buntdb.ErrNotFound {
			return nil
		}
		return err
	})
}

// LoadUnits returns the saved data of every unit. Entries that fail to parse are logged and skipped.
func (s *Store) LoadUnits() (map[unten.UnitID]train.UnitData, error) {
	res := map[unten.UnitID]train.UnitData{}
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("unit:*:data", func(key, value string) bool {
			idRaw := strings.TrimSuffix(strings.TrimPrefix(key, "unit:"), ":data")
			id, err := strconv.ParseUint(idRaw, 10, 64)
			if err != nil {
				zap.S().Errorw("parsing key failed",
					"key", key,
					"value", value)
				return true
			}
			var d train.UnitData
			if err := json.Unmarshal([]byte(value), &d); err != nil {
				zap.S().Errorw("unmarshalling failed",
					"key", key,
					"value", value,
					"err", err)
				return true
			}
			res[unten.UnitID(id)] = d
			return true
		})
	})
	return res, err
}

func (s *Store) SaveUnit(id unten.UnitID, d train.UnitData) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(unitKey(id), string(data), nil)
		return err
	})
}

// DeleteUnit deletes a unit's data. Deleting missing data is not an error.
func (s *Store) DeleteUnit(id unten.UnitID) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(unitKey(id))
		if err == buntdb.ErrNotFound {
			return nil
		}
		return err
	})
}

// TrimUnits deletes the data of every unit keep rejects, returning how many were deleted.
func (s *Store) TrimUnits(keep func(id unten.UnitID) bool) (int, error) {
	units, err := s.LoadUnits()
	if err != nil {
		return 0, err
	}
	n := 0
	err = s.db.Update(func(tx *buntdb.Tx) error {
		for id := range units {
			if keep(id) {
				continue
			}
			if _, err := tx.Delete(unitKey(id)); err != nil && err != buntdb.ErrNotFound {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}
