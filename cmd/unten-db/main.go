// Command unten-db reads and edits the triggers and unit data saved by unten.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"nyiyui.ca/hato/unten/store"
	"nyiyui.ca/hato/unten/tal/trigger"
)

var dbPath string
var namespace string
var id int
var mode string

func main() {
	flag.StringVar(&dbPath, "db-path", "./unten.db", "path to database")
	flag.StringVar(&namespace, "namespace", string(trigger.NamespaceMap), "trigger namespace (map or template)")
	flag.IntVar(&id, "id", 0, "trigger ID (for delete)")
	flag.StringVar(&mode, "mode", "", "triggers, units, write, or delete")
	flag.Parse()

	ns := trigger.Namespace(namespace)
	if ns != trigger.NamespaceMap && ns != trigger.NamespaceTemplate {
		log.Fatalf("unknown namespace %q", namespace)
	}

	err := main2(ns)
	if err != nil {
		log.Fatal(err)
	}
}

func main2(ns trigger.Namespace) error {
	s, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "\t")
	switch mode {
	case "triggers":
		defs, saved, err := s.LoadTriggers(ns)
		if err != nil {
			return err
		}
		if !saved {
			log.Printf("nothing saved in %s", ns)
		}
		return enc.Encode(defs)
	case "units":
		units, err := s.LoadUnits()
		if err != nil {
			return err
		}
		return enc.Encode(units)
	case "write":
		var d trigger.Definition
		err = json.NewDecoder(os.Stdin).Decode(&d)
		if err != nil {
			return fmt.Errorf("unmarshalling failed: %w", err)
		}
		if d.ID <= 0 {
			return fmt.Errorf("trigger needs a positive id")
		}
		err = s.SaveTrigger(ns, &d)
		if err != nil {
			return fmt.Errorf("writing failed: %w", err)
		}
		log.Printf("saved %s/%d", ns, d.ID)
		return nil
	case "delete":
		err = s.DeleteTrigger(ns, id)
		if err != nil {
			return err
		}
		log.Printf("deleted %s/%d", ns, id)
		return nil
	default:
		return fmt.Errorf("mode must be triggers, units, write, or delete")
	}
}
