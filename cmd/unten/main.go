// Command unten runs the train automation against a simulated layout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"
	"nyiyui.ca/hato/unten"
	"nyiyui.ca/hato/unten/config"
	"nyiyui.ca/hato/unten/kujo"
	"nyiyui.ca/hato/unten/notify"
	"nyiyui.ca/hato/unten/sakuragi"
	"nyiyui.ca/hato/unten/sched"
	"nyiyui.ca/hato/unten/store"
	"nyiyui.ca/hato/unten/tal/layout"
	"nyiyui.ca/hato/unten/tal/train"
	"nyiyui.ca/hato/unten/tal/trigger"
	"nyiyui.ca/hato/unten/ui"
	"nyiyui.ca/hato/unten/world"
)

func main() {
	defer zap.S().Sync()
	level := zap.LevelFlag("log-level", zap.InfoLevel, "set log level")
	configPath := flag.String("config", "unten.json", "path to config file")
	writeConfig := flag.Bool("write-config", false, "write the effective config to -config and exit")
	dbPath := flag.String("db", "unten.db", "path to database (:memory: to not persist)")
	layoutName := flag.String("layout", "testbench3", "layout to simulate")
	templatesPath := flag.String("templates", "", "path to JSON list of template occurrences")
	demo := flag.Bool("demo", false, "add a spawner and a stop trigger if there are no map triggers")
	kujoAddr := flag.String("kujo", "127.0.0.1:8001", "address for the event stream (empty to disable)")
	sakuragiAddr := flag.String("sakuragi", "127.0.0.1:8080", "address for the status page (empty to disable)")
	useUI := flag.Bool("ui", false, "show a terminal dashboard")
	flag.Parse()
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(*level)
	if *useUI {
		// the dashboard owns the terminal
		cfg.OutputPaths = []string{"unten.log"}
	}
	dev, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(dev)

	c, err := config.Load(*configPath)
	if err != nil {
		zap.S().Fatalf("load config: %s", err)
	}
	if *writeConfig {
		err = c.Save(*configPath)
		if err != nil {
			zap.S().Fatalf("save config: %s", err)
		}
		return
	}

	y, err := layout.Preset(*layoutName)
	if err != nil {
		zap.S().Fatalf("init layout: %s", err)
	}

	var placer trigger.Placer
	if *templatesPath != "" {
		occs, err := readOccurrences(*templatesPath)
		if err != nil {
			zap.S().Fatalf("read templates: %s", err)
		}
		placer = occs
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		zap.S().Fatalf("open store: %s", err)
	}
	defer st.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	snapshots, snapshotsMux := notify.NewMultiplexerSender[train.Snapshot]("train snapshots")
	triggerSnapshots, triggerSnapshotsMux := notify.NewMultiplexerSender[[]trigger.Snapshot]("trigger snapshots")

	w := world.New(y)
	s := sched.New(c.FixedStep.Duration())
	tm := trigger.NewManager(trigger.Conf{
		World:     w,
		Sched:     s,
		Config:    c,
		Placer:    placer,
		Persister: st,
		Snapshots: triggerSnapshots,
	})
	m := train.NewManager(train.Conf{
		World:     w,
		Sched:     s,
		Config:    c,
		Policy:    train.DenyScripted,
		Commands:  train.LogRunner{},
		Persister: st,
		Spawns:    tm,
		Snapshots: snapshots,
		OnStarted: func(t *train.Train) {
			zap.S().Infow("train automated", "train", t.ID, "lead", t.Lead(), "route", t.Route())
		},
		OnStopped: func(t *train.Train) {
			zap.S().Infow("train no longer automated", "train", t.ID, "lead", t.Lead())
		},
	})
	tm.SetHandler(m)

	err = loadTriggers(st, tm, *demo)
	if err != nil {
		zap.S().Fatalf("load triggers: %s", err)
	}
	saved, err := st.LoadUnits()
	if err != nil {
		zap.S().Fatalf("load units: %s", err)
	}
	m.Restore(saved)

	s.EveryFixed(func() { w.Step(s.FixedStep) })
	s.Every(c.SaveInterval.Duration(), c.SaveInterval.Duration(), m.SaveChanged)
	s.Every(0, c.SnapshotInterval.Duration(), func() {
		m.Publish()
		tm.Publish()
	})

	var servers []*http.Server
	if *kujoAddr != "" {
		k := kujo.NewServer(kujo.Conf{Snapshots: snapshotsMux, Triggers: triggerSnapshotsMux})
		defer k.Close()
		servers = append(servers, serve("kujo", *kujoAddr, k))
	}
	if *sakuragiAddr != "" {
		sk := sakuragi.NewServer(sakuragi.Conf{Snapshots: snapshotsMux, Triggers: triggerSnapshotsMux})
		servers = append(servers, serve("sakuragi", *sakuragiAddr, sk))
	}
	if *useUI {
		go func() {
			err := ui.Main(ctx, ui.Conf{Snapshots: snapshotsMux, Triggers: triggerSnapshotsMux})
			if err != nil {
				zap.S().Errorw("ui failed", "err", err)
			}
			cancel()
		}()
	}

	zap.S().Infow("starting simulation", "layout", *layoutName, "step", s.FixedStep)
	run(ctx, s)

	zap.S().Info("shutting down")
	m.Shutdown()
	tm.DestroyAll()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	for _, srv := range servers {
		srv.Shutdown(shutdownCtx)
	}
}

// run advances the scheduler in real time until ctx is done.
func run(ctx context.Context, s *sched.Scheduler) {
	ticker := time.NewTicker(s.FixedStep)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Advance(now.Sub(last))
			last = now
		}
	}
}

func serve(name, addr string, h http.Handler) *http.Server {
	srv := &http.Server{Addr: addr, Handler: h}
	go func() {
		zap.S().Infow("listening", "server", name, "addr", addr)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Fatalf("%s: %s", name, err)
		}
	}()
	return srv
}

func readOccurrences(path string) (trigger.Occurrences, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var occs trigger.Occurrences
	err = json.Unmarshal(data, &occs)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return occs, nil
}

// loadTriggers creates saved triggers, installing the default template triggers on first run.
func loadTriggers(st *store.Store, tm *trigger.Manager, demo bool) error {
	templates, saved, err := st.LoadTriggers(trigger.NamespaceTemplate)
	if err != nil {
		return err
	}
	if !saved {
		templates = trigger.DefaultTemplateDefinitions()
		err = st.SaveTriggers(trigger.NamespaceTemplate, templates)
		if err != nil {
			return err
		}
		zap.S().Infow("installed default template triggers", "count", len(templates))
	} else if trigger.Migrate(templates) {
		err = st.SaveTriggers(trigger.NamespaceTemplate, templates)
		if err != nil {
			return err
		}
		zap.S().Info("migrated template triggers")
	}
	maps, _, err := st.LoadTriggers(trigger.NamespaceMap)
	if err != nil {
		return err
	}
	tm.CreateAll(templates)
	tm.CreateAll(maps)
	if demo && len(maps) == 0 {
		return addDemo(tm)
	}
	return nil
}

func addDemo(tm *trigger.Manager) error {
	_, err := tm.Add(trigger.Definition{
		Enabled:        true,
		Position:       unten.Vec3{Z: 30},
		Units:          []string{"Workcart", "WagonA"},
		DepartureSpeed: "Hi",
	})
	if err != nil {
		return fmt.Errorf("add spawner: %w", err)
	}
	_, err = tm.Add(trigger.Definition{
		Enabled:       true,
		Position:      unten.Vec3{X: 50, Z: 100},
		RotationAngle: 90,
		Brake:         true,
		Speed:         "Zero",
		StopDuration:  10,
	})
	if err != nil {
		return fmt.Errorf("add stop: %w", err)
	}
	return nil
}
