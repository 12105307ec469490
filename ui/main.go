// Package ui shows automated trains and triggers on a terminal dashboard.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"nyiyui.ca/hato/unten/notify"
	"nyiyui.ca/hato/unten/tal/train"
	"nyiyui.ca/hato/unten/tal/trigger"
)

type Conf struct {
	Snapshots *notify.Multiplexer[train.Snapshot]
	// Triggers may be nil.
	Triggers *notify.Multiplexer[[]trigger.Snapshot]
}

var trainHeader = []string{"Lead", "Cars", "Route", "State", "Throttle", "Departure", "Track", "Speed"}

func trainRows(snap train.Snapshot) [][]string {
	rows := [][]string{trainHeader}
	for _, t := range snap.Trains {
		state := t.State
		if !t.Counts {
			state += "*"
		}
		rows = append(rows, []string{
			t.Lead.String(),
			fmt.Sprint(len(t.Units)),
			t.Route,
			state,
			t.Throttle.String(),
			t.Departure.String(),
			fmt.Sprintf("%s %d@%.0f", t.TrackSelection, t.Track.SegmentI, t.Track.Distance),
			fmt.Sprintf("%.1f", t.Speed),
		})
	}
	return rows
}

func triggerRows(ts []trigger.Snapshot) []string {
	rows := make([]string, 0, len(ts))
	for _, t := range ts {
		var b strings.Builder
		fmt.Fprintf(&b, "%s/%d", t.Namespace, t.ID)
		if t.Occurrence != "" {
			fmt.Fprintf(&b, " [%s]", t.Occurrence)
		}
		if t.Route != "" {
			fmt.Fprintf(&b, " route=%s", t.Route)
		}
		if !t.Enabled {
			b.WriteString(" (disabled)")
		}
		if t.Summary != "" {
			fmt.Fprintf(&b, ": %s", t.Summary)
		}
		rows = append(rows, b.String())
	}
	return rows
}

// Main runs the dashboard until ctx is done or the user quits with q or C-c.
func Main(ctx context.Context, conf Conf) error {
	err := termui.Init()
	if err != nil {
		return fmt.Errorf("termui init: %w", err)
	}
	defer termui.Close()

	status := widgets.NewParagraph()
	status.Title = "unten"
	status.Text = "waiting for snapshot"
	trains := widgets.NewTable()
	trains.Title = "Trains"
	trains.Rows = [][]string{trainHeader}
	trains.RowSeparator = false
	triggers := widgets.NewList()
	triggers.Title = "Triggers"

	grid := termui.NewGrid()
	w, h := termui.TerminalDimensions()
	grid.SetRect(0, 0, w, h)
	grid.Set(
		termui.NewRow(0.1, termui.NewCol(1, status)),
		termui.NewRow(0.5, termui.NewCol(1, trains)),
		termui.NewRow(0.4, termui.NewCol(1, triggers)),
	)
	termui.Render(grid)

	snapshots := make(chan train.Snapshot)
	conf.Snapshots.Subscribe("ui", snapshots)
	defer conf.Snapshots.Unsubscribe(snapshots)
	var triggerSnapshots chan []trigger.Snapshot
	if conf.Triggers != nil {
		triggerSnapshots = make(chan []trigger.Snapshot)
		conf.Triggers.Subscribe("ui", triggerSnapshots)
		defer conf.Triggers.Unsubscribe(triggerSnapshots)
	}

	events := termui.PollEvents()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			case "<Resize>":
				payload := e.Payload.(termui.Resize)
				grid.SetRect(0, 0, payload.Width, payload.Height)
				termui.Clear()
			case "j", "<Down>":
				triggers.ScrollDown()
			case "k", "<Up>":
				triggers.ScrollUp()
			}
		case snap := <-snapshots:
			status.Text = fmt.Sprintf("t=%s, %d trains", snap.Time, len(snap.Trains))
			trains.Rows = trainRows(snap)
		case ts := <-triggerSnapshots:
			triggers.Rows = triggerRows(ts)
		}
		termui.Render(grid)
	}
}
