package main

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/arcanewizards/arcane/toolkit"
)

const demoCueMillis = 30 * 1000

// demo is a small cue desk that exercises every core kind.
type demo struct {
	ctx context.Context

	root        *toolkit.Group
	connections *toolkit.Label
	cue         *toolkit.Label
	level       *toolkit.Rect
	timeline    *toolkit.Timeline

	stateLock sync.Mutex
	cueNumber int
	startTime time.Time
	blackout  bool
}

func newDemo(ctx context.Context, tk *toolkit.Toolkit) *demo {
	demo := &demo{
		ctx: ctx,
		root: toolkit.NewGroup(toolkit.GroupProps{
			Title:         "Arcane",
			Direction:     toolkit.GroupDirectionVertical,
			EditableTitle: true,
		}),
		connections: toolkit.NewLabel(toolkit.LabelProps{Text: "0 viewers"}),
		cue:         toolkit.NewLabel(toolkit.LabelProps{Text: "Cue 0", Bold: true}),
		level:       toolkit.NewRect(toolkit.RectProps{Color: levelColor(0), Grow: true}),
		timeline: toolkit.NewTimeline(toolkit.TimelineProps{
			Title:  "Cue",
			Source: &toolkit.TimelineSource{Name: "arcaned"},
			State:  toolkit.StoppedTimelineState(demoCueMillis, 0),
		}),
	}

	goButton := toolkit.NewButton(toolkit.ButtonProps{Text: "Go", Icon: "play_arrow"})
	goButton.AddClickCallback(func(connection *toolkit.Connection) error {
		return demo.goCue()
	})

	initialLevel := float64(0)
	dimmer := toolkit.NewSliderButton(toolkit.SliderButtonProps{
		Max:   100,
		Step:  1,
		Value: &initialLevel,
		Gradient: []toolkit.GradientStop{
			{Color: "#000000", Position: 0},
			{Color: "#ffffff", Position: 1},
		},
	})
	dimmer.AddChangeCallback(func(value float64, connection *toolkit.Connection) {
		demo.level.SetColor(levelColor(value))
	})

	blackout := toolkit.NewSwitch(toolkit.SwitchProps{})
	blackout.AddChangeCallback(func(state toolkit.SwitchState, connection *toolkit.Connection) {
		demo.setBlackout(state == toolkit.SwitchStateOn, goButton)
	})

	notes := toolkit.NewTextInput(toolkit.TextInputProps{})
	notes.AddChangeCallback(func(value string, connection *toolkit.Connection) {
		glog.V(toolkit.LogLevelEvent).Infof("[demo]notes %q\n", value)
	})

	controls := toolkit.NewGroup(toolkit.GroupProps{
		Title:  "Controls",
		Border: true,
		Wrap:   true,
	})
	controls.AddChildren(goButton, blackout, demo.cue)

	levels := toolkit.NewGroup(toolkit.GroupProps{
		Title:                   "Dimmer",
		Labels:                  []string{"master"},
		DefaultCollapsibleState: toolkit.GroupCollapsibleAuto,
	})
	levels.AddChildren(dimmer, demo.level)

	tabs := toolkit.NewTabs()
	tabs.AddTab("Levels", levels)
	tabs.AddTab("Notes", notes)

	demo.root.AddChildren(demo.connections, controls, demo.timeline, tabs)
	demo.root.AddTitleChangedCallback(func(title string, connection *toolkit.Connection) {
		glog.V(toolkit.LogLevelEvent).Infof("[demo]title %q\n", title)
	})

	updateConnections := func(connection *toolkit.Connection) {
		demo.connections.SetText(fmt.Sprintf("%d viewers", len(tk.Connections())))
	}
	tk.AddConnectionCallback(updateConnections)
	tk.AddDisconnectionCallback(updateConnections)

	go demo.run()
	return demo
}

func (self *demo) goCue() error {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if self.blackout {
		return fmt.Errorf("Blackout is on")
	}
	self.cueNumber += 1
	self.startTime = time.Now()
	self.cue.SetText(fmt.Sprintf("Cue %d", self.cueNumber))
	self.timeline.SetState(toolkit.PlayingTimelineState(demoCueMillis, self.startTime, 1))
	return nil
}

func (self *demo) setBlackout(blackout bool, goButton *toolkit.Button) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	self.blackout = blackout
	if blackout {
		goButton.SetError("Blackout")
		if !self.startTime.IsZero() {
			elapsed := min(time.Since(self.startTime).Milliseconds(), demoCueMillis)
			self.timeline.SetState(toolkit.StoppedTimelineState(demoCueMillis, elapsed))
			self.startTime = time.Time{}
		}
	} else {
		goButton.SetMode(toolkit.ButtonModeNormal)
	}
}

// run stops the timeline when the cue completes
func (self *demo) run() {
	for {
		select {
		case <-self.ctx.Done():
			return
		case <-time.After(time.Second):
		}

		func() {
			self.stateLock.Lock()
			defer self.stateLock.Unlock()

			if !self.startTime.IsZero() && demoCueMillis <= time.Since(self.startTime).Milliseconds() {
				self.startTime = time.Time{}
				self.timeline.SetState(toolkit.StoppedTimelineState(demoCueMillis, demoCueMillis))
			}
		}()
	}
}

// grey level for a dimmer value in [0, 100]
func levelColor(value float64) string {
	level := int(value * 255 / 100)
	hex := strconv.FormatInt(int64(level), 16)
	if len(hex) < 2 {
		hex = "0" + hex
	}
	return "#" + hex + hex + hex
}
