package toolkit

import (
	"encoding/json"
	"time"

	"github.com/arcanewizards/arcane/protocol"
)

const TimelineKind = "timeline"

// TimelineState is either playing or stopped.
// A playing timeline is extrapolated by viewers from `EffectiveStartTime` and `Speed`.
type TimelineState struct {
	Playing         bool
	TotalTimeMillis int64
	// playing
	EffectiveStartTime time.Time
	Speed              float64
	// stopped
	CurrentTimeMillis int64
}

func PlayingTimelineState(totalTimeMillis int64, effectiveStartTime time.Time, speed float64) TimelineState {
	return TimelineState{
		Playing:            true,
		TotalTimeMillis:    totalTimeMillis,
		EffectiveStartTime: effectiveStartTime,
		Speed:              speed,
	}
}

func StoppedTimelineState(totalTimeMillis int64, currentTimeMillis int64) TimelineState {
	return TimelineState{
		TotalTimeMillis:   totalTimeMillis,
		CurrentTimeMillis: currentTimeMillis,
	}
}

type playingTimelineStateJson struct {
	State              string  `json:"state"`
	TotalTimeMillis    int64   `json:"totalTimeMillis"`
	EffectiveStartTime int64   `json:"effectiveStartTime"`
	Speed              float64 `json:"speed"`
}

type stoppedTimelineStateJson struct {
	State             string `json:"state"`
	TotalTimeMillis   int64  `json:"totalTimeMillis"`
	CurrentTimeMillis int64  `json:"currentTimeMillis"`
}

func (self TimelineState) MarshalJSON() ([]byte, error) {
	if self.Playing {
		return json.Marshal(&playingTimelineStateJson{
			State:              "playing",
			TotalTimeMillis:    self.TotalTimeMillis,
			EffectiveStartTime: self.EffectiveStartTime.UnixMilli(),
			Speed:              self.Speed,
		})
	}
	return json.Marshal(&stoppedTimelineStateJson{
		State:             "stopped",
		TotalTimeMillis:   self.TotalTimeMillis,
		CurrentTimeMillis: self.CurrentTimeMillis,
	})
}

type TimelineSource struct {
	Name string `json:"name" yaml:"name"`
}

type TimelineProps struct {
	Title     string          `yaml:"title"`
	Subtitles []string        `yaml:"subtitles"`
	Source    *TimelineSource `yaml:"source"`
	State     TimelineState   `yaml:"-"`
}

// Timeline displays playback progress. Viewers cannot change it.
type Timeline struct {
	Base

	props TimelineProps
}

func NewTimeline(props TimelineProps) *Timeline {
	return &Timeline{
		props: props,
	}
}

func (self *Timeline) Props() TimelineProps {
	return getProps(&self.props)
}

func (self *Timeline) SetProps(props TimelineProps) {
	setProps(&self.Base, &self.props, props)
}

func (self *Timeline) UpdateProps(update func(props *TimelineProps)) {
	updateProps(&self.Base, &self.props, update)
}

func (self *Timeline) SetState(state TimelineState) *Timeline {
	self.UpdateProps(func(props *TimelineProps) {
		props.State = state
	})
	return self
}

type TimelineProto struct {
	BaseProto
	Title     string          `json:"title,omitempty"`
	Subtitles []string        `json:"subtitles,omitempty"`
	Source    *TimelineSource `json:"source,omitempty"`
	State     TimelineState   `json:"state"`
}

func (self *Timeline) Proto(idMap *IdMap) any {
	return &TimelineProto{
		BaseProto: NewBaseProto(idMap, self, protocol.CoreNamespace, TimelineKind),
		Title:     self.props.Title,
		Subtitles: self.props.Subtitles,
		Source:    self.props.Source,
		State:     self.props.State,
	}
}
