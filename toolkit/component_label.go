package toolkit

import (
	"github.com/arcanewizards/arcane/protocol"
)

const LabelKind = "label"
const RectKind = "rect"

type LabelProps struct {
	Text string `yaml:"text"`
	Bold bool   `yaml:"bold"`
}

type Label struct {
	Base

	props LabelProps
}

func NewLabel(props LabelProps) *Label {
	return &Label{
		props: props,
	}
}

func (self *Label) Props() LabelProps {
	return getProps(&self.props)
}

func (self *Label) SetProps(props LabelProps) {
	setProps(&self.Base, &self.props, props)
}

func (self *Label) SetText(text string) *Label {
	updateProps(&self.Base, &self.props, func(props *LabelProps) {
		props.Text = text
	})
	return self
}

type LabelProto struct {
	BaseProto
	Bold bool   `json:"bold,omitempty"`
	Text string `json:"text"`
}

func (self *Label) Proto(idMap *IdMap) any {
	return &LabelProto{
		BaseProto: NewBaseProto(idMap, self, protocol.CoreNamespace, LabelKind),
		Bold:      self.props.Bold,
		Text:      self.props.Text,
	}
}

type RectProps struct {
	// css color
	Color string `yaml:"color"`
	// fill the available space
	Grow bool `yaml:"grow"`
}

type Rect struct {
	Base

	props RectProps
}

func NewRect(props RectProps) *Rect {
	return &Rect{
		props: props,
	}
}

func (self *Rect) Props() RectProps {
	return getProps(&self.props)
}

func (self *Rect) SetProps(props RectProps) {
	setProps(&self.Base, &self.props, props)
}

func (self *Rect) SetColor(color string) *Rect {
	updateProps(&self.Base, &self.props, func(props *RectProps) {
		props.Color = color
	})
	return self
}

type RectProto struct {
	BaseProto
	Color string `json:"color"`
	Grow  bool   `json:"grow,omitempty"`
}

func (self *Rect) Proto(idMap *IdMap) any {
	return &RectProto{
		BaseProto: NewBaseProto(idMap, self, protocol.CoreNamespace, RectKind),
		Color:     self.props.Color,
		Grow:      self.props.Grow,
	}
}
