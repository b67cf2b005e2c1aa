package toolkit

import (
	"fmt"
	"math"

	"github.com/arcanewizards/arcane/protocol"
)

const SliderButtonKind = "slider_button"
const SwitchKind = "switch"
const TextInputKind = "text-input"

func unhandledMessage(message *protocol.ComponentMessage) error {
	return fmt.Errorf("Unhandled message: %s/%s", message.Namespace, message.Component)
}

func isCoreMessage(message *protocol.ComponentMessage, kind string) bool {
	return message.Namespace == protocol.CoreNamespace && message.Component == kind
}

type GradientStop struct {
	// css color
	Color string `json:"color" yaml:"color"`
	// between 0 and 1
	Position float64 `json:"position" yaml:"position"`
}

type SliderButtonProps struct {
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	Step float64 `yaml:"step"`
	// nil shows no value
	Value    *float64       `yaml:"value"`
	Gradient []GradientStop `yaml:"gradient"`
	// fill the available space
	Grow bool `yaml:"grow"`
}

func (self SliderButtonProps) withDefaults() SliderButtonProps {
	if self.Min == 0 && self.Max == 0 {
		self.Max = 255
	}
	if self.Step <= 0 {
		self.Step = 5
	}
	return self
}

// sanitize snaps the value to a step from `Min` and clamps it to [`Min`, `Max`]
func (self SliderButtonProps) sanitize(value float64) float64 {
	if 0 < self.Step {
		value = self.Min + math.Round((value-self.Min)/self.Step)*self.Step
	}
	return math.Max(self.Min, math.Min(self.Max, value))
}

type SliderChangeFunction = func(value float64, connection *Connection)

type SliderButton struct {
	Base

	props           SliderButtonProps
	changeCallbacks *CallbackList[SliderChangeFunction]
}

func NewSliderButton(props SliderButtonProps) *SliderButton {
	return &SliderButton{
		props:           props.withDefaults(),
		changeCallbacks: NewCallbackList[SliderChangeFunction](),
	}
}

func (self *SliderButton) Props() SliderButtonProps {
	return getProps(&self.props)
}

func (self *SliderButton) SetProps(props SliderButtonProps) {
	setProps(&self.Base, &self.props, props.withDefaults())
}

func (self *SliderButton) UpdateProps(update func(props *SliderButtonProps)) {
	updateProps(&self.Base, &self.props, func(props *SliderButtonProps) {
		update(props)
		*props = props.withDefaults()
	})
}

func (self *SliderButton) SetValue(value float64) *SliderButton {
	self.UpdateProps(func(props *SliderButtonProps) {
		props.Value = &value
	})
	return self
}

func (self *SliderButton) AddChangeCallback(changeCallback SliderChangeFunction) func() {
	callbackId := self.changeCallbacks.Add(changeCallback)
	return func() {
		self.changeCallbacks.Remove(callbackId)
	}
}

type SliderButtonProto struct {
	BaseProto
	Min      float64        `json:"min"`
	Max      float64        `json:"max"`
	Step     float64        `json:"step"`
	Value    *float64       `json:"value,omitempty"`
	Gradient []GradientStop `json:"gradient,omitempty"`
	Grow     bool           `json:"grow,omitempty"`
}

func (self *SliderButton) Proto(idMap *IdMap) any {
	return &SliderButtonProto{
		BaseProto: NewBaseProto(idMap, self, protocol.CoreNamespace, SliderButtonKind),
		Min:       self.props.Min,
		Max:       self.props.Max,
		Step:      self.props.Step,
		Value:     self.props.Value,
		Gradient:  self.props.Gradient,
		Grow:      self.props.Grow,
	}
}

type sliderValueMessage struct {
	Value *float64 `json:"value"`
}

// HandleMessage sets the sanitized value and then runs the change callbacks.
func (self *SliderButton) HandleMessage(message *protocol.ComponentMessage, connection *Connection) error {
	if !isCoreMessage(message, SliderButtonKind) {
		return unhandledMessage(message)
	}
	var valueMessage sliderValueMessage
	if err := message.Decode(&valueMessage); err != nil {
		return err
	}
	if valueMessage.Value == nil {
		return fmt.Errorf("Missing slider value")
	}
	var value float64
	self.UpdateProps(func(props *SliderButtonProps) {
		value = props.sanitize(*valueMessage.Value)
		props.Value = &value
	})
	for _, changeCallback := range self.changeCallbacks.Get() {
		changeCallback(value, connection)
	}
	return nil
}

type SwitchState string

const (
	SwitchStateOn  SwitchState = "on"
	SwitchStateOff SwitchState = "off"
)

type SwitchProps struct {
	State SwitchState `yaml:"state"`
}

func (self SwitchProps) withDefaults() SwitchProps {
	if self.State != SwitchStateOn {
		self.State = SwitchStateOff
	}
	return self
}

type SwitchChangeFunction = func(state SwitchState, connection *Connection)

type Switch struct {
	Base

	props           SwitchProps
	changeCallbacks *CallbackList[SwitchChangeFunction]
}

func NewSwitch(props SwitchProps) *Switch {
	return &Switch{
		props:           props.withDefaults(),
		changeCallbacks: NewCallbackList[SwitchChangeFunction](),
	}
}

func (self *Switch) Props() SwitchProps {
	return getProps(&self.props)
}

func (self *Switch) SetProps(props SwitchProps) {
	setProps(&self.Base, &self.props, props.withDefaults())
}

func (self *Switch) SetState(state SwitchState) *Switch {
	self.SetProps(SwitchProps{State: state})
	return self
}

func (self *Switch) AddChangeCallback(changeCallback SwitchChangeFunction) func() {
	callbackId := self.changeCallbacks.Add(changeCallback)
	return func() {
		self.changeCallbacks.Remove(callbackId)
	}
}

type SwitchProto struct {
	BaseProto
	State string `json:"state"`
}

func (self *Switch) Proto(idMap *IdMap) any {
	return &SwitchProto{
		BaseProto: NewBaseProto(idMap, self, protocol.CoreNamespace, SwitchKind),
		State:     string(self.props.State),
	}
}

// HandleMessage toggles the state and then runs the change callbacks.
func (self *Switch) HandleMessage(message *protocol.ComponentMessage, connection *Connection) error {
	if !isCoreMessage(message, SwitchKind) {
		return unhandledMessage(message)
	}
	_, next := updateProps(&self.Base, &self.props, func(props *SwitchProps) {
		if props.State == SwitchStateOn {
			props.State = SwitchStateOff
		} else {
			props.State = SwitchStateOn
		}
	})
	for _, changeCallback := range self.changeCallbacks.Get() {
		changeCallback(next.State, connection)
	}
	return nil
}

type TextInputProps struct {
	Value string `yaml:"value"`
}

type TextInputChangeFunction = func(value string, connection *Connection)

type TextInput struct {
	Base

	props           TextInputProps
	changeCallbacks *CallbackList[TextInputChangeFunction]
}

func NewTextInput(props TextInputProps) *TextInput {
	return &TextInput{
		props:           props,
		changeCallbacks: NewCallbackList[TextInputChangeFunction](),
	}
}

func (self *TextInput) Props() TextInputProps {
	return getProps(&self.props)
}

func (self *TextInput) SetProps(props TextInputProps) {
	setProps(&self.Base, &self.props, props)
}

func (self *TextInput) SetValue(value string) *TextInput {
	self.SetProps(TextInputProps{Value: value})
	return self
}

func (self *TextInput) AddChangeCallback(changeCallback TextInputChangeFunction) func() {
	callbackId := self.changeCallbacks.Add(changeCallback)
	return func() {
		self.changeCallbacks.Remove(callbackId)
	}
}

type TextInputProto struct {
	BaseProto
	Value string `json:"value"`
}

func (self *TextInput) Proto(idMap *IdMap) any {
	return &TextInputProto{
		BaseProto: NewBaseProto(idMap, self, protocol.CoreNamespace, TextInputKind),
		Value:     self.props.Value,
	}
}

type textInputValueMessage struct {
	Value string `json:"value"`
}

// HandleMessage sets the value and then runs the change callbacks.
func (self *TextInput) HandleMessage(message *protocol.ComponentMessage, connection *Connection) error {
	if !isCoreMessage(message, TextInputKind) {
		return unhandledMessage(message)
	}
	var valueMessage textInputValueMessage
	if err := message.Decode(&valueMessage); err != nil {
		return err
	}
	self.SetValue(valueMessage.Value)
	for _, changeCallback := range self.changeCallbacks.Get() {
		changeCallback(valueMessage.Value, connection)
	}
	return nil
}
