package toolkit

import (
	"fmt"

	"github.com/arcanewizards/arcane/protocol"
)

const ButtonKind = "button"

const ButtonPressAction = "press"

type ButtonMode string

const (
	ButtonModeNormal  ButtonMode = "normal"
	ButtonModePressed ButtonMode = "pressed"
)

type ButtonProps struct {
	Text string     `yaml:"text"`
	Icon string     `yaml:"icon"`
	Mode ButtonMode `yaml:"mode"`
	// when set the button shows an error state instead of its mode
	Error string `yaml:"error"`
}

func (self ButtonProps) withDefaults() ButtonProps {
	if self.Mode == "" {
		self.Mode = ButtonModeNormal
	}
	return self
}

// an error rejects the press call
type ClickFunction = func(connection *Connection) error

type Button struct {
	Base

	props          ButtonProps
	clickCallbacks *CallbackList[ClickFunction]
}

func NewButton(props ButtonProps) *Button {
	return &Button{
		props:          props.withDefaults(),
		clickCallbacks: NewCallbackList[ClickFunction](),
	}
}

func (self *Button) Props() ButtonProps {
	return getProps(&self.props)
}

func (self *Button) SetProps(props ButtonProps) {
	setProps(&self.Base, &self.props, props.withDefaults())
}

func (self *Button) UpdateProps(update func(props *ButtonProps)) {
	updateProps(&self.Base, &self.props, func(props *ButtonProps) {
		update(props)
		*props = props.withDefaults()
	})
}

func (self *Button) SetText(text string) *Button {
	self.UpdateProps(func(props *ButtonProps) {
		props.Text = text
	})
	return self
}

func (self *Button) SetIcon(icon string) *Button {
	self.UpdateProps(func(props *ButtonProps) {
		props.Icon = icon
	})
	return self
}

// SetMode sets the mode and clears any error.
func (self *Button) SetMode(mode ButtonMode) *Button {
	self.UpdateProps(func(props *ButtonProps) {
		props.Mode = mode
		props.Error = ""
	})
	return self
}

func (self *Button) SetError(errorMessage string) *Button {
	self.UpdateProps(func(props *ButtonProps) {
		props.Error = errorMessage
	})
	return self
}

func (self *Button) AddClickCallback(clickCallback ClickFunction) func() {
	callbackId := self.clickCallbacks.Add(clickCallback)
	return func() {
		self.clickCallbacks.Remove(callbackId)
	}
}

type ButtonState struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

type ButtonProto struct {
	BaseProto
	Text  string      `json:"text"`
	Icon  string      `json:"icon,omitempty"`
	State ButtonState `json:"state"`
}

func (self *Button) Proto(idMap *IdMap) any {
	state := ButtonState{
		State: string(self.props.Mode),
	}
	if self.props.Error != "" {
		state = ButtonState{
			State: "error",
			Error: self.props.Error,
		}
	}
	return &ButtonProto{
		BaseProto: NewBaseProto(idMap, self, protocol.CoreNamespace, ButtonKind),
		Text:      self.props.Text,
		Icon:      self.props.Icon,
		State:     state,
	}
}

// HandleCall runs the click callbacks in order for a press, and returns true.
func (self *Button) HandleCall(call *protocol.ComponentCall, connection *Connection) (any, error) {
	if call.Namespace != protocol.CoreNamespace || call.Action != ButtonPressAction {
		return nil, fmt.Errorf("Unhandled call action: %s", call.Action)
	}
	for _, clickCallback := range self.clickCallbacks.Get() {
		if err := clickCallback(connection); err != nil {
			return nil, err
		}
	}
	return true, nil
}
