package toolkit

import (
	"errors"
	"fmt"

	"github.com/arcanewizards/arcane/protocol"
)

const GroupKind = "group"

type GroupDirection string

const (
	GroupDirectionHorizontal GroupDirection = "horizontal"
	GroupDirectionVertical   GroupDirection = "vertical"
)

// "open", "closed", or "auto". Empty means the group cannot be collapsed.
type GroupCollapsibleState string

const (
	GroupCollapsibleOpen   GroupCollapsibleState = "open"
	GroupCollapsibleClosed GroupCollapsibleState = "closed"
	GroupCollapsibleAuto   GroupCollapsibleState = "auto"
)

type GroupProps struct {
	Title                   string                `yaml:"title"`
	Direction               GroupDirection        `yaml:"direction"`
	Border                  bool                  `yaml:"border"`
	Wrap                    bool                  `yaml:"wrap"`
	Labels                  []string              `yaml:"labels"`
	EditableTitle           bool                  `yaml:"editableTitle"`
	DefaultCollapsibleState GroupCollapsibleState `yaml:"defaultCollapsibleState"`
}

func (self GroupProps) withDefaults() GroupProps {
	if self.Direction == "" {
		self.Direction = GroupDirectionHorizontal
	}
	return self
}

type TitleChangedFunction = func(title string, connection *Connection)

// Group is the general purpose composite. It accepts any children.
type Group struct {
	BaseParent

	props                 GroupProps
	titleChangedCallbacks *CallbackList[TitleChangedFunction]
}

func NewGroup(props GroupProps) *Group {
	group := &Group{
		props:                 props.withDefaults(),
		titleChangedCallbacks: NewCallbackList[TitleChangedFunction](),
	}
	group.InitParent(group)
	return group
}

func (self *Group) Props() GroupProps {
	return getProps(&self.props)
}

func (self *Group) SetProps(props GroupProps) {
	setProps(&self.Base, &self.props, props.withDefaults())
}

func (self *Group) UpdateProps(update func(props *GroupProps)) {
	updateProps(&self.Base, &self.props, func(props *GroupProps) {
		update(props)
		*props = props.withDefaults()
	})
}

func (self *Group) SetTitle(title string) *Group {
	self.UpdateProps(func(props *GroupProps) {
		props.Title = title
	})
	return self
}

func (self *Group) AddLabel(text string) *Group {
	self.UpdateProps(func(props *GroupProps) {
		props.Labels = append(append([]string{}, props.Labels...), text)
	})
	return self
}

// AddTitleChangedCallback observes titles entered by viewers. The group does not change its own title.
func (self *Group) AddTitleChangedCallback(titleChangedCallback TitleChangedFunction) func() {
	callbackId := self.titleChangedCallbacks.Add(titleChangedCallback)
	return func() {
		self.titleChangedCallbacks.Remove(callbackId)
	}
}

type GroupLabel struct {
	Text string `json:"text"`
}

type GroupProto struct {
	BaseProto
	Title                   string       `json:"title,omitempty"`
	Direction               string       `json:"direction"`
	Border                  bool         `json:"border,omitempty"`
	Wrap                    bool         `json:"wrap,omitempty"`
	Labels                  []GroupLabel `json:"labels,omitempty"`
	EditableTitle           bool         `json:"editableTitle"`
	DefaultCollapsibleState string       `json:"defaultCollapsibleState,omitempty"`
	Children                []any        `json:"children"`
}

func (self *Group) Proto(idMap *IdMap) any {
	proto := &GroupProto{
		BaseProto:               NewBaseProto(idMap, self, protocol.CoreNamespace, GroupKind),
		Title:                   self.props.Title,
		Direction:               string(self.props.Direction),
		Border:                  self.props.Border,
		Wrap:                    self.props.Wrap,
		EditableTitle:           self.props.EditableTitle,
		DefaultCollapsibleState: string(self.props.DefaultCollapsibleState),
		Children:                self.ChildProtos(idMap),
	}
	for _, label := range self.props.Labels {
		proto.Labels = append(proto.Labels, GroupLabel{Text: label})
	}
	return proto
}

type groupTitleMessage struct {
	Title string `json:"title"`
}

func (self *Group) HandleMessage(message *protocol.ComponentMessage, connection *Connection) error {
	if message.Namespace != protocol.CoreNamespace || message.Component != GroupKind {
		return fmt.Errorf("Unhandled message: %s/%s", message.Namespace, message.Component)
	}
	if !self.Props().EditableTitle {
		return errors.New("Group title is not editable")
	}
	var titleMessage groupTitleMessage
	if err := message.Decode(&titleMessage); err != nil {
		return err
	}
	for _, titleChangedCallback := range self.titleChangedCallbacks.Get() {
		titleChangedCallback(titleMessage.Title, connection)
	}
	return nil
}
