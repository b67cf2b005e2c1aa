package toolkit

import (
	"github.com/arcanewizards/arcane/protocol"
)

const TabsKind = "tabs"
const TabKind = "tab"

var ErrTabsChild = &StructuralError{Message: "tabs can only contain tab children"}
var ErrTabChild = &StructuralError{Message: "tab can only contain a single child"}

// Tabs shows one of its tabs at a time. Every child must be a `*Tab`.
type Tabs struct {
	BaseParent
}

func NewTabs() *Tabs {
	tabs := &Tabs{}
	tabs.InitParent(tabs)
	return tabs
}

func (self *Tabs) ValidateChildren(children []Component) error {
	for _, child := range children {
		if _, ok := child.(*Tab); !ok {
			return ErrTabsChild
		}
	}
	return nil
}

// AddTab appends a new tab with the given name and content. `content` may be nil.
func (self *Tabs) AddTab(name string, content Component) (*Tab, error) {
	tab := NewTab(TabProps{Name: name})
	if content != nil {
		if err := tab.SetChild(content); err != nil {
			return nil, err
		}
	}
	if err := self.AddChild(tab); err != nil {
		return nil, err
	}
	return tab, nil
}

type TabsProto struct {
	BaseProto
	Children []any `json:"children"`
}

func (self *Tabs) Proto(idMap *IdMap) any {
	return &TabsProto{
		BaseProto: NewBaseProto(idMap, self, protocol.CoreNamespace, TabsKind),
		Children:  self.ChildProtos(idMap),
	}
}

type TabProps struct {
	Name string `yaml:"name"`
}

// Tab is a named page of a `Tabs`. It holds at most one child.
type Tab struct {
	BaseParent

	props TabProps
}

func NewTab(props TabProps) *Tab {
	tab := &Tab{
		props: props,
	}
	tab.InitParent(tab)
	return tab
}

func (self *Tab) Props() TabProps {
	return getProps(&self.props)
}

func (self *Tab) SetProps(props TabProps) {
	setProps(&self.Base, &self.props, props)
}

func (self *Tab) SetName(name string) *Tab {
	self.SetProps(TabProps{Name: name})
	return self
}

func (self *Tab) ValidateChildren(children []Component) error {
	if 1 < len(children) {
		return ErrTabChild
	}
	return nil
}

// SetChild replaces the content of the tab. The previous content is detached.
func (self *Tab) SetChild(child Component) error {
	return self.restructure([]Component{child}, func(current []Component, moving []Component) []Component {
		return moving
	})
}

type TabProto struct {
	BaseProto
	Name     string `json:"name"`
	Children []any  `json:"children"`
}

func (self *Tab) Proto(idMap *IdMap) any {
	return &TabProto{
		BaseProto: NewBaseProto(idMap, self, protocol.CoreNamespace, TabKind),
		Name:      self.props.Name,
		Children:  self.ChildProtos(idMap),
	}
}
