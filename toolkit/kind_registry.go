package toolkit

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/arcanewizards/arcane/protocol"
)

// KindInfo describes how to build a component kind from a layout.
type KindInfo struct {
	Namespace string
	Component string
	// builds a detached component. `props` is nil when the layout sets no props.
	New func(props *yaml.Node) (Component, error)
}

type kindKey struct {
	namespace string
	component string
}

// KindRegistry maps (namespace, component) to the kind that builds it.
type KindRegistry struct {
	stateLock sync.Mutex
	kinds     map[kindKey]*KindInfo
}

func NewKindRegistry() *KindRegistry {
	return &KindRegistry{
		kinds: map[kindKey]*KindInfo{},
	}
}

// NewCoreKindRegistry returns a registry with the core kinds.
func NewCoreKindRegistry() *KindRegistry {
	registry := NewKindRegistry()
	RegisterCoreKinds(registry)
	return registry
}

func (self *KindRegistry) Register(kindInfo *KindInfo) error {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	key := kindKey{
		namespace: kindInfo.Namespace,
		component: kindInfo.Component,
	}
	if _, ok := self.kinds[key]; ok {
		return fmt.Errorf("Kind already registered: %s/%s", kindInfo.Namespace, kindInfo.Component)
	}
	self.kinds[key] = kindInfo
	return nil
}

func (self *KindRegistry) Get(namespace string, component string) (*KindInfo, bool) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	kindInfo, ok := self.kinds[kindKey{
		namespace: namespace,
		component: component,
	}]
	return kindInfo, ok
}

// Kinds lists the registered kinds ordered by namespace then component.
func (self *KindRegistry) Kinds() []*KindInfo {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	kinds := make([]*KindInfo, 0, len(self.kinds))
	for _, kindInfo := range self.kinds {
		kinds = append(kinds, kindInfo)
	}
	slices.SortFunc(kinds, func(a *KindInfo, b *KindInfo) int {
		if c := strings.Compare(a.Namespace, b.Namespace); c != 0 {
			return c
		}
		return strings.Compare(a.Component, b.Component)
	})
	return kinds
}

// newKind decodes the props node into `P` and builds the component.
func newKind[P any](build func(props P) Component) func(props *yaml.Node) (Component, error) {
	return func(propsNode *yaml.Node) (Component, error) {
		var props P
		if propsNode != nil && propsNode.Kind != 0 {
			if err := propsNode.Decode(&props); err != nil {
				return nil, err
			}
		}
		return build(props), nil
	}
}

func RegisterCoreKinds(registry *KindRegistry) {
	core := func(component string, build func(props *yaml.Node) (Component, error)) {
		err := registry.Register(&KindInfo{
			Namespace: protocol.CoreNamespace,
			Component: component,
			New:       build,
		})
		if err != nil {
			panic(err)
		}
	}

	core(GroupKind, newKind(func(props GroupProps) Component {
		return NewGroup(props)
	}))
	core(LabelKind, newKind(func(props LabelProps) Component {
		return NewLabel(props)
	}))
	core(RectKind, newKind(func(props RectProps) Component {
		return NewRect(props)
	}))
	core(ButtonKind, newKind(func(props ButtonProps) Component {
		return NewButton(props)
	}))
	core(SliderButtonKind, newKind(func(props SliderButtonProps) Component {
		return NewSliderButton(props)
	}))
	core(SwitchKind, newKind(func(props SwitchProps) Component {
		return NewSwitch(props)
	}))
	core(TextInputKind, newKind(func(props TextInputProps) Component {
		return NewTextInput(props)
	}))
	core(TabsKind, newKind(func(props struct{}) Component {
		return NewTabs()
	}))
	core(TabKind, newKind(func(props TabProps) Component {
		return NewTab(props)
	}))
	core(TimelineKind, newKind(func(props TimelineProps) Component {
		return NewTimeline(props)
	}))
}
