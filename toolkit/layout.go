package toolkit

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arcanewizards/arcane/protocol"
)

/*
A layout describes a component tree in yaml:

	component: group
	props:
	  title: Stage
	children:
	  - component: button
	    name: go
	    props:
	      text: Go

`namespace` defaults to core. `name` registers the component in `Layout.Named`
so that application code can attach callbacks.
*/

type layoutNode struct {
	Namespace string        `yaml:"namespace"`
	Component string        `yaml:"component"`
	Name      string        `yaml:"name"`
	Props     yaml.Node     `yaml:"props"`
	Children  []*layoutNode `yaml:"children"`

	line int
}

func (self *layoutNode) UnmarshalYAML(value *yaml.Node) error {
	type plain layoutNode
	if err := value.Decode((*plain)(self)); err != nil {
		return err
	}
	self.line = value.Line
	return nil
}

type Layout struct {
	Root  Component
	Named map[string]Component
}

func LoadLayoutFile(registry *KindRegistry, path string) (*Layout, error) {
	layoutBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadLayout(registry, layoutBytes)
}

// LoadLayout builds a detached tree from the yaml layout.
func LoadLayout(registry *KindRegistry, layoutBytes []byte) (*Layout, error) {
	var root layoutNode
	if err := yaml.Unmarshal(layoutBytes, &root); err != nil {
		return nil, err
	}
	layout := &Layout{
		Named: map[string]Component{},
	}
	component, err := layout.build(registry, &root)
	if err != nil {
		return nil, err
	}
	layout.Root = component
	return layout, nil
}

func (self *Layout) build(registry *KindRegistry, node *layoutNode) (Component, error) {
	namespace := node.Namespace
	if namespace == "" {
		namespace = protocol.CoreNamespace
	}
	kindInfo, ok := registry.Get(namespace, node.Component)
	if !ok {
		return nil, fmt.Errorf("line %d: unknown component %s/%s", node.line, namespace, node.Component)
	}
	// a zero node is an absent `props`
	var props *yaml.Node
	if node.Props.Kind != 0 {
		props = &node.Props
	}
	component, err := kindInfo.New(props)
	if err != nil {
		return nil, fmt.Errorf("line %d: %s/%s props: %w", node.line, namespace, node.Component, err)
	}

	if 0 < len(node.Children) {
		parent, ok := component.(ParentComponent)
		if !ok {
			return nil, fmt.Errorf("line %d: %w", node.line, structuralErrorf("%s/%s does not accept children", namespace, node.Component))
		}
		children := make([]Component, 0, len(node.Children))
		for _, childNode := range node.Children {
			child, err := self.build(registry, childNode)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if err := parent.AsParent().AddChildren(children...); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.line, err)
		}
	}

	if node.Name != "" {
		if _, ok := self.Named[node.Name]; ok {
			return nil, fmt.Errorf("line %d: duplicate name %s", node.line, node.Name)
		}
		self.Named[node.Name] = component
	}
	return component, nil
}

// LayoutComponent returns the named component as `C`.
func LayoutComponent[C Component](layout *Layout, name string) (C, error) {
	var c C
	component, ok := layout.Named[name]
	if !ok {
		return c, fmt.Errorf("no component named %s", name)
	}
	c, ok = component.(C)
	if !ok {
		return c, fmt.Errorf("component %s is %T", name, component)
	}
	return c, nil
}
