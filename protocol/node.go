package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Node is a decoded snapshot node, for viewers that inspect the tree
// without knowing the component kinds.
type Node struct {
	Key       int64
	Namespace string
	Component string
	// kind-specific members, numbers are `json.Number`
	Fields   map[string]any
	Children []*Node
}

// ParseSnapshot decodes a snapshot into a tree of `Node`.
func ParseSnapshot(snapshot Snapshot) (*Node, error) {
	decoder := json.NewDecoder(bytes.NewReader(snapshot))
	decoder.UseNumber()
	var root map[string]any
	if err := decoder.Decode(&root); err != nil {
		return nil, err
	}
	if root == nil {
		return nil, nil
	}
	return parseNode(root)
}

func parseNode(object map[string]any) (*Node, error) {
	node := &Node{
		Fields: map[string]any{},
	}
	for name, value := range object {
		switch name {
		case "key":
			number, ok := value.(json.Number)
			if !ok {
				return nil, fmt.Errorf("key must be a number: %v", value)
			}
			key, err := number.Int64()
			if err != nil {
				return nil, err
			}
			node.Key = key
		case "namespace":
			node.Namespace, _ = value.(string)
		case "component":
			node.Component, _ = value.(string)
		case "children":
			children, ok := value.([]any)
			if !ok {
				return nil, fmt.Errorf("children must be an array")
			}
			for _, child := range children {
				childObject, ok := child.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("child must be an object")
				}
				childNode, err := parseNode(childObject)
				if err != nil {
					return nil, err
				}
				node.Children = append(node.Children, childNode)
			}
		default:
			node.Fields[name] = value
		}
	}
	return node, nil
}

// Walk visits the node and its descendants in depth-first order.
// Returning false from `visit` skips the children of that node.
func (self *Node) Walk(visit func(node *Node, depth int) bool) {
	self.walk(visit, 0)
}

func (self *Node) walk(visit func(node *Node, depth int) bool, depth int) {
	if !visit(self, depth) {
		return
	}
	for _, child := range self.Children {
		child.walk(visit, depth+1)
	}
}

// Find returns the node with the given key, or nil.
func (self *Node) Find(key int64) *Node {
	var match *Node
	self.Walk(func(node *Node, depth int) bool {
		if match != nil {
			return false
		}
		if node.Key == key {
			match = node
			return false
		}
		return true
	})
	return match
}

// String returns the field as a string, or "" when absent.
func (self *Node) String(name string) string {
	s, _ := self.Fields[name].(string)
	return s
}
