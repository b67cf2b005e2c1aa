package toolkit

import (
	"slices"
	"sync"

	"github.com/arcanewizards/arcane/protocol"
)

/*
Components form an ownership tree:
- a component has at most one parent, and the parent graph is acyclic
- composites own an ordered list of children, replaced as a whole on every change
- props are a value, replaced as a whole on every change
- every change notifies the root holder (the `Toolkit`), which is the only part that knows about sessions

All component graphs share `treeLock`. Mutations validate and commit under the write lock
and notify after unlocking. Serialization and routing lookups hold the read lock.
Handlers and listeners never run under the lock, so they may mutate the tree.
*/

var treeLock sync.RWMutex

// Component is the capability set that every component kind implements.
// Kinds embed `Base` (leaf) or `BaseParent` (composite).
type Component interface {
	AsBase() *Base

	// Proto returns the wire representation of the component, a json-encodable value.
	// It is called with the tree lock held for read, so it must read props directly
	// and must not call the locking accessors (`Props`, `Children`, ...).
	// Optional members must be omitted rather than encoded as null.
	Proto(idMap *IdMap) any

	// HandleMessage handles a fire-and-forget message addressed to this component.
	HandleMessage(message *protocol.ComponentMessage, connection *Connection) error

	// HandleCall handles a call addressed to this component. The result is encoded as the call return value.
	HandleCall(call *protocol.ComponentCall, connection *Connection) (any, error)
}

// ParentComponent is a composite component.
type ParentComponent interface {
	Component

	AsParent() *BaseParent

	// ValidateChildren is called with the prospective child list before any structural change is committed.
	// A non-nil error rejects the change.
	ValidateChildren(children []Component) error
}

// holder of a component, either a `*BaseParent` or a root holder
type parent interface {
	// must be called with `treeLock` held
	removeChildLocked(child *Base)
}

// the top of the tree
type rootHolder interface {
	parent
	treeChanged()
}

// Base is the tree state of every component.
type Base struct {
	parent parent
}

func (self *Base) AsBase() *Base {
	return self
}

// Parent returns the composite that owns this component,
// or nil if the component is detached or is the root.
func (self *Base) Parent() ParentComponent {
	treeLock.RLock()
	defer treeLock.RUnlock()

	if p, ok := self.parent.(*BaseParent); ok {
		return p.this
	}
	return nil
}

// Attached is true if the component has a parent or is held as a root.
func (self *Base) Attached() bool {
	treeLock.RLock()
	defer treeLock.RUnlock()

	return self.parent != nil
}

// Detach removes the component from its parent or root holder.
func (self *Base) Detach() {
	var root rootHolder
	func() {
		treeLock.Lock()
		defer treeLock.Unlock()

		if self.parent == nil {
			return
		}
		root = self.rootLocked()
		self.parent.removeChildLocked(self)
		self.parent = nil
	}()
	notifyTreeChanged(root)
}

// HandleMessage ignores the message by default.
func (self *Base) HandleMessage(message *protocol.ComponentMessage, connection *Connection) error {
	return nil
}

// HandleCall rejects the call by default.
func (self *Base) HandleCall(call *protocol.ComponentCall, connection *Connection) (any, error) {
	return nil, ErrCallNotHandled
}

// must be called with `treeLock` held
func (self *Base) rootLocked() rootHolder {
	p := self.parent
	for p != nil {
		switch v := p.(type) {
		case *BaseParent:
			p = v.parent
		case rootHolder:
			return v
		default:
			return nil
		}
	}
	return nil
}

// UpdateTree notifies the root holder, if any, that the tree changed.
// Kinds call it after changing state that is serialized but is not props.
func (self *Base) UpdateTree() {
	var root rootHolder
	func() {
		treeLock.RLock()
		defer treeLock.RUnlock()
		root = self.rootLocked()
	}()
	notifyTreeChanged(root)
}

func notifyTreeChanged(roots ...rootHolder) {
	for i, root := range roots {
		if root == nil || slices.Index(roots[:i], root) >= 0 {
			continue
		}
		root.treeChanged()
	}
}

// BaseParent is the tree state of every composite component.
type BaseParent struct {
	Base

	this     ParentComponent
	children []Component
}

// InitParent must be called by composite constructors, with the outer component.
// It routes validation to the outer `ValidateChildren`.
func (self *BaseParent) InitParent(this ParentComponent) {
	self.this = this
}

func (self *BaseParent) AsParent() *BaseParent {
	return self
}

// ValidateChildren accepts any children by default.
func (self *BaseParent) ValidateChildren(children []Component) error {
	return nil
}

// Children returns the current child list. The slice must not be modified.
func (self *BaseParent) Children() []Component {
	treeLock.RLock()
	defer treeLock.RUnlock()

	return self.children
}

// must be called with `treeLock` held
func (self *BaseParent) childrenLocked() []Component {
	return self.children
}

// ChildProtos serializes the children in order. Call from `Proto`.
func (self *BaseParent) ChildProtos(idMap *IdMap) []any {
	protos := make([]any, 0, len(self.children))
	for _, child := range self.children {
		protos = append(protos, child.Proto(idMap))
	}
	return protos
}

// AddChild appends the child. A child already in the list is moved to the end.
// A child owned by another parent is moved here.
func (self *BaseParent) AddChild(child Component) error {
	return self.AddChildren(child)
}

// AddChildren appends the children, as one structural change.
func (self *BaseParent) AddChildren(children ...Component) error {
	return self.restructure(children, func(current []Component, moving []Component) []Component {
		next := withoutComponents(current, moving)
		return append(next, moving...)
	})
}

// InsertBefore inserts the child before `before`. If `before` is not a child, the child is appended.
func (self *BaseParent) InsertBefore(child Component, before Component) error {
	return self.restructure([]Component{child}, func(current []Component, moving []Component) []Component {
		next := withoutComponents(current, moving)
		i := -1
		if before != nil {
			i = indexOfComponent(next, before)
		}
		if i < 0 {
			return append(next, child)
		}
		return slices.Insert(next, i, child)
	})
}

// RemoveChild removes the child and clears its parent. Removing a component that is not a child does nothing.
func (self *BaseParent) RemoveChild(child Component) error {
	if child == nil {
		return ErrNilChild
	}
	var root rootHolder
	changed := false
	err := func() error {
		treeLock.Lock()
		defer treeLock.Unlock()

		i := indexOfComponent(self.children, child)
		if i < 0 {
			return nil
		}
		next := slices.Delete(slices.Clone(self.children), i, i+1)
		if err := self.validateLocked(next); err != nil {
			return err
		}
		self.children = next
		child.AsBase().parent = nil
		root = self.rootLocked()
		changed = true
		return nil
	}()
	if changed {
		notifyTreeChanged(root)
	}
	return err
}

// RemoveAllChildren removes every child and clears their parents.
func (self *BaseParent) RemoveAllChildren() error {
	var root rootHolder
	err := func() error {
		treeLock.Lock()
		defer treeLock.Unlock()

		next := []Component{}
		if err := self.validateLocked(next); err != nil {
			return err
		}
		for _, child := range self.children {
			child.AsBase().parent = nil
		}
		self.children = next
		root = self.rootLocked()
		return nil
	}()
	if err == nil {
		notifyTreeChanged(root)
	}
	return err
}

// must be called with `treeLock` held
func (self *BaseParent) removeChildLocked(child *Base) {
	i := slices.IndexFunc(self.children, func(c Component) bool {
		return c.AsBase() == child
	})
	if 0 <= i {
		self.children = slices.Delete(slices.Clone(self.children), i, i+1)
	}
}

// must be called with `treeLock` held
func (self *BaseParent) validateLocked(children []Component) error {
	if self.this == nil {
		return nil
	}
	return self.this.ValidateChildren(children)
}

// restructure validates and commits a change that adds `moving` to this parent.
// Children that move from another composite are removed from it in the same change,
// and that composite validates its own prospective list as well.
func (self *BaseParent) restructure(moving []Component, build func(current []Component, moving []Component) []Component) error {
	roots := []rootHolder{}
	err := func() error {
		treeLock.Lock()
		defer treeLock.Unlock()

		for _, child := range moving {
			if child == nil {
				return ErrNilChild
			}
		}
		moving = uniqueComponents(moving)
		for _, child := range moving {
			if child.AsBase() == &self.Base {
				return ErrSelfChild
			}
			if self.isSelfOrAncestorLocked(child.AsBase()) {
				return ErrCycle
			}
		}

		next := build(self.children, moving)
		if err := self.validateLocked(next); err != nil {
			return err
		}

		// prospective lists of the previous parents
		previousChildren := map[*BaseParent][]Component{}
		for _, child := range moving {
			previous, ok := child.AsBase().parent.(*BaseParent)
			if !ok || previous == self {
				continue
			}
			children, ok := previousChildren[previous]
			if !ok {
				children = previous.children
			}
			previousChildren[previous] = withoutComponents(children, []Component{child})
		}
		for previous, children := range previousChildren {
			if err := previous.validateLocked(children); err != nil {
				return err
			}
		}

		// commit
		for previous, children := range previousChildren {
			roots = append(roots, previous.rootLocked())
			previous.children = children
		}
		for _, child := range moving {
			base := child.AsBase()
			if base.parent == nil || base.parent == parent(self) {
				continue
			}
			if _, ok := base.parent.(*BaseParent); !ok {
				// held as a root elsewhere
				roots = append(roots, base.rootLocked())
				base.parent.removeChildLocked(base)
			}
		}
		for _, child := range withoutComponents(self.children, next) {
			// replaced
			child.AsBase().parent = nil
		}
		self.children = next
		for _, child := range moving {
			child.AsBase().parent = self
		}
		roots = append(roots, self.rootLocked())
		return nil
	}()
	if err != nil {
		return err
	}
	notifyTreeChanged(roots...)
	return nil
}

// must be called with `treeLock` held
func (self *BaseParent) isSelfOrAncestorLocked(base *Base) bool {
	var p parent = self
	for p != nil {
		bp, ok := p.(*BaseParent)
		if !ok {
			return false
		}
		if &bp.Base == base {
			return true
		}
		p = bp.parent
	}
	return false
}

func indexOfComponent(components []Component, component Component) int {
	base := component.AsBase()
	return slices.IndexFunc(components, func(c Component) bool {
		return c.AsBase() == base
	})
}

func withoutComponents(components []Component, remove []Component) []Component {
	next := make([]Component, 0, len(components))
	for _, c := range components {
		if indexOfComponent(remove, c) < 0 {
			next = append(next, c)
		}
	}
	return next
}

func uniqueComponents(components []Component) []Component {
	unique := make([]Component, 0, len(components))
	for _, c := range components {
		if indexOfComponent(unique, c) < 0 {
			unique = append(unique, c)
		}
	}
	return unique
}

// props

// getProps reads a props value under the tree lock.
func getProps[P any](props *P) P {
	treeLock.RLock()
	defer treeLock.RUnlock()
	return *props
}

// setProps replaces a props value and notifies the root.
func setProps[P any](base *Base, props *P, next P) {
	var root rootHolder
	func() {
		treeLock.Lock()
		defer treeLock.Unlock()
		*props = next
		root = base.rootLocked()
	}()
	notifyTreeChanged(root)
}

// updateProps replaces a props value with an updated copy and notifies the root.
// `update` runs under the tree lock and must not call back into the tree.
// Returns the previous and next values.
func updateProps[P any](base *Base, props *P, update func(props *P)) (P, P) {
	var root rootHolder
	var previous P
	var next P
	func() {
		treeLock.Lock()
		defer treeLock.Unlock()
		previous = *props
		next = *props
		update(&next)
		*props = next
		root = base.rootLocked()
	}()
	notifyTreeChanged(root)
	return previous, next
}

// BaseProto is the common part of every snapshot node.
type BaseProto struct {
	Key       int64  `json:"key"`
	Namespace string `json:"namespace"`
	Component string `json:"component"`
}

func NewBaseProto(idMap *IdMap, component Component, namespace string, kind string) BaseProto {
	return BaseProto{
		Key:       idMap.Id(component),
		Namespace: namespace,
		Component: kind,
	}
}
