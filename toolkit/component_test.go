package toolkit

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/go-playground/assert/v2"
)

// testRoot holds a root without sessions and counts notifications
type testRoot struct {
	root    Component
	changes atomic.Int64
}

func newTestRoot(root Component) *testRoot {
	testRoot := &testRoot{}
	treeLock.Lock()
	defer treeLock.Unlock()
	testRoot.root = root
	root.AsBase().parent = testRoot
	return testRoot
}

func (self *testRoot) removeChildLocked(child *Base) {
	if self.root != nil && self.root.AsBase() == child {
		self.root = nil
	}
}

func (self *testRoot) treeChanged() {
	self.changes.Add(1)
}

func (self *testRoot) Changes() int64 {
	return self.changes.Load()
}

// nonEmptyGroup rejects an empty child list
type nonEmptyGroup struct {
	BaseParent
}

func newNonEmptyGroup() *nonEmptyGroup {
	group := &nonEmptyGroup{}
	group.InitParent(group)
	return group
}

func (self *nonEmptyGroup) ValidateChildren(children []Component) error {
	if len(children) == 0 {
		return &StructuralError{Message: "at least one child"}
	}
	return nil
}

func (self *nonEmptyGroup) Proto(idMap *IdMap) any {
	return nil
}

func TestAddChild(t *testing.T) {
	group := NewGroup(GroupProps{})
	a := NewLabel(LabelProps{Text: "a"})
	b := NewLabel(LabelProps{Text: "b"})
	c := NewLabel(LabelProps{Text: "c"})

	assert.Equal(t, group.AddChild(a), nil)
	assert.Equal(t, group.AddChildren(b, c), nil)
	assert.Equal(t, group.Children(), []Component{a, b, c})
	assert.Equal(t, a.Parent(), ParentComponent(group))
	assert.Equal(t, a.Attached(), true)

	// an existing child moves to the end
	assert.Equal(t, group.AddChild(a), nil)
	assert.Equal(t, group.Children(), []Component{b, c, a})

	// duplicates in one batch are added once
	d := NewLabel(LabelProps{Text: "d"})
	assert.Equal(t, group.AddChildren(d, d), nil)
	assert.Equal(t, group.Children(), []Component{b, c, a, d})
}

func TestAddChildMovesFromPreviousParent(t *testing.T) {
	group1 := NewGroup(GroupProps{})
	group2 := NewGroup(GroupProps{})
	a := NewLabel(LabelProps{})

	assert.Equal(t, group1.AddChild(a), nil)
	assert.Equal(t, group2.AddChild(a), nil)
	assert.Equal(t, group1.Children(), []Component{})
	assert.Equal(t, group2.Children(), []Component{a})
	assert.Equal(t, a.Parent(), ParentComponent(group2))
}

func TestAddChildPreviousParentRejects(t *testing.T) {
	nonEmpty := newNonEmptyGroup()
	group := NewGroup(GroupProps{})
	a := NewLabel(LabelProps{})

	assert.Equal(t, nonEmpty.AddChild(a), nil)
	err := group.AddChild(a)
	assert.Equal(t, IsStructuralError(err), true)

	// unchanged
	assert.Equal(t, nonEmpty.Children(), []Component{a})
	assert.Equal(t, len(group.Children()), 0)
	assert.Equal(t, a.Parent(), ParentComponent(nonEmpty))
}

func TestAddChildCycle(t *testing.T) {
	a := NewGroup(GroupProps{})
	b := NewGroup(GroupProps{})
	c := NewGroup(GroupProps{})

	assert.Equal(t, a.AddChild(a), ErrSelfChild)

	assert.Equal(t, a.AddChild(b), nil)
	assert.Equal(t, b.AddChild(c), nil)

	err := c.AddChild(a)
	assert.Equal(t, err, ErrCycle)
	assert.Equal(t, IsStructuralError(err), true)
	err = b.AddChild(a)
	assert.Equal(t, err, ErrCycle)

	// unchanged
	assert.Equal(t, a.Parent(), nil)
	assert.Equal(t, len(c.Children()), 0)
	assert.Equal(t, b.Children(), []Component{c})
}

func TestAddChildNil(t *testing.T) {
	group := NewGroup(GroupProps{})
	a := NewLabel(LabelProps{})

	err := group.AddChildren(a, nil)
	assert.Equal(t, err, ErrNilChild)
	assert.Equal(t, len(group.Children()), 0)
	assert.Equal(t, a.Attached(), false)
}

func TestInsertBefore(t *testing.T) {
	group := NewGroup(GroupProps{})
	a := NewLabel(LabelProps{Text: "a"})
	b := NewLabel(LabelProps{Text: "b"})
	c := NewLabel(LabelProps{Text: "c"})
	other := NewLabel(LabelProps{Text: "other"})

	assert.Equal(t, group.AddChildren(a, b), nil)
	assert.Equal(t, group.InsertBefore(c, b), nil)
	assert.Equal(t, group.Children(), []Component{a, c, b})

	// move within the list
	assert.Equal(t, group.InsertBefore(b, a), nil)
	assert.Equal(t, group.Children(), []Component{b, a, c})

	// not a child, appends
	d := NewLabel(LabelProps{Text: "d"})
	assert.Equal(t, group.InsertBefore(d, other), nil)
	assert.Equal(t, group.Children(), []Component{b, a, c, d})
}

func TestRemoveChild(t *testing.T) {
	group := NewGroup(GroupProps{})
	a := NewLabel(LabelProps{})
	b := NewLabel(LabelProps{})
	other := NewLabel(LabelProps{})

	assert.Equal(t, group.AddChildren(a, b), nil)
	assert.Equal(t, group.RemoveChild(a), nil)
	assert.Equal(t, group.Children(), []Component{b})
	assert.Equal(t, a.Parent(), nil)
	assert.Equal(t, a.Attached(), false)

	// not a child
	assert.Equal(t, group.RemoveChild(other), nil)
	assert.Equal(t, group.Children(), []Component{b})

	assert.Equal(t, group.RemoveAllChildren(), nil)
	assert.Equal(t, len(group.Children()), 0)
	assert.Equal(t, b.Attached(), false)
}

func TestRemoveChildRejected(t *testing.T) {
	nonEmpty := newNonEmptyGroup()
	a := NewLabel(LabelProps{})

	assert.Equal(t, nonEmpty.AddChild(a), nil)
	assert.Equal(t, IsStructuralError(nonEmpty.RemoveChild(a)), true)
	assert.Equal(t, IsStructuralError(nonEmpty.RemoveAllChildren()), true)
	assert.Equal(t, nonEmpty.Children(), []Component{a})
	assert.Equal(t, a.Parent(), ParentComponent(nonEmpty))
}

func TestChildrenSnapshot(t *testing.T) {
	group := NewGroup(GroupProps{})
	a := NewLabel(LabelProps{})
	b := NewLabel(LabelProps{})

	assert.Equal(t, group.AddChild(a), nil)
	children := group.Children()
	assert.Equal(t, group.AddChild(b), nil)
	assert.Equal(t, group.RemoveChild(a), nil)

	// a previously returned list does not change
	assert.Equal(t, children, []Component{a})
}

func TestDetach(t *testing.T) {
	group := NewGroup(GroupProps{})
	root := newTestRoot(group)
	a := NewLabel(LabelProps{})

	assert.Equal(t, group.AddChild(a), nil)
	changes := root.Changes()
	a.Detach()
	assert.Equal(t, len(group.Children()), 0)
	assert.Equal(t, a.Attached(), false)
	assert.Equal(t, root.Changes(), changes+1)

	// the root itself
	group.Detach()
	assert.Equal(t, root.root, nil)
	assert.Equal(t, group.Attached(), false)
}

func TestTreeChangedNotifiesRoot(t *testing.T) {
	group := NewGroup(GroupProps{})
	root := newTestRoot(group)
	inner := NewGroup(GroupProps{})
	label := NewLabel(LabelProps{})
	detached := NewLabel(LabelProps{})

	assert.Equal(t, group.AddChild(inner), nil)
	assert.Equal(t, root.Changes(), int64(1))
	assert.Equal(t, inner.AddChild(label), nil)
	assert.Equal(t, root.Changes(), int64(2))

	label.SetText("hello")
	assert.Equal(t, root.Changes(), int64(3))
	group.SetTitle("title")
	assert.Equal(t, root.Changes(), int64(4))

	// a failed change does not notify
	assert.Equal(t, inner.AddChild(group), ErrCycle)
	assert.Equal(t, root.Changes(), int64(4))

	// changes outside the tree do not notify
	detached.SetText("nobody")
	assert.Equal(t, root.Changes(), int64(4))

	// a move within the tree notifies once
	assert.Equal(t, group.AddChild(label), nil)
	assert.Equal(t, root.Changes(), int64(5))
}

func TestMoveBetweenRoots(t *testing.T) {
	group1 := NewGroup(GroupProps{})
	root1 := newTestRoot(group1)
	group2 := NewGroup(GroupProps{})
	root2 := newTestRoot(group2)
	a := NewLabel(LabelProps{})

	assert.Equal(t, group1.AddChild(a), nil)
	assert.Equal(t, group2.AddChild(a), nil)
	assert.Equal(t, root1.Changes(), int64(2))
	assert.Equal(t, root2.Changes(), int64(1))

	// a root moved under another root
	assert.Equal(t, group2.AddChild(group1), nil)
	assert.Equal(t, root1.root, nil)
	assert.Equal(t, group1.Parent(), ParentComponent(group2))
}

func TestTabs(t *testing.T) {
	tabs := NewTabs()

	err := tabs.AddChild(NewLabel(LabelProps{}))
	assert.Equal(t, err, ErrTabsChild)
	assert.Equal(t, len(tabs.Children()), 0)

	a := NewLabel(LabelProps{Text: "a"})
	tab, err := tabs.AddTab("first", a)
	assert.Equal(t, err, nil)
	assert.Equal(t, tabs.Children(), []Component{tab})
	assert.Equal(t, tab.Children(), []Component{a})

	// at most one child
	assert.Equal(t, tab.AddChild(NewLabel(LabelProps{})), ErrTabChild)
	assert.Equal(t, tab.Children(), []Component{a})

	// replacing the child detaches the previous one
	b := NewLabel(LabelProps{Text: "b"})
	assert.Equal(t, tab.SetChild(b), nil)
	assert.Equal(t, tab.Children(), []Component{b})
	assert.Equal(t, a.Attached(), false)
	assert.Equal(t, b.Parent(), ParentComponent(tab))
}

func TestProps(t *testing.T) {
	button := NewButton(ButtonProps{Text: "Go"})
	assert.Equal(t, button.Props().Mode, ButtonModeNormal)

	button.SetError("failed")
	assert.Equal(t, button.Props().Error, "failed")
	button.SetMode(ButtonModePressed)
	props := button.Props()
	assert.Equal(t, props.Mode, ButtonModePressed)
	assert.Equal(t, props.Error, "")
	assert.Equal(t, props.Text, "Go")

	// wholesale replacement
	button.SetProps(ButtonProps{Icon: "play"})
	props = button.Props()
	assert.Equal(t, props.Text, "")
	assert.Equal(t, props.Icon, "play")
	assert.Equal(t, props.Mode, ButtonModeNormal)

	group := NewGroup(GroupProps{})
	group.AddLabel("one").AddLabel("two")
	assert.Equal(t, group.Props().Labels, []string{"one", "two"})
	assert.Equal(t, group.Props().Direction, GroupDirectionHorizontal)
}

func TestSliderSanitize(t *testing.T) {
	props := SliderButtonProps{Min: 0, Max: 100, Step: 10}.withDefaults()
	assert.Equal(t, props.sanitize(44), float64(40))
	assert.Equal(t, props.sanitize(45), float64(50))
	assert.Equal(t, props.sanitize(-5), float64(0))
	assert.Equal(t, props.sanitize(1000), float64(100))

	defaults := SliderButtonProps{}.withDefaults()
	assert.Equal(t, defaults.Max, float64(255))
	assert.Equal(t, defaults.Step, float64(5))
}

func TestHandlerErrorUnwrap(t *testing.T) {
	err := &HandlerError{
		ComponentKey: 3,
		Err:          ErrCallNotHandled,
	}
	assert.Equal(t, errors.Is(err, ErrCallNotHandled), true)
}
