package toolkit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/arcanewizards/arcane/protocol"
)

type ToolkitSettings struct {
	// changes within this window after a pass are coalesced into one trailing pass
	UpdateWindow time.Duration
	// nil uses a `JsonPatchDiffer`
	Differ Differ
}

func DefaultToolkitSettings() *ToolkitSettings {
	return &ToolkitSettings{
		UpdateWindow: DefaultUpdateWindow,
	}
}

// Toolkit holds the root of a component tree and keeps every connected viewer in sync with it.
// It is the root holder of the tree: every change to a component under the root schedules a pass.
type Toolkit struct {
	ctx    context.Context
	cancel context.CancelFunc

	settings *ToolkitSettings

	idMap  *IdMap
	differ Differ

	// guarded by `treeLock`
	root Component

	// serializes passes with connects
	syncLock sync.Mutex

	sessionsLock sync.Mutex
	sessions     map[Id]*session

	updateScheduler *UpdateScheduler

	connectionCallbacks    *CallbackList[ConnectionFunction]
	disconnectionCallbacks *CallbackList[ConnectionFunction]
}

func NewToolkitWithDefaults(ctx context.Context) *Toolkit {
	return NewToolkit(ctx, DefaultToolkitSettings())
}

func NewToolkit(ctx context.Context, settings *ToolkitSettings) *Toolkit {
	cancelCtx, cancel := context.WithCancel(ctx)
	differ := settings.Differ
	if differ == nil {
		differ = NewJsonPatchDiffer()
	}
	toolkit := &Toolkit{
		ctx:                    cancelCtx,
		cancel:                 cancel,
		settings:               settings,
		idMap:                  NewIdMap(),
		differ:                 differ,
		sessions:               map[Id]*session{},
		connectionCallbacks:    NewCallbackList[ConnectionFunction](),
		disconnectionCallbacks: NewCallbackList[ConnectionFunction](),
	}
	toolkit.updateScheduler = NewUpdateScheduler(cancelCtx, settings.UpdateWindow, toolkit.sync)
	return toolkit
}

// SetRoot replaces the root. A root owned by a composite is moved out of it.
// The previous root is detached. `nil` clears the root, which sends nothing to viewers.
func (self *Toolkit) SetRoot(root Component) error {
	roots := []rootHolder{self}
	changed := false
	err := func() error {
		treeLock.Lock()
		defer treeLock.Unlock()

		if root == nil && self.root == nil {
			return nil
		}
		if root != nil && self.root != nil && root.AsBase() == self.root.AsBase() {
			return nil
		}

		if root != nil {
			base := root.AsBase()
			switch v := base.parent.(type) {
			case nil:
			case *BaseParent:
				next := withoutComponents(v.children, []Component{root})
				if err := v.validateLocked(next); err != nil {
					return err
				}
				roots = append(roots, v.rootLocked())
				v.children = next
			default:
				// held as a root elsewhere
				roots = append(roots, base.rootLocked())
				v.removeChildLocked(base)
			}
		}

		if self.root != nil {
			self.root.AsBase().parent = nil
		}
		self.root = root
		if root != nil {
			root.AsBase().parent = self
		}
		changed = true
		return nil
	}()
	if err != nil {
		return err
	}
	if changed {
		glog.V(LogLevelEvent).Infof("[toolkit]set root %T\n", root)
		notifyTreeChanged(roots...)
	}
	return nil
}

func (self *Toolkit) Root() Component {
	treeLock.RLock()
	defer treeLock.RUnlock()

	return self.root
}

// IdMap is the registry of the keys that viewers use to address components.
func (self *Toolkit) IdMap() *IdMap {
	return self.idMap
}

// must be called with `treeLock` held
func (self *Toolkit) removeChildLocked(child *Base) {
	if self.root != nil && self.root.AsBase() == child {
		self.root = nil
	}
}

func (self *Toolkit) treeChanged() {
	self.updateScheduler.Notify()
}

// sync runs one pass: serialize the root once, then bring every session up to date.
func (self *Toolkit) sync() {
	self.syncLock.Lock()
	defer self.syncLock.Unlock()

	root := self.Root()
	if root == nil {
		return
	}

	Trace(fmt.Sprintf("[sync]pass %T", root), func() {
		snapshot, err := serializeRoot(root, self.idMap)
		if err != nil {
			glog.Infof("[sync]serialize error = %s\n", err)
			return
		}
		for _, session := range self.sessionList() {
			self.syncSession(session, snapshot)
		}
	})
}

// must be called with `syncLock` held
func (self *Toolkit) syncSession(session *session, snapshot protocol.Snapshot) {
	var message any
	if session.lastTreeSent == nil {
		message = &protocol.TreeFull{
			Type: protocol.TypeTreeFull,
			Root: snapshot,
		}
	} else {
		diff, err := self.differ.Diff(session.lastTreeSent, snapshot)
		if err != nil {
			glog.Infof("[sync]%s diff error = %s\n", session.connection.Id, err)
			return
		}
		if self.differ.IsEmpty(diff) {
			session.lastTreeSent = snapshot
			return
		}
		message = &protocol.TreeDiff{
			Type: protocol.TypeTreeDiff,
			Diff: diff,
		}
	}
	// the pass never waits on one viewer
	if err := session.trySendJson(message); err != nil {
		// the baseline is kept so that a later diff is against what the viewer has
		if errors.Is(err, ErrSendBufferFull) {
			glog.V(LogLevelTrace).Infof("[sync]%s send buffer full, retry\n", session.connection.Id)
			self.updateScheduler.Notify()
		} else {
			glog.Infof("[sync]%s send error = %s\n", session.connection.Id, err)
		}
		return
	}
	session.lastTreeSent = snapshot
	glog.V(LogLevelTrace).Infof("[sync]%s sent %T\n", session.connection.Id, message)
}

// Close stops passes and closes every session.
func (self *Toolkit) Close() {
	self.cancel()
	self.updateScheduler.Close()
	for _, session := range self.sessionList() {
		self.onDisconnect(session.connection)
	}
}
