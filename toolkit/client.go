package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	"github.com/arcanewizards/arcane/protocol"
)

type ClientSettings struct {
	WsHandshakeTimeout time.Duration
	TransportSettings  *WsTransportSettings
	// nil uses a `JsonPatchDiffer`. Must match the server.
	Differ Differ
	// sent as a bearer token when set
	Jwt string
}

func DefaultClientSettings() *ClientSettings {
	return &ClientSettings{
		WsHandshakeTimeout: 2 * time.Second,
		TransportSettings:  DefaultWsTransportSettings(),
	}
}

// called with the full tree after every tree-full or tree-diff
type TreeFunction = func(tree protocol.Snapshot)

// Client is a viewer. It keeps a replica of the server tree by applying
// tree diffs, and correlates calls with their responses.
type Client struct {
	ctx    context.Context
	cancel context.CancelFunc

	transport  *WsTransport
	differ     Differ
	correlator *CallCorrelator

	stateLock    sync.Mutex
	connectionId *Id
	tree         protocol.Snapshot

	treeCallbacks *CallbackList[TreeFunction]

	settings *ClientSettings
}

func DialClientWithDefaults(ctx context.Context, url string) (*Client, error) {
	return DialClient(ctx, url, DefaultClientSettings())
}

func DialClient(ctx context.Context, url string, settings *ClientSettings) (*Client, error) {
	dial := func() (*websocket.Conn, error) {
		dialer := &websocket.Dialer{
			HandshakeTimeout: settings.WsHandshakeTimeout,
		}
		header := http.Header{}
		if settings.Jwt != "" {
			header.Set("Authorization", fmt.Sprintf("Bearer %s", settings.Jwt))
		}
		ws, _, err := dialer.DialContext(ctx, url, header)
		return ws, err
	}

	ws, err := TraceWithReturnError(fmt.Sprintf("[c]dial %s", url), dial)
	if err != nil {
		return nil, err
	}

	differ := settings.Differ
	if differ == nil {
		differ = NewJsonPatchDiffer()
	}
	cancelCtx, cancel := context.WithCancel(ctx)
	client := &Client{
		ctx:           cancelCtx,
		cancel:        cancel,
		transport:     NewWsTransport(cancelCtx, ws, url, settings.TransportSettings),
		differ:        differ,
		correlator:    NewCallCorrelator(),
		treeCallbacks: NewCallbackList[TreeFunction](),
		settings:      settings,
	}
	go client.run()
	return client, nil
}

func (self *Client) run() {
	defer func() {
		self.cancel()
		self.correlator.FailAll(ErrTransportClosed)
	}()

	self.transport.Read(self.receive)
}

func (self *Client) receive(messageBytes []byte) {
	message, err := protocol.ParseServerMessage(messageBytes)
	if err != nil {
		glog.Infof("[c]<- malformed = %s\n", err)
		return
	}
	switch v := message.(type) {
	case *protocol.Metadata:
		connectionId, err := ParseId(v.ConnectionUuid)
		if err != nil {
			glog.Infof("[c]<- metadata error = %s\n", err)
			return
		}
		self.stateLock.Lock()
		self.connectionId = &connectionId
		self.stateLock.Unlock()
		glog.V(LogLevelEvent).Infof("[c]<- connection %s\n", connectionId)
	case *protocol.TreeFull:
		self.setTree(v.Root)
	case *protocol.TreeDiff:
		tree := self.Tree()
		if tree == nil {
			glog.Infof("[c]<- tree-diff without a tree\n")
			return
		}
		nextTree, err := self.differ.Patch(tree, v.Diff)
		if err != nil {
			glog.Infof("[c]<- tree-diff error = %s\n", err)
			return
		}
		self.setTree(nextTree)
	case *protocol.CallResponse:
		if !self.correlator.OnResponse(v) {
			glog.V(LogLevelEvent).Infof("[c]<- call-response %d not pending\n", v.RequestId)
		}
	}
}

func (self *Client) setTree(tree protocol.Snapshot) {
	self.stateLock.Lock()
	self.tree = tree
	self.stateLock.Unlock()

	for _, treeCallback := range self.treeCallbacks.Get() {
		HandleError(func() {
			treeCallback(tree)
		})
	}
}

// ConnectionId is the id the server assigned to this viewer.
// It is the same as the `Connection.Id` that server handlers see.
func (self *Client) ConnectionId() (Id, bool) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if self.connectionId == nil {
		return Id{}, false
	}
	return *self.connectionId, true
}

// Tree is the current replica, or nil before the first tree arrives.
func (self *Client) Tree() protocol.Snapshot {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return self.tree
}

func (self *Client) AddTreeCallback(treeCallback TreeFunction) func() {
	callbackId := self.treeCallbacks.Add(treeCallback)
	return func() {
		self.treeCallbacks.Remove(callbackId)
	}
}

// WaitForTree blocks until the replica satisfies `match`, and returns the decoded tree.
func (self *Client) WaitForTree(ctx context.Context, match func(root *protocol.Node) bool) (*protocol.Node, error) {
	update := make(chan struct{}, 1)
	remove := self.AddTreeCallback(func(tree protocol.Snapshot) {
		select {
		case update <- struct{}{}:
		default:
		}
	})
	defer remove()

	for {
		if tree := self.Tree(); tree != nil {
			root, err := protocol.ParseSnapshot(tree)
			if err != nil {
				return nil, err
			}
			if match(root) {
				return root, nil
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-self.ctx.Done():
			return nil, ErrTransportClosed
		case <-update:
		}
	}
}

// SendMessage sends a fire-and-forget message to the component.
func (self *Client) SendMessage(namespace string, componentKey int64, component string, fields any) error {
	messageBytes, err := protocol.EncodeComponentMessage(namespace, componentKey, component, fields)
	if err != nil {
		return err
	}
	return self.transport.Send(messageBytes)
}

// Call sends a call to the component and waits for its response.
// A failure response is returned as a `*CallError`.
func (self *Client) Call(ctx context.Context, namespace string, componentKey int64, action string, args any) (json.RawMessage, error) {
	future, err := self.correlator.Submit(func(requestId int64) error {
		callBytes, err := protocol.EncodeComponentCall(namespace, componentKey, requestId, action, args)
		if err != nil {
			return err
		}
		return self.transport.Send(callBytes)
	})
	if err != nil {
		return nil, err
	}
	returnValue, err := future.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		self.correlator.Forget(future.RequestId())
	}
	return returnValue, err
}

// Done is closed when the connection closes.
func (self *Client) Done() <-chan struct{} {
	return self.ctx.Done()
}

func (self *Client) Close() {
	self.cancel()
}
