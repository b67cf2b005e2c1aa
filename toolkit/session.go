package toolkit

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/golang/glog"
	"golang.org/x/exp/maps"

	"github.com/arcanewizards/arcane/protocol"
)

// Connection is the public handle of a connected viewer, passed to handlers and listeners.
type Connection struct {
	Id Id
	// nil when the server does not require auth
	Jwt *ConnectJwt

	ctx context.Context
}

// Context is canceled when the connection closes.
func (self *Connection) Context() context.Context {
	return self.ctx
}

type ConnectionFunction = func(connection *Connection)

type session struct {
	connection *Connection
	transport  Transport
	cancel     context.CancelFunc

	// the last tree the viewer has, the base of the next diff
	// nil until the first tree is sent
	// guarded by the toolkit `syncLock`
	lastTreeSent protocol.Snapshot
}

func (self *session) sendJson(message any) error {
	messageJson, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return self.transport.Send(messageJson)
}

// trySendJson does not wait for a slow viewer. Used while holding the `syncLock`.
func (self *session) trySendJson(message any) error {
	messageJson, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return self.transport.TrySend(messageJson)
}

// onConnect registers a session for the transport. The viewer first receives its metadata,
// then the full tree if there is a root. Both happen before any diff is computed for the session.
// Neither waits for a slow viewer.
func (self *Toolkit) onConnect(ctx context.Context, transport Transport, connectJwt *ConnectJwt) *Connection {
	connectionCtx, cancel := context.WithCancel(ctx)
	connection := &Connection{
		Id:  NewId(),
		Jwt: connectJwt,
		ctx: connectionCtx,
	}
	session := &session{
		connection: connection,
		transport:  transport,
		cancel:     cancel,
	}

	func() {
		self.syncLock.Lock()
		defer self.syncLock.Unlock()

		metadata := &protocol.Metadata{
			Type:           protocol.TypeMetadata,
			ConnectionUuid: connection.Id.String(),
		}
		if err := session.trySendJson(metadata); err != nil {
			glog.Infof("[session]%s metadata error = %s\n", connection.Id, err)
		}

		if root := self.Root(); root != nil {
			snapshot, err := serializeRoot(root, self.idMap)
			if err != nil {
				glog.Infof("[session]%s serialize error = %s\n", connection.Id, err)
			} else {
				treeFull := &protocol.TreeFull{
					Type: protocol.TypeTreeFull,
					Root: snapshot,
				}
				if err := session.trySendJson(treeFull); err != nil {
					// the next pass sends the full tree
					glog.Infof("[session]%s tree-full error = %s\n", connection.Id, err)
					self.updateScheduler.Notify()
				} else {
					session.lastTreeSent = snapshot
				}
			}
		}

		self.sessionsLock.Lock()
		defer self.sessionsLock.Unlock()
		self.sessions[connection.Id] = session
	}()

	glog.V(LogLevelEvent).Infof("[session]%s connect\n", connection.Id)

	for _, connectionCallback := range self.connectionCallbacks.Get() {
		HandleError(func() {
			connectionCallback(connection)
		})
	}
	return connection
}

// onDisconnect unregisters the session. It does not wait for a pass in progress.
func (self *Toolkit) onDisconnect(connection *Connection) {
	var session *session
	func() {
		self.sessionsLock.Lock()
		defer self.sessionsLock.Unlock()

		session = self.sessions[connection.Id]
		delete(self.sessions, connection.Id)
	}()
	if session == nil {
		return
	}
	session.cancel()
	session.transport.Close()

	glog.V(LogLevelEvent).Infof("[session]%s disconnect\n", connection.Id)

	for _, disconnectionCallback := range self.disconnectionCallbacks.Get() {
		HandleError(func() {
			disconnectionCallback(connection)
		})
	}
}

func (self *Toolkit) session(connectionId Id) *session {
	self.sessionsLock.Lock()
	defer self.sessionsLock.Unlock()

	return self.sessions[connectionId]
}

// copy of the registered sessions
func (self *Toolkit) sessionList() []*session {
	self.sessionsLock.Lock()
	defer self.sessionsLock.Unlock()

	return maps.Values(self.sessions)
}

// Connections lists the connected viewers, ordered by connect time.
func (self *Toolkit) Connections() []*Connection {
	sessions := self.sessionList()
	connections := make([]*Connection, 0, len(sessions))
	for _, session := range sessions {
		connections = append(connections, session.connection)
	}
	orderConnections(connections)
	return connections
}

func (self *Toolkit) AddConnectionCallback(connectionCallback ConnectionFunction) func() {
	callbackId := self.connectionCallbacks.Add(connectionCallback)
	return func() {
		self.connectionCallbacks.Remove(callbackId)
	}
}

func (self *Toolkit) AddDisconnectionCallback(disconnectionCallback ConnectionFunction) func() {
	callbackId := self.disconnectionCallbacks.Add(disconnectionCallback)
	return func() {
		self.disconnectionCallbacks.Remove(callbackId)
	}
}

func orderConnections(connections []*Connection) {
	slices.SortFunc(connections, func(a *Connection, b *Connection) int {
		switch {
		case a.Id.LessThan(b.Id):
			return -1
		case b.Id.LessThan(a.Id):
			return 1
		default:
			return 0
		}
	})
}
