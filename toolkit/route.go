package toolkit

import (
	"encoding/json"
	"errors"

	"github.com/golang/glog"

	"github.com/arcanewizards/arcane/protocol"
)

// receive handles one envelope from the connection. Envelopes of a connection are received in order.
func (self *Toolkit) receive(connection *Connection, messageBytes []byte) {
	message, err := protocol.ParseClientMessage(messageBytes)
	if err != nil {
		glog.Infof("[route]%s<- malformed = %s\n", connection.Id, err)
		return
	}
	switch v := message.(type) {
	case *protocol.ComponentMessage:
		self.routeMessage(connection, v)
	case *protocol.ComponentCall:
		self.routeCall(connection, v)
	}
}

// lookup finds the component with the assigned key, in depth-first order from the root.
// It never assigns keys.
func (self *Toolkit) lookup(componentKey int64) (Component, error) {
	treeLock.RLock()
	defer treeLock.RUnlock()

	if self.root == nil {
		return nil, ErrNoRoot
	}
	if component := findComponentLocked(self.root, self.idMap, componentKey); component != nil {
		return component, nil
	}
	return nil, ErrComponentNotFound
}

// must be called with `treeLock` held
func findComponentLocked(component Component, idMap *IdMap, componentKey int64) Component {
	if id, ok := idMap.Lookup(component); ok && id == componentKey {
		return component
	}
	if parent, ok := component.(ParentComponent); ok {
		children := parent.AsParent().childrenLocked()
		for _, child := range children {
			if match := findComponentLocked(child, idMap, componentKey); match != nil {
				return match
			}
		}
	}
	return nil
}

// routeMessage runs the handler in the read loop. Misses and handler errors are logged and dropped.
func (self *Toolkit) routeMessage(connection *Connection, message *protocol.ComponentMessage) {
	component, err := self.lookup(message.ComponentKey)
	if err != nil {
		glog.V(LogLevelTrace).Infof("[route]%s<- message %d drop = %s\n", connection.Id, message.ComponentKey, err)
		return
	}
	_, err = handleComponent(message.ComponentKey, func() (any, error) {
		return nil, component.HandleMessage(message, connection)
	})
	if err != nil {
		glog.Infof("[route]%s<- message %d error = %s\n", connection.Id, message.ComponentKey, err)
		return
	}
	glog.V(LogLevelTrace).Infof("[route]%s<- message %d %T\n", connection.Id, message.ComponentKey, component)
}

// routeCall looks up the component in the read loop and runs the handler on its own goroutine.
// Every call gets exactly one response.
func (self *Toolkit) routeCall(connection *Connection, call *protocol.ComponentCall) {
	component, err := self.lookup(call.ComponentKey)
	if err != nil {
		self.respond(connection, call, nil, err)
		return
	}
	go HandleError(func() {
		returnValue, err := handleComponent(call.ComponentKey, func() (any, error) {
			return component.HandleCall(call, connection)
		})
		self.respond(connection, call, returnValue, err)
	})
}

// handleComponent runs a component handler. Errors and panics are returned as a `*HandlerError`.
func handleComponent[R any](componentKey int64, do func() (R, error)) (result R, returnErr error) {
	HandleError(func() {
		result, returnErr = do()
	}, func(err error) {
		returnErr = err
	})
	if returnErr != nil {
		returnErr = &HandlerError{
			ComponentKey: componentKey,
			Err:          returnErr,
		}
	}
	return
}

func (self *Toolkit) respond(connection *Connection, call *protocol.ComponentCall, returnValue any, err error) {
	response := &protocol.CallResponse{
		Type:      protocol.TypeCallResponse,
		Namespace: call.Namespace,
		RequestId: call.RequestId,
	}
	if err == nil {
		var returnValueJson []byte
		returnValueJson, err = json.Marshal(returnValue)
		if err == nil {
			response.Success = true
			response.ReturnValue = returnValueJson
		}
	}
	if err != nil {
		response.Success = false
		response.ErrorMessage = callErrorMessage(err)
	}

	session := self.session(connection.Id)
	if session == nil {
		glog.V(LogLevelEvent).Infof("[route]%s-> call %d response drop (closed)\n", connection.Id, call.RequestId)
		return
	}
	if err := session.sendJson(response); err != nil {
		glog.V(LogLevelEvent).Infof("[route]%s-> call %d response drop = %s\n", connection.Id, call.RequestId, err)
		return
	}
	glog.V(LogLevelTrace).Infof("[route]%s-> call %d success=%t\n", connection.Id, call.RequestId, response.Success)
}

// the message of the handler's own error, without the handler wrapping
func callErrorMessage(err error) string {
	var handlerErr *HandlerError
	if errors.As(err, &handlerErr) {
		return handlerErr.Err.Error()
	}
	return err.Error()
}
