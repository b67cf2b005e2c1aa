package toolkit

import (
	"context"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

// Transport carries encoded envelopes to one peer, in order.
type Transport interface {
	// Send queues the message. It fails with `ErrTransportClosed` after close,
	// or `ErrSendTimeout` when the peer does not keep up.
	Send(message []byte) error
	// TrySend queues the message without waiting. It fails with `ErrTransportClosed` after close,
	// or `ErrSendBufferFull` when the send buffer is full.
	TrySend(message []byte) error
	Close()
}

type WsTransportSettings struct {
	SendBufferSize int
	// how long `Send` waits for space in the send buffer
	SendTimeout  time.Duration
	PingTimeout  time.Duration
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
}

func DefaultWsTransportSettings() *WsTransportSettings {
	return &WsTransportSettings{
		SendBufferSize: 32,
		SendTimeout:    5 * time.Second,
		PingTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		ReadTimeout:    30 * time.Second,
	}
}

// WsTransport runs a websocket.
// A writer goroutine drains the send buffer and keeps the connection alive with pings.
// The owner runs the read loop with `Read`.
type WsTransport struct {
	ctx    context.Context
	cancel context.CancelFunc

	ws  *websocket.Conn
	tag string

	send chan []byte

	settings *WsTransportSettings
}

func NewWsTransportWithDefaults(ctx context.Context, ws *websocket.Conn, tag string) *WsTransport {
	return NewWsTransport(ctx, ws, tag, DefaultWsTransportSettings())
}

func NewWsTransport(ctx context.Context, ws *websocket.Conn, tag string, settings *WsTransportSettings) *WsTransport {
	cancelCtx, cancel := context.WithCancel(ctx)
	transport := &WsTransport{
		ctx:      cancelCtx,
		cancel:   cancel,
		ws:       ws,
		tag:      tag,
		send:     make(chan []byte, settings.SendBufferSize),
		settings: settings,
	}
	go transport.runWrite()
	return transport
}

func (self *WsTransport) Send(message []byte) error {
	select {
	case <-self.ctx.Done():
		return ErrTransportClosed
	default:
	}

	select {
	case <-self.ctx.Done():
		return ErrTransportClosed
	case self.send <- message:
		return nil
	case <-time.After(self.settings.SendTimeout):
		return ErrSendTimeout
	}
}

func (self *WsTransport) TrySend(message []byte) error {
	select {
	case <-self.ctx.Done():
		return ErrTransportClosed
	default:
	}

	select {
	case self.send <- message:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (self *WsTransport) runWrite() {
	defer func() {
		self.cancel()
		self.ws.Close()
	}()

	for {
		select {
		case <-self.ctx.Done():
			self.ws.SetWriteDeadline(time.Now().Add(self.settings.WriteTimeout))
			self.ws.WriteMessage(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			)
			return
		case message := <-self.send:
			self.ws.SetWriteDeadline(time.Now().Add(self.settings.WriteTimeout))
			if err := self.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				// note that for websocket a deadline timeout cannot be recovered
				glog.Infof("[ts]%s-> error = %s\n", self.tag, err)
				return
			}
			glog.V(LogLevelTrace).Infof("[ts]%s-> (%d)\n", self.tag, len(message))
		case <-time.After(self.settings.PingTimeout):
			deadline := time.Now().Add(self.settings.WriteTimeout)
			if err := self.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				glog.Infof("[ts]ping %s-> error = %s\n", self.tag, err)
				return
			}
		}
	}
}

// Read runs the read loop until the transport closes, passing each message to `receive` in order.
// Any received frame, including a pong, extends the read deadline.
func (self *WsTransport) Read(receive func(message []byte)) {
	defer self.cancel()

	self.ws.SetPongHandler(func(string) error {
		glog.V(LogLevelTrace).Infof("[tr]pong %s<-\n", self.tag)
		return self.ws.SetReadDeadline(time.Now().Add(self.settings.ReadTimeout))
	})

	for {
		select {
		case <-self.ctx.Done():
			return
		default:
		}

		self.ws.SetReadDeadline(time.Now().Add(self.settings.ReadTimeout))
		messageType, message, err := self.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				glog.V(LogLevelEvent).Infof("[tr]%s<- closed\n", self.tag)
			} else {
				glog.Infof("[tr]%s<- error = %s\n", self.tag, err)
			}
			return
		}

		switch messageType {
		case websocket.TextMessage, websocket.BinaryMessage:
			if len(message) == 0 {
				continue
			}
			glog.V(LogLevelTrace).Infof("[tr]%s<- (%d)\n", self.tag, len(message))
			receive(message)
		default:
			glog.V(LogLevelTrace).Infof("[tr]other=%d %s<-\n", messageType, self.tag)
		}
	}
}

// Done is closed when the transport closes.
func (self *WsTransport) Done() <-chan struct{} {
	return self.ctx.Done()
}

func (self *WsTransport) Close() {
	self.cancel()
}
