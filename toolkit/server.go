package toolkit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

// query parameter that carries a connect jwt, for viewers that cannot set headers
const AuthQueryParameter = "auth"

type ServerSettings struct {
	// websockets are accepted on this path only. Must start and end with "/".
	Path               string
	WsHandshakeTimeout time.Duration
	ReadBufferSize     int
	WriteBufferSize    int
	// nil uses same origin checking
	CheckOrigin func(r *http.Request) bool
	// when set, every viewer must present a connect jwt signed with this key
	JwtKey            []byte
	TransportSettings *WsTransportSettings
	ShutdownTimeout   time.Duration
}

func DefaultServerSettings() *ServerSettings {
	return &ServerSettings{
		Path:               "/",
		WsHandshakeTimeout: 2 * time.Second,
		ReadBufferSize:     4096,
		WriteBufferSize:    4096,
		TransportSettings:  DefaultWsTransportSettings(),
		ShutdownTimeout:    5 * time.Second,
	}
}

func ValidatePath(path string) error {
	if !strings.HasPrefix(path, "/") || !strings.HasSuffix(path, "/") {
		return fmt.Errorf("Path must start and end with \"/\": %s", path)
	}
	return nil
}

// Server accepts viewer websockets for a toolkit. Anything other than a websocket
// upgrade on the configured path is answered with 404.
type Server struct {
	ctx    context.Context
	cancel context.CancelFunc

	toolkit  *Toolkit
	upgrader *websocket.Upgrader

	settings *ServerSettings
}

func NewServerWithDefaults(ctx context.Context, toolkit *Toolkit) (*Server, error) {
	return NewServer(ctx, toolkit, DefaultServerSettings())
}

func NewServer(ctx context.Context, toolkit *Toolkit, settings *ServerSettings) (*Server, error) {
	if err := ValidatePath(settings.Path); err != nil {
		return nil, err
	}
	cancelCtx, cancel := context.WithCancel(ctx)
	return &Server{
		ctx:     cancelCtx,
		cancel:  cancel,
		toolkit: toolkit,
		upgrader: &websocket.Upgrader{
			HandshakeTimeout: settings.WsHandshakeTimeout,
			ReadBufferSize:   settings.ReadBufferSize,
			WriteBufferSize:  settings.WriteBufferSize,
			CheckOrigin:      settings.CheckOrigin,
		},
		settings: settings,
	}, nil
}

func (self *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != self.settings.Path || !websocket.IsWebSocketUpgrade(r) {
		http.NotFound(w, r)
		return
	}

	var connectJwt *ConnectJwt
	if self.settings.JwtKey != nil {
		var err error
		connectJwt, err = ParseConnectJwt(requestJwt(r), self.settings.JwtKey)
		if err != nil {
			glog.Infof("[server]%s auth error = %s\n", r.RemoteAddr, err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	ws, err := self.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already replied
		glog.Infof("[server]%s upgrade error = %s\n", r.RemoteAddr, err)
		return
	}

	transport := NewWsTransport(self.ctx, ws, r.RemoteAddr, self.settings.TransportSettings)
	defer transport.Close()

	connection := self.toolkit.onConnect(self.ctx, transport, connectJwt)
	defer self.toolkit.onDisconnect(connection)

	transport.Read(func(message []byte) {
		self.toolkit.receive(connection, message)
	})
}

func requestJwt(r *http.Request) string {
	if jwt := r.URL.Query().Get(AuthQueryParameter); jwt != "" {
		return jwt
	}
	if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(bearer)
	}
	return ""
}

// ListenAndServe serves until the server closes.
func (self *Server) ListenAndServe(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	return self.Serve(listener)
}

func (self *Server) Serve(listener net.Listener) error {
	httpServer := &http.Server{
		Handler: self,
	}
	go func() {
		select {
		case <-self.ctx.Done():
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), self.settings.ShutdownTimeout)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	glog.V(LogLevelEvent).Infof("[server]listen %s%s\n", listener.Addr(), self.settings.Path)
	err := httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close closes every viewer websocket and stops serving.
func (self *Server) Close() {
	self.cancel()
}
