package hub

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"relayhub/logger"
	"relayhub/service/session"
	"relayhub/tools/errs"
	"relayhub/tools/ids"
	"relayhub/tools/safe"
)

// PresenceStore mirrors online/offline state into external storage so
// the rest of the platform can read it without touching the hub.
type PresenceStore interface {
	PresenceOnline(ctx context.Context, user, nodeID string, ttl time.Duration) error
	PresenceOffline(ctx context.Context, user string) error
}

// PresenceSink is optionally implemented by a Sink that also wants
// presence edges (the NATS bridge does).
type PresenceSink interface {
	DeliverPresence(userID string, online bool)
}

type Options struct {
	NodeID         string
	SendQueueSize  int
	FanoutQueue    int
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	PresenceTTL    time.Duration
	CheckOrigin    func(r *http.Request) bool
}

func (o *Options) norm() {
	if o.NodeID == "" {
		o.NodeID = "relayhub-1"
	}
	if o.SendQueueSize <= 0 {
		o.SendQueueSize = 256
	}
	if o.FanoutQueue <= 0 {
		o.FanoutQueue = 4096
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = 60 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 25 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 1 << 20 // 1MB
	}
	if o.PresenceTTL <= 0 {
		o.PresenceTTL = 2 * time.Minute
	}
	if o.CheckOrigin == nil {
		o.CheckOrigin = func(r *http.Request) bool { return true }
	}
}

// Server is the process-wide hub handle: constructed once at startup
// and injected where needed, torn down via Close.
type Server struct {
	opts     Options
	auth     *session.Validator
	presence PresenceStore // nil disables the mirror

	reg   *Registry
	rooms *Rooms
	fan   *Fanout
	disp  *Dispatcher
	mux   *Mux

	upgrader  websocket.Upgrader
	closeOnce sync.Once
}

func NewServer(opts Options, auth *session.Validator, presence PresenceStore) *Server {
	opts.norm()
	safe.MustNotNil(auth, "session validator")

	s := &Server{
		opts:     opts,
		auth:     auth,
		presence: presence,
		reg:      NewRegistry(),
		rooms:    NewRooms(),
		fan:      NewFanout(opts.FanoutQueue),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     opts.CheckOrigin,
		},
	}
	s.disp = NewDispatcher(s.reg, s.rooms, s.fan)
	s.mux = NewMux()
	s.reg.SetPresenceFunc(s.onPresence)
	return s
}

func (s *Server) NodeID() string      { return s.opts.NodeID }
func (s *Server) Mux() *Mux           { return s.mux }
func (s *Server) Disp() *Dispatcher   { return s.disp }
func (s *Server) Registry() *Registry { return s.reg }
func (s *Server) Rooms() *Rooms       { return s.rooms }

// SetSink installs the event tap (NATS bridge); call before serving.
func (s *Server) SetSink(sink Sink) { s.disp.SetSink(sink) }

// HandleWS authenticates the Cookie header and upgrades the
// connection. The auth gate runs before the upgrade: an
// unauthenticated request never reaches any room operation.
func (s *Server) HandleWS(c *gin.Context) {
	actx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	ident, err := s.auth.Authenticate(actx, c.GetHeader("Cookie"))
	cancel()
	if err != nil {
		logger.Debugf("[ws] auth rejected remote=%s: %v", c.ClientIP(), err)
		c.JSON(http.StatusUnauthorized, gin.H{"code": errs.Code(err), "msg": "unauthorized"})
		return
	}

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// non-websocket request or handshake failure
		logger.Infof("[ws] upgrade err remote=%s: %v", c.ClientIP(), err)
		return
	}

	client := NewClient(ids.GenerateString(), ident.UserID, ident.UserName, ws, s.opts.SendQueueSize)

	ws.SetReadLimit(s.opts.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	ws.SetPongHandler(func(string) error {
		if s.presence != nil {
			// keepalive doubles as the presence TTL refresh
			safe.Go(func() { s.renewPresence(client.UserID) })
		}
		return ws.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	})

	s.reg.Register(client)
	safe.Go(func() { client.writePump(s.opts.PingInterval, s.opts.WriteTimeout) })
	logger.Infof("[ws] connected conn=%s user=%s remote=%v", client.ConnID, client.UserID, client.Remote)

	s.readLoop(client)
	s.teardown(client)
}

// readLoop is the only reader on the socket; per-connection event
// handling is strictly sequential.
func (s *Server) readLoop(client *Client) {
	ws := client.ws
	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s user=%s", client.ConnID, client.UserID)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s user=%s", client.ConnID, client.UserID)
			} else {
				logger.Infof("[ws] read err conn=%s user=%s: %v", client.ConnID, client.UserID, rerr)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, perr := ParseFrame(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Debugf("[ws] bad frame conn=%s err=%v sample=%q", client.ConnID, perr, sample)
			s.sendError(client, perr)
			continue
		}

		if herr := s.mux.Dispatch(&Context{S: s}, frame, client); herr != nil {
			logger.Debugf("[ws] handler err conn=%s event=%s: %v", client.ConnID, frame.Event, herr)
			s.sendError(client, herr)
		}
	}
}

// sendError surfaces a per-client protocol error as an error event;
// best effort, never blocks the read loop.
func (s *Server) sendError(c *Client, err error) {
	select {
	case c.Send <- BuildError(err):
	default:
	}
}

// teardown eagerly tears down all derived state for a disconnected
// connection: room memberships first, then the registry entry (which
// fires the offline edge when this was the user's last connection).
func (s *Server) teardown(client *Client) {
	left := s.rooms.LeaveAll(client.ConnID)
	s.reg.Unregister(client.ConnID)
	client.Close()
	logger.Infof("[ws] disconnected conn=%s user=%s rooms=%d", client.ConnID, client.UserID, len(left))
}

// Notify pushes a notification event to every live connection of the
// user (multi-tab delivery). Used by the REST surface and the NATS
// ingest.
func (s *Server) Notify(userID, typ, message string) error {
	return s.disp.Publish(Event{
		User:    userID,
		Kind:    EvNotification,
		Payload: BuildNotification(typ, message),
	})
}

func (s *Server) onPresence(userID string, online bool) {
	if s.presence != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		var err error
		if online {
			err = s.presence.PresenceOnline(ctx, userID, s.opts.NodeID, s.opts.PresenceTTL)
		} else {
			err = s.presence.PresenceOffline(ctx, userID)
		}
		if err != nil {
			logger.Warnf("[presence] mirror err user=%s online=%v: %v", userID, online, err)
		}
	}
	if ps, ok := s.disp.sink.(PresenceSink); ok {
		ps.DeliverPresence(userID, online)
	}
	logger.Infof("[presence] user=%s online=%v", userID, online)
}

func (s *Server) renewPresence(userID string) {
	if s.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.presence.PresenceOnline(ctx, userID, s.opts.NodeID, s.opts.PresenceTTL); err != nil {
		logger.Debugf("[presence] renew err user=%s: %v", userID, err)
	}
}

// Stats is a point-in-time operational snapshot.
type Stats struct {
	Connections       int   `json:"connections"`
	Users             int   `json:"users"`
	Rooms             int   `json:"rooms"`
	DroppedDeliveries int64 `json:"droppedDeliveries"`
}

func (s *Server) Stats() Stats {
	return Stats{
		Connections:       s.reg.CountConnections(),
		Users:             s.reg.CountUsers(),
		Rooms:             s.rooms.Count(),
		DroppedDeliveries: s.fan.Dropped(),
	}
}

// Close disconnects every client and stops the fan-out stage.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		for _, c := range s.reg.listAll() {
			s.rooms.LeaveAll(c.ConnID)
			s.reg.Unregister(c.ConnID)
			c.Close()
		}
		s.fan.Close()
	})
}
