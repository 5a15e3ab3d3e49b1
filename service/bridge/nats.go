package bridge

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"relayhub/logger"
	"relayhub/service/hub"
	"relayhub/tools/errs"
)

// Subjects published/consumed by the bridge. External services
// persist or analyze the firehose; the hub itself keeps nothing.
const (
	subjectEventPrefix  = "hub.events." // + event kind
	subjectPresence     = "hub.presence"
	subjectNotifyPrefix = "hub.notify." // + user id (inbound)
)

type Config struct {
	Servers       []string
	Name          string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// Bridge taps the dispatcher's event stream onto NATS and feeds
// externally produced notifications back into the hub. Fire and
// forget both ways; a down broker never blocks local fan-out.
type Bridge struct {
	nc  *nats.Conn
	sub *nats.Subscription
}

func New(cfg Config) (*Bridge, error) {
	if len(cfg.Servers) == 0 {
		return nil, errs.New("nats servers missing")
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, errs.Wrap(err, "nats connect")
	}
	return &Bridge{nc: nc}, nil
}

// Deliver implements hub.Sink: every published event goes out on
// hub.events.<kind> with its wire envelope unchanged.
func (b *Bridge) Deliver(ev hub.Event) {
	if err := b.nc.Publish(subjectEventPrefix+string(ev.Kind), ev.Payload); err != nil {
		logger.Debugf("[bridge] publish err kind=%s: %v", ev.Kind, err)
	}
}

type presenceMsg struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
	TS     int64  `json:"ts"`
}

// DeliverPresence implements hub.PresenceSink.
func (b *Bridge) DeliverPresence(userID string, online bool) {
	data, err := json.Marshal(presenceMsg{UserID: userID, Online: online, TS: time.Now().UnixMilli()})
	if err != nil {
		return
	}
	if err := b.nc.Publish(subjectPresence, data); err != nil {
		logger.Debugf("[bridge] presence publish err user=%s: %v", userID, err)
	}
}

type notifyMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// SubscribeNotify feeds hub.notify.<user> messages into the hub so
// queue-based backend services can push notifications without going
// through the REST surface.
func (b *Bridge) SubscribeNotify(s *hub.Server) error {
	sub, err := b.nc.Subscribe(subjectNotifyPrefix+"*", func(m *nats.Msg) {
		userID := strings.TrimPrefix(m.Subject, subjectNotifyPrefix)
		if userID == "" || strings.Contains(userID, ".") {
			return
		}
		var nm notifyMsg
		if err := json.Unmarshal(m.Data, &nm); err != nil {
			logger.Debugf("[bridge] bad notify payload subject=%s: %v", m.Subject, err)
			return
		}
		if err := s.Notify(userID, nm.Type, nm.Message); err != nil {
			logger.Debugf("[bridge] notify err user=%s: %v", userID, err)
		}
	})
	if err != nil {
		return errs.Wrap(err, "subscribe notify")
	}
	b.sub = sub
	return nil
}

func (b *Bridge) Close() {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	if b.nc != nil {
		_ = b.nc.Drain()
	}
}
