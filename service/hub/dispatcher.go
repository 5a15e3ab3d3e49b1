package hub

import (
	"relayhub/tools/errs"
)

// Event is an immutable typed payload scoped to exactly one room or
// one user identity. Payload is the complete wire envelope.
type Event struct {
	Room    string // room scope; mutually exclusive with User
	User    string // user scope (multi-tab delivery)
	Kind    EventName
	Payload []byte
	Exclude string // sending conn_id, skipped during room fan-out
}

// Sink observes every published event after local fan-out. The NATS
// bridge hangs off this; persistence, if any, lives behind it.
type Sink interface {
	Deliver(ev Event)
}

// Dispatcher resolves an event's scope to live connections and hands
// the delivery to the fan-out stage. Best effort, fire and forget: a
// connection not live at publish time never receives the event.
type Dispatcher struct {
	reg   *Registry
	rooms *Rooms
	fan   *Fanout
	sink  Sink
}

func NewDispatcher(reg *Registry, rooms *Rooms, fan *Fanout) *Dispatcher {
	return &Dispatcher{reg: reg, rooms: rooms, fan: fan}
}

// SetSink installs the event tap. Nil disables it.
func (d *Dispatcher) SetSink(s Sink) { d.sink = s }

// Publish delivers the event to every connection in scope at publish
// time. Scope resolution and enqueue happen synchronously here, the
// single dispatch point, so per-room order equals publish-call order.
func (d *Dispatcher) Publish(ev Event) error {
	var conns []*Client
	switch {
	case ev.Room != "":
		conns = d.rooms.MembersOf(ev.Room)
	case ev.User != "":
		conns = d.reg.ListByUser(ev.User)
	default:
		return errs.ErrBadPayload.WithDetail("event has no scope")
	}

	d.fan.Broadcast(conns, ev.Payload, ev.Exclude)

	if d.sink != nil {
		d.sink.Deliver(ev)
	}
	return nil
}
