package hub

import (
	"relayhub/tools/errs"
)

// Handler processes one inbound event kind.
type Handler interface {
	Name() EventName
	Handle(ctx *Context, f *Frame, c *Client) error
}

// Context hands handlers the server they run inside.
type Context struct {
	S *Server
}

// Mux routes inbound frames to their registered handler. The event
// set is closed: an unregistered name is a typed error, surfaced to
// the offending client only.
type Mux struct {
	handlers map[EventName]Handler
}

func NewMux() *Mux {
	return &Mux{handlers: make(map[EventName]Handler)}
}

// Register wires a handler; call during server construction, before
// the first connection is accepted.
func (m *Mux) Register(h Handler) { m.handlers[h.Name()] = h }

func (m *Mux) Dispatch(ctx *Context, f *Frame, c *Client) error {
	h, ok := m.handlers[f.Event]
	if !ok {
		return errs.ErrUnknownEvent.WithDetail(string(f.Event))
	}
	return h.Handle(ctx, f, c)
}
