package handlers

import (
	"relayhub/service/hub"
	"relayhub/tools/errs"
)

type SendMessageHandler struct{}

func NewSendMessageHandler() hub.Handler          { return &SendMessageHandler{} }
func (h *SendMessageHandler) Name() hub.EventName { return hub.EvSendMessage }

// Handle fans a chat message out to the room. The sender is excluded;
// their UI renders the message optimistically. A stale or unknown
// room resolves to zero members and the publish is a no-op.
func (h *SendMessageHandler) Handle(ctx *hub.Context, f *hub.Frame, c *hub.Client) error {
	p, err := hub.DecodePayload[hub.SendMessagePayload](f.Data)
	if err != nil {
		return err
	}
	if p.RoomID == "" {
		return errs.ErrBadPayload.WithDetail("roomId required")
	}
	if p.Content == "" {
		return errs.ErrBadPayload.WithDetail("content required")
	}

	return ctx.S.Disp().Publish(hub.Event{
		Room:    p.RoomID,
		Kind:    hub.EvMessage,
		Payload: hub.BuildMessage(c.UserID, c.UserName, p.Content),
		Exclude: c.ConnID,
	})
}
