package handlers

import (
	"relayhub/service/hub"
	"relayhub/tools/errs"
)

type JoinRoomHandler struct{}

func NewJoinRoomHandler() hub.Handler          { return &JoinRoomHandler{} }
func (h *JoinRoomHandler) Name() hub.EventName { return hub.EvJoinRoom }

func (h *JoinRoomHandler) Handle(ctx *hub.Context, f *hub.Frame, c *hub.Client) error {
	p, err := hub.DecodePayload[hub.JoinRoomPayload](f.Data)
	if err != nil {
		return err
	}
	if p.RoomID == "" {
		return errs.ErrBadPayload.WithDetail("roomId required")
	}
	kind, err := hub.ParseRoomKind(p.RoomType)
	if err != nil {
		return err
	}
	ctx.S.Rooms().Join(c, p.RoomID, kind)
	return nil
}

type LeaveRoomHandler struct{}

func NewLeaveRoomHandler() hub.Handler          { return &LeaveRoomHandler{} }
func (h *LeaveRoomHandler) Name() hub.EventName { return hub.EvLeaveRoom }

func (h *LeaveRoomHandler) Handle(ctx *hub.Context, f *hub.Frame, c *hub.Client) error {
	p, err := hub.DecodePayload[hub.JoinRoomPayload](f.Data)
	if err != nil {
		return err
	}
	if p.RoomID == "" {
		return errs.ErrBadPayload.WithDetail("roomId required")
	}
	// leaving a room we never joined is a no-op, same as double join
	ctx.S.Rooms().Leave(c.ConnID, p.RoomID)
	return nil
}
