package handlers

import (
	"relayhub/service/hub"
	"relayhub/tools/errs"
)

// Document collaboration rides the same room machinery: one room of
// kind document per documentId.

type JoinDocumentHandler struct{}

func NewJoinDocumentHandler() hub.Handler          { return &JoinDocumentHandler{} }
func (h *JoinDocumentHandler) Name() hub.EventName { return hub.EvJoinDocument }

func (h *JoinDocumentHandler) Handle(ctx *hub.Context, f *hub.Frame, c *hub.Client) error {
	p, err := hub.DecodePayload[hub.DocumentPayload](f.Data)
	if err != nil {
		return err
	}
	if p.DocumentID == "" {
		return errs.ErrBadPayload.WithDetail("documentId required")
	}
	ctx.S.Rooms().Join(c, p.DocumentID, hub.RoomDocument)
	return nil
}

type LeaveDocumentHandler struct{}

func NewLeaveDocumentHandler() hub.Handler          { return &LeaveDocumentHandler{} }
func (h *LeaveDocumentHandler) Name() hub.EventName { return hub.EvLeaveDocument }

func (h *LeaveDocumentHandler) Handle(ctx *hub.Context, f *hub.Frame, c *hub.Client) error {
	p, err := hub.DecodePayload[hub.DocumentPayload](f.Data)
	if err != nil {
		return err
	}
	if p.DocumentID == "" {
		return errs.ErrBadPayload.WithDetail("documentId required")
	}
	ctx.S.Rooms().Leave(c.ConnID, p.DocumentID)
	return nil
}

type UpdateContentHandler struct{}

func NewUpdateContentHandler() hub.Handler          { return &UpdateContentHandler{} }
func (h *UpdateContentHandler) Name() hub.EventName { return hub.EvUpdateContent }

// Handle broadcasts the new document content to every other editor in
// the document room. The sender already has the content locally.
func (h *UpdateContentHandler) Handle(ctx *hub.Context, f *hub.Frame, c *hub.Client) error {
	p, err := hub.DecodePayload[hub.UpdateContentPayload](f.Data)
	if err != nil {
		return err
	}
	if p.DocumentID == "" {
		return errs.ErrBadPayload.WithDetail("documentId required")
	}

	return ctx.S.Disp().Publish(hub.Event{
		Room:    p.DocumentID,
		Kind:    hub.EvContentChange,
		Payload: hub.BuildContentChange(p.Content),
		Exclude: c.ConnID,
	})
}
