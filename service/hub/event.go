package hub

import (
	"encoding/json"

	"github.com/mitchellh/mapstructure"

	"relayhub/tools/errs"
)

// EventName is the closed set of wire event names. Inbound names are
// dispatched exhaustively; anything else is rejected with a typed
// error instead of being silently ignored.
type EventName string

// client -> server
const (
	EvJoinRoom      EventName = "join_room"
	EvLeaveRoom     EventName = "leave_room"
	EvSendMessage   EventName = "send_message"
	EvJoinDocument  EventName = "join_document"
	EvLeaveDocument EventName = "leave_document"
	EvUpdateContent EventName = "update_content"
)

// server -> client
const (
	EvMessage       EventName = "message"
	EvContentChange EventName = "content_change"
	EvNotification  EventName = "notification"
	EvError         EventName = "error"
)

// RoomKind is the closed set of logical room kinds.
type RoomKind string

const (
	RoomTeam     RoomKind = "team"
	RoomDirect   RoomKind = "direct"
	RoomDocument RoomKind = "document"
)

func ParseRoomKind(s string) (RoomKind, error) {
	switch RoomKind(s) {
	case RoomTeam, RoomDirect, RoomDocument:
		return RoomKind(s), nil
	default:
		return "", errs.ErrUnknownRoomKind.WithDetail(s)
	}
}

// Frame is the JSON envelope every wire event travels in.
type Frame struct {
	Event EventName      `json:"event"`
	Data  map[string]any `json:"data"`
}

// ParseFrame decodes a raw websocket message into a Frame. Payload
// typing happens later, per handler.
func ParseFrame(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, errs.ErrBadPayload.WithDetail(err.Error())
	}
	if f.Event == "" {
		return nil, errs.ErrBadPayload.WithDetail("missing event name")
	}
	return f, nil
}

// DecodePayload maps a frame's data object onto a typed payload
// struct, honoring the json tags.
func DecodePayload[T any](data map[string]any) (*T, error) {
	out := new(T)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, errs.Wrap(err, "payload decoder")
	}
	if err := dec.Decode(data); err != nil {
		return nil, errs.ErrBadPayload.WithDetail(err.Error())
	}
	return out, nil
}

// ===== inbound payloads =====

type JoinRoomPayload struct {
	RoomID   string `json:"roomId"`
	RoomType string `json:"roomType"`
}

type SendMessagePayload struct {
	RoomID   string `json:"roomId"`
	RoomType string `json:"roomType"`
	Content  string `json:"content"`
}

type DocumentPayload struct {
	DocumentID string `json:"documentId"`
}

type UpdateContentPayload struct {
	DocumentID string `json:"documentId"`
	Content    string `json:"content"`
}
