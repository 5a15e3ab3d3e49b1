package hub

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"relayhub/tools/errs"
)

// ===== outbound payloads =====

type MessageEvent struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

type ContentChangeEvent struct {
	Content string `json:"content"`
}

type NotificationEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt"`
}

type ErrorEvent struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func nowRFC3339() string { return time.Now().UTC().Format(time.RFC3339) }

// envelope marshals an outbound frame. Payload structs contain no
// unmarshalable fields, so the error path is kept out of call sites.
func envelope(name EventName, data any) []byte {
	b, err := json.Marshal(struct {
		Event EventName `json:"event"`
		Data  any       `json:"data"`
	}{name, data})
	if err != nil {
		return nil
	}
	return b
}

func BuildMessage(userID, userName, content string) []byte {
	return envelope(EvMessage, MessageEvent{
		ID:        uuid.NewString(),
		UserID:    userID,
		UserName:  userName,
		Content:   content,
		CreatedAt: nowRFC3339(),
	})
}

func BuildContentChange(content string) []byte {
	return envelope(EvContentChange, ContentChangeEvent{Content: content})
}

func BuildNotification(typ, message string) []byte {
	return envelope(EvNotification, NotificationEvent{
		ID:        uuid.NewString(),
		Type:      typ,
		Message:   message,
		CreatedAt: nowRFC3339(),
	})
}

func BuildError(err error) []byte {
	code := errs.Code(err)
	return envelope(EvError, ErrorEvent{Code: code, Message: err.Error()})
}
