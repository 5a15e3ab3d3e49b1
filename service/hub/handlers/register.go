package handlers

import (
	"relayhub/service/hub"
)

// RegisterAll wires every inbound event handler into the server's mux.
// Call once during startup, before the first connection is accepted.
func RegisterAll(s *hub.Server) {
	for _, h := range []hub.Handler{
		NewJoinRoomHandler(),
		NewLeaveRoomHandler(),
		NewSendMessageHandler(),
		NewJoinDocumentHandler(),
		NewLeaveDocumentHandler(),
		NewUpdateContentHandler(),
	} {
		s.Mux().Register(h)
	}
}
