package main

import (
	"net/http"

	"catrack/internal/websocket"
)

// Global hub instance.
var wsHub = websocket.NewHub()

func handleWS(w http.ResponseWriter, r *http.Request) {
	websocket.Handle(wsHub, w, r)
}

// broadcast is a convenience helper used by handlers.
func broadcast(resourceType, action string, id any) {
	wsHub.BroadcastChange(resourceType, action, id)
}
