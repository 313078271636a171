package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func registerWSRoute(mux *http.ServeMux, hub *Hub, manager SessionManager) {
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("ws upgrade error: %v", err)
			return
		}
		defer func() { _ = conn.Close() }()

		client := hub.Register()
		defer hub.Unregister(client)

		hub.sendTo(client, newEnvelope(EventConnection, "", map[string]string{"client_id": client.ID}))

		// Write pump. A write error tears down only this client.
		go func() {
			for msg := range client.Send() {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					hub.Unregister(client)
					return
				}
			}
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		}()

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var msg ClientMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				hub.sendTo(client, newEnvelope(EventError, "", map[string]string{"error": "invalid message"}))
				continue
			}

			switch msg.Type {
			case ClientSubscribe:
				if msg.SessionID == "" {
					hub.sendTo(client, newEnvelope(EventError, "", map[string]string{"error": "session_id required"}))
					continue
				}
				hub.Subscribe(client, msg.SessionID)
			case ClientUnsubscribe:
				hub.Unsubscribe(client, msg.SessionID)
			case ClientHeartbeat:
				hub.Heartbeat(client)
			case ClientGetStatus:
				payload := map[string]any{
					"active_session":    nil,
					"connected_clients": hub.ClientCount(),
					"subscriptions":     client.subscriptions(),
				}
				if info, ok := manager.Active(); ok {
					payload["active_session"] = info
				}
				hub.sendTo(client, newEnvelope(EventStatus, "", payload))
			default:
				hub.sendTo(client, newEnvelope(EventError, "", map[string]string{"error": "unknown message type"}))
			}
		}
	})
}
