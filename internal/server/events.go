package server

import "time"

const EventVersion = 1

// Envelope is the wire format for every websocket event. Session-scoped
// events carry the session id; payload shape depends on the type.
type Envelope struct {
	Type      string `json:"type"`
	Version   int    `json:"version"`
	SessionID string `json:"session_id,omitempty"`
	Timestamp string `json:"timestamp"`
	Payload   any    `json:"payload,omitempty"`
}

// Event types pushed to clients.
const (
	EventConnection            = "connection"
	EventSubscriptionConfirmed = "subscription_confirmed"
	EventUnsubscribed          = "unsubscription_confirmed"
	EventSessionStarted        = "session_started"
	EventSessionEnded          = "session_ended"
	EventChunkUpdate           = "chunk_update"
	EventSummaryUpdate         = "summary_update"
	EventStatusUpdate          = "status_update"
	EventHeartbeat             = "heartbeat"
	EventStatus                = "status"
	EventError                 = "error"
)

// Message types accepted from clients.
const (
	ClientSubscribe   = "subscribe"
	ClientUnsubscribe = "unsubscribe"
	ClientHeartbeat   = "heartbeat"
	ClientGetStatus   = "get_status"
)

// ClientMessage is what clients send over the websocket.
type ClientMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
}

func newEnvelope(eventType, sessionID string, payload any) Envelope {
	return Envelope{
		Type:      eventType,
		Version:   EventVersion,
		SessionID: sessionID,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:   payload,
	}
}
