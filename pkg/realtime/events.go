package realtime

import "encoding/json"

// Server -> client event names
const (
	EventNewRideRequest    = "newRideRequest"
	EventDriverAccepted    = "driverAccepted"
	EventRideAcceptedByYou = "rideAcceptedByYou"
	EventRideCancelled     = "rideCancelled"
	EventRideStatusUpdate  = "rideStatusUpdate"
	EventRideCompleted     = "rideCompleted"
	EventNewMessage        = "newMessage"
	EventMessageHistory    = "messageHistory"
)

// Client -> server event names
const (
	EventAuthenticate   = "authenticate"
	EventGetChatHistory = "getChatHistory"
	EventSendMessage    = "sendMessage"
	EventStatusUpdate   = "rideStatusUpdate"
	EventUpdateLocation = "updateLocation"
	EventPing           = "ping"
	EventPong           = "pong"
)

// Event is one named push frame delivered to a user's connection
type Event struct {
	Name    string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// ClientEvent is one inbound frame from a connected client
type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}
