package events

import "encoding/json"

// Pub/Sub channel constants
const (
	EventsChannel = "channel:events"
)

// Event represents a global message published via Pub/Sub.
type Event struct {
	Type    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// GameFinishedPayload is the payload for the "game_finished" event. Winner
// is the mark that won, empty on a draw. BotIDs lists the seats held by
// bots so result recording can skip them.
type GameFinishedPayload struct {
	RoomID     string   `json:"room_id"`
	Winner     string   `json:"winner,omitempty"`
	PlayerXID  string   `json:"player_x_id"`
	PlayerOID  string   `json:"player_o_id"`
	BotIDs     []string `json:"bot_ids,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
}

// PlayerDisconnectedPayload is the payload for the "player_disconnected" event.
type PlayerDisconnectedPayload struct {
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
}

// PlayerReconnectedPayload is the payload for the "player_reconnected" event.
type PlayerReconnectedPayload struct {
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
}

// RematchRequestedPayload is the payload for the "rematch_requested" event.
type RematchRequestedPayload struct {
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
}

// RematchSuccessfulPayload is the payload for the "rematch_successful" event.
type RematchSuccessfulPayload struct {
	RoomID string `json:"room_id"`
}
