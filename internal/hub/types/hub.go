package types

import (
	"context"

	"github.com/l-t-m-f/XO-TicTacToe/internal/player"
)

// RegistrationRequest represents a request to register a player.
type RegistrationRequest struct {
	Player     *player.Player
	PlayerID   string // Used for reconnection
	Mode       string // "bot" or "reconnect"
	Difficulty string // "easy", "medium", "hard"
	Ctx        context.Context
}

// PlayerMove pairs an inbound payload with the player that sent it.
type PlayerMove struct {
	Player  *player.Player
	Message []byte
}
