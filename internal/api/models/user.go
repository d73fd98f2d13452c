package models

import "time"

// User represents a user in the database.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// Outcome values stored per player in game_results.
const (
	OutcomeWin  = "win"
	OutcomeLoss = "loss"
	OutcomeDraw = "draw"
)

// GameResult is one player's outcome of one finished game.
type GameResult struct {
	ID         int64     `db:"id"`
	RoomID     string    `db:"room_id"`
	PlayerID   string    `db:"player_id"`
	Mark       string    `db:"mark"`
	Outcome    string    `db:"outcome"`
	Difficulty string    `db:"difficulty"`
	FinishedAt time.Time `db:"finished_at"`
}

// PlayerStats aggregates one player's recorded results.
type PlayerStats struct {
	PlayerID string `db:"player_id" json:"player_id"`
	Games    int    `db:"games" json:"games"`
	Wins     int    `db:"wins" json:"wins"`
	Losses   int    `db:"losses" json:"losses"`
	Draws    int    `db:"draws" json:"draws"`
}

// RegisterRequest defines the structure for a user registration request.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=20"`
	Password string `json:"password" binding:"required,min=8,max=50"`
}

// LoginRequest defines the structure for a user login request.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse defines the structure for a successful login. PlayerID is
// the identity the client presents on the websocket: the username for
// registered players, a generated UUID for guests.
type LoginResponse struct {
	Token    string `json:"token"`
	PlayerID string `json:"player_id"`
	Username string `json:"username,omitempty"`
}
