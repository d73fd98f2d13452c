package proto

// Game status values shared by the wire protocol and the live-game store.
const (
	StatusOngoing  = "ongoing"
	StatusFinished = "finished"
)

// ClientToServerMessage represents a message from the client to the server.
// Position is [col, row], both in 0..2.
type ClientToServerMessage struct {
	Type     string `json:"type" validate:"required,oneof=move rematch"`
	Position []int  `json:"position,omitempty" validate:"omitempty,len=2,dive,min=0,max=2"`
}

// ServerToClientMessage represents a message from the server to the client.
// Board is rows of "X"/"O"/"" strings, row 0 on top. A finished game with
// an empty Winner is a draw. WinningLine lists the three [col, row] pairs
// of the completed line so the client can highlight them.
type ServerToClientMessage struct {
	Type        string     `json:"type" validate:"required"`
	Reason      string     `json:"reason,omitempty"`
	Board       [][]string `json:"board,omitempty"`
	Next        string     `json:"next,omitempty"`
	Winner      string     `json:"winner,omitempty"`
	Status      string     `json:"status,omitempty"`
	WinningLine [][]int    `json:"winningLine,omitempty"`
}

// PlayerAssignmentMessage informs a player of their assigned mark.
type PlayerAssignmentMessage struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId,omitempty"`
	Mark     string `json:"mark"`
}
