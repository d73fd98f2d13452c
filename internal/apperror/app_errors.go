package apperror

import "errors"

// Sentinel errors shared across layers. Callers branch with errors.Is and
// wrap with fmt.Errorf("...: %w", err) when adding context.
var (
	ErrCellOccupied   = errors.New("cell is already occupied")
	ErrCellOutOfRange = errors.New("cell is out of range")
	ErrMalformedBoard = errors.New("malformed board")

	ErrGameFinished = errors.New("game is already finished")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrNotYourSeat  = errors.New("player is not part of this game")
	ErrRoomNotFound = errors.New("room not found")

	ErrUserExists         = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)
