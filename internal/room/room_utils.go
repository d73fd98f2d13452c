package room

import (
	"fmt"

	"github.com/l-t-m-f/XO-TicTacToe/internal/game"
	"github.com/l-t-m-f/XO-TicTacToe/internal/hub/types"
	"github.com/l-t-m-f/XO-TicTacToe/internal/player"
	"github.com/l-t-m-f/XO-TicTacToe/internal/repository"
	"github.com/l-t-m-f/XO-TicTacToe/pkg/proto"
)

// RoomChannel is the pub/sub channel carrying update notifications for one room.
func RoomChannel(roomID string) string {
	return fmt.Sprintf("channel:room:%s", roomID)
}

// AddPlayer adds a player to the room. A player carrying an ID already
// seated replaces the old entry, so a reconnecting player takes over
// their former seat instead of joining twice.
func (r *Room) AddPlayer(p *player.Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.Players {
		if existing.ID == p.ID {
			r.Players[i] = p
			return
		}
	}
	r.Players = append(r.Players, p)
}

// RemovePlayer drops a player from the room and reports how many human
// seats remain occupied.
func (r *Room) RemovePlayer(playerID string) (humansLeft int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.Players {
		if p.ID == playerID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			break
		}
	}
	for _, p := range r.Players {
		if !p.IsBot {
			humansLeft++
		}
	}
	return humansLeft
}

// SetPlayerStatus updates the connection status of a seated player.
func (r *Room) SetPlayerStatus(playerID string, status player.PlayerStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.Players {
		if p.ID == playerID {
			p.Status = status
			return
		}
	}
}

// IncomingMoves returns the channel for incoming player moves.
func (r *Room) IncomingMoves() chan<- *types.PlayerMove {
	return r.incomingMoves
}

// StateMessage renders a game state as the update message sent to clients.
// Finished games with a winner carry the completed line for highlighting.
func StateMessage(state *repository.GameState) *proto.ServerToClientMessage {
	msg := &proto.ServerToClientMessage{
		Type:   "update",
		Board:  state.Board.Grid(),
		Next:   state.CurrentTurn.String(),
		Winner: state.Winner.String(),
		Status: state.Status,
	}

	if state.Winner != game.Empty {
		if ln, ok := state.Board.WinningLine(state.Winner); ok {
			cells := make([][]int, len(ln))
			for i, c := range ln {
				cells[i] = []int{c.Col, c.Row}
			}
			msg.WinningLine = cells
		}
	}
	return msg
}
