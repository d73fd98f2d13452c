package bot

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/l-t-m-f/XO-TicTacToe/internal/game"
	"github.com/l-t-m-f/XO-TicTacToe/internal/hub/types"
	"github.com/l-t-m-f/XO-TicTacToe/internal/player"
	"github.com/l-t-m-f/XO-TicTacToe/pkg/proto"
)

func emptyGrid() [][]string {
	return [][]string{{"", "", ""}, {"", "", ""}, {"", "", ""}}
}

func TestNewBotConnection(t *testing.T) {
	p := &player.Player{ID: "testBot"}
	incomingMoves := make(chan *types.PlayerMove, 1)

	bc := NewBotConnection("testBot", "easy", p, incomingMoves, 0)

	if bc.playerID != "testBot" {
		t.Errorf("playerID = %s, want testBot", bc.playerID)
	}
	if bc.difficulty != "easy" {
		t.Errorf("difficulty = %s, want easy", bc.difficulty)
	}
	if bc.self != p {
		t.Error("player not set correctly")
	}
	if bc.mark != game.Empty {
		t.Errorf("initial mark = %v, want Empty", bc.mark)
	}
}

func TestBotConnectionAssignment(t *testing.T) {
	bc := NewBotConnection("testBot", "easy", &player.Player{}, make(chan *types.PlayerMove, 1), 0)
	data, _ := json.Marshal(proto.PlayerAssignmentMessage{Type: "assignment", Mark: "X"})

	if err := bc.WriteMessage(1, data); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	if bc.mark != game.X {
		t.Errorf("mark = %v after assignment, want X", bc.mark)
	}

	bad, _ := json.Marshal(proto.PlayerAssignmentMessage{Type: "assignment", Mark: "Q"})
	if err := bc.WriteMessage(1, bad); err == nil {
		t.Errorf("WriteMessage() error = nil for an invalid mark")
	}
}

func TestBotConnectionMovesOnItsTurn(t *testing.T) {
	p := &player.Player{ID: "testBot"}
	incomingMoves := make(chan *types.PlayerMove, 1)
	bc := NewBotConnection(p.ID, "easy", p, incomingMoves, 0)
	bc.mark = game.X

	data, _ := json.Marshal(proto.ServerToClientMessage{
		Type:   "update",
		Board:  emptyGrid(),
		Next:   "X",
		Status: proto.StatusOngoing,
	})
	if err := bc.WriteMessage(1, data); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	select {
	case got := <-incomingMoves:
		if got.Player != p {
			t.Errorf("move attributed to %v, want %v", got.Player, p)
		}
		var move proto.ClientToServerMessage
		if err := json.Unmarshal(got.Message, &move); err != nil {
			t.Fatalf("unmarshal bot move: %v", err)
		}
		if move.Type != "move" || len(move.Position) != 2 {
			t.Fatalf("invalid move from bot: %+v", move)
		}
		cell := game.Cell{Col: move.Position[0], Row: move.Position[1]}
		if !cell.InRange() {
			t.Errorf("bot move %v out of range", cell)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("bot did not move within the expected time")
	}
}

func TestBotConnectionStaysQuiet(t *testing.T) {
	tests := []struct {
		name string
		msg  proto.ServerToClientMessage
	}{
		{
			name: "not its turn",
			msg: proto.ServerToClientMessage{
				Type: "update", Board: emptyGrid(), Next: "O", Status: proto.StatusOngoing,
			},
		},
		{
			name: "winner already decided",
			msg: proto.ServerToClientMessage{
				Type: "update", Board: emptyGrid(), Next: "X", Winner: "O",
			},
		},
		{
			name: "game finished",
			msg: proto.ServerToClientMessage{
				Type: "update", Board: emptyGrid(), Next: "X", Status: proto.StatusFinished,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &player.Player{ID: "testBot"}
			incomingMoves := make(chan *types.PlayerMove, 1)
			bc := NewBotConnection(p.ID, "easy", p, incomingMoves, 0)
			bc.mark = game.X

			data, _ := json.Marshal(tt.msg)
			if err := bc.WriteMessage(1, data); err != nil {
				t.Fatalf("WriteMessage() error = %v", err)
			}

			select {
			case <-incomingMoves:
				t.Error("bot moved when it should have stayed quiet")
			case <-time.After(100 * time.Millisecond):
			}
		})
	}
}

func TestBotConnectionReadBlocksUntilClose(t *testing.T) {
	bc := NewBotConnection("testBot", "easy", &player.Player{}, make(chan *types.PlayerMove, 1), 0)

	done := make(chan error, 1)
	go func() {
		_, _, err := bc.ReadMessage()
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("ReadMessage() returned before Close")
	case <-time.After(50 * time.Millisecond):
	}

	if err := bc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, errBotConnClosed) {
			t.Errorf("ReadMessage() error = %v, want errBotConnClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("ReadMessage() did not return after Close")
	}

	// Closing again is a no-op.
	if err := bc.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestBotConnectionThinkDelay(t *testing.T) {
	p := &player.Player{ID: "testBot"}
	incomingMoves := make(chan *types.PlayerMove, 1)
	bc := NewBotConnection(p.ID, "easy", p, incomingMoves, 80*time.Millisecond)
	bc.mark = game.O

	data, _ := json.Marshal(proto.ServerToClientMessage{
		Type: "update", Board: emptyGrid(), Next: "O", Status: proto.StatusOngoing,
	})
	start := time.Now()
	if err := bc.WriteMessage(1, data); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	select {
	case <-incomingMoves:
		if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
			t.Errorf("bot moved after %v, want at least the 80ms think delay", elapsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("bot did not move within the expected time")
	}
}

func TestNewBotPlayer(t *testing.T) {
	moves := make(chan *types.PlayerMove, 1)
	p := NewBotPlayer("medium", moves, 0)

	if !p.IsBot {
		t.Error("IsBot = false, want true")
	}
	if !strings.HasPrefix(p.ID, "bot-") {
		t.Errorf("ID = %q, want bot- prefix", p.ID)
	}
	if p.Conn == nil {
		t.Fatal("Conn is nil")
	}
	if p.Status != player.StatusConnected {
		t.Errorf("Status = %v, want connected", p.Status)
	}
}
