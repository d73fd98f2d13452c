package bot

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/l-t-m-f/XO-TicTacToe/internal/game"
	"github.com/l-t-m-f/XO-TicTacToe/internal/hub/types"
	"github.com/l-t-m-f/XO-TicTacToe/internal/player"
	"github.com/l-t-m-f/XO-TicTacToe/pkg/proto"
)

var errBotConnClosed = errors.New("bot connection closed")

// PlayerIDPrefix marks bot seats in stored game state, letting a hub
// rebuilding a room tell a bot seat from a human one.
const PlayerIDPrefix = "bot-"

// BotConnection simulates a websocket connection for a bot player. It
// implements the player.Connection interface: the room writes state to it
// like to any remote client, and the moves it decides on go straight into
// the room's move channel, so the room never runs a read pump for it.
type BotConnection struct {
	playerID   string
	difficulty string
	thinkDelay time.Duration

	self  *player.Player
	moves chan<- *types.PlayerMove

	// mark is written and read only from the room loop via WriteMessage;
	// think goroutines get their own copy.
	mark game.Mark

	closeOnce sync.Once
	done      chan struct{}
}

// NewBotConnection creates a new connection for a bot. Moves are delivered
// on moves tagged with self, the player entry the bot occupies in the room.
func NewBotConnection(playerID, difficulty string, self *player.Player, moves chan<- *types.PlayerMove, thinkDelay time.Duration) *BotConnection {
	return &BotConnection{
		playerID:   playerID,
		difficulty: difficulty,
		thinkDelay: thinkDelay,
		self:       self,
		moves:      moves,
		done:       make(chan struct{}),
	}
}

// WriteMessage is called by the room to send game state to the bot.
func (bc *BotConnection) WriteMessage(messageType int, data []byte) error {
	var genericMsg map[string]any
	if err := json.Unmarshal(data, &genericMsg); err != nil {
		return err
	}

	msgType, ok := genericMsg["type"].(string)
	if !ok {
		return nil // Not a message the bot cares about
	}

	switch msgType {
	case "assignment":
		var msg proto.PlayerAssignmentMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return err
		}
		mark, err := game.ParseMark(msg.Mark)
		if err != nil {
			return err
		}
		bc.mark = mark
		slog.Debug("bot assigned mark", "bot_id", bc.playerID, "mark", msg.Mark)

	case "update":
		var msg proto.ServerToClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return err
		}

		// The bot only acts when it has a mark, the game is live, and it
		// is its turn.
		mark := bc.mark
		if mark == game.Empty || msg.Next != mark.String() ||
			msg.Winner != "" || msg.Status == proto.StatusFinished {
			return nil
		}
		go bc.think(mark, msg.Board)
	}

	return nil
}

// think simulates thinking time, then computes a move off the given grid
// and pushes it into the room. Runs outside the room loop so a slow delay
// never stalls a broadcast.
func (bc *BotConnection) think(mark game.Mark, grid [][]string) {
	if bc.thinkDelay > 0 {
		select {
		case <-time.After(bc.thinkDelay):
		case <-bc.done:
			return
		}
	}

	board, err := game.ParseGrid(grid)
	if err != nil {
		slog.Error("bot received malformed board", "bot_id", bc.playerID, "error", err)
		return
	}

	cell, ok := CalculateNextMove(board, mark, bc.difficulty)
	if !ok {
		return
	}

	move := proto.ClientToServerMessage{
		Type:     "move",
		Position: []int{cell.Col, cell.Row},
	}
	moveBytes, _ := json.Marshal(move)

	select {
	case bc.moves <- &types.PlayerMove{Player: bc.self, Message: moveBytes}:
	case <-bc.done:
	}
}

// ReadMessage blocks until the connection closes. The bot pushes its moves
// into the room directly, so there is never anything to read here.
func (bc *BotConnection) ReadMessage() (int, []byte, error) {
	<-bc.done
	return 0, nil, errBotConnClosed
}

// Close releases any pending think goroutines. Safe to call repeatedly.
func (bc *BotConnection) Close() error {
	bc.closeOnce.Do(func() { close(bc.done) })
	return nil
}

// NewBotPlayer creates a new player instance that is a bot, wired to push
// its moves into the given channel.
func NewBotPlayer(difficulty string, moves chan<- *types.PlayerMove, thinkDelay time.Duration) *player.Player {
	botID := PlayerIDPrefix + uuid.New().String()[:8]
	p := player.NewPlayer(botID, nil)
	p.IsBot = true
	p.Conn = NewBotConnection(botID, difficulty, p, moves, thinkDelay)
	return p
}
