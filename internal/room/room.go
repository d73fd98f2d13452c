package room

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"github.com/l-t-m-f/XO-TicTacToe/internal/game"
	"github.com/l-t-m-f/XO-TicTacToe/internal/hub/types"
	"github.com/l-t-m-f/XO-TicTacToe/internal/player"
	"github.com/l-t-m-f/XO-TicTacToe/internal/repository"
	"github.com/l-t-m-f/XO-TicTacToe/pkg/proto"
)

const (
	heartbeatInterval = 10 * time.Second
)

var reconnectionGracePeriod = 60 * time.Second
var tracer = otel.Tracer("room")

// Publisher is the slice of the Redis client the room needs: fan-out of
// room updates and global events.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// MoveCalculator defines an interface for an agent that can calculate a game move.
type MoveCalculator interface {
	CalculateNextMove(b *game.Board, mark game.Mark, difficulty string) (game.Cell, bool)
}

// Room represents a game room.
type Room struct {
	ID             string
	pub            Publisher
	gameRepo       repository.GameRepository
	playerRepo     repository.PlayerRepository
	Players        []*player.Player
	mu             sync.Mutex
	incomingMoves  chan *types.PlayerMove
	unregister     chan *player.Player
	moveCalculator MoveCalculator
	moveTimeout    time.Duration
	Done           chan struct{}
}

// NewRoom creates a new game room.
func NewRoom(id string, pub Publisher, gameRepo repository.GameRepository, playerRepo repository.PlayerRepository, calculator MoveCalculator, timeout time.Duration) *Room {
	return &Room{
		ID:             id,
		pub:            pub,
		gameRepo:       gameRepo,
		playerRepo:     playerRepo,
		Players:        make([]*player.Player, 0, 2),
		incomingMoves:  make(chan *types.PlayerMove, 10),
		unregister:     make(chan *player.Player),
		moveCalculator: calculator,
		moveTimeout:    timeout,
		Done:           make(chan struct{}),
	}
}

// Start starts the game room, launching the main game loop and listening
// for player disconnections. Bots push their moves into incomingMoves
// themselves, so only human connections get a read pump.
func (r *Room) Start(unregisterPlayer chan<- *player.Player) {
	for _, p := range r.Players {
		if !p.IsBot {
			go r.ReadPump(p)
		}
	}
	go r.run()

	for {
		select {
		case p := <-r.unregister:
			unregisterPlayer <- p
		case <-r.Done:
			return
		}
	}
}

// Stop shuts down the room's goroutines. Safe to call once.
func (r *Room) Stop() {
	close(r.Done)
}

// run is the main game loop for the room.
func (r *Room) run() {
	ctx := context.Background()
	moveTimer := time.NewTimer(r.moveTimeout)
	pingTicker := time.NewTicker(heartbeatInterval)
	cleanupTicker := time.NewTicker(reconnectionGracePeriod)

	defer func() {
		moveTimer.Stop()
		pingTicker.Stop()
		cleanupTicker.Stop()
	}()

	for {
		gameState, err := r.gameRepo.FindByID(ctx, r.ID)
		if err != nil {
			slog.ErrorContext(ctx, "run loop cannot get game state, closing room", "room.id", r.ID, "error", err)
			if len(r.Players) > 0 {
				select {
				case r.unregister <- r.Players[0]:
				case <-r.Done:
				}
			}
			return
		}

		var currentPlayer *player.Player
		for _, p := range r.Players {
			if mark := gameState.MarkOf(p.ID); mark != game.Empty && mark == gameState.CurrentTurn {
				currentPlayer = p
				break
			}
		}

		isLocalTurn := currentPlayer != nil

		if isLocalTurn {
			if currentPlayer.Status == player.StatusConnected {
				moveTimer.Reset(r.moveTimeout)
			} else {
				moveTimer.Reset(1 * time.Second)
			}
		} else {
			moveTimer.Stop()
		}

		select {
		case <-r.Done:
			slog.Info("Room run goroutine stopping.", "room.id", r.ID)
			return

		case move := <-r.incomingMoves:
			if !moveTimer.Stop() {
				select {
				case <-moveTimer.C:
				default:
				}
			}
			r.HandleMessage(move.Player, move.Message)

		case <-moveTimer.C:
			if !isLocalTurn {
				continue
			}

			if gameState.Finished() {
				continue
			}

			slog.Info("Player timed out", "player.id", currentPlayer.ID, "room.id", r.ID)
			cell, ok := r.moveCalculator.CalculateNextMove(gameState.Board, gameState.CurrentTurn, "medium")
			if ok {
				slog.Info("Proxy move for player", "player.id", currentPlayer.ID, "col", cell.Col, "row", cell.Row)
				moveMsg := proto.ClientToServerMessage{Type: "move", Position: []int{cell.Col, cell.Row}}
				moveBytes, _ := json.Marshal(moveMsg)
				r.HandleMessage(currentPlayer, moveBytes)
			}

		case <-pingTicker.C:
			for _, p := range r.Players {
				if p.Status == player.StatusConnected && !p.IsBot {
					if err := p.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						slog.Warn("Failed to send ping to player, assuming disconnect", "player.id", p.ID, "error", err)
					}
				}
			}

		case <-cleanupTicker.C:
			r.mu.Lock()
			var expired []*player.Player
			for _, p := range r.Players {
				if p.Status == player.StatusDisconnected && time.Since(p.LastSeen) > reconnectionGracePeriod {
					expired = append(expired, p)
				}
			}
			r.mu.Unlock()
			for _, p := range expired {
				slog.Info("Player exceeded reconnection grace period. Removing from room.", "player.id", p.ID, "room.id", r.ID)
				select {
				case r.unregister <- p:
				case <-r.Done:
					return
				}
			}
		}
	}
}
