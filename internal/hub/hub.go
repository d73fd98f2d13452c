package hub

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/l-t-m-f/XO-TicTacToe/internal/events"
	"github.com/l-t-m-f/XO-TicTacToe/internal/hub/types"
	"github.com/l-t-m-f/XO-TicTacToe/internal/player"
	"github.com/l-t-m-f/XO-TicTacToe/internal/repository"
	"github.com/l-t-m-f/XO-TicTacToe/internal/room"
)

var (
	tracer = otel.Tracer("hub")
	meter  = otel.Meter("hub")

	gamesStarted  metric.Int64Counter
	gamesFinished metric.Int64Counter
)

func init() {
	var err error
	gamesStarted, err = meter.Int64Counter("games.started",
		metric.WithDescription("Games created on this instance."),
		metric.WithUnit("{game}"))
	if err != nil {
		otel.Handle(err)
	}
	gamesFinished, err = meter.Int64Counter("games.finished",
		metric.WithDescription("Finished games observed by the hosting instance."),
		metric.WithUnit("{game}"))
	if err != nil {
		otel.Handle(err)
	}
}

// ResultRecorder persists finished games so the stats endpoints can report
// them. Implemented by the api service layer.
type ResultRecorder interface {
	RecordFinishedGame(ctx context.Context, result *events.GameFinishedPayload) error
}

// Hub tracks the rooms and players hosted by this instance and reacts to
// global events published by any instance. localRooms and localPlayers are
// owned by the Run goroutine; registrations, unregistrations and global
// events all funnel into its select loop.
type Hub struct {
	rdb        *redis.Client
	gameRepo   repository.GameRepository
	playerRepo repository.PlayerRepository
	results    ResultRecorder

	localRooms   map[string]*room.Room
	localPlayers map[string]*player.Player

	register   chan *types.RegistrationRequest
	unregister chan *player.Player
	events     chan string

	botThinkDelay time.Duration
}

// NewHub creates a new hub.
func NewHub(rdb *redis.Client, gameRepo repository.GameRepository, playerRepo repository.PlayerRepository, results ResultRecorder, botThinkDelay time.Duration) *Hub {
	return &Hub{
		rdb:           rdb,
		gameRepo:      gameRepo,
		playerRepo:    playerRepo,
		results:       results,
		localRooms:    make(map[string]*room.Room),
		localPlayers:  make(map[string]*player.Player),
		register:      make(chan *types.RegistrationRequest),
		unregister:    make(chan *player.Player),
		events:        make(chan string, 16),
		botThinkDelay: botThinkDelay,
	}
}

// Run starts the hub. It returns when ctx is cancelled, stopping every
// local room on the way out.
func (h *Hub) Run(ctx context.Context) {
	go h.runEventSubscriber(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Hub shutting down, stopping local rooms", "rooms.count", len(h.localRooms))
			for _, rm := range h.localRooms {
				rm.Stop()
			}
			return

		case req := <-h.register:
			h.handleRegistration(ctx, req)

		case p := <-h.unregister:
			h.removePlayer(ctx, p)

		case payload := <-h.events:
			h.dispatchEvent(ctx, payload)
		}
	}
}

// handleRegistration seats a connecting player: back into their previous
// room when one is still live, into a fresh bot match otherwise.
func (h *Hub) handleRegistration(parentCtx context.Context, req *types.RegistrationRequest) {
	ctx := req.Ctx
	if ctx == nil {
		ctx = parentCtx
	}
	ctx, span := tracer.Start(ctx, "hub.handleRegistration", trace.WithAttributes(
		attribute.String("player.id", req.Player.ID),
		attribute.String("game.mode", req.Mode),
	))
	defer span.End()

	h.localPlayers[req.Player.ID] = req.Player

	if roomID := h.reconnectableRoom(ctx, req.PlayerID); roomID != "" {
		h.handleReconnectionRegistration(ctx, req.Player, roomID)
		return
	}

	switch req.Mode {
	case "bot":
		h.registerBotGame(ctx, req)
	default:
		slog.WarnContext(ctx, "Rejecting registration with unsupported mode", "player.id", req.Player.ID, "mode", req.Mode)
		span.SetStatus(codes.Error, "Unsupported registration mode")
		delete(h.localPlayers, req.Player.ID)
		if req.Player.Conn != nil {
			req.Player.Conn.Close()
		}
	}
}

// removePlayer drops a player whose reconnection grace period ran out,
// closing their room once no human seat remains.
func (h *Hub) removePlayer(ctx context.Context, p *player.Player) {
	ctx, span := tracer.Start(ctx, "hub.removePlayer", trace.WithAttributes(
		attribute.String("player.id", p.ID),
	))
	defer span.End()

	delete(h.localPlayers, p.ID)

	if !p.IsBot {
		if err := h.playerRepo.SetOffline(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to set player offline", "player.id", p.ID, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to set player offline")
		}
	}

	for roomID, rm := range h.localRooms {
		seated := false
		for _, seat := range rm.Players {
			if seat.ID == p.ID {
				seated = true
				break
			}
		}
		if !seated {
			continue
		}

		humansLeft := rm.RemovePlayer(p.ID)
		slog.InfoContext(ctx, "Player removed from room", "player.id", p.ID, "room.id", roomID)
		if humansLeft == 0 {
			h.closeRoom(ctx, roomID, rm)
		}
		break
	}
}

// closeRoom tears down a room nobody human is coming back to.
func (h *Hub) closeRoom(ctx context.Context, roomID string, rm *room.Room) {
	ctx, span := tracer.Start(ctx, "hub.closeRoom", trace.WithAttributes(
		attribute.String("room.id", roomID),
	))
	defer span.End()

	for _, seat := range rm.Players {
		if seat.IsBot && seat.Conn != nil {
			seat.Conn.Close()
		}
		delete(h.localPlayers, seat.ID)
	}

	rm.Stop()
	delete(h.localRooms, roomID)

	if err := h.gameRepo.Delete(ctx, roomID); err != nil {
		slog.ErrorContext(ctx, "Failed to delete game state for closed room", "room.id", roomID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete game state for closed room")
	}
	slog.InfoContext(ctx, "Room closed", "room.id", roomID)
}

// Register returns the registration channel.
func (h *Hub) Register() chan<- *types.RegistrationRequest {
	return h.register
}

// Unregister returns the unregistration channel.
func (h *Hub) Unregister() chan<- *player.Player {
	return h.unregister
}
