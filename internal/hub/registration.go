package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/l-t-m-f/XO-TicTacToe/internal/bot"
	"github.com/l-t-m-f/XO-TicTacToe/internal/events"
	"github.com/l-t-m-f/XO-TicTacToe/internal/hub/types"
	"github.com/l-t-m-f/XO-TicTacToe/internal/player"
	"github.com/l-t-m-f/XO-TicTacToe/internal/room"
)

// botGameTimeout is the per-move timeout for a game at the given
// difficulty.
func botGameTimeout(difficulty string) time.Duration {
	switch difficulty {
	case "hard":
		return 5 * time.Second
	case "easy":
		return 15 * time.Second
	default:
		return 10 * time.Second
	}
}

// reconnectableRoom returns the room a player can rejoin, or "" when their
// session points nowhere or the game is already gone.
func (h *Hub) reconnectableRoom(ctx context.Context, playerID string) string {
	if playerID == "" {
		return ""
	}
	roomID, _, err := h.playerRepo.FindForReconnection(ctx, playerID)
	if err != nil || roomID == "" {
		return ""
	}
	if _, err := h.gameRepo.FindByID(ctx, roomID); err != nil {
		return ""
	}
	return roomID
}

func (h *Hub) handleReconnectionRegistration(ctx context.Context, p *player.Player, roomID string) {
	ctx, span := tracer.Start(ctx, "hub.handleReconnectionRegistration", trace.WithAttributes(
		attribute.String("player.id", p.ID),
		attribute.String("room.id", roomID),
	))
	defer span.End()

	assignTo := []*player.Player{p}

	if existingRoom, ok := h.localRooms[roomID]; ok {
		existingRoom.AddPlayer(p)
		go existingRoom.ReadPump(p)
		slog.InfoContext(ctx, "Reconnected player added back to existing local room", "player.id", p.ID, "room.id", roomID)
	} else {
		gameState, err := h.gameRepo.FindByID(ctx, roomID)
		if err != nil {
			slog.ErrorContext(ctx, "Game state vanished during reconnection", "room.id", roomID, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Game state vanished during reconnection")
			return
		}

		slog.InfoContext(ctx, "Creating new local room handler for reconnected player", "player.id", p.ID, "room.id", roomID)
		newRoom := room.NewRoom(roomID, h.rdb, h.gameRepo, h.playerRepo, &bot.BotMoveCalculator{}, botGameTimeout(gameState.Difficulty))
		newRoom.AddPlayer(p)

		// A bot lives and dies with the instance hosting its room, so a
		// room rebuilt here needs a fresh bot in the old seat.
		opponentID := gameState.PlayerXID
		if opponentID == p.ID {
			opponentID = gameState.PlayerOID
		}
		if strings.HasPrefix(opponentID, bot.PlayerIDPrefix) {
			botPlayer := player.NewPlayer(opponentID, nil)
			botPlayer.IsBot = true
			botPlayer.Conn = bot.NewBotConnection(opponentID, gameState.Difficulty, botPlayer, newRoom.IncomingMoves(), h.botThinkDelay)
			newRoom.AddPlayer(botPlayer)
			h.localPlayers[botPlayer.ID] = botPlayer
			assignTo = newRoom.Players
		}

		h.localRooms[roomID] = newRoom
		go newRoom.Start(h.unregister)
		go h.runRoomUpdateSubscriber(ctx, newRoom)
	}

	if err := h.playerRepo.UpdateConnectionStatus(ctx, p.ID, player.StatusConnected); err != nil {
		slog.ErrorContext(ctx, "Failed to mark reconnected player connected", "player.id", p.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to mark reconnected player connected")
	}

	payload, _ := json.Marshal(events.PlayerReconnectedPayload{RoomID: roomID, PlayerID: p.ID})
	event, _ := json.Marshal(events.Event{Type: "player_reconnected", Payload: payload})
	if err := h.rdb.Publish(ctx, events.EventsChannel, event).Err(); err != nil {
		slog.ErrorContext(ctx, "Failed to publish player_reconnected event", "player.id", p.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to publish player_reconnected event")
	}

	h.sendInitialRoomState(ctx, h.localRooms[roomID], assignTo)
}

func (h *Hub) registerBotGame(ctx context.Context, req *types.RegistrationRequest) {
	ctx, span := tracer.Start(ctx, "hub.registerBotGame", trace.WithAttributes(
		attribute.String("player.id", req.Player.ID),
		attribute.String("bot.difficulty", req.Difficulty),
	))
	defer span.End()

	slog.InfoContext(ctx, "Creating bot match", "player.id", req.Player.ID, "difficulty", req.Difficulty)

	roomID := uuid.New().String()
	span.SetAttributes(attribute.String("room.id", roomID))

	newRoom := room.NewRoom(roomID, h.rdb, h.gameRepo, h.playerRepo, &bot.BotMoveCalculator{}, botGameTimeout(req.Difficulty))

	human := req.Player
	botPlayer := bot.NewBotPlayer(req.Difficulty, newRoom.IncomingMoves(), h.botThinkDelay)

	// The human takes the X seat; which mark opens is drawn per game by
	// the store.
	if err := h.gameRepo.Create(ctx, roomID, human.ID, botPlayer.ID, req.Difficulty); err != nil {
		slog.ErrorContext(ctx, "Failed to create bot game state", "room.id", roomID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create bot game state")
		return
	}

	if err := h.playerRepo.UpdateForMatch(ctx, human.ID, roomID); err != nil {
		slog.ErrorContext(ctx, "Failed to bind player to room", "player.id", human.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to bind player to room")
	}

	newRoom.AddPlayer(human)
	newRoom.AddPlayer(botPlayer)
	h.localRooms[roomID] = newRoom
	h.localPlayers[botPlayer.ID] = botPlayer

	go newRoom.Start(h.unregister)
	go h.runRoomUpdateSubscriber(ctx, newRoom)
	gamesStarted.Add(ctx, 1, metric.WithAttributes(attribute.String("bot.difficulty", req.Difficulty)))
	slog.InfoContext(ctx, "Bot match room created", "room.id", roomID, "player.id", human.ID, "bot.id", botPlayer.ID)

	h.sendInitialRoomState(ctx, newRoom, newRoom.Players)
}
