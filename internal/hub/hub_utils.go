package hub

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/l-t-m-f/XO-TicTacToe/internal/game"
	"github.com/l-t-m-f/XO-TicTacToe/internal/player"
	"github.com/l-t-m-f/XO-TicTacToe/internal/room"
	"github.com/l-t-m-f/XO-TicTacToe/pkg/proto"
)

// sendInitialRoomState tells each listed player which mark they hold and
// broadcasts the current board to the whole room.
func (h *Hub) sendInitialRoomState(ctx context.Context, rm *room.Room, localPlayers []*player.Player) {
	ctx, span := tracer.Start(ctx, "hub.sendInitialRoomState", trace.WithAttributes(
		attribute.String("room.id", rm.ID),
		attribute.Int("local_players.count", len(localPlayers)),
	))
	defer span.End()

	slog.InfoContext(ctx, "Sending initial room state", "room.id", rm.ID, "local_players.count", len(localPlayers))

	initialGameState, err := h.gameRepo.FindByID(ctx, rm.ID)
	if err != nil {
		slog.ErrorContext(ctx, "Could not get initial game state", "room.id", rm.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Could not get initial game state")
		return
	}

	for _, p := range localPlayers {
		mark := initialGameState.MarkOf(p.ID)
		if mark == game.Empty {
			continue
		}
		assignmentMessage := &proto.PlayerAssignmentMessage{Type: "assignment", PlayerID: p.ID, Mark: mark.String()}
		data, _ := json.Marshal(assignmentMessage)
		if p.Conn == nil {
			continue
		}
		if err := p.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.ErrorContext(ctx, "Error sending assignment to player", "player.id", p.ID, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Error sending assignment to player")
		}
	}

	rm.Broadcast(room.StateMessage(initialGameState))
}
