package hub

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/l-t-m-f/XO-TicTacToe/internal/room"
)

// runRoomUpdateSubscriber listens on the room's update channel and
// re-broadcasts the stored game state to the room's local connections.
// Updates travel through Redis so every instance hosting a seat in the
// room delivers them, not just the one that applied the move.
func (h *Hub) runRoomUpdateSubscriber(ctx context.Context, rm *room.Room) {
	ctx, span := tracer.Start(ctx, "hub.runRoomUpdateSubscriber", trace.WithAttributes(
		attribute.String("room.id", rm.ID),
	))
	defer span.End()

	channel := room.RoomChannel(rm.ID)
	slog.InfoContext(ctx, "Starting update subscriber for room", "room.id", rm.ID, "channel", channel)
	pubsub := h.rdb.Subscribe(ctx, channel)
	defer pubsub.Close()

	go func() {
		<-rm.Done
		pubsub.Close()
	}()

	for range pubsub.Channel() {
		h.broadcastRoomState(ctx, rm)
	}
	slog.InfoContext(ctx, "Stopping update subscriber for room", "room.id", rm.ID)
}

func (h *Hub) broadcastRoomState(ctx context.Context, rm *room.Room) {
	ctx, span := tracer.Start(ctx, "hub.handleRoomUpdate", trace.WithAttributes(
		attribute.String("room.id", rm.ID),
	))
	defer span.End()

	gameState, err := h.gameRepo.FindByID(ctx, rm.ID)
	if err != nil {
		slog.ErrorContext(ctx, "Room subscriber could not get game state", "room.id", rm.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Could not get game state")
		return
	}

	rm.Broadcast(room.StateMessage(gameState))
}
