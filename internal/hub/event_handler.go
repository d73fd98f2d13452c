package hub

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/l-t-m-f/XO-TicTacToe/internal/events"
	"github.com/l-t-m-f/XO-TicTacToe/internal/player"
	"github.com/l-t-m-f/XO-TicTacToe/pkg/proto"
)

// runEventSubscriber forwards global pub/sub events into the Run loop so
// every handler touches hub state from one goroutine.
func (h *Hub) runEventSubscriber(ctx context.Context) {
	slog.InfoContext(ctx, "Event subscriber started", "channel", events.EventsChannel)
	pubsub := h.rdb.Subscribe(ctx, events.EventsChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			select {
			case h.events <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *Hub) dispatchEvent(ctx context.Context, payload string) {
	ctx, span := tracer.Start(ctx, "hub.handleEvent", trace.WithAttributes(
		attribute.String("event.channel", events.EventsChannel),
	))
	defer span.End()

	var event events.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		slog.ErrorContext(ctx, "Could not unmarshal global event", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Could not unmarshal global event")
		return
	}
	span.SetAttributes(attribute.String("event.type", event.Type))

	switch event.Type {
	case "player_disconnected":
		var p events.PlayerDisconnectedPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			slog.ErrorContext(ctx, "Could not unmarshal player_disconnected payload", "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Could not unmarshal player_disconnected payload")
			return
		}
		h.handlePlayerDisconnected(ctx, &p)

	case "player_reconnected":
		var p events.PlayerReconnectedPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			slog.ErrorContext(ctx, "Could not unmarshal player_reconnected payload", "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Could not unmarshal player_reconnected payload")
			return
		}
		h.handlePlayerReconnected(ctx, &p)

	case "rematch_requested":
		var p events.RematchRequestedPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			slog.ErrorContext(ctx, "Could not unmarshal rematch_requested payload", "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Could not unmarshal rematch_requested payload")
			return
		}
		h.handleRematchRequested(ctx, &p)

	case "rematch_successful":
		var p events.RematchSuccessfulPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			slog.ErrorContext(ctx, "Could not unmarshal rematch_successful payload", "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Could not unmarshal rematch_successful payload")
			return
		}
		h.handleRematchSuccessful(ctx, &p)

	case "game_finished":
		var p events.GameFinishedPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			slog.ErrorContext(ctx, "Could not unmarshal game_finished payload", "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Could not unmarshal game_finished payload")
			return
		}
		h.handleGameFinished(ctx, &p)

	default:
		slog.WarnContext(ctx, "Ignoring unknown global event", "event.type", event.Type)
	}
}

func (h *Hub) handlePlayerDisconnected(ctx context.Context, payload *events.PlayerDisconnectedPayload) {
	ctx, span := tracer.Start(ctx, "hub.handlePlayerDisconnected", trace.WithAttributes(
		attribute.String("room.id", payload.RoomID),
		attribute.String("player.id", payload.PlayerID),
	))
	defer span.End()

	slog.InfoContext(ctx, "Received player_disconnected event", "player.id", payload.PlayerID, "room.id", payload.RoomID)

	if rm, ok := h.localRooms[payload.RoomID]; ok {
		rm.SetPlayerStatus(payload.PlayerID, player.StatusDisconnected)
		rm.HandleOpponentDisconnected()
	}
}

func (h *Hub) handlePlayerReconnected(ctx context.Context, payload *events.PlayerReconnectedPayload) {
	ctx, span := tracer.Start(ctx, "hub.handlePlayerReconnected", trace.WithAttributes(
		attribute.String("room.id", payload.RoomID),
		attribute.String("player.id", payload.PlayerID),
	))
	defer span.End()

	slog.InfoContext(ctx, "Received player_reconnected event", "player.id", payload.PlayerID, "room.id", payload.RoomID)

	if rm, ok := h.localRooms[payload.RoomID]; ok {
		rm.SetPlayerStatus(payload.PlayerID, player.StatusConnected)
		rm.HandleOpponentReconnected()
	}
}

func (h *Hub) handleRematchRequested(ctx context.Context, payload *events.RematchRequestedPayload) {
	ctx, span := tracer.Start(ctx, "hub.handleRematchRequested", trace.WithAttributes(
		attribute.String("room.id", payload.RoomID),
		attribute.String("player.id", payload.PlayerID),
	))
	defer span.End()

	slog.InfoContext(ctx, "Received rematch_requested event", "player.id", payload.PlayerID, "room.id", payload.RoomID)

	rm, ok := h.localRooms[payload.RoomID]
	if !ok {
		return
	}
	msg := &proto.ServerToClientMessage{Type: "rematch_requested"}
	data, _ := json.Marshal(msg)
	for _, p := range rm.Players {
		if p.ID == payload.PlayerID || p.Conn == nil {
			continue
		}
		if err := p.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.ErrorContext(ctx, "Error sending rematch_requested to player", "player.id", p.ID, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Error sending rematch_requested")
		}
	}
}

func (h *Hub) handleRematchSuccessful(ctx context.Context, payload *events.RematchSuccessfulPayload) {
	ctx, span := tracer.Start(ctx, "hub.handleRematchSuccessful", trace.WithAttributes(
		attribute.String("room.id", payload.RoomID),
	))
	defer span.End()

	slog.InfoContext(ctx, "Received rematch_successful event", "room.id", payload.RoomID)

	if rm, ok := h.localRooms[payload.RoomID]; ok {
		// Seats swap on rematch, so assignments have to go out again.
		h.sendInitialRoomState(ctx, rm, rm.Players)
	}
}

func (h *Hub) handleGameFinished(ctx context.Context, payload *events.GameFinishedPayload) {
	ctx, span := tracer.Start(ctx, "hub.handleGameFinished", trace.WithAttributes(
		attribute.String("room.id", payload.RoomID),
		attribute.String("game.winner", payload.Winner),
	))
	defer span.End()

	// Results are recorded once, by the instance hosting the room.
	if _, ok := h.localRooms[payload.RoomID]; !ok {
		return
	}
	gamesFinished.Add(ctx, 1)

	if h.results == nil {
		return
	}

	if err := h.results.RecordFinishedGame(ctx, payload); err != nil {
		slog.ErrorContext(ctx, "Failed to record game result", "room.id", payload.RoomID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to record game result")
	}
}
