package room

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/l-t-m-f/XO-TicTacToe/internal/apperror"
	"github.com/l-t-m-f/XO-TicTacToe/internal/events"
	"github.com/l-t-m-f/XO-TicTacToe/internal/game"
	"github.com/l-t-m-f/XO-TicTacToe/internal/player"
	"github.com/l-t-m-f/XO-TicTacToe/internal/repository"
	"github.com/l-t-m-f/XO-TicTacToe/internal/validator"
	"github.com/l-t-m-f/XO-TicTacToe/pkg/proto"
)

// HandleMessage handles a message from a player. It acts as a dispatcher.
func (r *Room) HandleMessage(p *player.Player, rawMessage []byte) {
	ctx := context.Background()
	ctx, span := tracer.Start(ctx, "room.HandleMessage", trace.WithAttributes(
		attribute.String("player.id", p.ID),
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if p.Status == player.StatusDisconnected {
		slog.WarnContext(ctx, "ignoring message from disconnected player", "player.id", p.ID)
		span.SetStatus(codes.Error, "Message from disconnected player")
		return
	}

	var message proto.ClientToServerMessage
	if err := json.Unmarshal(rawMessage, &message); err != nil {
		slog.ErrorContext(ctx, "error unmarshalling message", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error unmarshalling message")
		return
	}

	if err := validator.GetValidator().Struct(message); err != nil {
		slog.WarnContext(ctx, "invalid message from player", "player.id", p.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid message format")
		return
	}

	span.SetAttributes(attribute.String("message.type", message.Type))

	switch message.Type {
	case "move":
		r.handleMove(ctx, p, &message)
	case "rematch":
		r.handleRematch(ctx, p)
	}
}

// handleMove processes a player's move.
func (r *Room) handleMove(ctx context.Context, p *player.Player, message *proto.ClientToServerMessage) {
	ctx, moveSpan := tracer.Start(ctx, "room.handleMove", trace.WithAttributes(
		attribute.String("player.id", p.ID),
		attribute.String("room.id", r.ID),
	))
	defer moveSpan.End()

	if len(message.Position) != 2 {
		slog.WarnContext(ctx, "move without a position", "player.id", p.ID)
		moveSpan.SetStatus(codes.Error, "Move without a position")
		r.sendError(p, "move needs a [col, row] position")
		return
	}
	cell := game.Cell{Col: message.Position[0], Row: message.Position[1]}
	moveSpan.SetAttributes(
		attribute.Int("move.col", cell.Col),
		attribute.Int("move.row", cell.Row),
	)

	gameState, err := r.gameRepo.FindByID(ctx, r.ID)
	if err != nil {
		slog.ErrorContext(ctx, "handleMove could not find game state for room", "room.id", r.ID, "error", err)
		moveSpan.RecordError(err)
		moveSpan.SetStatus(codes.Error, "Could not find game state")
		return
	}

	playerMark := gameState.MarkOf(p.ID)
	if playerMark == game.Empty {
		slog.WarnContext(ctx, "player is not part of room", "player.id", p.ID, "room.id", r.ID)
		moveSpan.SetStatus(codes.Error, "Player not part of room")
		r.sendError(p, apperror.ErrNotYourSeat.Error())
		return
	}

	newState, err := r.gameRepo.ApplyMove(ctx, r.ID, playerMark, cell)
	if err != nil {
		slog.WarnContext(ctx, "invalid move from player", "player.id", p.ID, "error", err)
		moveSpan.SetAttributes(attribute.Bool("move.valid", false))
		moveSpan.RecordError(err)
		moveSpan.SetStatus(codes.Error, "Invalid move")
		r.sendError(p, err.Error())
		return
	}
	moveSpan.SetAttributes(attribute.Bool("move.valid", true))

	if err := r.pub.Publish(ctx, RoomChannel(r.ID), "update").Err(); err != nil {
		slog.ErrorContext(ctx, "failed to publish update for room", "room.id", r.ID, "error", err)
		moveSpan.RecordError(err)
		moveSpan.SetStatus(codes.Error, "Failed to publish room update")
	}

	if newState.Finished() {
		r.publishGameFinished(ctx, newState)
	}
}

// publishGameFinished announces the final result on the global events
// channel, flagging bot seats so result recording can skip them.
func (r *Room) publishGameFinished(ctx context.Context, state *repository.GameState) {
	botIDs := make([]string, 0, 1)
	for _, p := range r.Players {
		if p.IsBot {
			botIDs = append(botIDs, p.ID)
		}
	}

	payload, _ := json.Marshal(events.GameFinishedPayload{
		RoomID:     r.ID,
		Winner:     state.Winner.String(),
		PlayerXID:  state.PlayerXID,
		PlayerOID:  state.PlayerOID,
		BotIDs:     botIDs,
		Difficulty: state.Difficulty,
	})
	event, _ := json.Marshal(events.Event{Type: "game_finished", Payload: payload})
	if err := r.pub.Publish(ctx, events.EventsChannel, event).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to publish game_finished event", "room.id", r.ID, "error", err)
	}
}

// handleRematch processes a player's rematch request.
func (r *Room) handleRematch(ctx context.Context, p *player.Player) {
	ctx, span := tracer.Start(ctx, "room.handleRematch", trace.WithAttributes(
		attribute.String("player.id", p.ID),
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	gameState, err := r.gameRepo.FindByID(ctx, r.ID)
	if err != nil {
		slog.ErrorContext(ctx, "could not get game state for rematch vote", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Could not get game state for rematch vote")
		return
	}

	if !gameState.Finished() {
		slog.WarnContext(ctx, "Player requested rematch, but game is not over", "player.id", p.ID)
		span.SetStatus(codes.Error, "Rematch requested before game over")
		r.sendError(p, "game is not over yet")
		return
	}

	slog.InfoContext(ctx, "Player voted for a rematch", "player.id", p.ID, "room.id", r.ID)
	if err := r.gameRepo.RecordVote(ctx, r.ID, p.ID); err != nil {
		slog.ErrorContext(ctx, "failed to record rematch vote for player", "player.id", p.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to record rematch vote")
		return
	}

	var otherPlayerIsBot bool
	for _, other := range r.Players {
		if other.ID != p.ID && other.IsBot {
			otherPlayerIsBot = true
			break
		}
	}

	if otherPlayerIsBot {
		slog.InfoContext(ctx, "Bot auto-accepts rematch. Resetting game.", "room.id", r.ID)
		r.resetGameForRematch(ctx)
		return
	}

	votes, err := r.gameRepo.CountVotes(ctx, r.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count votes for room", "room.id", r.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to count votes")
		return
	}

	if votes >= 2 {
		slog.InfoContext(ctx, "All players voted for a rematch. Resetting game.", "room.id", r.ID)
		r.resetGameForRematch(ctx)
	} else {
		payload, _ := json.Marshal(events.RematchRequestedPayload{
			RoomID:   r.ID,
			PlayerID: p.ID,
		})
		event, _ := json.Marshal(events.Event{Type: "rematch_requested", Payload: payload})
		if err := r.pub.Publish(ctx, events.EventsChannel, event).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to publish rematch_requested event", "room.id", r.ID, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to publish rematch_requested event")
		}
	}
}

// sendError reports a rejected action back to the player who tried it.
func (r *Room) sendError(p *player.Player, reason string) {
	if p.Status != player.StatusConnected {
		return
	}
	data, _ := json.Marshal(&proto.ServerToClientMessage{Type: "error", Reason: reason})
	if err := p.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Warn("failed to send error to player", "player.id", p.ID, "error", err)
	}
}
