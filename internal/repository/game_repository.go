package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"

	"github.com/l-t-m-f/XO-TicTacToe/internal/apperror"
	"github.com/l-t-m-f/XO-TicTacToe/internal/game"
	"github.com/l-t-m-f/XO-TicTacToe/pkg/proto"
)

var tracer = otel.Tracer("repository")

// Redis hash fields of a room entry.
const (
	fieldBoard      = "board"
	fieldPlayerX    = "player_x"
	fieldPlayerO    = "player_o"
	fieldNextTurn   = "next_turn"
	fieldWinner     = "winner"
	fieldStatus     = "status"
	fieldDifficulty = "difficulty"
)

func roomKey(roomID string) string  { return fmt.Sprintf("room:%s", roomID) }
func votesKey(roomID string) string { return fmt.Sprintf("room:%s:votes", roomID) }

// GameState is the live state of one room's game as stored in Redis.
type GameState struct {
	Board       *game.Board
	CurrentTurn game.Mark
	Winner      game.Mark
	Status      string
	Difficulty  string
	PlayerXID   string
	PlayerOID   string
}

// Finished reports whether the game is over.
func (s *GameState) Finished() bool { return s.Status == proto.StatusFinished }

// Draw reports a finished game that nobody won.
func (s *GameState) Draw() bool { return s.Finished() && s.Winner == game.Empty }

// MarkOf returns the seat a player holds, or Empty for strangers.
func (s *GameState) MarkOf(playerID string) game.Mark {
	switch playerID {
	case s.PlayerXID:
		return game.X
	case s.PlayerOID:
		return game.O
	}
	return game.Empty
}

// GameRepository defines the interface for game data operations.
type GameRepository interface {
	Create(ctx context.Context, roomID, playerXID, playerOID, difficulty string) error
	FindByID(ctx context.Context, id string) (*GameState, error)
	ApplyMove(ctx context.Context, id string, mark game.Mark, cell game.Cell) (*GameState, error)
	Delete(ctx context.Context, id string) error
	RecordVote(ctx context.Context, roomID, playerID string) error
	CountVotes(ctx context.Context, roomID string) (int, error)
	ClearVotes(ctx context.Context, roomID string) error
}

type redisGameRepository struct {
	rdb *redis.Client
}

// NewGameRepository creates a new Redis-based GameRepository.
func NewGameRepository(rdb *redis.Client) GameRepository {
	return &redisGameRepository{rdb: rdb}
}

// Create initializes a fresh game state for a room. Calling it on an
// existing room resets the board and draws a new opening side, which is
// exactly what a rematch needs.
func (r *redisGameRepository) Create(ctx context.Context, roomID, playerXID, playerOID, difficulty string) error {
	ctx, span := tracer.Start(ctx, "GameRepository.Create")
	defer span.End()

	boardJSON, err := json.Marshal(game.NewBoard().Grid())
	if err != nil {
		return fmt.Errorf("failed to marshal initial board: %w", err)
	}

	key := roomKey(roomID)
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, key, fieldBoard, boardJSON)
	pipe.HSet(ctx, key, fieldPlayerX, playerXID)
	pipe.HSet(ctx, key, fieldPlayerO, playerOID)
	pipe.HSet(ctx, key, fieldNextTurn, game.RandomFirstMark().String())
	pipe.HSet(ctx, key, fieldWinner, "")
	pipe.HSet(ctx, key, fieldStatus, proto.StatusOngoing)
	pipe.HSet(ctx, key, fieldDifficulty, difficulty)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create game in redis: %w", err)
	}
	return nil
}

// FindByID retrieves the current game state from Redis.
func (r *redisGameRepository) FindByID(ctx context.Context, id string) (*GameState, error) {
	ctx, span := tracer.Start(ctx, "GameRepository.FindByID")
	defer span.End()

	data, err := r.rdb.HGetAll(ctx, roomKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get game state from redis: %w", err)
	}
	if len(data) == 0 {
		return nil, apperror.ErrRoomNotFound
	}

	return stateFromHash(data)
}

// ApplyMove validates and applies one move inside an optimistic
// transaction: the seat must be on turn, the game live, the square open.
// It returns the state after the move, with winner and status settled.
func (r *redisGameRepository) ApplyMove(ctx context.Context, id string, mark game.Mark, cell game.Cell) (*GameState, error) {
	ctx, span := tracer.Start(ctx, "GameRepository.ApplyMove")
	defer span.End()

	key := roomKey(id)
	var updated *GameState

	txf := func(tx *redis.Tx) error {
		data, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return apperror.ErrRoomNotFound
		}

		state, err := stateFromHash(data)
		if err != nil {
			return err
		}
		if state.Finished() {
			return apperror.ErrGameFinished
		}
		if state.CurrentTurn != mark {
			return apperror.ErrNotYourTurn
		}
		if err := state.Board.Place(mark, cell); err != nil {
			return err
		}

		state.CurrentTurn = mark.Opponent()
		if winner, ok := state.Board.Winner(); ok {
			state.Winner = winner
			state.Status = proto.StatusFinished
		} else if state.Board.IsFull() {
			state.Status = proto.StatusFinished
		}

		boardJSON, err := json.Marshal(state.Board.Grid())
		if err != nil {
			return fmt.Errorf("failed to marshal updated board: %w", err)
		}

		pipe := tx.TxPipeline()
		pipe.HSet(ctx, key, fieldBoard, boardJSON)
		pipe.HSet(ctx, key, fieldNextTurn, state.CurrentTurn.String())
		pipe.HSet(ctx, key, fieldWinner, state.Winner.String())
		pipe.HSet(ctx, key, fieldStatus, state.Status)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}

		updated = state
		return nil
	}

	if err := r.rdb.Watch(ctx, txf, key); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a room's state and any pending rematch votes.
func (r *redisGameRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "GameRepository.Delete")
	defer span.End()

	return r.rdb.Del(ctx, roomKey(id), votesKey(id)).Err()
}

// RecordVote records a player's vote for a rematch.
func (r *redisGameRepository) RecordVote(ctx context.Context, roomID, playerID string) error {
	ctx, span := tracer.Start(ctx, "GameRepository.RecordVote")
	defer span.End()

	return r.rdb.SAdd(ctx, votesKey(roomID), playerID).Err()
}

// CountVotes returns how many distinct players voted for a rematch.
func (r *redisGameRepository) CountVotes(ctx context.Context, roomID string) (int, error) {
	ctx, span := tracer.Start(ctx, "GameRepository.CountVotes")
	defer span.End()

	n, err := r.rdb.SCard(ctx, votesKey(roomID)).Result()
	return int(n), err
}

// ClearVotes removes all rematch votes for a room.
func (r *redisGameRepository) ClearVotes(ctx context.Context, roomID string) error {
	ctx, span := tracer.Start(ctx, "GameRepository.ClearVotes")
	defer span.End()

	return r.rdb.Del(ctx, votesKey(roomID)).Err()
}

func stateFromHash(data map[string]string) (*GameState, error) {
	var grid [][]string
	if err := json.Unmarshal([]byte(data[fieldBoard]), &grid); err != nil {
		return nil, fmt.Errorf("failed to unmarshal board: %w", err)
	}
	board, err := game.ParseGrid(grid)
	if err != nil {
		return nil, err
	}
	turn, err := game.ParseMark(data[fieldNextTurn])
	if err != nil {
		return nil, err
	}
	winner, err := game.ParseMark(data[fieldWinner])
	if err != nil {
		return nil, err
	}

	return &GameState{
		Board:       board,
		CurrentTurn: turn,
		Winner:      winner,
		Status:      data[fieldStatus],
		Difficulty:  data[fieldDifficulty],
		PlayerXID:   data[fieldPlayerX],
		PlayerOID:   data[fieldPlayerO],
	}, nil
}
